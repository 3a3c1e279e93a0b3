package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type cachedCourse struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestCacheHelper_GetSet(t *testing.T) {
	_, client := newTestClient(t)
	helper := NewCacheHelper(client, "course:")
	ctx := context.Background()

	value := cachedCourse{ID: 7, Title: "Engines 101"}
	if err := helper.Set(ctx, "id:7", value, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var got cachedCourse
	if err := helper.Get(ctx, "id:7", &got); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != value {
		t.Errorf("Expected %+v, got %+v", value, got)
	}

	exists, err := helper.Exists(ctx, "id:7")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("Expected key to exist")
	}
}

func TestCacheHelper_GetMiss(t *testing.T) {
	_, client := newTestClient(t)
	helper := NewCacheHelper(client, "course:")

	var got cachedCourse
	err := helper.Get(context.Background(), "id:404", &got)
	if !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("Expected ErrCacheNotFound, got %v", err)
	}
}

func TestCacheHelper_NilClientDegradesGracefully(t *testing.T) {
	helper := NewCacheHelper(nil, "course:")
	ctx := context.Background()

	if err := helper.Set(ctx, "id:7", cachedCourse{}, time.Minute); err != nil {
		t.Errorf("Set with nil client should be a no-op, got %v", err)
	}

	var got cachedCourse
	if err := helper.Get(ctx, "id:7", &got); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("Expected ErrCacheNotAvailable, got %v", err)
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	mr, client := newTestClient(t)
	helper := NewCacheHelper(client, "course:")
	ctx := context.Background()

	for _, key := range []string{"id:7", "id:7:lessons", "list:page1"} {
		if err := helper.Set(ctx, key, cachedCourse{ID: 7}, time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := helper.InvalidatePattern(ctx, "id:7*"); err != nil {
		t.Fatalf("InvalidatePattern failed: %v", err)
	}

	if mr.Exists("course:id:7") || mr.Exists("course:id:7:lessons") {
		t.Error("Expected id:7 keys invalidated")
	}
	if !mr.Exists("course:list:page1") {
		t.Error("Expected list key untouched")
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	_, client := newTestClient(t)
	helper := NewCacheHelper(client, "course:")
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return cachedCourse{ID: 7, Title: "Engines 101"}, nil
	}

	var first cachedCourse
	if err := helper.CacheOrExecute(ctx, "id:7", &first, time.Minute, fetch); err != nil {
		t.Fatalf("First CacheOrExecute failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("Expected 1 fetch, got %d", calls)
	}

	// The async Set must land before the second read can hit the cache.
	deadline := time.Now().Add(time.Second)
	for {
		if ok, _ := helper.Exists(ctx, "id:7"); ok || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	var second cachedCourse
	if err := helper.CacheOrExecute(ctx, "id:7", &second, time.Minute, fetch); err != nil {
		t.Fatalf("Second CacheOrExecute failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected cache hit on second call, fetches = %d", calls)
	}
	if second.Title != "Engines 101" {
		t.Errorf("Unexpected cached value: %+v", second)
	}
}

func TestCacheManager_InvalidateCourse(t *testing.T) {
	mr, client := newTestClient(t)
	manager := NewCacheManager(client)
	ctx := context.Background()

	if err := manager.Course.Set(ctx, "id:7", cachedCourse{ID: 7}, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := manager.Course.Set(ctx, "list:page1", []cachedCourse{}, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := manager.Stats.Set(ctx, "course:7", 42, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := manager.InvalidateCourse(ctx, 7); err != nil {
		t.Fatalf("InvalidateCourse failed: %v", err)
	}

	for _, key := range []string{"course:id:7", "course:list:page1", "stats:course:7"} {
		if mr.Exists(key) {
			t.Errorf("Expected %s invalidated", key)
		}
	}
}
