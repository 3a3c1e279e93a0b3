package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/validator"
)

func newProfileService(repo *fakeRepository) TeacherProfileService {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewTeacherProfileService(repo, nil, logger, validator.New(), nil)
}

func strPtr(s string) *string { return &s }

func TestTeacherProfileService_GetByTeacherID(t *testing.T) {
	ctx := context.Background()

	t.Run("provisions missing profile from the account", func(t *testing.T) {
		repo := newFakeRepository()
		repo.seedUser("t1", "Ada Lovelace", "ada@example.com", models.RoleTeacher)
		service := newProfileService(repo)

		resp, err := service.GetByTeacherID(ctx, "t1")
		if err != nil {
			t.Fatalf("GetByTeacherID failed: %v", err)
		}
		if resp.DisplayName != "Ada Lovelace" {
			t.Errorf("Expected display name from account, got %q", resp.DisplayName)
		}
		if resp.ContactEmail != "ada@example.com" {
			t.Errorf("Expected contact email from account, got %q", resp.ContactEmail)
		}
		if len(repo.profiles) != 1 {
			t.Fatalf("Expected 1 stored profile, got %d", len(repo.profiles))
		}
	})

	t.Run("repeated reads reuse the provisioned row", func(t *testing.T) {
		repo := newFakeRepository()
		repo.seedUser("t1", "Ada Lovelace", "ada@example.com", models.RoleTeacher)
		service := newProfileService(repo)

		first, err := service.GetByTeacherID(ctx, "t1")
		if err != nil {
			t.Fatalf("First read failed: %v", err)
		}
		second, err := service.GetByTeacherID(ctx, "t1")
		if err != nil {
			t.Fatalf("Second read failed: %v", err)
		}
		if first.TeacherProfile.ID != second.TeacherProfile.ID {
			t.Errorf("Expected the same profile row, got %d then %d", first.TeacherProfile.ID, second.TeacherProfile.ID)
		}
		if len(repo.profiles) != 1 {
			t.Errorf("Expected 1 stored profile, got %d", len(repo.profiles))
		}
	})

	t.Run("unknown account is not found", func(t *testing.T) {
		repo := newFakeRepository()
		service := newProfileService(repo)

		_, err := service.GetByTeacherID(ctx, "missing")
		if !errors.Is(err, ErrTeacherNotFound) {
			t.Errorf("Expected ErrTeacherNotFound, got %v", err)
		}
	})

	t.Run("non-teacher account is reported as not found", func(t *testing.T) {
		repo := newFakeRepository()
		repo.seedUser("s1", "Sam Student", "sam@example.com", models.RoleStudent)
		service := newProfileService(repo)

		_, err := service.GetByTeacherID(ctx, "s1")
		if !errors.Is(err, ErrTeacherNotFound) {
			t.Errorf("Expected ErrTeacherNotFound, got %v", err)
		}
		if len(repo.profiles) != 0 {
			t.Errorf("Expected no profile provisioned for a student, got %d", len(repo.profiles))
		}
	})

	t.Run("lost provisioning race returns the winner's row", func(t *testing.T) {
		repo := newFakeRepository()
		user := repo.seedUser("t1", "Ada Lovelace", "ada@example.com", models.RoleTeacher)
		service := newProfileService(repo)

		// A concurrent writer inserts the row between our read and create.
		repo.profileCreateHook = func() {
			repo.profileCreateHook = nil
			winner := &models.TeacherProfile{UserID: user.ID, DisplayName: "Winner", ContactEmail: user.Email}
			winner.ID = 99
			repo.mu.Lock()
			repo.profiles[user.ID] = winner
			repo.mu.Unlock()
		}

		resp, err := service.GetByTeacherID(ctx, "t1")
		if err != nil {
			t.Fatalf("GetByTeacherID failed: %v", err)
		}
		if resp.DisplayName != "Winner" {
			t.Errorf("Expected the winner's row, got %q", resp.DisplayName)
		}
	})
}

func TestTeacherProfileService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("backfills missing profiles and keeps account order", func(t *testing.T) {
		repo := newFakeRepository()
		repo.seedUser("t1", "First Teacher", "one@example.com", models.RoleTeacher)
		repo.seedUser("s1", "Some Student", "student@example.com", models.RoleStudent)
		repo.seedUser("t2", "Second Teacher", "two@example.com", models.RoleTeacher)
		service := newProfileService(repo)

		// t2 already has a profile; t1 needs backfilling.
		if _, err := service.GetByTeacherID(ctx, "t2"); err != nil {
			t.Fatalf("Seeding t2 profile failed: %v", err)
		}

		result, err := service.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(result) != 2 {
			t.Fatalf("Expected 2 directory entries, got %d", len(result))
		}
		if result[0].UserID != "t1" || result[1].UserID != "t2" {
			t.Errorf("Expected account creation order t1,t2; got %s,%s", result[0].UserID, result[1].UserID)
		}
		if len(repo.profiles) != 2 {
			t.Errorf("Expected both profiles stored, got %d", len(repo.profiles))
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		repo := newFakeRepository()
		service := newProfileService(repo)

		result, err := service.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(result) != 0 {
			t.Errorf("Expected empty directory, got %d entries", len(result))
		}
	})

	t.Run("partially lost backfill race still provisions every teacher", func(t *testing.T) {
		repo := newFakeRepository()
		t1 := repo.seedUser("t1", "First Teacher", "one@example.com", models.RoleTeacher)
		repo.seedUser("t2", "Second Teacher", "two@example.com", models.RoleTeacher)
		service := newProfileService(repo)

		// A concurrent writer provisions only t1 while our batch insert
		// is in flight, turning the whole batch into a duplicate error.
		repo.profileCreateHook = func() {
			repo.profileCreateHook = nil
			winner := &models.TeacherProfile{UserID: t1.ID, DisplayName: "Winner", ContactEmail: t1.Email}
			winner.ID = 99
			repo.mu.Lock()
			repo.profiles[t1.ID] = winner
			repo.mu.Unlock()
		}

		result, err := service.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(result) != 2 {
			t.Fatalf("Expected a directory entry for every teacher, got %d of 2", len(result))
		}
		if result[0].DisplayName != "Winner" {
			t.Errorf("Expected the winner's row for t1, got %q", result[0].DisplayName)
		}
		if result[1].UserID != "t2" {
			t.Errorf("Expected t2 provisioned and listed, got %s", result[1].UserID)
		}
		if len(repo.profiles) != 2 {
			t.Errorf("Expected both profiles stored, got %d", len(repo.profiles))
		}
	})

	t.Run("listing twice does not duplicate rows", func(t *testing.T) {
		repo := newFakeRepository()
		repo.seedUser("t1", "First Teacher", "one@example.com", models.RoleTeacher)
		service := newProfileService(repo)

		if _, err := service.List(ctx); err != nil {
			t.Fatalf("First list failed: %v", err)
		}
		if _, err := service.List(ctx); err != nil {
			t.Fatalf("Second list failed: %v", err)
		}
		if len(repo.profiles) != 1 {
			t.Errorf("Expected 1 stored profile after repeated listings, got %d", len(repo.profiles))
		}
	})
}

func TestTeacherProfileService_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("creates with payload applied over defaults", func(t *testing.T) {
		repo := newFakeRepository()
		repo.seedUser("t1", "Ada Lovelace", "ada@example.com", models.RoleTeacher)
		service := newProfileService(repo)

		resp, err := service.Upsert(ctx, "t1", models.RoleTeacher, "t1", &TeacherProfileRequest{
			Bio:        strPtr("Analytical engines"),
			Experience: strPtr("10 years"),
		})
		if err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if resp.DisplayName != "Ada Lovelace" {
			t.Errorf("Expected default display name, got %q", resp.DisplayName)
		}
		if resp.Bio == nil || *resp.Bio != "Analytical engines" {
			t.Errorf("Expected bio applied, got %v", resp.Bio)
		}
		if resp.Experience != "10 years" {
			t.Errorf("Expected experience applied, got %q", resp.Experience)
		}
	})

	t.Run("merge keeps unspecified fields", func(t *testing.T) {
		repo := newFakeRepository()
		repo.seedUser("t1", "Ada Lovelace", "ada@example.com", models.RoleTeacher)
		service := newProfileService(repo)

		if _, err := service.Upsert(ctx, "t1", models.RoleTeacher, "t1", &TeacherProfileRequest{
			Bio:        strPtr("Analytical engines"),
			Experience: strPtr("10 years"),
		}); err != nil {
			t.Fatalf("First upsert failed: %v", err)
		}

		resp, err := service.Upsert(ctx, "t1", models.RoleTeacher, "t1", &TeacherProfileRequest{
			DisplayName: strPtr("Countess of Lovelace"),
		})
		if err != nil {
			t.Fatalf("Second upsert failed: %v", err)
		}
		if resp.DisplayName != "Countess of Lovelace" {
			t.Errorf("Expected display name overwritten, got %q", resp.DisplayName)
		}
		if resp.Bio == nil || *resp.Bio != "Analytical engines" {
			t.Errorf("Expected bio preserved, got %v", resp.Bio)
		}
		if resp.Experience != "10 years" {
			t.Errorf("Expected experience preserved, got %q", resp.Experience)
		}
	})

	t.Run("social links merge per sub-field", func(t *testing.T) {
		repo := newFakeRepository()
		repo.seedUser("t1", "Ada Lovelace", "ada@example.com", models.RoleTeacher)
		service := newProfileService(repo)

		if _, err := service.Upsert(ctx, "t1", models.RoleTeacher, "t1", &TeacherProfileRequest{
			SocialLinks: &models.SocialLinks{
				GitHub:  strPtr("https://github.com/ada"),
				Website: strPtr("https://ada.example.com"),
			},
		}); err != nil {
			t.Fatalf("First upsert failed: %v", err)
		}

		resp, err := service.Upsert(ctx, "t1", models.RoleTeacher, "t1", &TeacherProfileRequest{
			SocialLinks: &models.SocialLinks{
				Website: strPtr("https://lovelace.example.com"),
			},
		})
		if err != nil {
			t.Fatalf("Second upsert failed: %v", err)
		}

		links := resp.SocialLinks.Data()
		if links.GitHub == nil || *links.GitHub != "https://github.com/ada" {
			t.Errorf("Expected github preserved, got %v", links.GitHub)
		}
		if links.Website == nil || *links.Website != "https://lovelace.example.com" {
			t.Errorf("Expected website overwritten, got %v", links.Website)
		}
	})

	t.Run("only the teacher or an admin may write", func(t *testing.T) {
		repo := newFakeRepository()
		repo.seedUser("t1", "Ada Lovelace", "ada@example.com", models.RoleTeacher)
		repo.seedUser("t2", "Grace Hopper", "grace@example.com", models.RoleTeacher)
		service := newProfileService(repo)

		_, err := service.Upsert(ctx, "t2", models.RoleTeacher, "t1", &TeacherProfileRequest{
			Bio: strPtr("not yours"),
		})
		if !IsPermissionError(err) {
			t.Errorf("Expected permission error for foreign write, got %v", err)
		}

		if _, err := service.Upsert(ctx, "admin", models.RoleAdmin, "t1", &TeacherProfileRequest{
			Bio: strPtr("admin write"),
		}); err != nil {
			t.Errorf("Expected admin write to succeed, got %v", err)
		}
	})

	t.Run("foreign writes are forbidden before the payload is inspected", func(t *testing.T) {
		repo := newFakeRepository()
		repo.seedUser("t1", "Ada Lovelace", "ada@example.com", models.RoleTeacher)
		repo.seedUser("t2", "Grace Hopper", "grace@example.com", models.RoleTeacher)
		service := newProfileService(repo)

		// Invalid payload: the caller must still see 403, not validation detail.
		_, err := service.Upsert(ctx, "t2", models.RoleTeacher, "t1", &TeacherProfileRequest{
			ContactEmail: strPtr("not-an-email"),
		})
		if !IsPermissionError(err) {
			t.Errorf("Expected permission error for foreign write with invalid payload, got %v", err)
		}
	})

	t.Run("lost creation race merges into the winner's row", func(t *testing.T) {
		repo := newFakeRepository()
		user := repo.seedUser("t1", "Ada Lovelace", "ada@example.com", models.RoleTeacher)
		service := newProfileService(repo)

		repo.profileCreateHook = func() {
			repo.profileCreateHook = nil
			winner := &models.TeacherProfile{UserID: user.ID, DisplayName: "Winner", ContactEmail: user.Email, Experience: "3 years"}
			winner.ID = 99
			repo.mu.Lock()
			repo.profiles[user.ID] = winner
			repo.mu.Unlock()
		}

		resp, err := service.Upsert(ctx, "t1", models.RoleTeacher, "t1", &TeacherProfileRequest{
			Bio: strPtr("merged after race"),
		})
		if err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if resp.TeacherProfile.ID != 99 {
			t.Errorf("Expected the winner's row, got id %d", resp.TeacherProfile.ID)
		}
		if resp.Bio == nil || *resp.Bio != "merged after race" {
			t.Errorf("Expected payload merged into winner's row, got %v", resp.Bio)
		}
		if resp.Experience != "3 years" {
			t.Errorf("Expected winner's fields preserved, got %q", resp.Experience)
		}
	})
}

func TestTeacherProfileService_RefreshRating(t *testing.T) {
	ctx := context.Background()

	repo := newFakeRepository()
	repo.seedUser("t1", "Ada Lovelace", "ada@example.com", models.RoleTeacher)
	course := repo.seedCourse("t1", "Engines 101", 0, true)
	service := newProfileService(repo)

	if _, err := service.GetByTeacherID(ctx, "t1"); err != nil {
		t.Fatalf("Provisioning failed: %v", err)
	}

	repo.reviews[1] = &models.CourseReview{ID: 1, UserID: "s1", CourseID: course.ID, Rating: 5}
	repo.reviews[2] = &models.CourseReview{ID: 2, UserID: "s2", CourseID: course.ID, Rating: 4}

	if err := service.RefreshRating(ctx, "t1"); err != nil {
		t.Fatalf("RefreshRating failed: %v", err)
	}

	profile := repo.profiles["t1"]
	if profile.RatingCount != 2 {
		t.Errorf("Expected rating count 2, got %d", profile.RatingCount)
	}
	if profile.Rating != 4.5 {
		t.Errorf("Expected rating 4.5, got %f", profile.Rating)
	}
}
