package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/LearnSphere-2025/course-service/internal/events"
	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/validator"
)

func newEnrollmentTestService(repo *fakeRepository) (EnrollmentService, *events.MockEventPublisher) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	publisher := events.NewMockEventPublisher(logger)
	v := validator.New()
	notification := NewNotificationEventService(repo, publisher, logger, v)
	return NewEnrollmentService(repo, nil, logger, v, notification), publisher
}

func TestEnrollmentService_Enroll(t *testing.T) {
	ctx := context.Background()

	t.Run("enrolls in a published course and publishes an event", func(t *testing.T) {
		repo := newFakeRepository()
		repo.seedUser("s1", "Sam Student", "sam@example.com", models.RoleStudent)
		course := repo.seedCourse("t1", "Engines 101", 0, true)
		service, publisher := newEnrollmentTestService(repo)

		enrollment, err := service.Enroll(ctx, "s1", course.ID)
		if err != nil {
			t.Fatalf("Enroll failed: %v", err)
		}
		if enrollment.CourseID != course.ID {
			t.Errorf("Expected course %d, got %d", course.ID, enrollment.CourseID)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 {
			t.Fatalf("Expected 1 event, got %d", len(published))
		}
		if published[0].Type != EventEnrollmentCreated {
			t.Errorf("Expected event type %s, got %s", EventEnrollmentCreated, published[0].Type)
		}
	})

	t.Run("duplicate enrollment is a conflict", func(t *testing.T) {
		repo := newFakeRepository()
		course := repo.seedCourse("t1", "Engines 101", 0, true)
		service, _ := newEnrollmentTestService(repo)

		if _, err := service.Enroll(ctx, "s1", course.ID); err != nil {
			t.Fatalf("First enroll failed: %v", err)
		}
		_, err := service.Enroll(ctx, "s1", course.ID)
		if !IsConflictError(err) {
			t.Fatalf("Expected conflict error, got %v", err)
		}
	})

	t.Run("unpublished course rejects enrollment", func(t *testing.T) {
		repo := newFakeRepository()
		course := repo.seedCourse("t1", "Drafts", 0, false)
		service, _ := newEnrollmentTestService(repo)

		_, err := service.Enroll(ctx, "s1", course.ID)
		if !IsBusinessRuleError(err) {
			t.Errorf("Expected business rule error, got %v", err)
		}
	})

	t.Run("unknown course is not found", func(t *testing.T) {
		repo := newFakeRepository()
		service, _ := newEnrollmentTestService(repo)

		_, err := service.Enroll(ctx, "s1", 42)
		if !errors.Is(err, ErrCourseNotFound) {
			t.Errorf("Expected ErrCourseNotFound, got %v", err)
		}
	})
}

func TestEnrollmentService_ListRoster(t *testing.T) {
	ctx := context.Background()

	repo := newFakeRepository()
	course := repo.seedCourse("t1", "Engines 101", 0, true)
	repo.seedEnrollment("s1", course.ID)
	repo.seedEnrollment("s2", course.ID)
	service, _ := newEnrollmentTestService(repo)

	t.Run("course teacher sees the roster", func(t *testing.T) {
		roster, err := service.ListRoster(ctx, course.ID, "t1", models.RoleTeacher)
		if err != nil {
			t.Fatalf("ListRoster failed: %v", err)
		}
		if len(roster) != 2 {
			t.Errorf("Expected 2 enrollments, got %d", len(roster))
		}
	})

	t.Run("other teachers are denied", func(t *testing.T) {
		_, err := service.ListRoster(ctx, course.ID, "t2", models.RoleTeacher)
		if !IsPermissionError(err) {
			t.Errorf("Expected permission error, got %v", err)
		}
	})

	t.Run("admin sees any roster", func(t *testing.T) {
		if _, err := service.ListRoster(ctx, course.ID, "admin", models.RoleAdmin); err != nil {
			t.Errorf("Expected admin access, got %v", err)
		}
	})
}

func TestEnrollmentService_Applications(t *testing.T) {
	ctx := context.Background()

	t.Run("approval enrolls the applicant", func(t *testing.T) {
		repo := newFakeRepository()
		course := repo.seedCourse("t1", "Engines 101", 0, true)
		service, _ := newEnrollmentTestService(repo)

		application, err := service.Apply(ctx, "s1", course.ID, &ApplyCourseRequest{Message: strPtr("let me in")})
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if application.Status != models.ApplicationPending {
			t.Fatalf("Expected pending status, got %s", application.Status)
		}

		decided, err := service.DecideApplication(ctx, application.ID, "t1", models.RoleTeacher, &DecideApplicationRequest{
			Status: models.ApplicationApproved,
		})
		if err != nil {
			t.Fatalf("DecideApplication failed: %v", err)
		}
		if decided.Status != models.ApplicationApproved {
			t.Errorf("Expected approved status, got %s", decided.Status)
		}

		if _, err := repo.Enrollment().Get(ctx, nil, "s1", course.ID); err != nil {
			t.Errorf("Expected enrollment after approval, got %v", err)
		}
	})

	t.Run("approval tolerates an existing enrollment", func(t *testing.T) {
		repo := newFakeRepository()
		course := repo.seedCourse("t1", "Engines 101", 0, true)
		service, _ := newEnrollmentTestService(repo)

		application, err := service.Apply(ctx, "s1", course.ID, &ApplyCourseRequest{})
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		repo.seedEnrollment("s1", course.ID)

		if _, err := service.DecideApplication(ctx, application.ID, "t1", models.RoleTeacher, &DecideApplicationRequest{
			Status: models.ApplicationApproved,
		}); err != nil {
			t.Fatalf("Expected approval to stand, got %v", err)
		}
	})

	t.Run("decided applications cannot be re-decided", func(t *testing.T) {
		repo := newFakeRepository()
		course := repo.seedCourse("t1", "Engines 101", 0, true)
		service, _ := newEnrollmentTestService(repo)

		application, err := service.Apply(ctx, "s1", course.ID, &ApplyCourseRequest{})
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if _, err := service.DecideApplication(ctx, application.ID, "t1", models.RoleTeacher, &DecideApplicationRequest{
			Status: models.ApplicationRejected,
		}); err != nil {
			t.Fatalf("First decision failed: %v", err)
		}

		if _, err := service.DecideApplication(ctx, application.ID, "t1", models.RoleTeacher, &DecideApplicationRequest{
			Status: models.ApplicationApproved,
		}); err == nil {
			t.Error("Expected second decision to be rejected")
		}
	})

	t.Run("only the course teacher or an admin decides", func(t *testing.T) {
		repo := newFakeRepository()
		course := repo.seedCourse("t1", "Engines 101", 0, true)
		service, _ := newEnrollmentTestService(repo)

		application, err := service.Apply(ctx, "s1", course.ID, &ApplyCourseRequest{})
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}

		_, err = service.DecideApplication(ctx, application.ID, "t2", models.RoleTeacher, &DecideApplicationRequest{
			Status: models.ApplicationApproved,
		})
		if !IsPermissionError(err) {
			t.Errorf("Expected permission error, got %v", err)
		}
	})

	t.Run("duplicate application is a conflict", func(t *testing.T) {
		repo := newFakeRepository()
		course := repo.seedCourse("t1", "Engines 101", 0, true)
		service, _ := newEnrollmentTestService(repo)

		if _, err := service.Apply(ctx, "s1", course.ID, &ApplyCourseRequest{}); err != nil {
			t.Fatalf("First apply failed: %v", err)
		}
		_, err := service.Apply(ctx, "s1", course.ID, &ApplyCourseRequest{})
		if !IsConflictError(err) {
			t.Errorf("Expected conflict error, got %v", err)
		}
	})
}

func TestEnrollmentService_Favorites(t *testing.T) {
	ctx := context.Background()

	repo := newFakeRepository()
	course := repo.seedCourse("t1", "Engines 101", 0, true)
	service, _ := newEnrollmentTestService(repo)

	if _, err := service.Favorite(ctx, "s1", course.ID); err != nil {
		t.Fatalf("Favorite failed: %v", err)
	}

	if _, err := service.Favorite(ctx, "s1", course.ID); !IsConflictError(err) {
		t.Errorf("Expected conflict on double favorite, got %v", err)
	}

	favorites, err := service.ListFavorites(ctx, "s1")
	if err != nil {
		t.Fatalf("ListFavorites failed: %v", err)
	}
	if len(favorites) != 1 {
		t.Errorf("Expected 1 favorite, got %d", len(favorites))
	}

	if err := service.Unfavorite(ctx, "s1", course.ID); err != nil {
		t.Fatalf("Unfavorite failed: %v", err)
	}
	if err := service.Unfavorite(ctx, "s1", course.ID); !errors.Is(err, ErrFavoriteNotFound) {
		t.Errorf("Expected ErrFavoriteNotFound, got %v", err)
	}
}
