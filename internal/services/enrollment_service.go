package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/repositories"
	"github.com/LearnSphere-2025/course-service/internal/validator"
)

type enrollmentService struct {
	repo              repositories.Repository
	db                *gorm.DB
	logger            *slog.Logger
	validator         *validator.Validator
	businessValidator *validator.BusinessValidator
	notification      NotificationEventService
}

// NewEnrollmentService creates the engagement service covering
// enrollments, favorites, and applications.
func NewEnrollmentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, notification NotificationEventService) EnrollmentService {
	return &enrollmentService{
		repo:              repo,
		db:                db,
		logger:            logger,
		validator:         v,
		businessValidator: validator.NewBusinessValidator(),
		notification:      notification,
	}
}

// Enroll adds the user to a published course. The composite unique index
// makes the second enrollment of a pair a conflict, racing or not.
func (s *enrollmentService) Enroll(ctx context.Context, userID string, courseID uint) (*models.Enrollment, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.Published {
		return nil, NewBusinessRuleError("course_published", "course %d is not open for enrollment", courseID)
	}

	enrollment := &models.Enrollment{
		UserID:   userID,
		CourseID: courseID,
	}

	if err := s.repo.Enrollment().Create(ctx, nil, enrollment); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, NewConflictError("user is already enrolled in course %d", courseID)
		}
		return nil, fmt.Errorf("failed to enroll: %w", err)
	}

	s.logger.InfoContext(ctx, "User enrolled",
		"user_id", userID,
		"course_id", courseID)

	if s.notification != nil {
		if err := s.notification.PublishEnrollmentCreated(ctx, enrollment); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish enrollment event",
				"course_id", courseID,
				"error", err)
		}
	}

	return enrollment, nil
}

// Unenroll removes the user from a course
func (s *enrollmentService) Unenroll(ctx context.Context, userID string, courseID uint) error {
	if err := s.repo.Enrollment().Delete(ctx, nil, userID, courseID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrEnrollmentNotFound
		}
		return fmt.Errorf("failed to unenroll: %w", err)
	}

	s.logger.InfoContext(ctx, "User unenrolled",
		"user_id", userID,
		"course_id", courseID)

	return nil
}

// ListByUser retrieves the user's own enrollments
func (s *enrollmentService) ListByUser(ctx context.Context, userID string) ([]*models.Enrollment, error) {
	enrollments, err := s.repo.Enrollment().ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return enrollments, nil
}

// ListRoster retrieves a course's enrollments for its teacher or an admin
func (s *enrollmentService) ListRoster(ctx context.Context, courseID uint, actorID string, actorRole models.UserRole) ([]*models.Enrollment, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.TeacherID != actorID && actorRole != models.RoleAdmin {
		return nil, NewPermissionError(actorID, "view roster of", fmt.Sprintf("course %d", courseID))
	}

	enrollments, err := s.repo.Enrollment().ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster: %w", err)
	}
	return enrollments, nil
}

// ===== FAVORITES =====

// Favorite bookmarks a course for the user
func (s *enrollmentService) Favorite(ctx context.Context, userID string, courseID uint) (*models.Favorite, error) {
	if _, err := s.getCourse(ctx, courseID); err != nil {
		return nil, err
	}

	favorite := &models.Favorite{
		UserID:   userID,
		CourseID: courseID,
	}

	if err := s.repo.Favorite().Create(ctx, nil, favorite); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, NewConflictError("course %d is already in favorites", courseID)
		}
		return nil, fmt.Errorf("failed to favorite: %w", err)
	}

	return favorite, nil
}

// Unfavorite removes a bookmark
func (s *enrollmentService) Unfavorite(ctx context.Context, userID string, courseID uint) error {
	if err := s.repo.Favorite().Delete(ctx, nil, userID, courseID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrFavoriteNotFound
		}
		return fmt.Errorf("failed to unfavorite: %w", err)
	}
	return nil
}

// ListFavorites retrieves the user's bookmarks
func (s *enrollmentService) ListFavorites(ctx context.Context, userID string) ([]*models.Favorite, error) {
	favorites, err := s.repo.Favorite().ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return favorites, nil
}

// ===== APPLICATIONS =====

// Apply submits an application to join a course
func (s *enrollmentService) Apply(ctx context.Context, userID string, courseID uint, req *ApplyCourseRequest) (*models.CourseApplication, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	if _, err := s.getCourse(ctx, courseID); err != nil {
		return nil, err
	}

	application := &models.CourseApplication{
		UserID:   userID,
		CourseID: courseID,
		Message:  req.Message,
		Status:   models.ApplicationPending,
	}

	if err := s.repo.Application().Create(ctx, nil, application); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, NewConflictError("user has already applied to course %d", courseID)
		}
		return nil, fmt.Errorf("failed to apply: %w", err)
	}

	s.logger.InfoContext(ctx, "Course application submitted",
		"user_id", userID,
		"course_id", courseID)

	return application, nil
}

// DecideApplication approves or rejects a pending application. Approval
// enrolls the applicant in the same transaction.
func (s *enrollmentService) DecideApplication(ctx context.Context, applicationID uint, actorID string, actorRole models.UserRole, req *DecideApplicationRequest) (*models.CourseApplication, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	application, err := s.repo.Application().GetByID(ctx, nil, applicationID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	course, err := s.getCourse(ctx, application.CourseID)
	if err != nil {
		return nil, err
	}
	if course.TeacherID != actorID && actorRole != models.RoleAdmin {
		return nil, NewPermissionError(actorID, "decide", fmt.Sprintf("application %d", applicationID))
	}

	if errs := s.businessValidator.ValidateApplicationTransition(application.Status, req.Status); errs.HasErrors() {
		return nil, errs
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Application().UpdateStatus(ctx, nil, applicationID, req.Status); err != nil {
			return err
		}

		if req.Status == models.ApplicationApproved {
			// Already enrolled through another path leaves the approval
			// standing without a second row.
			_, getErr := txRepo.Enrollment().Get(ctx, nil, application.UserID, application.CourseID)
			if getErr == nil {
				return nil
			}
			if !repositories.IsNotFoundError(getErr) {
				return getErr
			}

			enrollment := &models.Enrollment{
				UserID:   application.UserID,
				CourseID: application.CourseID,
			}
			if err := txRepo.Enrollment().Create(ctx, nil, enrollment); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decide application: %w", err)
	}

	application.Status = req.Status

	s.logger.InfoContext(ctx, "Application decided",
		"application_id", applicationID,
		"status", req.Status,
		"actor_id", actorID)

	return application, nil
}

// ListApplicationsByCourse retrieves a course's review queue
func (s *enrollmentService) ListApplicationsByCourse(ctx context.Context, courseID uint, actorID string, actorRole models.UserRole) ([]*models.CourseApplication, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.TeacherID != actorID && actorRole != models.RoleAdmin {
		return nil, NewPermissionError(actorID, "list applications of", fmt.Sprintf("course %d", courseID))
	}

	applications, err := s.repo.Application().ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return applications, nil
}

// ListApplicationsByUser retrieves the user's own applications
func (s *enrollmentService) ListApplicationsByUser(ctx context.Context, userID string) ([]*models.CourseApplication, error) {
	applications, err := s.repo.Application().ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return applications, nil
}

func (s *enrollmentService) getCourse(ctx context.Context, id uint) (*models.Course, error) {
	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return course, nil
}
