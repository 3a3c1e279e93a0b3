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

type reviewService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	validator      *validator.Validator
	teacherProfile TeacherProfileService
}

// NewReviewService creates the review service. The profile service is
// used to refresh the teacher's denormalized rating after each write.
func NewReviewService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, teacherProfile TeacherProfileService) ReviewService {
	return &reviewService{
		repo:           repo,
		db:             db,
		logger:         logger,
		validator:      v,
		teacherProfile: teacherProfile,
	}
}

// Create records a review by an enrolled student. One review per
// (user, course) pair; duplicates are conflicts.
func (s *reviewService) Create(ctx context.Context, userID string, courseID uint, req *CreateReviewRequest) (*ReviewResponse, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	if _, err := s.repo.Enrollment().Get(ctx, nil, userID, courseID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewPermissionError(userID, "review", fmt.Sprintf("course %d", courseID))
		}
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}

	review := &models.CourseReview{
		UserID:   userID,
		CourseID: courseID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	}

	if err := s.repo.Review().Create(ctx, nil, review); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, NewConflictError("user has already reviewed course %d", courseID)
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	s.logger.InfoContext(ctx, "Review created",
		"review_id", review.ID,
		"course_id", courseID,
		"rating", req.Rating)

	s.refreshTeacherRating(ctx, course.TeacherID)

	return s.buildResponse(ctx, review)
}

// Update changes the author's own review
func (s *reviewService) Update(ctx context.Context, reviewID uint, actorID string, req *UpdateReviewRequest) (*ReviewResponse, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	review, err := s.getReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != actorID {
		return nil, NewPermissionError(actorID, "update", fmt.Sprintf("review %d", reviewID))
	}

	if req.Rating != nil {
		review.Rating = *req.Rating
	}
	if req.Comment != nil {
		review.Comment = req.Comment
	}

	if err := s.repo.Review().Update(ctx, nil, review); err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}

	if course, err := s.repo.Course().GetByID(ctx, nil, review.CourseID); err == nil {
		s.refreshTeacherRating(ctx, course.TeacherID)
	}

	return s.buildResponse(ctx, review)
}

// Delete removes a review (author or admin)
func (s *reviewService) Delete(ctx context.Context, reviewID uint, actorID string, actorRole models.UserRole) error {
	review, err := s.getReview(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.UserID != actorID && actorRole != models.RoleAdmin {
		return NewPermissionError(actorID, "delete", fmt.Sprintf("review %d", reviewID))
	}

	if err := s.repo.Review().Delete(ctx, nil, reviewID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrReviewNotFound
		}
		return fmt.Errorf("failed to delete review: %w", err)
	}

	if course, err := s.repo.Course().GetByID(ctx, nil, review.CourseID); err == nil {
		s.refreshTeacherRating(ctx, course.TeacherID)
	}

	return nil
}

// ListByCourse retrieves a course's reviews with author summaries joined
func (s *reviewService) ListByCourse(ctx context.Context, courseID uint) ([]*ReviewResponse, error) {
	if _, err := s.repo.Course().GetByID(ctx, nil, courseID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	reviews, err := s.repo.Review().ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	ids := make([]string, 0, len(reviews))
	seen := make(map[string]bool, len(reviews))
	for _, r := range reviews {
		if !seen[r.UserID] {
			seen[r.UserID] = true
			ids = append(ids, r.UserID)
		}
	}

	users, err := s.repo.User().GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to join review authors: %w", err)
	}
	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	result := make([]*ReviewResponse, len(reviews))
	for i, r := range reviews {
		resp := &ReviewResponse{CourseReview: r}
		if u, ok := byID[r.UserID]; ok {
			summary := u.Summary()
			resp.User = &summary
		}
		result[i] = resp
	}

	return result, nil
}

func (s *reviewService) getReview(ctx context.Context, id uint) (*models.CourseReview, error) {
	review, err := s.repo.Review().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return review, nil
}

func (s *reviewService) buildResponse(ctx context.Context, review *models.CourseReview) (*ReviewResponse, error) {
	resp := &ReviewResponse{CourseReview: review}
	if user, err := s.repo.User().GetByID(ctx, nil, review.UserID); err == nil {
		summary := user.Summary()
		resp.User = &summary
	}
	return resp, nil
}

// refreshTeacherRating is best effort: a stale aggregate self-heals on
// the next review write.
func (s *reviewService) refreshTeacherRating(ctx context.Context, teacherID string) {
	if s.teacherProfile == nil {
		return
	}
	if err := s.teacherProfile.RefreshRating(ctx, teacherID); err != nil {
		s.logger.WarnContext(ctx, "Failed to refresh teacher rating",
			"teacher_id", teacherID,
			"error", err)
	}
}
