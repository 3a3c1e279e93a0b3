package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/LearnSphere-2025/course-service/internal/cache"
	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/repositories"
)

type ReviewPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewReviewPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ReviewRepository {
	return &ReviewPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (r *ReviewPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create inserts a review. A second review for the same (user, course)
// pair surfaces as a duplicate-key error.
func (r *ReviewPostgreSQL) Create(ctx context.Context, tx *gorm.DB, review *models.CourseReview) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(review).Error; err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}

	r.invalidateReviewCaches(ctx, review.CourseID)

	return nil
}

// GetByID retrieves a review by ID
func (r *ReviewPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.CourseReview, error) {
	db := r.getDB(tx)
	var review models.CourseReview
	if err := db.WithContext(ctx).First(&review, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get review %d: %w", id, err)
	}
	return &review, nil
}

// ListByCourse retrieves all reviews of a course, newest first
func (r *ReviewPostgreSQL) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.CourseReview, error) {
	db := r.getDB(tx)
	var reviews []*models.CourseReview
	if err := db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to list reviews for course %d: %w", courseID, err)
	}
	return reviews, nil
}

// Update saves the full review record
func (r *ReviewPostgreSQL) Update(ctx context.Context, tx *gorm.DB, review *models.CourseReview) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Save(review).Error; err != nil {
		return fmt.Errorf("failed to update review %d: %w", review.ID, err)
	}

	r.invalidateReviewCaches(ctx, review.CourseID)

	return nil
}

// Delete removes a review
func (r *ReviewPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := r.getDB(tx)

	var review models.CourseReview
	if err := db.WithContext(ctx).Select("course_id").First(&review, id).Error; err != nil {
		return fmt.Errorf("failed to get review %d before delete: %w", id, err)
	}

	if err := db.WithContext(ctx).Delete(&models.CourseReview{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete review %d: %w", id, err)
	}

	r.invalidateReviewCaches(ctx, review.CourseID)

	return nil
}

// AggregateByCourse computes the average rating and review count of a course
func (r *ReviewPostgreSQL) AggregateByCourse(ctx context.Context, tx *gorm.DB, courseID uint) (*repositories.RatingAggregate, error) {
	db := r.getDB(tx)
	var row struct {
		Average float64
		Count   int
	}
	err := db.WithContext(ctx).
		Model(&models.CourseReview{}).
		Select("COALESCE(AVG(rating), 0) as average, COUNT(*) as count").
		Where("course_id = ?", courseID).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate reviews for course %d: %w", courseID, err)
	}
	return &repositories.RatingAggregate{Average: row.Average, Count: row.Count}, nil
}

// AggregateByCourses computes rating aggregates for multiple courses in one query
func (r *ReviewPostgreSQL) AggregateByCourses(ctx context.Context, tx *gorm.DB, courseIDs []uint) (map[uint]*repositories.RatingAggregate, error) {
	result := make(map[uint]*repositories.RatingAggregate, len(courseIDs))
	if len(courseIDs) == 0 {
		return result, nil
	}

	db := r.getDB(tx)
	var rows []struct {
		CourseID uint
		Average  float64
		Count    int
	}
	err := db.WithContext(ctx).
		Model(&models.CourseReview{}).
		Select("course_id, COALESCE(AVG(rating), 0) as average, COUNT(*) as count").
		Where("course_id IN ?", courseIDs).
		Group("course_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate reviews by course: %w", err)
	}

	for _, row := range rows {
		result[row.CourseID] = &repositories.RatingAggregate{Average: row.Average, Count: row.Count}
	}
	return result, nil
}

// AggregateByTeacher computes the rating aggregate across all of a
// teacher's courses, feeding the denormalized profile columns.
func (r *ReviewPostgreSQL) AggregateByTeacher(ctx context.Context, tx *gorm.DB, teacherID string) (*repositories.RatingAggregate, error) {
	db := r.getDB(tx)
	var row struct {
		Average float64
		Count   int
	}
	err := db.WithContext(ctx).
		Model(&models.CourseReview{}).
		Select("COALESCE(AVG(course_reviews.rating), 0) as average, COUNT(*) as count").
		Joins("JOIN courses ON courses.id = course_reviews.course_id").
		Where("courses.teacher_id = ?", teacherID).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate reviews for teacher %s: %w", teacherID, err)
	}
	return &repositories.RatingAggregate{Average: row.Average, Count: row.Count}, nil
}

func (r *ReviewPostgreSQL) invalidateReviewCaches(ctx context.Context, courseID uint) {
	if r.cacheManager == nil {
		return
	}
	_ = r.cacheManager.InvalidateCourse(ctx, courseID)
}
