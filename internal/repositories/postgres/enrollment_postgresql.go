package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/LearnSphere-2025/course-service/internal/cache"
	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/repositories"
)

type EnrollmentPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewEnrollmentPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (e *EnrollmentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return e.db
}

// Create inserts an enrollment. A second enrollment for the same
// (user, course) pair surfaces as a duplicate-key error.
func (e *EnrollmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error {
	db := e.getDB(tx)
	if err := db.WithContext(ctx).Create(enrollment).Error; err != nil {
		return fmt.Errorf("failed to create enrollment: %w", err)
	}

	e.invalidateEnrollmentCaches(ctx, enrollment.CourseID)

	return nil
}

// Get retrieves the enrollment for one (user, course) pair
func (e *EnrollmentPostgreSQL) Get(ctx context.Context, tx *gorm.DB, userID string, courseID uint) (*models.Enrollment, error) {
	db := e.getDB(tx)
	var enrollment models.Enrollment
	if err := db.WithContext(ctx).
		First(&enrollment, "user_id = ? AND course_id = ?", userID, courseID).Error; err != nil {
		return nil, fmt.Errorf("failed to get enrollment for user %s course %d: %w", userID, courseID, err)
	}
	return &enrollment, nil
}

// ListByUser retrieves a student's enrollments with the course preloaded
func (e *EnrollmentPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Enrollment, error) {
	db := e.getDB(tx)
	var enrollments []*models.Enrollment
	if err := db.WithContext(ctx).
		Preload("Course").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to list enrollments for user %s: %w", userID, err)
	}
	return enrollments, nil
}

// ListByCourse retrieves all enrollments of a course (roster view)
func (e *EnrollmentPostgreSQL) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.Enrollment, error) {
	db := e.getDB(tx)
	var enrollments []*models.Enrollment
	if err := db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to list enrollments for course %d: %w", courseID, err)
	}
	return enrollments, nil
}

// CountByCourse counts a course's enrollments
func (e *EnrollmentPostgreSQL) CountByCourse(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error) {
	db := e.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("course_id = ?", courseID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count enrollments for course %d: %w", courseID, err)
	}
	return count, nil
}

// CountByCourses counts enrollments for multiple courses in one query
func (e *EnrollmentPostgreSQL) CountByCourses(ctx context.Context, tx *gorm.DB, courseIDs []uint) (map[uint]int64, error) {
	result := make(map[uint]int64, len(courseIDs))
	if len(courseIDs) == 0 {
		return result, nil
	}

	db := e.getDB(tx)
	var rows []struct {
		CourseID uint
		Count    int64
	}
	err := db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Select("course_id, COUNT(*) as count").
		Where("course_id IN ?", courseIDs).
		Group("course_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count enrollments by course: %w", err)
	}

	for _, row := range rows {
		result[row.CourseID] = row.Count
	}
	return result, nil
}

// Delete removes an enrollment (unenroll)
func (e *EnrollmentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, userID string, courseID uint) error {
	db := e.getDB(tx)
	result := db.WithContext(ctx).
		Delete(&models.Enrollment{}, "user_id = ? AND course_id = ?", userID, courseID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete enrollment for user %s course %d: %w", userID, courseID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("enrollment for user %s course %d not found: %w", userID, courseID, gorm.ErrRecordNotFound)
	}

	e.invalidateEnrollmentCaches(ctx, courseID)

	return nil
}

func (e *EnrollmentPostgreSQL) invalidateEnrollmentCaches(ctx context.Context, courseID uint) {
	if e.cacheManager == nil {
		return
	}
	_ = e.cacheManager.Stats.InvalidatePattern(ctx, fmt.Sprintf("course:%d*", courseID))
}
