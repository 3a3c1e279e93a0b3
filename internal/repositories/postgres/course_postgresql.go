package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/LearnSphere-2025/course-service/internal/cache"
	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/repositories"
)

type CoursePostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewCoursePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.CourseRepository {
	return &CoursePostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
	}
}

func (c *CoursePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return c.db
}

// Create inserts a new course
func (c *CoursePostgreSQL) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	db := c.getDB(tx)
	if err := db.WithContext(ctx).Create(course).Error; err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}

	c.invalidateCourseCaches(ctx, course.ID)

	return nil
}

// GetByID retrieves a course by ID, cache-aside outside transactions
func (c *CoursePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	if tx == nil && c.cacheManager != nil {
		var cached models.Course
		if err := c.cacheManager.Course.Get(ctx, fmt.Sprintf("id:%d", id), &cached); err == nil {
			return &cached, nil
		}
	}

	db := c.getDB(tx)
	var course models.Course
	if err := db.WithContext(ctx).First(&course, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get course %d: %w", id, err)
	}

	if tx == nil && c.cacheManager != nil {
		_ = c.cacheManager.Course.Set(ctx, fmt.Sprintf("id:%d", id), &course, cache.CourseCacheConfig.TTL)
	}

	return &course, nil
}

// GetByIDWithLessons retrieves a course with its lessons ordered by position
func (c *CoursePostgreSQL) GetByIDWithLessons(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	db := c.getDB(tx)
	var course models.Course
	if err := db.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		First(&course, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get course %d with lessons: %w", id, err)
	}
	return &course, nil
}

// List retrieves the catalog page matching filters with a total count
func (c *CoursePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	db := c.getDB(tx)

	query := db.WithContext(ctx).Model(&models.Course{})
	query = c.helpers.ApplyCourseFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	query = c.helpers.ApplyPaginationAndSort(query, "created_at", "desc", filters.Limit, filters.Offset)

	var courses []*models.Course
	if err := query.Find(&courses).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list courses: %w", err)
	}

	return courses, total, nil
}

// ListByTeacher retrieves all courses owned by a teacher
func (c *CoursePostgreSQL) ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID string) ([]*models.Course, error) {
	db := c.getDB(tx)
	var courses []*models.Course
	if err := db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to list courses for teacher %s: %w", teacherID, err)
	}
	return courses, nil
}

// Update saves the full course record
func (c *CoursePostgreSQL) Update(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	db := c.getDB(tx)
	if err := db.WithContext(ctx).Save(course).Error; err != nil {
		return fmt.Errorf("failed to update course %d: %w", course.ID, err)
	}

	c.invalidateCourseCaches(ctx, course.ID)

	return nil
}

// Delete soft-deletes a course
func (c *CoursePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := c.getDB(tx)
	result := db.WithContext(ctx).Delete(&models.Course{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete course %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("course %d not found: %w", id, gorm.ErrRecordNotFound)
	}

	c.invalidateCourseCaches(ctx, id)

	return nil
}

// CountByTeacher counts courses owned by a teacher
func (c *CoursePostgreSQL) CountByTeacher(ctx context.Context, tx *gorm.DB, teacherID string) (int64, error) {
	db := c.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Course{}).
		Where("teacher_id = ?", teacherID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count courses for teacher %s: %w", teacherID, err)
	}
	return count, nil
}

func (c *CoursePostgreSQL) invalidateCourseCaches(ctx context.Context, id uint) {
	if c.cacheManager == nil {
		return
	}
	_ = c.cacheManager.InvalidateCourse(ctx, id)
}
