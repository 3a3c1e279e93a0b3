package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/LearnSphere-2025/course-service/internal/cache"
	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/repositories"
)

type LessonPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewLessonPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.LessonRepository {
	return &LessonPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (l *LessonPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return l.db
}

// Create inserts a new lesson; position defaults to the end of the course
func (l *LessonPostgreSQL) Create(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error {
	db := l.getDB(tx)

	if lesson.Position == 0 {
		var maxPosition int
		err := db.WithContext(ctx).
			Model(&models.Lesson{}).
			Where("course_id = ?", lesson.CourseID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPosition).Error
		if err != nil {
			return fmt.Errorf("failed to get next lesson position: %w", err)
		}
		lesson.Position = maxPosition + 1
	}

	if err := db.WithContext(ctx).Create(lesson).Error; err != nil {
		return fmt.Errorf("failed to create lesson: %w", err)
	}

	l.invalidateLessonCaches(ctx, lesson.CourseID)

	return nil
}

// GetByID retrieves a lesson by ID
func (l *LessonPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Lesson, error) {
	db := l.getDB(tx)
	var lesson models.Lesson
	if err := db.WithContext(ctx).First(&lesson, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get lesson %d: %w", id, err)
	}
	return &lesson, nil
}

// ListByCourse retrieves a course's lessons in position order
func (l *LessonPostgreSQL) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.Lesson, error) {
	db := l.getDB(tx)
	var lessons []*models.Lesson
	if err := db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("position ASC, id ASC").
		Find(&lessons).Error; err != nil {
		return nil, fmt.Errorf("failed to list lessons for course %d: %w", courseID, err)
	}
	return lessons, nil
}

// Update saves the full lesson record
func (l *LessonPostgreSQL) Update(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error {
	db := l.getDB(tx)
	if err := db.WithContext(ctx).Save(lesson).Error; err != nil {
		return fmt.Errorf("failed to update lesson %d: %w", lesson.ID, err)
	}

	l.invalidateLessonCaches(ctx, lesson.CourseID)

	return nil
}

// Delete removes a lesson
func (l *LessonPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := l.getDB(tx)

	// Need the course ID for cache invalidation before the row goes away
	var lesson models.Lesson
	if err := db.WithContext(ctx).Select("course_id").First(&lesson, id).Error; err != nil {
		return fmt.Errorf("failed to get lesson %d before delete: %w", id, err)
	}

	if err := db.WithContext(ctx).Delete(&models.Lesson{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete lesson %d: %w", id, err)
	}

	l.invalidateLessonCaches(ctx, lesson.CourseID)

	return nil
}

func (l *LessonPostgreSQL) invalidateLessonCaches(ctx context.Context, courseID uint) {
	if l.cacheManager == nil {
		return
	}
	_ = l.cacheManager.InvalidateCourse(ctx, courseID)
}
