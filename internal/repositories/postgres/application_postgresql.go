package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/repositories"
)

type ApplicationPostgreSQL struct {
	db *gorm.DB
}

func NewApplicationPostgreSQL(db *gorm.DB) repositories.ApplicationRepository {
	return &ApplicationPostgreSQL{db: db}
}

func (a *ApplicationPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

// Create inserts a course application. Re-applying to the same course
// surfaces as a duplicate-key error.
func (a *ApplicationPostgreSQL) Create(ctx context.Context, tx *gorm.DB, application *models.CourseApplication) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Create(application).Error; err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

// GetByID retrieves an application by ID
func (a *ApplicationPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.CourseApplication, error) {
	db := a.getDB(tx)
	var application models.CourseApplication
	if err := db.WithContext(ctx).First(&application, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get application %d: %w", id, err)
	}
	return &application, nil
}

// ListByCourse retrieves all applications for a course (teacher review queue)
func (a *ApplicationPostgreSQL) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.CourseApplication, error) {
	db := a.getDB(tx)
	var applications []*models.CourseApplication
	if err := db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&applications).Error; err != nil {
		return nil, fmt.Errorf("failed to list applications for course %d: %w", courseID, err)
	}
	return applications, nil
}

// ListByUser retrieves all applications submitted by a user
func (a *ApplicationPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.CourseApplication, error) {
	db := a.getDB(tx)
	var applications []*models.CourseApplication
	if err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&applications).Error; err != nil {
		return nil, fmt.Errorf("failed to list applications for user %s: %w", userID, err)
	}
	return applications, nil
}

// UpdateStatus moves an application through its review lifecycle
func (a *ApplicationPostgreSQL) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.ApplicationStatus) error {
	db := a.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.CourseApplication{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update application %d status: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("application %d not found: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}
