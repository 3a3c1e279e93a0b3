package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/repositories"
)

type HomeworkPostgreSQL struct {
	db *gorm.DB
}

func NewHomeworkPostgreSQL(db *gorm.DB) repositories.HomeworkRepository {
	return &HomeworkPostgreSQL{db: db}
}

func (h *HomeworkPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return h.db
}

// Create inserts a homework submission
func (h *HomeworkPostgreSQL) Create(ctx context.Context, tx *gorm.DB, homework *models.Homework) error {
	db := h.getDB(tx)
	if err := db.WithContext(ctx).Create(homework).Error; err != nil {
		return fmt.Errorf("failed to create homework: %w", err)
	}
	return nil
}

// GetByID retrieves a homework submission by ID
func (h *HomeworkPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Homework, error) {
	db := h.getDB(tx)
	var homework models.Homework
	if err := db.WithContext(ctx).First(&homework, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get homework %d: %w", id, err)
	}
	return &homework, nil
}

// ListByLesson retrieves all submissions for a lesson (grading view)
func (h *HomeworkPostgreSQL) ListByLesson(ctx context.Context, tx *gorm.DB, lessonID uint) ([]*models.Homework, error) {
	db := h.getDB(tx)
	var homeworks []*models.Homework
	if err := db.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("created_at ASC").
		Find(&homeworks).Error; err != nil {
		return nil, fmt.Errorf("failed to list homeworks for lesson %d: %w", lessonID, err)
	}
	return homeworks, nil
}

// ListByStudent retrieves all submissions by a student
func (h *HomeworkPostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.Homework, error) {
	db := h.getDB(tx)
	var homeworks []*models.Homework
	if err := db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&homeworks).Error; err != nil {
		return nil, fmt.Errorf("failed to list homeworks for student %s: %w", studentID, err)
	}
	return homeworks, nil
}

// Update saves the full homework record (grading writes Grade and Feedback)
func (h *HomeworkPostgreSQL) Update(ctx context.Context, tx *gorm.DB, homework *models.Homework) error {
	db := h.getDB(tx)
	if err := db.WithContext(ctx).Save(homework).Error; err != nil {
		return fmt.Errorf("failed to update homework %d: %w", homework.ID, err)
	}
	return nil
}
