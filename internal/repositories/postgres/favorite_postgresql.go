package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/repositories"
)

type FavoritePostgreSQL struct {
	db *gorm.DB
}

func NewFavoritePostgreSQL(db *gorm.DB) repositories.FavoriteRepository {
	return &FavoritePostgreSQL{db: db}
}

func (f *FavoritePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return f.db
}

// Create inserts a favorite. Favoriting the same course twice surfaces
// as a duplicate-key error.
func (f *FavoritePostgreSQL) Create(ctx context.Context, tx *gorm.DB, favorite *models.Favorite) error {
	db := f.getDB(tx)
	if err := db.WithContext(ctx).Create(favorite).Error; err != nil {
		return fmt.Errorf("failed to create favorite: %w", err)
	}
	return nil
}

// ListByUser retrieves a user's favorites with the course preloaded
func (f *FavoritePostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Favorite, error) {
	db := f.getDB(tx)
	var favorites []*models.Favorite
	if err := db.WithContext(ctx).
		Preload("Course").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&favorites).Error; err != nil {
		return nil, fmt.Errorf("failed to list favorites for user %s: %w", userID, err)
	}
	return favorites, nil
}

// Delete removes a favorite
func (f *FavoritePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, userID string, courseID uint) error {
	db := f.getDB(tx)
	result := db.WithContext(ctx).
		Delete(&models.Favorite{}, "user_id = ? AND course_id = ?", userID, courseID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete favorite for user %s course %d: %w", userID, courseID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("favorite for user %s course %d not found: %w", userID, courseID, gorm.ErrRecordNotFound)
	}
	return nil
}
