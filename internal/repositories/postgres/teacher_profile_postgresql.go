package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/LearnSphere-2025/course-service/internal/cache"
	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/repositories"
)

type TeacherProfilePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewTeacherProfilePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.TeacherProfileRepository {
	return &TeacherProfilePostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (tp *TeacherProfilePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return tp.db
}

// Create inserts a profile record. Losing a provisioning race surfaces
// as a duplicate-key error on user_id rather than a second row.
func (tp *TeacherProfilePostgreSQL) Create(ctx context.Context, tx *gorm.DB, profile *models.TeacherProfile) error {
	db := tp.getDB(tx)
	if err := db.WithContext(ctx).Create(profile).Error; err != nil {
		return fmt.Errorf("failed to create teacher profile for user %s: %w", profile.UserID, err)
	}

	tp.invalidateProfileCaches(ctx, profile.UserID)

	return nil
}

// CreateBatch inserts the missing profiles discovered during directory
// backfill in one statement.
func (tp *TeacherProfilePostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, profiles []*models.TeacherProfile) error {
	if len(profiles) == 0 {
		return nil
	}

	db := tp.getDB(tx)
	if err := db.WithContext(ctx).Create(&profiles).Error; err != nil {
		return fmt.Errorf("failed to batch create teacher profiles: %w", err)
	}

	for _, profile := range profiles {
		tp.invalidateProfileCaches(ctx, profile.UserID)
	}

	return nil
}

// GetByUserID retrieves a profile by its owning account ID, cache-aside.
// A transactional lookup always bypasses the cache.
func (tp *TeacherProfilePostgreSQL) GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*models.TeacherProfile, error) {
	if tx == nil && tp.cacheManager != nil {
		var cached models.TeacherProfile
		if err := tp.cacheManager.Profile.Get(ctx, "user:"+userID, &cached); err == nil {
			return &cached, nil
		}
	}

	db := tp.getDB(tx)
	var profile models.TeacherProfile
	if err := db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to get teacher profile for user %s: %w", userID, err)
	}

	if tx == nil && tp.cacheManager != nil {
		_ = tp.cacheManager.Profile.Set(ctx, "user:"+userID, &profile, cache.ProfileCacheConfig.TTL)
	}

	return &profile, nil
}

// GetByUserIDs retrieves the profiles for a set of accounts in one query
func (tp *TeacherProfilePostgreSQL) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []string) ([]*models.TeacherProfile, error) {
	if len(userIDs) == 0 {
		return []*models.TeacherProfile{}, nil
	}

	db := tp.getDB(tx)
	var profiles []*models.TeacherProfile
	if err := db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to get teacher profiles: %w", err)
	}
	return profiles, nil
}

// Update saves the full profile record
func (tp *TeacherProfilePostgreSQL) Update(ctx context.Context, tx *gorm.DB, profile *models.TeacherProfile) error {
	db := tp.getDB(tx)
	if err := db.WithContext(ctx).Save(profile).Error; err != nil {
		return fmt.Errorf("failed to update teacher profile for user %s: %w", profile.UserID, err)
	}

	tp.invalidateProfileCaches(ctx, profile.UserID)

	return nil
}

// UpdateRating updates only the denormalized review aggregate columns
func (tp *TeacherProfilePostgreSQL) UpdateRating(ctx context.Context, tx *gorm.DB, userID string, rating float64, count int) error {
	db := tp.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.TeacherProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"rating":       rating,
			"rating_count": count,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update rating for user %s: %w", userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("teacher profile for user %s not found: %w", userID, gorm.ErrRecordNotFound)
	}

	tp.invalidateProfileCaches(ctx, userID)

	return nil
}

// DeleteByUserID removes the profile companion of an account
func (tp *TeacherProfilePostgreSQL) DeleteByUserID(ctx context.Context, tx *gorm.DB, userID string) error {
	db := tp.getDB(tx)
	result := db.WithContext(ctx).Delete(&models.TeacherProfile{}, "user_id = ?", userID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete teacher profile for user %s: %w", userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("teacher profile for user %s not found: %w", userID, gorm.ErrRecordNotFound)
	}

	tp.invalidateProfileCaches(ctx, userID)

	return nil
}

func (tp *TeacherProfilePostgreSQL) invalidateProfileCaches(ctx context.Context, userID string) {
	if tp.cacheManager == nil {
		return
	}
	_ = tp.cacheManager.InvalidateProfile(ctx, userID)
}
