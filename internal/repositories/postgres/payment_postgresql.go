package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/repositories"
)

type PaymentPostgreSQL struct {
	db *gorm.DB
}

func NewPaymentPostgreSQL(db *gorm.DB) repositories.PaymentRepository {
	return &PaymentPostgreSQL{db: db}
}

func (p *PaymentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return p.db
}

// Create inserts a payment record
func (p *PaymentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	db := p.getDB(tx)
	if err := db.WithContext(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByID retrieves a payment by ID
func (p *PaymentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Payment, error) {
	db := p.getDB(tx)
	var payment models.Payment
	if err := db.WithContext(ctx).First(&payment, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get payment %d: %w", id, err)
	}
	return &payment, nil
}

// GetByOrderID retrieves a payment by its provider order reference
// (webhook correlation path)
func (p *PaymentPostgreSQL) GetByOrderID(ctx context.Context, tx *gorm.DB, orderID string) (*models.Payment, error) {
	db := p.getDB(tx)
	var payment models.Payment
	if err := db.WithContext(ctx).First(&payment, "order_id = ?", orderID).Error; err != nil {
		return nil, fmt.Errorf("failed to get payment for order %s: %w", orderID, err)
	}
	return &payment, nil
}

// ListByUser retrieves a user's payment history, newest first
func (p *PaymentPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Payment, error) {
	db := p.getDB(tx)
	var payments []*models.Payment
	if err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments for user %s: %w", userID, err)
	}
	return payments, nil
}

// ListByStatus retrieves payments in the given lifecycle state
func (p *PaymentPostgreSQL) ListByStatus(ctx context.Context, tx *gorm.DB, status models.PaymentStatus) ([]*models.Payment, error) {
	db := p.getDB(tx)
	var payments []*models.Payment
	if err := db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments with status %s: %w", status, err)
	}
	return payments, nil
}

// Update saves the full payment record
func (p *PaymentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	db := p.getDB(tx)
	if err := db.WithContext(ctx).Save(payment).Error; err != nil {
		return fmt.Errorf("failed to update payment %d: %w", payment.ID, err)
	}
	return nil
}
