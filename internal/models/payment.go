package models

import "time"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSettled PaymentStatus = "settled"
	PaymentFailed  PaymentStatus = "failed"
)

type Payment struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	UserID   string `json:"user_id" gorm:"not null;index;size:255"`
	CourseID uint   `json:"course_id" gorm:"not null;index"`

	// Provider-facing order reference; the unique key for webhook correlation.
	OrderID string `json:"order_id" gorm:"uniqueIndex;not null;size:64"`

	Amount   float64       `json:"amount" gorm:"not null"`
	Status   PaymentStatus `json:"status" gorm:"size:20;default:pending;index"`
	Provider string        `json:"provider" gorm:"size:50;default:midtrans"`

	SnapToken   *string `json:"snap_token,omitempty" gorm:"size:255"`
	RedirectURL *string `json:"redirect_url,omitempty" gorm:"size:500"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}
