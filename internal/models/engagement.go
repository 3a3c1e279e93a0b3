package models

import "time"

// Every record in this file is keyed by a (user, course) pair with a
// composite unique index. Concurrent duplicate inserts resolve to one
// row plus one duplicate-key error at the storage layer.

type Enrollment struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	UserID   string `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_enrollment_user_course"`
	CourseID uint   `json:"course_id" gorm:"not null;uniqueIndex:idx_enrollment_user_course"`

	CreatedAt time.Time `json:"created_at"`

	Course *Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
}

type Favorite struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	UserID   string `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_favorite_user_course"`
	CourseID uint   `json:"course_id" gorm:"not null;uniqueIndex:idx_favorite_user_course"`

	CreatedAt time.Time `json:"created_at"`

	Course *Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
}

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

type CourseApplication struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	UserID   string `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_application_user_course"`
	CourseID uint   `json:"course_id" gorm:"not null;uniqueIndex:idx_application_user_course"`

	Message *string           `json:"message" gorm:"type:text" validate:"omitempty,max=2000"`
	Status  ApplicationStatus `json:"status" gorm:"size:20;default:pending" validate:"omitempty,oneof=pending approved rejected"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CourseReview struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	UserID   string `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_review_user_course"`
	CourseID uint   `json:"course_id" gorm:"not null;uniqueIndex:idx_review_user_course"`

	Rating  int     `json:"rating" gorm:"not null" validate:"required,min=1,max=5"`
	Comment *string `json:"comment" gorm:"type:text" validate:"omitempty,max=2000"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `json:"-" gorm:"foreignKey:UserID"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

func (Favorite) TableName() string {
	return "favorites"
}

func (CourseApplication) TableName() string {
	return "course_applications"
}

func (CourseReview) TableName() string {
	return "course_reviews"
}
