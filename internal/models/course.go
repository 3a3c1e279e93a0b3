package models

import (
	"time"

	"gorm.io/gorm"
)

type Course struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Title       string  `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	Category    string  `json:"category" gorm:"size:100;index" validate:"omitempty,max=100"`
	Price       float64 `json:"price" gorm:"not null;default:0" validate:"min=0"`
	Published   bool    `json:"published" gorm:"default:false;index"`

	TeacherID string `json:"teacher_id" gorm:"not null;index;size:255"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Lessons []Lesson `json:"lessons,omitempty" gorm:"foreignKey:CourseID"`
	Teacher User     `json:"-" gorm:"foreignKey:TeacherID"`

	// Computed fields (not stored)
	EnrollmentCount int     `json:"enrollment_count" gorm:"-"`
	AvgRating       float64 `json:"avg_rating" gorm:"-"`
}

type Lesson struct {
	ID       uint    `json:"id" gorm:"primaryKey"`
	CourseID uint    `json:"course_id" gorm:"not null;index"`
	Title    string  `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	Content  *string `json:"content" gorm:"type:text"`
	Position int     `json:"position" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Homeworks []Homework `json:"homeworks,omitempty" gorm:"foreignKey:LessonID"`
}

type Homework struct {
	ID         uint    `json:"id" gorm:"primaryKey"`
	LessonID   uint    `json:"lesson_id" gorm:"not null;index"`
	StudentID  string  `json:"student_id" gorm:"not null;index;size:255"`
	Submission string  `json:"submission" gorm:"type:text;not null" validate:"required"`
	Grade      *int    `json:"grade" validate:"omitempty,min=0,max=100"`
	Feedback   *string `json:"feedback" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Course) TableName() string {
	return "courses"
}

func (Lesson) TableName() string {
	return "lessons"
}

func (Homework) TableName() string {
	return "homeworks"
}
