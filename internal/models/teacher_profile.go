package models

import (
	"time"

	"gorm.io/datatypes"
)

// SocialLinks is stored as a single JSON column; each sub-field merges
// independently on update.
type SocialLinks struct {
	LinkedIn *string `json:"linkedin,omitempty"`
	GitHub   *string `json:"github,omitempty"`
	Twitter  *string `json:"twitter,omitempty"`
	Website  *string `json:"website,omitempty"`
}

// TeacherProfile is the 1:1 companion record of a teacher account.
// The unique index on UserID is the backstop against racing provisioning:
// two concurrent creates yield one row and one duplicate-key error.
type TeacherProfile struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"uniqueIndex;not null;size:255"`

	DisplayName  string `json:"display_name" gorm:"not null;size:100"`
	ContactEmail string `json:"contact_email" gorm:"not null;size:255"`

	Bio            *string `json:"bio" gorm:"type:text"`
	Specialization *string `json:"specialization" gorm:"size:200"`
	Education      *string `json:"education" gorm:"size:500"`

	// Canonical representation is a freeform string ("5 years", "10+").
	// Numeric payloads are converted at the handler boundary.
	Experience string `json:"experience" gorm:"size:100"`

	AvatarURL *string `json:"avatar_url" gorm:"size:500"`

	Certifications datatypes.JSONSlice[string]     `json:"certifications"`
	Expertise      datatypes.JSONSlice[string]     `json:"expertise"`
	SocialLinks    datatypes.JSONType[SocialLinks] `json:"social_links"`

	Rating      float64 `json:"rating" gorm:"default:0"`
	RatingCount int     `json:"rating_count" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

func (TeacherProfile) TableName() string {
	return "teacher_profiles"
}
