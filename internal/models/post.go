package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is authored content owned by exactly one user.
type Post struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Header    string         `gorm:"type:varchar(255);not null" json:"header"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	User      *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Comments  []Comment      `gorm:"foreignKey:PostID" json:"comments,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
