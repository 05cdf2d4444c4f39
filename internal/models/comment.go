package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxCommentLength is the maximum number of characters in a comment.
const MaxCommentLength = 255

// Comment represents a comment left by a user on a post.
type Comment struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Content   string         `gorm:"type:varchar(255);not null" json:"content"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	PostID    uint           `gorm:"not null;index" json:"post_id"`
	User      *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Post      *Post          `gorm:"foreignKey:PostID" json:"post,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
