package models

import "time"

// Follow is a directed edge between two users.
//
// FollowBelongsToUserID is the acting user (the one who follows) and
// FollowerUserID is the user being followed. The pair is unique and may not
// reference the same user twice.
type Follow struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	FollowBelongsToUserID uint      `gorm:"not null;uniqueIndex:idx_follow_pair;index" json:"follow_belongs_to_user_id"`
	FollowerUserID        uint      `gorm:"not null;uniqueIndex:idx_follow_pair;index;check:chk_follows_not_self,follow_belongs_to_user_id <> follower_user_id" json:"follower_user_id"`
	FollowBelongsTo       *User     `gorm:"foreignKey:FollowBelongsToUserID" json:"-"`
	Follower              *User     `gorm:"foreignKey:FollowerUserID" json:"-"`
	CreatedAt             time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}

// FollowCounts summarises both directions of a user's follow edges.
type FollowCounts struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}
