package repository

import (
	"context"

	"kinship/internal/models"

	"gorm.io/gorm"
)

// FollowRepository defines persistence operations for follow edges.
type FollowRepository interface {
	Create(ctx context.Context, follow *models.Follow) error
	Exists(ctx context.Context, actorID, targetID uint) (bool, error)
	FollowingIDs(ctx context.Context, actorID uint) ([]uint, error)
	Counts(ctx context.Context, userID uint) (models.FollowCounts, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

// Create inserts the edge. The composite unique index and the self-reference
// check are the final word on duplicates and self-follows.
func (r *followRepository) Create(ctx context.Context, follow *models.Follow) error {
	if err := r.db.WithContext(ctx).Create(follow).Error; err != nil {
		switch {
		case isUniqueConstraintError(err):
			return models.NewConflictError("Already following this user")
		case isCheckConstraintError(err):
			return models.NewValidationError("You cannot follow yourself")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *followRepository) Exists(ctx context.Context, actorID, targetID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follow_belongs_to_user_id = ? AND follower_user_id = ?", actorID, targetID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// FollowingIDs lists the users actorID follows.
func (r *followRepository) FollowingIDs(ctx context.Context, actorID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follow_belongs_to_user_id = ?", actorID).
		Pluck("follower_user_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *followRepository) Counts(ctx context.Context, userID uint) (models.FollowCounts, error) {
	var counts models.FollowCounts
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.Follow{}).Where("follower_user_id = ?", userID).Count(&counts.Followers).Error; err != nil {
		return counts, models.NewInternalError(err)
	}
	if err := db.Model(&models.Follow{}).Where("follow_belongs_to_user_id = ?", userID).Count(&counts.Following).Error; err != nil {
		return counts, models.NewInternalError(err)
	}
	return counts, nil
}
