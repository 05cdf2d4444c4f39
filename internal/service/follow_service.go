package service

import (
	"context"
	"log/slog"

	"kinship/internal/middleware"
	"kinship/internal/models"
	"kinship/internal/notifications"
	"kinship/internal/observability"
	"kinship/internal/repository"
)

// EventPublisher delivers follow notifications.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev notifications.Event) error
}

type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	publisher  EventPublisher
}

type FollowInput struct {
	ActorID  uint
	TargetID uint
}

func NewFollowService(
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	publisher EventPublisher,
) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
		publisher:  publisher,
	}
}

// Follow records that ActorID follows TargetID. Self-follows are rejected
// before the store is touched; duplicates surface as conflicts.
func (s *FollowService) Follow(ctx context.Context, in FollowInput) (*models.Follow, error) {
	span, ctx := observability.NewSpan(ctx, "FollowService.Follow",
		observability.ActorID(in.ActorID),
		observability.TargetID(in.TargetID),
	)
	defer span.End()

	if in.ActorID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if in.ActorID == in.TargetID {
		return nil, models.NewValidationError("You cannot follow yourself")
	}

	target, err := s.userRepo.GetByID(ctx, in.TargetID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	exists, err := s.followRepo.Exists(ctx, in.ActorID, in.TargetID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if exists {
		return nil, models.NewConflictError("Already following this user")
	}

	follow := &models.Follow{
		FollowBelongsToUserID: in.ActorID,
		FollowerUserID:        target.ID,
	}
	if err := s.followRepo.Create(ctx, follow); err != nil {
		span.SetError(err)
		return nil, err
	}

	s.notify(ctx, in.ActorID, target.ID)
	return follow, nil
}

func (s *FollowService) notify(ctx context.Context, actorID, targetID uint) {
	if s.publisher == nil {
		return
	}
	ev := notifications.Event{
		Type:     notifications.EventFollowed,
		ActorID:  actorID,
		TargetID: targetID,
	}
	if actor, err := s.userRepo.GetByID(ctx, actorID); err == nil {
		ev.ActorName = actor.Username
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish follow notification",
			slog.Uint64("target_id", uint64(targetID)),
			slog.String("error", err.Error()))
	}
}

func (s *FollowService) IsFollowing(ctx context.Context, actorID, targetID uint) (bool, error) {
	if actorID == 0 || actorID == targetID {
		return false, nil
	}
	return s.followRepo.Exists(ctx, actorID, targetID)
}

func (s *FollowService) Counts(ctx context.Context, userID uint) (models.FollowCounts, error) {
	return s.followRepo.Counts(ctx, userID)
}
