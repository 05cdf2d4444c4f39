package service

import (
	"context"

	"kinship/internal/featureflags"
	"kinship/internal/models"
	"kinship/internal/observability"
	"kinship/internal/repository"
)

// FeedLimit caps the number of posts rendered on the feed and profiles.
const FeedLimit = 200

// PostService creates posts and assembles the feed.
type PostService struct {
	postRepo   repository.PostRepository
	followRepo repository.FollowRepository
	flags      *featureflags.Manager
}

type CreatePostInput struct {
	UserID  uint
	Header  string
	Content string
}

func NewPostService(
	postRepo repository.PostRepository,
	followRepo repository.FollowRepository,
	flags *featureflags.Manager,
) *PostService {
	return &PostService{
		postRepo:   postRepo,
		followRepo: followRepo,
		flags:      flags,
	}
}

// CreatePost stores a post owned by in.UserID, which must come from the session.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.UserID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	span, ctx := observability.NewSpan(ctx, "PostService.CreatePost", observability.UserID(in.UserID))
	defer span.End()

	post := &models.Post{
		Header:  in.Header,
		Content: in.Content,
		UserID:  in.UserID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		span.SetError(err)
		return nil, err
	}
	span.SetAttributes(observability.PostID(post.ID))
	return post, nil
}

// Feed returns posts newest first. With feed_following_only on for the viewer
// it is limited to the viewer's own posts and those of users they follow.
func (s *PostService) Feed(ctx context.Context, viewerID uint) ([]*models.Post, error) {
	followingOnly := s.flags.Enabled(featureflags.FeedFollowingOnly, viewerID)
	span, ctx := observability.NewSpan(ctx, "PostService.Feed",
		observability.UserID(viewerID),
		observability.FeedScope(followingOnly),
	)
	defer span.End()

	if !followingOnly {
		posts, err := s.postRepo.List(ctx, FeedLimit)
		span.SetError(err)
		span.SetAttributes(observability.FeedSize(len(posts)))
		return posts, err
	}

	ids, err := s.followRepo.FollowingIDs(ctx, viewerID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	posts, err := s.postRepo.ListByAuthors(ctx, append(ids, viewerID), FeedLimit)
	span.SetError(err)
	span.SetAttributes(observability.FeedSize(len(posts)))
	return posts, err
}

func (s *PostService) ListByUser(ctx context.Context, userID uint) ([]*models.Post, error) {
	return s.postRepo.ListByUser(ctx, userID, FeedLimit)
}
