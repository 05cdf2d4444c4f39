package service

import (
	"context"
	"testing"

	"kinship/internal/models"
	"kinship/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type userRepoStub struct {
	getByIDFn          func(context.Context, uint) (*models.User, error)
	getByIDFreshFn     func(context.Context, uint) (*models.User, error)
	getByUsernameFn    func(context.Context, string) (*models.User, error)
	existsByUsernameFn func(context.Context, string) (bool, error)
	createFn           func(context.Context, *models.User) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.existsByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) GetByIDFresh(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFreshFn(ctx, id)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "user"}, nil
		},
		getByIDFreshFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "user"}, nil
		},
		getByUsernameFn:    func(context.Context, string) (*models.User, error) { return nil, nil },
		existsByUsernameFn: func(context.Context, string) (bool, error) { return false, nil },
		createFn: func(_ context.Context, u *models.User) error {
			u.ID = 1
			return nil
		},
	}
}

type postRepoStub struct {
	createFn        func(context.Context, *models.Post) error
	getByIDFn       func(context.Context, uint) (*models.Post, error)
	listFn          func(context.Context, int) ([]*models.Post, error)
	listByAuthorsFn func(context.Context, []uint, int) ([]*models.Post, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, limit int) ([]*models.Post, error) {
	return s.listFn(ctx, limit)
}
func (s *postRepoStub) ListByAuthors(ctx context.Context, ids []uint, limit int) ([]*models.Post, error) {
	return s.listByAuthorsFn(ctx, ids, limit)
}
func (s *postRepoStub) ListByUser(ctx context.Context, userID uint, limit int) ([]*models.Post, error) {
	return s.listByAuthorsFn(ctx, []uint{userID}, limit)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(context.Context, *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id}, nil
		},
		listFn:          func(context.Context, int) ([]*models.Post, error) { return nil, nil },
		listByAuthorsFn: func(context.Context, []uint, int) ([]*models.Post, error) { return nil, nil },
	}
}

type commentRepoStub struct {
	createFn func(context.Context, *models.Comment) error
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) ListByPost(context.Context, uint) ([]*models.Comment, error) {
	return nil, nil
}

type followRepoStub struct {
	createFn       func(context.Context, *models.Follow) error
	existsFn       func(context.Context, uint, uint) (bool, error)
	followingIDsFn func(context.Context, uint) ([]uint, error)
	created        []*models.Follow
}

func (s *followRepoStub) Create(ctx context.Context, f *models.Follow) error {
	if s.createFn != nil {
		if err := s.createFn(ctx, f); err != nil {
			return err
		}
	}
	s.created = append(s.created, f)
	return nil
}
func (s *followRepoStub) Exists(ctx context.Context, a, b uint) (bool, error) {
	if s.existsFn == nil {
		return false, nil
	}
	return s.existsFn(ctx, a, b)
}
func (s *followRepoStub) FollowingIDs(ctx context.Context, id uint) ([]uint, error) {
	if s.followingIDsFn == nil {
		return nil, nil
	}
	return s.followingIDsFn(ctx, id)
}
func (s *followRepoStub) Counts(context.Context, uint) (models.FollowCounts, error) {
	return models.FollowCounts{Followers: 1, Following: 2}, nil
}

// MockPublisher is a mock of the EventPublisher interface
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEvent(ctx context.Context, ev notifications.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	appErr, ok := models.AsAppError(err)
	if assert.True(t, ok, "expected AppError, got %v", err) {
		assert.Equal(t, code, appErr.Code)
	}
}
