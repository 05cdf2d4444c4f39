// Package seed creates demo data for development databases. These helpers are
// intended for local development and tests only.
package seed

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kinship/internal/middleware"
	"kinship/internal/models"
	"kinship/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password every seeded account gets. It satisfies the
// sign-up complexity rule so seeded users can log in through the normal form.
const DefaultPassword = "Password1!"

// Options tune the factory.
type Options struct {
	// Seed makes generated content reproducible; 0 picks a time-based seed.
	Seed int64
	// BcryptCost is used for the shared password hash.
	BcryptCost int
	// MaxDays spreads post timestamps over this many days in the past.
	MaxDays int
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
	hash  string
}

// NewFactory creates a Factory bound to db. The password hash is computed once
// and shared by every generated user.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.BcryptCost < bcrypt.MinCost || opts.BcryptCost > bcrypt.MaxCost {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 30
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	return &Factory{
		db:    db,
		opts:  opts,
		faker: gofakeit.New(opts.Seed),
		hash:  string(hash),
	}, nil
}

// username returns a generated name that fits the username column.
func (f *Factory) username() string {
	name := fmt.Sprintf("%s%d", strings.ToLower(f.faker.Username()), f.faker.Number(100, 99999))
	if len(name) > validation.MaxUsernameLength {
		name = name[:validation.MaxUsernameLength]
	}
	return name
}

func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.faker.Number(0, f.opts.MaxDays*24*60)) * time.Minute
	return time.Now().Add(-back)
}

// CreateUser persists a user with a generated unique username. Overrides run
// before the insert.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username:       f.username(),
		HashedPassword: f.hash,
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %q: %w", user.Username, err)
	}
	return user, nil
}

// CreatePost persists a post authored by user.
func (f *Factory) CreatePost(user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	header := f.faker.Sentence(f.faker.Number(3, 8))
	if len(header) > validation.MaxHeaderLength {
		header = header[:validation.MaxHeaderLength]
	}
	post := &models.Post{
		Header:    header,
		Content:   f.faker.Paragraph(1, 3, 8, "\n"),
		UserID:    user.ID,
		CreatedAt: f.pastTime(),
	}
	for _, override := range overrides {
		override(post)
	}
	if err := f.db.Create(post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// CreateComment persists a comment by user on post.
func (f *Factory) CreateComment(user *models.User, post *models.Post) (*models.Comment, error) {
	content := f.faker.Sentence(f.faker.Number(4, 20))
	if runes := []rune(content); len(runes) > models.MaxCommentLength {
		content = string(runes[:models.MaxCommentLength])
	}
	comment := &models.Comment{
		Content: content,
		UserID:  user.ID,
		PostID:  post.ID,
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// CreateFollow persists an edge from actor to target.
func (f *Factory) CreateFollow(actor, target *models.User) (*models.Follow, error) {
	follow := &models.Follow{
		FollowBelongsToUserID: actor.ID,
		FollowerUserID:        target.ID,
	}
	if err := f.db.Create(follow).Error; err != nil {
		return nil, fmt.Errorf("create follow %d->%d: %w", actor.ID, target.ID, err)
	}
	middleware.Logger.Debug("seeded follow",
		slog.Uint64("actor_id", uint64(actor.ID)),
		slog.Uint64("target_id", uint64(target.ID)))
	return follow, nil
}
