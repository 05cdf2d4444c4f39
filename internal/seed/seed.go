package seed

import (
	"context"
	"fmt"
	"log/slog"

	"kinship/internal/cache"
	"kinship/internal/database"
	"kinship/internal/middleware"
	"kinship/internal/models"

	"gorm.io/gorm"
)

// Plan describes how much data a seeding run creates.
type Plan struct {
	Users           int
	PostsPerUser    int
	CommentsPerPost int
	// FollowsPerUser is capped at Users-1.
	FollowsPerUser int
}

// Result summarises what a run created.
type Result struct {
	Users    []*models.User
	Posts    []*models.Post
	Comments int
	Follows  int
}

// Seeder fills a database according to a Plan.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, factory: f}, nil
}

// ClearAll removes every row from the application tables, children first, and
// flushes cached users so none outlive their rows.
func (s *Seeder) ClearAll() error {
	tables := database.Models()
	for i := len(tables) - 1; i >= 0; i-- {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(tables[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", tables[i], err)
		}
	}
	if err := cache.InvalidateAllUsers(context.Background()); err != nil {
		middleware.Logger.Warn("failed to flush cached users", slog.String("error", err.Error()))
	}
	middleware.Logger.Info("database cleared")
	return nil
}

// Run executes plan.
func (s *Seeder) Run(plan Plan) (*Result, error) {
	res := &Result{}

	for i := 0; i < plan.Users; i++ {
		u, err := s.factory.CreateUser()
		if err != nil {
			return nil, err
		}
		res.Users = append(res.Users, u)
	}

	for _, u := range res.Users {
		for i := 0; i < plan.PostsPerUser; i++ {
			p, err := s.factory.CreatePost(u)
			if err != nil {
				return nil, err
			}
			res.Posts = append(res.Posts, p)
		}
	}

	if len(res.Users) > 0 {
		for _, p := range res.Posts {
			for i := 0; i < plan.CommentsPerPost; i++ {
				author := res.Users[s.factory.faker.Number(0, len(res.Users)-1)]
				if _, err := s.factory.CreateComment(author, p); err != nil {
					return nil, err
				}
				res.Comments++
			}
		}
	}

	n, err := s.seedFollows(res.Users, plan.FollowsPerUser)
	if err != nil {
		return nil, err
	}
	res.Follows = n

	middleware.Logger.Info("seed complete",
		slog.Int("users", len(res.Users)),
		slog.Int("posts", len(res.Posts)),
		slog.Int("comments", res.Comments),
		slog.Int("follows", res.Follows))
	return res, nil
}

// seedFollows links each user to the next perUser users in a ring, which
// never produces a self edge or a duplicate.
func (s *Seeder) seedFollows(users []*models.User, perUser int) (int, error) {
	if len(users) < 2 || perUser <= 0 {
		return 0, nil
	}
	if perUser > len(users)-1 {
		perUser = len(users) - 1
	}

	created := 0
	for i, actor := range users {
		for step := 1; step <= perUser; step++ {
			target := users[(i+step)%len(users)]
			if _, err := s.factory.CreateFollow(actor, target); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}
