// Package bootstrap wires the runtime dependencies shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"kinship/internal/cache"
	"kinship/internal/config"
	"kinship/internal/database"
	"kinship/internal/middleware"
	"kinship/internal/models"
	"kinship/internal/repository"
	"kinship/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// EnsureDemo creates the demo account when demo login is enabled.
	EnsureDemo bool
}

// InitRuntime connects to the database and Redis. A nil Redis client means
// Redis was unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.EnsureDemo {
		if _, err := EnsureDemoUser(context.Background(), cfg, db); err != nil {
			return nil, nil, fmt.Errorf("failed to bootstrap demo user: %w", err)
		}
	}

	return db, r, nil
}

// EnsureDemoUser creates the configured demo account if it does not exist yet.
// It returns nil without touching the database when demo login is disabled.
func EnsureDemoUser(ctx context.Context, cfg *config.Config, db *gorm.DB) (*models.User, error) {
	if cfg == nil || db == nil || !cfg.DemoEnabled {
		return nil, nil
	}
	username := strings.TrimSpace(cfg.DemoUsername)
	if username == "" {
		return nil, fmt.Errorf("DEMO_USERNAME must be set when DEMO_ENABLED is true")
	}

	users := service.NewUserService(repository.NewUserRepository(db), cfg.BcryptCost)
	user, err := users.EnsureUser(ctx, username, cfg.DemoPassword)
	if err != nil {
		return nil, err
	}

	middleware.Logger.Info("demo user ensured",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("username", user.Username))
	return user, nil
}
