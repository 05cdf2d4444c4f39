// Package server contains the HTTP handlers and wiring for the kinship web application.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "kinship/docs" // swagger docs
	"kinship/internal/bootstrap"
	"kinship/internal/config"
	"kinship/internal/featureflags"
	"kinship/internal/middleware"
	"kinship/internal/models"
	"kinship/internal/notifications"
	"kinship/internal/repository"
	"kinship/internal/service"
	"kinship/internal/session"
	"kinship/internal/validation"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// csrfContextKey is the Fiber local holding the CSRF token for rendered forms.
const csrfContextKey = "csrf"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	sessions       *session.Manager
	featureFlags   *featureflags.Manager
	notifier       *notifications.Notifier

	userRepo    repository.UserRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	followRepo  repository.FollowRepository

	userService    *service.UserService
	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService

	signUpValidator  *validation.Validator
	loginValidator   *validation.Validator
	postValidator    *validation.Validator
	commentValidator *validation.Validator
}

// NewServer connects to the database and Redis, ensures the demo account
// when enabled, and builds a Server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{EnsureDemo: cfg.DemoEnabled})
	if err != nil {
		return nil, err
	}

	// A nil client means Redis is unreachable; sessions fall back to memory.
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests pass an in-memory database and a nil or miniredis-backed client.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("server requires config and database")
	}
	middleware.InitMiddleware(cfg)

	var storage fiber.Storage
	if redisClient != nil {
		storage = session.NewRedisStorage(redisClient)
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("kinship"),
		sessions:       session.NewManager(cfg, storage),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		notifier:       notifications.NewNotifier(redisClient),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		followRepo:     repository.NewFollowRepository(db),
	}

	s.userService = service.NewUserService(s.userRepo, cfg.BcryptCost)
	s.postService = service.NewPostService(s.postRepo, s.followRepo, s.featureFlags)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo)
	s.followService = service.NewFollowService(s.followRepo, s.userRepo, s.notifier)

	s.signUpValidator = validation.SignUpValidator(s.userService.UsernameTaken)
	s.loginValidator = validation.LoginValidator()
	s.postValidator = validation.PostValidator()
	s.commentValidator = validation.CommentValidator()

	return s, nil
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "kinship",
		ErrorHandler: s.ErrorHandler,
		BodyLimit:    1 * 1024 * 1024,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// ErrorHandler maps errors to statuses and writes the standard error body.
func (s *Server) ErrorHandler(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}

func (s *Server) limiterDisabled() bool {
	switch s.config.Env {
	case "test", "stress":
		return true
	}
	return false
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.limiterDisabled()
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))

	app.Use(middleware.RestoreUser(s.sessions, s.userService.SessionUser))

	if s.config.CSRFEnabled {
		app.Use(csrf.New(csrf.Config{
			KeyLookup:      "form:_csrf",
			CookieName:     "kinship_csrf",
			CookieSameSite: fiber.CookieSameSiteLaxMode,
			CookieSecure:   s.config.SessionCookieSecure,
			CookieHTTPOnly: true,
			Expiration:     1 * time.Hour,
			ContextKey:     csrfContextKey,
			KeyGenerator:   uuid.NewString,
			Next: func(c *fiber.Ctx) bool {
				return c.Path() == "/metrics"
			},
		}))
	}
}

// SetupRoutes registers every page, form and operational route.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/", s.Home)

	auth := middleware.RequireAuth()

	posts := app.Group("/posts")
	posts.Get("/create-post", auth, s.NewPostForm)
	posts.Post("/create-post", auth, middleware.RateLimit(
		s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	posts.Get("/feed", auth, s.Feed)
	posts.Get("/comments", auth, s.NewCommentForm)
	posts.Post("/comments", auth, middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreateComment)

	users := app.Group("/users")
	users.Get("/sign-up", s.SignUpForm)
	users.Post("/sign-up", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.SignUp)
	users.Get("/login", s.LoginForm)
	users.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	users.Get("/logout", s.Logout)
	users.Get("/demo", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "demo"), s.DemoLogin)
	users.Get("/my-profile", auth, s.MyProfile)
	users.Get("/profile/:id<int>", s.UserProfile)
	users.Get("/follow/:id<int>", auth, middleware.RateLimit(
		s.redis, 30, time.Minute, "follow"), s.FollowUser)
}

// LivenessCheck reports that the process is up without touching dependencies.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck pings the database and Redis. Redis is optional: when it
// was never configured the service is still ready on in-memory sessions.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"feature_flags": s.featureFlags.Raw(),
		"time":          time.Now(),
	})
}

// Start serves HTTP on the configured port until the app is shut down.
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops the HTTP server and releases the database and Redis connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
