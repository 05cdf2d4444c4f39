package middleware

import (
	"context"
	"log/slog"

	"kinship/internal/models"
	"kinship/internal/session"

	"github.com/gofiber/fiber/v2"
)

// LoginPath is where unauthenticated requests to gated routes are sent.
const LoginPath = "/users/login"

// UserLoader fetches the user bound to a session.
type UserLoader func(ctx context.Context, id uint) (*models.User, error)

// RestoreUser reads the session on every request and, when it carries a user
// ID, exposes it as c.Locals("userID") and in the request context. The user
// record itself goes to c.Locals("user"); a user that no longer exists leaves
// that local empty.
func RestoreUser(mgr *session.Manager, load UserLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok, err := mgr.UserID(c)
		if err != nil {
			Logger.WarnContext(c.UserContext(), "session unavailable, continuing anonymously",
				slog.String("error", err.Error()))
			return c.Next()
		}
		if !ok {
			return c.Next()
		}

		c.Locals("userID", userID)
		ctx := WithUserID(c.UserContext(), userID)
		c.SetUserContext(ctx)

		user, err := load(ctx, userID)
		switch {
		case err == nil:
			c.Locals("user", user)
		case models.IsCode(err, models.CodeNotFound):
			Logger.WarnContext(ctx, "session references missing user")
		default:
			return err
		}
		return c.Next()
	}
}

// RequireAuth redirects to the login page when no user is bound to the session.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUserID(c) == 0 {
			return c.Redirect(LoginPath, fiber.StatusFound)
		}
		return c.Next()
	}
}

// CurrentUserID returns the session user ID, or 0 for anonymous requests.
func CurrentUserID(c *fiber.Ctx) uint {
	if id, ok := c.Locals("userID").(uint); ok {
		return id
	}
	return 0
}

// CurrentUser returns the user restored from the session, if any.
func CurrentUser(c *fiber.Ctx) *models.User {
	if u, ok := c.Locals("user").(*models.User); ok {
		return u
	}
	return nil
}
