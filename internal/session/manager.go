// Package session holds the server-side session store and the helpers that
// bind an authenticated user to it.
package session

import (
	"fmt"

	"kinship/internal/config"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
)

// AuthUserKey is the session field that holds the logged-in user's ID.
const AuthUserKey = "auth_user_id"

// Manager wraps the Fiber session store with login/logout semantics.
type Manager struct {
	store *fibersession.Store
}

// NewManager builds the session store. A nil storage selects Fiber's
// in-memory storage.
func NewManager(cfg *config.Config, storage fiber.Storage) *Manager {
	sc := fibersession.Config{
		Expiration:     cfg.SessionTTL(),
		KeyLookup:      "cookie:" + cfg.SessionCookieName,
		CookiePath:     "/",
		CookieSecure:   cfg.SessionCookieSecure,
		CookieHTTPOnly: true,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
		KeyGenerator:   uuid.NewString,
	}
	if storage != nil {
		sc.Storage = storage
	}
	return &Manager{store: fibersession.New(sc)}
}

// LoginUser binds userID to the session under a freshly generated session ID.
func (m *Manager) LoginUser(c *fiber.Ctx, userID uint) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("regenerate session: %w", err)
	}
	sess.Set(AuthUserKey, userID)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LogoutUser removes the session record and expires the cookie.
func (m *Manager) LogoutUser(c *fiber.Ctx) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if err := sess.Destroy(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// UserID returns the authenticated user ID, if the session carries one.
func (m *Manager) UserID(c *fiber.Ctx) (uint, bool, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return 0, false, fmt.Errorf("load session: %w", err)
	}
	id, ok := sess.Get(AuthUserKey).(uint)
	if !ok || id == 0 {
		return 0, false, nil
	}
	return id, true, nil
}
