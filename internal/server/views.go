package server

import (
	"github.com/gofiber/fiber/v2"
)

// View names rendered by the handlers. Pages are served as JSON page models;
// the client owns the markup.
const (
	viewHome    = "home"
	viewPost    = "post"
	viewFeed    = "feed"
	viewComment = "comment"
	viewSignUp  = "sign-up"
	viewLogin   = "login"
	viewProfile = "profile"
)

// render writes a page model: the view name and title, the CSRF token for
// forms when CSRF protection is on, and the handler's data.
func render(c *fiber.Ctx, view, title string, data fiber.Map) error {
	page := fiber.Map{
		"view":  view,
		"title": title,
	}
	if token, ok := c.Locals(csrfContextKey).(string); ok && token != "" {
		page["csrf_token"] = token
	}
	for k, v := range data {
		page[k] = v
	}
	return c.Status(fiber.StatusOK).JSON(page)
}

func redirect(c *fiber.Ctx, location string) error {
	return c.Redirect(location, fiber.StatusFound)
}
