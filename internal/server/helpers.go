package server

import (
	"strings"

	"kinship/internal/models"

	"github.com/gofiber/fiber/v2"
)

// parseID extracts a route parameter by name as a positive uint.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("Invalid " + humanizeParam(param))
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label,
// e.g. "id" -> "ID", "postId" -> "post ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if prefix, ok := strings.CutSuffix(param, "Id"); ok {
		return strings.ToLower(prefix) + " ID"
	}
	return param
}

// parseForm decodes a url-encoded, multipart or JSON body into dst.
func parseForm(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}

// validationMessages returns the messages carried by a validation error.
func validationMessages(err error) ([]string, bool) {
	appErr, ok := models.AsAppError(err)
	if !ok || appErr.Code != models.CodeValidation {
		return nil, false
	}
	if len(appErr.Messages) > 0 {
		return appErr.Messages, true
	}
	return []string{appErr.Message}, true
}
