package server

import (
	"kinship/internal/middleware"
	"kinship/internal/service"

	"github.com/gofiber/fiber/v2"
)

// FollowUser handles GET /users/follow/:id
// @Summary Follow a user
// @Description Creates a follow edge from the session user to the target.
// @Tags users
// @Produce json
// @Param id path int true "User ID to follow"
// @Success 201 {object} object{follow=models.Follow}
// @Failure 400 {object} models.ErrorResponse "Self-follow"
// @Failure 404 {object} models.ErrorResponse "Unknown user"
// @Failure 409 {object} models.ErrorResponse "Already following"
// @Router /users/follow/{id} [get]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	follow, err := s.followService.Follow(c.UserContext(), service.FollowInput{
		ActorID:  middleware.CurrentUserID(c),
		TargetID: targetID,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"follow": follow})
}
