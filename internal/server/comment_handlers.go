package server

import (
	"strconv"
	"strings"

	"kinship/internal/middleware"
	"kinship/internal/models"
	"kinship/internal/service"
	"kinship/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// commentForm has no user field: the author is always the
// session user, whatever the body says.
type commentForm struct {
	Content string `form:"content" json:"content"`
	PostID  string `form:"postId" json:"postId"`
}

// NewCommentForm renders an empty comment form. With ?postId= the form is
// bound to that post and the existing thread is included.
func (s *Server) NewCommentForm(c *fiber.Ctx) error {
	postID := c.Query("postId")
	data := fiber.Map{
		"comment": fiber.Map{"content": "", "postId": postID},
	}
	if id, err := strconv.ParseUint(postID, 10, 64); err == nil && id > 0 {
		comments, err := s.commentService.ListComments(c.UserContext(), uint(id))
		if err != nil {
			return err
		}
		data["comments"] = comments
	}
	return render(c, viewComment, "user-comment", data)
}

// CreateComment handles POST /posts/comments
// @Summary Comment on a post
// @Tags posts
// @Accept x-www-form-urlencoded
// @Produce json
// @Param content formData string true "Comment (max 255 characters)"
// @Param postId formData int true "Post ID"
// @Success 302 "Redirect to /"
// @Success 200 {object} object{view=string,errors=[]string} "Form re-rendered with errors"
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req commentForm
	if err := parseForm(c, &req); err != nil {
		return err
	}

	msgs, err := s.commentValidator.Validate(ctx, validation.Form{
		"content": req.Content,
		"postId":  req.PostID,
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	if len(msgs) > 0 {
		return render(c, viewComment, "user-comment", fiber.Map{
			"comment": fiber.Map{"content": req.Content, "postId": req.PostID},
			"errors":  msgs,
		})
	}

	postID, _ := strconv.ParseUint(strings.TrimSpace(req.PostID), 10, 64)
	if _, err := s.commentService.CreateComment(ctx, service.CreateCommentInput{
		UserID:  middleware.CurrentUserID(c),
		PostID:  uint(postID),
		Content: req.Content,
	}); err != nil {
		return err
	}

	return redirect(c, "/")
}
