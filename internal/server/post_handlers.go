package server

import (
	"kinship/internal/middleware"
	"kinship/internal/models"
	"kinship/internal/service"
	"kinship/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type postForm struct {
	Header  string `form:"header" json:"header"`
	Content string `form:"content" json:"content"`
}

// NewPostForm renders an empty post form.
func (s *Server) NewPostForm(c *fiber.Ctx) error {
	return render(c, viewPost, "Create New Post", fiber.Map{
		"post": fiber.Map{"header": "", "content": ""},
	})
}

// CreatePost handles POST /posts/create-post
// @Summary Publish a post
// @Description Stores a post authored by the session user and re-renders the post page.
// @Tags posts
// @Accept x-www-form-urlencoded
// @Produce json
// @Param header formData string true "Header (max 255)"
// @Param content formData string true "Content"
// @Success 200 {object} object{view=string,post=models.Post}
// @Success 302 "Redirect to /users/login when signed out"
// @Router /posts/create-post [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req postForm
	if err := parseForm(c, &req); err != nil {
		return err
	}

	msgs, err := s.postValidator.Validate(ctx, validation.Form{
		"header":  req.Header,
		"content": req.Content,
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	if len(msgs) > 0 {
		return render(c, viewPost, "Create New Post", fiber.Map{
			"post":   fiber.Map{"header": req.Header, "content": req.Content},
			"errors": msgs,
		})
	}

	post, err := s.postService.CreatePost(ctx, service.CreatePostInput{
		UserID:  middleware.CurrentUserID(c),
		Header:  req.Header,
		Content: req.Content,
	})
	if err != nil {
		return err
	}

	return render(c, viewPost, "Your Feed", fiber.Map{
		"post": post,
	})
}

// Feed handles GET /posts/feed
// @Summary Feed
// @Description Posts newest first with their authors.
// @Tags posts
// @Produce json
// @Success 200 {object} object{view=string,all_posts=[]models.Post}
// @Success 302 "Redirect to /users/login when signed out"
// @Router /posts/feed [get]
func (s *Server) Feed(c *fiber.Ctx) error {
	posts, err := s.postService.Feed(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return err
	}

	title := "Your Feed"
	user := middleware.CurrentUser(c)
	if user != nil {
		title = user.Username + " Feed"
	}
	return render(c, viewFeed, title, fiber.Map{
		"user":      user,
		"all_posts": posts,
	})
}
