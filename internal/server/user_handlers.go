package server

import (
	"kinship/internal/featureflags"
	"kinship/internal/middleware"
	"kinship/internal/models"
	"kinship/internal/service"
	"kinship/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type signUpForm struct {
	Username        string `form:"username" json:"username"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirmPassword" json:"confirmPassword"`
}

type loginForm struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Home renders the landing page for anonymous and signed-in visitors.
func (s *Server) Home(c *fiber.Ctx) error {
	return render(c, viewHome, "kinship", fiber.Map{
		"user":     middleware.CurrentUser(c),
		"features": s.featureFlags.Snapshot(middleware.CurrentUserID(c)),
	})
}

// SignUpForm renders an empty sign-up form.
func (s *Server) SignUpForm(c *fiber.Ctx) error {
	return render(c, viewSignUp, "Sign-up", fiber.Map{
		"user": fiber.Map{"username": ""},
	})
}

// SignUp handles POST /users/sign-up
// @Summary Register an account
// @Description Validates the form, stores the user with a bcrypt hash and starts a session.
// @Tags users
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Username (max 50)"
// @Param password formData string true "Password"
// @Param confirmPassword formData string true "Password confirmation"
// @Success 302 "Redirect to /users/my-profile"
// @Success 200 {object} object{view=string,errors=[]string} "Form re-rendered with errors"
// @Router /users/sign-up [post]
func (s *Server) SignUp(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req signUpForm
	if err := parseForm(c, &req); err != nil {
		return err
	}

	// Only the username is echoed back; passwords are never re-rendered.
	rerender := func(errs []string) error {
		return render(c, viewSignUp, "Sign-up", fiber.Map{
			"user":   fiber.Map{"username": req.Username},
			"errors": errs,
		})
	}

	msgs, err := s.signUpValidator.Validate(ctx, validation.Form{
		"username":        req.Username,
		"password":        req.Password,
		"confirmPassword": req.ConfirmPassword,
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	if len(msgs) > 0 {
		middleware.AuthAttempts.WithLabelValues("signup", "invalid").Inc()
		return rerender(msgs)
	}

	user, err := s.userService.SignUp(ctx, service.SignUpInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errs, ok := validationMessages(err); ok {
			return rerender(errs)
		}
		return err
	}

	if err := s.sessions.LoginUser(c, user.ID); err != nil {
		return models.NewInternalError(err)
	}
	return redirect(c, "/users/my-profile")
}

// LoginForm renders an empty login form.
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return render(c, viewLogin, "Login", nil)
}

// Login handles POST /users/login
// @Summary Log in
// @Description Checks the credentials and starts a session. Unknown usernames and wrong passwords produce the same message.
// @Tags users
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Success 302 "Redirect to /posts/feed"
// @Success 200 {object} object{view=string,username=string,errors=[]string} "Form re-rendered with errors"
// @Router /users/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req loginForm
	if err := parseForm(c, &req); err != nil {
		return err
	}

	rerender := func(errs []string) error {
		return render(c, viewLogin, "Login", fiber.Map{
			"username": req.Username,
			"errors":   errs,
		})
	}

	msgs, err := s.loginValidator.Validate(ctx, validation.Form{
		"username": req.Username,
		"password": req.Password,
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	if len(msgs) > 0 {
		return rerender(msgs)
	}

	user, err := s.userService.Login(ctx, service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if models.IsCode(err, models.CodeUnauthorized) {
			return rerender([]string{validation.MsgLoginFailed})
		}
		return err
	}

	if err := s.sessions.LoginUser(c, user.ID); err != nil {
		return models.NewInternalError(err)
	}
	return redirect(c, "/posts/feed")
}

// Logout ends the session and returns to the login page.
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.sessions.LogoutUser(c); err != nil {
		return models.NewInternalError(err)
	}
	return redirect(c, middleware.LoginPath)
}

func (s *Server) demoEnabled() bool {
	return s.config.DemoEnabled || s.featureFlags.Enabled(featureflags.DemoLogin, 0)
}

// DemoLogin signs the visitor in as the configured demo account.
func (s *Server) DemoLogin(c *fiber.Ctx) error {
	if !s.demoEnabled() {
		return fiber.ErrNotFound
	}

	user, err := s.userService.EnsureUser(c.UserContext(), s.config.DemoUsername, s.config.DemoPassword)
	if err != nil {
		return err
	}
	if err := s.sessions.LoginUser(c, user.ID); err != nil {
		return models.NewInternalError(err)
	}
	return redirect(c, "/")
}

// MyProfile renders the signed-in user's own profile. A session that points
// at a deleted user is cleared.
func (s *Server) MyProfile(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		if err := s.sessions.LogoutUser(c); err != nil {
			return models.NewInternalError(err)
		}
		return redirect(c, middleware.LoginPath)
	}

	data, err := s.profileData(c, user)
	if err != nil {
		return err
	}
	data["user"] = user
	data["is_self"] = true
	return render(c, viewProfile, "Profile Page", data)
}

// UserProfile handles GET /users/profile/:id
// @Summary View a profile
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{view=string,viewing_user=models.User}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/profile/{id} [get]
func (s *Server) UserProfile(c *fiber.Ctx) error {
	ctx := c.UserContext()

	targetID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	target, err := s.userService.GetUserByID(ctx, targetID)
	if err != nil {
		return err
	}

	data, err := s.profileData(c, target)
	if err != nil {
		return err
	}

	viewer := middleware.CurrentUser(c)
	following, err := s.followService.IsFollowing(ctx, middleware.CurrentUserID(c), target.ID)
	if err != nil {
		return err
	}
	data["user"] = viewer
	data["is_self"] = viewer != nil && viewer.ID == target.ID
	data["is_following"] = following
	return render(c, viewProfile, "Profile Page", data)
}

// profileData loads what every profile page shows about the viewed user.
func (s *Server) profileData(c *fiber.Ctx, viewing *models.User) (fiber.Map, error) {
	ctx := c.UserContext()

	posts, err := s.postService.ListByUser(ctx, viewing.ID)
	if err != nil {
		return nil, err
	}
	counts, err := s.followService.Counts(ctx, viewing.ID)
	if err != nil {
		return nil, err
	}
	return fiber.Map{
		"viewing_user":  viewing,
		"posts":         posts,
		"follow_counts": counts,
	}, nil
}
