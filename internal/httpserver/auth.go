package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/craftberry/shop/internal/identity"
	"github.com/craftberry/shop/internal/logging"
	middleware "github.com/craftberry/shop/internal/middleware/auth"
	"github.com/craftberry/shop/internal/models"
	"github.com/craftberry/shop/internal/repository"
	"github.com/craftberry/shop/internal/service/reset"
)

type AuthHTTP struct {
	Provider identity.Provider
	Users    *repository.Users
	Reset    *reset.Service
	AdminKey string
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	AdminKey string `json:"admin_key"`
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	return h.signup(c, models.RoleUser)
}

// AdminSignup self-registers an admin guarded by the shared admin key. A
// wrong key fails before anything is persisted.
func (h *AuthHTTP) AdminSignup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return validationError("invalid body")
	}
	if !identity.CheckAdminKey(req.AdminKey, h.AdminKey) {
		logging.FromContext(c.Request().Context()).Warn("admin_signup_rejected", "email", req.Email)
		return echo.NewHTTPError(http.StatusForbidden, "invalid admin key")
	}
	return h.register(c, req, models.RoleAdmin)
}

func (h *AuthHTTP) signup(c echo.Context, role string) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return validationError("invalid body")
	}
	return h.register(c, req, role)
}

func (h *AuthHTTP) register(c echo.Context, req signupRequest, role string) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signup", "role", role)

	id, token, err := h.Provider.SignUp(ctx, req.Email, req.Password, req.Name, role)
	if errors.Is(err, identity.ErrUserExists) {
		return validationError("user already exists")
	}
	if errors.Is(err, identity.ErrInvalidCredentials) {
		return validationError(err.Error())
	}
	if err != nil {
		return serviceError(c, "signup", err)
	}

	profile := &models.UserProfile{
		ID:        id.ID,
		Email:     id.Email,
		Name:      id.Name,
		Role:      role,
		CreatedAt: time.Now().Unix(),
	}
	profile, err = h.Users.CreateIfAbsent(ctx, profile)
	if err != nil {
		return serviceError(c, "signup", err)
	}

	l.Info("signup_successful", "user_id", profile.ID)
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"token":   token,
		"user":    profile,
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return validationError("invalid body")
	}

	id, token, err := h.Provider.SignIn(ctx, req.Email, req.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		l.Warn("login_failed", "status", 401)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if err != nil {
		return serviceError(c, "login", err)
	}

	l.Info("login_successful", "user_id", id.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"token":    token,
		"is_admin": id.Role == models.RoleAdmin,
	})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    middleware.ProfileFrom(c),
	})
}

// ForgotPassword reports success whether or not the email is registered.
// The token is returned in the response because this deployment has no
// outbound email channel.
func (h *AuthHTTP) ForgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return validationError("invalid body")
	}
	if req.Email == "" {
		return validationError("email required")
	}

	token, err := h.Reset.Request(c.Request().Context(), req.Email)
	if err != nil {
		return serviceError(c, "forgot_password", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"token":   token,
	})
}

func (h *AuthHTTP) VerifyResetToken(c echo.Context) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil {
		return validationError("invalid body")
	}

	email, err := h.Reset.Verify(c.Request().Context(), req.Token)
	if err != nil {
		return serviceError(c, "verify_reset_token", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"email":   email,
	})
}

func (h *AuthHTTP) ResetPassword(c echo.Context) error {
	var req struct {
		Token           string `json:"token"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := c.Bind(&req); err != nil {
		return validationError("invalid body")
	}
	if req.NewPassword == "" {
		return validationError("new password required")
	}
	if req.NewPassword != req.ConfirmPassword {
		return validationError("passwords do not match")
	}

	if err := h.Reset.Consume(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return serviceError(c, "reset_password", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
