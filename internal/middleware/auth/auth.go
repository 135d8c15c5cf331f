// Package auth provides the single authorization middleware every protected
// route goes through, parameterized by required role.
package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/craftberry/shop/internal/auth"
	"github.com/craftberry/shop/internal/models"
)

const profileKey = "profile"

type Middleware struct {
	Gate *auth.Gate
}

func New(gate *auth.Gate) *Middleware {
	return &Middleware{Gate: gate}
}

// RequireAuth authenticates the bearer credential and stores the resolved
// profile in the request context. No business logic runs on failure.
func (m *Middleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		bearer := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		profile, err := m.Gate.Authenticate(c.Request().Context(), bearer)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		c.Set(profileKey, profile)
		return next(c)
	}
}

// RequireRole layers a role check over RequireAuth.
func (m *Middleware) RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return m.RequireAuth(func(c echo.Context) error {
			profile := ProfileFrom(c)
			if profile == nil || profile.Role != role {
				return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
			}
			return next(c)
		})
	}
}

// ProfileFrom returns the authenticated profile, nil when the route did not
// go through RequireAuth.
func ProfileFrom(c echo.Context) *models.UserProfile {
	if p, ok := c.Get(profileKey).(*models.UserProfile); ok {
		return p
	}
	return nil
}

func bearerToken(header string) string {
	const scheme = "Bearer "
	if len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
		return strings.TrimSpace(header[len(scheme):])
	}
	return ""
}
