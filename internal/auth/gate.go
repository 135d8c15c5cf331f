// Package auth resolves bearer credentials to stored user profiles and gates
// admin-only operations.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/craftberry/shop/internal/apperr"
	"github.com/craftberry/shop/internal/identity"
	"github.com/craftberry/shop/internal/models"
	"github.com/craftberry/shop/internal/repository"
)

type Gate struct {
	Provider identity.Provider
	Users    *repository.Users
}

func NewGate(provider identity.Provider, users *repository.Users) *Gate {
	return &Gate{Provider: provider, Users: users}
}

// Authenticate resolves the bearer credential and loads the matching profile.
// A profile missing for a valid identity is synthesized from the identity
// metadata and persisted: role defaults to user, name to the local part of
// the email.
func (g *Gate) Authenticate(ctx context.Context, bearer string) (*models.UserProfile, error) {
	if bearer == "" {
		return nil, fmt.Errorf("%w: missing credential", apperr.ErrUnauthorized)
	}
	id, err := g.Provider.Resolve(ctx, bearer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnauthorized, err)
	}

	profile := &models.UserProfile{
		ID:        id.ID,
		Email:     id.Email,
		Name:      id.Name,
		Role:      id.Role,
		CreatedAt: time.Now().Unix(),
	}
	if profile.Role == "" {
		profile.Role = models.RoleUser
	}
	if profile.Name == "" {
		profile.Name = localPart(id.Email)
	}
	return g.Users.CreateIfAbsent(ctx, profile)
}

// RequireAdmin fails with Forbidden unless the profile carries the admin role.
func RequireAdmin(p *models.UserProfile) error {
	if p == nil || p.Role != models.RoleAdmin {
		return fmt.Errorf("%w: admin role required", apperr.ErrForbidden)
	}
	return nil
}

func localPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
