// Package bootstrap runs the explicit startup initialization: creating the
// default admin account when one is configured.
package bootstrap

import (
	"context"
	"errors"
	"time"

	"github.com/craftberry/shop/internal/identity"
	"github.com/craftberry/shop/internal/logging"
	"github.com/craftberry/shop/internal/models"
	"github.com/craftberry/shop/internal/repository"
)

type Deps struct {
	Provider      identity.Provider
	Users         *repository.Users
	AdminEmail    string
	AdminPassword string
}

// Run is idempotent: rerunning against an initialized store changes nothing.
func Run(ctx context.Context, d Deps) error {
	l := logging.FromContext(ctx).With("svc", "bootstrap")

	if d.AdminEmail == "" || d.AdminPassword == "" {
		l.Info("bootstrap_skipped", "reason", "no default admin configured")
		return nil
	}

	id, _, err := d.Provider.SignUp(ctx, d.AdminEmail, d.AdminPassword, "Admin", models.RoleAdmin)
	if errors.Is(err, identity.ErrUserExists) {
		l.Info("bootstrap_admin_exists")
		return nil
	}
	if err != nil {
		return err
	}

	_, err = d.Users.CreateIfAbsent(ctx, &models.UserProfile{
		ID:        id.ID,
		Email:     id.Email,
		Name:      id.Name,
		Role:      models.RoleAdmin,
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	l.Info("bootstrap_admin_created", "email", d.AdminEmail)
	return nil
}
