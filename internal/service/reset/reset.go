// Package reset implements the single-use, time-bounded password reset token
// lifecycle: Requested -> Issued -> Verified -> Consumed.
package reset

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/craftberry/shop/internal/apperr"
	"github.com/craftberry/shop/internal/identity"
	"github.com/craftberry/shop/internal/kvstore"
	"github.com/craftberry/shop/internal/logging"
	"github.com/craftberry/shop/internal/models"
	"github.com/craftberry/shop/internal/repository"
)

var (
	ErrInvalidToken = fmt.Errorf("%w: invalid token", apperr.ErrValidation)
	ErrTokenUsed    = fmt.Errorf("%w: token already used", apperr.ErrValidation)
	ErrTokenExpired = fmt.Errorf("%w: token expired", apperr.ErrValidation)
)

const (
	tokenPrefix = "reset:token:"
	emailPrefix = "reset:email:"
	tokenTTL    = time.Hour
)

type Service struct {
	kv       kvstore.Store
	users    *repository.Users
	provider identity.Provider
}

func New(kv kvstore.Store, users *repository.Users, provider identity.Provider) *Service {
	return &Service{kv: kv, users: users, provider: provider}
}

// Request issues a token for the account registered under email. An unknown
// email still reports success with an empty token and performs no writes, so
// callers cannot probe which addresses are registered.
func (s *Service) Request(ctx context.Context, email string) (string, error) {
	l := logging.FromContext(ctx).With("svc", "reset.request")

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		l.Info("reset_requested_unknown_email")
		return "", nil
	}
	if err != nil {
		return "", err
	}

	token, err := newToken()
	if err != nil {
		return "", err
	}

	record := models.PasswordResetToken{
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: time.Now().Add(tokenTTL).Unix(),
		Used:      false,
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	if err := s.kv.Set(ctx, tokenPrefix+token, raw); err != nil {
		return "", err
	}
	pointer, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return "", err
	}
	if err := s.kv.Set(ctx, emailPrefix+user.Email, pointer); err != nil {
		return "", err
	}

	l.Info("reset_token_issued", "user_id", user.ID)
	return token, nil
}

// Verify is the read-only check: it reveals the associated email for a token
// that is present, unexpired and unused. Expiry takes precedence over the
// used flag.
func (s *Service) Verify(ctx context.Context, token string) (string, error) {
	record, err := s.load(ctx, token)
	if err != nil {
		return "", err
	}
	if err := check(record, time.Now()); err != nil {
		return "", err
	}
	return record.Email, nil
}

// Consume re-runs the Verify checks, delegates the password change to the
// identity provider and only then burns the token. A provider failure leaves
// the token unused so the user may retry.
func (s *Service) Consume(ctx context.Context, token, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "reset.consume")

	record, err := s.load(ctx, token)
	if err != nil {
		return err
	}
	if err := check(record, time.Now()); err != nil {
		return err
	}

	if err := s.provider.ChangePassword(ctx, record.Email, newPassword); err != nil {
		l.Error("password_change_failed", "error", err)
		return err
	}

	err = s.kv.Update(ctx, tokenPrefix+token, func(raw datatypes.JSON, found bool) (datatypes.JSON, error) {
		if !found {
			return nil, ErrInvalidToken
		}
		var cur models.PasswordResetToken
		if err := json.Unmarshal(raw, &cur); err != nil {
			return nil, err
		}
		if cur.Used {
			return nil, ErrTokenUsed
		}
		cur.Used = true
		return json.Marshal(cur)
	})
	if err != nil {
		return err
	}

	if err := s.kv.Delete(ctx, emailPrefix+record.Email); err != nil {
		l.Warn("reset_pointer_delete_failed", "error", err)
	}

	l.Info("reset_consumed", "user_id", record.UserID)
	return nil
}

func (s *Service) load(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	raw, found, err := s.kv.Get(ctx, tokenPrefix+token)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrInvalidToken
	}
	var record models.PasswordResetToken
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func check(record *models.PasswordResetToken, now time.Time) error {
	if now.Unix() > record.ExpiresAt {
		return ErrTokenExpired
	}
	if record.Used {
		return ErrTokenUsed
	}
	return nil
}

func newToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
