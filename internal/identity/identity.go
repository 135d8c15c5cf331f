// Package identity is the identity-provider collaborator: it owns credential
// storage, password hashing and bearer token issuance. The rest of the core
// only ever sees the Provider interface and the resolved Identity.
package identity

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/craftberry/shop/internal/hash"
	"github.com/craftberry/shop/internal/kvstore"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnknownEmail       = errors.New("unknown email")
)

// Identity is what a resolved bearer credential yields: the external id plus
// whatever metadata the provider carries.
type Identity struct {
	ID    string
	Email string
	Name  string
	Role  string
}

type Provider interface {
	SignUp(ctx context.Context, email, password, name, role string) (*Identity, string, error)
	SignIn(ctx context.Context, email, password string) (*Identity, string, error)
	Resolve(ctx context.Context, bearer string) (*Identity, error)
	ChangePassword(ctx context.Context, email, newPassword string) error
}

type accessClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type credential struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	Role         string `json:"role"`
	PasswordHash string `json:"password_hash"`
}

const (
	credPrefix = "cred:"
	tokenTTL   = 24 * time.Hour
)

// local is a Provider backed by the key-value store and HS256 tokens.
type local struct {
	kv     kvstore.Store
	secret []byte
}

func NewLocal(kv kvstore.Store, secret []byte) Provider {
	return &local{kv: kv, secret: secret}
}

func credKey(email string) string {
	return credPrefix + strings.ToLower(strings.TrimSpace(email))
}

func (p *local) SignUp(ctx context.Context, email, password, name, role string) (*Identity, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", fmt.Errorf("%w: email required", ErrInvalidCredentials)
	}
	if password == "" {
		return nil, "", fmt.Errorf("%w: password required", ErrInvalidCredentials)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	cred := credential{
		UserID:       uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: pwHash,
	}

	err = p.kv.Update(ctx, credKey(email), func(_ datatypes.JSON, found bool) (datatypes.JSON, error) {
		if found {
			return nil, ErrUserExists
		}
		return json.Marshal(cred)
	})
	if err != nil {
		return nil, "", err
	}

	id := &Identity{ID: cred.UserID, Email: email, Name: name, Role: role}
	token, err := p.sign(id)
	if err != nil {
		return nil, "", err
	}
	return id, token, nil
}

func (p *local) SignIn(ctx context.Context, email, password string) (*Identity, string, error) {
	raw, found, err := p.kv.Get(ctx, credKey(email))
	if err != nil {
		return nil, "", err
	}
	if !found {
		return nil, "", ErrInvalidCredentials
	}
	var cred credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return nil, "", err
	}
	if !hash.CheckPassword(cred.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	id := &Identity{ID: cred.UserID, Email: cred.Email, Name: cred.Name, Role: cred.Role}
	token, err := p.sign(id)
	if err != nil {
		return nil, "", err
	}
	return id, token, nil
}

func (p *local) Resolve(_ context.Context, bearer string) (*Identity, error) {
	if bearer == "" {
		return nil, ErrInvalidToken
	}
	var claims accessClaims
	token, err := jwt.ParseWithClaims(bearer, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{
		ID:    claims.Subject,
		Email: claims.Email,
		Name:  claims.Name,
		Role:  claims.Role,
	}, nil
}

func (p *local) ChangePassword(ctx context.Context, email, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: password required", ErrInvalidCredentials)
	}
	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return p.kv.Update(ctx, credKey(email), func(raw datatypes.JSON, found bool) (datatypes.JSON, error) {
		if !found {
			return nil, ErrUnknownEmail
		}
		var cred credential
		if err := json.Unmarshal(raw, &cred); err != nil {
			return nil, err
		}
		cred.PasswordHash = pwHash
		return json.Marshal(cred)
	})
}

func (p *local) sign(id *Identity) (string, error) {
	now := time.Now()
	claims := accessClaims{
		Email: id.Email,
		Name:  id.Name,
		Role:  id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// CheckAdminKey compares the caller-supplied admin signup secret in constant
// time. An empty configured key never matches.
func CheckAdminKey(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
