package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/craftberry/shop/internal/apperr"
	"github.com/craftberry/shop/internal/kvstore"
	"github.com/craftberry/shop/internal/models"
)

type Users struct {
	rec records
}

func NewUsers(kv kvstore.Store) *Users {
	return &Users{rec: records{kv: kv, prefix: PrefixUser}}
}

func (u *Users) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := u.rec.get(ctx, id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateIfAbsent persists the profile unless one already exists under the
// same id, in which case the stored profile wins and is returned.
func (u *Users) CreateIfAbsent(ctx context.Context, p *models.UserProfile) (*models.UserProfile, error) {
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().Unix()
	}
	stored := *p
	err := u.rec.kv.Update(ctx, u.rec.key(p.ID), func(raw datatypes.JSON, found bool) (datatypes.JSON, error) {
		if found {
			if err := json.Unmarshal(raw, &stored); err != nil {
				return nil, err
			}
			return raw, nil
		}
		return json.Marshal(p)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (u *Users) Save(ctx context.Context, p *models.UserProfile) error {
	return u.rec.put(ctx, p.ID, p)
}

func (u *Users) List(ctx context.Context) ([]models.UserProfile, error) {
	raws, err := u.rec.list(ctx)
	if err != nil {
		return nil, err
	}
	users, err := decodeEach[models.UserProfile](raws)
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt < users[j].CreatedAt })
	return users, nil
}

// FindByEmail does a linear scan over all profiles; fine at this scale.
func (u *Users) FindByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	users, err := u.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if strings.ToLower(users[i].Email) == email {
			return &users[i], nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", apperr.ErrNotFound, email)
}

func (u *Users) Admins(ctx context.Context) ([]models.UserProfile, error) {
	users, err := u.List(ctx)
	if err != nil {
		return nil, err
	}
	admins := users[:0:0]
	for _, p := range users {
		if p.Role == models.RoleAdmin {
			admins = append(admins, p)
		}
	}
	return admins, nil
}
