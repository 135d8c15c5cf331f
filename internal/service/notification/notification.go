// Package notification creates and serves per-user notification records.
// Delivery is by polling: clients list their records, newest first.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/craftberry/shop/internal/apperr"
	"github.com/craftberry/shop/internal/kvstore"
	"github.com/craftberry/shop/internal/models"
)

const prefix = "notification:"

type Service struct {
	kv kvstore.Store
}

func New(kv kvstore.Store) *Service {
	return &Service{kv: kv}
}

func key(userID, id string) string { return prefix + userID + ":" + id }

func (s *Service) Create(ctx context.Context, userID, typ, title, message string, data map[string]any) (*models.Notification, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", apperr.ErrValidation)
	}
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		Data:      data,
		Read:      false,
		Timestamp: time.Now().UnixMilli(),
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, key(userID, n.ID), raw); err != nil {
		return nil, err
	}
	return n, nil
}

// List returns the user's notifications sorted by timestamp descending. The
// ordering is part of the contract, not a side effect of scan order.
func (s *Service) List(ctx context.Context, userID string) ([]models.Notification, error) {
	raws, err := s.kv.ScanPrefix(ctx, prefix+userID+":")
	if err != nil {
		return nil, err
	}
	out := make([]models.Notification, 0, len(raws))
	for _, raw := range raws {
		var n models.Notification
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) (*models.Notification, error) {
	var result models.Notification
	err := s.kv.Update(ctx, key(userID, id), func(raw datatypes.JSON, found bool) (datatypes.JSON, error) {
		if !found {
			return nil, fmt.Errorf("%w: notification %s", apperr.ErrNotFound, id)
		}
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, err
		}
		result.Read = true
		return json.Marshal(result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete is idempotent: removing an absent notification succeeds.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.kv.Delete(ctx, key(userID, id))
}
