package repository

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/craftberry/shop/internal/kvstore"
	"github.com/craftberry/shop/internal/models"
)

type Orders struct {
	rec records
}

func NewOrders(kv kvstore.Store) *Orders {
	return &Orders{rec: records{kv: kv, prefix: PrefixOrder}}
}

func (o *Orders) Get(ctx context.Context, id string) (*models.Order, error) {
	var ord models.Order
	if err := o.rec.get(ctx, id, &ord); err != nil {
		return nil, err
	}
	return &ord, nil
}

func (o *Orders) Create(ctx context.Context, ord *models.Order) error {
	return o.rec.put(ctx, ord.ID, ord)
}

func (o *Orders) ListAll(ctx context.Context) ([]models.Order, error) {
	raws, err := o.rec.list(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := decodeEach[models.Order](raws)
	if err != nil {
		return nil, err
	}
	sortOrders(orders)
	return orders, nil
}

func (o *Orders) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	all, err := o.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	mine := all[:0:0]
	for _, ord := range all {
		if ord.UserID == userID {
			mine = append(mine, ord)
		}
	}
	return mine, nil
}

// Merge shallow-merges partial fields over the stored order.
func (o *Orders) Merge(ctx context.Context, id string, partial map[string]any) (*models.Order, error) {
	merged, err := o.rec.merge(ctx, id, partial)
	if err != nil {
		return nil, err
	}
	var ord models.Order
	if err := json.Unmarshal(merged, &ord); err != nil {
		return nil, err
	}
	return &ord, nil
}

// newest first
func sortOrders(orders []models.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt != orders[j].CreatedAt {
			return orders[i].CreatedAt > orders[j].CreatedAt
		}
		return orders[i].ID > orders[j].ID
	})
}
