package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/craftberry/shop/internal/apperr"
	"github.com/craftberry/shop/internal/kvstore"
	"github.com/craftberry/shop/internal/models"
)

type Products struct {
	rec records
}

func NewProducts(kv kvstore.Store) *Products {
	return &Products{rec: records{kv: kv, prefix: PrefixProduct}}
}

func (p *Products) List(ctx context.Context) ([]models.Product, error) {
	raws, err := p.rec.list(ctx)
	if err != nil {
		return nil, err
	}
	products, err := decodeEach[models.Product](raws)
	if err != nil {
		return nil, err
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].CreatedAt != products[j].CreatedAt {
			return products[i].CreatedAt < products[j].CreatedAt
		}
		return products[i].ID < products[j].ID
	})
	return products, nil
}

func (p *Products) Get(ctx context.Context, id string) (*models.Product, error) {
	var prod models.Product
	if err := p.rec.get(ctx, id, &prod); err != nil {
		return nil, err
	}
	return &prod, nil
}

func (p *Products) Create(ctx context.Context, prod *models.Product) error {
	if prod.Name == "" {
		return fmt.Errorf("%w: name required", apperr.ErrValidation)
	}
	if prod.Price < 0 {
		return fmt.Errorf("%w: price must be >= 0", apperr.ErrValidation)
	}
	prod.ID = NewID()
	prod.CreatedAt = time.Now().Unix()
	return p.rec.put(ctx, prod.ID, prod)
}

func (p *Products) Update(ctx context.Context, id string, partial map[string]any) (*models.Product, error) {
	merged, err := p.rec.merge(ctx, id, partial)
	if err != nil {
		return nil, err
	}
	var prod models.Product
	if err := json.Unmarshal(merged, &prod); err != nil {
		return nil, err
	}
	return &prod, nil
}

func (p *Products) Remove(ctx context.Context, id string) error {
	return p.rec.remove(ctx, id)
}
