package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/craftberry/shop/internal/apperr"
	"github.com/craftberry/shop/internal/kvstore"
	"github.com/craftberry/shop/internal/models"
)

// Carts keeps one record per user under cart:<user id>. All mutations go
// through the store's versioned Update so concurrent merges against the same
// cart cannot drop each other.
type Carts struct {
	kv kvstore.Store
}

func NewCarts(kv kvstore.Store) *Carts {
	return &Carts{kv: kv}
}

func cartKey(userID string) string { return PrefixCart + userID }

func emptyCart(userID string) *models.Cart {
	return &models.Cart{UserID: userID, Items: []models.CartItem{}}
}

// Get returns the user's cart; a missing record is an empty cart.
func (c *Carts) Get(ctx context.Context, userID string) (*models.Cart, error) {
	raw, found, err := c.kv.Get(ctx, cartKey(userID))
	if err != nil {
		return nil, err
	}
	if !found {
		return emptyCart(userID), nil
	}
	var cart models.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

// AddItem merges a line into the cart: an existing (product, size, color)
// triple has its quantity incremented, a new triple is appended.
func (c *Carts) AddItem(ctx context.Context, userID string, item models.CartItem) (*models.Cart, error) {
	if item.ProductID == "" {
		return nil, fmt.Errorf("%w: product_id required", apperr.ErrValidation)
	}
	if item.Quantity == 0 {
		item.Quantity = 1
	}

	var result models.Cart
	err := c.kv.Update(ctx, cartKey(userID), func(raw datatypes.JSON, found bool) (datatypes.JSON, error) {
		cart := emptyCart(userID)
		if found {
			if err := json.Unmarshal(raw, cart); err != nil {
				return nil, err
			}
		}
		matched := false
		for i := range cart.Items {
			line := &cart.Items[i]
			if line.ProductID == item.ProductID && line.Size == item.Size && line.Color == item.Color {
				line.Quantity += item.Quantity
				matched = true
				break
			}
		}
		if !matched {
			cart.Items = append(cart.Items, item)
		}
		result = *cart
		return json.Marshal(cart)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RemoveItem drops the matching triple entirely. Removing an absent line is
// not an error.
func (c *Carts) RemoveItem(ctx context.Context, userID, productID, size, color string) (*models.Cart, error) {
	var result models.Cart
	err := c.kv.Update(ctx, cartKey(userID), func(raw datatypes.JSON, found bool) (datatypes.JSON, error) {
		cart := emptyCart(userID)
		if found {
			if err := json.Unmarshal(raw, cart); err != nil {
				return nil, err
			}
		}
		kept := cart.Items[:0]
		for _, line := range cart.Items {
			if line.ProductID == productID && line.Size == size && line.Color == color {
				continue
			}
			kept = append(kept, line)
		}
		cart.Items = kept
		result = *cart
		return json.Marshal(cart)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Clear resets the cart to empty; used after a successful order placement.
func (c *Carts) Clear(ctx context.Context, userID string) error {
	raw, err := json.Marshal(emptyCart(userID))
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, cartKey(userID), raw)
}
