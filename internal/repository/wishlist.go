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

// Wishlists keeps one record per user with set semantics on product ids.
type Wishlists struct {
	kv kvstore.Store
}

func NewWishlists(kv kvstore.Store) *Wishlists {
	return &Wishlists{kv: kv}
}

func wishlistKey(userID string) string { return PrefixWishlist + userID }

func emptyWishlist(userID string) *models.Wishlist {
	return &models.Wishlist{UserID: userID, Items: []string{}}
}

func (w *Wishlists) Get(ctx context.Context, userID string) (*models.Wishlist, error) {
	raw, found, err := w.kv.Get(ctx, wishlistKey(userID))
	if err != nil {
		return nil, err
	}
	if !found {
		return emptyWishlist(userID), nil
	}
	var list models.Wishlist
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	if list.Items == nil {
		list.Items = []string{}
	}
	return &list, nil
}

// Add inserts the product id once; adding a present id is a no-op.
func (w *Wishlists) Add(ctx context.Context, userID, productID string) (*models.Wishlist, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product_id required", apperr.ErrValidation)
	}
	var result models.Wishlist
	err := w.kv.Update(ctx, wishlistKey(userID), func(raw datatypes.JSON, found bool) (datatypes.JSON, error) {
		list := emptyWishlist(userID)
		if found {
			if err := json.Unmarshal(raw, list); err != nil {
				return nil, err
			}
		}
		present := false
		for _, id := range list.Items {
			if id == productID {
				present = true
				break
			}
		}
		if !present {
			list.Items = append(list.Items, productID)
		}
		result = *list
		return json.Marshal(list)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (w *Wishlists) Remove(ctx context.Context, userID, productID string) (*models.Wishlist, error) {
	var result models.Wishlist
	err := w.kv.Update(ctx, wishlistKey(userID), func(raw datatypes.JSON, found bool) (datatypes.JSON, error) {
		list := emptyWishlist(userID)
		if found {
			if err := json.Unmarshal(raw, list); err != nil {
				return nil, err
			}
		}
		kept := list.Items[:0]
		for _, id := range list.Items {
			if id != productID {
				kept = append(kept, id)
			}
		}
		list.Items = kept
		result = *list
		return json.Marshal(list)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
