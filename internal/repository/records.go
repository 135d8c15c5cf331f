// Package repository holds the prefix-scoped CRUD façades over the key-value
// store. Every resource kind lives under its own key prefix; records are
// stored as JSON documents.
package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/craftberry/shop/internal/apperr"
	"github.com/craftberry/shop/internal/kvstore"
)

const (
	PrefixUser        = "user:"
	PrefixProduct     = "product:"
	PrefixGallery     = "gallery:"
	PrefixTestimonial = "testimonial:"
	PrefixOrder       = "order:"
	PrefixCart        = "cart:"
	PrefixWishlist    = "wishlist:"
)

// NewID builds a record identifier from the creation timestamp plus a random
// suffix: unique and roughly chronologically sortable.
func NewID() string {
	var suffix [4]byte
	_, _ = rand.Read(suffix[:])
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), hex.EncodeToString(suffix[:]))
}

type records struct {
	kv     kvstore.Store
	prefix string
}

func (r records) key(id string) string { return r.prefix + id }

func (r records) list(ctx context.Context) ([]datatypes.JSON, error) {
	return r.kv.ScanPrefix(ctx, r.prefix)
}

func (r records) get(ctx context.Context, id string, out any) error {
	raw, found, err := r.kv.Get(ctx, r.key(id))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s%s", apperr.ErrNotFound, r.prefix, id)
	}
	return json.Unmarshal(raw, out)
}

func (r records) put(ctx context.Context, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, r.key(id), raw)
}

// merge shallow-merges partial over the stored record: fields absent from
// partial are preserved unchanged. The record key and creation stamp are
// immutable and cannot be overwritten.
func (r records) merge(ctx context.Context, id string, partial map[string]any) (datatypes.JSON, error) {
	var merged datatypes.JSON
	err := r.kv.Update(ctx, r.key(id), func(raw datatypes.JSON, found bool) (datatypes.JSON, error) {
		if !found {
			return nil, fmt.Errorf("%w: %s%s", apperr.ErrNotFound, r.prefix, id)
		}
		var cur map[string]any
		if err := json.Unmarshal(raw, &cur); err != nil {
			return nil, err
		}
		for k, v := range partial {
			if k == "id" || k == "created_at" || k == "user_id" {
				continue
			}
			cur[k] = v
		}
		cur["updated_at"] = time.Now().Unix()
		out, err := json.Marshal(cur)
		if err != nil {
			return nil, err
		}
		merged = out
		return out, nil
	})
	return merged, err
}

func (r records) remove(ctx context.Context, id string) error {
	return r.kv.Delete(ctx, r.key(id))
}

func decodeEach[T any](raws []datatypes.JSON) ([]T, error) {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
