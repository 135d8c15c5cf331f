package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/craftberry/shop/internal/apperr"
	"github.com/craftberry/shop/internal/blobstore"
	"github.com/craftberry/shop/internal/kvstore"
	"github.com/craftberry/shop/internal/models"
)

// Gallery items carry an uploaded binary object; removing an item also
// removes its object from the blob store.
type Gallery struct {
	rec   records
	blobs blobstore.Store
}

func NewGallery(kv kvstore.Store, blobs blobstore.Store) *Gallery {
	return &Gallery{rec: records{kv: kv, prefix: PrefixGallery}, blobs: blobs}
}

func (g *Gallery) List(ctx context.Context) ([]models.GalleryItem, error) {
	raws, err := g.rec.list(ctx)
	if err != nil {
		return nil, err
	}
	items, err := decodeEach[models.GalleryItem](raws)
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt > items[j].CreatedAt })
	return items, nil
}

func (g *Gallery) Get(ctx context.Context, id string) (*models.GalleryItem, error) {
	var item models.GalleryItem
	if err := g.rec.get(ctx, id, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (g *Gallery) Create(ctx context.Context, item *models.GalleryItem) error {
	if item.ImageURL == "" {
		return fmt.Errorf("%w: image_url required", apperr.ErrValidation)
	}
	item.ID = NewID()
	item.CreatedAt = time.Now().Unix()
	return g.rec.put(ctx, item.ID, item)
}

func (g *Gallery) Update(ctx context.Context, id string, partial map[string]any) (*models.GalleryItem, error) {
	merged, err := g.rec.merge(ctx, id, partial)
	if err != nil {
		return nil, err
	}
	var item models.GalleryItem
	if err := json.Unmarshal(merged, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Remove deletes the record and its stored object. Removing an absent item
// succeeds.
func (g *Gallery) Remove(ctx context.Context, id string) error {
	item, err := g.Get(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := g.rec.remove(ctx, id); err != nil {
		return err
	}
	if g.blobs != nil && item.ObjectPath != "" {
		return g.blobs.Delete(ctx, item.ObjectPath)
	}
	return nil
}

type Testimonials struct {
	rec records
}

func NewTestimonials(kv kvstore.Store) *Testimonials {
	return &Testimonials{rec: records{kv: kv, prefix: PrefixTestimonial}}
}

func (t *Testimonials) List(ctx context.Context) ([]models.Testimonial, error) {
	raws, err := t.rec.list(ctx)
	if err != nil {
		return nil, err
	}
	items, err := decodeEach[models.Testimonial](raws)
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt > items[j].CreatedAt })
	return items, nil
}

func (t *Testimonials) Create(ctx context.Context, item *models.Testimonial) error {
	if item.Text == "" {
		return fmt.Errorf("%w: text required", apperr.ErrValidation)
	}
	item.ID = NewID()
	item.CreatedAt = time.Now().Unix()
	return t.rec.put(ctx, item.ID, item)
}

func (t *Testimonials) Update(ctx context.Context, id string, partial map[string]any) (*models.Testimonial, error) {
	merged, err := t.rec.merge(ctx, id, partial)
	if err != nil {
		return nil, err
	}
	var item models.Testimonial
	if err := json.Unmarshal(merged, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (t *Testimonials) Remove(ctx context.Context, id string) error {
	return t.rec.remove(ctx, id)
}
