package httpserver

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/craftberry/shop/internal/blobstore"
	"github.com/craftberry/shop/internal/models"
	"github.com/craftberry/shop/internal/repository"
)

type GalleryHTTP struct {
	Gallery *repository.Gallery
	Blobs   blobstore.Store
}

func (h *GalleryHTTP) List(c echo.Context) error {
	items, err := h.Gallery.List(c.Request().Context())
	if err != nil {
		return serviceError(c, "list_gallery", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "items": items})
}

func (h *GalleryHTTP) Create(c echo.Context) error {
	var item models.GalleryItem
	if err := c.Bind(&item); err != nil {
		return validationError("invalid body")
	}
	if err := h.Gallery.Create(c.Request().Context(), &item); err != nil {
		return serviceError(c, "create_gallery_item", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "item": item})
}

func (h *GalleryHTTP) Update(c echo.Context) error {
	var partial map[string]any
	if err := c.Bind(&partial); err != nil {
		return validationError("invalid body")
	}
	item, err := h.Gallery.Update(c.Request().Context(), c.Param("id"), partial)
	if err != nil {
		return serviceError(c, "update_gallery_item", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "item": item})
}

func (h *GalleryHTTP) Delete(c echo.Context) error {
	if err := h.Gallery.Remove(c.Request().Context(), c.Param("id")); err != nil {
		return serviceError(c, "delete_gallery_item", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

type galleryUploadRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Image       string `json:"image"`
}

// Upload stores a base64-encoded image in the blob store and records a
// gallery item pointing at its public URL. The image field also accepts a
// data URL ("data:image/png;base64,....").
func (h *GalleryHTTP) Upload(c echo.Context) error {
	ctx := c.Request().Context()

	var req galleryUploadRequest
	if err := c.Bind(&req); err != nil {
		return validationError("invalid body")
	}
	if req.Image == "" {
		return validationError("image is required")
	}

	payload := req.Image
	if strings.HasPrefix(payload, "data:") {
		if idx := strings.Index(payload, ","); idx >= 0 {
			if req.ContentType == "" {
				meta := payload[len("data:"):idx]
				req.ContentType = strings.TrimSuffix(meta, ";base64")
			}
			payload = payload[idx+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return validationError("image is not valid base64")
	}
	if len(data) == 0 {
		return validationError("image is empty")
	}

	name := req.Filename
	if name == "" {
		name = "upload"
	}
	obj, err := h.Blobs.Upload(ctx, name, data, req.ContentType)
	if err != nil {
		return serviceError(c, "upload_image", err)
	}

	item := models.GalleryItem{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    obj.PublicURL,
		ThumbURL:    obj.ThumbURL,
		ObjectPath:  obj.Path,
	}
	if item.Title == "" {
		item.Title = name
	}
	if err := h.Gallery.Create(ctx, &item); err != nil {
		return serviceError(c, "create_gallery_item", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success":   true,
		"item":      item,
		"image_url": obj.PublicURL,
		"thumb_url": obj.ThumbURL,
	})
}
