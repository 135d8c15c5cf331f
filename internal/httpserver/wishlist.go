package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	middleware "github.com/craftberry/shop/internal/middleware/auth"
	"github.com/craftberry/shop/internal/repository"
)

type WishlistHTTP struct {
	Wishlists *repository.Wishlists
}

func (h *WishlistHTTP) Get(c echo.Context) error {
	p := middleware.ProfileFrom(c)
	wl, err := h.Wishlists.Get(c.Request().Context(), p.ID)
	if err != nil {
		return serviceError(c, "get_wishlist", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "wishlist": wl})
}

func (h *WishlistHTTP) Add(c echo.Context) error {
	p := middleware.ProfileFrom(c)

	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := c.Bind(&req); err != nil {
		return validationError("invalid body")
	}
	if req.ProductID == "" {
		return validationError("product_id is required")
	}

	wl, err := h.Wishlists.Add(c.Request().Context(), p.ID, req.ProductID)
	if err != nil {
		return serviceError(c, "add_wishlist_item", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "wishlist": wl})
}

func (h *WishlistHTTP) Remove(c echo.Context) error {
	p := middleware.ProfileFrom(c)
	wl, err := h.Wishlists.Remove(c.Request().Context(), p.ID, c.Param("productId"))
	if err != nil {
		return serviceError(c, "remove_wishlist_item", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "wishlist": wl})
}
