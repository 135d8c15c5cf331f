package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	middleware "github.com/craftberry/shop/internal/middleware/auth"
	"github.com/craftberry/shop/internal/models"
	"github.com/craftberry/shop/internal/repository"
)

type CartHTTP struct {
	Carts *repository.Carts
}

func (h *CartHTTP) Get(c echo.Context) error {
	p := middleware.ProfileFrom(c)
	cart, err := h.Carts.Get(c.Request().Context(), p.ID)
	if err != nil {
		return serviceError(c, "get_cart", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "cart": cart})
}

func (h *CartHTTP) Add(c echo.Context) error {
	p := middleware.ProfileFrom(c)

	var item models.CartItem
	if err := c.Bind(&item); err != nil {
		return validationError("invalid body")
	}
	if item.ProductID == "" {
		return validationError("product_id is required")
	}

	cart, err := h.Carts.AddItem(c.Request().Context(), p.ID, item)
	if err != nil {
		return serviceError(c, "add_cart_item", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "cart": cart})
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	p := middleware.ProfileFrom(c)

	cart, err := h.Carts.RemoveItem(
		c.Request().Context(),
		p.ID,
		c.Param("productId"),
		c.QueryParam("size"),
		c.QueryParam("color"),
	)
	if err != nil {
		return serviceError(c, "remove_cart_item", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "cart": cart})
}

func (h *CartHTTP) Clear(c echo.Context) error {
	p := middleware.ProfileFrom(c)
	if err := h.Carts.Clear(c.Request().Context(), p.ID); err != nil {
		return serviceError(c, "clear_cart", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
