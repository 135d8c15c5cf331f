package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	middleware "github.com/craftberry/shop/internal/middleware/auth"
	"github.com/craftberry/shop/internal/models"
	"github.com/craftberry/shop/internal/repository"
	"github.com/craftberry/shop/internal/service/order"
)

type OrderHTTP struct {
	Orders  *repository.Orders
	Service *order.Service
}

func (h *OrderHTTP) Create(c echo.Context) error {
	p := middleware.ProfileFrom(c)

	var req order.PlaceRequest
	if err := c.Bind(&req); err != nil {
		return validationError("invalid body")
	}

	ord, err := h.Service.Place(c.Request().Context(), p.ID, req)
	if err != nil {
		return serviceError(c, "place_order", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "order": ord})
}

// List returns the caller's own orders; admins see every order.
func (h *OrderHTTP) List(c echo.Context) error {
	p := middleware.ProfileFrom(c)
	ctx := c.Request().Context()

	var (
		orders []models.Order
		err    error
	)
	if p.Role == models.RoleAdmin {
		orders, err = h.Orders.ListAll(ctx)
	} else {
		orders, err = h.Orders.ListByUser(ctx, p.ID)
	}
	if err != nil {
		return serviceError(c, "list_orders", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "orders": orders})
}

func (h *OrderHTTP) Get(c echo.Context) error {
	p := middleware.ProfileFrom(c)

	ord, err := h.Orders.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return serviceError(c, "get_order", err)
	}
	if ord.UserID != p.ID && p.Role != models.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "order": ord})
}

func (h *OrderHTTP) Update(c echo.Context) error {
	var partial map[string]any
	if err := c.Bind(&partial); err != nil {
		return validationError("invalid body")
	}

	ord, err := h.Service.Update(c.Request().Context(), c.Param("id"), partial)
	if err != nil {
		return serviceError(c, "update_order", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "order": ord})
}
