package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/craftberry/shop/internal/models"
	"github.com/craftberry/shop/internal/repository"
)

type StatsHTTP struct {
	Orders   *repository.Orders
	Users    *repository.Users
	Products *repository.Products
}

func (h *StatsHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()

	orders, err := h.Orders.ListAll(ctx)
	if err != nil {
		return serviceError(c, "stats_orders", err)
	}
	users, err := h.Users.List(ctx)
	if err != nil {
		return serviceError(c, "stats_users", err)
	}
	products, err := h.Products.List(ctx)
	if err != nil {
		return serviceError(c, "stats_products", err)
	}

	var revenue float64
	var pending int
	for _, ord := range orders {
		revenue += ord.Total
		if ord.Status == models.OrderStatusPending {
			pending++
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"stats": echo.Map{
			"total_orders":   len(orders),
			"total_revenue":  revenue,
			"total_users":    len(users),
			"total_products": len(products),
			"pending_orders": pending,
		},
	})
}
