package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/craftberry/shop/internal/events"
	"github.com/craftberry/shop/internal/logging"
	"github.com/craftberry/shop/internal/models"
	"github.com/craftberry/shop/internal/repository"
	"github.com/craftberry/shop/internal/service/search"
	"github.com/craftberry/shop/internal/util"
)

type ProductHTTP struct {
	Products *repository.Products
	Searcher *search.Service
	Producer *events.Producer
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *ProductHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	all, err := h.Products.List(ctx)
	if err != nil {
		return serviceError(c, "list_products", err)
	}

	total := len(all)
	if from > total {
		from = total
	}
	end := from + limit
	if end > total {
		end = total
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"products": all[from:end],
		"meta": echo.Map{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + limit - 1) / limit,
		},
	})
}

func (h *ProductHTTP) Get(c echo.Context) error {
	prod, err := h.Products.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return serviceError(c, "get_product", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "product": prod})
}

func (h *ProductHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var prod models.Product
	if err := c.Bind(&prod); err != nil {
		return validationError("invalid body")
	}
	if err := h.Products.Create(ctx, &prod); err != nil {
		return serviceError(c, "create_product", err)
	}

	h.index(c, prod)
	h.publish(c, map[string]any{"type": "product_created", "product_id": prod.ID, "name": prod.Name})
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "product": prod})
}

func (h *ProductHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	var partial map[string]any
	if err := c.Bind(&partial); err != nil {
		return validationError("invalid body")
	}
	prod, err := h.Products.Update(ctx, id, partial)
	if err != nil {
		return serviceError(c, "update_product", err)
	}

	h.index(c, *prod)
	h.publish(c, map[string]any{"type": "product_updated", "product_id": prod.ID, "name": prod.Name})
	return c.JSON(http.StatusOK, echo.Map{"success": true, "product": prod})
}

func (h *ProductHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	if err := h.Products.Remove(ctx, id); err != nil {
		return serviceError(c, "delete_product", err)
	}
	if err := h.Searcher.DeleteProduct(ctx, id); err != nil {
		logging.FromContext(ctx).Warn("search_delete_failed", "product_id", id, "error", err)
	}
	h.publish(c, map[string]any{"type": "product_deleted", "product_id": id})
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *ProductHTTP) Search(c echo.Context) error {
	q := search.NormalizeQuery(c.QueryParam("q"))
	if q == "" {
		return validationError("query required")
	}
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	total, products, err := h.Searcher.Query(c.Request().Context(), q, from, limit)
	if err != nil {
		return serviceError(c, "search_products", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"total":    total,
		"products": products,
	})
}

func (h *ProductHTTP) index(c echo.Context, prod models.Product) {
	ctx := c.Request().Context()
	if err := h.Searcher.IndexProduct(ctx, prod); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "product_id", prod.ID, "error", err)
	}
}

func (h *ProductHTTP) publish(c echo.Context, event map[string]any) {
	ctx := c.Request().Context()
	key, _ := event["product_id"].(string)
	if err := h.Producer.PublishEvent(ctx, "product_events", key, event); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "error", err)
	}
}
