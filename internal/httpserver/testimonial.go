package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/craftberry/shop/internal/models"
	"github.com/craftberry/shop/internal/repository"
)

type TestimonialHTTP struct {
	Testimonials *repository.Testimonials
}

func (h *TestimonialHTTP) List(c echo.Context) error {
	items, err := h.Testimonials.List(c.Request().Context())
	if err != nil {
		return serviceError(c, "list_testimonials", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "testimonials": items})
}

func (h *TestimonialHTTP) Create(c echo.Context) error {
	var item models.Testimonial
	if err := c.Bind(&item); err != nil {
		return validationError("invalid body")
	}
	if err := h.Testimonials.Create(c.Request().Context(), &item); err != nil {
		return serviceError(c, "create_testimonial", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "testimonial": item})
}

func (h *TestimonialHTTP) Update(c echo.Context) error {
	var partial map[string]any
	if err := c.Bind(&partial); err != nil {
		return validationError("invalid body")
	}
	item, err := h.Testimonials.Update(c.Request().Context(), c.Param("id"), partial)
	if err != nil {
		return serviceError(c, "update_testimonial", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "testimonial": item})
}

func (h *TestimonialHTTP) Delete(c echo.Context) error {
	if err := h.Testimonials.Remove(c.Request().Context(), c.Param("id")); err != nil {
		return serviceError(c, "delete_testimonial", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
