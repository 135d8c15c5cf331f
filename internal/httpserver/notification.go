package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	middleware "github.com/craftberry/shop/internal/middleware/auth"
	"github.com/craftberry/shop/internal/service/notification"
)

type NotificationHTTP struct {
	Notifications *notification.Service
}

func (h *NotificationHTTP) List(c echo.Context) error {
	p := middleware.ProfileFrom(c)
	items, err := h.Notifications.List(c.Request().Context(), p.ID)
	if err != nil {
		return serviceError(c, "list_notifications", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "notifications": items})
}

func (h *NotificationHTTP) MarkRead(c echo.Context) error {
	p := middleware.ProfileFrom(c)
	item, err := h.Notifications.MarkRead(c.Request().Context(), p.ID, c.Param("id"))
	if err != nil {
		return serviceError(c, "mark_notification_read", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "notification": item})
}

func (h *NotificationHTTP) Delete(c echo.Context) error {
	p := middleware.ProfileFrom(c)
	if err := h.Notifications.Delete(c.Request().Context(), p.ID, c.Param("id")); err != nil {
		return serviceError(c, "delete_notification", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
