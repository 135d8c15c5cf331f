package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/labstack/echo/v4"

	"github.com/craftberry/shop/internal/logging"
	middleware "github.com/craftberry/shop/internal/middleware/auth"
	"github.com/craftberry/shop/internal/models"
)

type Deps struct {
	Auth          *AuthHTTP
	Products      *ProductHTTP
	Cart          *CartHTTP
	Wishlist      *WishlistHTTP
	Orders        *OrderHTTP
	Gallery       *GalleryHTTP
	Testimonials  *TestimonialHTTP
	Notifications *NotificationHTTP
	Stats         *StatsHTTP
	AuthMW        *middleware.Middleware
	Logger        *slog.Logger
	UploadsDir    string
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = ErrorHandler
	e.Use(RequestLogger(d.Logger), requestMetrics)

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, "text/plain; charset=utf-8")
		metrics.WritePrometheus(c.Response(), true)
		return nil
	})

	if d.UploadsDir != "" {
		e.Static("/uploads", d.UploadsDir)
	}

	requireAuth := d.AuthMW.RequireAuth
	adminOnly := d.AuthMW.RequireRole(models.RoleAdmin)

	auth := e.Group("/auth")
	auth.POST("/signup", d.Auth.Signup)
	auth.POST("/admin-signup", d.Auth.AdminSignup)
	auth.POST("/login", d.Auth.Login)
	auth.GET("/user", d.Auth.Me, requireAuth)
	auth.POST("/forgot-password", d.Auth.ForgotPassword)
	auth.POST("/verify-reset-token", d.Auth.VerifyResetToken)
	auth.POST("/reset-password", d.Auth.ResetPassword)

	products := e.Group("/products")
	products.GET("", d.Products.List)
	products.GET("/search", d.Products.Search)
	products.GET("/:id", d.Products.Get)
	products.POST("", d.Products.Create, adminOnly)
	products.PUT("/:id", d.Products.Update, adminOnly)
	products.DELETE("/:id", d.Products.Delete, adminOnly)

	cart := e.Group("/cart", requireAuth)
	cart.GET("", d.Cart.Get)
	cart.POST("", d.Cart.Add)
	cart.DELETE("", d.Cart.Clear)
	cart.DELETE("/:productId", d.Cart.RemoveItem)

	wishlist := e.Group("/wishlist", requireAuth)
	wishlist.GET("", d.Wishlist.Get)
	wishlist.POST("", d.Wishlist.Add)
	wishlist.DELETE("/:productId", d.Wishlist.Remove)

	orders := e.Group("/orders", requireAuth)
	orders.POST("", d.Orders.Create)
	orders.GET("", d.Orders.List)
	orders.GET("/:id", d.Orders.Get)
	orders.PUT("/:id", d.Orders.Update, adminOnly)

	testimonials := e.Group("/testimonials")
	testimonials.GET("", d.Testimonials.List)
	testimonials.POST("", d.Testimonials.Create, adminOnly)
	testimonials.PUT("/:id", d.Testimonials.Update, adminOnly)
	testimonials.DELETE("/:id", d.Testimonials.Delete, adminOnly)

	gallery := e.Group("/gallery")
	gallery.GET("", d.Gallery.List)
	gallery.POST("", d.Gallery.Create, adminOnly)
	gallery.POST("/upload", d.Gallery.Upload, adminOnly)
	gallery.PUT("/:id", d.Gallery.Update, adminOnly)
	gallery.DELETE("/:id", d.Gallery.Delete, adminOnly)

	notifications := e.Group("/notifications", requireAuth)
	notifications.GET("", d.Notifications.List)
	notifications.POST("/:id/read", d.Notifications.MarkRead)
	notifications.DELETE("/:id", d.Notifications.Delete)

	e.GET("/stats", d.Stats.Get, adminOnly)
}

// RequestLogger binds a per-request logger into the context and emits one
// completion line per request.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	if base == nil {
		base = slog.Default()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := base.With(
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"remote_ip", c.RealIP(),
			)
			if rid := c.Request().Header.Get(echo.HeaderXRequestID); rid != "" {
				l = l.With("request_id", rid)
				c.Response().Header().Set(echo.HeaderXRequestID, rid)
			}

			req := c.Request().WithContext(logging.IntoContext(c.Request().Context(), l))
			c.SetRequest(req)

			start := time.Now()
			err := next(c)
			dur := time.Since(start)
			status := c.Response().Status

			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
				status = c.Response().Status
			}

			switch {
			case err != nil && status >= 500, status >= 500:
				l.Error("request completed", "status", status, "duration_ms", dur.Milliseconds())
			case status >= 400:
				l.Warn("request completed", "status", status, "duration_ms", dur.Milliseconds())
			default:
				l.Info("request completed", "status", status, "duration_ms", dur.Milliseconds())
			}
			return nil
		}
	}
}

func requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		status := c.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else {
				status = http.StatusInternalServerError
			}
		}
		metrics.GetOrCreateCounter(fmt.Sprintf(
			`http_requests_total{method=%q,status="%d"}`,
			c.Request().Method, status,
		)).Inc()
		return err
	}
}
