package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/craftberry/shop/internal/apperr"
	"github.com/craftberry/shop/internal/logging"
)

// serviceError translates a collaborator failure into the HTTP error
// taxonomy. Errors outside the taxonomy surface only a short generic message;
// the detail goes to the log for operator diagnosis.
func serviceError(c echo.Context, op string, err error) error {
	code := apperr.Status(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	l := logging.FromContext(c.Request().Context())
	if code >= 500 {
		l.Error(op+"_failed", "status", code, "error", err)
	} else {
		l.Warn(op+"_failed", "status", code, "error", err)
	}
	return echo.NewHTTPError(code, msg)
}

func validationError(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

// ErrorHandler renders every failure as {"error": <message>}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "internal error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		}
	} else if status := apperr.Status(err); status != http.StatusInternalServerError {
		code = status
		msg = err.Error()
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, echo.Map{"error": msg})
}
