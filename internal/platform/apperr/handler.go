package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type errorResponse struct {
	Error string `json:"error"`
}

// ErrorHandler returns an echo HTTPErrorHandler that maps apperr kinds to
// status codes. Unexpected errors are logged in full and reported to the
// client as a generic failure without detail.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var appErr *Error
		if errors.As(err, &appErr) {
			_ = c.JSON(StatusOf(appErr), errorResponse{Error: appErr.Message})
			return
		}

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			msg, ok := httpErr.Message.(string)
			if !ok {
				msg = http.StatusText(httpErr.Code)
			}
			_ = c.JSON(httpErr.Code, errorResponse{Error: msg})
			return
		}

		logger.Error().
			Err(err).
			Str("path", c.Request().URL.Path).
			Str("method", c.Request().Method).
			Msg("unexpected error")
		_ = c.JSON(http.StatusInternalServerError, errorResponse{Error: "something unexpected happened"})
	}
}
