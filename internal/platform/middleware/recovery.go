package middleware

import (
	"fmt"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/apperr"
)

// Recovery converts a handler panic into the same error payload every
// other failure produces, after logging the stack with the request
// identity.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					stack := make([]byte, 8192)
					n := runtime.Stack(stack, false)

					rid, _ := c.Get("request_id").(string)
					logger.Error().
						Str("request_id", rid).
						Str("method", c.Request().Method).
						Str("path", c.Request().URL.Path).
						Interface("panic", r).
						Bytes("stack", stack[:n]).
						Msg("panic recovered")

					appErr := apperr.Internal(fmt.Errorf("panic: %v", r))
					err = c.JSON(apperr.HTTPStatus(appErr), apperr.ToPayload(appErr))
				}
			}()
			return next(c)
		}
	}
}
