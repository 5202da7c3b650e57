package audit

import (
	"context"

	"github.com/labstack/echo/v4"
)

type requestInfoKey struct{}

// RequestInfo carries request metadata attached to every audit entry written
// during a request.
type RequestInfo struct {
	IPAddress string
	UserAgent string
	Endpoint  string
	Method    string
	RequestID string
}

// WithRequestInfo stores request metadata in the context.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFromContext retrieves request metadata, if any.
func RequestInfoFromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info, ok
}

// ContextMiddleware captures request metadata into the request context so
// service-layer audit appends can record where a mutation came from.
func ContextMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid, _ := c.Get("request_id").(string)
			info := RequestInfo{
				IPAddress: c.RealIP(),
				UserAgent: req.UserAgent(),
				Endpoint:  req.URL.Path,
				Method:    req.Method,
				RequestID: rid,
			}
			c.SetRequest(req.WithContext(WithRequestInfo(req.Context(), info)))
			return next(c)
		}
	}
}
