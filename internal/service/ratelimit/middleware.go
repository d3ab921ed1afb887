package ratelimit

import (
	xhttp "AutoValue/pkg/http"

	"github.com/labstack/echo/v4"
)

// Middleware rejects requests with 429 once the client's bucket is empty.
// Clients are keyed by their real IP. onLimited may be nil.
func Middleware(l *Limiter, onLimited func(c echo.Context)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l.Allow(c.RealIP()) {
				return next(c)
			}
			if onLimited != nil {
				onLimited(c)
			}
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
		}
	}
}
