package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
)

const WebhookTokenHeader = "X-Webhook-Token"

// WebhookTokenMiddleware checks a shared secret configured on the provider
// flow. An empty token disables the check.
func WebhookTokenMiddleware(token string) echo.MiddlewareFunc {
	token = strings.TrimSpace(token)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return next(c)
			}
			got := strings.TrimSpace(c.Request().Header.Get(WebhookTokenHeader))
			if got == "" {
				return c.String(http.StatusUnauthorized, "missing webhook token")
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return c.String(http.StatusUnauthorized, "invalid webhook token")
			}
			return next(c)
		}
	}
}
