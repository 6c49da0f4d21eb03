package http

import (
	"net/http"

	"github.com/jmehdipour/notify-redirector/internal/relay"
	"github.com/labstack/echo/v4"
)

// webhookHandler passes the raw query on so key order survives into the
// buffered record.
func webhookHandler(svc *relay.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, svc.Accept(c.Request().URL.RawQuery))
	}
}
