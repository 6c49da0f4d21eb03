package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jmehdipour/notify-redirector/internal/logger"
	"github.com/jmehdipour/notify-redirector/internal/model"
	"github.com/jmehdipour/notify-redirector/internal/relay"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// notifyRequestHandler serves the driver. Failures are reported in the body
// with HTTP 200, since the request itself was well formed.
func notifyRequestHandler(svc *relay.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		q := c.QueryParams()

		if q.Get("type") == model.RequestStatus {
			outcomes, errs := relay.ParseAckPush(q)
			for _, err := range errs {
				logger.Log.Warn("status poll: ack pair skipped", zap.Error(err))
			}
			records := svc.StatusPoll(outcomes)
			return c.String(http.StatusOK, relay.FormatRecords(records))
		}

		n, key, err := relay.ParseNotifyRequest(q)
		if err != nil {
			res := svc.Reject(q.Get("type"), err)
			return c.String(http.StatusOK, relay.ErrorPrefix+res.Detail)
		}

		res := svc.Send(c.Request().Context(), n, key)
		if !res.OK {
			return c.String(http.StatusOK, relay.ErrorPrefix+res.Detail)
		}

		return c.HTML(http.StatusOK, fmt.Sprintf(
			"<HTML><BODY>NotifyRequest<br>%s</BODY></HTML>",
			time.Now().Format(time.DateTime),
		))
	}
}
