package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/jmehdipour/notify-redirector/internal/config"
	"github.com/jmehdipour/notify-redirector/internal/http/middleware"
	"github.com/jmehdipour/notify-redirector/internal/logger"
	"github.com/jmehdipour/notify-redirector/internal/metrics"
	"github.com/jmehdipour/notify-redirector/internal/relay"
	"github.com/jmehdipour/notify-redirector/internal/repository"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// accessLogFormat is echo's default JSON line with the path and the request
// type in place of the full uri: query strings carry the provider token (key)
// and acknowledge PINs (pin).
const accessLogFormat = `{"time":"${time_rfc3339_nano}","id":"${id}","remote_ip":"${remote_ip}",` +
	`"host":"${host}","method":"${method}","path":"${path}","type":"${query:type}",` +
	`"user_agent":"${user_agent}","status":${status},"error":"${error}","latency":${latency},` +
	`"latency_human":"${latency_human}","bytes_in":${bytes_in},"bytes_out":${bytes_out}}` + "\n"

// Deps are the collaborators built by the serve command. Events, Redis and
// AccessLog are optional; a nil AccessLog writes to stdout.
type Deps struct {
	Relay     *relay.Service
	Events    repository.EventsRepository
	Redis     *redis.Client
	AccessLog io.Writer
}

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(echoLogLevel(cfg.LogLevel))
	e.Use(echoMid.Recover(), echoMid.LoggerWithConfig(echoMid.LoggerConfig{
		Format: accessLogFormat,
		Output: deps.AccessLog,
	}))

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// driver side: no authentication, the relay is reached over a private link
	notify := notifyRequestHandler(deps.Relay)
	e.GET("/NotifyRequest/", notify)
	e.GET("/NotifyRequest", notify)

	// provider side
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          deps.Redis,
		DefaultRPS:     cfg.RateLimit.RPS,
		KeyPrefix:      "rl:ip:",
		Window:         time.Second,
		RetryAfterHint: true,
	})
	tokenMW := middleware.WebhookTokenMiddleware(cfg.Relay.WebhookToken)

	webhook := webhookHandler(deps.Relay)
	e.GET("/TwilioRequest/", webhook, rlMW, tokenMW)
	e.GET("/TwilioRequest", webhook, rlMW, tokenMW)

	if deps.Events != nil {
		e.GET("/reports/events", listEventsHandler(deps.Events))
	}

	return &Server{e: e}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error {
	logger.Log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

func echoLogLevel(level string) log.Lvl {
	switch level {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}
