package driver

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/notify-redirector/internal/ackstore"
	"github.com/jmehdipour/notify-redirector/internal/driver"
	"github.com/jmehdipour/notify-redirector/internal/logger"
	"github.com/jmehdipour/notify-redirector/internal/metrics"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the Redirector and process provider callbacks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Log.Sync() }()

		metrics.MustRegister(prometheus.DefaultRegisterer)

		events := driver.NewLogEvents(logger.Log)
		client := driver.NewClient(cfg.Driver.RelayURL, cfg.Driver.Timeout)
		scanner := driver.NewScanner(
			client,
			ackstore.New(ackstore.Options{Retention: cfg.Driver.AckRetention}),
			driver.NewStaticAckSink(cfg.Driver.AckUsers),
			events,
			driver.ScannerOptions{Cooldown: cfg.Driver.PollCooldown},
		)
		runner := &driver.Runner{
			Lifecycle: driver.NewLifecycle(driver.LogTransitions(events)),
			Relay:     client,
			Scanner:   scanner,
			ScanRate:  cfg.Driver.ScanRate,
		}

		// graceful shutdown
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.Driver.MetricsAddr != "" {
			e := echo.New()
			e.HideBanner = true
			e.HidePort = true
			e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
			go func() {
				if err := e.Start(cfg.Driver.MetricsAddr); err != nil && err != http.ErrServerClosed {
					logger.Log.Error("driver metrics listener", zap.Error(err))
				}
			}()
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = e.Shutdown(sctx)
			}()
		}

		logger.Log.Info(">> driver started",
			zap.String("relay", cfg.Driver.RelayURL),
			zap.Duration("scan_rate", cfg.Driver.ScanRate),
			zap.Duration("poll_cooldown", cfg.Driver.PollCooldown),
			zap.Int("ack_users", len(cfg.Driver.AckUsers)),
		)

		return runner.Run(ctx)
	},
}
