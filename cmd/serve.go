package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/notify-redirector/internal/ackstore"
	"github.com/jmehdipour/notify-redirector/internal/config"
	"github.com/jmehdipour/notify-redirector/internal/db"
	httpSrv "github.com/jmehdipour/notify-redirector/internal/http"
	"github.com/jmehdipour/notify-redirector/internal/inbox"
	"github.com/jmehdipour/notify-redirector/internal/journal"
	"github.com/jmehdipour/notify-redirector/internal/kafka"
	"github.com/jmehdipour/notify-redirector/internal/logger"
	"github.com/jmehdipour/notify-redirector/internal/provider"
	"github.com/jmehdipour/notify-redirector/internal/relay"
	"github.com/jmehdipour/notify-redirector/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Redirector HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.LogLevel)
		defer func() { _ = logger.Log.Sync() }()

		if cfg.Provider.FlowURL == "" || cfg.Provider.AccountSID == "" {
			logger.Log.Warn("provider flow_url or account_sid not set, every send will fail")
		}

		redisClient, err := db.NewRedisClient(db.RedisOpts{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		if redisClient != nil {
			defer func() { _ = redisClient.Close() }()
		}

		j, events, closeJournal, err := buildJournal(cfg)
		if err != nil {
			return err
		}
		defer closeJournal()

		sender := provider.NewFlowClient(
			cfg.Provider.Name,
			cfg.Provider.FlowURL,
			cfg.Provider.AccountSID,
			cfg.Provider.FromNumber,
			cfg.Provider.TimeoutMs,
			cfg.Provider.Breaker.FailThreshold,
			cfg.Provider.Breaker.OpenForMs,
		)

		svc := relay.NewService(
			inbox.NewBuffer(cfg.Relay.InboxMaxRecords),
			ackstore.New(ackstore.Options{Retention: cfg.Relay.AckRetention}),
			sender,
			j,
			relay.Options{
				ValueMaxLen:       cfg.Relay.ValueMaxLen,
				ErrorDetailMaxLen: cfg.Relay.ErrorDetailMaxLen,
			},
		)

		deps := httpSrv.Deps{Relay: svc, Redis: redisClient}
		if events != nil {
			deps.Events = events
		}
		server := httpSrv.NewServer(cfg, deps)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil {
				logger.Log.Error("http server exited", zap.Error(err))
			}
		}

		timeout := cfg.HTTP.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}

// buildJournal wires the configured sinks. events is non-nil only when the SQL
// sink is on, and backs /reports/events.
func buildJournal(cfg config.Config) (journal.Journal, *repository.EventsRepositoryImpl, func(), error) {
	var (
		sinks   []journal.Journal
		events  *repository.EventsRepositoryImpl
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Journal.Enabled("sql") {
		sqlDB, err := db.NewSQLConnection(db.SQLOpts{
			Driver:          cfg.Journal.SQL.Driver,
			DSN:             cfg.Journal.SQL.DSN,
			MaxOpenConns:    cfg.Journal.SQL.MaxOpenConns,
			MaxIdleConns:    cfg.Journal.SQL.MaxIdleConns,
			ConnMaxLifetime: cfg.Journal.SQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Journal.SQL.ConnMaxIdleTime,
			PingTimeout:     cfg.Journal.SQL.PingTimeout,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("journal sql connect: %w", err)
		}
		closers = append(closers, func() { _ = sqlDB.Close() })

		events = repository.NewEventsRepository(sqlDB)
		sj := journal.NewSQLJournal(events, cfg.Journal.BatchSize, cfg.Journal.BatchWait)
		sinks = append(sinks, sj)
		logger.Log.Info("journal: sql sink enabled", zap.String("driver", sqlDB.DriverName()))
	}

	if cfg.Journal.Enabled("kafka") {
		if len(cfg.Kafka.Brokers) == 0 {
			closeAll()
			return nil, nil, nil, fmt.Errorf("journal kafka sink: no brokers configured")
		}
		producer := kafka.NewProducer(kafka.ProducerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			Async:   true,
			OnError: func(err error, count int) {
				logger.Log.Warn("journal: kafka delivery failed", zap.Int("messages", count), zap.Error(err))
			},
		})
		sinks = append(sinks, journal.NewKafkaJournal(producer, time.Second))
		logger.Log.Info("journal: kafka sink enabled", zap.String("topic", cfg.Kafka.Topic))
	}

	j := journal.New(sinks...)
	// the journal flushes before its database goes away
	closers = append(closers, func() {
		if err := j.Close(); err != nil {
			logger.Log.Warn("journal close", zap.Error(err))
		}
	})
	return j, events, closeAll, nil
}
