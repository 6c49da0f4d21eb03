package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/notify-redirector/internal/config"
	"github.com/jmehdipour/notify-redirector/internal/kafka"
	"github.com/jmehdipour/notify-redirector/internal/logger"
	"github.com/jmehdipour/notify-redirector/internal/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the relay journal",
}

var journalTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print journal events from the Kafka topic as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.LogLevel)

		if len(cfg.Kafka.Brokers) == 0 {
			return fmt.Errorf("no kafka brokers configured")
		}
		kind, _ := cmd.Flags().GetString("kind")

		consumer := kafka.NewConsumerFromConfig(kafka.Config{
			Brokers:        cfg.Kafka.Brokers,
			Topic:          cfg.Kafka.Topic,
			GroupID:        cfg.Kafka.GroupID,
			MinBytes:       cfg.Kafka.MinBytes,
			MaxBytes:       cfg.Kafka.MaxBytes,
			CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
		})
		defer consumer.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Log.Info("journal tail started", zap.String("topic", cfg.Kafka.Topic), zap.String("group", cfg.Kafka.GroupID))

		out := cmd.OutOrStdout()
		return consumer.Each(ctx, func(m kafka.Message) error {
			var ev model.Event
			if err := json.Unmarshal(m.Value, &ev); err != nil {
				// poison message: log and move past it
				logger.Log.Warn("journal tail: bad message", zap.Int64("offset", m.Offset), zap.Error(err))
				return nil
			}
			if kind != "" && ev.Kind.String() != kind {
				return nil
			}
			_, err := fmt.Fprintf(out, "%s %-17s %-12s phone=%s cookie=%d %s\n",
				ev.CreatedAt.Format(time.RFC3339), ev.Kind, ev.Type, ev.Phone, ev.Cookie, ev.Detail)
			return err
		})
	},
}

func init() {
	journalTailCmd.Flags().String("kind", "", "only print events of this kind")
	journalCmd.AddCommand(journalTailCmd)
}
