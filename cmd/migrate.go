package cmd

import (
	"fmt"

	"github.com/jmehdipour/notify-redirector/internal/config"
	"github.com/jmehdipour/notify-redirector/internal/db"
	"github.com/jmehdipour/notify-redirector/internal/logger"
	"github.com/jmehdipour/notify-redirector/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the journal tables on the configured SQL database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.LogLevel)

		driver, err := db.NormalizeDriver(cfg.Journal.SQL.Driver)
		if err != nil {
			return err
		}
		ms, err := migrations.For(driver)
		if err != nil {
			return err
		}

		sqlDB, err := db.NewSQLConnection(db.SQLOpts{
			Driver:          driver,
			DSN:             cfg.Journal.SQL.DSN,
			MaxOpenConns:    cfg.Journal.SQL.MaxOpenConns,
			MaxIdleConns:    cfg.Journal.SQL.MaxIdleConns,
			ConnMaxLifetime: cfg.Journal.SQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Journal.SQL.ConnMaxIdleTime,
			PingTimeout:     cfg.Journal.SQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer sqlDB.Close()

		for _, m := range ms {
			if _, err := sqlDB.ExecContext(cmd.Context(), m.SQL); err != nil {
				return fmt.Errorf("exec migration %s: %w", m.Name, err)
			}
			logger.Log.Info("migration applied", zap.String("name", m.Name), zap.String("driver", driver))
		}

		fmt.Println(">> Migration complete")
		return nil
	},
}
