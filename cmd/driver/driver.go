package driver

import (
	"fmt"
	"strings"

	"github.com/jmehdipour/notify-redirector/internal/config"
	"github.com/jmehdipour/notify-redirector/internal/logger"
	"github.com/spf13/cobra"
)

// NewDriverCmd returns the parent "driver" command.
func NewDriverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "driver",
		Short: "Run the control-system side against a Redirector",
	}
	// attach subcommands
	cmd.AddCommand(runCmd)
	cmd.AddCommand(notifyCmd)
	cmd.AddCommand(testAckCmd)

	return cmd
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(cfg.Driver.RelayURL) == "" {
		return config.Config{}, fmt.Errorf("driver.relay_url is required")
	}
	logger.Init(cfg.LogLevel)
	return cfg, nil
}
