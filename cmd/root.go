package cmd

import (
	"fmt"
	"os"

	"github.com/jmehdipour/notify-redirector/cmd/driver"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	rootCmd = &cobra.Command{
		Use:   "notify-redirector",
		Short: "Relay between a polling control-system driver and a webhook messaging provider",
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(driver.NewDriverCmd())
}
