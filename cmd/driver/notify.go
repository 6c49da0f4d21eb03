package driver

import (
	"context"
	"fmt"

	"github.com/jmehdipour/notify-redirector/internal/driver"
	"github.com/jmehdipour/notify-redirector/internal/logger"
	"github.com/jmehdipour/notify-redirector/internal/model"
	"github.com/jmehdipour/notify-redirector/internal/relay"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send one notification through the Redirector",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		typ, _ := cmd.Flags().GetString("type")
		phone, _ := cmd.Flags().GetString("phone")
		message, _ := cmd.Flags().GetString("message")
		cookieStr, _ := cmd.Flags().GetString("cookie")

		kind, ok := model.ParseNotificationKind(typ)
		if !ok {
			return fmt.Errorf("invalid --type %q (VOICE or SMS)", typ)
		}
		cookie, err := relay.ParseCookie(cookieStr)
		if err != nil {
			return err
		}
		if phone == "" || message == "" {
			return fmt.Errorf("--phone and --message are required")
		}
		if cfg.Driver.APIKey == "" {
			return fmt.Errorf("driver.api_key is required")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Driver.Timeout)
		defer cancel()

		client := driver.NewClient(cfg.Driver.RelayURL, cfg.Driver.Timeout)
		n := driver.NewNotifier(client, cfg.Driver.APIKey, driver.NewLogEvents(logger.Log))
		if err := n.Notify(ctx, model.Notification{Kind: kind, Recipient: phone, Body: message, Cookie: cookie}); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Notify Message Send Successful.")
		return nil
	},
}

var testAckCmd = &cobra.Command{
	Use:   "test-ack",
	Short: "Check a user id and PIN against the configured acknowledge table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		user, _ := cmd.Flags().GetString("user")
		pin, _ := cmd.Flags().GetString("pin")
		cookie, _ := cmd.Flags().GetInt64("cookie")

		sink := driver.NewStaticAckSink(cfg.Driver.AckUsers)
		if err := sink.Attempt(cmd.Context(), user, pin, cookie, "no phone"); err != nil {
			logger.Log.Info("test acknowledge fail", zap.String("user", user), zap.Error(err))
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Test acknowledge success.")
		return nil
	},
}

func init() {
	notifyCmd.Flags().String("type", "SMS", "VOICE or SMS")
	notifyCmd.Flags().String("phone", "", "recipient phone number")
	notifyCmd.Flags().String("message", "", "message text")
	notifyCmd.Flags().String("cookie", "0", "alarm cookie, 0 when no acknowledge is expected")

	testAckCmd.Flags().String("user", "", "user id")
	testAckCmd.Flags().String("pin", "", "PIN")
	testAckCmd.Flags().Int64("cookie", 1, "alarm cookie")
}
