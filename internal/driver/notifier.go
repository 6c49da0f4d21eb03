package driver

import (
	"context"
	"errors"

	"github.com/jmehdipour/notify-redirector/internal/logger"
	"github.com/jmehdipour/notify-redirector/internal/model"
	"github.com/jmehdipour/notify-redirector/internal/util"
	"go.uber.org/zap"
)

const alarmTextMaxLen = 100

type RelaySender interface {
	Notify(ctx context.Context, n model.Notification, apiKey string) (string, error)
}

// Notifier is the control system's "send notification" action.
type Notifier struct {
	relay  RelaySender
	apiKey string
	events Events
}

func NewNotifier(r RelaySender, apiKey string, ev Events) *Notifier {
	return &Notifier{relay: r, apiKey: apiKey, events: ev}
}

// Notify forwards n. Any failure raises the scanner alarm; success clears it.
func (n *Notifier) Notify(ctx context.Context, msg model.Notification) error {
	logger.Log.Info("notify message",
		zap.String("phone", msg.Recipient),
		zap.String("kind", msg.Kind.String()),
		zap.Int64("cookie", msg.Cookie),
	)

	_, err := n.relay.Notify(ctx, msg, n.apiKey)
	if err != nil {
		var re *RelayError
		if errors.As(err, &re) {
			n.events.RaiseAlarm("Error from Redirector " + util.Truncate(re.Body, alarmTextMaxLen))
		} else {
			n.events.RaiseAlarm(util.Truncate(err.Error(), alarmTextMaxLen))
		}
		return err
	}

	n.events.ClearAlarm()
	return nil
}
