package driver

import (
	"context"
	"time"

	"github.com/jmehdipour/notify-redirector/internal/logger"
	"go.uber.org/zap"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Runner drives the channel lifecycle and the scan ticker.
type Runner struct {
	Lifecycle *Lifecycle
	Relay     Pinger
	Scanner   *Scanner
	ScanRate  time.Duration
}

// Run blocks until ctx is cancelled. A transport failure while online drops
// the channel back to Connecting; the next tick reconnects it.
func (r *Runner) Run(ctx context.Context) error {
	rate := r.ScanRate
	if rate <= 0 {
		rate = 5 * time.Second
	}

	if err := r.Lifecycle.Connect(); err != nil {
		return err
	}
	defer func() { _ = r.Lifecycle.Disconnect() }()

	r.tick(ctx)

	t := time.NewTicker(rate)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	if r.Lifecycle.State() == StateConnecting {
		if err := r.Relay.Ping(ctx); err != nil {
			logger.Log.Warn("relay not reachable", zap.Error(err))
			return
		}
		if err := r.Lifecycle.Established(); err != nil {
			logger.Log.Warn("lifecycle", zap.Error(err))
			return
		}
	}

	if _, err := r.Scanner.Scan(ctx); err != nil && !IsRelayError(err) && ctx.Err() == nil {
		_ = r.Lifecycle.Degrade(err)
	}
}

// LogTransitions is a lifecycle observer that reports state changes as
// operator events.
func LogTransitions(ev Events) Observer {
	return func(from, to State, err error) {
		text := "Channel " + from.String() + " -> " + to.String()
		if err != nil {
			text += ": " + err.Error()
		}
		ev.LogEvent(text)
	}
}
