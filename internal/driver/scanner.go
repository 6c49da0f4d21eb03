package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmehdipour/notify-redirector/internal/ackstore"
	"github.com/jmehdipour/notify-redirector/internal/inbox"
	"github.com/jmehdipour/notify-redirector/internal/logger"
	"github.com/jmehdipour/notify-redirector/internal/metrics"
	"github.com/jmehdipour/notify-redirector/internal/model"
	"github.com/jmehdipour/notify-redirector/internal/relay"
	"go.uber.org/zap"
)

// DefaultPollCooldown is the minimum spacing between two STATUS polls.
const DefaultPollCooldown = 10 * time.Second

type Poller interface {
	Poll(ctx context.Context, outcomes []model.AckOutcome) ([]string, error)
}

type ScannerOptions struct {
	Cooldown time.Duration
	Now      func() time.Time
}

// Scanner polls the relay, pushes local acknowledge outcomes and processes the
// callbacks it gets back.
type Scanner struct {
	poller Poller
	acks   *ackstore.Store
	sink   AckSink
	events Events

	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastPoll time.Time
}

func NewScanner(p Poller, acks *ackstore.Store, sink AckSink, ev Events, opts ScannerOptions) *Scanner {
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultPollCooldown
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scanner{
		poller:   p,
		acks:     acks,
		sink:     sink,
		events:   ev,
		cooldown: opts.Cooldown,
		now:      opts.Now,
	}
}

// Scan runs one poll cycle. Calls inside the cooldown return (false, nil)
// without touching the relay. A transport failure is returned as is; an ERROR
// reply raises the scanner alarm and is returned as a *RelayError.
func (s *Scanner) Scan(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.lastPoll.IsZero() && now.Sub(s.lastPoll) < s.cooldown {
		metrics.DriverPollsTotal.WithLabelValues("skipped").Inc()
		return false, nil
	}
	s.lastPoll = now

	outcomes := s.acks.Snapshot()
	for _, o := range outcomes {
		logger.Log.Debug("returning ack status", zap.Int64("cookie", o.Token), zap.Bool("accepted", o.Accepted))
	}

	lines, err := s.poller.Poll(ctx, outcomes)
	if err != nil {
		var re *RelayError
		if errors.As(err, &re) {
			metrics.DriverPollsTotal.WithLabelValues("relay_error").Inc()
			s.events.RaiseAlarm("Poll error from Redirector " + re.Body)
			return true, err
		}
		metrics.DriverPollsTotal.WithLabelValues("transport_error").Inc()
		s.events.LogEvent("Failed to poll Redirector: " + err.Error())
		return true, err
	}

	metrics.DriverPollsTotal.WithLabelValues("ok").Inc()
	s.events.ClearAlarm()
	for _, line := range lines {
		s.process(ctx, line)
	}
	return true, nil
}

func (s *Scanner) process(ctx context.Context, line string) {
	params := inbox.Decode(line)
	phone := params["phone"]
	typ := model.CallbackType(params["type"])

	switch typ {
	case model.CallbackErrorMessage:
		s.events.LogEvent(fmt.Sprintf("Notify Error: %s, Phone: %s", params["message"], phone))

	case model.CallbackAckAlarm:
		user := params["userid"]
		cookie, err := relay.ParseCookie(params["cookie"])
		if err != nil || cookie == 0 {
			metrics.DriverAcksTotal.WithLabelValues("invalid").Inc()
			s.events.LogEvent(fmt.Sprintf("Alarm Acknowledge Error: Invalid cookie. User: %s, Phone: %s", user, phone))
			return
		}

		err = s.sink.Attempt(ctx, user, params["pin"], cookie, phone)
		accepted := err == nil
		if accepted {
			metrics.DriverAcksTotal.WithLabelValues("accepted").Inc()
			s.events.LogEvent("Alarm Acknowledged. Phone: " + phone)
		} else {
			metrics.DriverAcksTotal.WithLabelValues("rejected").Inc()
			logger.Log.Info("acknowledge refused", zap.String("user", user), zap.Int64("cookie", cookie), zap.Error(err))
			s.events.LogEvent(fmt.Sprintf("Alarm Acknowledge Error: %s, Phone: %s, Cookie: %d", user, phone, cookie))
		}
		if err := s.acks.Resolve(cookie, accepted); err != nil {
			logger.Log.Warn("ack outcome not stored", zap.Int64("cookie", cookie), zap.Error(err))
		}

	default:
		logger.Log.Warn("ignoring relay record", zap.String("type", typ.String()))
	}
}
