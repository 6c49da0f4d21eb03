// Package relay holds the Redirector's state and the three operations the HTTP
// endpoints expose: outbound send, webhook intake and the driver's STATUS poll.
package relay

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmehdipour/notify-redirector/internal/ackstore"
	"github.com/jmehdipour/notify-redirector/internal/inbox"
	"github.com/jmehdipour/notify-redirector/internal/journal"
	"github.com/jmehdipour/notify-redirector/internal/logger"
	"github.com/jmehdipour/notify-redirector/internal/metrics"
	"github.com/jmehdipour/notify-redirector/internal/model"
	"github.com/jmehdipour/notify-redirector/internal/provider"
	"github.com/jmehdipour/notify-redirector/internal/util"
	"go.uber.org/zap"
)

const DefaultErrorDetailMaxLen = 100

type Options struct {
	ValueMaxLen       int // per-value cap for buffered callbacks
	ErrorDetailMaxLen int // cap for the detail after "ERROR "
}

// Service owns the inbox and the relay-side ack store for the life of the process.
type Service struct {
	inbox   *inbox.Buffer
	acks    *ackstore.Store
	sender  provider.Sender
	journal journal.Journal

	valueMaxLen       int
	errorDetailMaxLen int
}

func NewService(
	box *inbox.Buffer,
	acks *ackstore.Store,
	sender provider.Sender,
	j journal.Journal,
	opts Options,
) *Service {
	if opts.ValueMaxLen <= 0 {
		opts.ValueMaxLen = inbox.DefaultValueMaxLen
	}
	if opts.ErrorDetailMaxLen <= 0 {
		opts.ErrorDetailMaxLen = DefaultErrorDetailMaxLen
	}
	if j == nil {
		j = journal.Nop{}
	}
	return &Service{
		inbox:             box,
		acks:              acks,
		sender:            sender,
		journal:           j,
		valueMaxLen:       opts.ValueMaxLen,
		errorDetailMaxLen: opts.ErrorDetailMaxLen,
	}
}

// SendResult is the synchronous answer to an outbound send.
type SendResult struct {
	OK     bool
	Detail string
}

// Send forwards n to the provider. Failures are reported, never retried.
func (s *Service) Send(ctx context.Context, n model.Notification, secret string) SendResult {
	log := logger.Log.With(
		zap.String("kind", n.Kind.String()),
		zap.String("phone", n.Recipient),
		zap.Int64("cookie", n.Cookie),
		logger.Mask(secret),
	)

	if err := s.sender.Send(ctx, n, secret); err != nil {
		detail := util.Truncate(err.Error(), s.errorDetailMaxLen)
		log.Warn("provider send failed", zap.String("provider", s.sender.Name()), zap.Error(err))
		metrics.NotificationsTotal.WithLabelValues(n.Kind.String(), "failed").Inc()
		s.journal.Record(model.Event{
			Kind:   model.EventNotifyFailed,
			Type:   n.Kind.String(),
			Phone:  n.Recipient,
			Cookie: n.Cookie,
			Detail: detail,
		})
		return SendResult{Detail: detail}
	}

	log.Info("notification sent", zap.String("provider", s.sender.Name()))
	metrics.NotificationsTotal.WithLabelValues(n.Kind.String(), "sent").Inc()
	s.journal.Record(model.Event{
		Kind:   model.EventNotifySent,
		Type:   n.Kind.String(),
		Phone:  n.Recipient,
		Cookie: n.Cookie,
	})
	return SendResult{OK: true}
}

// Reject records an outbound request refused before reaching the provider.
func (s *Service) Reject(kind string, err error) SendResult {
	detail := util.Truncate(err.Error(), s.errorDetailMaxLen)
	logger.Log.Warn("notify request rejected", zap.String("type", kind), zap.Error(err))
	metrics.NotificationsTotal.WithLabelValues(kind, "rejected").Inc()
	return SendResult{Detail: detail}
}

// Accept handles one provider webhook call given its raw query string and
// returns the reply body. ACKCHECK is answered from the ack store; everything
// else is queued for the driver.
func (s *Service) Accept(rawQuery string) string {
	pairs := inbox.ParseQuery(rawQuery)
	typ := model.CallbackType(inbox.Get(pairs, "type"))

	if typ == model.CallbackAckCheck {
		return s.ackCheck(inbox.Get(pairs, "cookie"))
	}

	log := logger.Log.With(zap.String("type", typ.String()))
	if !typ.Known() {
		log.Warn("unrecognized callback type, buffering as-is")
	}

	cookie, err := ParseCookie(inbox.Get(pairs, "cookie"))
	if err != nil {
		log.Warn("callback cookie ignored", zap.Error(err))
	}
	if typ == model.CallbackAckAlarm && cookie != 0 {
		_ = s.acks.MarkPending(cookie)
	}

	if dropped := s.inbox.Append(inbox.Encode(pairs, s.valueMaxLen)); dropped {
		metrics.InboxDroppedTotal.Inc()
		log.Warn("inbox full, oldest callback dropped")
	}
	metrics.CallbacksTotal.WithLabelValues(typ.String()).Inc()
	metrics.InboxDepth.Set(float64(s.inbox.Len()))

	// never log or journal the pin
	log.Info("callback buffered", zap.String("phone", inbox.Get(pairs, "phone")), zap.Int64("cookie", cookie))
	s.journal.Record(model.Event{
		Kind:   model.EventCallbackBuffered,
		Type:   typ.String(),
		Phone:  inbox.Get(pairs, "phone"),
		Cookie: cookie,
	})

	return WebhookReply
}

func (s *Service) ackCheck(rawCookie string) string {
	token, err := ParseCookie(rawCookie)
	if err != nil {
		logger.Log.Warn("ack check with bad cookie", zap.Error(err))
	}

	reply, result := AckReplyUnresolved, "unresolved"
	switch s.acks.Lookup(token) {
	case ackstore.StatusAccepted:
		reply, result = AckReplyAccepted, "accepted"
	case ackstore.StatusRejected:
		reply, result = AckReplyRejected, "rejected"
	}

	metrics.AckChecksTotal.WithLabelValues(result).Inc()
	logger.Log.Debug("ack check", zap.Int64("cookie", token), zap.String("result", result))
	s.journal.Record(model.Event{
		Kind:   model.EventAckCheck,
		Type:   model.CallbackAckCheck.String(),
		Cookie: token,
		Detail: result,
	})
	return reply
}

// StatusPoll stores the driver's pushed outcomes and drains the inbox.
func (s *Service) StatusPoll(outcomes []model.AckOutcome) []string {
	for _, o := range outcomes {
		if err := s.acks.Resolve(o.Token, o.Accepted); err != nil {
			logger.Log.Warn("ack outcome rejected", zap.Int64("cookie", o.Token), zap.Error(err))
			continue
		}
		logger.Log.Info("ack outcome stored", zap.Int64("cookie", o.Token), zap.Bool("accepted", o.Accepted))
	}

	records := s.inbox.Drain()
	metrics.StatusPollsTotal.Inc()
	metrics.InboxDepth.Set(float64(s.inbox.Len()))

	if len(outcomes) > 0 || len(records) > 0 {
		s.journal.Record(model.Event{
			Kind:   model.EventStatusPoll,
			Type:   model.RequestStatus,
			Detail: pollDetail(len(outcomes), len(records)),
		})
	}
	return records
}

// FormatRecords renders drained records as the STATUS reply body.
func FormatRecords(records []string) string {
	if len(records) == 0 {
		return ""
	}
	return strings.Join(records, "\n") + "\n"
}

func pollDetail(pushed, drained int) string {
	return fmt.Sprintf("pushed=%d drained=%d", pushed, drained)
}
