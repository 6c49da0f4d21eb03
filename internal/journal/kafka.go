package journal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmehdipour/notify-redirector/internal/logger"
	"github.com/jmehdipour/notify-redirector/internal/model"
	"go.uber.org/zap"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
	Close() error
}

// KafkaJournal publishes every event as JSON keyed by its kind. Pair it with an
// async producer so Record returns without waiting on the brokers.
type KafkaJournal struct {
	p       Publisher
	timeout time.Duration
}

func NewKafkaJournal(p Publisher, timeout time.Duration) *KafkaJournal {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &KafkaJournal{p: p, timeout: timeout}
}

func (j *KafkaJournal) Record(ev model.Event) {
	stamp(&ev, time.Now().UTC())
	b, err := json.Marshal(ev)
	if err != nil {
		logger.Log.Warn("journal: marshal event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	if err := j.p.Publish(ctx, []byte(ev.Kind.String()), b); err != nil {
		logger.Log.Warn("journal: kafka publish failed",
			zap.String("event_id", ev.ID), zap.String("kind", ev.Kind.String()), zap.Error(err))
	}
}

func (j *KafkaJournal) Close() error { return j.p.Close() }
