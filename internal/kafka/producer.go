package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration // default 100ms
	// Async makes Publish return immediately; delivery errors go to OnError.
	Async   bool
	OnError func(err error, count int)
}

// Producer is a thin wrapper around segmentio/kafka-go Writer.
type Producer struct {
	w *kafka.Writer
}

func NewProducer(c ProducerConfig) *Producer {
	bt := c.BatchTimeout
	if bt <= 0 {
		bt = 100 * time.Millisecond
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           bt,
		RequiredAcks:           kafka.RequireOne,
		Async:                  c.Async,
		AllowAutoTopicCreation: true,
	}
	if c.OnError != nil {
		onErr := c.OnError
		w.Completion = func(messages []kafka.Message, err error) {
			if err != nil {
				onErr(err, len(messages))
			}
		}
	}

	return &Producer{w: w}
}

func (p *Producer) Publish(ctx context.Context, key, value []byte) error {
	return p.w.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
}

func (p *Producer) Close() error { return p.w.Close() }
