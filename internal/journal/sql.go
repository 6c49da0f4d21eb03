package journal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmehdipour/notify-redirector/internal/logger"
	"github.com/jmehdipour/notify-redirector/internal/model"
	"github.com/jmehdipour/notify-redirector/internal/repository"
	"go.uber.org/zap"
)

// SQLJournal buffers events on a channel and flushes them to the events table
// by size or time, one transaction per batch.
type SQLJournal struct {
	repo      repository.EventsRepository
	batchSize int
	batchWait time.Duration

	mu      sync.RWMutex
	closed  bool
	in      chan model.Event
	done    chan struct{}
	dropped atomic.Uint64
}

func NewSQLJournal(repo repository.EventsRepository, batchSize int, batchWait time.Duration) *SQLJournal {
	if batchSize <= 0 {
		batchSize = 100
	}
	if batchWait <= 0 {
		batchWait = 500 * time.Millisecond
	}
	j := &SQLJournal{
		repo:      repo,
		batchSize: batchSize,
		batchWait: batchWait,
		in:        make(chan model.Event, batchSize*4),
		done:      make(chan struct{}),
	}
	go j.runBatchWriter()
	return j
}

// Record enqueues ev, dropping it when the writer is behind.
func (j *SQLJournal) Record(ev model.Event) {
	stamp(&ev, time.Now().UTC())

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}
	select {
	case j.in <- ev:
	default:
		j.dropped.Add(1)
		logger.Log.Warn("journal: sql writer behind, event dropped", zap.String("kind", ev.Kind.String()))
	}
}

func (j *SQLJournal) Dropped() uint64 { return j.dropped.Load() }

// Close flushes what is queued and stops the writer.
func (j *SQLJournal) Close() error {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.in)
	}
	j.mu.Unlock()
	<-j.done
	return nil
}

func (j *SQLJournal) runBatchWriter() {
	defer close(j.done)

	tick := time.NewTicker(j.batchWait)
	defer tick.Stop()

	batch := make([]model.Event, 0, j.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := j.repo.InsertBatch(ctx, nil, batch); err != nil {
			logger.Log.Error("journal: flush failed", zap.Int("events", len(batch)), zap.Error(err))
		} else {
			logger.Log.Debug("journal: flushed", zap.Int("events", len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-j.in:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= j.batchSize {
				flush()
			}

		case <-tick.C:
			flush()
		}
	}
}
