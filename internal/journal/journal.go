// Package journal records an audit trail of relay activity. It is write-only:
// nothing in the relay reads it back to rebuild state.
package journal

import (
	"errors"
	"time"

	"github.com/jmehdipour/notify-redirector/internal/model"
	"github.com/jmehdipour/notify-redirector/internal/util"
)

// Journal must not block the request path.
type Journal interface {
	Record(ev model.Event)
	Close() error
}

type Nop struct{}

func (Nop) Record(model.Event) {}
func (Nop) Close() error       { return nil }

// Multi fans every event out to all journals.
type Multi []Journal

func (m Multi) Record(ev model.Event) {
	stamp(&ev, time.Now().UTC())
	for _, j := range m {
		j.Record(ev)
	}
}

func (m Multi) Close() error {
	var errs []error
	for _, j := range m {
		if err := j.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New collapses the configured journals: none -> Nop, one -> itself.
func New(js ...Journal) Journal {
	switch len(js) {
	case 0:
		return Nop{}
	case 1:
		return js[0]
	default:
		return Multi(js)
	}
}

func stamp(ev *model.Event, now time.Time) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	if ev.ID == "" {
		ev.ID = util.NewID(ev.CreatedAt)
	}
}
