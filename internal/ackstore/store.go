// Package ackstore keeps the bounded-lifetime mapping from alarm cookie to
// acknowledge outcome. The relay and the driver each own one instance.
package ackstore

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jmehdipour/notify-redirector/internal/model"
)

// DefaultRetention is how long an entry stays visible after its last write.
const DefaultRetention = 100 * time.Second

var ErrInvalidToken = errors.New("ackstore: token must be non-zero")

type Status int

const (
	StatusUnknown Status = iota
	StatusPending
	StatusRejected
	StatusAccepted
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRejected:
		return "rejected"
	case StatusAccepted:
		return "accepted"
	default:
		return "unknown"
	}
}

// Resolved is true for accepted and rejected outcomes. Callers treat Pending and
// Unknown the same, since an expired entry is indistinguishable from a missing one.
func (s Status) Resolved() bool { return s == StatusAccepted || s == StatusRejected }

type entry struct {
	status    Status
	updatedAt time.Time
}

type Options struct {
	Retention time.Duration
	Now       func() time.Time
}

type Store struct {
	retention time.Duration
	now       func() time.Time

	mu      sync.Mutex
	entries map[int64]entry
}

func New(opts Options) *Store {
	retention := opts.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Store{
		retention: retention,
		now:       now,
		entries:   map[int64]entry{},
	}
}

// Resolve records the outcome for token. Last write wins.
func (s *Store) Resolve(token int64, accepted bool) error {
	if token == 0 {
		return ErrInvalidToken
	}
	st := StatusRejected
	if accepted {
		st = StatusAccepted
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(now)
	s.entries[token] = entry{status: st, updatedAt: now}
	return nil
}

// MarkPending notes that an acknowledge was requested for token. An existing
// resolution is left alone; a pending entry gets its timestamp refreshed.
func (s *Store) MarkPending(token int64) error {
	if token == 0 {
		return ErrInvalidToken
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(now)
	if e, ok := s.entries[token]; ok && e.status.Resolved() {
		return nil
	}
	s.entries[token] = entry{status: StatusPending, updatedAt: now}
	return nil
}

func (s *Store) Lookup(token int64) Status {
	if token == 0 {
		return StatusUnknown
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(now)
	e, ok := s.entries[token]
	if !ok {
		return StatusUnknown
	}
	return e.status
}

// Purge evicts every entry written at or before now-retention.
func (s *Store) Purge(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purgeLocked(now)
}

// Snapshot returns the live resolved outcomes, most recently updated first
// (ties by token), so a size-capped push always carries the newest ones.
func (s *Store) Snapshot() []model.AckOutcome {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(now)

	out := make([]model.AckOutcome, 0, len(s.entries))
	for token, e := range s.entries {
		if !e.status.Resolved() {
			continue
		}
		out = append(out, model.AckOutcome{
			Token:     token,
			Accepted:  e.status == StatusAccepted,
			UpdatedAt: e.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].Token < out[j].Token
	})
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// must be called with s.mu held
func (s *Store) purgeLocked(now time.Time) int {
	removed := 0
	for token, e := range s.entries {
		if now.Sub(e.updatedAt) >= s.retention {
			delete(s.entries, token)
			removed++
		}
	}
	return removed
}
