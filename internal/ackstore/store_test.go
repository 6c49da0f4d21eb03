package ackstore

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jmehdipour/notify-redirector/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestResolveThenLookup(t *testing.T) {
	s := New(Options{})

	if err := s.Resolve(555, true); err != nil {
		t.Fatalf("resolve accepted: %v", err)
	}
	if err := s.Resolve(556, false); err != nil {
		t.Fatalf("resolve rejected: %v", err)
	}

	if got := s.Lookup(555); got != StatusAccepted {
		t.Errorf("lookup 555 = %s, want accepted", got)
	}
	if got := s.Lookup(556); got != StatusRejected {
		t.Errorf("lookup 556 = %s, want rejected", got)
	}
	if got := s.Lookup(999); got != StatusUnknown {
		t.Errorf("lookup 999 = %s, want unknown", got)
	}
}

func TestResolveRejectsZeroToken(t *testing.T) {
	s := New(Options{})

	if err := s.Resolve(0, true); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if err := s.MarkPending(0); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken from MarkPending, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected no entries, got %d", s.Len())
	}
	if got := s.Lookup(0); got != StatusUnknown {
		t.Errorf("lookup 0 = %s, want unknown", got)
	}
}

func TestRetentionWindow(t *testing.T) {
	clock := newFakeClock()
	s := New(Options{Retention: 100 * time.Second, Now: clock.Now})

	if err := s.Resolve(42, true); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	clock.Advance(99*time.Second + 999*time.Millisecond)
	if got := s.Lookup(42); got != StatusAccepted {
		t.Fatalf("lookup just before expiry = %s, want accepted", got)
	}

	clock.Advance(time.Millisecond)
	if got := s.Lookup(42); got != StatusUnknown {
		t.Fatalf("lookup at expiry = %s, want unknown", got)
	}
	if s.Len() != 0 {
		t.Fatalf("expected expired entry purged, got %d entries", s.Len())
	}
}

func TestLastWriteWins(t *testing.T) {
	clock := newFakeClock()
	s := New(Options{Now: clock.Now})

	_ = s.Resolve(7, true)
	clock.Advance(90 * time.Second)
	_ = s.Resolve(7, false)
	clock.Advance(90 * time.Second)

	// the second write refreshed the timestamp
	if got := s.Lookup(7); got != StatusRejected {
		t.Fatalf("lookup = %s, want rejected", got)
	}
}

func TestMarkPendingDoesNotDowngrade(t *testing.T) {
	s := New(Options{})

	if err := s.MarkPending(10); err != nil {
		t.Fatalf("mark pending: %v", err)
	}
	if got := s.Lookup(10); got != StatusPending {
		t.Fatalf("lookup = %s, want pending", got)
	}
	if got := s.Lookup(10); got.Resolved() {
		t.Fatalf("pending must not count as resolved")
	}

	_ = s.Resolve(10, true)
	_ = s.MarkPending(10)
	if got := s.Lookup(10); got != StatusAccepted {
		t.Fatalf("lookup after re-request = %s, want accepted", got)
	}
}

func TestPurgeReturnsRemoved(t *testing.T) {
	clock := newFakeClock()
	s := New(Options{Now: clock.Now})

	_ = s.Resolve(1, true)
	_ = s.Resolve(2, true)
	clock.Advance(50 * time.Second)
	_ = s.Resolve(3, false)

	if n := s.Purge(clock.Now().Add(60 * time.Second)); n != 2 {
		t.Fatalf("purged %d, want 2", n)
	}
	if s.Len() != 1 {
		t.Fatalf("remaining %d, want 1", s.Len())
	}
}

func TestSnapshotSkipsPendingAndExpired(t *testing.T) {
	clock := newFakeClock()
	s := New(Options{Now: clock.Now})

	_ = s.Resolve(30, true)
	clock.Advance(101 * time.Second)
	_ = s.Resolve(20, false)
	_ = s.Resolve(10, true)
	_ = s.MarkPending(15)

	now := clock.Now()
	want := []model.AckOutcome{
		{Token: 10, Accepted: true, UpdatedAt: now},
		{Token: 20, Accepted: false, UpdatedAt: now},
	}
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotNewestFirst(t *testing.T) {
	clock := newFakeClock()
	s := New(Options{Now: clock.Now})

	_ = s.Resolve(1, true)
	clock.Advance(time.Second)
	_ = s.Resolve(500, false)
	clock.Advance(time.Second)
	_ = s.Resolve(2, true)

	var got []int64
	for _, o := range s.Snapshot() {
		got = append(got, o.Token)
	}
	if diff := cmp.Diff([]int64{2, 500, 1}, got); diff != "" {
		t.Fatalf("snapshot order mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrentResolveAndLookup(t *testing.T) {
	s := New(Options{})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(2)
		go func(token int64) {
			defer wg.Done()
			_ = s.Resolve(token, token%2 == 0)
		}(int64(i))
		go func(token int64) {
			defer wg.Done()
			_ = s.Lookup(token)
		}(int64(i))
	}
	wg.Wait()

	if s.Len() != 50 {
		t.Fatalf("entries = %d, want 50", s.Len())
	}
	if got := s.Lookup(2); got != StatusAccepted {
		t.Errorf("lookup 2 = %s, want accepted", got)
	}
}
