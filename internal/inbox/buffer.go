// Package inbox buffers provider callbacks until the driver's next STATUS poll.
package inbox

import "sync"

// Buffer is a FIFO of opaque callback records. Delivery is at-most-once: a
// record handed out by Drain is gone.
type Buffer struct {
	mu      sync.Mutex
	records []string
	max     int
	dropped uint64
}

// NewBuffer creates a buffer holding at most max records (0 = unbounded).
// When full, the oldest record is dropped to make room.
func NewBuffer(max int) *Buffer {
	return &Buffer{max: max}
}

// Append queues rec and reports whether an older record was dropped for it.
func (b *Buffer) Append(rec string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := false
	if b.max > 0 && len(b.records) >= b.max {
		b.records = b.records[1:]
		b.dropped++
		dropped = true
	}
	b.records = append(b.records, rec)
	return dropped
}

// Drain returns every queued record in insertion order and empties the buffer.
func (b *Buffer) Drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.records
	b.records = nil
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Dropped is the number of records evicted by the size cap since start.
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
