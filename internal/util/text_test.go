package util

import (
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"hello", 0, ""},
	}
	for _, c := range cases {
		if got := Truncate(c.in, c.n); got != c.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}

	long := strings.Repeat("x", 250)
	if got := Truncate(long, 200); len(got) != 200 {
		t.Errorf("expected 200 runes, got %d", len(got))
	}
}

func TestNewIDIsULID(t *testing.T) {
	now := time.Now()
	id := NewID(now)
	parsed, err := ulid.Parse(id)
	if err != nil {
		t.Fatalf("parse %q: %v", id, err)
	}
	if parsed.Time() != ulid.Timestamp(now) {
		t.Errorf("ulid time = %d, want %d", parsed.Time(), ulid.Timestamp(now))
	}
}
