package driver

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLifecycleTransitions(t *testing.T) {
	var seen []string
	l := NewLifecycle(func(from, to State, err error) {
		s := from.String() + ">" + to.String()
		if err != nil {
			s += "!"
		}
		seen = append(seen, s)
	})

	if err := l.Established(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Established from offline: %v", err)
	}
	steps := []func() error{
		l.Connect,
		l.Established,
		func() error { return l.Degrade(errors.New("timeout")) },
		l.Established,
		l.Disconnect,
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if l.State() != StateOffline {
		t.Fatalf("state = %s", l.State())
	}

	want := []string{
		"offline>connecting",
		"connecting>online",
		"online>connecting!",
		"connecting>online",
		"online>offline",
	}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Fatalf("transitions mismatch (-want +got):\n%s", diff)
	}

	if err := l.Disconnect(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double disconnect: %v", err)
	}
	if err := l.Degrade(nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("degrade while offline: %v", err)
	}
}
