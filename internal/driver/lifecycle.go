// Package driver is the control-system side of the relay: it sends
// notifications through the Redirector, polls it for provider callbacks and
// feeds acknowledge outcomes back.
package driver

import (
	"errors"
	"fmt"
	"sync"
)

type State int

const (
	StateOffline State = iota
	StateConnecting
	StateOnline
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOnline:
		return "online"
	default:
		return "offline"
	}
}

var ErrInvalidTransition = errors.New("driver: invalid state transition")

// Observer is told about every state change. err is set for Degrade.
type Observer func(from, to State, err error)

// Lifecycle is the channel state machine: Offline -> Connecting -> Online,
// Online -> Connecting on failure, anything -> Offline on Disconnect.
type Lifecycle struct {
	mu        sync.Mutex
	state     State
	observers []Observer
}

func NewLifecycle(obs ...Observer) *Lifecycle {
	return &Lifecycle{observers: obs}
}

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Lifecycle) Connect() error { return l.move(StateConnecting, nil, StateOffline) }

func (l *Lifecycle) Established() error { return l.move(StateOnline, nil, StateConnecting) }

func (l *Lifecycle) Degrade(err error) error { return l.move(StateConnecting, err, StateOnline) }

func (l *Lifecycle) Disconnect() error {
	return l.move(StateOffline, nil, StateConnecting, StateOnline)
}

func (l *Lifecycle) move(to State, cause error, allowed ...State) error {
	l.mu.Lock()
	from := l.state
	ok := false
	for _, s := range allowed {
		if s == from {
			ok = true
			break
		}
	}
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	l.state = to
	obs := l.observers
	l.mu.Unlock()

	for _, o := range obs {
		o(from, to, cause)
	}
	return nil
}
