package driver

import (
	"sync"

	"go.uber.org/zap"
)

// Events receives what the control system would show an operator: event log
// lines and the scanner alarm.
type Events interface {
	LogEvent(text string)
	RaiseAlarm(text string)
	ClearAlarm()
}

// LogEvents writes operator events to a zap logger.
type LogEvents struct {
	log *zap.Logger

	mu      sync.Mutex
	alarmed bool
}

func NewLogEvents(log *zap.Logger) *LogEvents {
	return &LogEvents{log: log.Named("events")}
}

func (e *LogEvents) LogEvent(text string) {
	e.log.Info("event", zap.String("text", text))
}

func (e *LogEvents) RaiseAlarm(text string) {
	e.mu.Lock()
	e.alarmed = true
	e.mu.Unlock()
	e.log.Error("scanner alarm raised", zap.String("text", text))
}

// ClearAlarm only logs when an alarm was actually active.
func (e *LogEvents) ClearAlarm() {
	e.mu.Lock()
	was := e.alarmed
	e.alarmed = false
	e.mu.Unlock()
	if was {
		e.log.Info("scanner alarm cleared")
	}
}

// Alarmed reports whether the scanner alarm is currently raised.
func (e *LogEvents) Alarmed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alarmed
}
