package model

import "time"

type EventKind string

const (
	EventNotifySent       EventKind = "notify_sent"
	EventNotifyFailed     EventKind = "notify_failed"
	EventCallbackBuffered EventKind = "callback_buffered"
	EventAckCheck         EventKind = "ack_check"
	EventStatusPoll       EventKind = "status_poll"
)

func (k EventKind) String() string { return string(k) }

func (k EventKind) Valid() bool {
	switch k {
	case EventNotifySent, EventNotifyFailed, EventCallbackBuffered, EventAckCheck, EventStatusPoll:
		return true
	}
	return false
}

// Event is one journal row. It never carries secrets or PINs.
type Event struct {
	ID        string    `db:"id"         json:"id"`
	Kind      EventKind `db:"kind"       json:"kind"`
	Type      string    `db:"type"       json:"type"`
	Phone     string    `db:"phone"      json:"phone,omitempty"`
	Cookie    int64     `db:"cookie"     json:"cookie,omitempty"`
	Detail    string    `db:"detail"     json:"detail,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
