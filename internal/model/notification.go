package model

import "strings"

// NotificationKind selects how the provider flow reaches the recipient.
type NotificationKind string

const (
	KindVoice NotificationKind = "VOICE"
	KindSMS   NotificationKind = "SMS"
)

func (k NotificationKind) String() string { return string(k) }

func (k NotificationKind) Valid() bool {
	return k == KindVoice || k == KindSMS
}

// ParseNotificationKind normalizes input (case-insensitive).
// Returns (value, true) if valid; otherwise ("", false).
func ParseNotificationKind(s string) (NotificationKind, bool) {
	switch NotificationKind(strings.ToUpper(strings.TrimSpace(s))) {
	case KindVoice:
		return KindVoice, true
	case KindSMS:
		return KindSMS, true
	default:
		return "", false
	}
}

// Notification is one outbound send. Cookie 0 means no acknowledge is expected.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Recipient string           `json:"recipient"`
	Body      string           `json:"body"`
	Cookie    int64            `json:"cookie"`
}

func (n Notification) ExpectsAck() bool { return n.Cookie != 0 }
