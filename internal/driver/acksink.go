package driver

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
)

var ErrAccessDenied = errors.New("driver: access denied, incorrect user id or pin")

// AckSink performs the acknowledge against the control system. A nil error
// means the alarm identified by cookie was accepted.
type AckSink interface {
	Attempt(ctx context.Context, userID, pin string, cookie int64, phone string) error
}

// StaticAckSink checks credentials against a fixed user id -> PIN table.
// User ids are matched case-insensitively.
type StaticAckSink struct {
	users map[string]string
}

func NewStaticAckSink(users map[string]string) *StaticAckSink {
	m := make(map[string]string, len(users))
	for u, pin := range users {
		m[strings.ToLower(strings.TrimSpace(u))] = pin
	}
	return &StaticAckSink{users: m}
}

func (s *StaticAckSink) Attempt(ctx context.Context, userID, pin string, cookie int64, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cookie == 0 {
		return errors.New("driver: invalid cookie")
	}
	want, ok := s.users[strings.ToLower(strings.TrimSpace(userID))]
	if !ok || pin == "" || subtle.ConstantTimeCompare([]byte(want), []byte(pin)) != 1 {
		return ErrAccessDenied
	}
	return nil
}
