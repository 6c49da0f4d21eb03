package model

import "time"

// AckOutcome is the resolution of one acknowledge attempt, keyed by its cookie.
type AckOutcome struct {
	Token     int64     `json:"token"`
	Accepted  bool      `json:"accepted"`
	UpdatedAt time.Time `json:"updated_at"`
}
