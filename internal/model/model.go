// Package model defines the core domain types for the activity signup service.
package model

import (
	"slices"
	"time"
)

// Activity represents one extracurricular offering and its current roster.
// Participants are kept in signup order.
type Activity struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// Clone returns a copy whose roster does not share backing storage with a.
// The roster is never nil so it always encodes as a JSON array.
func (a Activity) Clone() Activity {
	out := a
	out.Participants = make([]string, len(a.Participants))
	copy(out.Participants, a.Participants)
	return out
}

// HasParticipant reports whether email is on the roster (exact match).
func (a *Activity) HasParticipant(email string) bool {
	return slices.Contains(a.Participants, email)
}

// IsFull returns true when the roster has reached capacity.
func (a *Activity) IsFull() bool {
	return len(a.Participants) >= a.MaxParticipants
}

// MessageResponse is the confirmation envelope for successful mutations.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// RosterAction names a roster mutation.
type RosterAction string

const (
	ActionSignup     RosterAction = "signup"
	ActionUnregister RosterAction = "unregister"
)

// RosterChange is published after every successful signup or unregister.
type RosterChange struct {
	ID         string       `json:"id"`
	Action     RosterAction `json:"action"`
	Activity   string       `json:"activity"`
	Email      string       `json:"email"`
	OccurredAt time.Time    `json:"occurred_at"`
}
