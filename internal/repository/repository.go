// Package repository holds the activity directory: the activity catalog and
// the roster of every activity. Three backends implement Store: an in-process
// map (the default), PostgreSQL via pgx, and Redis.
package repository

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/mergington/activity-signup/internal/model"
)

// ErrNotFound is returned when the activity name is not in the directory.
var ErrNotFound = errors.New("activity not found")

// ErrAlreadyRegistered is returned when the email is already on the roster.
var ErrAlreadyRegistered = errors.New("student is already signed up")

// ErrNotRegistered is returned when withdrawing an email that is not on the roster.
var ErrNotRegistered = errors.New("student is not registered for this activity")

// ErrActivityFull is returned when capacity enforcement is on and the roster is full.
var ErrActivityFull = errors.New("activity is full")

// Store is the activity directory contract. Activity names are matched
// exactly; callers decode URL escapes before calling in.
type Store interface {
	// List returns a snapshot of every activity keyed by name.
	List(ctx context.Context) (map[string]model.Activity, error)
	// Enroll appends email to the end of the activity's roster.
	Enroll(ctx context.Context, activity, email string) error
	// Withdraw removes email from the activity's roster, keeping the order
	// of the remaining participants.
	Withdraw(ctx context.Context, activity, email string) error
}

// Options tunes behaviour shared by all backends.
type Options struct {
	// EnforceCapacity rejects signups once a roster reaches max_participants.
	// Off by default: capacity is advisory metadata.
	EnforceCapacity bool
}

// checkEnroll applies the signup rules to a roster already read under the
// backend's lock.
func (o Options) checkEnroll(a *model.Activity, email string) error {
	if a.HasParticipant(email) {
		return ErrAlreadyRegistered
	}
	if o.EnforceCapacity && a.IsFull() {
		return ErrActivityFull
	}
	return nil
}

// sortedNames returns the catalog keys in a stable order.
func sortedNames(catalog map[string]model.Activity) []string {
	return slices.Sorted(maps.Keys(catalog))
}
