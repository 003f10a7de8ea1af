// Package service implements the signup business operations on top of the
// activity directory: confirmation messages, event publishing and metrics.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mergington/activity-signup/internal/events"
	"github.com/mergington/activity-signup/internal/metrics"
	"github.com/mergington/activity-signup/internal/model"
	"github.com/mergington/activity-signup/internal/repository"
)

// ErrEmailRequired is returned when a signup or unregister has no email.
var ErrEmailRequired = errors.New("email is required")

// ActivityService orchestrates activity listing and roster changes.
type ActivityService struct {
	store     repository.Store
	publisher events.Publisher
	log       *zap.Logger
	now       func() time.Time
}

// NewActivityService constructs an ActivityService with its dependencies.
// A nil publisher disables events.
func NewActivityService(store repository.Store, publisher events.Publisher, log *zap.Logger) *ActivityService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ActivityService{
		store:     store,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// ListActivities returns every activity keyed by name.
func (s *ActivityService) ListActivities(ctx context.Context) (map[string]model.Activity, error) {
	started := time.Now()
	activities, err := s.store.List(ctx)
	metrics.ObserveOperation("list", outcome(err), started)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}

// Signup enrolls email in the named activity.
func (s *ActivityService) Signup(ctx context.Context, activity, email string) (*model.MessageResponse, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}

	started := time.Now()
	err := s.store.Enroll(ctx, activity, email)
	metrics.ObserveOperation("signup", outcome(err), started)
	if err != nil {
		return nil, passThrough("signup", err)
	}

	s.publish(ctx, model.ActionSignup, activity, email)
	return &model.MessageResponse{
		Message: fmt.Sprintf("Signed up %s for %s", email, activity),
	}, nil
}

// Unregister withdraws email from the named activity.
func (s *ActivityService) Unregister(ctx context.Context, activity, email string) (*model.MessageResponse, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}

	started := time.Now()
	err := s.store.Withdraw(ctx, activity, email)
	metrics.ObserveOperation("unregister", outcome(err), started)
	if err != nil {
		return nil, passThrough("unregister", err)
	}

	s.publish(ctx, model.ActionUnregister, activity, email)
	return &model.MessageResponse{
		Message: fmt.Sprintf("Unregistered %s from %s", email, activity),
	}, nil
}

// publish emits a roster change. The roster is already updated, so a
// failure here is logged rather than returned.
func (s *ActivityService) publish(ctx context.Context, action model.RosterAction, activity, email string) {
	change := model.RosterChange{
		ID:         uuid.NewString(),
		Action:     action,
		Activity:   activity,
		Email:      email,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, change); err != nil {
		metrics.EventPublishFailures.Inc()
		s.log.Warn("publish roster change failed",
			zap.String("event_id", change.ID),
			zap.String("action", string(action)),
			zap.String("activity", activity),
			zap.Error(err),
		)
	}
}

// passThrough surfaces directory errors unchanged so handlers can set the
// right status, and wraps everything else.
func passThrough(op string, err error) error {
	if isDomainError(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isDomainError(err error) bool {
	return errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrAlreadyRegistered) ||
		errors.Is(err, repository.ErrNotRegistered) ||
		errors.Is(err, repository.ErrActivityFull)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, repository.ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, repository.ErrActivityFull):
		return "full"
	default:
		return "error"
	}
}
