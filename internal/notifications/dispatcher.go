package notifications

import (
	"context"
	"fmt"

	"github.com/agrimarket/agrimarket-backend/pkg/db/models"
	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	"github.com/agrimarket/agrimarket-backend/pkg/expo"
	"github.com/agrimarket/agrimarket-backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

type pushSender interface {
	Send(ctx context.Context, msg expo.Message) error
}

type recipientFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Dispatcher persists a notification row and attempts push delivery.
// It is called after business transactions commit; delivery failures are
// reported to the caller but must never roll anything back.
type Dispatcher struct {
	repo   Repository
	users  recipientFinder
	pusher pushSender
	logg   *logger.Logger
}

// Event describes one notification to fan out.
type Event struct {
	UserID  uuid.UUID
	Type    enums.NotificationType
	Title   string
	Message string
	Data    map[string]any
}

// NewDispatcher builds the dispatcher. The push sender is optional; without
// it only the in-app notification row is written.
func NewDispatcher(repo Repository, users recipientFinder, pusher pushSender, logg *logger.Logger) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("recipient finder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{
		repo:   repo,
		users:  users,
		pusher: pusher,
		logg:   logg,
	}, nil
}

// Dispatch fans out the given events, aggregating per-event failures.
func (d *Dispatcher) Dispatch(ctx context.Context, events ...Event) error {
	var errs error
	for _, event := range events {
		if err := d.dispatchOne(ctx, event); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (d *Dispatcher) dispatchOne(ctx context.Context, event Event) error {
	if event.UserID == uuid.Nil {
		return fmt.Errorf("notification event missing user id")
	}

	if _, err := d.repo.Create(ctx, &models.Notification{
		UserID:  event.UserID,
		Type:    event.Type,
		Title:   event.Title,
		Message: event.Message,
	}); err != nil {
		return fmt.Errorf("persist notification for %s: %w", event.UserID, err)
	}

	if d.pusher == nil {
		return nil
	}

	user, err := d.users.FindByID(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("load push recipient %s: %w", event.UserID, err)
	}
	if user.PushToken == nil || *user.PushToken == "" {
		return nil
	}

	msg := expo.Message{
		To:    *user.PushToken,
		Title: event.Title,
		Body:  event.Message,
		Sound: "default",
		Data:  event.Data,
	}
	if err := d.pusher.Send(ctx, msg); err != nil {
		return fmt.Errorf("push notification to %s: %w", event.UserID, err)
	}
	return nil
}

// DispatchAsync runs Dispatch on a detached context and logs failures.
// Used by services right after their transaction commits.
func (d *Dispatcher) DispatchAsync(ctx context.Context, events ...Event) {
	go func() {
		detached := context.WithoutCancel(ctx)
		if err := d.Dispatch(detached, events...); err != nil {
			d.logg.Warn(detached, fmt.Sprintf("notification dispatch: %v", err))
		}
	}()
}
