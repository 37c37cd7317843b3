package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/shikkhajar/internal/persistence"
)

// Notifier appends entries to the notification log.
type Notifier interface {
	Notify(ctx context.Context, input NotificationInput) (Notification, error)
}

// NotificationService maintains the capped, most-recent-first notification log.
type NotificationService struct {
	ledger      ledger
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewNotificationService constructs a notification service with the provided dependencies.
func NewNotificationService(store persistence.Store, idGenerator func() string, now func() time.Time) *NotificationService {
	return NewNotificationServiceWithLogger(store, idGenerator, now, nil)
}

// NewNotificationServiceWithLogger constructs a notification service with a specified logger.
func NewNotificationServiceWithLogger(store persistence.Store, idGenerator func() string, now func() time.Time, logger *slog.Logger) *NotificationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &NotificationService{ledger: newLedger(store), idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *NotificationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "NotificationService", operation, attrs...)
}

// Notify satisfies Notifier by delegating to Add.
func (s *NotificationService) Notify(ctx context.Context, input NotificationInput) (Notification, error) {
	return s.Add(ctx, input)
}

// Add prepends a new unread notification, dropping the oldest beyond the cap.
func (s *NotificationService) Add(ctx context.Context, input NotificationInput) (notification Notification, err error) {
	if s == nil {
		err = fmt.Errorf("NotificationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Add", "type", input.Type)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add notification", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("notification_id", notification.ID).DebugContext(ctx, "notification added")
	}()

	vErr := &ValidationError{}
	if !input.Type.Valid() {
		vErr.add("type", "unsupported value")
	}
	if !input.ActionType.Valid() {
		vErr.add("actionType", "unsupported value")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var existing []Notification
	existing, err = s.ledger.notifications.All(ctx)
	if err != nil {
		err = storageError("load notifications", err)
		return
	}

	candidate := Notification{
		ID:         s.idGenerator(),
		Type:       input.Type,
		Title:      input.Title,
		Message:    input.Message,
		SegmentID:  input.SegmentID,
		Date:       input.Date,
		Read:       false,
		ActionType: input.ActionType,
		CreatedAt:  s.now().UTC().Format(timestampLayout),
	}

	if replaceErr := s.ledger.notifications.Replace(ctx, prependCapped(existing, candidate, maxNotifications)); replaceErr != nil {
		err = storageError("save notifications", replaceErr)
		return
	}
	notification = candidate
	return
}

// List returns notifications most recent first.
func (s *NotificationService) List(ctx context.Context) ([]Notification, error) {
	if s == nil {
		return nil, fmt.Errorf("NotificationService is nil")
	}
	notifications, err := s.ledger.notifications.All(ctx)
	if err != nil {
		return nil, storageError("load notifications", err)
	}
	return notifications, nil
}

// UnreadCount reports how many notifications have not been read.
func (s *NotificationService) UnreadCount(ctx context.Context) (int, error) {
	notifications, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range notifications {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

// MarkRead flags one notification as read. Unknown ids are ignored.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("NotificationService is nil")
	}

	logger := s.loggerWith(ctx, "MarkRead", "notification_id", id)

	notifications, err := s.ledger.notifications.All(ctx)
	if err != nil {
		err = storageError("load notifications", err)
		logger.ErrorContext(ctx, "failed to mark notification read", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	changed := false
	for i := range notifications {
		if notifications[i].ID == id && !notifications[i].Read {
			notifications[i].Read = true
			changed = true
		}
	}
	if !changed {
		logger.DebugContext(ctx, "notification already read or missing")
		return nil
	}

	if err := s.ledger.notifications.Replace(ctx, notifications); err != nil {
		err = storageError("save notifications", err)
		logger.ErrorContext(ctx, "failed to mark notification read", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	return nil
}

// ClearAll removes every notification.
func (s *NotificationService) ClearAll(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("NotificationService is nil")
	}

	logger := s.loggerWith(ctx, "ClearAll")
	if err := s.ledger.notifications.Replace(ctx, nil); err != nil {
		err = storageError("clear notifications", err)
		logger.ErrorContext(ctx, "failed to clear notifications", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "notifications cleared")
	return nil
}
