package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/shikkhajar/internal/persistence"
)

// maxNotifications caps the notification log; older entries are dropped.
const maxNotifications = 100

// ledger binds the typed collections the services read and write.
type ledger struct {
	store         persistence.Store
	user          persistence.Document[User]
	segments      persistence.Collection[Segment]
	attendance    persistence.Collection[AttendanceRecord]
	payments      persistence.Collection[PaymentRecord]
	sessions      persistence.Collection[SessionSummary]
	notifications persistence.Collection[Notification]
	exams         persistence.Collection[ExamResult]
	referrals     persistence.Collection[Referral]
}

func newLedger(store persistence.Store) ledger {
	return ledger{
		store:         store,
		user:          persistence.NewDocument[User](store, persistence.KeyUser),
		segments:      persistence.NewCollection[Segment](store, persistence.KeySegments),
		attendance:    persistence.NewCollection[AttendanceRecord](store, persistence.KeyAttendance),
		payments:      persistence.NewCollection[PaymentRecord](store, persistence.KeyPayments),
		sessions:      persistence.NewCollection[SessionSummary](store, persistence.KeySessions),
		notifications: persistence.NewCollection[Notification](store, persistence.KeyNotifications),
		exams:         persistence.NewCollection[ExamResult](store, persistence.KeyExamResults),
		referrals:     persistence.NewCollection[Referral](store, persistence.KeyReferrals),
	}
}

// findSegment returns the segment with id, or ErrNotFound.
func (l ledger) findSegment(ctx context.Context, id string) (Segment, []Segment, error) {
	segments, err := l.segments.All(ctx)
	if err != nil {
		return Segment{}, nil, storageError("load segments", err)
	}
	for _, segment := range segments {
		if segment.ID == id {
			return segment, segments, nil
		}
	}
	return Segment{}, segments, fmt.Errorf("segment %s: %w", id, ErrNotFound)
}

// loadUser returns the stored user or ErrUnauthenticated.
func (l ledger) loadUser(ctx context.Context) (User, error) {
	user, err := l.user.Load(ctx)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return User{}, ErrUnauthenticated
		}
		return User{}, storageError("load user", err)
	}
	return user, nil
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// upsertAttendance replaces the record sharing (SegmentID, Date) in place or
// appends it.
func upsertAttendance(records []AttendanceRecord, record AttendanceRecord) []AttendanceRecord {
	for i := range records {
		if records[i].SegmentID == record.SegmentID && records[i].Date == record.Date {
			records[i] = record
			return records
		}
	}
	return append(records, record)
}

// replaceAttendanceByID replaces the record with the same ID in place.
func replaceAttendanceByID(records []AttendanceRecord, record AttendanceRecord) []AttendanceRecord {
	for i := range records {
		if records[i].ID == record.ID {
			records[i] = record
			return records
		}
	}
	return append(records, record)
}

// prependCapped puts item first and trims the slice to limit entries.
func prependCapped[T any](items []T, item T, limit int) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, item)
	out = append(out, items...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
