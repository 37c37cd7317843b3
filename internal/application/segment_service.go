package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/example/shikkhajar/internal/calendar"
	"github.com/example/shikkhajar/internal/dates"
	"github.com/example/shikkhajar/internal/persistence"
)

// SegmentService manages tutoring segments.
type SegmentService struct {
	ledger      ledger
	users       CurrentUserProvider
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSegmentService constructs a segment service with the provided dependencies.
func NewSegmentService(store persistence.Store, users CurrentUserProvider, idGenerator func() string, now func() time.Time) *SegmentService {
	return NewSegmentServiceWithLogger(store, users, idGenerator, now, nil)
}

// NewSegmentServiceWithLogger constructs a segment service with a specified logger.
func NewSegmentServiceWithLogger(store persistence.Store, users CurrentUserProvider, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SegmentService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SegmentService{ledger: newLedger(store), users: users, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *SegmentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SegmentService", operation, attrs...)
}

// AddSegment validates input and stores a new segment whose first cycle starts today.
func (s *SegmentService) AddSegment(ctx context.Context, input SegmentInput) (segment Segment, err error) {
	if s == nil {
		err = fmt.Errorf("SegmentService is nil")
		return
	}

	logger := s.loggerWith(ctx, "AddSegment")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add segment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("segment_id", segment.ID).InfoContext(ctx, "segment added")
	}()

	user, err := currentUser(ctx, s.users)
	if err != nil {
		return
	}

	input = normalizeSegmentInput(input)
	if vErr := inputs.check(input); vErr.HasErrors() {
		err = vErr
		return
	}

	segments, loadErr := s.ledger.segments.All(ctx)
	if loadErr != nil {
		err = storageError("load segments", loadErr)
		return
	}

	today := dates.Today(s.now())
	candidate := Segment{
		ID:                s.idGenerator(),
		UserID:            user.ID,
		CurrentCycleStart: today,
		CreatedAt:         today,
		IsCollaborated:    false,
	}
	applySegmentInput(&candidate, input)

	if replaceErr := s.ledger.segments.Replace(ctx, append(segments, candidate)); replaceErr != nil {
		err = storageError("save segments", replaceErr)
		return
	}
	segment = candidate
	return
}

// UpdateSegment replaces the editable fields of a segment. The billing cycle
// start, creation date and owner are kept from the stored segment.
func (s *SegmentService) UpdateSegment(ctx context.Context, segmentID string, input SegmentInput) (segment Segment, err error) {
	if s == nil {
		err = fmt.Errorf("SegmentService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateSegment", "segment_id", segmentID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update segment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "segment updated")
	}()

	if _, err = currentUser(ctx, s.users); err != nil {
		return
	}

	input = normalizeSegmentInput(input)
	if vErr := inputs.check(input); vErr.HasErrors() {
		err = vErr
		return
	}

	existing, segments, err := s.ledger.findSegment(ctx, segmentID)
	if err != nil {
		return
	}

	updated := existing
	applySegmentInput(&updated, input)
	for i := range segments {
		if segments[i].ID == segmentID {
			segments[i] = updated
		}
	}

	if replaceErr := s.ledger.segments.Replace(ctx, segments); replaceErr != nil {
		err = storageError("save segments", replaceErr)
		return
	}
	segment = updated
	return
}

// DeleteSegment removes a segment. Its attendance, payments and summaries are kept.
func (s *SegmentService) DeleteSegment(ctx context.Context, segmentID string) error {
	if s == nil {
		return fmt.Errorf("SegmentService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteSegment", "segment_id", segmentID)

	_, segments, err := s.ledger.findSegment(ctx, segmentID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete segment", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	remaining := slices.DeleteFunc(segments, func(segment Segment) bool { return segment.ID == segmentID })
	if err := s.ledger.segments.Replace(ctx, remaining); err != nil {
		err = storageError("save segments", err)
		logger.ErrorContext(ctx, "failed to delete segment", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "segment deleted")
	return nil
}

// ListSegments returns every segment in creation order.
func (s *SegmentService) ListSegments(ctx context.Context) ([]Segment, error) {
	if s == nil {
		return nil, fmt.Errorf("SegmentService is nil")
	}
	segments, err := s.ledger.segments.All(ctx)
	if err != nil {
		return nil, storageError("load segments", err)
	}
	return segments, nil
}

// GetSegment returns one segment or ErrNotFound.
func (s *SegmentService) GetSegment(ctx context.Context, segmentID string) (Segment, error) {
	if s == nil {
		return Segment{}, fmt.Errorf("SegmentService is nil")
	}
	segment, _, err := s.ledger.findSegment(ctx, segmentID)
	return segment, err
}

// ReminderPlan returns the weekly reminder triggers for a segment's classes.
func (s *SegmentService) ReminderPlan(ctx context.Context, segmentID string, minutesBefore int) ([]calendar.Slot, error) {
	segment, err := s.GetSegment(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	return calendar.ReminderSlots(segment.ClassDays, segment.ClassTime, minutesBefore)
}

// UpcomingClasses lists the segment's class dates from today for the given number of days.
func (s *SegmentService) UpcomingClasses(ctx context.Context, segmentID string, days int) ([]string, error) {
	segment, err := s.GetSegment(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		return []string{}, nil
	}

	from := s.now()
	classDates, err := calendar.ClassDates(segment.ClassDays, from, from.AddDate(0, 0, days-1))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(classDates))
	for _, d := range classDates {
		out = append(out, dates.Format(d))
	}
	return out, nil
}

func normalizeSegmentInput(input SegmentInput) SegmentInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Subject = strings.TrimSpace(input.Subject)
	input.PartnerID = strings.TrimSpace(input.PartnerID)
	input.PartnerName = strings.TrimSpace(input.PartnerName)
	input.ClassTime = strings.TrimSpace(input.ClassTime)

	days := slices.Clone(input.ClassDays)
	slices.Sort(days)
	input.ClassDays = slices.Compact(days)
	return input
}

func applySegmentInput(segment *Segment, input SegmentInput) {
	segment.Name = input.Name
	segment.Subject = input.Subject
	segment.PartnerID = input.PartnerID
	segment.PartnerName = input.PartnerName
	segment.PartnerRole = input.PartnerRole
	segment.ClassDays = input.ClassDays
	segment.ClassTime = input.ClassTime
	segment.TargetDays = input.TargetDays
	segment.MonthlyFee = input.MonthlyFee
}

func currentUser(ctx context.Context, users CurrentUserProvider) (User, error) {
	if users == nil {
		return User{}, ErrUnauthenticated
	}
	return users.CurrentUser(ctx)
}
