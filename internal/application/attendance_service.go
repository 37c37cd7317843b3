package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/shikkhajar/internal/dates"
	"github.com/example/shikkhajar/internal/persistence"
)

// timestampLayout renders instants as UTC ISO-8601 with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// AttendanceService owns attendance marking, cycle progress and reschedule negotiation.
type AttendanceService struct {
	ledger      ledger
	users       CurrentUserProvider
	notifier    Notifier
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAttendanceService constructs an attendance service with the provided dependencies.
func NewAttendanceService(store persistence.Store, users CurrentUserProvider, notifier Notifier, idGenerator func() string, now func() time.Time) *AttendanceService {
	return NewAttendanceServiceWithLogger(store, users, notifier, idGenerator, now, nil)
}

// NewAttendanceServiceWithLogger constructs an attendance service with a specified logger.
func NewAttendanceServiceWithLogger(store persistence.Store, users CurrentUserProvider, notifier Notifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AttendanceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AttendanceService{
		ledger:      newLedger(store),
		users:       users,
		notifier:    notifier,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *AttendanceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AttendanceService", operation, attrs...)
}

// MarkAttendance records status for a segment on date. An existing record for
// the same segment and date is replaced in place.
func (s *AttendanceService) MarkAttendance(ctx context.Context, segmentID, date string, status AttendanceStatus) (record AttendanceRecord, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "MarkAttendance", "segment_id", segmentID, "date", date, "status", status)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to mark attendance", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("record_id", record.ID).InfoContext(ctx, "attendance marked")
	}()

	user, err := currentUser(ctx, s.users)
	if err != nil {
		return
	}
	if !status.Valid() {
		err = &ValidationError{FieldErrors: map[string]string{"status": "unsupported value"}}
		return
	}

	candidate := AttendanceRecord{
		ID:        s.idGenerator(),
		SegmentID: segmentID,
		Date:      date,
		Status:    status,
		MarkedBy:  user.ID,
		MarkedAt:  s.timestamp(),
	}
	if err = s.saveAttendance(ctx, func(records []AttendanceRecord) []AttendanceRecord {
		return upsertAttendance(records, candidate)
	}); err != nil {
		return
	}
	record = candidate

	if segment, ok := s.lookupSegment(ctx, logger, segmentID); ok {
		title := "Class Status Updated"
		if status == StatusPresent {
			title = "Class Marked"
		}
		s.notify(ctx, logger, NotificationInput{
			Type:      NotificationAttendanceMarked,
			Title:     title,
			Message:   fmt.Sprintf("%s - %s: %s", segment.Subject, segment.PartnerName, status),
			SegmentID: segmentID,
			Date:      date,
		})
	}
	return
}

// SegmentProgress counts present and makeup classes since the cycle start.
// A missing segment yields a zero Progress.
func (s *AttendanceService) SegmentProgress(ctx context.Context, segmentID string) (Progress, error) {
	if s == nil {
		return Progress{}, fmt.Errorf("AttendanceService is nil")
	}

	segments, err := s.ledger.segments.All(ctx)
	if err != nil {
		return Progress{}, storageError("load segments", err)
	}
	var segment *Segment
	for i := range segments {
		if segments[i].ID == segmentID {
			segment = &segments[i]
			break
		}
	}
	if segment == nil {
		return Progress{}, nil
	}

	records, err := s.ledger.attendance.All(ctx)
	if err != nil {
		return Progress{}, storageError("load attendance", err)
	}

	return computeProgress(*segment, records), nil
}

func computeProgress(segment Segment, records []AttendanceRecord) Progress {
	taken := 0
	for _, record := range cycleSlice(segment, records) {
		if record.Status.CountsAsTaken() {
			taken++
		}
	}
	return Progress{
		Taken:         taken,
		Target:        segment.TargetDays,
		DaysRemaining: max(0, segment.TargetDays-taken),
	}
}

// cycleSlice returns the segment's records dated on or after its cycle start.
func cycleSlice(segment Segment, records []AttendanceRecord) []AttendanceRecord {
	slice := make([]AttendanceRecord, 0)
	for _, record := range records {
		if record.SegmentID == segment.ID && dates.OnOrAfter(record.Date, segment.CurrentCycleStart) {
			slice = append(slice, record)
		}
	}
	return slice
}

// RequestReschedule replaces the record on originalDate with a rescheduled
// record carrying a pending proposal.
func (s *AttendanceService) RequestReschedule(ctx context.Context, segmentID, originalDate, proposedDate, proposedTime, reason string) (record AttendanceRecord, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RequestReschedule", "segment_id", segmentID, "original_date", originalDate)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to request reschedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("record_id", record.ID).InfoContext(ctx, "reschedule requested")
	}()

	user, err := currentUser(ctx, s.users)
	if err != nil {
		return
	}

	candidate := AttendanceRecord{
		SegmentID: segmentID,
		Date:      originalDate,
		Status:    StatusRescheduled,
		MarkedBy:  user.ID,
		RescheduleInfo: &RescheduleInfo{
			ID:           s.idGenerator(),
			OriginalDate: originalDate,
			ProposedDate: proposedDate,
			ProposedTime: proposedTime,
			Reason:       reason,
			ProposedBy:   user.ID,
			Status:       ReschedulePending,
		},
	}
	candidate.ID = s.idGenerator()
	candidate.MarkedAt = s.timestamp()

	if err = s.saveAttendance(ctx, func(records []AttendanceRecord) []AttendanceRecord {
		return upsertAttendance(records, candidate)
	}); err != nil {
		return
	}
	record = candidate

	if segment, ok := s.lookupSegment(ctx, logger, segmentID); ok {
		s.notify(ctx, logger, NotificationInput{
			Type:       NotificationRescheduleRequest,
			Title:      "Reschedule Request",
			Message:    fmt.Sprintf("%s requested to reschedule %s class", segment.PartnerName, segment.Subject),
			SegmentID:  segmentID,
			Date:       originalDate,
			ActionType: ActionAcceptReschedule,
		})
	}
	return
}

// RespondToReschedule resolves a pending proposal. Accept wins; otherwise a
// complete counter proposal moves it to counter; otherwise it is rejected.
func (s *AttendanceService) RespondToReschedule(ctx context.Context, params RespondParams) (record AttendanceRecord, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RespondToReschedule", "record_id", params.RecordID, "accept", params.Accept)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to respond to reschedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reschedule_status", record.RescheduleInfo.Status).InfoContext(ctx, "reschedule answered")
	}()

	records, loadErr := s.ledger.attendance.All(ctx)
	if loadErr != nil {
		err = storageError("load attendance", loadErr)
		return
	}

	var existing *AttendanceRecord
	for i := range records {
		if records[i].ID == params.RecordID {
			existing = &records[i]
			break
		}
	}
	switch {
	case existing == nil:
		err = fmt.Errorf("attendance record %s: %w", params.RecordID, ErrNotFound)
		return
	case existing.RescheduleInfo == nil:
		err = ErrNoReschedule
		return
	case existing.RescheduleInfo.Status != ReschedulePending:
		err = fmt.Errorf("%w: status is %s", ErrRescheduleClosed, existing.RescheduleInfo.Status)
		return
	}

	updated := existing.clone()
	info := updated.RescheduleInfo
	info.CounterProposal = nil
	switch {
	case params.Accept:
		info.Status = RescheduleAccepted
	case hasCounterProposal(params):
		info.Status = RescheduleCounter
		info.CounterProposal = &CounterProposal{
			Date:   params.CounterDate,
			Time:   params.CounterTime,
			Reason: params.CounterReason,
		}
	default:
		info.Status = RescheduleRejected
	}

	if replaceErr := s.ledger.attendance.Replace(ctx, replaceAttendanceByID(records, updated)); replaceErr != nil {
		err = storageError("save attendance", replaceErr)
		return
	}
	record = updated
	return
}

func hasCounterProposal(params RespondParams) bool {
	return strings.TrimSpace(params.CounterDate) != "" &&
		strings.TrimSpace(params.CounterTime) != "" &&
		strings.TrimSpace(params.CounterReason) != ""
}

// AttendanceForDate returns the record of a segment on date, or ErrNotFound.
func (s *AttendanceService) AttendanceForDate(ctx context.Context, segmentID, date string) (AttendanceRecord, error) {
	records, err := s.AttendanceForSegment(ctx, segmentID)
	if err != nil {
		return AttendanceRecord{}, err
	}
	for _, record := range records {
		if record.Date == date {
			return record, nil
		}
	}
	return AttendanceRecord{}, fmt.Errorf("attendance for %s on %s: %w", segmentID, date, ErrNotFound)
}

// AttendanceForSegment returns every record of a segment in stored order.
func (s *AttendanceService) AttendanceForSegment(ctx context.Context, segmentID string) ([]AttendanceRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("AttendanceService is nil")
	}
	records, err := s.ledger.attendance.All(ctx)
	if err != nil {
		return nil, storageError("load attendance", err)
	}
	out := make([]AttendanceRecord, 0)
	for _, record := range records {
		if record.SegmentID == segmentID {
			out = append(out, record)
		}
	}
	return out, nil
}

// MonthSummary counts outcomes dated in the given month. An empty segmentID
// covers every segment.
func (s *AttendanceService) MonthSummary(ctx context.Context, segmentID string, year int, month time.Month) (MonthSummary, error) {
	if s == nil {
		return MonthSummary{}, fmt.Errorf("AttendanceService is nil")
	}
	records, err := s.ledger.attendance.All(ctx)
	if err != nil {
		return MonthSummary{}, storageError("load attendance", err)
	}

	var summary MonthSummary
	for _, record := range records {
		if segmentID != "" && record.SegmentID != segmentID {
			continue
		}
		if !dates.InMonth(record.Date, year, month) {
			continue
		}
		switch record.Status {
		case StatusPresent, StatusMakeup:
			summary.Present++
		case StatusMissed:
			summary.Missed++
		case StatusRescheduled:
			summary.Rescheduled++
		case StatusExam:
		}
	}
	return summary, nil
}

// Orphans lists attendance records whose segment has been deleted.
func (s *AttendanceService) Orphans(ctx context.Context) ([]AttendanceRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("AttendanceService is nil")
	}
	segments, err := s.ledger.segments.All(ctx)
	if err != nil {
		return nil, storageError("load segments", err)
	}
	records, err := s.ledger.attendance.All(ctx)
	if err != nil {
		return nil, storageError("load attendance", err)
	}

	known := make(map[string]struct{}, len(segments))
	for _, segment := range segments {
		known[segment.ID] = struct{}{}
	}
	orphans := make([]AttendanceRecord, 0)
	for _, record := range records {
		if _, ok := known[record.SegmentID]; !ok {
			orphans = append(orphans, record)
		}
	}
	return orphans, nil
}

func (s *AttendanceService) saveAttendance(ctx context.Context, mutate func([]AttendanceRecord) []AttendanceRecord) error {
	records, err := s.ledger.attendance.All(ctx)
	if err != nil {
		return storageError("load attendance", err)
	}
	if err := s.ledger.attendance.Replace(ctx, mutate(records)); err != nil {
		return storageError("save attendance", err)
	}
	return nil
}

func (s *AttendanceService) lookupSegment(ctx context.Context, logger *slog.Logger, segmentID string) (Segment, bool) {
	segment, _, err := s.ledger.findSegment(ctx, segmentID)
	if err != nil {
		if ErrorKind(err) != "not_found" {
			logger.WarnContext(ctx, "segment lookup for notification failed", "error", err)
		}
		return Segment{}, false
	}
	return segment, true
}

func (s *AttendanceService) notify(ctx context.Context, logger *slog.Logger, input NotificationInput) {
	emitNotification(ctx, logger, s.notifier, input)
}

func (s *AttendanceService) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

// emitNotification sends input to notifier. Failures are logged only.
func emitNotification(ctx context.Context, logger *slog.Logger, notifier Notifier, input NotificationInput) {
	if notifier == nil {
		return
	}
	if _, err := notifier.Notify(ctx, input); err != nil {
		logger.WarnContext(ctx, "failed to emit notification", "type", input.Type, "error", err, "error_kind", ErrorKind(err))
	}
}
