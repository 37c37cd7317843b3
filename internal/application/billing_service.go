package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/shikkhajar/internal/dates"
	"github.com/example/shikkhajar/internal/persistence"
)

// BillingService records payments and rolls segments over into a new cycle.
type BillingService struct {
	ledger      ledger
	users       CurrentUserProvider
	notifier    Notifier
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBillingService constructs a billing service with the provided dependencies.
func NewBillingService(store persistence.Store, users CurrentUserProvider, notifier Notifier, idGenerator func() string, now func() time.Time) *BillingService {
	return NewBillingServiceWithLogger(store, users, notifier, idGenerator, now, nil)
}

// NewBillingServiceWithLogger constructs a billing service with a specified logger.
func NewBillingServiceWithLogger(store persistence.Store, users CurrentUserProvider, notifier Notifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BillingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BillingService{
		ledger:      newLedger(store),
		users:       users,
		notifier:    notifier,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *BillingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BillingService", operation, attrs...)
}

// MarkPayment closes the segment's current cycle. It stores a payment record
// and a session summary snapshot, and moves the cycle start to today. All
// three writes land atomically.
func (s *BillingService) MarkPayment(ctx context.Context, segmentID string, amount int64) (payment PaymentRecord, err error) {
	if s == nil {
		err = fmt.Errorf("BillingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "MarkPayment", "segment_id", segmentID, "amount", amount)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to mark payment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("payment_id", payment.ID, "classes_taken", payment.ClassesTaken).InfoContext(ctx, "payment recorded")
	}()

	if _, err = currentUser(ctx, s.users); err != nil {
		return
	}

	segment, segments, err := s.ledger.findSegment(ctx, segmentID)
	if err != nil {
		return
	}

	records, loadErr := s.ledger.attendance.All(ctx)
	if loadErr != nil {
		err = storageError("load attendance", loadErr)
		return
	}
	payments, loadErr := s.ledger.payments.All(ctx)
	if loadErr != nil {
		err = storageError("load payments", loadErr)
		return
	}
	sessions, loadErr := s.ledger.sessions.All(ctx)
	if loadErr != nil {
		err = storageError("load sessions", loadErr)
		return
	}

	now := s.now()
	today := dates.Today(now)
	slice := cycleSlice(segment, records)

	candidate := PaymentRecord{
		ID:         s.idGenerator(),
		SegmentID:  segmentID,
		Amount:     amount,
		PaidAt:     now.UTC().Format(timestampLayout),
		CycleStart: segment.CurrentCycleStart,
		CycleEnd:   today,
	}
	for _, record := range slice {
		switch record.Status {
		case StatusPresent, StatusMakeup:
			candidate.ClassesTaken++
		case StatusMissed:
			candidate.ClassesMissed++
		case StatusRescheduled:
			candidate.ClassesRescheduled++
		case StatusExam:
		}
	}

	snapshot := make([]AttendanceRecord, len(slice))
	for i, record := range slice {
		snapshot[i] = record.clone()
	}
	paymentCopy := candidate
	month, year := dates.MonthYear(now)
	summary := SessionSummary{
		ID:                 s.idGenerator(),
		SegmentID:          segmentID,
		Month:              month,
		Year:               year,
		ClassesTaken:       candidate.ClassesTaken,
		ClassesMissed:      candidate.ClassesMissed,
		ClassesRescheduled: candidate.ClassesRescheduled,
		AmountPaid:         amount,
		AttendanceRecords:  snapshot,
		PaymentRecord:      &paymentCopy,
	}

	// The cycle start never moves backwards, even if the clock does.
	if !cycleStartsAfter(segment.CurrentCycleStart, today) {
		for i := range segments {
			if segments[i].ID == segmentID {
				segments[i].CurrentCycleStart = today
			}
		}
	}

	batch := persistence.NewBatch()
	if stageErr := s.ledger.payments.Stage(batch, append(payments, candidate)); stageErr != nil {
		err = storageError("stage payments", stageErr)
		return
	}
	if stageErr := s.ledger.sessions.Stage(batch, prepend(sessions, summary)); stageErr != nil {
		err = storageError("stage sessions", stageErr)
		return
	}
	if stageErr := s.ledger.segments.Stage(batch, segments); stageErr != nil {
		err = storageError("stage segments", stageErr)
		return
	}
	if commitErr := batch.Commit(ctx, s.ledger.store); commitErr != nil {
		err = storageError("commit payment", commitErr)
		return
	}
	payment = candidate

	emitNotification(ctx, logger, s.notifier, NotificationInput{
		Type:      NotificationPaymentReceived,
		Title:     "Payment Received",
		Message:   fmt.Sprintf("Payment of ৳%d received for %s", amount, segment.Subject),
		SegmentID: segmentID,
		Date:      today,
	})
	return
}

// Payments returns payment records in the order they were made. An empty
// segmentID returns every payment.
func (s *BillingService) Payments(ctx context.Context, segmentID string) ([]PaymentRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("BillingService is nil")
	}
	payments, err := s.ledger.payments.All(ctx)
	if err != nil {
		return nil, storageError("load payments", err)
	}
	if segmentID == "" {
		return payments, nil
	}
	out := make([]PaymentRecord, 0)
	for _, payment := range payments {
		if payment.SegmentID == segmentID {
			out = append(out, payment)
		}
	}
	return out, nil
}

// Sessions returns session summaries most recent first. An empty segmentID
// returns every summary.
func (s *BillingService) Sessions(ctx context.Context, segmentID string) ([]SessionSummary, error) {
	if s == nil {
		return nil, fmt.Errorf("BillingService is nil")
	}
	sessions, err := s.ledger.sessions.All(ctx)
	if err != nil {
		return nil, storageError("load sessions", err)
	}
	if segmentID == "" {
		return sessions, nil
	}
	out := make([]SessionSummary, 0)
	for _, session := range sessions {
		if session.SegmentID == segmentID {
			out = append(out, session)
		}
	}
	return out, nil
}

// PortfolioStats aggregates classes, students, earnings and subjects across
// every segment, with a chronological monthly breakdown of paid cycles.
func (s *BillingService) PortfolioStats(ctx context.Context) (PortfolioStats, error) {
	if s == nil {
		return PortfolioStats{}, fmt.Errorf("BillingService is nil")
	}

	segments, err := s.ledger.segments.All(ctx)
	if err != nil {
		return PortfolioStats{}, storageError("load segments", err)
	}
	records, err := s.ledger.attendance.All(ctx)
	if err != nil {
		return PortfolioStats{}, storageError("load attendance", err)
	}
	payments, err := s.ledger.payments.All(ctx)
	if err != nil {
		return PortfolioStats{}, storageError("load payments", err)
	}
	sessions, err := s.ledger.sessions.All(ctx)
	if err != nil {
		return PortfolioStats{}, storageError("load sessions", err)
	}

	stats := PortfolioStats{Subjects: []string{}, MonthlyBreakdown: []MonthlyEarnings{}}

	for _, record := range records {
		if record.Status.CountsAsTaken() {
			stats.TotalClasses++
		}
	}

	students := make(map[string]struct{})
	subjects := make(map[string]struct{})
	for _, segment := range segments {
		students[studentKey(segment)] = struct{}{}
		if _, ok := subjects[segment.Subject]; !ok {
			subjects[segment.Subject] = struct{}{}
			stats.Subjects = append(stats.Subjects, segment.Subject)
		}
	}
	stats.TotalStudents = len(students)
	sort.Strings(stats.Subjects)

	for _, payment := range payments {
		stats.TotalEarnings += payment.Amount
	}

	type monthKey struct {
		year  int
		month time.Month
	}
	byMonth := make(map[monthKey]*MonthlyEarnings)
	keys := make([]monthKey, 0)
	for _, session := range sessions {
		month, ok := parseMonth(session.Month)
		if !ok {
			continue
		}
		key := monthKey{year: session.Year, month: month}
		row, exists := byMonth[key]
		if !exists {
			row = &MonthlyEarnings{Month: session.Month, Year: session.Year}
			byMonth[key] = row
			keys = append(keys, key)
		}
		row.Classes += session.ClassesTaken
		row.Earnings += session.AmountPaid
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})
	for _, key := range keys {
		stats.MonthlyBreakdown = append(stats.MonthlyBreakdown, *byMonth[key])
	}

	return stats, nil
}

// cycleStartsAfter reports whether start is a valid date later than today.
func cycleStartsAfter(start, today string) bool {
	return start != today && dates.OnOrAfter(start, today)
}

// studentKey identifies the person behind a segment, preferring the linked account.
func studentKey(segment Segment) string {
	if segment.PartnerID != "" {
		return "id:" + segment.PartnerID
	}
	return "name:" + segment.PartnerName
}

func parseMonth(name string) (time.Month, bool) {
	for m := time.January; m <= time.December; m++ {
		if m.String() == name {
			return m, true
		}
	}
	return 0, false
}

func prepend[T any](items []T, item T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, item)
	return append(out, items...)
}
