package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/example/shikkhajar/internal/persistence"
)

// ExamService records exam results against segments.
type ExamService struct {
	ledger      ledger
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewExamService constructs an exam service with the provided dependencies.
func NewExamService(store persistence.Store, idGenerator func() string, now func() time.Time) *ExamService {
	return NewExamServiceWithLogger(store, idGenerator, now, nil)
}

// NewExamServiceWithLogger constructs an exam service with a specified logger.
func NewExamServiceWithLogger(store persistence.Store, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ExamService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ExamService{ledger: newLedger(store), idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *ExamService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ExamService", operation, attrs...)
}

// AddExamResult validates and stores a result ahead of older ones.
func (s *ExamService) AddExamResult(ctx context.Context, input ExamInput) (result ExamResult, err error) {
	if s == nil {
		err = fmt.Errorf("ExamService is nil")
		return
	}

	logger := s.loggerWith(ctx, "AddExamResult", "segment_id", input.SegmentID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add exam result", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("exam_result_id", result.ID).InfoContext(ctx, "exam result added")
	}()

	input.Subject = strings.TrimSpace(input.Subject)
	input.Notes = strings.TrimSpace(input.Notes)
	if vErr := inputs.check(input); vErr.HasErrors() {
		err = vErr
		return
	}

	if _, _, err = s.ledger.findSegment(ctx, input.SegmentID); err != nil {
		return
	}

	results, loadErr := s.ledger.exams.All(ctx)
	if loadErr != nil {
		err = storageError("load exam results", loadErr)
		return
	}

	candidate := ExamResult{
		ID:                s.idGenerator(),
		SegmentID:         input.SegmentID,
		Date:              input.Date,
		Subject:           input.Subject,
		Marks:             input.Marks,
		TotalMarks:        input.TotalMarks,
		Notes:             input.Notes,
		ImageURI:          input.ImageURI,
		VoiceNoteURI:      input.VoiceNoteURI,
		VoiceNoteDuration: input.VoiceNoteDuration,
		CreatedAt:         s.now().UTC().Format(timestampLayout),
	}

	if replaceErr := s.ledger.exams.Replace(ctx, prepend(results, candidate)); replaceErr != nil {
		err = storageError("save exam results", replaceErr)
		return
	}
	result = candidate
	return
}

// DeleteExamResult removes one result or returns ErrNotFound.
func (s *ExamService) DeleteExamResult(ctx context.Context, resultID string) error {
	if s == nil {
		return fmt.Errorf("ExamService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteExamResult", "exam_result_id", resultID)

	results, err := s.ledger.exams.All(ctx)
	if err != nil {
		err = storageError("load exam results", err)
		logger.ErrorContext(ctx, "failed to delete exam result", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	remaining := slices.DeleteFunc(slices.Clone(results), func(r ExamResult) bool { return r.ID == resultID })
	if len(remaining) == len(results) {
		err = fmt.Errorf("exam result %s: %w", resultID, ErrNotFound)
		logger.ErrorContext(ctx, "failed to delete exam result", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if err := s.ledger.exams.Replace(ctx, remaining); err != nil {
		err = storageError("save exam results", err)
		logger.ErrorContext(ctx, "failed to delete exam result", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "exam result deleted")
	return nil
}

// ResultsForSegment returns a segment's results, most recently added first.
func (s *ExamService) ResultsForSegment(ctx context.Context, segmentID string) ([]ExamResult, error) {
	if s == nil {
		return nil, fmt.Errorf("ExamService is nil")
	}
	results, err := s.ledger.exams.All(ctx)
	if err != nil {
		return nil, storageError("load exam results", err)
	}
	out := make([]ExamResult, 0)
	for _, result := range results {
		if result.SegmentID == segmentID {
			out = append(out, result)
		}
	}
	return out, nil
}

// Percentage returns marks as a whole-number percentage of total marks.
func (r ExamResult) Percentage() int {
	if r.TotalMarks <= 0 {
		return 0
	}
	return int(math.Round(float64(r.Marks) * 100 / float64(r.TotalMarks)))
}
