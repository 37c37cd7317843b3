package testfixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/shikkhajar/internal/application"
	"github.com/example/shikkhajar/internal/dates"
	"github.com/example/shikkhajar/internal/persistence"
)

var (
	userCounter    uint64
	segmentCounter uint64
)

var referenceTime = time.Date(2024, time.January, 10, 10, 0, 0, 0, time.Local)

// ReferenceTime returns the canonical baseline instant used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserOption configures the generated user.
type UserOption func(*application.User)

// NewUser returns a deterministic logged in user with optional overrides.
func NewUser(opts ...UserOption) application.User {
	idx := atomic.AddUint64(&userCounter, 1)
	user := application.User{
		ID:        fmt.Sprintf("user-%03d", idx),
		Phone:     fmt.Sprintf("+8801700%06d", idx),
		Name:      fmt.Sprintf("Tutor %03d", idx),
		Role:      application.RoleTutor,
		Language:  application.LanguageEnglish,
		CreatedAt: dates.Format(referenceTime),
		Settings:  application.DefaultUserSettings(),
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(u *application.User) {
		u.ID = id
	}
}

// WithUserPhone overrides the generated phone number.
func WithUserPhone(phone string) UserOption {
	return func(u *application.User) {
		u.Phone = phone
	}
}

// WithUserRole overrides the generated role.
func WithUserRole(role application.UserRole) UserOption {
	return func(u *application.User) {
		u.Role = role
	}
}

// ---------------------------- Segment fixtures ----------------------------

// SegmentInputOption configures the generated segment input.
type SegmentInputOption func(*application.SegmentInput)

// NewSegmentInput returns valid segment input with optional overrides.
func NewSegmentInput(opts ...SegmentInputOption) application.SegmentInput {
	input := application.SegmentInput{
		Name:        "Class 8 Maths",
		Subject:     "Mathematics",
		PartnerName: "Rahim",
		PartnerRole: application.RoleStudent,
		ClassDays:   []time.Weekday{time.Sunday, time.Tuesday, time.Thursday},
		ClassTime:   "16:00",
		TargetDays:  12,
		MonthlyFee:  3000,
	}
	for _, opt := range opts {
		opt(&input)
	}
	return input
}

// WithSubject overrides the subject.
func WithSubject(subject string) SegmentInputOption {
	return func(in *application.SegmentInput) {
		in.Subject = subject
	}
}

// WithPartner overrides the partner name and role.
func WithPartner(name string, role application.UserRole) SegmentInputOption {
	return func(in *application.SegmentInput) {
		in.PartnerName = name
		in.PartnerRole = role
	}
}

// WithTargetDays overrides the classes per billing cycle.
func WithTargetDays(days int) SegmentInputOption {
	return func(in *application.SegmentInput) {
		in.TargetDays = days
	}
}

// WithMonthlyFee overrides the fee.
func WithMonthlyFee(fee int64) SegmentInputOption {
	return func(in *application.SegmentInput) {
		in.MonthlyFee = fee
	}
}

// WithClassSchedule overrides the class days and time.
func WithClassSchedule(classTime string, days ...time.Weekday) SegmentInputOption {
	return func(in *application.SegmentInput) {
		in.ClassTime = classTime
		in.ClassDays = days
	}
}

// SegmentOption configures a stored segment fixture.
type SegmentOption func(*application.Segment)

// NewSegment returns a stored-shape segment owned by userID.
func NewSegment(userID string, opts ...SegmentOption) application.Segment {
	idx := atomic.AddUint64(&segmentCounter, 1)
	input := NewSegmentInput()
	today := dates.Format(referenceTime)
	segment := application.Segment{
		ID:                fmt.Sprintf("segment-%03d", idx),
		Name:              input.Name,
		Subject:           input.Subject,
		UserID:            userID,
		PartnerName:       input.PartnerName,
		PartnerRole:       input.PartnerRole,
		ClassDays:         input.ClassDays,
		ClassTime:         input.ClassTime,
		TargetDays:        input.TargetDays,
		MonthlyFee:        input.MonthlyFee,
		CurrentCycleStart: today,
		CreatedAt:         today,
	}
	for _, opt := range opts {
		opt(&segment)
	}
	return segment
}

// WithSegmentID overrides the generated segment ID.
func WithSegmentID(id string) SegmentOption {
	return func(s *application.Segment) {
		s.ID = id
	}
}

// WithCycleStart overrides the current billing cycle start.
func WithCycleStart(date string) SegmentOption {
	return func(s *application.Segment) {
		s.CurrentCycleStart = date
	}
}

// WithSegmentTarget overrides the target days of a stored segment.
func WithSegmentTarget(days int) SegmentOption {
	return func(s *application.Segment) {
		s.TargetDays = days
	}
}

// ------------------------------ Store seeding ------------------------------

// Seed writes fixtures directly into store, bypassing the services.
type Seed struct {
	User       *application.User
	Segments   []application.Segment
	Attendance []application.AttendanceRecord
}

// SeedStore writes every populated part of seed in one batch.
func SeedStore(tb testing.TB, store persistence.Store, seed Seed) {
	tb.Helper()

	ctx := context.Background()
	if seed.User != nil {
		if err := persistence.NewDocument[application.User](store, persistence.KeyUser).Save(ctx, *seed.User); err != nil {
			tb.Fatalf("failed to seed user: %v", err)
		}
	}

	batch := persistence.NewBatch()
	if seed.Segments != nil {
		if err := persistence.NewCollection[application.Segment](store, persistence.KeySegments).Stage(batch, seed.Segments); err != nil {
			tb.Fatalf("failed to stage segments: %v", err)
		}
	}
	if seed.Attendance != nil {
		if err := persistence.NewCollection[application.AttendanceRecord](store, persistence.KeyAttendance).Stage(batch, seed.Attendance); err != nil {
			tb.Fatalf("failed to stage attendance: %v", err)
		}
	}
	if err := batch.Commit(ctx, store); err != nil {
		tb.Fatalf("failed to seed store: %v", err)
	}
}
