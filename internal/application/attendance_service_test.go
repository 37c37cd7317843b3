package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/shikkhajar/internal/application"
	"github.com/example/shikkhajar/internal/testfixtures"
)

func TestAttendanceService_MarkAttendanceUpsertsByDate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	segment := e.addSegment(t)

	first := e.mark(t, segment.ID, "2024-01-09", application.StatusPresent)
	second := e.mark(t, segment.ID, "2024-01-09", application.StatusMissed)
	require.NotEqual(t, first.ID, second.ID)

	records, err := e.services.Attendance.AttendanceForSegment(ctx, segment.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, second.ID, records[0].ID)
	assert.Equal(t, application.StatusMissed, records[0].Status)
	assert.Equal(t, e.user.ID, records[0].MarkedBy)

	found, err := e.services.Attendance.AttendanceForDate(ctx, segment.ID, "2024-01-09")
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)

	_, err = e.services.Attendance.AttendanceForDate(ctx, segment.ID, "2024-01-08")
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestAttendanceService_MarkAttendanceKeepsListPosition(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	segment := e.addSegment(t)

	e.mark(t, segment.ID, "2024-01-02", application.StatusPresent)
	e.mark(t, segment.ID, "2024-01-03", application.StatusPresent)
	e.mark(t, segment.ID, "2024-01-04", application.StatusPresent)
	replaced := e.mark(t, segment.ID, "2024-01-03", application.StatusMissed)

	records, err := e.services.Attendance.AttendanceForSegment(ctx, segment.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)

	got := make([]string, len(records))
	for i, record := range records {
		got[i] = record.Date + " " + string(record.Status)
	}
	assert.Equal(t, []string{"2024-01-02 present", "2024-01-03 missed", "2024-01-04 present"}, got)
	assert.Equal(t, replaced.ID, records[1].ID)
}

func TestAttendanceService_MarkAttendanceNotifies(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	segment := e.addSegment(t, testfixtures.WithSubject("Physics"), testfixtures.WithPartner("Karim", application.RoleStudent))

	e.mark(t, segment.ID, "2024-01-09", application.StatusPresent)
	e.mark(t, segment.ID, "2024-01-10", application.StatusMissed)

	notifications, err := e.services.Notifications.List(ctx)
	require.NoError(t, err)
	require.Len(t, notifications, 2)

	assert.Equal(t, "Class Status Updated", notifications[0].Title)
	assert.Equal(t, "Physics - Karim: missed", notifications[0].Message)
	assert.Equal(t, "Class Marked", notifications[1].Title)
	assert.Equal(t, "Physics - Karim: present", notifications[1].Message)
	for _, n := range notifications {
		assert.Equal(t, application.NotificationAttendanceMarked, n.Type)
		assert.Equal(t, segment.ID, n.SegmentID)
		assert.False(t, n.Read)
	}
}

func TestAttendanceService_MarkAttendanceWithoutSegmentSkipsNotification(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	e.mark(t, "missing-segment", "2024-01-09", application.StatusPresent)

	notifications, err := e.services.Notifications.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, notifications)

	orphans, err := e.services.Attendance.Orphans(ctx)
	require.NoError(t, err)
	assert.Len(t, orphans, 1)
}

func TestAttendanceService_MarkAttendanceRejectsUnknownStatus(t *testing.T) {
	e := newEnv(t)
	segment := e.addSegment(t)

	_, err := e.services.Attendance.MarkAttendance(context.Background(), segment.ID, "2024-01-09", application.AttendanceStatus("late"))

	var vErr *application.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.FieldErrors, "status")
}

func TestAttendanceService_UnauthenticatedLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	store := newSwitchableStore()
	factory := testfixtures.NewServiceFactory(testfixtures.WithStore(store))
	services := factory.Services()

	_, err := services.Attendance.MarkAttendance(ctx, "seg", "2024-01-09", application.StatusPresent)
	assert.ErrorIs(t, err, application.ErrUnauthenticated)

	_, err = services.Attendance.RequestReschedule(ctx, "seg", "2024-01-09", "2024-01-11", "17:00", "exam week")
	assert.ErrorIs(t, err, application.ErrUnauthenticated)

	_, err = services.Billing.MarkPayment(ctx, "seg", 1000)
	assert.ErrorIs(t, err, application.ErrUnauthenticated)

	assert.Empty(t, store.Keys())
	assert.Empty(t, factory.IDGenerator.Issued())
}

func TestAttendanceService_StorageFailure(t *testing.T) {
	ctx := context.Background()
	store := newSwitchableStore()
	e := newEnv(t, testfixtures.WithStore(store))
	segment := e.addSegment(t)
	e.mark(t, segment.ID, "2024-01-09", application.StatusPresent)

	store.FailWrites(true)
	_, err := e.services.Attendance.MarkAttendance(ctx, segment.ID, "2024-01-10", application.StatusPresent)
	require.ErrorIs(t, err, application.ErrStorage)
	assert.True(t, errors.Is(err, errWriteFailed))
	assert.Equal(t, "storage", application.ErrorKind(err))

	store.FailWrites(false)
	records, err := e.services.Attendance.AttendanceForSegment(ctx, segment.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestAttendanceService_SegmentProgress(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.factory.Clock.SetDate(2024, time.January, 1)
	segment := e.addSegment(t, testfixtures.WithTargetDays(3))

	progress, err := e.services.Attendance.SegmentProgress(ctx, segment.ID)
	require.NoError(t, err)
	assert.Equal(t, application.Progress{Taken: 0, Target: 3, DaysRemaining: 3}, progress)

	previous := progress.Taken
	statuses := []application.AttendanceStatus{
		application.StatusPresent,
		application.StatusMissed,
		application.StatusMakeup,
		application.StatusExam,
		application.StatusRescheduled,
		application.StatusPresent,
		application.StatusPresent,
	}
	for i, status := range statuses {
		e.mark(t, segment.ID, time.Date(2024, time.January, 2+i, 0, 0, 0, 0, time.Local).Format("2006-01-02"), status)
		progress, err = e.services.Attendance.SegmentProgress(ctx, segment.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, progress.Taken, previous)
		assert.GreaterOrEqual(t, progress.DaysRemaining, 0)
		previous = progress.Taken
	}

	assert.Equal(t, application.Progress{Taken: 4, Target: 3, DaysRemaining: 0}, progress)
	assert.Equal(t, application.StageComplete, progress.Stage())
}

func TestAttendanceService_SegmentProgressIgnoresRecordsBeforeCycle(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	user := testfixtures.NewUser()
	segment := testfixtures.NewSegment(user.ID, testfixtures.WithCycleStart("2024-01-05"), testfixtures.WithSegmentTarget(4))
	testfixtures.SeedStore(t, e.factory.Store, testfixtures.Seed{
		Segments: []application.Segment{segment},
		Attendance: []application.AttendanceRecord{
			{ID: "r1", SegmentID: segment.ID, Date: "2024-01-04", Status: application.StatusPresent},
			{ID: "r2", SegmentID: segment.ID, Date: "2024-01-05", Status: application.StatusPresent},
			{ID: "r3", SegmentID: segment.ID, Date: "2024-01-06", Status: application.StatusMakeup},
			{ID: "r4", SegmentID: "other", Date: "2024-01-06", Status: application.StatusPresent},
		},
	})

	progress, err := e.services.Attendance.SegmentProgress(ctx, segment.ID)
	require.NoError(t, err)
	assert.Equal(t, application.Progress{Taken: 2, Target: 4, DaysRemaining: 2}, progress)
	assert.Equal(t, application.StagePreparePayment, progress.Stage())
}

func TestAttendanceService_SegmentProgressMissingSegment(t *testing.T) {
	e := newEnv(t)

	progress, err := e.services.Attendance.SegmentProgress(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, application.Progress{}, progress)
}

func TestAttendanceService_RequestReschedule(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	segment := e.addSegment(t, testfixtures.WithSubject("Chemistry"), testfixtures.WithPartner("Tania", application.RoleStudent))
	e.mark(t, segment.ID, "2024-01-11", application.StatusPresent)

	record, err := e.services.Attendance.RequestReschedule(ctx, segment.ID, "2024-01-11", "2024-01-13", "18:30", "school trip")
	require.NoError(t, err)

	assert.Equal(t, application.StatusRescheduled, record.Status)
	require.NotNil(t, record.RescheduleInfo)
	assert.Equal(t, application.ReschedulePending, record.RescheduleInfo.Status)
	assert.Equal(t, "2024-01-11", record.RescheduleInfo.OriginalDate)
	assert.Equal(t, "2024-01-13", record.RescheduleInfo.ProposedDate)
	assert.Equal(t, "18:30", record.RescheduleInfo.ProposedTime)
	assert.Equal(t, e.user.ID, record.RescheduleInfo.ProposedBy)
	assert.Nil(t, record.RescheduleInfo.CounterProposal)
	assert.NotEqual(t, record.ID, record.RescheduleInfo.ID)

	records, err := e.services.Attendance.AttendanceForSegment(ctx, segment.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, record.ID, records[0].ID)

	notifications, err := e.services.Notifications.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, notifications)
	assert.Equal(t, application.NotificationRescheduleRequest, notifications[0].Type)
	assert.Equal(t, "Tania requested to reschedule Chemistry class", notifications[0].Message)
	assert.Equal(t, application.ActionAcceptReschedule, notifications[0].ActionType)
}

func TestAttendanceService_RespondToReschedule(t *testing.T) {
	tests := []struct {
		name        string
		params      application.RespondParams
		wantStatus  application.RescheduleStatus
		wantCounter *application.CounterProposal
	}{
		{
			name:       "accept",
			params:     application.RespondParams{Accept: true, CounterDate: "2024-01-14", CounterTime: "10:00", CounterReason: "ignored"},
			wantStatus: application.RescheduleAccepted,
		},
		{
			name:        "counter",
			params:      application.RespondParams{CounterDate: "2024-01-14", CounterTime: "10:00", CounterReason: "mornings work"},
			wantStatus:  application.RescheduleCounter,
			wantCounter: &application.CounterProposal{Date: "2024-01-14", Time: "10:00", Reason: "mornings work"},
		},
		{
			name:       "incomplete counter rejects",
			params:     application.RespondParams{CounterDate: "2024-01-14", CounterTime: "10:00"},
			wantStatus: application.RescheduleRejected,
		},
		{
			name:       "reject",
			params:     application.RespondParams{},
			wantStatus: application.RescheduleRejected,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			e := newEnv(t)
			segment := e.addSegment(t)
			requested, err := e.services.Attendance.RequestReschedule(ctx, segment.ID, "2024-01-11", "2024-01-13", "18:30", "trip")
			require.NoError(t, err)
			before, err := e.services.Notifications.List(ctx)
			require.NoError(t, err)

			params := tc.params
			params.RecordID = requested.ID
			record, err := e.services.Attendance.RespondToReschedule(ctx, params)
			require.NoError(t, err)

			assert.Equal(t, requested.ID, record.ID)
			assert.Equal(t, tc.wantStatus, record.RescheduleInfo.Status)
			assert.Equal(t, tc.wantCounter, record.RescheduleInfo.CounterProposal)

			stored, err := e.services.Attendance.AttendanceForDate(ctx, segment.ID, "2024-01-11")
			require.NoError(t, err)
			assert.Equal(t, record, stored)

			after, err := e.services.Notifications.List(ctx)
			require.NoError(t, err)
			assert.Len(t, after, len(before))

			_, err = e.services.Attendance.RespondToReschedule(ctx, application.RespondParams{RecordID: requested.ID, Accept: true})
			assert.ErrorIs(t, err, application.ErrRescheduleClosed)
		})
	}
}

func TestAttendanceService_RespondToRescheduleErrors(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	segment := e.addSegment(t)
	plain := e.mark(t, segment.ID, "2024-01-09", application.StatusPresent)

	_, err := e.services.Attendance.RespondToReschedule(ctx, application.RespondParams{RecordID: "missing", Accept: true})
	assert.ErrorIs(t, err, application.ErrNotFound)

	_, err = e.services.Attendance.RespondToReschedule(ctx, application.RespondParams{RecordID: plain.ID, Accept: true})
	assert.ErrorIs(t, err, application.ErrNoReschedule)
}

func TestAttendanceService_MonthSummary(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	maths := e.addSegment(t)
	physics := e.addSegment(t, testfixtures.WithSubject("Physics"))

	e.mark(t, maths.ID, "2024-01-02", application.StatusPresent)
	e.mark(t, maths.ID, "2024-01-03", application.StatusMakeup)
	e.mark(t, maths.ID, "2024-01-04", application.StatusMissed)
	e.mark(t, maths.ID, "2024-01-05", application.StatusExam)
	e.mark(t, maths.ID, "2024-02-01", application.StatusPresent)
	e.mark(t, physics.ID, "2024-01-06", application.StatusRescheduled)

	summary, err := e.services.Attendance.MonthSummary(ctx, maths.ID, 2024, time.January)
	require.NoError(t, err)
	assert.Equal(t, application.MonthSummary{Present: 2, Missed: 1}, summary)

	all, err := e.services.Attendance.MonthSummary(ctx, "", 2024, time.January)
	require.NoError(t, err)
	assert.Equal(t, application.MonthSummary{Present: 2, Missed: 1, Rescheduled: 1}, all)
}

func TestAttendanceService_OrphansAfterSegmentDeletion(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	kept := e.addSegment(t)
	removed := e.addSegment(t, testfixtures.WithSubject("Biology"))
	e.mark(t, kept.ID, "2024-01-02", application.StatusPresent)
	orphan := e.mark(t, removed.ID, "2024-01-02", application.StatusPresent)

	require.NoError(t, e.services.Segments.DeleteSegment(ctx, removed.ID))

	orphans, err := e.services.Attendance.Orphans(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, orphan.ID, orphans[0].ID)
}
