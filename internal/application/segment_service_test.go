package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/shikkhajar/internal/application"
	"github.com/example/shikkhajar/internal/calendar"
	"github.com/example/shikkhajar/internal/testfixtures"
)

func TestSegmentService_AddSegment(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	input := testfixtures.NewSegmentInput(testfixtures.WithClassSchedule("07:30", time.Thursday, time.Sunday, time.Thursday))
	segment, err := e.services.Segments.AddSegment(ctx, input)
	require.NoError(t, err)

	assert.NotEmpty(t, segment.ID)
	assert.Equal(t, e.user.ID, segment.UserID)
	assert.Equal(t, e.factory.Clock.Today(), segment.CurrentCycleStart)
	assert.Equal(t, e.factory.Clock.Today(), segment.CreatedAt)
	assert.Equal(t, []time.Weekday{time.Sunday, time.Thursday}, segment.ClassDays)
	assert.False(t, segment.IsCollaborated)

	listed, err := e.services.Segments.ListSegments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []application.Segment{segment}, listed)
}

func TestSegmentService_AddSegmentValidation(t *testing.T) {
	e := newEnv(t)

	input := testfixtures.NewSegmentInput(
		testfixtures.WithSubject(" "),
		testfixtures.WithTargetDays(0),
		testfixtures.WithMonthlyFee(-5),
		testfixtures.WithClassSchedule("25:00"),
	)
	_, err := e.services.Segments.AddSegment(context.Background(), input)

	var vErr *application.ValidationError
	require.ErrorAs(t, err, &vErr)
	for _, field := range []string{"subject", "targetDays", "monthlyFee", "classTime", "classDays"} {
		assert.Contains(t, vErr.FieldErrors, field)
	}

	segments, err := e.services.Segments.ListSegments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestSegmentService_AddSegmentRequiresLogin(t *testing.T) {
	services := testfixtures.NewServiceFactory().Services()

	_, err := services.Segments.AddSegment(context.Background(), testfixtures.NewSegmentInput())
	assert.ErrorIs(t, err, application.ErrUnauthenticated)
}

func TestSegmentService_UpdateSegmentRequiresLogin(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	segment := e.addSegment(t)
	require.NoError(t, e.services.Accounts.Logout(ctx))

	user := testfixtures.NewUser()
	testfixtures.SeedStore(t, e.factory.Store, testfixtures.Seed{Segments: []application.Segment{segment}})
	_, err := e.services.Segments.UpdateSegment(ctx, segment.ID, testfixtures.NewSegmentInput(testfixtures.WithSubject("Changed")))
	assert.ErrorIs(t, err, application.ErrUnauthenticated)

	stored, err := e.services.Segments.GetSegment(ctx, segment.ID)
	require.NoError(t, err)
	assert.Equal(t, segment.Subject, stored.Subject)

	testfixtures.SeedStore(t, e.factory.Store, testfixtures.Seed{User: &user})
	updated, err := e.services.Segments.UpdateSegment(ctx, segment.ID, testfixtures.NewSegmentInput(testfixtures.WithSubject("Changed")))
	require.NoError(t, err)
	assert.Equal(t, "Changed", updated.Subject)
}

func TestSegmentService_UpdateSegmentKeepsCycle(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.factory.Clock.SetDate(2024, time.January, 1)
	segment := e.addSegment(t)

	e.factory.Clock.SetDate(2024, time.January, 15)
	updated, err := e.services.Segments.UpdateSegment(ctx, segment.ID, testfixtures.NewSegmentInput(
		testfixtures.WithSubject("Higher Maths"),
		testfixtures.WithTargetDays(8),
	))
	require.NoError(t, err)

	assert.Equal(t, segment.ID, updated.ID)
	assert.Equal(t, "Higher Maths", updated.Subject)
	assert.Equal(t, 8, updated.TargetDays)
	assert.Equal(t, "2024-01-01", updated.CurrentCycleStart)
	assert.Equal(t, "2024-01-01", updated.CreatedAt)
	assert.Equal(t, segment.UserID, updated.UserID)

	_, err = e.services.Segments.UpdateSegment(ctx, "missing", testfixtures.NewSegmentInput())
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestSegmentService_DeleteSegment(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	first := e.addSegment(t)
	second := e.addSegment(t, testfixtures.WithSubject("Physics"))

	require.NoError(t, e.services.Segments.DeleteSegment(ctx, first.ID))

	listed, err := e.services.Segments.ListSegments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []application.Segment{second}, listed)

	err = e.services.Segments.DeleteSegment(ctx, first.ID)
	assert.ErrorIs(t, err, application.ErrNotFound)

	_, err = e.services.Segments.GetSegment(ctx, first.ID)
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestSegmentService_ReminderPlan(t *testing.T) {
	e := newEnv(t)
	segment := e.addSegment(t, testfixtures.WithClassSchedule("00:10", time.Monday, time.Wednesday))

	slots, err := e.services.Segments.ReminderPlan(context.Background(), segment.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, []calendar.Slot{
		{Weekday: time.Sunday, Hour: 23, Minute: 40},
		{Weekday: time.Tuesday, Hour: 23, Minute: 40},
	}, slots)

	_, err = e.services.Segments.ReminderPlan(context.Background(), "missing", 30)
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestSegmentService_UpcomingClasses(t *testing.T) {
	e := newEnv(t)
	// 2024-01-10 is a Wednesday.
	e.factory.Clock.SetDate(2024, time.January, 10)
	segment := e.addSegment(t, testfixtures.WithClassSchedule("16:00", time.Sunday, time.Wednesday))

	upcoming, err := e.services.Segments.UpcomingClasses(context.Background(), segment.ID, 14)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-10", "2024-01-14", "2024-01-17", "2024-01-21"}, upcoming)

	none, err := e.services.Segments.UpcomingClasses(context.Background(), segment.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
