package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/example/shikkhajar/internal/application"
	"github.com/example/shikkhajar/internal/persistence"
	"github.com/example/shikkhajar/internal/persistence/memory"
	"github.com/example/shikkhajar/internal/testfixtures"
)

var errWriteFailed = errors.New("disk full")

// switchableStore fails every write once failWrites is set.
type switchableStore struct {
	*memory.Storage

	mu         sync.Mutex
	failWrites bool
}

func newSwitchableStore() *switchableStore {
	return &switchableStore{Storage: memory.Open()}
}

func (s *switchableStore) FailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = fail
}

func (s *switchableStore) SetMany(ctx context.Context, entries map[persistence.Key][]byte) error {
	s.mu.Lock()
	fail := s.failWrites
	s.mu.Unlock()
	if fail {
		return errWriteFailed
	}
	return s.Storage.SetMany(ctx, entries)
}

func (s *switchableStore) Delete(ctx context.Context, keys ...persistence.Key) error {
	s.mu.Lock()
	fail := s.failWrites
	s.mu.Unlock()
	if fail {
		return errWriteFailed
	}
	return s.Storage.Delete(ctx, keys...)
}

type env struct {
	factory  *testfixtures.ServiceFactory
	services *application.Services
	user     application.User
}

// newEnv returns logged in services over an in-memory store.
func newEnv(t *testing.T, opts ...testfixtures.ServiceFactoryOption) env {
	t.Helper()
	factory := testfixtures.NewServiceFactory(opts...)
	services, user := factory.LoggedIn(t)
	return env{factory: factory, services: services, user: user}
}

func (e env) addSegment(t *testing.T, opts ...testfixtures.SegmentInputOption) application.Segment {
	t.Helper()
	segment, err := e.services.Segments.AddSegment(context.Background(), testfixtures.NewSegmentInput(opts...))
	if err != nil {
		t.Fatalf("AddSegment failed: %v", err)
	}
	return segment
}

func (e env) mark(t *testing.T, segmentID, date string, status application.AttendanceStatus) application.AttendanceRecord {
	t.Helper()
	record, err := e.services.Attendance.MarkAttendance(context.Background(), segmentID, date, status)
	if err != nil {
		t.Fatalf("MarkAttendance(%s, %s) failed: %v", date, status, err)
	}
	return record
}
