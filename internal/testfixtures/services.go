package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/example/shikkhajar/internal/application"
	"github.com/example/shikkhajar/internal/persistence"
	"github.com/example/shikkhajar/internal/persistence/memory"
)

// ServiceFactory builds application services over a store with a
// deterministic clock and identifiers.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Store       persistence.Store
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory backed by an in-memory store.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Store:       memory.Open(),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Store == nil {
		factory.Store = memory.Open()
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithStore overrides the record store used by the factory.
func WithStore(store persistence.Store) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Store = store
	}
}

// WithLogger overrides the logger handed to services.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// Services wires every application service with the factory defaults.
func (f *ServiceFactory) Services() *application.Services {
	return application.NewServices(f.Store, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

// LoggedIn wires the services and signs in a tutor.
func (f *ServiceFactory) LoggedIn(tb testing.TB) (*application.Services, application.User) {
	tb.Helper()

	services := f.Services()
	user, err := services.Accounts.Login(context.Background(), application.LoginInput{
		Phone:    "+8801711223344",
		Name:     "Nusrat",
		Role:     application.RoleTutor,
		Language: application.LanguageBangla,
	})
	if err != nil {
		tb.Fatalf("failed to log in fixture user: %v", err)
	}
	return services, user
}
