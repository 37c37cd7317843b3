package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/example/shikkhajar/internal/application"
	"github.com/example/shikkhajar/internal/config"
	"github.com/example/shikkhajar/internal/ids"
	"github.com/example/shikkhajar/internal/logging"
	"github.com/example/shikkhajar/internal/persistence"
	"github.com/example/shikkhajar/internal/persistence/memory"
	"github.com/example/shikkhajar/internal/persistence/sqlite"
)

// ledgerStore is a record store the CLI can migrate and close.
type ledgerStore interface {
	persistence.Store
	Migrate(ctx context.Context) error
	Close() error
}

// cli holds the process level dependencies shared by every command.
type cli struct {
	stdout      io.Writer
	stderr      io.Writer
	loadConfig  func() (config.Config, error)
	idGenerator func() string
	now         func() time.Time
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{
		stdout:      stdout,
		stderr:      stderr,
		loadConfig:  config.Load,
		idGenerator: ids.New,
		now:         time.Now,
	}
}

// session is one opened store with services wired over it.
type session struct {
	cfg      config.Config
	logger   *slog.Logger
	store    ledgerStore
	services *application.Services
}

// open loads configuration, opens and migrates the store and wires services.
func (c *cli) open(ctx context.Context) (*session, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.New(c.stderr, level).With("component", "shikkhajar")
	ctx = logging.ContextWithLogger(ctx, logger)

	store, err := openStore(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "failed to open storage", "driver", cfg.StoreDriver, "error", err)
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to apply migrations", "error", err)
		_ = store.Close()
		return nil, err
	}

	return &session{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		services: application.NewServices(store, c.idGenerator, c.now, logger),
	}, nil
}

func (s *session) close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("failed to close storage", "error", err)
	}
}

func openStore(cfg config.Config) (ledgerStore, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.Open(), nil
	case config.DriverSQLite, "":
		storage, err := sqlite.Open(cfg.StoreDSN)
		if err != nil {
			return nil, err
		}
		return storage, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// describeError turns service errors into short operator facing messages.
func describeError(err error) error {
	var vErr *application.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &vErr):
		return vErr
	case errors.Is(err, application.ErrUnauthenticated):
		return errors.New("not logged in: run `shikkhajar login` first")
	case errors.Is(err, application.ErrNotFound):
		return fmt.Errorf("not found: %w", err)
	default:
		return err
	}
}
