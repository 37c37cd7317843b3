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

// CurrentUserProvider resolves the authenticated local user.
type CurrentUserProvider interface {
	CurrentUser(ctx context.Context) (User, error)
}

// AccountService manages the single local account and its settings.
type AccountService struct {
	ledger      ledger
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAccountService constructs an account service with the provided dependencies.
func NewAccountService(store persistence.Store, idGenerator func() string, now func() time.Time) *AccountService {
	return NewAccountServiceWithLogger(store, idGenerator, now, nil)
}

// NewAccountServiceWithLogger constructs an account service with a specified logger.
func NewAccountServiceWithLogger(store persistence.Store, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AccountService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AccountService{ledger: newLedger(store), idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *AccountService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AccountService", operation, attrs...)
}

// Login stores a fresh account with default settings, replacing any previous one.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("AccountService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Login", "role", input.Role)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to log in", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user logged in")
	}()

	input.Phone = strings.TrimSpace(input.Phone)
	input.Name = strings.TrimSpace(input.Name)
	if vErr := inputs.check(input); vErr.HasErrors() {
		err = vErr
		return
	}

	user = User{
		ID:        s.idGenerator(),
		Phone:     input.Phone,
		Name:      input.Name,
		Role:      input.Role,
		Language:  input.Language,
		CreatedAt: dates.Today(s.now()),
		Settings:  DefaultUserSettings(),
	}

	if saveErr := s.ledger.user.Save(ctx, user); saveErr != nil {
		err = storageError("save user", saveErr)
		user = User{}
	}
	return
}

// CurrentUser returns the stored user or ErrUnauthenticated.
func (s *AccountService) CurrentUser(ctx context.Context) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("AccountService is nil")
	}
	return s.ledger.loadUser(ctx)
}

// Logout removes the account and every collection it owns.
func (s *AccountService) Logout(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("AccountService is nil")
	}

	logger := s.loggerWith(ctx, "Logout")
	if err := s.ledger.store.Delete(ctx, persistence.AllKeys()...); err != nil {
		err = storageError("clear data", err)
		logger.ErrorContext(ctx, "failed to log out", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "user logged out")
	return nil
}

// UpdateProfile changes the user's name, language and referral code.
func (s *AccountService) UpdateProfile(ctx context.Context, input ProfileInput) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("AccountService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateProfile")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update profile", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "profile updated")
	}()

	user, err = s.ledger.loadUser(ctx)
	if err != nil {
		return
	}

	input.Name = strings.TrimSpace(input.Name)
	input.ReferralCode = strings.ToUpper(strings.TrimSpace(input.ReferralCode))
	if vErr := inputs.check(input); vErr.HasErrors() {
		err = vErr
		return
	}

	updated := user
	updated.Name = input.Name
	updated.Language = input.Language
	updated.ReferralCode = input.ReferralCode

	if saveErr := s.ledger.user.Save(ctx, updated); saveErr != nil {
		err = storageError("save user", saveErr)
		return
	}
	user = updated
	return
}

// UpdateSettings merges the non-nil fields of patch into the stored settings.
func (s *AccountService) UpdateSettings(ctx context.Context, patch SettingsPatch) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("AccountService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateSettings")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update settings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "settings updated")
	}()

	user, err = s.ledger.loadUser(ctx)
	if err != nil {
		return
	}

	if vErr := inputs.check(patch); vErr.HasErrors() {
		err = vErr
		return
	}

	updated := user
	if patch.AttendanceColor != nil {
		updated.Settings.AttendanceColor = *patch.AttendanceColor
	}
	if patch.SoundEnabled != nil {
		updated.Settings.SoundEnabled = *patch.SoundEnabled
	}
	if patch.HapticEnabled != nil {
		updated.Settings.HapticEnabled = *patch.HapticEnabled
	}
	if patch.DarkMode != nil {
		updated.Settings.DarkMode = *patch.DarkMode
	}

	if saveErr := s.ledger.user.Save(ctx, updated); saveErr != nil {
		err = storageError("save user", saveErr)
		return
	}
	user = updated
	return
}
