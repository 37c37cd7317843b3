package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/example/shikkhajar/internal/persistence"
)

const (
	referralCodePrefix = "SHIKKHA"
	referralCredit     = 50
)

// ReferralService tracks people the user invited and the credit earned.
type ReferralService struct {
	ledger      ledger
	users       CurrentUserProvider
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewReferralService constructs a referral service with the provided dependencies.
func NewReferralService(store persistence.Store, users CurrentUserProvider, idGenerator func() string, now func() time.Time) *ReferralService {
	return NewReferralServiceWithLogger(store, users, idGenerator, now, nil)
}

// NewReferralServiceWithLogger constructs a referral service with a specified logger.
func NewReferralServiceWithLogger(store persistence.Store, users CurrentUserProvider, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReferralService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReferralService{ledger: newLedger(store), users: users, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *ReferralService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReferralService", operation, attrs...)
}

// AddReferral stores a pending referral made by the current user.
func (s *ReferralService) AddReferral(ctx context.Context, input ReferralInput) (referral Referral, err error) {
	if s == nil {
		err = fmt.Errorf("ReferralService is nil")
		return
	}

	logger := s.loggerWith(ctx, "AddReferral")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add referral", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("referral_id", referral.ID).InfoContext(ctx, "referral added")
	}()

	user, err := currentUser(ctx, s.users)
	if err != nil {
		return
	}

	input.ReferredName = strings.TrimSpace(input.ReferredName)
	input.ReferredPhone = strings.TrimSpace(input.ReferredPhone)
	if vErr := inputs.check(input); vErr.HasErrors() {
		err = vErr
		return
	}

	referrals, loadErr := s.ledger.referrals.All(ctx)
	if loadErr != nil {
		err = storageError("load referrals", loadErr)
		return
	}

	candidate := Referral{
		ID:            s.idGenerator(),
		ReferrerID:    user.ID,
		ReferredName:  input.ReferredName,
		ReferredPhone: input.ReferredPhone,
		Status:        ReferralPending,
		CreatedAt:     s.now().UTC().Format(timestampLayout),
	}

	if replaceErr := s.ledger.referrals.Replace(ctx, append(referrals, candidate)); replaceErr != nil {
		err = storageError("save referrals", replaceErr)
		return
	}
	referral = candidate
	return
}

// CompleteReferral marks a referral as completed. Completing twice is a no-op.
func (s *ReferralService) CompleteReferral(ctx context.Context, referralID string) (referral Referral, err error) {
	if s == nil {
		err = fmt.Errorf("ReferralService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CompleteReferral", "referral_id", referralID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to complete referral", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "referral completed")
	}()

	referrals, loadErr := s.ledger.referrals.All(ctx)
	if loadErr != nil {
		err = storageError("load referrals", loadErr)
		return
	}

	index := -1
	for i := range referrals {
		if referrals[i].ID == referralID {
			index = i
			break
		}
	}
	if index < 0 {
		err = fmt.Errorf("referral %s: %w", referralID, ErrNotFound)
		return
	}
	if referrals[index].Status == ReferralCompleted {
		referral = referrals[index]
		return
	}

	referrals[index].Status = ReferralCompleted
	if replaceErr := s.ledger.referrals.Replace(ctx, referrals); replaceErr != nil {
		err = storageError("save referrals", replaceErr)
		return
	}
	referral = referrals[index]
	return
}

// ListReferrals returns referrals in the order they were made.
func (s *ReferralService) ListReferrals(ctx context.Context) ([]Referral, error) {
	if s == nil {
		return nil, fmt.Errorf("ReferralService is nil")
	}
	referrals, err := s.ledger.referrals.All(ctx)
	if err != nil {
		return nil, storageError("load referrals", err)
	}
	return referrals, nil
}

// Summary reports the user's referral code and the credit earned so far.
// Every referral earns credit, whether or not it has completed.
func (s *ReferralService) Summary(ctx context.Context) (ReferralSummary, error) {
	if s == nil {
		return ReferralSummary{}, fmt.Errorf("ReferralService is nil")
	}

	user, err := currentUser(ctx, s.users)
	if err != nil {
		return ReferralSummary{}, err
	}
	referrals, err := s.ListReferrals(ctx)
	if err != nil {
		return ReferralSummary{}, err
	}

	summary := ReferralSummary{Code: ReferralCode(user), Total: len(referrals)}
	for _, referral := range referrals {
		switch referral.Status {
		case ReferralPending:
			summary.Pending++
		case ReferralCompleted:
			summary.Completed++
		}
	}
	summary.Credits = summary.Total * referralCredit
	return summary, nil
}

// ReferralCode returns the user's stored code, or one derived from the last
// four digits of their phone number.
func ReferralCode(user User) string {
	if user.ReferralCode != "" {
		return user.ReferralCode
	}
	digits := make([]rune, 0, len(user.Phone))
	for _, r := range user.Phone {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return referralCodePrefix + "0000"
	}
	return referralCodePrefix + string(digits[len(digits)-4:])
}
