package application

import (
	"log/slog"
	"time"

	"github.com/example/shikkhajar/internal/persistence"
)

// Services groups every service bound to one record store.
type Services struct {
	Accounts      *AccountService
	Segments      *SegmentService
	Attendance    *AttendanceService
	Billing       *BillingService
	Notifications *NotificationService
	Exams         *ExamService
	Referrals     *ReferralService
}

// NewServices wires the services over store. The account service supplies
// the current user and the notification service receives emitted events.
func NewServices(store persistence.Store, idGenerator func() string, now func() time.Time, logger *slog.Logger) *Services {
	accounts := NewAccountServiceWithLogger(store, idGenerator, now, logger)
	notifications := NewNotificationServiceWithLogger(store, idGenerator, now, logger)
	return &Services{
		Accounts:      accounts,
		Segments:      NewSegmentServiceWithLogger(store, accounts, idGenerator, now, logger),
		Attendance:    NewAttendanceServiceWithLogger(store, accounts, notifications, idGenerator, now, logger),
		Billing:       NewBillingServiceWithLogger(store, accounts, notifications, idGenerator, now, logger),
		Notifications: notifications,
		Exams:         NewExamServiceWithLogger(store, idGenerator, now, logger),
		Referrals:     NewReferralServiceWithLogger(store, accounts, idGenerator, now, logger),
	}
}
