package application

import (
	"encoding/json"
	"fmt"
	"time"
)

// UserRole identifies how a person takes part in a tutoring relationship.
type UserRole string

const (
	RoleParent  UserRole = "parent"
	RoleStudent UserRole = "student"
	RoleTutor   UserRole = "tutor"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleParent, RoleStudent, RoleTutor:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown roles.
func (r *UserRole) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, r, "user role")
}

// Language is the interface language chosen by the user.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageBangla  Language = "bn"
)

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	switch l {
	case LanguageEnglish, LanguageBangla:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown languages.
func (l *Language) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, l, "language")
}

// DarkMode selects the colour scheme preference.
type DarkMode string

const (
	DarkModeSystem DarkMode = "system"
	DarkModeLight  DarkMode = "light"
	DarkModeDark   DarkMode = "dark"
)

// Valid reports whether m is a known dark mode preference.
func (m DarkMode) Valid() bool {
	switch m {
	case DarkModeSystem, DarkModeLight, DarkModeDark:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown dark mode preferences.
func (m *DarkMode) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, m, "dark mode")
}

// AttendanceStatus is the outcome recorded for one class date.
type AttendanceStatus string

const (
	StatusPresent     AttendanceStatus = "present"
	StatusMissed      AttendanceStatus = "missed"
	StatusRescheduled AttendanceStatus = "rescheduled"
	StatusMakeup      AttendanceStatus = "makeup"
	StatusExam        AttendanceStatus = "exam"
)

// Valid reports whether s is a known attendance status.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusMissed, StatusRescheduled, StatusMakeup, StatusExam:
		return true
	}
	return false
}

// CountsAsTaken reports whether the status consumes one class of the cycle.
func (s AttendanceStatus) CountsAsTaken() bool {
	switch s {
	case StatusPresent, StatusMakeup:
		return true
	case StatusMissed, StatusRescheduled, StatusExam:
		return false
	}
	return false
}

// UnmarshalJSON rejects unknown attendance statuses.
func (s *AttendanceStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, s, "attendance status")
}

// RescheduleStatus is the negotiation state of a reschedule proposal.
type RescheduleStatus string

const (
	ReschedulePending  RescheduleStatus = "pending"
	RescheduleAccepted RescheduleStatus = "accepted"
	RescheduleRejected RescheduleStatus = "rejected"
	RescheduleCounter  RescheduleStatus = "counter"
)

// Valid reports whether s is a known reschedule status.
func (s RescheduleStatus) Valid() bool {
	switch s {
	case ReschedulePending, RescheduleAccepted, RescheduleRejected, RescheduleCounter:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown reschedule statuses.
func (s *RescheduleStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, s, "reschedule status")
}

// NotificationType names the event a notification reports.
type NotificationType string

const (
	NotificationAttendanceMarked    NotificationType = "attendance_marked"
	NotificationAttendanceReminder  NotificationType = "attendance_reminder"
	NotificationRescheduleRequest   NotificationType = "reschedule_request"
	NotificationRescheduleResponse  NotificationType = "reschedule_response"
	NotificationPaymentReminder     NotificationType = "payment_reminder"
	NotificationPaymentReceived     NotificationType = "payment_received"
	NotificationCycleWarning        NotificationType = "cycle_warning"
	NotificationCycleComplete       NotificationType = "cycle_complete"
	NotificationExamReminder        NotificationType = "exam_reminder"
	NotificationCollaborationInvite NotificationType = "collaboration_invite"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationAttendanceMarked,
		NotificationAttendanceReminder,
		NotificationRescheduleRequest,
		NotificationRescheduleResponse,
		NotificationPaymentReminder,
		NotificationPaymentReceived,
		NotificationCycleWarning,
		NotificationCycleComplete,
		NotificationExamReminder,
		NotificationCollaborationInvite:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown notification types.
func (t *NotificationType) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, t, "notification type")
}

// NotificationAction is the follow-up a notification invites. The empty
// value means no action.
type NotificationAction string

const (
	ActionNone             NotificationAction = ""
	ActionMarkAttendance   NotificationAction = "mark_attendance"
	ActionAcceptReschedule NotificationAction = "accept_reschedule"
	ActionMarkPaid         NotificationAction = "mark_paid"
	ActionView             NotificationAction = "view"
)

// Valid reports whether a is a known action, including ActionNone.
func (a NotificationAction) Valid() bool {
	switch a {
	case ActionNone, ActionMarkAttendance, ActionAcceptReschedule, ActionMarkPaid, ActionView:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown actions.
func (a *NotificationAction) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, a, "notification action")
}

// ReferralStatus tracks whether a referred person has signed up.
type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralCompleted ReferralStatus = "completed"
)

// Valid reports whether s is a known referral status.
func (s ReferralStatus) Valid() bool {
	switch s {
	case ReferralPending, ReferralCompleted:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown referral statuses.
func (s *ReferralStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, s, "referral status")
}

type enumValue interface {
	~string
	Valid() bool
}

func unmarshalEnum[E enumValue](data []byte, target *E, kind string) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	value := E(raw)
	if !value.Valid() {
		return fmt.Errorf("unknown %s %q", kind, raw)
	}
	*target = value
	return nil
}

// UserSettings holds display and feedback preferences.
type UserSettings struct {
	AttendanceColor string   `json:"attendanceColor"`
	SoundEnabled    bool     `json:"soundEnabled"`
	HapticEnabled   bool     `json:"hapticEnabled"`
	DarkMode        DarkMode `json:"darkMode"`
}

// DefaultUserSettings returns the settings assigned at first login.
func DefaultUserSettings() UserSettings {
	return UserSettings{
		AttendanceColor: "#4CAF50",
		SoundEnabled:    true,
		HapticEnabled:   true,
		DarkMode:        DarkModeSystem,
	}
}

// User is the single authenticated local account.
type User struct {
	ID           string       `json:"id"`
	Phone        string       `json:"phone"`
	Name         string       `json:"name"`
	Role         UserRole     `json:"role"`
	Language     Language     `json:"language"`
	CreatedAt    string       `json:"createdAt"`
	ReferralCode string       `json:"referralCode,omitempty"`
	Settings     UserSettings `json:"settings"`
}

// Segment is one tutoring relationship for one subject.
type Segment struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Subject           string         `json:"subject"`
	UserID            string         `json:"userId"`
	PartnerID         string         `json:"partnerId,omitempty"`
	PartnerName       string         `json:"partnerName"`
	PartnerRole       UserRole       `json:"partnerRole"`
	ClassDays         []time.Weekday `json:"classDays"`
	ClassTime         string         `json:"classTime"`
	TargetDays        int            `json:"targetDays"`
	MonthlyFee        int64          `json:"monthlyFee"`
	CurrentCycleStart string         `json:"currentCycleStart"`
	CreatedAt         string         `json:"createdAt"`
	IsCollaborated    bool           `json:"isCollaborated"`
}

// CounterProposal is the alternative slot offered instead of a proposal.
type CounterProposal struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	Reason string `json:"reason"`
}

// RescheduleInfo is the negotiation state embedded on a rescheduled record.
// CounterProposal is set exactly when Status is RescheduleCounter.
type RescheduleInfo struct {
	ID              string           `json:"id"`
	OriginalDate    string           `json:"originalDate"`
	ProposedDate    string           `json:"proposedDate"`
	ProposedTime    string           `json:"proposedTime"`
	Reason          string           `json:"reason"`
	ProposedBy      string           `json:"proposedBy"`
	Status          RescheduleStatus `json:"status"`
	CounterProposal *CounterProposal `json:"counterProposal,omitempty"`
}

// ExamInfo describes an exam held in place of a class.
type ExamInfo struct {
	Subject   string `json:"subject"`
	Notes     string `json:"notes,omitempty"`
	ResultURL string `json:"resultUrl,omitempty"`
}

// AttendanceRecord is the status of one segment on one calendar date.
type AttendanceRecord struct {
	ID             string           `json:"id"`
	SegmentID      string           `json:"segmentId"`
	Date           string           `json:"date"`
	Status         AttendanceStatus `json:"status"`
	MarkedBy       string           `json:"markedBy"`
	MarkedAt       string           `json:"markedAt"`
	RescheduleInfo *RescheduleInfo  `json:"rescheduleInfo,omitempty"`
	ExamInfo       *ExamInfo        `json:"examInfo,omitempty"`
}

func (r AttendanceRecord) clone() AttendanceRecord {
	out := r
	if r.RescheduleInfo != nil {
		info := *r.RescheduleInfo
		if info.CounterProposal != nil {
			counter := *info.CounterProposal
			info.CounterProposal = &counter
		}
		out.RescheduleInfo = &info
	}
	if r.ExamInfo != nil {
		exam := *r.ExamInfo
		out.ExamInfo = &exam
	}
	return out
}

// PaymentRecord closes one billing cycle. Counts are frozen at payment time.
type PaymentRecord struct {
	ID                 string `json:"id"`
	SegmentID          string `json:"segmentId"`
	Amount             int64  `json:"amount"`
	PaidAt             string `json:"paidAt"`
	CycleStart         string `json:"cycleStart"`
	CycleEnd           string `json:"cycleEnd"`
	ClassesTaken       int    `json:"classesTaken"`
	ClassesMissed      int    `json:"classesMissed"`
	ClassesRescheduled int    `json:"classesRescheduled"`
}

// SessionSummary is a point-in-time snapshot of a completed cycle.
type SessionSummary struct {
	ID                 string             `json:"id"`
	SegmentID          string             `json:"segmentId"`
	Month              string             `json:"month"`
	Year               int                `json:"year"`
	ClassesTaken       int                `json:"classesTaken"`
	ClassesMissed      int                `json:"classesMissed"`
	ClassesRescheduled int                `json:"classesRescheduled"`
	AmountPaid         int64              `json:"amountPaid"`
	AttendanceRecords  []AttendanceRecord `json:"attendanceRecords"`
	PaymentRecord      *PaymentRecord     `json:"paymentRecord,omitempty"`
}

// Notification is one entry of the user-visible event log.
type Notification struct {
	ID         string             `json:"id"`
	Type       NotificationType   `json:"type"`
	Title      string             `json:"title"`
	Message    string             `json:"message"`
	SegmentID  string             `json:"segmentId,omitempty"`
	Date       string             `json:"date"`
	Read       bool               `json:"read"`
	ActionType NotificationAction `json:"actionType,omitempty"`
	CreatedAt  string             `json:"createdAt"`
}

// NotificationInput carries the caller supplied fields of a notification.
type NotificationInput struct {
	Type       NotificationType
	Title      string
	Message    string
	SegmentID  string
	Date       string
	ActionType NotificationAction
}

// ExamResult records marks obtained in one exam.
type ExamResult struct {
	ID                string `json:"id"`
	SegmentID         string `json:"segmentId"`
	Date              string `json:"date"`
	Subject           string `json:"subject"`
	Marks             int    `json:"marks"`
	TotalMarks        int    `json:"totalMarks"`
	Notes             string `json:"notes,omitempty"`
	ImageURI          string `json:"imageUri,omitempty"`
	VoiceNoteURI      string `json:"voiceNoteUri,omitempty"`
	VoiceNoteDuration int    `json:"voiceNoteDuration,omitempty"`
	CreatedAt         string `json:"createdAt"`
}

// Referral records a person invited by the user.
type Referral struct {
	ID            string         `json:"id"`
	ReferrerID    string         `json:"referrerId"`
	ReferredName  string         `json:"referredName"`
	ReferredPhone string         `json:"referredPhone,omitempty"`
	Status        ReferralStatus `json:"status"`
	CreatedAt     string         `json:"createdAt"`
}

// ProgressStage summarises how close a segment is to the end of its cycle.
type ProgressStage string

const (
	StageInProgress     ProgressStage = "in_progress"
	StagePreparePayment ProgressStage = "prepare_payment"
	StageFinalDay       ProgressStage = "final_day"
	StageComplete       ProgressStage = "complete"
)

// Progress reports classes taken in the current cycle against the target.
type Progress struct {
	Taken         int `json:"taken"`
	Target        int `json:"target"`
	DaysRemaining int `json:"daysRemaining"`
}

// Stage maps the remaining classes onto a reminder stage.
func (p Progress) Stage() ProgressStage {
	switch p.DaysRemaining {
	case 0:
		return StageComplete
	case 1:
		return StageFinalDay
	case 2:
		return StagePreparePayment
	default:
		return StageInProgress
	}
}

// MonthSummary counts attendance outcomes within one calendar month.
type MonthSummary struct {
	Present     int `json:"present"`
	Missed      int `json:"missed"`
	Rescheduled int `json:"rescheduled"`
}

// MonthlyEarnings is one row of the portfolio breakdown.
type MonthlyEarnings struct {
	Month    string `json:"month"`
	Year     int    `json:"year"`
	Classes  int    `json:"classes"`
	Earnings int64  `json:"earnings"`
}

// PortfolioStats aggregates a tutor's history across segments.
type PortfolioStats struct {
	TotalClasses     int               `json:"totalClasses"`
	TotalStudents    int               `json:"totalStudents"`
	TotalEarnings    int64             `json:"totalEarnings"`
	Subjects         []string          `json:"subjects"`
	MonthlyBreakdown []MonthlyEarnings `json:"monthlyBreakdown"`
}

// ReferralSummary reports the user's referral code and earned credits.
type ReferralSummary struct {
	Code      string `json:"code"`
	Total     int    `json:"total"`
	Pending   int    `json:"pending"`
	Completed int    `json:"completed"`
	Credits   int    `json:"credits"`
}
