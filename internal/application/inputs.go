package application

import "time"

// LoginInput captures the fields collected when a user signs in.
type LoginInput struct {
	Phone    string   `json:"phone" validate:"notblank,phone"`
	Name     string   `json:"name" validate:"notblank,max=80"`
	Role     UserRole `json:"role" validate:"enum"`
	Language Language `json:"language" validate:"enum"`
}

// ProfileInput captures editable profile fields.
type ProfileInput struct {
	Name         string   `json:"name" validate:"notblank,max=80"`
	Language     Language `json:"language" validate:"enum"`
	ReferralCode string   `json:"referralCode" validate:"omitempty,alphanum,max=16"`
}

// SettingsPatch updates only the non-nil settings.
type SettingsPatch struct {
	AttendanceColor *string   `json:"attendanceColor" validate:"omitempty,hexcolor"`
	SoundEnabled    *bool     `json:"soundEnabled"`
	HapticEnabled   *bool     `json:"hapticEnabled"`
	DarkMode        *DarkMode `json:"darkMode" validate:"omitempty,enum"`
}

// SegmentInput captures caller provided segment fields.
type SegmentInput struct {
	Name        string         `json:"name" validate:"notblank,max=120"`
	Subject     string         `json:"subject" validate:"notblank,max=120"`
	PartnerID   string         `json:"partnerId"`
	PartnerName string         `json:"partnerName" validate:"notblank,max=120"`
	PartnerRole UserRole       `json:"partnerRole" validate:"enum"`
	ClassDays   []time.Weekday `json:"classDays" validate:"min=1,dive,min=0,max=6"`
	ClassTime   string         `json:"classTime" validate:"classtime"`
	TargetDays  int            `json:"targetDays" validate:"gt=0"`
	MonthlyFee  int64          `json:"monthlyFee" validate:"gt=0"`
}

// RespondParams carries a response to a pending reschedule proposal.
// Counter fields are used only when Accept is false and all three are set.
type RespondParams struct {
	RecordID      string
	Accept        bool
	CounterDate   string
	CounterTime   string
	CounterReason string
}

// ExamInput captures the fields of a new exam result.
type ExamInput struct {
	SegmentID         string `json:"segmentId" validate:"notblank"`
	Date              string `json:"date" validate:"isodate"`
	Subject           string `json:"subject" validate:"notblank"`
	Marks             int    `json:"marks" validate:"gte=0,ltefield=TotalMarks"`
	TotalMarks        int    `json:"totalMarks" validate:"gt=0"`
	Notes             string `json:"notes"`
	ImageURI          string `json:"imageUri" validate:"omitempty,uri"`
	VoiceNoteURI      string `json:"voiceNoteUri" validate:"omitempty,uri"`
	VoiceNoteDuration int    `json:"voiceNoteDuration" validate:"gte=0"`
}

// ReferralInput captures a person the user invites.
type ReferralInput struct {
	ReferredName  string `json:"referredName" validate:"notblank,max=80"`
	ReferredPhone string `json:"referredPhone" validate:"omitempty,phone"`
}
