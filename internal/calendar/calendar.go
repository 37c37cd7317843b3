// Package calendar expands a segment's weekly class days into concrete dates
// and weekly reminder triggers.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidWindow indicates the requested range ends before it starts.
var ErrInvalidWindow = errors.New("calendar: window end precedes start")

// ErrInvalidClassTime indicates a class time is not a valid HH:MM value.
var ErrInvalidClassTime = errors.New("calendar: class time must be HH:MM")

// maxWindowDays bounds expansion so a bad range cannot loop for years.
const maxWindowDays = 366 * 2

// Slot is a weekly trigger: a weekday and a wall-clock time.
type Slot struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

// String renders the slot as "Monday 16:30".
func (s Slot) String() string {
	return fmt.Sprintf("%s %02d:%02d", s.Weekday, s.Hour, s.Minute)
}

// ClassDates returns every date between from and to (both inclusive, by
// calendar day) whose weekday is one of days. Results are local midnights in
// chronological order.
func ClassDates(days []time.Weekday, from, to time.Time) ([]time.Time, error) {
	start := midnight(from)
	end := midnight(to)
	if end.Before(start) {
		return nil, ErrInvalidWindow
	}

	weekdaySet := make(map[time.Weekday]struct{}, len(days))
	for _, day := range days {
		weekdaySet[day] = struct{}{}
	}
	if len(weekdaySet) == 0 {
		return nil, nil
	}

	dates := make([]time.Time, 0)
	for current, n := start, 0; !current.After(end) && n <= maxWindowDays; current, n = current.AddDate(0, 0, 1), n+1 {
		if _, ok := weekdaySet[current.Weekday()]; ok {
			dates = append(dates, current)
		}
	}
	return dates, nil
}

// ParseClassTime splits an HH:MM class time into hour and minute.
func ParseClassTime(value string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClassTime, value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClassTime, value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClassTime, value)
	}
	return hour, minute, nil
}

// ReminderSlots shifts the class time of each class day back by
// minutesBefore. Crossing midnight moves the slot to the previous weekday.
func ReminderSlots(days []time.Weekday, classTime string, minutesBefore int) ([]Slot, error) {
	hour, minute, err := ParseClassTime(classTime)
	if err != nil {
		return nil, err
	}
	if minutesBefore < 0 {
		minutesBefore = 0
	}

	slots := make([]Slot, 0, len(days))
	for _, day := range days {
		reminderHour := hour
		reminderMinute := minute - minutesBefore
		reminderDay := int(day)

		for reminderMinute < 0 {
			reminderMinute += 60
			reminderHour--
		}
		for reminderHour < 0 {
			reminderHour += 24
			reminderDay = (reminderDay + 6) % 7
		}

		slots = append(slots, Slot{
			Weekday: time.Weekday(reminderDay),
			Hour:    reminderHour,
			Minute:  reminderMinute,
		})
	}

	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.Weekday != b.Weekday {
			return a.Weekday < b.Weekday
		}
		if a.Hour != b.Hour {
			return a.Hour < b.Hour
		}
		return a.Minute < b.Minute
	})
	return slots, nil
}

func midnight(t time.Time) time.Time {
	local := t.In(time.Local)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}
