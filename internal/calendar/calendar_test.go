package calendar

import (
	"errors"
	"testing"
	"time"
)

func TestClassDates(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, time.January, 1, 15, 0, 0, 0, time.Local) // Monday
	to := time.Date(2024, time.January, 14, 0, 0, 0, 0, time.Local)

	t.Run("respects weekday selections", func(t *testing.T) {
		t.Parallel()

		dates, err := ClassDates([]time.Weekday{time.Monday, time.Wednesday}, from, to)
		if err != nil {
			t.Fatalf("ClassDates returned error: %v", err)
		}

		want := []string{"2024-01-01", "2024-01-03", "2024-01-08", "2024-01-10"}
		if len(dates) != len(want) {
			t.Fatalf("expected %d dates, got %d", len(want), len(dates))
		}
		for i, d := range dates {
			if got := d.Format("2006-01-02"); got != want[i] {
				t.Fatalf("date %d = %s, want %s", i, got, want[i])
			}
			if d.Hour() != 0 {
				t.Fatalf("expected midnight, got %v", d)
			}
		}
	})

	t.Run("both bounds are inclusive", func(t *testing.T) {
		t.Parallel()

		dates, err := ClassDates([]time.Weekday{time.Sunday}, to, to)
		if err != nil {
			t.Fatalf("ClassDates returned error: %v", err)
		}
		if len(dates) != 1 {
			t.Fatalf("expected the single Sunday, got %v", dates)
		}
	})

	t.Run("rejects inverted windows", func(t *testing.T) {
		t.Parallel()

		if _, err := ClassDates([]time.Weekday{time.Monday}, to, from); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("expected ErrInvalidWindow, got %v", err)
		}
	})

	t.Run("no class days yields nothing", func(t *testing.T) {
		t.Parallel()

		dates, err := ClassDates(nil, from, to)
		if err != nil || len(dates) != 0 {
			t.Fatalf("expected no dates, got %v (%v)", dates, err)
		}
	})
}

func TestReminderSlots(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		days          []time.Weekday
		classTime     string
		minutesBefore int
		want          []Slot
	}{
		{
			name:          "same hour",
			days:          []time.Weekday{time.Tuesday},
			classTime:     "16:45",
			minutesBefore: 30,
			want:          []Slot{{Weekday: time.Tuesday, Hour: 16, Minute: 15}},
		},
		{
			name:          "borrows an hour",
			days:          []time.Weekday{time.Friday},
			classTime:     "09:10",
			minutesBefore: 30,
			want:          []Slot{{Weekday: time.Friday, Hour: 8, Minute: 40}},
		},
		{
			name:          "wraps to previous weekday",
			days:          []time.Weekday{time.Sunday, time.Wednesday},
			classTime:     "00:15",
			minutesBefore: 30,
			want: []Slot{
				{Weekday: time.Tuesday, Hour: 23, Minute: 45},
				{Weekday: time.Saturday, Hour: 23, Minute: 45},
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			slots, err := ReminderSlots(tc.days, tc.classTime, tc.minutesBefore)
			if err != nil {
				t.Fatalf("ReminderSlots returned error: %v", err)
			}
			if len(slots) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, slots)
			}
			for i := range slots {
				if slots[i] != tc.want[i] {
					t.Fatalf("slot %d = %v, want %v", i, slots[i], tc.want[i])
				}
			}
		})
	}
}

func TestParseClassTime(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"", "9", "25:00", "10:75", "ab:cd"} {
		if _, _, err := ParseClassTime(bad); !errors.Is(err, ErrInvalidClassTime) {
			t.Fatalf("expected %q to be rejected, got %v", bad, err)
		}
	}

	hour, minute, err := ParseClassTime("07:05")
	if err != nil || hour != 7 || minute != 5 {
		t.Fatalf("ParseClassTime(07:05) = %d, %d, %v", hour, minute, err)
	}

	if got := (Slot{Weekday: time.Monday, Hour: 7, Minute: 5}).String(); got != "Monday 07:05" {
		t.Fatalf("Slot.String = %q", got)
	}
}
