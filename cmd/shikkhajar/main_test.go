package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/shikkhajar/internal/config"
	"github.com/example/shikkhajar/internal/testfixtures"
)

type cliHarness struct {
	t      *testing.T
	clock  *testfixtures.Clock
	ids    *testfixtures.IDGenerator
	cfg    config.Config
	stderr bytes.Buffer
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	return &cliHarness{
		t:     t,
		clock: testfixtures.NewClock(time.Time{}),
		ids:   testfixtures.NewIDGenerator("cli"),
		cfg: config.Config{
			StoreDriver:  config.DriverSQLite,
			StoreDSN:     filepath.Join(t.TempDir(), "cli.db"),
			LogLevel:     "error",
			ReminderLead: 30,
		},
	}
}

// run executes one command against a fresh process-level CLI sharing the store.
func (h *cliHarness) run(args ...string) (string, error) {
	h.t.Helper()
	var stdout bytes.Buffer
	c := newCLI(&stdout, &h.stderr)
	c.loadConfig = func() (config.Config, error) { return h.cfg, nil }
	c.idGenerator = h.ids.NextFunc()
	c.now = h.clock.NowFunc()

	root := c.rootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("%v failed: %v (stderr: %s)", args, err, h.stderr.String())
	}
	return out
}

func TestCLI_BillingCycleEndToEnd(t *testing.T) {
	h := newCLIHarness(t)
	h.clock.SetDate(2024, time.January, 1)

	out := h.mustRun("login", "--phone", "01711223344", "--name", "Nusrat")
	if !strings.Contains(out, "logged in as Nusrat (cli-1)") {
		t.Fatalf("unexpected login output: %q", out)
	}

	out = h.mustRun("segment", "add", "--name", "Class 8", "--subject", "Mathematics", "--partner", "Rahim",
		"--days", "sun,tue,thu", "--time", "16:00", "--target", "2", "--fee", "1000")
	if strings.TrimSpace(out) != "segment cli-2 added" {
		t.Fatalf("unexpected segment output: %q", out)
	}

	h.mustRun("attend", "cli-2", "2024-01-02", "present")
	h.mustRun("attend", "cli-2", "2024-01-04", "present")

	out = h.mustRun("progress", "cli-2")
	if strings.TrimSpace(out) != "taken 2 of 2, 0 remaining (complete)" {
		t.Fatalf("unexpected progress: %q", out)
	}

	h.clock.SetDate(2024, time.January, 5)
	out = h.mustRun("pay", "cli-2", "1000")
	if !strings.Contains(out, "1000 for 2 classes (2024-01-01 to 2024-01-05)") {
		t.Fatalf("unexpected payment output: %q", out)
	}

	out = h.mustRun("progress", "cli-2")
	if strings.TrimSpace(out) != "taken 0 of 2, 2 remaining (prepare_payment)" {
		t.Fatalf("unexpected progress after payment: %q", out)
	}

	out = h.mustRun("history")
	if !strings.Contains(out, "January 2024") {
		t.Fatalf("expected history row, got %q", out)
	}

	out = h.mustRun("notifications", "list")
	if !strings.Contains(out, "Payment Received") || !strings.Contains(out, "Class Marked") {
		t.Fatalf("expected notifications, got %q", out)
	}
}

func TestCLI_RescheduleNegotiation(t *testing.T) {
	h := newCLIHarness(t)
	h.mustRun("login", "--phone", "01711223344", "--name", "Nusrat")
	h.mustRun("segment", "add", "--name", "Class 9", "--subject", "Physics", "--partner", "Karim",
		"--days", "mon", "--time", "18:00", "--target", "8", "--fee", "2500")

	out := h.mustRun("reschedule", "request", "cli-2", "2024-01-15", "2024-01-16", "19:00", "--reason", "exam week")
	if !strings.Contains(out, "record cli-4") {
		t.Fatalf("unexpected request output: %q", out)
	}

	out = h.mustRun("reschedule", "respond", "cli-4", "--counter-date", "2024-01-17", "--counter-time", "18:00", "--counter-reason", "busy")
	if strings.TrimSpace(out) != "reschedule counter" {
		t.Fatalf("unexpected respond output: %q", out)
	}

	if _, err := h.run("reschedule", "respond", "cli-4", "--accept"); err == nil {
		t.Fatalf("expected responding to a closed negotiation to fail")
	}
}

func TestCLI_RequiresLogin(t *testing.T) {
	h := newCLIHarness(t)

	_, err := h.run("whoami")
	if err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Fatalf("expected not logged in error, got %v", err)
	}
}

func TestCLI_SegmentReminders(t *testing.T) {
	h := newCLIHarness(t)
	h.mustRun("login", "--phone", "01711223344", "--name", "Nusrat")
	h.mustRun("segment", "add", "--name", "Early", "--subject", "English", "--partner", "Sadia",
		"--days", "1,3", "--time", "00:10", "--target", "4", "--fee", "900")

	out := h.mustRun("segment", "reminders", "cli-2")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || lines[0] != "Sunday 23:40" || lines[1] != "Tuesday 23:40" {
		t.Fatalf("unexpected reminders: %q", out)
	}

	out = h.mustRun("segment", "reminders", "cli-2", "--lead", "5")
	if !strings.HasPrefix(out, "Monday 00:05") {
		t.Fatalf("expected lead override, got %q", out)
	}
}

func TestCLI_MigrateReportsStatus(t *testing.T) {
	h := newCLIHarness(t)

	out := h.mustRun("migrate")
	if strings.TrimSpace(out) != "schema version 001, 0 pending" {
		t.Fatalf("unexpected migrate output: %q", out)
	}

	h.cfg.StoreDriver = config.DriverMemory
	out = h.mustRun("migrate")
	if !strings.Contains(out, "has no schema") {
		t.Fatalf("unexpected memory migrate output: %q", out)
	}
}

func TestParseWeekdays(t *testing.T) {
	days, err := parseWeekdays("Sunday, tue,4")
	if err != nil {
		t.Fatalf("parseWeekdays returned error: %v", err)
	}
	want := []time.Weekday{time.Sunday, time.Tuesday, time.Thursday}
	if len(days) != len(want) {
		t.Fatalf("expected %v, got %v", want, days)
	}
	for i := range want {
		if days[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, days)
		}
	}

	if _, err := parseWeekdays("funday"); err == nil {
		t.Fatalf("expected error for unknown day")
	}
	if _, err := parseWeekdays("7"); err == nil {
		t.Fatalf("expected error for out of range day")
	}
}

func TestParseMonthFlag(t *testing.T) {
	now := time.Date(2024, time.March, 9, 12, 0, 0, 0, time.Local)

	year, month, err := parseMonthFlag("", now)
	if err != nil || year != 2024 || month != time.March {
		t.Fatalf("expected current month, got %d %v %v", year, month, err)
	}

	year, month, err = parseMonthFlag("2023-11", now)
	if err != nil || year != 2023 || month != time.November {
		t.Fatalf("expected November 2023, got %d %v %v", year, month, err)
	}

	if _, _, err := parseMonthFlag("11/2023", now); err == nil {
		t.Fatalf("expected error for malformed month")
	}
}
