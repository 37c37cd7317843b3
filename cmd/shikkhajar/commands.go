package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/shikkhajar/internal/application"
	"github.com/example/shikkhajar/internal/dates"
	"github.com/example/shikkhajar/internal/persistence/sqlite"
)

type runFunc func(ctx context.Context, cmd *cobra.Command, s *session) error

// withSession opens a session for the duration of one command.
func (c *cli) withSession(fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		s, err := c.open(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()
		return describeError(fn(cmd.Context(), cmd, s))
	}
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "shikkhajar",
		Short:         "Track tutoring attendance, billing cycles and reschedules",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	root.AddCommand(
		c.loginCommand(),
		c.logoutCommand(),
		c.whoamiCommand(),
		c.segmentCommand(),
		c.attendCommand(),
		c.progressCommand(),
		c.payCommand(),
		c.rescheduleCommand(),
		c.notificationsCommand(),
		c.examCommand(),
		c.referralCommand(),
		c.historyCommand(),
		c.statsCommand(),
		c.migrateCommand(),
	)
	return root
}

func (c *cli) loginCommand() *cobra.Command {
	var input application.LoginInput
	var role, language string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as the local user",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
		input.Role = application.UserRole(role)
		input.Language = application.Language(language)
		user, err := s.services.Accounts.Login(ctx, input)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", user.Name, user.ID)
		return nil
	})
	cmd.Flags().StringVar(&input.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&input.Name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(application.RoleTutor), "tutor, student or parent")
	cmd.Flags().StringVar(&language, "language", string(application.LanguageBangla), "bn or en")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (c *cli) logoutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the local user and all of their data",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
		if err := s.services.Accounts.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "logged out")
		return nil
	})
	return cmd
}

func (c *cli) whoamiCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the local user",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
		user, err := s.services.Accounts.CurrentUser(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "ID\t%s\n", user.ID)
		fmt.Fprintf(w, "Name\t%s\n", user.Name)
		fmt.Fprintf(w, "Phone\t%s\n", user.Phone)
		fmt.Fprintf(w, "Role\t%s\n", user.Role)
		fmt.Fprintf(w, "Referral code\t%s\n", application.ReferralCode(user))
		return w.Flush()
	})
	return cmd
}

func (c *cli) segmentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segment",
		Short: "Manage tutoring segments",
	}

	var input application.SegmentInput
	var partnerRole, days string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a segment whose first cycle starts today",
		Args:  cobra.NoArgs,
	}
	add.RunE = c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
		classDays, err := parseWeekdays(days)
		if err != nil {
			return err
		}
		input.ClassDays = classDays
		input.PartnerRole = application.UserRole(partnerRole)
		segment, err := s.services.Segments.AddSegment(ctx, input)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "segment %s added\n", segment.ID)
		return nil
	})
	add.Flags().StringVar(&input.Name, "name", "", "segment name")
	add.Flags().StringVar(&input.Subject, "subject", "", "subject taught")
	add.Flags().StringVar(&input.PartnerName, "partner", "", "student or tutor name")
	add.Flags().StringVar(&partnerRole, "partner-role", string(application.RoleStudent), "role of the partner")
	add.Flags().StringVar(&days, "days", "", "comma separated class days, e.g. sun,tue,thu")
	add.Flags().StringVar(&input.ClassTime, "time", "", "class time as HH:MM")
	add.Flags().IntVar(&input.TargetDays, "target", 0, "classes per billing cycle")
	add.Flags().Int64Var(&input.MonthlyFee, "fee", 0, "fee per cycle")

	list := &cobra.Command{
		Use:   "list",
		Short: "List segments",
		Args:  cobra.NoArgs,
	}
	list.RunE = c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
		segments, err := s.services.Segments.ListSegments(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSUBJECT\tPARTNER\tDAYS\tTIME\tTARGET\tCYCLE START")
		for _, segment := range segments {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
				segment.ID, segment.Subject, segment.PartnerName, formatWeekdays(segment.ClassDays),
				segment.ClassTime, segment.TargetDays, segment.CurrentCycleStart)
		}
		return w.Flush()
	})

	remove := &cobra.Command{
		Use:   "delete SEGMENT_ID",
		Short: "Delete a segment, keeping its history",
		Args:  cobra.ExactArgs(1),
	}
	remove.RunE = func(cmd *cobra.Command, args []string) error {
		return c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
			if err := s.services.Segments.DeleteSegment(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "segment %s deleted\n", args[0])
			return nil
		})(cmd, args)
	}

	var lead int
	leadSet := false
	reminders := &cobra.Command{
		Use:   "reminders SEGMENT_ID",
		Short: "Show weekly reminder times for a segment",
		Args:  cobra.ExactArgs(1),
	}
	reminders.RunE = func(cmd *cobra.Command, args []string) error {
		leadSet = cmd.Flags().Changed("lead")
		return c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
			minutes := s.cfg.ReminderLead
			if leadSet {
				minutes = lead
			}
			slots, err := s.services.Segments.ReminderPlan(ctx, args[0], minutes)
			if err != nil {
				return err
			}
			for _, slot := range slots {
				fmt.Fprintln(cmd.OutOrStdout(), slot.String())
			}
			return nil
		})(cmd, args)
	}
	reminders.Flags().IntVar(&lead, "lead", 0, "minutes before class (defaults to SHIKKHAJAR_REMINDER_LEAD)")

	var horizon int
	upcoming := &cobra.Command{
		Use:   "upcoming SEGMENT_ID",
		Short: "List class dates starting today",
		Args:  cobra.ExactArgs(1),
	}
	upcoming.RunE = func(cmd *cobra.Command, args []string) error {
		return c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
			classDates, err := s.services.Segments.UpcomingClasses(ctx, args[0], horizon)
			if err != nil {
				return err
			}
			for _, date := range classDates {
				fmt.Fprintln(cmd.OutOrStdout(), date)
			}
			return nil
		})(cmd, args)
	}
	upcoming.Flags().IntVar(&horizon, "days", 14, "number of days to look ahead")

	cmd.AddCommand(add, list, remove, reminders, upcoming)
	return cmd
}

func (c *cli) attendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attend SEGMENT_ID DATE STATUS",
		Short: "Mark attendance (present, missed, rescheduled, makeup, exam)",
		Args:  cobra.ExactArgs(3),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
			record, err := s.services.Attendance.MarkAttendance(ctx, args[0], args[1], application.AttendanceStatus(args[2]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s marked %s on %s\n", record.SegmentID, record.Status, record.Date)
			return nil
		})(cmd, args)
	}
	return cmd
}

func (c *cli) progressCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress SEGMENT_ID",
		Short: "Show classes taken in the current cycle",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
			progress, err := s.services.Attendance.SegmentProgress(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "taken %d of %d, %d remaining (%s)\n",
				progress.Taken, progress.Target, progress.DaysRemaining, progress.Stage())
			return nil
		})(cmd, args)
	}
	return cmd
}

func (c *cli) payCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pay SEGMENT_ID AMOUNT",
		Short: "Record a payment and start a new cycle",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[1])
		}
		return c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
			payment, err := s.services.Billing.MarkPayment(ctx, args[0], amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "payment %s: %d for %d classes (%s to %s)\n",
				payment.ID, payment.Amount, payment.ClassesTaken, payment.CycleStart, payment.CycleEnd)
			return nil
		})(cmd, args)
	}
	return cmd
}

func (c *cli) rescheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reschedule",
		Short: "Negotiate moving a class",
	}

	var reason string
	request := &cobra.Command{
		Use:   "request SEGMENT_ID ORIGINAL_DATE PROPOSED_DATE PROPOSED_TIME",
		Short: "Propose a new slot for a class",
		Args:  cobra.ExactArgs(4),
	}
	request.RunE = func(cmd *cobra.Command, args []string) error {
		return c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
			record, err := s.services.Attendance.RequestReschedule(ctx, args[0], args[1], args[2], args[3], reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reschedule requested: record %s\n", record.ID)
			return nil
		})(cmd, args)
	}
	request.Flags().StringVar(&reason, "reason", "", "reason for the change")

	var params application.RespondParams
	respond := &cobra.Command{
		Use:   "respond RECORD_ID",
		Short: "Accept, counter or reject a pending proposal",
		Args:  cobra.ExactArgs(1),
	}
	respond.RunE = func(cmd *cobra.Command, args []string) error {
		params.RecordID = args[0]
		return c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
			record, err := s.services.Attendance.RespondToReschedule(ctx, params)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reschedule %s\n", record.RescheduleInfo.Status)
			return nil
		})(cmd, args)
	}
	respond.Flags().BoolVar(&params.Accept, "accept", false, "accept the proposal")
	respond.Flags().StringVar(&params.CounterDate, "counter-date", "", "counter proposal date")
	respond.Flags().StringVar(&params.CounterTime, "counter-time", "", "counter proposal time")
	respond.Flags().StringVar(&params.CounterReason, "counter-reason", "", "counter proposal reason")

	cmd.AddCommand(request, respond)
	return cmd
}

func (c *cli) notificationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "Read the notification log",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List notifications, most recent first",
		Args:  cobra.NoArgs,
	}
	list.RunE = c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
		notifications, err := s.services.Notifications.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tREAD\tTITLE\tMESSAGE")
		for _, n := range notifications {
			fmt.Fprintf(w, "%s\t%t\t%s\t%s\n", n.ID, n.Read, n.Title, n.Message)
		}
		return w.Flush()
	})

	read := &cobra.Command{
		Use:   "read NOTIFICATION_ID",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
	}
	read.RunE = func(cmd *cobra.Command, args []string) error {
		return c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
			return s.services.Notifications.MarkRead(ctx, args[0])
		})(cmd, args)
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every notification",
		Args:  cobra.NoArgs,
	}
	clearCmd.RunE = c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
		return s.services.Notifications.ClearAll(ctx)
	})

	cmd.AddCommand(list, read, clearCmd)
	return cmd
}

func (c *cli) examCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exam",
		Short: "Record exam results",
	}

	var input application.ExamInput
	add := &cobra.Command{
		Use:   "add SEGMENT_ID",
		Short: "Add an exam result",
		Args:  cobra.ExactArgs(1),
	}
	add.RunE = func(cmd *cobra.Command, args []string) error {
		input.SegmentID = args[0]
		return c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
			result, err := s.services.Exams.AddExamResult(ctx, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exam result %s: %d%%\n", result.ID, result.Percentage())
			return nil
		})(cmd, args)
	}
	add.Flags().StringVar(&input.Date, "date", "", "exam date as YYYY-MM-DD")
	add.Flags().StringVar(&input.Subject, "subject", "", "exam subject")
	add.Flags().IntVar(&input.Marks, "marks", 0, "marks obtained")
	add.Flags().IntVar(&input.TotalMarks, "total", 0, "total marks")
	add.Flags().StringVar(&input.Notes, "notes", "", "free text notes")

	list := &cobra.Command{
		Use:   "list SEGMENT_ID",
		Short: "List a segment's exam results",
		Args:  cobra.ExactArgs(1),
	}
	list.RunE = func(cmd *cobra.Command, args []string) error {
		return c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
			results, err := s.services.Exams.ResultsForSegment(ctx, args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tSUBJECT\tMARKS\tPERCENT")
			for _, r := range results {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d%%\n", r.ID, r.Date, r.Subject, r.Marks, r.TotalMarks, r.Percentage())
			}
			return w.Flush()
		})(cmd, args)
	}

	cmd.AddCommand(add, list)
	return cmd
}

func (c *cli) referralCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "referral",
		Short: "Invite people and track referral credit",
	}

	var phone string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Record an invited person",
		Args:  cobra.ExactArgs(1),
	}
	add.RunE = func(cmd *cobra.Command, args []string) error {
		return c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
			referral, err := s.services.Referrals.AddReferral(ctx, application.ReferralInput{ReferredName: args[0], ReferredPhone: phone})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "referral %s added\n", referral.ID)
			return nil
		})(cmd, args)
	}
	add.Flags().StringVar(&phone, "phone", "", "phone number of the invited person")

	complete := &cobra.Command{
		Use:   "complete REFERRAL_ID",
		Short: "Mark a referral as completed",
		Args:  cobra.ExactArgs(1),
	}
	complete.RunE = func(cmd *cobra.Command, args []string) error {
		return c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
			_, err := s.services.Referrals.CompleteReferral(ctx, args[0])
			return err
		})(cmd, args)
	}

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Show referral code and credits",
		Args:  cobra.NoArgs,
	}
	summary.RunE = c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
		sum, err := s.services.Referrals.Summary(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "code %s: %d referrals (%d pending, %d completed), %d credits\n",
			sum.Code, sum.Total, sum.Pending, sum.Completed, sum.Credits)
		return nil
	})

	cmd.AddCommand(add, complete, summary)
	return cmd
}

func (c *cli) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [SEGMENT_ID]",
		Short: "List completed billing cycles",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		segmentID := ""
		if len(args) == 1 {
			segmentID = args[0]
		}
		return c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
			sessions, err := s.services.Billing.Sessions(ctx, segmentID)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SEGMENT\tMONTH\tTAKEN\tMISSED\tRESCHEDULED\tPAID")
			for _, summary := range sessions {
				fmt.Fprintf(w, "%s\t%s %d\t%d\t%d\t%d\t%d\n", summary.SegmentID, summary.Month, summary.Year,
					summary.ClassesTaken, summary.ClassesMissed, summary.ClassesRescheduled, summary.AmountPaid)
			}
			return w.Flush()
		})(cmd, args)
	}
	return cmd
}

func (c *cli) statsCommand() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show portfolio totals and a month's attendance",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
		stats, err := s.services.Billing.PortfolioStats(ctx)
		if err != nil {
			return err
		}
		year, mon, err := parseMonthFlag(month, c.now())
		if err != nil {
			return err
		}
		summary, err := s.services.Attendance.MonthSummary(ctx, "", year, mon)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "Classes\t%d\n", stats.TotalClasses)
		fmt.Fprintf(w, "Students\t%d\n", stats.TotalStudents)
		fmt.Fprintf(w, "Earnings\t%d\n", stats.TotalEarnings)
		fmt.Fprintf(w, "Subjects\t%s\n", strings.Join(stats.Subjects, ", "))
		fmt.Fprintf(w, "%s %d\tpresent %d, missed %d, rescheduled %d\n", mon, year, summary.Present, summary.Missed, summary.Rescheduled)
		return w.Flush()
	})
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (defaults to the current month)")
	return cmd
}

func (c *cli) migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and report their status",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = c.withSession(func(ctx context.Context, cmd *cobra.Command, s *session) error {
		storage, ok := s.store.(*sqlite.Storage)
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "store driver %s has no schema\n", s.cfg.StoreDriver)
			return nil
		}
		status, err := storage.MigrationStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %s, %d pending\n", status.CurrentVersion, status.PendingCount)
		return nil
	})
	return cmd
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// parseWeekdays reads a comma separated list of day names or numbers (0 = Sunday).
func parseWeekdays(value string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, 7)
	for _, part := range strings.Split(value, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if len(part) > 3 {
			part = part[:3]
		}
		if day, ok := weekdayNames[part]; ok {
			days = append(days, day)
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("unknown class day %q", part)
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}

func formatWeekdays(days []time.Weekday) string {
	names := make([]string, 0, len(days))
	for _, day := range days {
		names = append(names, day.String()[:3])
	}
	return strings.Join(names, ",")
}

func parseMonthFlag(value string, now time.Time) (int, time.Month, error) {
	if strings.TrimSpace(value) == "" {
		return now.Year(), now.Month(), nil
	}
	t, err := dates.Parse(strings.TrimSpace(value) + "-01")
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q", value)
	}
	return t.Year(), t.Month(), nil
}
