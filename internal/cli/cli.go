package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"stm/internal/app"
	"stm/internal/config"
	"stm/internal/form"
	"stm/internal/logging"
	"stm/internal/notify"
	"stm/internal/query"
	"stm/internal/task"
	"stm/internal/theme"
	"stm/internal/ui"
	"stm/internal/view"
)

var errNotFound = errors.New("no task with that id")

type env struct {
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	opts       app.Options
}

// NewRootCmd builds the stm command tree. opts lets callers swap the
// storage backend, notification executor or clock.
func NewRootCmd(stdin io.Reader, stdout, stderr io.Writer, opts app.Options) *cobra.Command {
	e := &env{stdin: stdin, stdout: stdout, stderr: stderr, opts: opts}

	root := &cobra.Command{
		Use:           "stm",
		Short:         "Simple task manager with deadlines and reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runTUI(cmd.Context())
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&e.configPath, "config", "", "config file (default is the per-user config dir)")

	root.AddCommand(
		&cobra.Command{
			Use:   "tui",
			Short: "Open the interactive task list",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return e.runTUI(cmd.Context())
			},
		},
		newAddCmd(e),
		newListCmd(e),
		newEditCmd(e),
		newDoneCmd(e),
		newRmCmd(e),
		newStatsCmd(e),
		newRemindCmd(e),
		newThemeCmd(e),
	)
	return root
}

// Execute runs the command tree against the process streams.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCmd(os.Stdin, os.Stdout, os.Stderr, app.Options{})
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (e *env) open(ctx context.Context, alerter notify.Alerter) (*app.App, func(), error) {
	path := e.configPath
	if path == "" {
		path = config.ResolveConfigPath()
	}
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}

	opts := e.opts
	if opts.Alerter == nil {
		opts.Alerter = alerter
	}
	a, err := app.Open(ctx, cfg, logger, opts)
	if err != nil {
		closer.Close()
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	return a, func() {
		if err := a.Close(); err != nil {
			logger.WithError(err).Warn("close storage")
		}
		closer.Close()
	}, nil
}

// printAlerts writes blocking alerts to stdout for headless commands.
func (e *env) printAlerts() notify.Alerter {
	return notify.AlertFunc(func(message string) {
		fmt.Fprintf(e.stdout, "%s\n\n", message)
	})
}

func (e *env) runTUI(ctx context.Context) error {
	alerts := &ui.AlertQueue{}
	a, done, err := e.open(ctx, alerts)
	if err != nil {
		return err
	}
	defer done()
	return ui.Run(ctx, a, alerts)
}

func parseID(v string) (int64, error) {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q", v)
	}
	return id, nil
}

func newAddCmd(e *env) *cobra.Command {
	var v form.Values
	cmd := &cobra.Command{
		Use:   "add TITLE...",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := e.open(cmd.Context(), e.printAlerts())
			if err != nil {
				return err
			}
			defer done()

			v.Title = strings.Join(args, " ")
			a.Form.Reset()
			a.Form.SetValues(v)
			created, err := a.Form.Submit(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(e.stdout, "Added task %d: %s\n", created.ID, created.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&v.Deadline, "deadline", "", "deadline date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&v.Priority, "priority", "p", string(task.PriorityMedium), "Low, Medium or High")
	cmd.Flags().StringVarP(&v.Category, "category", "c", form.DefaultCategory, "task category")
	cmd.Flags().StringVar(&v.Reminder, "reminder", "", "reminder time (YYYY-MM-DD HH:MM)")
	return cmd
}

func newListCmd(e *env) *cobra.Command {
	var (
		category      string
		priority      string
		hideCompleted bool
		sortBy        string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := e.open(cmd.Context(), e.printAlerts())
			if err != nil {
				return err
			}
			defer done()

			if sortBy == "" {
				sortBy = a.Config.View.Sort
			}
			key, ok := query.ParseSortKey(sortBy)
			if !ok {
				return fmt.Errorf("unknown sort %q", sortBy)
			}
			if priority != query.All {
				p, err := task.ParsePriority(priority)
				if err != nil {
					return err
				}
				priority = string(p)
			}
			visible := query.Apply(a.Store.Tasks(), query.Filters{
				Category:      category,
				Priority:      priority,
				ShowCompleted: !hideCompleted,
			}, key)
			if len(visible) == 0 {
				fmt.Fprintln(e.stdout, view.EmptyMessage)
				return nil
			}
			fmt.Fprintln(e.stdout, renderTable(view.Rows(visible, a.Now())))
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", query.All, "show one category")
	cmd.Flags().StringVarP(&priority, "priority", "p", query.All, "show one priority")
	cmd.Flags().BoolVar(&hideCompleted, "hide-completed", false, "hide completed tasks")
	cmd.Flags().StringVarP(&sortBy, "sort", "s", "", "deadline, priority, dateCreated or title")
	return cmd
}

func renderTable(rows []view.Row) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "", "TITLE", "PRIORITY", "CATEGORY", "DEADLINE", "STATUS", "REMINDER")
	for _, r := range rows {
		check := "[ ]"
		if r.Completed {
			check = "[x]"
		}
		status := ""
		if r.HasDeadline {
			status = r.Urgency.String()
		}
		reminder := ""
		if r.HasReminder {
			reminder = "⏰"
		}
		t.Row(strconv.FormatInt(r.ID, 10), check, r.Title, string(r.Priority), r.Category, r.DeadlineText, status, reminder)
	}
	return t.String()
}

func newEditCmd(e *env) *cobra.Command {
	var (
		v          form.Values
		noDeadline bool
		noReminder bool
	)
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, done, err := e.open(cmd.Context(), e.printAlerts())
			if err != nil {
				return err
			}
			defer done()

			if !a.Form.Edit(id) {
				return fmt.Errorf("edit %d: %w", id, errNotFound)
			}
			cur := a.Form.Values()
			flags := cmd.Flags()
			if flags.Changed("title") {
				cur.Title = v.Title
			}
			if flags.Changed("deadline") {
				cur.Deadline = v.Deadline
			}
			if noDeadline {
				cur.Deadline = ""
			}
			if flags.Changed("priority") {
				cur.Priority = v.Priority
			}
			if flags.Changed("category") {
				cur.Category = v.Category
			}
			if flags.Changed("reminder") {
				cur.Reminder = v.Reminder
			}
			if noReminder {
				cur.Reminder = ""
			}
			a.Form.SetValues(cur)
			updated, err := a.Form.Submit(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(e.stdout, "Updated task %d: %s\n", updated.ID, updated.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&v.Title, "title", "", "new title")
	cmd.Flags().StringVar(&v.Deadline, "deadline", "", "deadline date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&noDeadline, "no-deadline", false, "remove the deadline")
	cmd.Flags().StringVarP(&v.Priority, "priority", "p", "", "Low, Medium or High")
	cmd.Flags().StringVarP(&v.Category, "category", "c", "", "task category")
	cmd.Flags().StringVar(&v.Reminder, "reminder", "", "reminder time (YYYY-MM-DD HH:MM)")
	cmd.Flags().BoolVar(&noReminder, "no-reminder", false, "remove the reminder")
	cmd.MarkFlagsMutuallyExclusive("deadline", "no-deadline")
	cmd.MarkFlagsMutuallyExclusive("reminder", "no-reminder")
	return cmd
}

func newDoneCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "done ID",
		Short: "Toggle the completed flag of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, done, err := e.open(cmd.Context(), e.printAlerts())
			if err != nil {
				return err
			}
			defer done()

			found, err := a.Store.ToggleComplete(cmd.Context(), id)
			if !found {
				return fmt.Errorf("done %d: %w", id, errNotFound)
			}
			if err != nil {
				return err
			}
			t, _ := a.Store.Get(id)
			state := "pending"
			if t.Completed {
				state = "completed"
			}
			fmt.Fprintf(e.stdout, "Task %d marked %s\n", id, state)
			return nil
		},
	}
}

func newRmCmd(e *env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, done, err := e.open(cmd.Context(), e.printAlerts())
			if err != nil {
				return err
			}
			defer done()

			t, ok := a.Store.Get(id)
			if !ok {
				return fmt.Errorf("rm %d: %w", id, errNotFound)
			}
			if !yes && !e.confirm(fmt.Sprintf("Delete %q? [y/N] ", t.Title)) {
				fmt.Fprintln(e.stdout, "Delete cancelled")
				return nil
			}
			if _, err := a.Store.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(e.stdout, "Deleted task %d\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func (e *env) confirm(prompt string) bool {
	fmt.Fprint(e.stdout, prompt)
	line, err := bufio.NewReader(e.stdin).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func newStatsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := e.open(cmd.Context(), e.printAlerts())
			if err != nil {
				return err
			}
			defer done()

			s := a.Store.Stats()
			fmt.Fprintf(e.stdout, "Total: %d\nCompleted: %d\nPending: %d\nHigh priority pending: %d\n",
				s.Total, s.Completed, s.Pending, s.HighPriorityPending)
			return nil
		},
	}
}

func newRemindCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Fire due reminders",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "check",
			Short: "Run one reminder poll and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, done, err := e.open(cmd.Context(), e.printAlerts())
				if err != nil {
					return err
				}
				defer done()

				fired, err := a.Poller.Poll(cmd.Context())
				for _, t := range fired {
					fmt.Fprintf(e.stdout, "Reminded: %s\n", t.Title)
				}
				return err
			},
		},
		&cobra.Command{
			Use:   "watch",
			Short: "Poll for reminders until interrupted",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				a, done, err := e.open(ctx, e.printAlerts())
				if err != nil {
					return err
				}
				defer done()

				fmt.Fprintf(e.stdout, "Watching reminders every %s (ctrl+c to stop)\n", a.Poller.Interval())
				err = a.Poller.Run(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			},
		},
	)
	return cmd
}

func newThemeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|toggle]",
		Short:     "Show or change the color theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"light", "dark", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := e.open(cmd.Context(), e.printAlerts())
			if err != nil {
				return err
			}
			defer done()

			current := theme.Preferred(cmd.Context(), a.Backend, a.Config.View.Theme)
			if len(args) == 0 {
				fmt.Fprintln(e.stdout, current.Label())
				return nil
			}

			next := current.Toggle()
			if args[0] != "toggle" {
				var ok bool
				if next, ok = theme.Parse(args[0]); !ok {
					return fmt.Errorf("unknown theme %q", args[0])
				}
			}
			if err := theme.Save(cmd.Context(), a.Backend, next); err != nil {
				return err
			}
			fmt.Fprintln(e.stdout, next.Label())
			return nil
		},
	}
}
