package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"stm/internal/config"
	"stm/internal/form"
	"stm/internal/notify"
	"stm/internal/reminder"
	"stm/internal/storage"
	"stm/internal/task"
)

// App holds the long-lived pieces shared by the CLI and the TUI.
type App struct {
	Config   config.Config
	Log      logrus.FieldLogger
	Backend  storage.Backend
	Store    *task.Store
	Notifier *notify.Notifier
	Poller   *reminder.Poller
	Form     *form.Controller
	Now      func() time.Time
}

type Options struct {
	// Backend overrides the configured storage driver.
	Backend storage.Backend
	Alerter notify.Alerter
	// Executor overrides how the notification command runs.
	Executor notify.CommandExecutor
	Now      func() time.Time
}

// Open builds the app and restores the persisted tasks. A storage read
// failure is logged and the app starts with an empty list.
func Open(ctx context.Context, cfg config.Config, logger logrus.FieldLogger, opts Options) (*App, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	backend := opts.Backend
	if backend == nil {
		var err error
		backend, err = storage.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	store := task.NewStore(backend,
		task.WithKey(cfg.Storage.Key),
		task.WithClock(now),
		task.WithLogger(logger.WithField("component", "store")),
	)
	if _, err := store.LoadAll(ctx); err != nil {
		logger.WithError(err).Warn("starting with an empty task list")
	}

	executor := opts.Executor
	if executor == nil {
		executor = notify.ExecExecutor()
	}
	notifier := notify.New(
		notify.ModeNegotiator{Mode: cfg.Reminders.Notifications, Command: cfg.Reminders.Command, Executor: executor},
		notify.CommandSender{Command: cfg.Reminders.Command, Executor: executor},
		opts.Alerter,
		notify.WithClock(now),
		notify.WithLogger(logger.WithField("component", "notify")),
	)
	poller := reminder.New(store, notifier,
		reminder.WithInterval(cfg.Reminders.Interval()),
		reminder.WithWindow(cfg.Reminders.WindowDuration()),
		reminder.WithClock(now),
		reminder.WithLogger(logger.WithField("component", "reminder")),
	)

	return &App{
		Config:   cfg,
		Log:      logger,
		Backend:  backend,
		Store:    store,
		Notifier: notifier,
		Poller:   poller,
		Form:     form.New(store, time.Local),
		Now:      now,
	}, nil
}

func (a *App) Close() error {
	return a.Backend.Close()
}
