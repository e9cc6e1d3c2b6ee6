package reminder

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"stm/internal/task"
)

const DefaultInterval = time.Minute

// Source is the part of the task store the poller reads and mutates.
type Source interface {
	Tasks() []task.Task
	MarkReminderShown(ctx context.Context, id int64) (bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, t task.Task) error
}

// Due reports whether t's reminder should fire in the window (now, now+window].
// Completed tasks and reminders already shown never fire.
func Due(t task.Task, now time.Time, window time.Duration) bool {
	if t.Completed || t.Reminder == nil || t.ReminderShown {
		return false
	}
	r := *t.Reminder
	return r.After(now) && !r.After(now.Add(window))
}

type Poller struct {
	source   Source
	notifier Notifier
	interval time.Duration
	window   time.Duration
	now      func() time.Time
	log      logrus.FieldLogger
}

type Option func(*Poller)

func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Poller) { p.log = l }
}

// WithInterval sets how often Run polls. The window is never left smaller
// than the interval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithWindow(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.window = d
		}
	}
}

func New(source Source, notifier Notifier, opts ...Option) *Poller {
	p := &Poller{
		source:   source,
		notifier: notifier,
		interval: DefaultInterval,
		now:      time.Now,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.window < p.interval {
		p.window = p.interval
	}
	return p
}

func (p *Poller) Interval() time.Duration { return p.interval }

func (p *Poller) Window() time.Duration { return p.window }

// Poll fires every due reminder once and returns the tasks it fired for.
// A failed notification still marks the reminder shown; the error is logged.
func (p *Poller) Poll(ctx context.Context) ([]task.Task, error) {
	now := p.now()
	var fired []task.Task
	var firstErr error
	for _, t := range p.source.Tasks() {
		if !Due(t, now, p.window) {
			continue
		}
		entry := p.log.WithField("task_id", t.ID)
		if err := p.notifier.Notify(ctx, t); err != nil {
			entry.WithError(err).Warn("reminder notification failed")
		}
		// the flag is set in memory even when persisting fails
		if _, err := p.source.MarkReminderShown(ctx, t.ID); err != nil && firstErr == nil {
			firstErr = err
		}
		t.ReminderShown = true
		fired = append(fired, t)
		entry.Info("reminder fired")
	}
	return fired, firstErr
}

// Run polls immediately and then once per interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	if _, err := p.Poll(ctx); err != nil {
		p.log.WithError(err).Warn("reminder poll failed")
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.Poll(ctx); err != nil {
				p.log.WithError(err).Warn("reminder poll failed")
			}
		}
	}
}
