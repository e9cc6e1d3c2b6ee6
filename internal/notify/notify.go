package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stm/internal/task"
)

type Permission int

const (
	PermissionUnknown Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

type Notification struct {
	ID        uuid.UUID
	Tag       string
	Title     string
	Body      string
	CreatedAt time.Time
}

// Negotiator asks the platform whether notifications may be shown.
type Negotiator interface {
	Request(ctx context.Context) (Permission, error)
}

// Sender delivers a notification through the platform. Notifications that
// share a Tag replace each other.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Alerter shows a message the user has to acknowledge.
type Alerter interface {
	Alert(message string)
}

type AlertFunc func(message string)

func (f AlertFunc) Alert(message string) { f(message) }

// Notifier negotiates permission once per session and then routes every
// reminder either to the Sender or, when denied, to the Alerter.
type Notifier struct {
	negotiator Negotiator
	sender     Sender
	alerter    Alerter
	now        func() time.Time
	log        logrus.FieldLogger

	mu   sync.Mutex
	perm Permission
}

type Option func(*Notifier)

func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(n *Notifier) { n.log = l }
}

func New(negotiator Negotiator, sender Sender, alerter Alerter, opts ...Option) *Notifier {
	n := &Notifier{
		negotiator: negotiator,
		sender:     sender,
		alerter:    alerter,
		now:        time.Now,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Permission returns the cached permission, negotiating it on first use.
func (n *Notifier) Permission(ctx context.Context) Permission {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.perm != PermissionUnknown {
		return n.perm
	}
	if n.negotiator == nil || n.sender == nil {
		n.perm = PermissionDenied
		return n.perm
	}
	perm, err := n.negotiator.Request(ctx)
	if err != nil {
		n.log.WithError(err).Warn("notification permission request failed")
		perm = PermissionDenied
	}
	if perm == PermissionUnknown {
		perm = PermissionDenied
	}
	n.perm = perm
	n.log.WithField("permission", perm).Info("notification permission negotiated")
	return n.perm
}

// Notify announces a due reminder for t.
func (n *Notifier) Notify(ctx context.Context, t task.Task) error {
	msg := Build(t, n.now())
	entry := n.log.WithFields(logrus.Fields{"notification_id": msg.ID, "task_id": t.ID})
	if n.Permission(ctx) == PermissionGranted {
		err := n.sender.Send(ctx, msg)
		if err == nil {
			entry.Info("notification sent")
			return nil
		}
		entry.WithError(err).Warn("send notification failed, falling back to alert")
	}
	if n.alerter != nil {
		n.alerter.Alert(AlertText(t))
		entry.Info("reminder alert raised")
	}
	return nil
}

func Tag(id int64) string {
	return fmt.Sprintf("task-%d", id)
}

func Build(t task.Task, now time.Time) Notification {
	body := "Don't forget: " + t.Title
	if t.Deadline != nil {
		body += fmt.Sprintf(" (Deadline: %s)", t.Deadline.Format("2006-01-02"))
	}
	return Notification{
		ID:        uuid.New(),
		Tag:       Tag(t.ID),
		Title:     "Task Reminder: " + t.Title,
		Body:      body,
		CreatedAt: now,
	}
}

// AlertText is the fallback message shown when notifications are denied.
func AlertText(t task.Task) string {
	msg := "Reminder: " + t.Title
	if t.Deadline != nil {
		msg += "\nDeadline: " + t.Deadline.Format("2006-01-02")
	}
	return msg
}
