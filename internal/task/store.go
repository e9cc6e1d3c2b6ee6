package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sirupsen/logrus"

	"stm/internal/storage"
)

const DefaultKey = "tasks"

var (
	// ErrUnavailable wraps backend read failures during LoadAll.
	ErrUnavailable = errors.New("task storage unavailable")
	// ErrCorrupt wraps a persisted blob that cannot be decoded.
	ErrCorrupt = errors.New("task storage corrupt")
)

// Store owns the in-memory task list and writes the whole list back to its
// backend after every mutation.
type Store struct {
	mu      sync.Mutex
	backend storage.Backend
	key     string
	now     func() time.Time
	log     logrus.FieldLogger
	tasks   []Task
	lastID  int64
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

func NewStore(backend storage.Backend, opts ...Option) *Store {
	if backend == nil {
		panic("task.NewStore: backend is nil")
	}
	s := &Store{
		backend: backend,
		key:     DefaultKey,
		now:     time.Now,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadAll replaces the in-memory list with the persisted one. Reminders whose
// time has already passed get reminderShown reset; they stay silent because
// only future reminders are due, so a reminder missed while the program was
// closed is dropped rather than fired late. On any failure the store is left
// empty and usable and the error says why.
func (s *Store) LoadAll(ctx context.Context) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = nil
	s.lastID = 0

	data, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var loaded []Task
	if err := sonic.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	now := s.now()
	for i := range loaded {
		t := &loaded[i]
		if t.Reminder != nil && !t.Reminder.After(now) {
			t.ReminderShown = false
		}
		if t.ID > s.lastID {
			s.lastID = t.ID
		}
	}
	s.tasks = loaded
	s.log.WithField("count", len(loaded)).Debug("tasks loaded")
	return s.snapshot(), nil
}

// Persist overwrites the stored list with the current one.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) error {
	list := s.tasks
	if list == nil {
		list = []Task{}
	}
	data, err := sonic.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := s.backend.Put(ctx, s.key, data); err != nil {
		s.log.WithError(err).Warn("persist tasks failed")
		return err
	}
	return nil
}

// Create appends a new task. The task always exists in memory afterwards;
// a returned error only reports that persisting failed.
func (s *Store) Create(ctx context.Context, f Fields) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t := Task{
		ID:          s.nextID(now),
		Title:       f.Title,
		Deadline:    f.Deadline,
		Priority:    f.Priority,
		Category:    f.Category,
		Reminder:    f.Reminder,
		Completed:   f.Completed,
		DateCreated: now,
	}
	t = t.clone()
	s.tasks = append(s.tasks, t)
	s.log.WithField("task_id", t.ID).Info("task created")
	return t.clone(), s.persistLocked(ctx)
}

func (s *Store) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// Update merges p into the task with the given id. It reports false, without
// persisting, when no such task exists.
func (s *Store) Update(ctx context.Context, id int64, p Patch) (bool, error) {
	return s.mutate(ctx, id, "task updated", func(t *Task) { p.apply(t) })
}

func (s *Store) ToggleComplete(ctx context.Context, id int64) (bool, error) {
	return s.mutate(ctx, id, "task toggled", func(t *Task) { t.Completed = !t.Completed })
}

func (s *Store) MarkReminderShown(ctx context.Context, id int64) (bool, error) {
	return s.mutate(ctx, id, "reminder marked shown", func(t *Task) { t.ReminderShown = true })
}

func (s *Store) mutate(ctx context.Context, id int64, msg string, fn func(*Task)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	fn(&s.tasks[i])
	s.log.WithField("task_id", id).Debug(msg)
	return true, s.persistLocked(ctx)
}

func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	s.log.WithField("task_id", id).Info("task deleted")
	return true, s.persistLocked(ctx)
}

func (s *Store) indexOf(id int64) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// Tasks returns a copy of the list in insertion order.
func (s *Store) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) snapshot() []Task {
	out := make([]Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.clone()
	}
	return out
}

func (s *Store) Get(id int64) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return Task{}, false
	}
	return s.tasks[i].clone(), true
}

func (s *Store) Stats() Stats {
	return ComputeStats(s.Tasks())
}
