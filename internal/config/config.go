package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "stm.db"
	DefaultLogName        = "stm.log"
	DefaultTasksKey       = "tasks"
)

type Keymap struct {
	Quit            string `toml:"quit"`
	Add             string `toml:"add"`
	Up              string `toml:"up"`
	Down            string `toml:"down"`
	Toggle          string `toml:"toggle"`
	Delete          string `toml:"delete"`
	Edit            string `toml:"edit"`
	Confirm         string `toml:"confirm"`
	Cancel          string `toml:"cancel"`
	NextField       string `toml:"next_field"`
	PrevField       string `toml:"prev_field"`
	FilterCategory  string `toml:"filter_category"`
	FilterPriority  string `toml:"filter_priority"`
	ToggleCompleted string `toml:"toggle_completed"`
	Sort            string `toml:"sort"`
	Theme           string `toml:"theme"`
}

type Storage struct {
	Driver        string `toml:"driver"`
	Key           string `toml:"key"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix"`
}

type Reminders struct {
	PollInterval  string `toml:"poll_interval"`
	Window        string `toml:"window"`
	Notifications string `toml:"notifications"`
	Command       string `toml:"command"`

	poll   time.Duration
	window time.Duration
}

// Interval is the parsed poll interval. Valid after Validate.
func (r Reminders) Interval() time.Duration { return r.poll }

// WindowDuration is the parsed fire window. Valid after Validate.
func (r Reminders) WindowDuration() time.Duration { return r.window }

type View struct {
	Category      string `toml:"category"`
	Priority      string `toml:"priority"`
	ShowCompleted bool   `toml:"show_completed"`
	Sort          string `toml:"sort"`
	Theme         string `toml:"theme"`
}

type Log struct {
	Path  string `toml:"path"`
	Level string `toml:"level"`
}

type Config struct {
	DBPath     string    `toml:"db_path"`
	Categories []string  `toml:"categories"`
	Storage    Storage   `toml:"storage"`
	Reminders  Reminders `toml:"reminders"`
	View       View      `toml:"view"`
	Log        Log       `toml:"log"`
	Keys       Keymap    `toml:"keys"`
}

// ResolveConfigPath returns the per-user config location, falling back to
// the working directory when no config dir is known.
func ResolveConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, "stm", DefaultConfigFileName)
}

// LoadOrCreate reads the config at path, writing the defaults there first if
// the file does not exist yet.
func LoadOrCreate(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, cfg.resolve(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.resolve(path)
}

func (c *Config) resolve(path string) error {
	base := filepath.Dir(path)
	if c.DBPath == "" {
		c.DBPath = DefaultDBName
	}
	c.DBPath = resolvePath(base, c.DBPath)
	if c.Log.Path == "" {
		c.Log.Path = DefaultLogName
	}
	c.Log.Path = resolvePath(base, c.Log.Path)
	return c.Validate()
}

// Validate fills empty fields with defaults and parses durations. A fire
// window shorter than the poll interval is raised to the interval so that a
// reminder can never fall between two polls.
func (c *Config) Validate() error {
	def := Default()
	if c.Storage.Driver == "" {
		c.Storage.Driver = def.Storage.Driver
	}
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Key == "" {
		c.Storage.Key = DefaultTasksKey
	}
	if len(c.Categories) == 0 {
		c.Categories = def.Categories
	}
	if c.View.Category == "" {
		c.View.Category = "all"
	}
	priority, err := normalizePriority(c.View.Priority)
	if err != nil {
		return err
	}
	c.View.Priority = priority
	if c.View.Sort == "" {
		c.View.Sort = def.View.Sort
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Reminders.Command == "" {
		c.Reminders.Command = def.Reminders.Command
	}
	switch strings.ToLower(c.Reminders.Notifications) {
	case "":
		c.Reminders.Notifications = "auto"
	case "auto", "on", "off":
		c.Reminders.Notifications = strings.ToLower(c.Reminders.Notifications)
	default:
		return fmt.Errorf("reminders.notifications: want auto, on or off, got %q", c.Reminders.Notifications)
	}

	poll, err := parseDuration(c.Reminders.PollInterval, time.Minute)
	if err != nil {
		return fmt.Errorf("reminders.poll_interval: %w", err)
	}
	window, err := parseDuration(c.Reminders.Window, poll)
	if err != nil {
		return fmt.Errorf("reminders.window: %w", err)
	}
	if window < poll {
		window = poll
	}
	c.Reminders.poll = poll
	c.Reminders.window = window
	return nil
}

// normalizePriority maps the view priority filter onto the canonical
// spelling used by tasks, so "high" matches High tasks.
func normalizePriority(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "all", nil
	}
	for _, p := range []string{"all", "Low", "Medium", "High"} {
		if strings.EqualFold(v, p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("view.priority: want all, Low, Medium or High, got %q", v)
}

func parseDuration(v string, def time.Duration) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", v)
	}
	return d, nil
}

func resolvePath(base, p string) string {
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[1:])
		}
	}
	if strings.HasPrefix(p, "file:") || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func Default() Config {
	return Config{
		DBPath:     DefaultDBName,
		Categories: []string{"Personal", "Work", "Shopping", "Health", "Other"},
		Storage: Storage{
			Driver:      "sqlite",
			Key:         DefaultTasksKey,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "stm:",
		},
		Reminders: Reminders{
			PollInterval:  "1m",
			Window:        "1m",
			Notifications: "auto",
			Command:       "notify-send",
			poll:          time.Minute,
			window:        time.Minute,
		},
		View: View{
			Category:      "all",
			Priority:      "all",
			ShowCompleted: true,
			Sort:          "deadline",
		},
		Log: Log{
			Path:  DefaultLogName,
			Level: "info",
		},
		Keys: Keymap{
			Quit:            "q",
			Add:             "a",
			Up:              "k",
			Down:            "j",
			Toggle:          " ",
			Delete:          "d",
			Edit:            "e",
			Confirm:         "enter",
			Cancel:          "esc",
			NextField:       "tab",
			PrevField:       "shift+tab",
			FilterCategory:  "c",
			FilterPriority:  "p",
			ToggleCompleted: "h",
			Sort:            "s",
			Theme:           "t",
		},
	}
}
