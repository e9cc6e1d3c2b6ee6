package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", DefaultConfigFileName)

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file written: %v", err)
	}
	if cfg.DBPath != filepath.Join(dir, "nested", DefaultDBName) {
		t.Fatalf("db path not resolved next to config: %s", cfg.DBPath)
	}
	if cfg.Log.Path != filepath.Join(dir, "nested", DefaultLogName) {
		t.Fatalf("log path not resolved next to config: %s", cfg.Log.Path)
	}
	if cfg.Reminders.Interval() != time.Minute || cfg.Reminders.WindowDuration() != time.Minute {
		t.Fatalf("unexpected durations %s %s", cfg.Reminders.Interval(), cfg.Reminders.WindowDuration())
	}

	again, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Storage.Driver != "sqlite" || again.Keys.Add != "a" {
		t.Fatalf("defaults did not round-trip: %+v", again)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestPartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
db_path = "/var/lib/stm/tasks.db"

[storage]
driver = "Redis"

[keys]
add = "n"
`)
	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/var/lib/stm/tasks.db" {
		t.Fatalf("absolute db path changed: %s", cfg.DBPath)
	}
	if cfg.Storage.Driver != "redis" {
		t.Fatalf("driver not normalized: %s", cfg.Storage.Driver)
	}
	if cfg.Keys.Add != "n" || cfg.Keys.Quit != "q" {
		t.Fatalf("unexpected keys %+v", cfg.Keys)
	}
	if cfg.Storage.Key != DefaultTasksKey {
		t.Fatalf("expected default key, got %q", cfg.Storage.Key)
	}
}

func TestWindowRaisedToPollInterval(t *testing.T) {
	path := writeConfig(t, `
[reminders]
poll_interval = "5m"
window = "30s"
`)
	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Reminders.Interval() != 5*time.Minute {
		t.Fatalf("interval %s", cfg.Reminders.Interval())
	}
	if cfg.Reminders.WindowDuration() != 5*time.Minute {
		t.Fatalf("window should match interval, got %s", cfg.Reminders.WindowDuration())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"mode", "[reminders]\nnotifications = \"sometimes\"\n", "notifications"},
		{"interval", "[reminders]\npoll_interval = \"soon\"\n", "poll_interval"},
		{"negative window", "[reminders]\nwindow = \"-1m\"\n", "window"},
		{"view priority", "[view]\npriority = \"urgent\"\n", "view.priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadOrCreate(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %s error, got %v", tt.want, err)
			}
		})
	}
}

func TestViewPriorityNormalized(t *testing.T) {
	for _, in := range []string{"high", " HIGH ", "High"} {
		cfg, err := LoadOrCreate(writeConfig(t, "[view]\npriority = \""+in+"\"\n"))
		if err != nil {
			t.Fatalf("load %q: %v", in, err)
		}
		if cfg.View.Priority != "High" {
			t.Fatalf("expected %q normalized to High, got %q", in, cfg.View.Priority)
		}
	}
	cfg, err := LoadOrCreate(writeConfig(t, "[view]\npriority = \"ALL\"\n"))
	if err != nil || cfg.View.Priority != "all" {
		t.Fatalf("expected all, got %q (%v)", cfg.View.Priority, err)
	}
}

func TestMalformedTOML(t *testing.T) {
	if _, err := LoadOrCreate(writeConfig(t, "db_path = \n")); err == nil {
		t.Fatal("expected parse error")
	}
}
