package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"stm/internal/config"
)

func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	if _, err := b.Get(ctx, "tasks"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing key, got %v", err)
	}
	if err := b.Put(ctx, "tasks", []byte(`[{"id":1}]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := b.Put(ctx, "tasks", []byte(`[]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := b.Get(ctx, "tasks")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "[]" {
		t.Fatalf("expected overwritten value, got %s", got)
	}
	if _, err := b.Get(ctx, "stm-theme"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected keys to be independent, got %v", err)
	}
}

func TestSQLiteBackend(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "stm.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	exerciseBackend(t, s)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stm.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := s.Put(ctx, "tasks", []byte("payload")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	got, err := s.Get(ctx, "tasks")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("expected payload after reopen, got %q", got)
	}
}

func TestOpenSQLiteRejectsEmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestRedisBackend(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := NewRedis(client, "stm:")
	t.Cleanup(func() { _ = b.Close() })

	exerciseBackend(t, b)

	if !mr.Exists("stm:tasks") {
		t.Fatal("expected prefixed key in redis")
	}
	if ttl := mr.TTL("stm:tasks"); ttl != 0 {
		t.Fatalf("expected no TTL, got %v", ttl)
	}
}

func TestMemoryBackend(t *testing.T) {
	exerciseBackend(t, NewMemory())
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()

	cfg.Storage.Driver = "memory"
	b, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, ok := b.(*Memory); !ok {
		t.Fatalf("expected *Memory, got %T", b)
	}

	cfg.Storage.Driver = "sqlite"
	cfg.DBPath = filepath.Join(t.TempDir(), "stm.db")
	b, err = Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	if _, ok := b.(*SQLite); !ok {
		t.Fatalf("expected *SQLite, got %T", b)
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	cfg.Storage.Driver = "redis"
	cfg.Storage.RedisAddr = mr.Addr()
	b, err = Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	if _, ok := b.(*Redis); !ok {
		t.Fatalf("expected *Redis, got %T", b)
	}

	cfg.Storage.Driver = "etcd"
	if _, err := Open(ctx, cfg); err == nil || !strings.Contains(err.Error(), "etcd") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}

func TestSQLiteDSN(t *testing.T) {
	if got := sqliteDSN("file:mem.db?mode=memory"); got != "file:mem.db?mode=memory" {
		t.Fatalf("expected file: DSN to pass through, got %s", got)
	}
	got := sqliteDSN(filepath.Join(t.TempDir(), "stm.db"))
	if !strings.HasPrefix(got, "file://") || !strings.Contains(got, "mode=rwc") {
		t.Fatalf("unexpected DSN %s", got)
	}
}
