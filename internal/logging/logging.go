package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"stm/internal/config"
)

// New returns a logger writing to cfg.Path. The terminal belongs to the UI,
// so log output never goes to stdout. The returned closer releases the file.
func New(cfg config.Log) (*log.Logger, io.Closer, error) {
	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: true})

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)

	if cfg.Path == "" {
		logger.SetOutput(io.Discard)
		return logger, io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(f)
	return logger, f, nil
}
