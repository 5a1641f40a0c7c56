package journal

import (
	"time"

	"codeberg.org/mutker/mongeu/internal/errors"
)

const (
	defaultDirPerm      = 0o755
	defaultPath         = "/var/lib/mongeu/journal.db"
	defaultBatchSize    = 64
	defaultBatchTimeout = 5 * time.Second
	defaultMaxBuffered  = 4096
)

type Config struct {
	Path         string
	BatchSize    int
	BatchTimeout time.Duration
	Enabled      bool
	// MaxBuffered caps the events held while the database is failing.
	// The oldest events are dropped first.
	MaxBuffered int
	// BackupDir receives a copy of the database before an incompatible
	// schema is replaced. Defaults to a "backups" directory next to Path.
	BackupDir string
}

func DefaultConfig() Config {
	return Config{
		Path:         defaultPath,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
		MaxBuffered:  defaultMaxBuffered,
		Enabled:      false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate the path if the journal is enabled
	if c.Enabled && c.Path == "" {
		return errFactory.New(ErrInvalidPath)
	}
	if c.BatchSize < 1 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value int
		}{
			Field: "batch_size",
			Value: c.BatchSize,
		})
	}

	if c.MaxBuffered < c.BatchSize {
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value int
		}{
			Field: "max_buffered",
			Value: c.MaxBuffered,
		})
	}

	return nil
}
