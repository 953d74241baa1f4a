package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/linshen005/youtube-downloader-backend/internal/metrics"
)

// Sweeper deletes files from the shared download directory once they outlive
// the retention window.
type Sweeper struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// New creates a Sweeper over dir with the given retention and cycle interval.
func New(dir string, maxAge, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		dir:      dir,
		maxAge:   maxAge,
		interval: interval,
		logger:   logger,
	}
}

// Sweep runs one pass with the configured retention window.
func (s *Sweeper) Sweep() ([]string, error) {
	return s.SweepOlderThan(s.maxAge)
}

// SweepOlderThan deletes every regular file in the directory whose time since
// last modification exceeds maxAge and returns the deleted names. Per-file
// failures are logged and skipped; a directory read failure aborts the pass.
func (s *Sweeper) SweepOlderThan(maxAge time.Duration) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", s.dir, err)
	}

	cutoff := time.Now().Add(-maxAge)
	deleted := []string{}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("failed to stat file during sweep", "file", entry.Name(), "error", err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			s.logger.Error("failed to delete old file", "file", entry.Name(), "error", err)
			continue
		}

		deleted = append(deleted, entry.Name())
		metrics.FilesDeleted.Inc()
		s.logger.Info("removed old file", "file", entry.Name(), "age", time.Since(info.ModTime()).Round(time.Second))
	}

	return deleted, nil
}

// Run performs an immediate pass and then sweeps on the configured interval
// until ctx is cancelled. A failed cycle is logged and the schedule continues.
func (s *Sweeper) Run(ctx context.Context) {
	if _, err := s.Sweep(); err != nil {
		s.logger.Error("initial sweep failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			deleted, err := s.Sweep()
			if err != nil {
				s.logger.Error("sweep cycle failed", "error", err)
				continue
			}
			if len(deleted) > 0 {
				s.logger.Info("sweep cycle finished", "deleted", len(deleted))
			}
		}
	}
}
