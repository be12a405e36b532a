package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/pkg/logger"
)

const sweepTimeout = 5 * time.Minute

// UploadSweeper deletes files in the uploads directory that no document row
// references once they are older than the grace period.
type UploadSweeper struct {
	documents store.DocumentRepository
	dir       string
	grace     time.Duration
	now       func() time.Time

	mu            sync.Mutex
	cronScheduler *cron.Cron
}

func NewUploadSweeper(documents store.DocumentRepository, dir string, grace time.Duration) *UploadSweeper {
	return &UploadSweeper{
		documents: documents,
		dir:       dir,
		grace:     grace,
		now:       time.Now,
	}
}

// Start schedules Sweep. An empty schedule leaves the sweeper disabled.
func (s *UploadSweeper) Start(schedule string) error {
	if schedule == "" {
		logger.Info().Msg("[Sweeper] Disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := cron.New()
	if _, err := c.AddFunc(schedule, s.run); err != nil {
		return fmt.Errorf("schedule sweeper %q: %w", schedule, err)
	}
	c.Start()
	s.cronScheduler = c
	logger.Infof("[Sweeper] Scheduled (%s)", schedule)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *UploadSweeper) Stop() {
	s.mu.Lock()
	c := s.cronScheduler
	s.cronScheduler = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

func (s *UploadSweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	removed, err := s.Sweep(ctx)
	if err != nil {
		logger.Error().Err(err).Int("removed", removed).Msg("[Sweeper] Sweep failed")
		return
	}
	if removed > 0 {
		logger.Info().Int("removed", removed).Msg("[Sweeper] Removed orphaned uploads")
	}
}

// Sweep runs one pass and returns the number of files removed.
func (s *UploadSweeper) Sweep(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read uploads dir: %w", err)
	}

	cutoff := s.now().Add(-s.grace)
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		_, err = s.documents.GetDocumentByFilename(ctx, entry.Name())
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return removed, fmt.Errorf("look up %s: %w", entry.Name(), err)
		}

		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn().Err(err).Str("path", path).Msg("[Sweeper] Failed to remove file")
			continue
		}
		removed++
	}
	return removed, nil
}
