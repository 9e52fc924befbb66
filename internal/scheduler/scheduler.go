package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hray3182/eventcal/internal/ics"
	"github.com/robfig/cron/v3"
)

const DefaultSchedule = "*/15 * * * *"

// Scheduler keeps an ICS snapshot of the calendar on disk. It rewrites the
// file on its cron schedule and whenever Notify is called after a write.
type Scheduler struct {
	builder  *ics.Builder
	source   ics.Source
	path     string
	schedule string
	loc      *time.Location
	notifyCh chan struct{}
}

func New(builder *ics.Builder, source ics.Source, path, schedule string, loc *time.Location) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		builder:  builder,
		source:   source,
		path:     path,
		schedule: schedule,
		loc:      loc,
		notifyCh: make(chan struct{}, 1),
	}
}

// Notify triggers an immediate export. Non-blocking if one is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
		// Channel already has a pending notification, skip
	}
}

// Start runs until ctx is cancelled. It returns an error only when the cron
// schedule cannot be parsed.
func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(s.loc))
	if _, err := c.AddFunc(s.schedule, s.Notify); err != nil {
		return fmt.Errorf("invalid export schedule %q: %w", s.schedule, err)
	}
	c.Start()
	defer c.Stop()

	slog.Info("snapshot scheduler started", "schedule", s.schedule, "path", s.path)

	// Run first export
	s.export(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("snapshot scheduler stopped")
			return nil
		case <-s.notifyCh:
			s.export(ctx)
		}
	}
}

func (s *Scheduler) export(ctx context.Context) {
	if err := s.Export(ctx); err != nil {
		slog.Error("failed to export calendar snapshot", "path", s.path, "error", err)
	}
}

// Export renders the feed and replaces the snapshot file atomically.
func (s *Scheduler) Export(ctx context.Context) error {
	body, err := s.builder.RenderFrom(ctx, s.source)
	if err != nil {
		return fmt.Errorf("failed to render feed: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".eventcal-*.ics")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod snapshot: %w", err)
	}
	if _, err := tmp.WriteString(body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	slog.Debug("calendar snapshot exported", "path", s.path, "bytes", len(body))
	return nil
}
