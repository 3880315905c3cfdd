package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/vapor/penny-bot/internal/config"
	"github.com/vapor/penny-bot/internal/storage"
)

// CacheSnapshotPrefix is prepended to every reaction cache snapshot blob.
// Names sort by creation time.
const CacheSnapshotPrefix = "reaction-cache/"

// KeptSnapshots is how many cache snapshots survive pruning
const KeptSnapshots = 3

const (
	snapshotTimeout    = 30 * time.Second
	snapshotTimeLayout = "20060102-150405.000000000"
)

// Snapshotter is a cache that can be saved and restored wholesale
type Snapshotter interface {
	Snapshot() ([]byte, error)
	Restore(data []byte) error
}

// Reporter sends the periodic activity report
type Reporter interface {
	RunReport() error
}

// Service handles scheduling of reports and cache snapshots
type Service struct {
	config   *config.Config
	reporter Reporter
	cache    Snapshotter
	storage  storage.StorageInterface
	cron     *cron.Cron
	now      func() time.Time
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, reporter Reporter, cache Snapshotter, blobs storage.StorageInterface) *Service {
	return &Service{
		config:   cfg,
		reporter: reporter,
		cache:    cache,
		storage:  blobs,
		cron:     cron.New(cron.WithSeconds()),
		now:      time.Now,
	}
}

// ReportCron returns the cron expression for a report schedule
func ReportCron(schedule string) string {
	switch schedule {
	case "daily":
		// Run daily at 9 AM UTC
		return "0 0 9 * * *"
	default:
		// Run weekly on Monday at 9 AM UTC
		return "0 0 9 * * MON"
	}
}

// Start schedules the report and snapshot jobs
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(ReportCron(s.config.ReportSchedule), func() {
		logrus.Info("Starting scheduled activity report")
		if err := s.reporter.RunReport(); err != nil {
			logrus.Errorf("Scheduled activity report failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule report: %w", err)
	}

	_, err = s.cron.AddFunc(s.config.CacheSnapshotSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()
		if err := s.SnapshotNow(ctx); err != nil {
			logrus.Errorf("Scheduled cache snapshot failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule cache snapshot: %w", err)
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s reports and cache snapshots on %q", s.config.ReportSchedule, s.config.CacheSnapshotSchedule)
	return nil
}

// SnapshotNow stores the current reaction cache under a new name and
// prunes all but the newest snapshots
func (s *Service) SnapshotNow(ctx context.Context) error {
	data, err := s.cache.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to snapshot cache: %w", err)
	}

	name := CacheSnapshotPrefix + s.now().UTC().Format(snapshotTimeLayout) + ".json"
	if err := s.storage.Store(ctx, name, data); err != nil {
		return fmt.Errorf("failed to store cache snapshot: %w", err)
	}
	logrus.Debugf("Stored cache snapshot %s (%d bytes)", name, len(data))

	// a failed prune leaves extra snapshots behind, the new one is still good
	if err := s.pruneSnapshots(ctx); err != nil {
		logrus.Warnf("Failed to prune cache snapshots: %v", err)
	}
	return nil
}

func (s *Service) snapshotNames(ctx context.Context) ([]string, error) {
	names, err := s.storage.List(ctx, CacheSnapshotPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache snapshots: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Service) pruneSnapshots(ctx context.Context) error {
	names, err := s.snapshotNames(ctx)
	if err != nil {
		return err
	}
	if len(names) <= KeptSnapshots {
		return nil
	}

	for _, name := range names[:len(names)-KeptSnapshots] {
		if err := s.storage.Delete(ctx, name); err != nil {
			return fmt.Errorf("failed to delete cache snapshot %s: %w", name, err)
		}
		logrus.Debugf("Deleted old cache snapshot %s", name)
	}
	return nil
}

// RestoreCache loads the newest stored snapshot into the cache. A missing
// snapshot is not an error.
func (s *Service) RestoreCache(ctx context.Context) error {
	names, err := s.snapshotNames(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		logrus.Info("No cache snapshot found, starting with an empty cache")
		return nil
	}

	newest := names[len(names)-1]
	data, err := s.storage.Retrieve(ctx, newest)
	if err != nil {
		return fmt.Errorf("failed to retrieve cache snapshot: %w", err)
	}
	if err := s.cache.Restore(data); err != nil {
		return fmt.Errorf("failed to restore cache snapshot: %w", err)
	}
	logrus.Infof("Restored reaction cache from snapshot %s", newest)
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
