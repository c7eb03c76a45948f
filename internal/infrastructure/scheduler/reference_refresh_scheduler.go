// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	reportapp "github.com/sellerpnl/backend/internal/application/report"
	"github.com/sellerpnl/backend/internal/domain/seller"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// tickerInterval is how often the loop checks whether the daily run is due
const tickerInterval = time.Minute

// StoreLister lists every store whose references are refreshed
type StoreLister interface {
	FindAll(ctx context.Context) ([]*seller.Store, error)
}

// ReferenceRefresher recomputes one store's product reference rates
type ReferenceRefresher interface {
	RefreshProductReferences(ctx context.Context, storeID uuid.UUID) (*reportapp.RefreshResult, error)
}

// ReferenceRefreshConfig holds configuration for the daily reference refresh
type ReferenceRefreshConfig struct {
	Enabled bool
	// CronHour and CronMinute are the daily run time in server local time
	CronHour   int
	CronMinute int
	// StoreTimeout bounds a single store's refresh
	StoreTimeout time.Duration
	// MaxConcurrentStores is how many stores refresh in parallel
	MaxConcurrentStores int
}

// DefaultReferenceRefreshConfig runs at 03:00 daily
func DefaultReferenceRefreshConfig() ReferenceRefreshConfig {
	return ReferenceRefreshConfig{
		Enabled:             true,
		CronHour:            3,
		CronMinute:          0,
		StoreTimeout:        5 * time.Minute,
		MaxConcurrentStores: 4,
	}
}

// ParseCronSchedule reads the minute and hour fields of "minute hour * * *".
// An empty expression yields 03:00. Day, month and weekday fields are ignored.
func ParseCronSchedule(cronExpr string) (hour, minute int, err error) {
	hour, minute = 3, 0
	parts := strings.Fields(cronExpr)
	if len(parts) < 2 {
		return hour, minute, nil
	}

	if parts[0] != "*" {
		if minute, err = strconv.Atoi(parts[0]); err != nil {
			return 3, 0, fmt.Errorf("%w: minute %q", ErrInvalidConfig, parts[0])
		}
	}
	if parts[1] != "*" {
		if hour, err = strconv.Atoi(parts[1]); err != nil {
			return 3, 0, fmt.Errorf("%w: hour %q", ErrInvalidConfig, parts[1])
		}
	}

	if minute < 0 || minute > 59 {
		return 3, 0, fmt.Errorf("%w: minute must be 0-59, got %d", ErrInvalidConfig, minute)
	}
	if hour < 0 || hour > 23 {
		return 3, 0, fmt.Errorf("%w: hour must be 0-23, got %d", ErrInvalidConfig, hour)
	}
	return hour, minute, nil
}

// RunSummary describes one refresh pass over all stores
type RunSummary struct {
	StartedAt  time.Time
	Stores     int
	Refreshed  int
	Failed     int
	References int
}

// ReferenceRefreshScheduler refreshes every store's product references once a day
type ReferenceRefreshScheduler struct {
	config    ReferenceRefreshConfig
	stores    StoreLister
	refresher ReferenceRefresher
	logger    *zap.Logger
	now       func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	inFlight  bool
	lastRunAt *time.Time
	lastDate  string
	last      *RunSummary
}

// NewReferenceRefreshScheduler creates a new scheduler
func NewReferenceRefreshScheduler(
	config ReferenceRefreshConfig,
	stores StoreLister,
	refresher ReferenceRefresher,
	logger *zap.Logger,
) *ReferenceRefreshScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxConcurrentStores <= 0 {
		config.MaxConcurrentStores = 1
	}
	return &ReferenceRefreshScheduler{
		config:    config,
		stores:    stores,
		refresher: refresher,
		logger:    logger,
		now:       time.Now,
	}
}

// Start launches the daily loop. A disabled scheduler starts as a no-op.
func (s *ReferenceRefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning || !s.config.Enabled {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Reference refresh scheduler started",
		zap.Int("cron_hour", s.config.CronHour),
		zap.Int("cron_minute", s.config.CronMinute),
		zap.Time("next_run_at", s.nextRunAt()),
	)
	return nil
}

// Stop cancels the loop and waits for an in-flight run to end
func (s *ReferenceRefreshScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Reference refresh scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Reference refresh scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *ReferenceRefreshScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(tickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.due(s.now()) {
				if _, err := s.RunOnce(ctx); err != nil {
					s.logger.Error("Daily reference refresh failed", zap.Error(err))
				}
			}
		}
	}
}

// due reports whether now is the configured minute of a day not yet run
func (s *ReferenceRefreshScheduler) due(now time.Time) bool {
	if now.Hour() != s.config.CronHour || now.Minute() != s.config.CronMinute {
		return false
	}
	date := now.Format("2006-01-02")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastDate == date {
		return false
	}
	s.lastDate = date
	return true
}

// RunOnce refreshes every store now. A failing store is logged and counted;
// only listing the stores can fail the whole run.
func (s *ReferenceRefreshScheduler) RunOnce(ctx context.Context) (*RunSummary, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	s.inFlight = true
	started := s.now()
	s.lastRunAt = &started
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	stores, err := s.stores.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}

	summary := &RunSummary{StartedAt: started, Stores: len(stores)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxConcurrentStores)
	for _, store := range stores {
		g.Go(func() error {
			result, err := s.refreshStore(gctx, store.ID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				s.logger.Warn("Reference refresh failed",
					zap.String("store_id", store.ID.String()),
					zap.Error(err),
				)
				return nil
			}
			summary.Refreshed++
			summary.References += result.Updated
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	s.last = summary
	s.mu.Unlock()

	s.logger.Info("Reference refresh finished",
		zap.Int("stores", summary.Stores),
		zap.Int("refreshed", summary.Refreshed),
		zap.Int("failed", summary.Failed),
		zap.Int("references", summary.References),
	)
	return summary, nil
}

func (s *ReferenceRefreshScheduler) refreshStore(ctx context.Context, storeID uuid.UUID) (*reportapp.RefreshResult, error) {
	if s.config.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.StoreTimeout)
		defer cancel()
	}
	return s.refresher.RefreshProductReferences(ctx, storeID)
}

// TriggerManualRun starts a refresh in the background.
// It detaches from ctx so the run outlives the request that asked for it.
func (s *ReferenceRefreshScheduler) TriggerManualRun(ctx context.Context) error {
	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()
	if !running {
		return ErrSchedulerNotRunning
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.RunOnce(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Manual reference refresh failed", zap.Error(err))
		}
	}()
	return nil
}

// Status is a point-in-time view of the scheduler
type Status struct {
	Enabled   bool        `json:"enabled"`
	Running   bool        `json:"running"`
	InFlight  bool        `json:"in_flight"`
	LastRunAt *time.Time  `json:"last_run_at,omitempty"`
	NextRunAt time.Time   `json:"next_run_at"`
	LastRun   *RunSummary `json:"last_run,omitempty"`
}

// GetStatus returns the current status
func (s *ReferenceRefreshScheduler) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Enabled:   s.config.Enabled,
		Running:   s.isRunning,
		InFlight:  s.inFlight,
		LastRunAt: s.lastRunAt,
		NextRunAt: s.nextRunAt(),
		LastRun:   s.last,
	}
}

func (s *ReferenceRefreshScheduler) nextRunAt() time.Time {
	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.config.CronHour, s.config.CronMinute, 0, 0, now.Location())
	if now.After(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
