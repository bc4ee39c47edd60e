package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Plvkssh/SmartLodge/internal/hotel/metrics"
	"github.com/Plvkssh/SmartLodge/internal/hotel/service"
	"github.com/Plvkssh/SmartLodge/pkg/logger"
)

// SweeperConfig contains configuration for the lock sweeper
type SweeperConfig struct {
	// SweepInterval is the interval between scans for expired holds
	SweepInterval time.Duration
	// BatchSize is the number of locks to expire in each pass
	BatchSize int
	// Retention is how long terminal locks are kept before deletion.
	// Zero disables retention cleanup.
	Retention time.Duration
	// RetentionInterval is the interval between retention passes
	RetentionInterval time.Duration
}

// DefaultSweeperConfig returns default configuration
func DefaultSweeperConfig() *SweeperConfig {
	return &SweeperConfig{
		SweepInterval:     30 * time.Second,
		BatchSize:         100,
		Retention:         0,
		RetentionInterval: time.Hour,
	}
}

// Sweeper expires stale holds so abandoned reservations free their rooms.
// It is the backstop for compensation failures on the booking side.
type Sweeper struct {
	lockService service.LockService
	config      *SweeperConfig
	log         *logger.Logger
	stopCh      chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	running     bool

	// Stats
	totalExpired     int64
	totalPurged      int64
	lastSweepTime    time.Time
	lastExpiredCount int
}

// NewSweeper creates a new lock sweeper
func NewSweeper(lockService service.LockService, config *SweeperConfig) *Sweeper {
	if config == nil {
		config = DefaultSweeperConfig()
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = 30 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.RetentionInterval <= 0 {
		config.RetentionInterval = time.Hour
	}

	return &Sweeper{
		lockService: lockService,
		config:      config,
		log:         logger.Get(),
		stopCh:      make(chan struct{}),
	}
}

// Start starts the sweeper
func (w *Sweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sweeper already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting lock sweeper")

	w.wg.Add(1)
	go w.sweepLoop(ctx)

	if w.config.Retention > 0 {
		w.wg.Add(1)
		go w.retentionLoop(ctx)
	}

	return nil
}

// Stop stops the sweeper and waits for in-flight passes to finish
func (w *Sweeper) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping lock sweeper")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Lock sweeper stopped")
}

// sweepLoop periodically expires stale holds
func (w *Sweeper) sweepLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep runs a single expiry pass
func (w *Sweeper) sweep(ctx context.Context) {
	started := time.Now()

	expired, err := w.lockService.ExpireLocks(ctx, w.config.BatchSize)
	if err != nil {
		w.log.Error(fmt.Sprintf("Failed to expire locks: %v", err))
		return
	}

	w.mu.Lock()
	w.lastSweepTime = started
	w.lastExpiredCount = expired
	w.totalExpired += int64(expired)
	w.mu.Unlock()

	metrics.RecordSweep(ctx, time.Since(started).Seconds())

	if expired > 0 {
		w.log.Info(fmt.Sprintf("Expired %d stale holds", expired))
	}
}

// retentionLoop periodically deletes old terminal locks
func (w *Sweeper) retentionLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.RetentionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.purge(ctx)
		}
	}
}

// purge runs a single retention pass
func (w *Sweeper) purge(ctx context.Context) {
	deleted, err := w.lockService.PurgeTerminalLocks(ctx, w.config.Retention)
	if err != nil {
		w.log.Error(fmt.Sprintf("Failed to purge terminal locks: %v", err))
		return
	}

	w.mu.Lock()
	w.totalPurged += deleted
	w.mu.Unlock()

	if deleted > 0 {
		w.log.Info(fmt.Sprintf("Purged %d terminal locks older than %s", deleted, w.config.Retention))
	}
}

// GetStats returns sweeper statistics
func (w *Sweeper) GetStats() *SweeperStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &SweeperStats{
		IsRunning:        w.running,
		TotalExpired:     w.totalExpired,
		TotalPurged:      w.totalPurged,
		LastSweepTime:    w.lastSweepTime,
		LastExpiredCount: w.lastExpiredCount,
	}
}

// SweeperStats contains sweeper statistics
type SweeperStats struct {
	IsRunning        bool      `json:"is_running"`
	TotalExpired     int64     `json:"total_expired"`
	TotalPurged      int64     `json:"total_purged"`
	LastSweepTime    time.Time `json:"last_sweep_time"`
	LastExpiredCount int       `json:"last_expired_count"`
}
