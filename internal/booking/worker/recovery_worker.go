package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Plvkssh/SmartLodge/internal/booking/metrics"
	"github.com/Plvkssh/SmartLodge/pkg/logger"
	"github.com/Plvkssh/SmartLodge/pkg/saga"
)

// SagaResumer re-drives a single saga instance to a terminal state.
type SagaResumer interface {
	ResumeSaga(ctx context.Context, instanceID string) (saga.Status, error)
}

// InstanceScanner finds saga instances that may need recovery.
type InstanceScanner interface {
	GetByStatus(ctx context.Context, status saga.Status, limit int) ([]*saga.Instance, error)
	GetPendingCompensations(ctx context.Context, limit int) ([]*saga.Instance, error)
}

// RecoveryConfig contains configuration for the saga recovery worker
type RecoveryConfig struct {
	// ScanInterval is the interval between scans for stalled sagas
	ScanInterval time.Duration
	// BatchSize is the number of instances fetched per status in each pass
	BatchSize int
	// MinAge is how long an instance must sit untouched before the worker
	// takes it over. Keep it above the saga definition timeout so the
	// worker never races a request that is still driving its saga.
	MinAge time.Duration
}

// DefaultRecoveryConfig returns default configuration
func DefaultRecoveryConfig() *RecoveryConfig {
	return &RecoveryConfig{
		ScanInterval: 30 * time.Second,
		BatchSize:    50,
		MinAge:       5 * time.Minute,
	}
}

// RecoveryWorker resumes sagas a crashed or interrupted process left
// behind: pending and running instances are driven forward, failed and
// compensating ones are rolled back.
type RecoveryWorker struct {
	resumer SagaResumer
	scanner InstanceScanner
	config  *RecoveryConfig
	log     *logger.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	// Stats
	totalResumed     int64
	totalFailed      int64
	lastScanTime     time.Time
	lastResumedCount int
}

// NewRecoveryWorker creates a new saga recovery worker
func NewRecoveryWorker(resumer SagaResumer, scanner InstanceScanner, config *RecoveryConfig) *RecoveryWorker {
	if config == nil {
		config = DefaultRecoveryConfig()
	}
	if config.ScanInterval <= 0 {
		config.ScanInterval = 30 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.MinAge <= 0 {
		config.MinAge = 5 * time.Minute
	}

	return &RecoveryWorker{
		resumer: resumer,
		scanner: scanner,
		config:  config,
		log:     logger.Get(),
		stopCh:  make(chan struct{}),
	}
}

// Start starts the recovery worker
func (w *RecoveryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("recovery worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting saga recovery worker")

	w.wg.Add(1)
	go w.scanLoop(ctx)

	return nil
}

// Stop stops the worker and waits for the in-flight pass to finish
func (w *RecoveryWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping saga recovery worker")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Saga recovery worker stopped")
}

// scanLoop periodically scans for stalled sagas
func (w *RecoveryWorker) scanLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

// scan runs a single recovery pass
func (w *RecoveryWorker) scan(ctx context.Context) {
	started := time.Now()

	stalled, err := w.collect(ctx)
	if err != nil {
		w.log.Error(fmt.Sprintf("Failed to scan for stalled sagas: %v", err))
		return
	}

	resumed := 0
	failed := 0
	for _, instance := range stalled {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
		}

		status, err := w.resumer.ResumeSaga(ctx, instance.ID)
		if err != nil {
			failed++
			metrics.RecordError(ctx, "saga_resume_failed", "recovery_worker")
			w.log.Error(fmt.Sprintf("Failed to resume saga %s: %v", instance.ID, err))
			continue
		}
		resumed++
		w.log.Info(fmt.Sprintf("Resumed saga %s from %s to %s", instance.ID, instance.Status, status))
	}

	w.mu.Lock()
	w.lastScanTime = started
	w.lastResumedCount = resumed
	w.totalResumed += int64(resumed)
	w.totalFailed += int64(failed)
	w.mu.Unlock()

	metrics.RecordRequestDuration(ctx, "saga_recovery_scan", time.Since(started).Seconds())

	if resumed > 0 || failed > 0 {
		w.log.Info(fmt.Sprintf("Recovery pass resumed %d sagas, %d failed", resumed, failed))
	}
}

// collect gathers instances old enough to have lost their owning request
func (w *RecoveryWorker) collect(ctx context.Context) ([]*saga.Instance, error) {
	var candidates []*saga.Instance

	for _, status := range []saga.Status{saga.StatusPending, saga.StatusRunning} {
		instances, err := w.scanner.GetByStatus(ctx, status, w.config.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("scan %s sagas: %w", status, err)
		}
		candidates = append(candidates, instances...)
	}

	compensations, err := w.scanner.GetPendingCompensations(ctx, w.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("scan pending compensations: %w", err)
	}
	candidates = append(candidates, compensations...)

	cutoff := time.Now().Add(-w.config.MinAge)
	seen := make(map[string]struct{}, len(candidates))
	stalled := make([]*saga.Instance, 0, len(candidates))
	for _, instance := range candidates {
		if _, ok := seen[instance.ID]; ok {
			continue
		}
		seen[instance.ID] = struct{}{}
		if instance.UpdatedAt.After(cutoff) {
			// A fresh UpdatedAt means the owning request is likely still
			// driving this saga, leave it alone
			continue
		}
		stalled = append(stalled, instance)
	}

	return stalled, nil
}

// GetStats returns recovery worker statistics
func (w *RecoveryWorker) GetStats() *RecoveryStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &RecoveryStats{
		IsRunning:        w.running,
		TotalResumed:     w.totalResumed,
		TotalFailed:      w.totalFailed,
		LastScanTime:     w.lastScanTime,
		LastResumedCount: w.lastResumedCount,
	}
}

// RecoveryStats contains recovery worker statistics
type RecoveryStats struct {
	IsRunning        bool      `json:"is_running"`
	TotalResumed     int64     `json:"total_resumed"`
	TotalFailed      int64     `json:"total_failed"`
	LastScanTime     time.Time `json:"last_scan_time"`
	LastResumedCount int       `json:"last_resumed_count"`
}
