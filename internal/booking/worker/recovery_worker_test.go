package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Plvkssh/SmartLodge/pkg/saga"
)

// MockSagaResumer is a mock implementation of SagaResumer
type MockSagaResumer struct {
	ResumeSagaFunc func(ctx context.Context, instanceID string) (saga.Status, error)
}

func (m *MockSagaResumer) ResumeSaga(ctx context.Context, instanceID string) (saga.Status, error) {
	if m.ResumeSagaFunc != nil {
		return m.ResumeSagaFunc(ctx, instanceID)
	}
	return saga.StatusCompleted, nil
}

var _ SagaResumer = (*MockSagaResumer)(nil)

// MockInstanceScanner is a mock implementation of InstanceScanner
type MockInstanceScanner struct {
	GetByStatusFunc             func(ctx context.Context, status saga.Status, limit int) ([]*saga.Instance, error)
	GetPendingCompensationsFunc func(ctx context.Context, limit int) ([]*saga.Instance, error)
}

func (m *MockInstanceScanner) GetByStatus(ctx context.Context, status saga.Status, limit int) ([]*saga.Instance, error) {
	if m.GetByStatusFunc != nil {
		return m.GetByStatusFunc(ctx, status, limit)
	}
	return nil, nil
}

func (m *MockInstanceScanner) GetPendingCompensations(ctx context.Context, limit int) ([]*saga.Instance, error) {
	if m.GetPendingCompensationsFunc != nil {
		return m.GetPendingCompensationsFunc(ctx, limit)
	}
	return nil, nil
}

var _ InstanceScanner = (*MockInstanceScanner)(nil)

// The saga store doubles as the scanner in production wiring
var _ InstanceScanner = (*saga.MemoryStore)(nil)

// seedInstance writes a saga instance with a controlled age into the store
func seedInstance(t *testing.T, store *saga.MemoryStore, status saga.Status, age time.Duration) *saga.Instance {
	t.Helper()

	instance := saga.NewInstance("reservation-saga", map[string]interface{}{"reservation_id": "res-1"})
	instance.Status = status
	instance.UpdatedAt = time.Now().Add(-age)
	if err := store.Save(context.Background(), instance); err != nil {
		t.Fatalf("Failed to seed saga instance: %v", err)
	}
	return instance
}

func TestRecoveryWorker_ResumesStalledSagas(t *testing.T) {
	store := saga.NewMemoryStore()

	staleRunning := seedInstance(t, store, saga.StatusRunning, 10*time.Minute)
	stalePending := seedInstance(t, store, saga.StatusPending, 10*time.Minute)
	staleFailed := seedInstance(t, store, saga.StatusFailed, 10*time.Minute)
	freshRunning := seedInstance(t, store, saga.StatusRunning, 0)
	seedInstance(t, store, saga.StatusCompleted, 10*time.Minute)

	var mu sync.Mutex
	resumed := make(map[string]bool)
	resumer := &MockSagaResumer{
		ResumeSagaFunc: func(ctx context.Context, instanceID string) (saga.Status, error) {
			mu.Lock()
			resumed[instanceID] = true
			mu.Unlock()
			return saga.StatusCompleted, nil
		},
	}

	worker := NewRecoveryWorker(resumer, store, &RecoveryConfig{
		ScanInterval: time.Hour, // only the startup pass should fire
		BatchSize:    50,
		MinAge:       5 * time.Minute,
	})

	assert.NoError(t, worker.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	worker.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, resumed[staleRunning.ID])
	assert.True(t, resumed[stalePending.ID])
	assert.True(t, resumed[staleFailed.ID])
	assert.False(t, resumed[freshRunning.ID], "a fresh instance still belongs to its request")
	assert.Len(t, resumed, 3)

	stats := worker.GetStats()
	assert.False(t, stats.IsRunning)
	assert.Equal(t, int64(3), stats.TotalResumed)
	assert.Equal(t, 3, stats.LastResumedCount)
	assert.Equal(t, int64(0), stats.TotalFailed)
	assert.False(t, stats.LastScanTime.IsZero())
}

func TestRecoveryWorker_ContinuesAfterResumeError(t *testing.T) {
	store := saga.NewMemoryStore()
	seedInstance(t, store, saga.StatusRunning, 10*time.Minute)
	seedInstance(t, store, saga.StatusRunning, 10*time.Minute)

	var attempts int32
	resumer := &MockSagaResumer{
		ResumeSagaFunc: func(ctx context.Context, instanceID string) (saga.Status, error) {
			if atomic.AddInt32(&attempts, 1) == 1 {
				return "", errors.New("database unavailable")
			}
			return saga.StatusCompleted, nil
		},
	}

	worker := NewRecoveryWorker(resumer, store, &RecoveryConfig{
		ScanInterval: time.Hour,
		BatchSize:    50,
		MinAge:       time.Minute,
	})

	assert.NoError(t, worker.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	worker.Stop()

	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	stats := worker.GetStats()
	assert.Equal(t, int64(1), stats.TotalResumed)
	assert.Equal(t, int64(1), stats.TotalFailed)
}

func TestRecoveryWorker_ContinuesAfterScanError(t *testing.T) {
	var scans int32
	scanner := &MockInstanceScanner{
		GetByStatusFunc: func(ctx context.Context, status saga.Status, limit int) ([]*saga.Instance, error) {
			if atomic.AddInt32(&scans, 1) == 1 {
				return nil, errors.New("connection refused")
			}
			return nil, nil
		},
	}

	worker := NewRecoveryWorker(&MockSagaResumer{}, scanner, &RecoveryConfig{
		ScanInterval: 20 * time.Millisecond,
		BatchSize:    50,
		MinAge:       time.Minute,
	})

	assert.NoError(t, worker.Start(context.Background()))
	time.Sleep(70 * time.Millisecond)
	worker.Stop()

	assert.GreaterOrEqual(t, atomic.LoadInt32(&scans), int32(2))
}

func TestRecoveryWorker_ScansOnInterval(t *testing.T) {
	var passes int32
	scanner := &MockInstanceScanner{
		GetPendingCompensationsFunc: func(ctx context.Context, limit int) ([]*saga.Instance, error) {
			atomic.AddInt32(&passes, 1)
			return nil, nil
		},
	}

	worker := NewRecoveryWorker(&MockSagaResumer{}, scanner, &RecoveryConfig{
		ScanInterval: 20 * time.Millisecond,
		BatchSize:    50,
		MinAge:       time.Minute,
	})

	assert.NoError(t, worker.Start(context.Background()))
	time.Sleep(110 * time.Millisecond)
	worker.Stop()

	// Startup pass plus several ticks
	assert.GreaterOrEqual(t, atomic.LoadInt32(&passes), int32(3))
}

func TestRecoveryWorker_DoubleStartFails(t *testing.T) {
	worker := NewRecoveryWorker(&MockSagaResumer{}, &MockInstanceScanner{}, nil)

	assert.NoError(t, worker.Start(context.Background()))
	assert.Error(t, worker.Start(context.Background()))
	worker.Stop()
}

func TestRecoveryWorker_StopIsIdempotent(t *testing.T) {
	worker := NewRecoveryWorker(&MockSagaResumer{}, &MockInstanceScanner{}, nil)

	assert.NoError(t, worker.Start(context.Background()))
	worker.Stop()
	worker.Stop() // second stop must not panic or block
}

func TestDefaultRecoveryConfig(t *testing.T) {
	cfg := DefaultRecoveryConfig()

	assert.Equal(t, 30*time.Second, cfg.ScanInterval)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 5*time.Minute, cfg.MinAge)
}
