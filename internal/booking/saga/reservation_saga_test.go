package saga

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Plvkssh/SmartLodge/internal/booking/domain"
	pkgsaga "github.com/Plvkssh/SmartLodge/pkg/saga"
)

// mockLock tracks a hotel-side lock created through the mock gateway
type mockLock struct {
	LockID string
	RoomID string
	Status string
}

// MockRoomLockGateway is a stateful mock of the hotel lock API. It
// mirrors the hotel's idempotency rules: confirm and release address
// the lock by request_id, and release on a confirmed lock is a no-op.
type MockRoomLockGateway struct {
	mu sync.Mutex

	HoldShouldFail    bool
	HoldError         error
	ConfirmShouldFail bool
	ConfirmError      error
	ReleaseShouldFail bool
	ReleaseError      error

	HoldCalls    int
	ConfirmCalls int
	ReleaseCalls int

	locks map[string]*mockLock
}

func NewMockRoomLockGateway() *MockRoomLockGateway {
	return &MockRoomLockGateway{
		locks: make(map[string]*mockLock),
	}
}

func (m *MockRoomLockGateway) HoldRoom(ctx context.Context, roomID, requestID, correlationID, startDate, endDate string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.HoldCalls++
	if m.HoldShouldFail {
		if m.HoldError != nil {
			return "", m.HoldError
		}
		return "", errors.New("hold failed")
	}

	if lock, exists := m.locks[requestID]; exists {
		return lock.LockID, nil
	}

	lock := &mockLock{
		LockID: "lock-" + requestID,
		RoomID: roomID,
		Status: "HELD",
	}
	m.locks[requestID] = lock
	return lock.LockID, nil
}

func (m *MockRoomLockGateway) ConfirmRoom(ctx context.Context, roomID, requestID, correlationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ConfirmCalls++
	if m.ConfirmShouldFail {
		if m.ConfirmError != nil {
			return m.ConfirmError
		}
		return errors.New("confirm failed")
	}

	lock, exists := m.locks[requestID]
	if !exists {
		return fmt.Errorf("lock not found for request %s", requestID)
	}
	lock.Status = "CONFIRMED"
	return nil
}

func (m *MockRoomLockGateway) ReleaseRoom(ctx context.Context, roomID, requestID, correlationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReleaseCalls++
	if m.ReleaseShouldFail {
		if m.ReleaseError != nil {
			return m.ReleaseError
		}
		return errors.New("release failed")
	}

	lock, exists := m.locks[requestID]
	if !exists {
		return fmt.Errorf("lock not found for request %s", requestID)
	}
	// Release never undoes a confirm
	if lock.Status != "CONFIRMED" {
		lock.Status = "RELEASED"
	}
	return nil
}

// GetLock returns a copy of the recorded lock for assertions
func (m *MockRoomLockGateway) GetLock(requestID string) (mockLock, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, exists := m.locks[requestID]
	if !exists {
		return mockLock{}, false
	}
	return *lock, true
}

// MockReservationFinalizer records terminal status writes
type MockReservationFinalizer struct {
	mu sync.Mutex

	ShouldFail   bool
	FailureError error

	Calls     int
	Finalized []string
}

func NewMockReservationFinalizer() *MockReservationFinalizer {
	return &MockReservationFinalizer{}
}

func (m *MockReservationFinalizer) FinalizeReservation(ctx context.Context, reservationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	if m.ShouldFail {
		if m.FailureError != nil {
			return m.FailureError
		}
		return errors.New("finalize failed")
	}

	m.Finalized = append(m.Finalized, reservationID)
	return nil
}

func (m *MockReservationFinalizer) WasFinalized(reservationID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.Finalized {
		if id == reservationID {
			return true
		}
	}
	return false
}

func newTestOrchestrator(t *testing.T, gateway *MockRoomLockGateway, finalizer *MockReservationFinalizer) *pkgsaga.Orchestrator {
	t.Helper()

	orchestrator := pkgsaga.NewOrchestrator(&pkgsaga.OrchestratorConfig{
		Store: pkgsaga.NewMemoryStore(),
	})

	builder := NewReservationSagaBuilder(&ReservationSagaConfig{
		Gateway:     gateway,
		Finalizer:   finalizer,
		StepTimeout: 5 * time.Second,
	})
	if err := orchestrator.RegisterDefinition(builder.Build()); err != nil {
		t.Fatalf("failed to register saga definition: %v", err)
	}

	return orchestrator
}

func testSagaData() map[string]interface{} {
	data := &ReservationSagaData{
		ReservationID: "res-1",
		RequestID:     "req-1",
		UserID:        "user-1",
		RoomID:        "room-1",
		StartDate:     "2026-09-01",
		EndDate:       "2026-09-03",
		CorrelationID: "booking-abc",
	}
	return data.ToMap()
}

func TestReservationSaga_Success(t *testing.T) {
	gateway := NewMockRoomLockGateway()
	finalizer := NewMockReservationFinalizer()
	orchestrator := newTestOrchestrator(t, gateway, finalizer)

	instance, err := orchestrator.Execute(context.Background(), ReservationSagaName, testSagaData())
	if err != nil {
		t.Fatalf("saga execution failed: %v", err)
	}

	if instance.Status != pkgsaga.StatusCompleted {
		t.Errorf("Expected status %s, got %s", pkgsaga.StatusCompleted, instance.Status)
	}
	if len(instance.StepResults) != 3 {
		t.Fatalf("Expected 3 step results, got %d", len(instance.StepResults))
	}
	for _, result := range instance.StepResults {
		if result.Status != pkgsaga.StepStatusCompleted {
			t.Errorf("Expected step %s completed, got %s", result.StepName, result.Status)
		}
	}

	lock, exists := gateway.GetLock("req-1")
	if !exists {
		t.Fatal("Expected a lock to be created")
	}
	if lock.Status != "CONFIRMED" {
		t.Errorf("Expected lock CONFIRMED, got %s", lock.Status)
	}
	if !finalizer.WasFinalized("res-1") {
		t.Error("Expected reservation res-1 to be finalized")
	}

	data := instance.GetData()
	if data["lock_id"] != "lock-req-1" {
		t.Errorf("Expected lock_id lock-req-1 in saga data, got %v", data["lock_id"])
	}
}

func TestReservationSaga_HoldFails(t *testing.T) {
	gateway := NewMockRoomLockGateway()
	gateway.HoldShouldFail = true
	gateway.HoldError = domain.ErrRoomConflict
	finalizer := NewMockReservationFinalizer()
	orchestrator := newTestOrchestrator(t, gateway, finalizer)

	instance, err := orchestrator.Execute(context.Background(), ReservationSagaName, testSagaData())
	if err == nil {
		t.Fatal("Expected saga execution to fail")
	}

	if instance.Status != pkgsaga.StatusCompensated {
		t.Errorf("Expected status %s, got %s", pkgsaga.StatusCompensated, instance.Status)
	}

	// The hold never completed, so there is nothing to release
	if gateway.ReleaseCalls != 0 {
		t.Errorf("Expected no release calls, got %d", gateway.ReleaseCalls)
	}
	if gateway.ConfirmCalls != 0 {
		t.Errorf("Expected no confirm calls, got %d", gateway.ConfirmCalls)
	}
	if finalizer.Calls != 0 {
		t.Errorf("Expected no finalize calls, got %d", finalizer.Calls)
	}
}

func TestReservationSaga_ConfirmFails(t *testing.T) {
	gateway := NewMockRoomLockGateway()
	gateway.ConfirmShouldFail = true
	finalizer := NewMockReservationFinalizer()
	orchestrator := newTestOrchestrator(t, gateway, finalizer)

	instance, err := orchestrator.Execute(context.Background(), ReservationSagaName, testSagaData())
	if err == nil {
		t.Fatal("Expected saga execution to fail")
	}

	if instance.Status != pkgsaga.StatusCompensated {
		t.Errorf("Expected status %s, got %s", pkgsaga.StatusCompensated, instance.Status)
	}

	// The completed hold must be compensated by a release
	if gateway.ReleaseCalls != 1 {
		t.Errorf("Expected 1 release call, got %d", gateway.ReleaseCalls)
	}
	lock, exists := gateway.GetLock("req-1")
	if !exists {
		t.Fatal("Expected the held lock to still exist")
	}
	if lock.Status != "RELEASED" {
		t.Errorf("Expected lock RELEASED after compensation, got %s", lock.Status)
	}
	if finalizer.Calls != 0 {
		t.Errorf("Expected no finalize calls, got %d", finalizer.Calls)
	}

	if len(instance.StepResults) != 2 {
		t.Fatalf("Expected 2 step results, got %d", len(instance.StepResults))
	}
	if instance.StepResults[0].Status != pkgsaga.StepStatusCompensated {
		t.Errorf("Expected hold-room compensated, got %s", instance.StepResults[0].Status)
	}
	if instance.StepResults[1].Status != pkgsaga.StepStatusFailed {
		t.Errorf("Expected confirm-room failed, got %s", instance.StepResults[1].Status)
	}
}

func TestReservationSaga_FinalizeFails(t *testing.T) {
	gateway := NewMockRoomLockGateway()
	finalizer := NewMockReservationFinalizer()
	finalizer.ShouldFail = true
	orchestrator := newTestOrchestrator(t, gateway, finalizer)

	instance, err := orchestrator.Execute(context.Background(), ReservationSagaName, testSagaData())
	if err == nil {
		t.Fatal("Expected saga execution to fail")
	}

	if instance.Status != pkgsaga.StatusCompensated {
		t.Errorf("Expected status %s, got %s", pkgsaga.StatusCompensated, instance.Status)
	}

	// The local status write is retried before the saga gives up
	if finalizer.Calls != 3 {
		t.Errorf("Expected 3 finalize attempts, got %d", finalizer.Calls)
	}

	// Compensation fires a release, but the confirmed lock stays confirmed
	if gateway.ReleaseCalls != 1 {
		t.Errorf("Expected 1 release call, got %d", gateway.ReleaseCalls)
	}
	lock, _ := gateway.GetLock("req-1")
	if lock.Status != "CONFIRMED" {
		t.Errorf("Expected lock to stay CONFIRMED, got %s", lock.Status)
	}
}

func TestReservationSaga_CompensationFails(t *testing.T) {
	gateway := NewMockRoomLockGateway()
	gateway.ConfirmShouldFail = true
	gateway.ReleaseShouldFail = true
	gateway.ReleaseError = errors.New("hotel unreachable")
	finalizer := NewMockReservationFinalizer()
	orchestrator := newTestOrchestrator(t, gateway, finalizer)

	instance, err := orchestrator.Execute(context.Background(), ReservationSagaName, testSagaData())
	if err == nil {
		t.Fatal("Expected saga execution to fail")
	}

	if instance.Status != pkgsaga.StatusCompensated {
		t.Errorf("Expected status %s, got %s", pkgsaga.StatusCompensated, instance.Status)
	}

	// A failed compensation leaves the completed step marked failed;
	// the lock stays HELD until the hotel sweeper expires it
	if len(instance.StepResults) != 2 {
		t.Fatalf("Expected 2 step results, got %d", len(instance.StepResults))
	}
	if instance.StepResults[0].Status != pkgsaga.StepStatusFailed {
		t.Errorf("Expected hold-room marked failed after failed release, got %s", instance.StepResults[0].Status)
	}
	lock, _ := gateway.GetLock("req-1")
	if lock.Status != "HELD" {
		t.Errorf("Expected lock to stay HELD, got %s", lock.Status)
	}
}

func TestReservationSaga_GatewayNotConfigured(t *testing.T) {
	finalizer := NewMockReservationFinalizer()

	orchestrator := pkgsaga.NewOrchestrator(&pkgsaga.OrchestratorConfig{
		Store: pkgsaga.NewMemoryStore(),
	})
	builder := NewReservationSagaBuilder(&ReservationSagaConfig{
		Finalizer: finalizer,
	})
	if err := orchestrator.RegisterDefinition(builder.Build()); err != nil {
		t.Fatalf("failed to register saga definition: %v", err)
	}

	instance, err := orchestrator.Execute(context.Background(), ReservationSagaName, testSagaData())
	if err == nil {
		t.Fatal("Expected saga execution to fail without a gateway")
	}
	if instance.Status != pkgsaga.StatusCompensated {
		t.Errorf("Expected status %s, got %s", pkgsaga.StatusCompensated, instance.Status)
	}
	if finalizer.Calls != 0 {
		t.Errorf("Expected no finalize calls, got %d", finalizer.Calls)
	}
}

func TestReservationSagaData_MapRoundTrip(t *testing.T) {
	original := &ReservationSagaData{
		ReservationID: "res-1",
		RequestID:     "req-1",
		UserID:        "user-1",
		RoomID:        "room-1",
		StartDate:     "2026-09-01",
		EndDate:       "2026-09-03",
		CorrelationID: "booking-abc",
		LockID:        "lock-req-1",
	}

	restored := &ReservationSagaData{}
	restored.FromMap(original.ToMap())

	if *restored != *original {
		t.Errorf("Round trip mismatch: got %+v, want %+v", restored, original)
	}
}

func TestReservationSagaBuilder_Defaults(t *testing.T) {
	builder := NewReservationSagaBuilder(&ReservationSagaConfig{
		Gateway:   NewMockRoomLockGateway(),
		Finalizer: NewMockReservationFinalizer(),
	})
	def := builder.Build()

	if def.Name != ReservationSagaName {
		t.Errorf("Expected definition name %s, got %s", ReservationSagaName, def.Name)
	}
	if len(def.Steps) != 3 {
		t.Fatalf("Expected 3 steps, got %d", len(def.Steps))
	}

	expectedSteps := []string{StepHoldRoom, StepConfirmRoom, StepFinalizeReservation}
	for i, name := range expectedSteps {
		if def.Steps[i].Name != name {
			t.Errorf("Expected step %d to be %s, got %s", i, name, def.Steps[i].Name)
		}
		if def.Steps[i].Timeout != 30*time.Second {
			t.Errorf("Expected default step timeout 30s for %s, got %s", name, def.Steps[i].Timeout)
		}
	}

	if def.Steps[0].Compensate == nil {
		t.Error("Expected hold-room to have a compensating action")
	}
	if def.Steps[1].Compensate != nil {
		t.Error("Expected confirm-room to have no compensating action")
	}
	if def.Steps[2].Compensate != nil {
		t.Error("Expected finalize-reservation to have no compensating action")
	}

	if def.Steps[0].Retries != 0 {
		t.Errorf("Expected hold-room to run once, got %d retries", def.Steps[0].Retries)
	}
	if def.Steps[2].Retries != 2 {
		t.Errorf("Expected finalize-reservation retry floor of 2, got %d", def.Steps[2].Retries)
	}
}
