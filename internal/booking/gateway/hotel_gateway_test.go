package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/Plvkssh/SmartLodge/internal/booking/domain"
	"github.com/Plvkssh/SmartLodge/pkg/middleware"
	"github.com/Plvkssh/SmartLodge/pkg/retry"
)

// newTestGateway builds a gateway against the test server with
// millisecond backoff so retry tests stay fast
func newTestGateway(baseURL string, maxRetries int) *HotelGateway {
	g := NewHotelGateway(&Config{
		BaseURL:    baseURL,
		Timeout:    2 * time.Second,
		MaxRetries: maxRetries,
	})
	g.retrier = retry.New(&retry.Config{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	})
	return g
}

func writeEnvelope(w http.ResponseWriter, status int, env map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

func TestHotelGateway_HoldRoom_Success(t *testing.T) {
	var gotPath, gotCorrelation string
	var gotBody map[string]string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCorrelation = r.Header.Get(middleware.CorrelationIDHeader)
		json.NewDecoder(r.Body).Decode(&gotBody)

		writeEnvelope(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"id":         "lock-1",
				"request_id": "req-1",
				"room_id":    "room-1",
				"status":     "HELD",
			},
		})
	}))
	defer ts.Close()

	g := newTestGateway(ts.URL, 0)

	lockID, err := g.HoldRoom(context.Background(), "room-1", "req-1", "corr-1", "2026-09-01", "2026-09-03")
	if err != nil {
		t.Fatalf("HoldRoom failed: %v", err)
	}
	if lockID != "lock-1" {
		t.Errorf("Expected lock id lock-1, got %s", lockID)
	}
	if gotPath != "/api/v1/rooms/room-1/hold" {
		t.Errorf("Expected hold path, got %s", gotPath)
	}
	if gotCorrelation != "corr-1" {
		t.Errorf("Expected correlation header corr-1, got %s", gotCorrelation)
	}
	if gotBody["request_id"] != "req-1" {
		t.Errorf("Expected request_id req-1 in body, got %s", gotBody["request_id"])
	}
	if gotBody["start_date"] != "2026-09-01" || gotBody["end_date"] != "2026-09-03" {
		t.Errorf("Expected stay dates in body, got %v", gotBody)
	}
}

func TestHotelGateway_HoldRoom_ConflictNotRetried(t *testing.T) {
	requests := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		writeEnvelope(w, http.StatusConflict, map[string]interface{}{
			"success": false,
			"error": map[string]interface{}{
				"code":    "ROOM_CONFLICT",
				"message": "room is already locked for the requested dates",
			},
		})
	}))
	defer ts.Close()

	g := newTestGateway(ts.URL, 3)

	_, err := g.HoldRoom(context.Background(), "room-1", "req-1", "corr-1", "2026-09-01", "2026-09-03")
	if !errors.Is(err, domain.ErrRoomConflict) {
		t.Fatalf("Expected ErrRoomConflict, got %v", err)
	}
	if requests != 1 {
		t.Errorf("Expected 1 request for a definitive conflict, got %d", requests)
	}
}

func TestHotelGateway_HoldRoom_RetriesServerError(t *testing.T) {
	requests := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeEnvelope(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"id": "lock-1"},
		})
	}))
	defer ts.Close()

	g := newTestGateway(ts.URL, 3)

	lockID, err := g.HoldRoom(context.Background(), "room-1", "req-1", "corr-1", "2026-09-01", "2026-09-03")
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if lockID != "lock-1" {
		t.Errorf("Expected lock id lock-1, got %s", lockID)
	}
	if requests != 3 {
		t.Errorf("Expected 3 requests, got %d", requests)
	}
}

func TestHotelGateway_HoldRoom_RetriesExhausted(t *testing.T) {
	requests := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	g := newTestGateway(ts.URL, 2)

	_, err := g.HoldRoom(context.Background(), "room-1", "req-1", "corr-1", "2026-09-01", "2026-09-03")
	if !errors.Is(err, domain.ErrHotelGateway) {
		t.Fatalf("Expected ErrHotelGateway after exhausted retries, got %v", err)
	}
	if requests != 3 {
		t.Errorf("Expected 3 requests (initial + 2 retries), got %d", requests)
	}
}

func TestHotelGateway_HoldRoom_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	g := newTestGateway(ts.URL, 1)

	_, err := g.HoldRoom(context.Background(), "room-1", "req-1", "corr-1", "2026-09-01", "2026-09-03")
	if !errors.Is(err, domain.ErrHotelGateway) {
		t.Fatalf("Expected ErrHotelGateway for unreachable hotel, got %v", err)
	}
}

func TestHotelGateway_ConfirmRoom_Success(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"id": "lock-1", "status": "CONFIRMED"},
		})
	}))
	defer ts.Close()

	g := newTestGateway(ts.URL, 0)

	if err := g.ConfirmRoom(context.Background(), "room-1", "req-1", "corr-1"); err != nil {
		t.Fatalf("ConfirmRoom failed: %v", err)
	}
	if gotPath != "/api/v1/rooms/room-1/confirm" {
		t.Errorf("Expected confirm path, got %s", gotPath)
	}
	if gotBody["request_id"] != "req-1" {
		t.Errorf("Expected request_id req-1 in body, got %s", gotBody["request_id"])
	}
}

func TestHotelGateway_ConfirmRoom_ExpiredLock(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusConflict, map[string]interface{}{
			"success": false,
			"error": map[string]interface{}{
				"code":    "LOCK_EXPIRED",
				"message": "lock has expired",
			},
		})
	}))
	defer ts.Close()

	g := newTestGateway(ts.URL, 2)

	err := g.ConfirmRoom(context.Background(), "room-1", "req-1", "corr-1")
	if !errors.Is(err, domain.ErrHotelGateway) {
		t.Fatalf("Expected ErrHotelGateway for expired lock, got %v", err)
	}
}

func TestHotelGateway_ReleaseRoom_Success(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"id": "lock-1", "status": "RELEASED"},
		})
	}))
	defer ts.Close()

	g := newTestGateway(ts.URL, 0)

	if err := g.ReleaseRoom(context.Background(), "room-1", "req-1", "corr-1"); err != nil {
		t.Fatalf("ReleaseRoom failed: %v", err)
	}
	if gotPath != "/api/v1/rooms/room-1/release" {
		t.Errorf("Expected release path, got %s", gotPath)
	}
}

func TestHotelGateway_AvailableRooms(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": []map[string]interface{}{
				{"id": "room-1", "hotel_id": "hotel-1", "room_number": "101", "is_available": true},
				{"id": "room-2", "hotel_id": "hotel-1", "room_number": "102", "is_available": true},
			},
		})
	}))
	defer ts.Close()

	g := newTestGateway(ts.URL, 0)

	rooms, err := g.AvailableRooms(context.Background(), "2026-09-01", "2026-09-03", "Bangkok", 10)
	if err != nil {
		t.Fatalf("AvailableRooms failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("Expected 2 rooms, got %d", len(rooms))
	}
	if rooms[0].ID != "room-1" || rooms[1].ID != "room-2" {
		t.Errorf("Unexpected room ids: %s, %s", rooms[0].ID, rooms[1].ID)
	}

	q, err := url.ParseQuery(gotQuery)
	if err != nil {
		t.Fatalf("failed to parse query: %v", err)
	}
	if q.Get("start_date") != "2026-09-01" || q.Get("end_date") != "2026-09-03" {
		t.Errorf("Expected stay dates in query, got %s", gotQuery)
	}
	if q.Get("city") != "Bangkok" {
		t.Errorf("Expected city filter in query, got %s", gotQuery)
	}
	if q.Get("limit") != "10" {
		t.Errorf("Expected limit in query, got %s", gotQuery)
	}
}

func TestHotelGateway_ContextCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	g := newTestGateway(ts.URL, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.HoldRoom(ctx, "room-1", "req-1", "corr-1", "2026-09-01", "2026-09-03")
	if err == nil {
		t.Fatal("Expected error for canceled context")
	}
}
