package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Plvkssh/SmartLodge/internal/hotel/domain"
	"github.com/Plvkssh/SmartLodge/internal/hotel/dto"
	"github.com/Plvkssh/SmartLodge/internal/hotel/service"
	"github.com/Plvkssh/SmartLodge/pkg/middleware"
	"github.com/Plvkssh/SmartLodge/pkg/response"
	"github.com/gin-gonic/gin"
)

// MockLockService is a mock implementation of LockService for testing
type MockLockService struct {
	HoldFunc               func(ctx context.Context, roomID, correlationID string, req *dto.HoldRoomRequest) (*dto.LockResponse, error)
	ConfirmFunc            func(ctx context.Context, requestID string) (*dto.LockResponse, error)
	ReleaseFunc            func(ctx context.Context, requestID string) (*dto.LockResponse, error)
	GetRoomLocksFunc       func(ctx context.Context, roomID string, limit, offset int) ([]*dto.LockResponse, error)
	LockStatsFunc          func(ctx context.Context) (*dto.LockStatsResponse, error)
	ExpireLocksFunc        func(ctx context.Context, limit int) (int, error)
	PurgeTerminalLocksFunc func(ctx context.Context, olderThan time.Duration) (int64, error)
}

func (m *MockLockService) Hold(ctx context.Context, roomID, correlationID string, req *dto.HoldRoomRequest) (*dto.LockResponse, error) {
	if m.HoldFunc != nil {
		return m.HoldFunc(ctx, roomID, correlationID, req)
	}
	return nil, nil
}

func (m *MockLockService) Confirm(ctx context.Context, requestID string) (*dto.LockResponse, error) {
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, requestID)
	}
	return nil, nil
}

func (m *MockLockService) Release(ctx context.Context, requestID string) (*dto.LockResponse, error) {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, requestID)
	}
	return nil, nil
}

func (m *MockLockService) GetRoomLocks(ctx context.Context, roomID string, limit, offset int) ([]*dto.LockResponse, error) {
	if m.GetRoomLocksFunc != nil {
		return m.GetRoomLocksFunc(ctx, roomID, limit, offset)
	}
	return nil, nil
}

func (m *MockLockService) LockStats(ctx context.Context) (*dto.LockStatsResponse, error) {
	if m.LockStatsFunc != nil {
		return m.LockStatsFunc(ctx)
	}
	return nil, nil
}

func (m *MockLockService) ExpireLocks(ctx context.Context, limit int) (int, error) {
	if m.ExpireLocksFunc != nil {
		return m.ExpireLocksFunc(ctx, limit)
	}
	return 0, nil
}

func (m *MockLockService) PurgeTerminalLocks(ctx context.Context, olderThan time.Duration) (int64, error) {
	if m.PurgeTerminalLocksFunc != nil {
		return m.PurgeTerminalLocksFunc(ctx, olderThan)
	}
	return 0, nil
}

var _ service.LockService = (*MockLockService)(nil)

func setupLockRouter(handler *LockHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	rooms := router.Group("/rooms")
	{
		rooms.POST("/:room_id/hold", handler.Hold)
		rooms.POST("/:room_id/confirm", handler.Confirm)
		rooms.POST("/:room_id/release", handler.Release)
		rooms.GET("/:room_id/locks", handler.ListRoomLocks)
	}

	return router
}

func lockResponseFixture(requestID, roomID, status string) *dto.LockResponse {
	return &dto.LockResponse{
		ID:        "lock-1",
		RequestID: requestID,
		RoomID:    roomID,
		StartDate: "2099-01-10",
		EndDate:   "2099-01-12",
		Status:    status,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func decodeEnvelope(t *testing.T, body []byte) *response.Response {
	t.Helper()
	var envelope response.Response
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return &envelope
}

func TestLockHandler_Hold(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockFunc       func(ctx context.Context, roomID, correlationID string, req *dto.HoldRoomRequest) (*dto.LockResponse, error)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "successful hold",
			body: `{"request_id":"req-1","start_date":"2099-01-10","end_date":"2099-01-12"}`,
			mockFunc: func(ctx context.Context, roomID, correlationID string, req *dto.HoldRoomRequest) (*dto.LockResponse, error) {
				return lockResponseFixture(req.RequestID, roomID, "HELD"), nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing request_id fails binding",
			body:           `{"start_date":"2099-01-10","end_date":"2099-01-12"}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name: "dates already taken",
			body: `{"request_id":"req-2","start_date":"2099-01-10","end_date":"2099-01-12"}`,
			mockFunc: func(ctx context.Context, roomID, correlationID string, req *dto.HoldRoomRequest) (*dto.LockResponse, error) {
				return nil, domain.ErrLockConflict
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "ROOM_CONFLICT",
		},
		{
			name: "room not found",
			body: `{"request_id":"req-3","start_date":"2099-01-10","end_date":"2099-01-12"}`,
			mockFunc: func(ctx context.Context, roomID, correlationID string, req *dto.HoldRoomRequest) (*dto.LockResponse, error) {
				return nil, domain.ErrRoomNotFound
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "ROOM_NOT_FOUND",
		},
		{
			name: "room closed for booking",
			body: `{"request_id":"req-4","start_date":"2099-01-10","end_date":"2099-01-12"}`,
			mockFunc: func(ctx context.Context, roomID, correlationID string, req *dto.HoldRoomRequest) (*dto.LockResponse, error) {
				return nil, domain.ErrRoomUnavailable
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "ROOM_UNAVAILABLE",
		},
		{
			name: "stay starts in the past",
			body: `{"request_id":"req-5","start_date":"2020-01-10","end_date":"2020-01-12"}`,
			mockFunc: func(ctx context.Context, roomID, correlationID string, req *dto.HoldRoomRequest) (*dto.LockResponse, error) {
				return nil, domain.ErrDateInPast
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockLockService{
				HoldFunc: tt.mockFunc,
			}
			router := setupLockRouter(NewLockHandler(mockService))

			req := httptest.NewRequest(http.MethodPost, "/rooms/room-1/hold", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			if tt.expectedCode != "" {
				envelope := decodeEnvelope(t, w.Body.Bytes())
				if envelope.Error == nil {
					t.Fatal("expected error payload")
				}
				if envelope.Error.Code != tt.expectedCode {
					t.Errorf("expected code %s, got %s", tt.expectedCode, envelope.Error.Code)
				}
			}
		})
	}
}

func TestLockHandler_HoldPassesCorrelationID(t *testing.T) {
	var gotRoomID, gotCorrelationID string
	mockService := &MockLockService{
		HoldFunc: func(ctx context.Context, roomID, correlationID string, req *dto.HoldRoomRequest) (*dto.LockResponse, error) {
			gotRoomID = roomID
			gotCorrelationID = correlationID
			return lockResponseFixture(req.RequestID, roomID, "HELD"), nil
		},
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.CorrelationID("hotel-"))
	router.POST("/rooms/:room_id/hold", NewLockHandler(mockService).Hold)

	body := `{"request_id":"req-1","start_date":"2099-01-10","end_date":"2099-01-12"}`
	req := httptest.NewRequest(http.MethodPost, "/rooms/room-7/hold", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CorrelationIDHeader, "booking-abc-123")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
	if gotRoomID != "room-7" {
		t.Errorf("expected room_id room-7, got %s", gotRoomID)
	}
	if gotCorrelationID != "booking-abc-123" {
		t.Errorf("expected correlation id from header, got %s", gotCorrelationID)
	}
}

func TestLockHandler_Confirm(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockFunc       func(ctx context.Context, requestID string) (*dto.LockResponse, error)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "successful confirmation",
			body: `{"request_id":"req-1"}`,
			mockFunc: func(ctx context.Context, requestID string) (*dto.LockResponse, error) {
				return lockResponseFixture(requestID, "room-1", "CONFIRMED"), nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing request_id fails binding",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name: "unknown hold",
			body: `{"request_id":"req-404"}`,
			mockFunc: func(ctx context.Context, requestID string) (*dto.LockResponse, error) {
				return nil, domain.ErrLockNotFound
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "LOCK_NOT_FOUND",
		},
		{
			name: "hold expired before confirmation",
			body: `{"request_id":"req-2"}`,
			mockFunc: func(ctx context.Context, requestID string) (*dto.LockResponse, error) {
				return nil, domain.ErrLockExpired
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "LOCK_EXPIRED",
		},
		{
			name: "hold already released",
			body: `{"request_id":"req-3"}`,
			mockFunc: func(ctx context.Context, requestID string) (*dto.LockResponse, error) {
				return nil, domain.ErrLockAlreadyReleased
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "ALREADY_RELEASED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockLockService{
				ConfirmFunc: tt.mockFunc,
			}
			router := setupLockRouter(NewLockHandler(mockService))

			req := httptest.NewRequest(http.MethodPost, "/rooms/room-1/confirm", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			if tt.expectedCode != "" {
				envelope := decodeEnvelope(t, w.Body.Bytes())
				if envelope.Error == nil {
					t.Fatal("expected error payload")
				}
				if envelope.Error.Code != tt.expectedCode {
					t.Errorf("expected code %s, got %s", tt.expectedCode, envelope.Error.Code)
				}
			}
		})
	}
}

func TestLockHandler_Release(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockFunc       func(ctx context.Context, requestID string) (*dto.LockResponse, error)
		expectedStatus int
		expectedCode   string
		wantStatus     string
	}{
		{
			name: "successful release",
			body: `{"request_id":"req-1"}`,
			mockFunc: func(ctx context.Context, requestID string) (*dto.LockResponse, error) {
				return lockResponseFixture(requestID, "room-1", "RELEASED"), nil
			},
			expectedStatus: http.StatusOK,
			wantStatus:     "RELEASED",
		},
		{
			name: "release after confirm leaves the booking standing",
			body: `{"request_id":"req-2"}`,
			mockFunc: func(ctx context.Context, requestID string) (*dto.LockResponse, error) {
				return lockResponseFixture(requestID, "room-1", "CONFIRMED"), nil
			},
			expectedStatus: http.StatusOK,
			wantStatus:     "CONFIRMED",
		},
		{
			name: "unknown hold",
			body: `{"request_id":"req-404"}`,
			mockFunc: func(ctx context.Context, requestID string) (*dto.LockResponse, error) {
				return nil, domain.ErrLockNotFound
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "LOCK_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockLockService{
				ReleaseFunc: tt.mockFunc,
			}
			router := setupLockRouter(NewLockHandler(mockService))

			req := httptest.NewRequest(http.MethodPost, "/rooms/room-1/release", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			if tt.expectedCode != "" {
				envelope := decodeEnvelope(t, w.Body.Bytes())
				if envelope.Error == nil {
					t.Fatal("expected error payload")
				}
				if envelope.Error.Code != tt.expectedCode {
					t.Errorf("expected code %s, got %s", tt.expectedCode, envelope.Error.Code)
				}
			}

			if tt.wantStatus != "" {
				var envelope struct {
					Data dto.LockResponse `json:"data"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if envelope.Data.Status != tt.wantStatus {
					t.Errorf("expected lock status %s, got %s", tt.wantStatus, envelope.Data.Status)
				}
			}
		})
	}
}

func TestLockHandler_ListRoomLocks(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		mockFunc       func(ctx context.Context, roomID string, limit, offset int) ([]*dto.LockResponse, error)
		expectedStatus int
	}{
		{
			name:  "defaults applied",
			query: "",
			mockFunc: func(ctx context.Context, roomID string, limit, offset int) ([]*dto.LockResponse, error) {
				if limit != 20 {
					t.Errorf("expected default limit 20, got %d", limit)
				}
				if offset != 0 {
					t.Errorf("expected default offset 0, got %d", offset)
				}
				return []*dto.LockResponse{}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "custom pagination",
			query: "?limit=5&offset=10",
			mockFunc: func(ctx context.Context, roomID string, limit, offset int) ([]*dto.LockResponse, error) {
				if limit != 5 {
					t.Errorf("expected limit 5, got %d", limit)
				}
				if offset != 10 {
					t.Errorf("expected offset 10, got %d", offset)
				}
				return []*dto.LockResponse{
					lockResponseFixture("req-1", roomID, "HELD"),
				}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "oversized limit falls back to default",
			query: "?limit=500",
			mockFunc: func(ctx context.Context, roomID string, limit, offset int) ([]*dto.LockResponse, error) {
				if limit != 20 {
					t.Errorf("expected limit 20, got %d", limit)
				}
				return []*dto.LockResponse{}, nil
			},
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockLockService{
				GetRoomLocksFunc: tt.mockFunc,
			}
			router := setupLockRouter(NewLockHandler(mockService))

			req := httptest.NewRequest(http.MethodGet, "/rooms/room-1/locks"+tt.query, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestLockHandler_HandleError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "room not found",
			err:            domain.ErrRoomNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   "ROOM_NOT_FOUND",
		},
		{
			name:           "lock not found",
			err:            domain.ErrLockNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   "LOCK_NOT_FOUND",
		},
		{
			name:           "date conflict",
			err:            domain.ErrLockConflict,
			expectedStatus: http.StatusConflict,
			expectedCode:   "ROOM_CONFLICT",
		},
		{
			name:           "room unavailable",
			err:            domain.ErrRoomUnavailable,
			expectedStatus: http.StatusConflict,
			expectedCode:   "ROOM_UNAVAILABLE",
		},
		{
			name:           "hold expired",
			err:            domain.ErrLockExpired,
			expectedStatus: http.StatusConflict,
			expectedCode:   "LOCK_EXPIRED",
		},
		{
			name:           "already released",
			err:            domain.ErrLockAlreadyReleased,
			expectedStatus: http.StatusConflict,
			expectedCode:   "ALREADY_RELEASED",
		},
		{
			name:           "invalid date range",
			err:            domain.ErrInvalidDateRange,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "duplicate hold",
			err:            domain.ErrLockAlreadyExists,
			expectedStatus: http.StatusConflict,
			expectedCode:   "CONFLICT",
		},
		{
			name:           "unexpected error",
			err:            errors.New("connection refused"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockLockService{
				HoldFunc: func(ctx context.Context, roomID, correlationID string, req *dto.HoldRoomRequest) (*dto.LockResponse, error) {
					return nil, tt.err
				},
			}
			router := setupLockRouter(NewLockHandler(mockService))

			body := `{"request_id":"req-1","start_date":"2099-01-10","end_date":"2099-01-12"}`
			req := httptest.NewRequest(http.MethodPost, "/rooms/room-1/hold", bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			envelope := decodeEnvelope(t, w.Body.Bytes())
			if envelope.Error == nil {
				t.Fatal("expected error payload")
			}
			if envelope.Error.Code != tt.expectedCode {
				t.Errorf("expected code %s, got %s", tt.expectedCode, envelope.Error.Code)
			}
		})
	}
}

func TestLockHandler_InvalidRequestBody(t *testing.T) {
	mockService := &MockLockService{}
	router := setupLockRouter(NewLockHandler(mockService))

	// Send invalid JSON
	req := httptest.NewRequest(http.MethodPost, "/rooms/room-1/hold", bytes.NewBufferString("invalid json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	envelope := decodeEnvelope(t, w.Body.Bytes())
	if envelope.Error == nil {
		t.Fatal("expected error payload")
	}
	if envelope.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("expected code VALIDATION_ERROR, got %s", envelope.Error.Code)
	}
}
