package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Plvkssh/SmartLodge/internal/hotel/dto"
	"github.com/Plvkssh/SmartLodge/internal/hotel/worker"
	"github.com/gin-gonic/gin"
)

func TestStatsHandler_LockStats(t *testing.T) {
	mockService := &MockLockService{
		LockStatsFunc: func(ctx context.Context) (*dto.LockStatsResponse, error) {
			return &dto.LockStatsResponse{
				ByStatus: map[string]int64{"HELD": 3, "CONFIRMED": 7},
				Total:    10,
			}, nil
		},
	}
	handler := NewStatsHandler(mockService, nil)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/stats/locks", handler.LockStats)

	req := httptest.NewRequest(http.MethodGet, "/stats/locks", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var envelope struct {
		Data struct {
			Locks   dto.LockStatsResponse `json:"locks"`
			Sweeper json.RawMessage       `json:"sweeper"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if envelope.Data.Locks.Total != 10 {
		t.Errorf("expected total 10, got %d", envelope.Data.Locks.Total)
	}
	if envelope.Data.Locks.ByStatus["HELD"] != 3 {
		t.Errorf("expected 3 held locks, got %d", envelope.Data.Locks.ByStatus["HELD"])
	}
	if len(envelope.Data.Sweeper) != 0 {
		t.Error("expected no sweeper block without a sweeper")
	}
}

func TestStatsHandler_LockStatsWithSweeper(t *testing.T) {
	mockService := &MockLockService{
		LockStatsFunc: func(ctx context.Context) (*dto.LockStatsResponse, error) {
			return &dto.LockStatsResponse{ByStatus: map[string]int64{}, Total: 0}, nil
		},
	}
	sweeper := worker.NewSweeper(mockService, nil)
	handler := NewStatsHandler(mockService, sweeper)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/stats/locks", handler.LockStats)

	req := httptest.NewRequest(http.MethodGet, "/stats/locks", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var envelope struct {
		Data struct {
			Sweeper worker.SweeperStats `json:"sweeper"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if envelope.Data.Sweeper.IsRunning {
		t.Error("expected sweeper to report not running")
	}
}
