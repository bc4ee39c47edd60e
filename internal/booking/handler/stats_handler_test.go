package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Plvkssh/SmartLodge/internal/booking/dto"
	"github.com/Plvkssh/SmartLodge/internal/booking/worker"
	pkgsaga "github.com/Plvkssh/SmartLodge/pkg/saga"
	"github.com/gin-gonic/gin"
)

func TestStatsHandler_ReservationStats(t *testing.T) {
	mockService := &MockReservationService{
		ReservationStatsFunc: func(ctx context.Context) (*dto.ReservationStatsResponse, error) {
			return &dto.ReservationStatsResponse{
				ByStatus: map[string]int64{"CONFIRMED": 8, "CANCELLED": 2},
				Total:    10,
			}, nil
		},
	}
	handler := NewStatsHandler(mockService, nil)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/stats/reservations", handler.ReservationStats)

	req := httptest.NewRequest(http.MethodGet, "/stats/reservations", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var envelope struct {
		Data struct {
			Reservations dto.ReservationStatsResponse `json:"reservations"`
			Recovery     json.RawMessage              `json:"recovery"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if envelope.Data.Reservations.Total != 10 {
		t.Errorf("expected total 10, got %d", envelope.Data.Reservations.Total)
	}
	if envelope.Data.Reservations.ByStatus["CONFIRMED"] != 8 {
		t.Errorf("expected 8 confirmed, got %d", envelope.Data.Reservations.ByStatus["CONFIRMED"])
	}
	if len(envelope.Data.Recovery) != 0 {
		t.Error("expected no recovery block without a worker")
	}
}

func TestStatsHandler_ReservationStatsWithRecovery(t *testing.T) {
	mockService := &MockReservationService{
		ReservationStatsFunc: func(ctx context.Context) (*dto.ReservationStatsResponse, error) {
			return &dto.ReservationStatsResponse{ByStatus: map[string]int64{}, Total: 0}, nil
		},
	}
	recovery := worker.NewRecoveryWorker(mockService, pkgsaga.NewMemoryStore(), nil)
	handler := NewStatsHandler(mockService, recovery)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/stats/reservations", handler.ReservationStats)

	req := httptest.NewRequest(http.MethodGet, "/stats/reservations", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var envelope struct {
		Data struct {
			Recovery worker.RecoveryStats `json:"recovery"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if envelope.Data.Recovery.IsRunning {
		t.Error("expected recovery worker to report not running")
	}
}
