package handler

import (
	"github.com/Plvkssh/SmartLodge/internal/booking/service"
	"github.com/Plvkssh/SmartLodge/internal/booking/worker"
	"github.com/Plvkssh/SmartLodge/pkg/response"
	"github.com/gin-gonic/gin"
)

// StatsHandler exposes reservation counts and recovery progress for operators
type StatsHandler struct {
	reservationService service.ReservationService
	recovery           *worker.RecoveryWorker
}

// NewStatsHandler creates a new StatsHandler. The recovery worker is
// optional; when nil the response carries reservation counts only.
func NewStatsHandler(reservationService service.ReservationService, recovery *worker.RecoveryWorker) *StatsHandler {
	return &StatsHandler{
		reservationService: reservationService,
		recovery:           recovery,
	}
}

// ReservationStats handles GET /stats/reservations
func (h *StatsHandler) ReservationStats(c *gin.Context) {
	stats, err := h.reservationService.ReservationStats(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}

	payload := gin.H{"reservations": stats}
	if h.recovery != nil {
		payload["recovery"] = h.recovery.GetStats()
	}

	response.Success(c, payload)
}
