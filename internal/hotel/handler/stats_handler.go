package handler

import (
	"github.com/Plvkssh/SmartLodge/internal/hotel/service"
	"github.com/Plvkssh/SmartLodge/internal/hotel/worker"
	"github.com/Plvkssh/SmartLodge/pkg/response"
	"github.com/gin-gonic/gin"
)

// StatsHandler exposes lock counts and sweeper progress for operators
type StatsHandler struct {
	lockService service.LockService
	sweeper     *worker.Sweeper
}

// NewStatsHandler creates a new StatsHandler. The sweeper is optional;
// when nil the response carries lock counts only.
func NewStatsHandler(lockService service.LockService, sweeper *worker.Sweeper) *StatsHandler {
	return &StatsHandler{
		lockService: lockService,
		sweeper:     sweeper,
	}
}

// LockStats handles GET /stats/locks
func (h *StatsHandler) LockStats(c *gin.Context) {
	stats, err := h.lockService.LockStats(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}

	payload := gin.H{"locks": stats}
	if h.sweeper != nil {
		payload["sweeper"] = h.sweeper.GetStats()
	}

	response.Success(c, payload)
}
