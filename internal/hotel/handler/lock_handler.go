package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Plvkssh/SmartLodge/internal/hotel/domain"
	"github.com/Plvkssh/SmartLodge/internal/hotel/dto"
	"github.com/Plvkssh/SmartLodge/internal/hotel/service"
	"github.com/Plvkssh/SmartLodge/pkg/middleware"
	"github.com/Plvkssh/SmartLodge/pkg/response"
	"github.com/Plvkssh/SmartLodge/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// LockHandler handles room lock HTTP requests.
// Hold, confirm and release are the three legs the booking saga drives;
// all of them are idempotent on request_id so the saga can retry blindly.
type LockHandler struct {
	lockService service.LockService
}

// NewLockHandler creates a new lock handler
func NewLockHandler(lockService service.LockService) *LockHandler {
	return &LockHandler{
		lockService: lockService,
	}
}

// Hold handles POST /rooms/:room_id/hold
// Places a temporary hold on a room for a date range. The hold expires
// automatically unless confirmed within the TTL.
func (h *LockHandler) Hold(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.lock.hold")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	roomID := c.Param("room_id")

	var req dto.HoldRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", err.Error())
		return
	}

	correlationID, _ := middleware.GetCorrelationID(c)

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("request_id", req.RequestID),
		attribute.String("correlation_id", correlationID),
		attribute.String("start_date", req.StartDate),
		attribute.String("end_date", req.EndDate),
	)

	result, err := h.lockService.Hold(ctx, roomID, correlationID, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("lock_id", result.ID))
	span.SetStatus(codes.Ok, "")
	response.Created(c, result)
}

// Confirm handles POST /rooms/:room_id/confirm
// Promotes a hold to a confirmed booking. The lock is addressed by the
// request_id that created it, so replays land on the same row.
func (h *LockHandler) Confirm(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.lock.confirm")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.ConfirmRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", err.Error())
		return
	}

	span.SetAttributes(
		attribute.String("room_id", c.Param("room_id")),
		attribute.String("request_id", req.RequestID),
	)

	result, err := h.lockService.Confirm(ctx, req.RequestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// Release handles POST /rooms/:room_id/release
// Drops a hold so the dates open up again. Releasing an already released
// hold succeeds, releasing a confirmed one leaves it confirmed.
func (h *LockHandler) Release(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.lock.release")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.ReleaseRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", err.Error())
		return
	}

	span.SetAttributes(
		attribute.String("room_id", c.Param("room_id")),
		attribute.String("request_id", req.RequestID),
	)

	result, err := h.lockService.Release(ctx, req.RequestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("status", result.Status))
	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// ListRoomLocks handles GET /rooms/:room_id/locks
func (h *LockHandler) ListRoomLocks(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.lock.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	roomID := c.Param("room_id")

	limit := 20
	offset := 0
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if o := c.Query("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	locks, err := h.lockService.GetRoomLocks(ctx, roomID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Paginated(c, locks, limit, offset, int64(len(locks)))
}

// handleError converts domain errors to HTTP responses
func (h *LockHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		response.Error(c, http.StatusNotFound, "ROOM_NOT_FOUND", err.Error(), "")
	case errors.Is(err, domain.ErrLockNotFound):
		response.Error(c, http.StatusNotFound, "LOCK_NOT_FOUND", err.Error(), "")
	case errors.Is(err, domain.ErrLockConflict):
		response.Error(c, http.StatusConflict, "ROOM_CONFLICT", err.Error(), "")
	case errors.Is(err, domain.ErrRoomUnavailable):
		response.Error(c, http.StatusConflict, "ROOM_UNAVAILABLE", err.Error(), "")
	case errors.Is(err, domain.ErrLockExpired):
		response.Error(c, http.StatusConflict, "LOCK_EXPIRED", err.Error(), "")
	case errors.Is(err, domain.ErrLockAlreadyReleased):
		response.Error(c, http.StatusConflict, "ALREADY_RELEASED", err.Error(), "")
	case domain.IsValidationError(err):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), "")
	case domain.IsConflictError(err):
		response.Conflict(c, err.Error())
	case domain.IsNotFoundError(err):
		response.NotFound(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
