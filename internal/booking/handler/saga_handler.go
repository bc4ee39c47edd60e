package handler

import (
	"errors"
	"net/http"

	"github.com/Plvkssh/SmartLodge/internal/booking/domain"
	"github.com/Plvkssh/SmartLodge/internal/booking/dto"
	"github.com/Plvkssh/SmartLodge/internal/booking/service"
	"github.com/Plvkssh/SmartLodge/pkg/response"
	"github.com/Plvkssh/SmartLodge/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// SagaHandler exposes the saga journal for operators
type SagaHandler struct {
	reservationService service.ReservationService
}

// NewSagaHandler creates a new saga handler
func NewSagaHandler(reservationService service.ReservationService) *SagaHandler {
	return &SagaHandler{
		reservationService: reservationService,
	}
}

// GetSaga handles GET /sagas/:id
func (h *SagaHandler) GetSaga(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.saga.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, "saga id is required")
		return
	}
	span.SetAttributes(attribute.String("saga_id", id))

	instance, err := h.reservationService.GetSaga(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, instance)
}

// ListSagas handles GET /sagas
// Without a status filter it lists recent reservation sagas; with one it
// lists instances in that state across definitions.
func (h *SagaHandler) ListSagas(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.saga.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var q dto.SagaListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}

	span.SetAttributes(
		attribute.String("status", q.Status),
		attribute.Int("limit", q.Limit),
	)

	instances, err := h.reservationService.ListSagas(ctx, q.Status, q.Limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, instances)
}

// Resume handles POST /sagas/:id/resume
// Re-drives a stalled saga immediately instead of waiting for the
// recovery worker's next pass. Safe on finished sagas, which no-op.
func (h *SagaHandler) Resume(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.saga.resume")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, "saga id is required")
		return
	}
	span.SetAttributes(attribute.String("saga_id", id))

	status, err := h.reservationService.ResumeSaga(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("status", string(status)))
	span.SetStatus(codes.Ok, "")
	response.Success(c, gin.H{"saga_id": id, "status": status})
}

// handleError converts domain errors to HTTP responses
func (h *SagaHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrSagaNotFound):
		response.Error(c, http.StatusNotFound, "SAGA_NOT_FOUND", err.Error(), "")
	case domain.IsNotFoundError(err):
		response.NotFound(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
