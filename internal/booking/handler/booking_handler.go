package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Plvkssh/SmartLodge/internal/booking/domain"
	"github.com/Plvkssh/SmartLodge/internal/booking/dto"
	"github.com/Plvkssh/SmartLodge/internal/booking/service"
	"github.com/Plvkssh/SmartLodge/pkg/middleware"
	"github.com/Plvkssh/SmartLodge/pkg/response"
	"github.com/Plvkssh/SmartLodge/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// BookingHandler handles reservation HTTP requests.
// Creation runs the whole saga before responding, so the reservation in
// the response body is always terminal: CONFIRMED or CANCELLED.
type BookingHandler struct {
	reservationService service.ReservationService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(reservationService service.ReservationService) *BookingHandler {
	return &BookingHandler{
		reservationService: reservationService,
	}
}

// Create handles POST /bookings
// Books a room for a date range. The request either confirms the room or
// comes back CANCELLED with every remote hold rolled back; both are 201.
func (h *BookingHandler) Create(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", err.Error())
		return
	}

	userID, _ := middleware.GetUserID(c)

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("room_id", req.RoomID),
		attribute.String("request_id", req.RequestID),
	)

	result, err := h.reservationService.CreateReservation(ctx, userID, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetAttributes(
		attribute.String("reservation_id", result.ID),
		attribute.String("status", result.Status),
	)
	span.SetStatus(codes.Ok, "")
	response.Created(c, result)
}

// Get handles GET /bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, "reservation id is required")
		return
	}
	span.SetAttributes(attribute.String("reservation_id", id))

	result, err := h.reservationService.GetReservation(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// List handles GET /bookings
// Returns the calling user's reservations, newest first.
func (h *BookingHandler) List(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var q dto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}
	q.SetDefaults()

	userID, _ := middleware.GetUserID(c)

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Int("limit", q.Limit),
		attribute.Int("offset", q.Offset),
	)

	reservations, total, err := h.reservationService.GetUserReservations(ctx, userID, q.Limit, q.Offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Paginated(c, reservations, q.Limit, q.Offset, total)
}

// SuggestedRooms handles GET /rooms/suggested
// Proxies the hotel service's availability search so clients can pick a
// bookable room, least-booked first.
func (h *BookingHandler) SuggestedRooms(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.suggested_rooms")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var q dto.SuggestedRoomsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "start_date and end_date query parameters are required")
		return
	}

	span.SetAttributes(
		attribute.String("start_date", q.StartDate),
		attribute.String("end_date", q.EndDate),
		attribute.String("city", q.City),
	)

	rooms, err := h.reservationService.SuggestedRooms(ctx, q.StartDate, q.EndDate, q.City, q.Limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, rooms)
}

// ExtractRequestID pulls the idempotency key for POST /bookings: the
// request_id field when the body carries one, else the standard header.
// The body is restored so binding still sees it.
func ExtractRequestID(c *gin.Context) string {
	if key := c.GetHeader(middleware.IdempotencyKeyHeader); key != "" {
		return key
	}
	if c.Request.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))

	var body struct {
		RequestID string `json:"request_id"`
	}
	_ = json.Unmarshal(raw, &body)
	return body.RequestID
}

// handleError converts domain errors to HTTP responses
func (h *BookingHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrReservationNotFound):
		response.Error(c, http.StatusNotFound, "RESERVATION_NOT_FOUND", err.Error(), "")
	case errors.Is(err, domain.ErrRoomNotFound):
		response.Error(c, http.StatusNotFound, "ROOM_NOT_FOUND", err.Error(), "")
	case errors.Is(err, domain.ErrDuplicateRequest):
		response.Error(c, http.StatusConflict, "DUPLICATE_REQUEST", err.Error(), "")
	case errors.Is(err, domain.ErrRoomConflict):
		response.Error(c, http.StatusConflict, "ROOM_CONFLICT", err.Error(), "")
	case errors.Is(err, domain.ErrRoomUnavailable):
		response.Error(c, http.StatusConflict, "ROOM_UNAVAILABLE", err.Error(), "")
	case errors.Is(err, domain.ErrHotelGateway):
		response.Error(c, http.StatusBadGateway, "HOTEL_UNAVAILABLE", err.Error(), "")
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
