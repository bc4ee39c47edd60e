package handler

import (
	"strconv"

	"github.com/Plvkssh/SmartLodge/internal/hotel/domain"
	"github.com/Plvkssh/SmartLodge/internal/hotel/dto"
	"github.com/Plvkssh/SmartLodge/internal/hotel/service"
	"github.com/Plvkssh/SmartLodge/pkg/response"
	"github.com/gin-gonic/gin"
)

// RoomHandler handles room and hotel inventory HTTP requests
type RoomHandler struct {
	roomService service.RoomService
}

// NewRoomHandler creates a new RoomHandler
func NewRoomHandler(roomService service.RoomService) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
	}
}

// CreateHotel handles POST /hotels
func (h *RoomHandler) CreateHotel(c *gin.Context) {
	var req dto.CreateHotelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	hotel, err := h.roomService.CreateHotel(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Created(c, hotel)
}

// GetHotel handles GET /hotels/:id
func (h *RoomHandler) GetHotel(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, "hotel id is required")
		return
	}

	hotel, err := h.roomService.GetHotel(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, hotel)
}

// ListHotels handles GET /hotels
func (h *RoomHandler) ListHotels(c *gin.Context) {
	var q dto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}
	q.SetDefaults()

	hotels, total, err := h.roomService.ListHotels(c.Request.Context(), &q)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Paginated(c, hotels, q.Limit, q.Offset, total)
}

// CreateRoom handles POST /rooms
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Created(c, room)
}

// GetRoom handles GET /rooms/:room_id
func (h *RoomHandler) GetRoom(c *gin.Context) {
	id := c.Param("room_id")
	if id == "" {
		response.BadRequest(c, "room id is required")
		return
	}

	room, err := h.roomService.GetRoom(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, room)
}

// ListRooms handles GET /rooms
func (h *RoomHandler) ListRooms(c *gin.Context) {
	var q dto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}
	q.SetDefaults()

	rooms, total, err := h.roomService.ListRooms(c.Request.Context(), &q)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Paginated(c, rooms, q.Limit, q.Offset, total)
}

// AvailableRooms handles GET /rooms/available
// Returns rooms free for the whole requested date range, least-booked
// first so load spreads across the inventory.
func (h *RoomHandler) AvailableRooms(c *gin.Context) {
	var q dto.AvailableRoomsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "start_date and end_date query parameters are required")
		return
	}

	rooms, err := h.roomService.AvailableRooms(c.Request.Context(), &q)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, rooms)
}

// PopularRooms handles GET /stats/rooms/popular
func (h *RoomHandler) PopularRooms(c *gin.Context) {
	limit := 10
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	result, err := h.roomService.PopularRooms(c.Request.Context(), limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, result)
}

// OccupancyStats handles GET /stats/occupancy
func (h *RoomHandler) OccupancyStats(c *gin.Context) {
	result, err := h.roomService.OccupancyStats(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, result)
}

// handleError converts domain errors to HTTP responses
func (h *RoomHandler) handleError(c *gin.Context, err error) {
	switch {
	case domain.IsValidationError(err):
		response.BadRequest(c, err.Error())
	case domain.IsNotFoundError(err):
		response.NotFound(c, err.Error())
	case domain.IsConflictError(err):
		response.Conflict(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
