package dto

import (
	"time"

	"github.com/Plvkssh/SmartLodge/internal/hotel/domain"
)

// CreateRoomRequest represents request to register a room
type CreateRoomRequest struct {
	HotelID       string  `json:"hotel_id" binding:"required"`
	RoomNumber    string  `json:"room_number" binding:"required"`
	Type          string  `json:"type,omitempty"`
	Capacity      int     `json:"capacity,omitempty"`
	PricePerNight float64 `json:"price_per_night,omitempty"`
	Description   string  `json:"description,omitempty"`
}

// CreateHotelRequest represents request to register a hotel
type CreateHotelRequest struct {
	Name        string `json:"name" binding:"required"`
	City        string `json:"city" binding:"required"`
	Address     string `json:"address" binding:"required"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Description string `json:"description,omitempty"`
	StarRating  int    `json:"star_rating,omitempty"`
}

// AvailableRoomsQuery represents query parameters for the availability search
type AvailableRoomsQuery struct {
	StartDate string `form:"start_date" binding:"required"`
	EndDate   string `form:"end_date" binding:"required"`
	City      string `form:"city"`
	Limit     int    `form:"limit"`
}

// ListQuery represents generic pagination parameters
type ListQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// SetDefaults applies pagination defaults
func (q *ListQuery) SetDefaults() {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// RoomResponse represents a room in API responses
type RoomResponse struct {
	ID            string  `json:"id"`
	HotelID       string  `json:"hotel_id"`
	RoomNumber    string  `json:"room_number"`
	Type          string  `json:"type"`
	Capacity      int     `json:"capacity"`
	PricePerNight float64 `json:"price_per_night"`
	Description   string  `json:"description,omitempty"`
	IsAvailable   bool    `json:"is_available"`
	TimesBooked   int64   `json:"times_booked"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// HotelResponse represents a hotel in API responses
type HotelResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	City        string `json:"city"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Description string `json:"description,omitempty"`
	StarRating  int    `json:"star_rating"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// OccupancyStatsResponse represents the room occupancy summary
type OccupancyStatsResponse struct {
	TotalRooms     int64   `json:"total_rooms"`
	AvailableRooms int64   `json:"available_rooms"`
	OccupiedRooms  int64   `json:"occupied_rooms"`
	OccupancyRate  float64 `json:"occupancy_rate"`
}

// PopularRoomsResponse represents the most-booked rooms ranking
type PopularRoomsResponse struct {
	Rooms []*RoomResponse `json:"rooms"`
	Limit int             `json:"limit"`
}

// RoomFromDomain converts a domain Room to RoomResponse
func RoomFromDomain(r *domain.Room) *RoomResponse {
	return &RoomResponse{
		ID:            r.ID,
		HotelID:       r.HotelID,
		RoomNumber:    r.RoomNumber,
		Type:          string(r.Type),
		Capacity:      r.Capacity,
		PricePerNight: r.PricePerNight,
		Description:   r.Description,
		IsAvailable:   r.IsAvailable,
		TimesBooked:   r.TimesBooked,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     r.UpdatedAt.Format(time.RFC3339),
	}
}

// RoomsFromDomain converts a slice of domain Rooms
func RoomsFromDomain(rooms []*domain.Room) []*RoomResponse {
	out := make([]*RoomResponse, len(rooms))
	for i, r := range rooms {
		out[i] = RoomFromDomain(r)
	}
	return out
}

// HotelFromDomain converts a domain Hotel to HotelResponse
func HotelFromDomain(h *domain.Hotel) *HotelResponse {
	return &HotelResponse{
		ID:          h.ID,
		Name:        h.Name,
		City:        h.City,
		Address:     h.Address,
		PhoneNumber: h.PhoneNumber,
		Description: h.Description,
		StarRating:  h.StarRating,
		IsActive:    h.IsActive,
		CreatedAt:   h.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   h.UpdatedAt.Format(time.RFC3339),
	}
}

// HotelsFromDomain converts a slice of domain Hotels
func HotelsFromDomain(hotels []*domain.Hotel) []*HotelResponse {
	out := make([]*HotelResponse, len(hotels))
	for i, h := range hotels {
		out[i] = HotelFromDomain(h)
	}
	return out
}
