package domain

import "time"

// RoomType classifies a room's tier
type RoomType string

const (
	RoomTypeStandard     RoomType = "STANDARD"
	RoomTypeDeluxe       RoomType = "DELUXE"
	RoomTypeSuite        RoomType = "SUITE"
	RoomTypeExecutive    RoomType = "EXECUTIVE"
	RoomTypePresidential RoomType = "PRESIDENTIAL"
)

// IsValid reports whether the room type is a known tier
func (t RoomType) IsValid() bool {
	switch t {
	case RoomTypeStandard, RoomTypeDeluxe, RoomTypeSuite, RoomTypeExecutive, RoomTypePresidential:
		return true
	}
	return false
}

// Room represents a bookable room. The relation to its hotel is held by id
// only; the lock engine needs nothing beyond room identity and availability.
type Room struct {
	ID            string    `json:"id"`
	HotelID       string    `json:"hotel_id"`
	RoomNumber    string    `json:"room_number"`
	Type          RoomType  `json:"type"`
	Capacity      int       `json:"capacity"`
	PricePerNight float64   `json:"price_per_night"`
	Description   string    `json:"description,omitempty"`
	IsAvailable   bool      `json:"is_available"`
	TimesBooked   int64     `json:"times_booked"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsAvailableForBooking reports whether the room accepts new holds
func (r *Room) IsAvailableForBooking() bool {
	return r.IsAvailable
}

// Validate validates the room's required fields
func (r *Room) Validate() error {
	if r.HotelID == "" {
		return ErrInvalidHotelID
	}
	if r.RoomNumber == "" {
		return ErrInvalidRoomNumber
	}
	if !r.Type.IsValid() {
		return ErrInvalidRoomType
	}
	return nil
}

// Hotel represents a property that owns rooms
type Hotel struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	City        string    `json:"city"`
	Address     string    `json:"address"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Description string    `json:"description,omitempty"`
	StarRating  int       `json:"star_rating"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate validates the hotel's required fields
func (h *Hotel) Validate() error {
	if h.Name == "" {
		return ErrInvalidHotelName
	}
	if h.City == "" {
		return ErrInvalidCity
	}
	if h.Address == "" {
		return ErrInvalidAddress
	}
	if h.StarRating < 1 || h.StarRating > 5 {
		return ErrInvalidRating
	}
	return nil
}
