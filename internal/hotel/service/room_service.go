package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Plvkssh/SmartLodge/internal/hotel/domain"
	"github.com/Plvkssh/SmartLodge/internal/hotel/dto"
	"github.com/Plvkssh/SmartLodge/internal/hotel/repository"
	"github.com/Plvkssh/SmartLodge/pkg/telemetry"
)

// RoomService defines the interface for room and hotel inventory logic
type RoomService interface {
	// CreateHotel registers a new hotel
	CreateHotel(ctx context.Context, req *dto.CreateHotelRequest) (*dto.HotelResponse, error)

	// GetHotel retrieves a hotel by ID
	GetHotel(ctx context.Context, hotelID string) (*dto.HotelResponse, error)

	// ListHotels retrieves hotels with pagination
	ListHotels(ctx context.Context, q *dto.ListQuery) ([]*dto.HotelResponse, int64, error)

	// CreateRoom registers a new room under an existing hotel
	CreateRoom(ctx context.Context, req *dto.CreateRoomRequest) (*dto.RoomResponse, error)

	// GetRoom retrieves a room by ID
	GetRoom(ctx context.Context, roomID string) (*dto.RoomResponse, error)

	// ListRooms retrieves rooms with pagination
	ListRooms(ctx context.Context, q *dto.ListQuery) ([]*dto.RoomResponse, int64, error)

	// AvailableRooms retrieves rooms free for the whole date range,
	// least-booked first
	AvailableRooms(ctx context.Context, q *dto.AvailableRoomsQuery) ([]*dto.RoomResponse, error)

	// PopularRooms retrieves the most-booked rooms
	PopularRooms(ctx context.Context, limit int) (*dto.PopularRoomsResponse, error)

	// OccupancyStats retrieves room availability counts
	OccupancyStats(ctx context.Context) (*dto.OccupancyStatsResponse, error)
}

// roomService implements RoomService
type roomService struct {
	roomRepo  repository.RoomRepository
	hotelRepo repository.HotelRepository
	now       func() time.Time
}

// NewRoomService creates a new room service
func NewRoomService(
	roomRepo repository.RoomRepository,
	hotelRepo repository.HotelRepository,
) RoomService {
	return &roomService{
		roomRepo:  roomRepo,
		hotelRepo: hotelRepo,
		now:       time.Now,
	}
}

// CreateHotel registers a new hotel
func (s *roomService) CreateHotel(ctx context.Context, req *dto.CreateHotelRequest) (*dto.HotelResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.room.create_hotel")
	defer span.End()

	if req == nil {
		span.SetStatus(codes.Error, "invalid hotel name")
		return nil, domain.ErrInvalidHotelName
	}

	now := s.now().UTC()
	hotel := &domain.Hotel{
		ID:          uuid.New().String(),
		Name:        req.Name,
		City:        req.City,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		Description: req.Description,
		StarRating:  req.StarRating,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if hotel.StarRating == 0 {
		hotel.StarRating = 3
	}

	if err := hotel.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("hotel_id", hotel.ID),
		attribute.String("city", hotel.City),
	)

	if err := s.hotelRepo.Create(ctx, hotel); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return dto.HotelFromDomain(hotel), nil
}

// GetHotel retrieves a hotel by ID
func (s *roomService) GetHotel(ctx context.Context, hotelID string) (*dto.HotelResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.room.get_hotel")
	defer span.End()

	if hotelID == "" {
		span.SetStatus(codes.Error, "invalid hotel_id")
		return nil, domain.ErrInvalidHotelID
	}

	span.SetAttributes(attribute.String("hotel_id", hotelID))

	hotel, err := s.hotelRepo.GetByID(ctx, hotelID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return dto.HotelFromDomain(hotel), nil
}

// ListHotels retrieves hotels with pagination
func (s *roomService) ListHotels(ctx context.Context, q *dto.ListQuery) ([]*dto.HotelResponse, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.room.list_hotels")
	defer span.End()

	if q == nil {
		q = &dto.ListQuery{}
	}
	q.SetDefaults()

	span.SetAttributes(
		attribute.Int("limit", q.Limit),
		attribute.Int("offset", q.Offset),
	)

	hotels, total, err := s.hotelRepo.List(ctx, q.Limit, q.Offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	span.SetAttributes(attribute.Int("count", len(hotels)))
	span.SetStatus(codes.Ok, "")
	return dto.HotelsFromDomain(hotels), total, nil
}

// CreateRoom registers a new room under an existing hotel
func (s *roomService) CreateRoom(ctx context.Context, req *dto.CreateRoomRequest) (*dto.RoomResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.room.create_room")
	defer span.End()

	if req == nil {
		span.SetStatus(codes.Error, "invalid hotel_id")
		return nil, domain.ErrInvalidHotelID
	}

	span.SetAttributes(
		attribute.String("hotel_id", req.HotelID),
		attribute.String("room_number", req.RoomNumber),
	)

	// The hotel must exist before rooms can hang off it
	if _, err := s.hotelRepo.GetByID(ctx, req.HotelID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	roomType := domain.RoomType(req.Type)
	if req.Type == "" {
		roomType = domain.RoomTypeStandard
	}

	now := s.now().UTC()
	room := &domain.Room{
		ID:            uuid.New().String(),
		HotelID:       req.HotelID,
		RoomNumber:    req.RoomNumber,
		Type:          roomType,
		Capacity:      req.Capacity,
		PricePerNight: req.PricePerNight,
		Description:   req.Description,
		IsAvailable:   true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if room.Capacity == 0 {
		room.Capacity = 1
	}

	if err := room.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("room_id", room.ID))
	span.SetStatus(codes.Ok, "")
	return dto.RoomFromDomain(room), nil
}

// GetRoom retrieves a room by ID
func (s *roomService) GetRoom(ctx context.Context, roomID string) (*dto.RoomResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.room.get_room")
	defer span.End()

	if roomID == "" {
		span.SetStatus(codes.Error, "invalid room_id")
		return nil, domain.ErrInvalidRoomID
	}

	span.SetAttributes(attribute.String("room_id", roomID))

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return dto.RoomFromDomain(room), nil
}

// ListRooms retrieves rooms with pagination
func (s *roomService) ListRooms(ctx context.Context, q *dto.ListQuery) ([]*dto.RoomResponse, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.room.list_rooms")
	defer span.End()

	if q == nil {
		q = &dto.ListQuery{}
	}
	q.SetDefaults()

	span.SetAttributes(
		attribute.Int("limit", q.Limit),
		attribute.Int("offset", q.Offset),
	)

	rooms, total, err := s.roomRepo.List(ctx, q.Limit, q.Offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	span.SetAttributes(attribute.Int("count", len(rooms)))
	span.SetStatus(codes.Ok, "")
	return dto.RoomsFromDomain(rooms), total, nil
}

// AvailableRooms retrieves rooms free for the whole date range, least-booked first
func (s *roomService) AvailableRooms(ctx context.Context, q *dto.AvailableRoomsQuery) ([]*dto.RoomResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.room.available")
	defer span.End()

	if q == nil {
		span.SetStatus(codes.Error, "invalid date range")
		return nil, domain.ErrInvalidDateRange
	}

	startDate, err := dto.ParseDate(q.StartDate)
	if err != nil {
		span.SetStatus(codes.Error, "invalid start_date")
		return nil, domain.ErrInvalidDateRange
	}
	endDate, err := dto.ParseDate(q.EndDate)
	if err != nil {
		span.SetStatus(codes.Error, "invalid end_date")
		return nil, domain.ErrInvalidDateRange
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	if err := domain.ValidateStay(startDate, endDate, today); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	limit := q.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	span.SetAttributes(
		attribute.String("start_date", q.StartDate),
		attribute.String("end_date", q.EndDate),
		attribute.String("city", q.City),
		attribute.Int("limit", limit),
	)

	rooms, err := s.roomRepo.GetAvailable(ctx, startDate, endDate, q.City, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(rooms)))
	span.SetStatus(codes.Ok, "")
	return dto.RoomsFromDomain(rooms), nil
}

// PopularRooms retrieves the most-booked rooms
func (s *roomService) PopularRooms(ctx context.Context, limit int) (*dto.PopularRoomsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.room.popular")
	defer span.End()

	if limit < 1 || limit > 50 {
		limit = 10
	}

	span.SetAttributes(attribute.Int("limit", limit))

	rooms, err := s.roomRepo.GetPopular(ctx, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(rooms)))
	span.SetStatus(codes.Ok, "")
	return &dto.PopularRoomsResponse{
		Rooms: dto.RoomsFromDomain(rooms),
		Limit: limit,
	}, nil
}

// OccupancyStats retrieves room availability counts
func (s *roomService) OccupancyStats(ctx context.Context) (*dto.OccupancyStatsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.room.occupancy")
	defer span.End()

	total, available, err := s.roomRepo.CountRooms(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	occupied := total - available
	rate := 0.0
	if total > 0 {
		rate = float64(occupied) / float64(total)
	}

	span.SetAttributes(
		attribute.Int64("total", total),
		attribute.Int64("available", available),
	)
	span.SetStatus(codes.Ok, "")
	return &dto.OccupancyStatsResponse{
		TotalRooms:     total,
		AvailableRooms: available,
		OccupiedRooms:  occupied,
		OccupancyRate:  rate,
	}, nil
}
