package domain

import "errors"

// Domain errors
var (
	// Reservation errors
	ErrReservationNotFound = errors.New("reservation not found")
	ErrDuplicateRequest    = errors.New("a reservation with this request id already exists")
	ErrReservationTerminal = errors.New("reservation already reached a terminal status")

	// Saga errors
	ErrSagaNotFound = errors.New("saga instance not found")

	// Gateway errors surfaced to the saga
	ErrRoomConflict    = errors.New("room is not available for the selected dates")
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomUnavailable = errors.New("room is not available for booking")
	ErrHotelGateway    = errors.New("hotel service request failed")

	// Validation errors
	ErrInvalidUserID    = errors.New("user id is required")
	ErrInvalidRoomID    = errors.New("room id is required")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrDateInPast       = errors.New("start date cannot be in the past")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrReservationNotFound) ||
		errors.Is(err, ErrSagaNotFound) ||
		errors.Is(err, ErrRoomNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidRoomID) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrDateInPast)
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrDuplicateRequest) ||
		errors.Is(err, ErrRoomConflict)
}
