package domain

import "errors"

// Domain errors
var (
	// Lock errors
	ErrLockNotFound        = errors.New("lock not found")
	ErrLockConflict        = errors.New("room is not available for the selected dates")
	ErrLockAlreadyExists   = errors.New("lock already exists")
	ErrLockAlreadyReleased = errors.New("hold already released")
	ErrLockExpired         = errors.New("hold has expired")

	// Room errors
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomUnavailable   = errors.New("room is not available for booking")
	ErrRoomAlreadyExists = errors.New("room number already exists in this hotel")

	// Hotel errors
	ErrHotelNotFound      = errors.New("hotel not found")
	ErrHotelAlreadyExists = errors.New("hotel already exists in this city")

	// Validation errors
	ErrInvalidRequestID  = errors.New("request id is required")
	ErrInvalidRoomID     = errors.New("room id is required")
	ErrInvalidHotelID    = errors.New("hotel id is required")
	ErrInvalidRoomType   = errors.New("invalid room type")
	ErrInvalidDateRange  = errors.New("start date must be before end date")
	ErrDateInPast        = errors.New("start date cannot be in the past")
	ErrInvalidHotelName  = errors.New("hotel name is required")
	ErrInvalidCity       = errors.New("city is required")
	ErrInvalidAddress    = errors.New("address is required")
	ErrInvalidRating     = errors.New("star rating must be between 1 and 5")
	ErrInvalidRoomNumber = errors.New("room number is required")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrLockNotFound) ||
		errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrHotelNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequestID) ||
		errors.Is(err, ErrInvalidRoomID) ||
		errors.Is(err, ErrInvalidHotelID) ||
		errors.Is(err, ErrInvalidRoomType) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrDateInPast) ||
		errors.Is(err, ErrInvalidHotelName) ||
		errors.Is(err, ErrInvalidCity) ||
		errors.Is(err, ErrInvalidAddress) ||
		errors.Is(err, ErrInvalidRating) ||
		errors.Is(err, ErrInvalidRoomNumber)
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrLockConflict) ||
		errors.Is(err, ErrLockAlreadyExists) ||
		errors.Is(err, ErrLockAlreadyReleased) ||
		errors.Is(err, ErrRoomAlreadyExists) ||
		errors.Is(err, ErrHotelAlreadyExists)
}

// IsExpiredError checks if the error is an expiration error
func IsExpiredError(err error) bool {
	return errors.Is(err, ErrLockExpired)
}

// IsUnavailableError checks if the error is a room availability error
func IsUnavailableError(err error) bool {
	return errors.Is(err, ErrRoomUnavailable)
}
