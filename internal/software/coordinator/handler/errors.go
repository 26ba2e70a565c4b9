package handler

import (
	"context"
	"errors"
	"net/http"

	"ride-coord/internal/domain/chat"
	"ride-coord/internal/domain/driver"
	"ride-coord/internal/domain/geo"
	"ride-coord/internal/domain/ride"
	"ride-coord/internal/ports"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ride.ErrNotFound), errors.Is(err, driver.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, ride.ErrAlreadyTaken), errors.Is(err, ride.ErrInvalidTransition),
		errors.Is(err, driver.ErrAlreadyRegistered):
		return http.StatusConflict

	case errors.Is(err, driver.ErrSessionSuperseded), errors.Is(err, driver.ErrNoActiveSession):
		return http.StatusUnauthorized

	case errors.Is(err, ride.ErrInvalidCode), errors.Is(err, ride.ErrNotAssignedDriver),
		errors.Is(err, ride.ErrNotParticipant), errors.Is(err, driver.ErrNotVerified):
		return http.StatusForbidden

	case errors.Is(err, ports.ErrUnavailable):
		return http.StatusServiceUnavailable

	case errors.Is(err, ride.ErrPassengerRequired), errors.Is(err, ride.ErrDriverRequired),
		errors.Is(err, ride.ErrNegativePrice), errors.Is(err, ride.ErrInvalidServiceType),
		errors.Is(err, geo.ErrInvalidLatitude), errors.Is(err, geo.ErrInvalidLongitude),
		errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, driver.ErrDriverIDRequired),
		errors.Is(err, driver.ErrNameRequired):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// serviceError writes the mapped status with the domain error message.
func (handler *CoordinatorHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	handler.httpError(ctx, w, statusFor(err), err.Error(), err)
}
