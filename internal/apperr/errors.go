package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrAuthentication         = errors.New("authentication failed")
	ErrNotFoundOrUnauthorized = errors.New("conversation not found or unauthorized")
	ErrValidation             = errors.New("validation failed")
	ErrForbidden              = errors.New("forbidden")
	ErrNotFound               = errors.New("not found")
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrTransport              = errors.New("transport error")
	ErrRateLimited            = errors.New("rate limit exceeded")
)

// Status maps an error chain to the HTTP status returned to REST callers.
func Status(err error) int {
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.Is(err, ErrAuthentication):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrNotFoundOrUnauthorized), errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.Is(err, ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// Public returns the message safe to show a client. Store and unknown
// failures collapse to a generic text.
func Public(err error) string {
	switch {
	case errors.Is(err, ErrStoreUnavailable):
		return "failed to send message"
	case errors.Is(err, ErrAuthentication),
		errors.Is(err, ErrNotFoundOrUnauthorized),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrRateLimited):
		return err.Error()
	default:
		return "internal error"
	}
}
