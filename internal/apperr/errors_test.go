package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, fiber.StatusOK},
		{"auth", fmt.Errorf("token expired: %w", ErrAuthentication), fiber.StatusUnauthorized},
		{"not member", ErrNotFoundOrUnauthorized, fiber.StatusNotFound},
		{"validation", fmt.Errorf("content too long: %w", ErrValidation), fiber.StatusBadRequest},
		{"forbidden", ErrForbidden, fiber.StatusForbidden},
		{"store", fmt.Errorf("create message: %w", ErrStoreUnavailable), fiber.StatusServiceUnavailable},
		{"rate limited", ErrRateLimited, fiber.StatusTooManyRequests},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestPublicHidesStoreDetails(t *testing.T) {
	err := fmt.Errorf("mongo: connection refused: %w", ErrStoreUnavailable)
	assert.Equal(t, "failed to send message", Public(err))
	assert.Equal(t, "internal error", Public(errors.New("driver panic")))

	v := fmt.Errorf("content is required: %w", ErrValidation)
	assert.Equal(t, v.Error(), Public(v))
}
