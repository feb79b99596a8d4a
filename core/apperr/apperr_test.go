package apperr_test

import (
	"fmt"
	"testing"

	"github.com/skatamatic/blulok-cloud-sub001/core/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"Validation", apperr.NewValidation("syncLogId"), fiber.StatusBadRequest},
		{"NotFound", apperr.NewNotFound("sync log", "abc"), fiber.StatusNotFound},
		{"Authorization", apperr.NewAuthorization("role denied"), fiber.StatusForbidden},
		{"Conflict", apperr.NewConflict("sync already running"), fiber.StatusConflict},
		{"Provider", apperr.NewProvider("rest", "fetch tenants", fmt.Errorf("timeout")), fiber.StatusBadGateway},
		{"Unknown", fmt.Errorf("boom"), fiber.StatusInternalServerError},
		{"WrappedNotFound", fmt.Errorf("lookup: %w", apperr.NewNotFound("change", "c1")), fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.StatusCode(tt.err))
		})
	}
}

func TestValidationError_NamesField(t *testing.T) {
	err := apperr.NewValidation("syncLogId")
	assert.Contains(t, err.Error(), "syncLogId")
}

func TestPredicates(t *testing.T) {
	assert.True(t, apperr.IsNotFound(fmt.Errorf("x: %w", apperr.NewNotFound("unit", "u1"))))
	assert.True(t, apperr.IsConflict(apperr.NewConflict("dup")))
	assert.True(t, apperr.IsValidation(apperr.NewValidation("changeIds")))
	assert.False(t, apperr.IsNotFound(fmt.Errorf("plain")))
}
