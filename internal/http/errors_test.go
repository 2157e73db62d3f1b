package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"nozze/internal/core"
	"nozze/internal/services"
)

func TestErrorResponseMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", fmt.Errorf("guest 3: %w", core.ErrNotFound), http.StatusNotFound},
		{"table full", fmt.Errorf("Sposi: %w", core.ErrTableFull), http.StatusUnprocessableEntity},
		{"capacity", core.ErrInvalidCapacity, http.StatusUnprocessableEntity},
		{"strategy", fmt.Errorf("%w: %q", services.ErrUnknownStrategy, "alfabetico"), http.StatusUnprocessableEntity},
		{"storage", errors.New("database is locked"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorResponse(tt.err).statusCode; got != tt.code {
				t.Errorf("status = %d, want %d", got, tt.code)
			}
		})
	}
}
