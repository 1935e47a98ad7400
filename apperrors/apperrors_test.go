package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("cart is empty"), http.StatusBadRequest},
		{"unauthorized", New(ErrUnauthorized, "bad signature"), http.StatusUnauthorized},
		{"forbidden", New(ErrForbidden, "not yours"), http.StatusForbidden},
		{"not found", NotFound("no order"), http.StatusNotFound},
		{"upstream", Upstream("provider down", errors.New("timeout")), http.StatusBadGateway},
		{"wrapped", fmt.Errorf("checkout: %w", Validation("bad")), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestError_UnwrapAndMessage(t *testing.T) {
	cause := errors.New("connection reset")
	err := Upstream("payment provider unavailable", cause)

	assert.ErrorIs(t, err, ErrUpstreamProvider)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "payment provider unavailable", PublicMessage(err))
	assert.Equal(t, "Internal server error", PublicMessage(cause))
}
