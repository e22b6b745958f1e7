package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("items are required"), http.StatusBadRequest},
		{InsufficientStock("Insufficient stock for %s", "Rice"), http.StatusBadRequest},
		{InsufficientIngredient("Insufficient Flour"), http.StatusBadRequest},
		{NotFound("Product 9 not found"), http.StatusNotFound},
		{Forbidden("Forbidden"), http.StatusForbidden},
		{Conflict("duplicate"), http.StatusConflict},
		{Internal("Failed to save", errors.New("disk full")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		var e *Error
		assert.True(t, errors.As(tc.err, &e))
		assert.Equal(t, tc.want, e.Status(), tc.err.Error())
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("checkout: %w", InsufficientStock("Insufficient stock for %s", "Rice"))

	assert.True(t, Is(err, KindInsufficientStock))
	assert.Equal(t, KindInsufficientStock, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("sql: connection reset")
	err := Internal("Failed to record sale", cause)

	assert.Equal(t, "Failed to record sale", err.Error())
	assert.ErrorIs(t, err, cause)
}
