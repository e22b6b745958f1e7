package validate

import (
	"errors"
	"testing"

	"go-pos-books/internal/apperr"

	"github.com/stretchr/testify/assert"
)

type line struct {
	Qty int `json:"quantity" binding:"gte=1"`
}

type form struct {
	Name  string `json:"name" binding:"required,max=5"`
	Kind  string `json:"kind" binding:"omitempty,oneof=a b"`
	Day   string `json:"day" binding:"omitempty,datetime=2006-01-02"`
	Items []line `json:"items" binding:"required,min=1,dive"`
}

func TestErrorMessages(t *testing.T) {
	v := New()
	ok := []line{{Qty: 1}}

	cases := []struct {
		in   form
		want string
	}{
		{form{Items: ok}, "name is required"},
		{form{Name: "toolong", Items: ok}, "name must be at most 5"},
		{form{Name: "x", Kind: "c", Items: ok}, "kind must be one of: a b"},
		{form{Name: "x", Day: "05/01", Items: ok}, "day must be a YYYY-MM-DD date"},
		{form{Name: "x", Items: []line{}}, "At least one item is required"},
		{form{Name: "x", Items: []line{{Qty: 0}}}, "quantity must be at least 1"},
	}
	for _, tc := range cases {
		err := Error(v.Struct(tc.in))
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		assert.Equal(t, tc.want, err.Error())
	}

	assert.NoError(t, v.Struct(form{Name: "x", Items: ok}))
	assert.Equal(t, "Invalid request: boom", Error(errors.New("boom")).Error())
}
