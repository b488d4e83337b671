package flowerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := New(TypeMismatch, errors.New("boom")).WithRoute("/top/add/i1")
	assert.Contains(t, err.Error(), "TypeMismatch")
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "/top/add/i1")
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(Parse, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestErrorIsByKind(t *testing.T) {
	a := New(NotFound, errors.New("a"))
	b := New(NotFound, errors.New("b"))
	c := New(Validation, errors.New("c"))

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}
