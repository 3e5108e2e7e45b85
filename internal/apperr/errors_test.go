package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchThroughWrapping(t *testing.T) {
	err := fmt.Errorf("register: %w", Conflict("phone or email already exists"))

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "phone or email already exists", Message(err, "internal error"))
}

func TestMessageFallsBackForForeignErrors(t *testing.T) {
	assert.Equal(t, "internal error", Message(errors.New("boom"), "internal error"))
}
