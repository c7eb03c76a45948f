package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	err := NewDomainError(CodeNotFound, "cost lot not found")
	wrapped := fmt.Errorf("load lots: %w", err)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrConcurrencyConflict))
	assert.False(t, errors.Is(errors.New("NOT_FOUND"), ErrNotFound))
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"domain error", ErrInvalidQuantity, CodeInvalidQuantity},
		{"wrapped", fmt.Errorf("x: %w", ErrStoreNotFound), CodeStoreNotFound},
		{"plain error", errors.New("boom"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}
