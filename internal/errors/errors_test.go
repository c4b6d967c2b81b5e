package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vytor/studydeck/internal/errors"
)

func TestAppError_IsMatchesByCode(t *testing.T) {
	err := errors.NewSessionClosedError("abc")

	assert.True(t, stderrors.Is(err, errors.ErrSessionClosed))
	assert.False(t, stderrors.Is(err, errors.ErrCardNotScheduled))

	wrapped := fmt.Errorf("record review: %w", err)
	assert.True(t, stderrors.Is(wrapped, errors.ErrSessionClosed))
}

func TestAppError_Error(t *testing.T) {
	err := errors.NewCardNotScheduledError("c1", "is not scheduled in this session")
	assert.Equal(t, "CARD_NOT_SCHEDULED: card c1 is not scheduled in this session", err.Error())

	internal := errors.NewInternalError(stderrors.New("disk full"))
	assert.Contains(t, internal.Error(), "disk full")
	assert.ErrorIs(t, internal, errors.ErrInternal)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid configuration", errors.NewInvalidConfigurationError("empty pool"), 400},
		{"card not scheduled", errors.NewCardNotScheduledError("c", "x"), 409},
		{"session closed", errors.NewSessionClosedError("s"), 409},
		{"conflict", errors.NewConflictError("in use"), 409},
		{"invariant violation", errors.NewInvariantViolationError("bad"), 500},
		{"not found", errors.NewNotFoundError("deck", 1), 404},
		{"wrapped", fmt.Errorf("ctx: %w", errors.NewBadRequestError("nope")), 400},
		{"plain error", stderrors.New("boom"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, errors.StatusOf(tt.err))
		})
	}
}
