package fsm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Messages(t *testing.T) {
	assert.Equal(t, "state error [x]: state 'x' not found", NewStateNotFoundError("x").Error())
	assert.Equal(t,
		"transition error [a-> on go]: no transition found from state 'a' for event 'go'",
		NewNoTransitionError("a", "go").Error())
	assert.Equal(t, "configuration error in Machine: bad", NewConfigurationError("Machine", "bad").Error())
	assert.Equal(t, "machine error during Stop: state machine is not started", NewMachineNotStartedError("Stop").Error())
	assert.Equal(t, "action 'entry' failed in state 's'", NewActionError("entry", "s", nil).Error())
}

func TestErrors_ActionErrorUnwraps(t *testing.T) {
	cause := errors.New("relay fault")
	err := fmt.Errorf("wrapped: %w", NewActionError("exit", "s", cause))

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsActionError(err))
	assert.Equal(t, ErrCodeActionFailed, GetErrorCode(err))
}

func TestErrors_Codes(t *testing.T) {
	tests := []struct {
		err  error
		code ErrorCode
	}{
		{NewStateNotFoundError("x"), ErrCodeStateNotFound},
		{NewInvalidStateError("x", "bad"), ErrCodeInvalidState},
		{NewNoTransitionError("a", "go"), ErrCodeTransitionNotAllowed},
		{NewTransitionError(ErrCodeGuardRejected, "a", "b", "go", "no"), ErrCodeGuardRejected},
		{NewMachineNotStartedError("op"), ErrCodeMachineNotStarted},
		{NewConfigurationError("c", "i"), ErrCodeInvalidConfiguration},
		{errors.New("plain"), ErrCodeNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, GetErrorCode(tt.err), tt.err.Error())
	}
}

func TestErrors_Predicates(t *testing.T) {
	joined := errors.Join(errors.New("other"), NewConfigurationError("c", "i"))

	assert.True(t, IsConfigurationError(joined))
	assert.False(t, IsStateError(joined))
	assert.False(t, IsTransitionError(joined))
	assert.False(t, IsMachineError(joined))
}

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "guard_rejected", ErrCodeGuardRejected.String())
	assert.Equal(t, "none", GetErrorCode(nil).String())
	assert.Equal(t, "error_code(42)", ErrorCode(42).String())
}
