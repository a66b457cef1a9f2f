package core_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/TalariManohar018/papertrade/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	err := &core.Error{Code: "RISK_LOCKED", Message: "risk guard is locked"}
	assert.Equal(t, "[RISK_LOCKED] risk guard is locked", err.Error())

	wrapped := core.WrapError(err, fmt.Errorf("daily loss 600.00 over cap 500.00"))
	assert.Contains(t, wrapped.Error(), "RISK_LOCKED")
	assert.Contains(t, wrapped.Error(), "daily loss 600.00")
}

func TestError_Is(t *testing.T) {
	wrapped := core.WrapError(core.ErrPersistenceFailed, errors.New("disk full"))

	assert.True(t, errors.Is(wrapped, core.ErrPersistenceFailed))
	assert.False(t, errors.Is(wrapped, core.ErrRiskLocked))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := core.WrapError(core.ErrPersistenceFailed, cause)

	assert.Equal(t, cause, errors.Unwrap(wrapped))
}
