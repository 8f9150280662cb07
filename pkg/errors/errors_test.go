package errors

import (
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorMessage(t *testing.T) {
	err := NewProcessError("failed to start process", nil)
	assert.Equal(t, "failed to start process", err.Error())
}

func TestDomainErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("permission denied")
	err := NewIOError("failed to open file", cause)

	assert.Equal(t, "failed to open file: permission denied", err.Error())
	assert.Equal(t, cause, goerrors.Unwrap(err))
}

func TestDomainErrorWithContext(t *testing.T) {
	err := NewValidationError("bad input", nil).
		WithContext("worker_id", 3).
		WithContext("command", "sleep 1")

	message := err.Error()
	assert.Contains(t, message, "bad input")
	assert.Contains(t, message, "worker_id=3")
	assert.Contains(t, message, "command=sleep 1")
}

func TestIsType(t *testing.T) {
	err := NewTimeoutError("process did not terminate", nil)

	assert.True(t, IsType(err, ErrorTypeTimeout))
	assert.False(t, IsType(err, ErrorTypeProcess))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeTimeout))
}

func TestErrorsIsThroughWrapping(t *testing.T) {
	cause := goerrors.New("root cause")
	err := NewInternalError("wrapper", cause)

	require.True(t, goerrors.Is(err, cause))
}
