package optimizererrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindSimulatorFailure, "call failed", cause)
	require.Equal(t, "simulator_failure: call failed: boom", err.Error())
	require.Equal(t, cause, err.Unwrap())
}

func TestErrorMessageWithoutCause(t *testing.T) {
	err := New(KindInvalidConfig, "bad key")
	require.Equal(t, "invalid_config: bad key", err.Error())
	require.Nil(t, err.Unwrap())
}

func TestIsMatchesWrappedKind(t *testing.T) {
	err := fmt.Errorf("context: %w", NoCandidateStations)
	require.True(t, Is(err, KindNoCandidateStations))
	require.False(t, Is(err, KindExhaustedSearch))
}

func TestIsFalseForPlainError(t *testing.T) {
	require.False(t, Is(errors.New("plain"), KindInvalidConfig))
}

func TestKindStringUnknown(t *testing.T) {
	require.Equal(t, "unknown", Kind(999).String())
}
