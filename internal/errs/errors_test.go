package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfUnwrapsChains(t *testing.T) {
	inner := New(KindTransient, "rest.get", "HTTP 503")
	outer := Wrapf(KindRetriesExhausted, "rest.get", inner, "3 attempts exhausted")

	assert.Equal(t, KindRetriesExhausted, KindOf(outer))
	assert.True(t, IsRetriesExhausted(outer))

	// The transient cause stays reachable through errors.As on the unwrapped
	// chain.
	var e *Error
	require.True(t, errors.As(outer, &e))
	require.True(t, errors.As(e.Unwrap(), &e))
	assert.Equal(t, KindTransient, e.Kind)
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(fmt.Errorf("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestErrorMessageIncludesOpAndKind(t *testing.T) {
	err := Newf(KindValidation, "pipeline.window", "start %s after end %s", "2026-03-01", "2026-01-01")

	msg := err.Error()
	assert.Contains(t, msg, "pipeline.window")
	assert.Contains(t, msg, "2026-03-01")
}

func TestRetryable(t *testing.T) {
	assert.True(t, KindTransient.Retryable())
	assert.False(t, KindClient.Retryable())
	assert.False(t, KindConfig.Retryable())
	assert.False(t, KindValidation.Retryable())
	assert.False(t, KindRetriesExhausted.Retryable())
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsTransient(New(KindTransient, "op", "m")))
	assert.True(t, IsConfig(New(KindConfig, "op", "m")))
	assert.True(t, IsValidation(New(KindValidation, "op", "m")))
	assert.True(t, IsStorage(New(KindStorage, "op", "m")))
	assert.False(t, IsTransient(New(KindClient, "op", "m")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(KindStorage, "postgres.ping", cause)

	assert.True(t, errors.Is(err, cause))
}
