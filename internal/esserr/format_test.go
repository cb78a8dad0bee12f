package esserr

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRedactStripsSecretShapedValues(t *testing.T) {
	in := "dial failed: VERACITY_GRAPH_PASSWORD=hunter2hunter env is set, also Authorization: Bearer sk-abc123def"
	out := Redact(in)
	assert.NotContains(t, out, "hunter2hunter")
	assert.NotContains(t, out, "sk-abc123def")
	assert.Contains(t, out, "[REDACTED]")
}

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{Validation("bad slug", nil), 5},
		{Backend("graph", "down", nil), 4},
		{TimeoutErr("vector", "slow", nil), 4},
		{Config("missing secret", nil), 2},
		{Internal("boom", nil), 1},
		{errors.New("plain"), 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExitCode(tc.err))
	}
}

func TestCircuitBreakerTripsAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", WithFailureThreshold(3), WithResetTimeout(0))
	for i := 0; i < 2; i++ {
		cb.RecordFailure()
		allowed, _ := cb.Allow()
		assert.True(t, allowed)
	}
	cb.RecordFailure()
	allowed, openErr := cb.Allow()
	assert.False(t, allowed)
	assert.NotNil(t, openErr)
	assert.Equal(t, "test", openErr.Service)
}

func TestCircuitBreakerHalfOpenSingleFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("svc", WithFailureThreshold(1), WithResetTimeout(20*time.Millisecond), WithSuccessThreshold(2))
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	// Once the reset timeout has elapsed the next check observes half-open.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
}
