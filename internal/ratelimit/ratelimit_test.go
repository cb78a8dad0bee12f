package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowDisabledWhenRateIsZero(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("demo"))
	}
}

func TestAllowEnforcesBurstPerProject(t *testing.T) {
	l := New(1, 2)
	require.True(t, l.Allow("a"))
	require.True(t, l.Allow("a"))
	require.False(t, l.Allow("a"))

	// A different project gets its own bucket.
	require.True(t, l.Allow("b"))
}
