package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veracity-dev/ess/internal/config"
)

func TestStatusForMatchesTable(t *testing.T) {
	status, warnings, fallback := statusFor(true, true)
	assert.Equal(t, StatusSuccess, status)
	assert.Empty(t, warnings)
	assert.Empty(t, fallback)

	status, warnings, _ = statusFor(true, false)
	assert.Equal(t, StatusPartial, status)
	assert.NotEmpty(t, warnings)

	status, warnings, _ = statusFor(false, true)
	assert.Equal(t, StatusPartial, status)
	assert.NotEmpty(t, warnings)

	status, _, fallback = statusFor(false, false)
	assert.Equal(t, StatusUnavailable, status)
	assert.Equal(t, fallbackMessage, fallback)
}

func TestQueryReturnsClarificationBeforeTouchingBackends(t *testing.T) {
	e := NewEngine(nil, config.QueryConfig{}, nil, nil, nil, nil, nil)
	resp, err := e.Query(context.Background(), Request{
		Query:     "find the function that calls something",
		RequestID: "req-1",
		Mode:      ModeConversational,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Clarification)
	assert.Equal(t, StatusPartial, resp.Status)
}
