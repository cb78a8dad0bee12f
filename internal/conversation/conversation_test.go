package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/config"
	"github.com/veracity-dev/ess/internal/query"
)

type fakeEngine struct {
	calls []query.Request
}

func (f *fakeEngine) Query(ctx context.Context, req query.Request) (*query.Response, error) {
	f.calls = append(f.calls, req)
	return &query.Response{SchemaVersion: query.SchemaVersion, RequestID: req.RequestID, Status: query.StatusSuccess}, nil
}

func TestHandleDisabledManagerIsOneShot(t *testing.T) {
	cfg := config.ConversationConfig{Enabled: false}
	engine := &fakeEngine{}
	m := NewManager(cfg, engine, zap.NewNop())

	resp, err := m.Handle(context.Background(), "", query.Request{Query: "huh", RequestID: "r1"})
	require.NoError(t, err)
	require.Nil(t, resp.Clarification)
	require.Len(t, engine.calls, 1)
	require.Equal(t, query.ModeOneShot, engine.calls[0].Mode)
}

func TestHandleAmbiguousQueryRequestsClarificationThenResolves(t *testing.T) {
	cfg := config.ConversationConfig{Enabled: true, MaxRounds: 2, MaxDuration: 30 * time.Second, TTL: time.Minute}
	engine := &fakeEngine{}
	m := NewManager(cfg, engine, zap.NewNop())

	ambiguous := "why does this method call another, find it"
	resp, err := m.Handle(context.Background(), "conv-1", query.Request{Query: ambiguous, RequestID: "r1"})
	require.NoError(t, err)
	require.NotNil(t, resp.Clarification)
	require.Equal(t, 1, resp.Clarification.Round)
	require.Empty(t, engine.calls)

	_, ok := m.store.Get("conv-1")
	require.True(t, ok)

	resp, err = m.Handle(context.Background(), "conv-1", query.Request{Query: "still unclear", RequestID: "r2"})
	require.NoError(t, err)
	require.Len(t, engine.calls, 1)
	require.Equal(t, query.ModeOneShot, engine.calls[0].Mode)
	_, ok = m.store.Get("conv-1")
	require.False(t, ok)
	_ = resp
}

func TestHandleTimesOutToOneShot(t *testing.T) {
	cfg := config.ConversationConfig{Enabled: true, MaxRounds: 5, MaxDuration: time.Nanosecond, TTL: time.Minute}
	engine := &fakeEngine{}
	m := NewManager(cfg, engine, zap.NewNop())

	resp, err := m.Handle(context.Background(), "conv-2", query.Request{Query: "huh", RequestID: "r1"})
	require.NoError(t, err)
	require.Nil(t, resp.Clarification)
	require.Contains(t, resp.Warnings, "conversation timed out, fell back to best available classification")
}
