package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/config"
	"github.com/veracity-dev/ess/internal/conversation"
	"github.com/veracity-dev/ess/internal/esserr"
	"github.com/veracity-dev/ess/internal/query"
	"github.com/veracity-dev/ess/internal/telemetry"
)

type fakeEngine struct{}

func (fakeEngine) Query(ctx context.Context, req query.Request) (*query.Response, error) {
	return &query.Response{
		SchemaVersion: query.SchemaVersion,
		RequestID:     req.RequestID,
		Status:        query.StatusSuccess,
		Veracity:      &query.VeracityInfo{ConfidenceScore: 88},
	}, nil
}

func newTestServer(t *testing.T, token string) *Server {
	t.Helper()
	convCfg := config.ConversationConfig{Enabled: true, MaxRounds: 3}
	mgr := conversation.NewManager(convCfg, fakeEngine{}, zap.NewNop())
	return New(Deps{
		Log:      zap.NewNop(),
		APIToken: token,
		Conversation: mgr,
		Breakers: esserr.NewRegistry(),
		Metrics:  telemetry.NewMetrics(),
		Audit:    telemetry.NewAuditLog(t.TempDir()),
	})
}

func TestHandleHealthReportsHealthyWithNoBreakers(t *testing.T) {
	srv := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestHandleQueryRequiresBearerTokenWhenConfigured(t *testing.T) {
	srv := newTestServer(t, "secret")
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"why does Foo exist"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleQuerySucceedsWithValidToken(t *testing.T) {
	srv := newTestServer(t, "secret")
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"why does Foo exist","requestId":"r1"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"confidence_score":88`)
}
