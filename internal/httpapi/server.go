// Package httpapi implements the spec §6 HTTP adapter over C7: a
// single-purpose POST /query endpoint plus GET /health and GET
// /metrics, all sharing the same engine, registry, and circuit
// breakers as every other surface.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/conversation"
	"github.com/veracity-dev/ess/internal/esserr"
	"github.com/veracity-dev/ess/internal/query"
	"github.com/veracity-dev/ess/internal/ratelimit"
	"github.com/veracity-dev/ess/internal/registry"
	"github.com/veracity-dev/ess/internal/telemetry"
)

// Server wires the chi router described above. It owns no backend
// lifecycle; the caller opens graph/vector/embed handles and passes
// in the components built from them.
type Server struct {
	log          *zap.Logger
	apiToken     string
	conversation *conversation.Manager
	engine       *query.Engine
	breakers     *esserr.Registry
	limiter      *ratelimit.Limiter
	metrics      *telemetry.Metrics
	audit        *telemetry.AuditLog
	registryPath string

	router chi.Router
}

// Deps are Server's constructor dependencies, already built by the
// caller from opened backend handles.
type Deps struct {
	Log          *zap.Logger
	APIToken     string
	Engine       *query.Engine
	Conversation *conversation.Manager
	Breakers     *esserr.Registry
	Limiter      *ratelimit.Limiter
	Metrics      *telemetry.Metrics
	Audit        *telemetry.AuditLog
	RegistryPath string
}

// New builds a Server and its chi routes.
func New(d Deps) *Server {
	s := &Server{
		log:          d.Log,
		apiToken:     d.APIToken,
		conversation: d.Conversation,
		engine:       d.Engine,
		breakers:     d.Breakers,
		limiter:      d.Limiter,
		metrics:      d.Metrics,
		audit:        d.Audit,
		registryPath: d.RegistryPath,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}
	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Use(s.rateLimit)
		r.Post("/query", s.handleQuery)
	})

	s.router = r
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe runs the HTTP server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if len(got) <= len(prefix) || got[:len(prefix)] != prefix {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(got[len(prefix):]), []byte(s.apiToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		project := r.URL.Query().Get("project")
		if !s.limiter.Allow(project) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type queryRequestBody struct {
	Query          string `json:"query"`
	RequestID      string `json:"requestId"`
	Timestamp      string `json:"timestamp"`
	Project        string `json:"project,omitempty"`
	Context        []string `json:"context,omitempty"`
	Mode           string `json:"mode,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body queryRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if body.RequestID == "" {
		body.RequestID = uuid.NewString()
	}

	if body.Project != "" && s.registryPath != "" {
		if _, err := registry.Get(s.registryPath, body.Project); err != nil {
			writeError(w, http.StatusNotFound, "project not registered")
			return
		}
	}

	req := query.Request{
		Query:     body.Query,
		RequestID: body.RequestID,
		Timestamp: body.Timestamp,
		Project:   body.Project,
		Context:   body.Context,
		Mode:      body.Mode,
	}

	var (
		resp *query.Response
		err  error
	)
	if s.conversation != nil {
		resp, err = s.conversation.Handle(r.Context(), body.ConversationID, req)
	} else {
		req.Mode = query.ModeOneShot
		resp, err = s.engine.Query(r.Context(), req)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveError("httpapi", esserr.Code(err))
		}
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	raw, _ := json.Marshal(resp)
	if s.metrics != nil {
		s.metrics.ObserveQuery(body.Project, string(resp.Status), time.Since(start).Seconds())
	}
	if s.audit != nil && resp.Veracity != nil {
		_ = s.audit.Append(resp.RequestID, body.Project, raw, resp.Veracity.ConfidenceScore, time.Now())
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

type healthStatus struct {
	Status    string                 `json:"status"`
	Services  map[string]serviceInfo `json:"services"`
	Timestamp string                 `json:"timestamp"`
}

type serviceInfo struct {
	State       string `json:"state"`
	LatencyMs   int64  `json:"latency_ms"`
	LastFailure string `json:"last_failure,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	services := map[string]serviceInfo{}
	downCount := 0
	if s.breakers != nil {
		for name, snap := range s.breakers.Snapshot() {
			info := serviceInfo{State: snap.State.String(), LatencyMs: snap.LatencyMs}
			if !snap.LastFailure.IsZero() {
				info.LastFailure = snap.LastFailure.UTC().Format(time.RFC3339)
			}
			if snap.State == esserr.StateOpen {
				downCount++
			}
			services[name] = info
		}
	}

	status := "healthy"
	switch {
	case len(services) > 0 && downCount == len(services):
		status = "unhealthy"
	case downCount > 0:
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, healthStatus{
		Status:    status,
		Services:  services,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
