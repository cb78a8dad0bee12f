// Package conversation implements C10: a bounded, optional multi-round
// dialog for queries the ambiguity gate flags (spec §4.10). It sits in
// front of query.Engine rather than inside it, so one-shot callers
// never pay for conversation bookkeeping they don't use.
package conversation

import (
	"context"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/config"
	"github.com/veracity-dev/ess/internal/query"
)

// State is a conversation's position in the spec §4.10 state machine.
type State string

const (
	StateAnalyzing  State = "analyzing"
	StateClarifying State = "clarifying"
	StateResolving  State = "resolving"
	StateCompleted  State = "completed"
)

// session is one conversation's accumulated state, held in an
// expiring cache keyed by conversation id (spec §4.10: "key-value
// cache with TTL; no in-memory-only state beyond a single process").
type session struct {
	project          string
	originalQuery    string
	collectedContext []string
	round            int
	state            State
	startedAt        time.Time
}

// queryEngine is the subset of *query.Engine this package depends on;
// declared here so tests can substitute a fake without standing up
// real graph/vector/embed backends.
type queryEngine interface {
	Query(ctx context.Context, req query.Request) (*query.Response, error)
}

// Manager owns the conversation cache and re-invokes the query engine
// with progressively enriched queries as rounds accumulate.
type Manager struct {
	cfg    config.ConversationConfig
	engine queryEngine
	log    *zap.Logger
	store  *lru.LRU[string, *session]
}

// NewManager builds a Manager. engine is the already-constructed C7
// engine this conversation sits in front of.
func NewManager(cfg config.ConversationConfig, engine queryEngine, log *zap.Logger) *Manager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Manager{
		cfg:    cfg,
		engine: engine,
		log:    log,
		store:  lru.NewLRU[string, *session](4096, nil, ttl),
	}
}

func (m *Manager) maxRounds() int {
	if m.cfg.MaxRounds > 0 {
		return m.cfg.MaxRounds
	}
	return 3
}

func (m *Manager) maxDuration() time.Duration {
	if m.cfg.MaxDuration > 0 {
		return m.cfg.MaxDuration
	}
	return 30 * time.Second
}

// Handle advances the conversation identified by convID by one round.
// The first call for a convID treats req.Query as the original
// question; every subsequent call treats it as the answer to the
// previous round's clarifying question. When the manager is disabled
// or convID is empty, it degenerates to a single one-shot call.
func (m *Manager) Handle(ctx context.Context, convID string, req query.Request) (*query.Response, error) {
	if !m.cfg.Enabled || convID == "" {
		req.Mode = query.ModeOneShot
		return m.engine.Query(ctx, req)
	}

	sess, ok := m.store.Get(convID)
	if !ok {
		sess = &session{
			project:       req.Project,
			originalQuery: req.Query,
			state:         StateAnalyzing,
			startedAt:     time.Now(),
		}
	} else {
		sess.collectedContext = append(sess.collectedContext, req.Query)
	}

	timedOut := time.Since(sess.startedAt) > m.maxDuration()
	sess.round++

	enriched := strings.Join(append([]string{sess.originalQuery}, sess.collectedContext...), "\n")
	classification := query.Classify(enriched)
	// Mirrors the ambiguity gate in query.Engine.Query: only genuinely
	// ambiguous classifications (low confidence, several competing
	// intents) keep the conversation going past this round.
	stillAmbiguous := classification.Confidence < 0.5 && classification.AmbiguityIndicators >= 2
	resolved := !stillAmbiguous

	if timedOut || resolved || sess.round >= m.maxRounds() {
		sess.state = StateResolving
		m.store.Remove(convID)

		oneShot := req
		oneShot.Query = enriched
		oneShot.Mode = query.ModeOneShot
		resp, err := m.engine.Query(ctx, oneShot)
		if err != nil {
			return nil, err
		}
		if timedOut {
			resp.Warnings = append(resp.Warnings, "conversation timed out, fell back to best available classification")
		}
		return resp, nil
	}

	sess.state = StateClarifying
	m.store.Add(convID, sess)

	return &query.Response{
		SchemaVersion: query.SchemaVersion,
		RequestID:     req.RequestID,
		Status:        query.StatusPartial,
		Timestamp:     req.Timestamp,
		QueryType:     string(classification.Intent),
		Warnings:      []string{"clarification_requested"},
		Clarification: &query.Clarification{
			Question:  clarifyingQuestion(classification),
			Intent:    string(classification.Intent),
			Round:     sess.round,
			MaxRounds: m.maxRounds(),
		},
	}, nil
}

// Forget discards a conversation's state, e.g. after the caller
// reports it no longer needs the dialog.
func (m *Manager) Forget(convID string) {
	m.store.Remove(convID)
}

func clarifyingQuestion(c query.Classification) string {
	switch c.Intent {
	case query.IntentRelationship:
		return "Which relationship are you asking about: callers, callees, or dependencies?"
	case query.IntentExplanation:
		return "Are you asking what the code does, where it lives, or why it was written this way?"
	case query.IntentCode, query.IntentLocation:
		return "Can you name the specific file, function, or symbol you mean?"
	default:
		return "Could you clarify whether you're asking about code location, behavior, or relationships?"
	}
}
