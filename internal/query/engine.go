package query

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/veracity-dev/ess/internal/config"
	"github.com/veracity-dev/ess/internal/embed"
	"github.com/veracity-dev/ess/internal/esserr"
	"github.com/veracity-dev/ess/internal/graphstore"
	"github.com/veracity-dev/ess/internal/model"
	"github.com/veracity-dev/ess/internal/vectorstore"
	"github.com/veracity-dev/ess/internal/veracity"
)

// Engine implements C7: it owns no state beyond its backend handles
// and runs the read path described in spec §4.6.
type Engine struct {
	log       *zap.Logger
	cfg       config.QueryConfig
	embedSvc  *embed.Service
	graph     *graphstore.Store
	vector    *vectorstore.Store
	breakers  *esserr.Registry
	validator *veracity.Validator
}

// NewEngine builds an Engine from already-opened backend handles.
func NewEngine(log *zap.Logger, cfg config.QueryConfig, embedSvc *embed.Service, graph *graphstore.Store, vector *vectorstore.Store, breakers *esserr.Registry, validator *veracity.Validator) *Engine {
	return &Engine{log: log, cfg: cfg, embedSvc: embedSvc, graph: graph, vector: vector, breakers: breakers, validator: validator}
}

// Query runs the spec §4.6 pipeline: classify, gate, embed, fan out,
// merge and rank, validate, assemble.
func (e *Engine) Query(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	mode := req.Mode
	if mode == "" {
		mode = ModeOneShot
	}

	classification := Classify(req.Query)

	if mode == ModeConversational && classification.Confidence < 0.5 && classification.AmbiguityIndicators >= 2 {
		return e.clarificationResponse(req, classification), nil
	}

	budgetCtx, cancel := context.WithTimeout(ctx, e.totalBudget())
	defer cancel()

	var semanticMatches []semanticCandidate
	var structuralMatches []structuralCandidate
	var graphOK, vectorOK bool
	var graphLatencyMs, vectorLatencyMs int64

	group, gctx := errgroup.WithContext(budgetCtx)

	group.Go(func() error {
		matches, ok, latency := e.searchSemantic(gctx, req)
		semanticMatches, vectorOK, vectorLatencyMs = matches, ok, latency
		return nil
	})
	group.Go(func() error {
		matches, ok, latency := e.searchStructural(gctx, req, classification)
		structuralMatches, graphOK, graphLatencyMs = matches, ok, latency
		return nil
	})
	_ = group.Wait() // both branches record their own outcome, never error the group

	sortSemantic(semanticMatches)
	semanticMatches = applySemanticLimits(semanticMatches, classification.Intent)
	sortStructural(structuralMatches)

	status, warnings, fallback := statusFor(graphOK, vectorOK)

	report := e.validate(ctx, req.RequestID, semanticMatches, structuralMatches)

	resp := &Response{
		SchemaVersion:   SchemaVersion,
		RequestID:       req.RequestID,
		Status:          status,
		Timestamp:       req.Timestamp,
		QueryType:       string(classification.Intent),
		Warnings:        warnings,
		FallbackMessage: fallback,
		Results: Results{
			Insights: buildInsights(semanticMatches, structuralMatches),
		},
		Veracity: &VeracityInfo{
			ConfidenceScore: report.ConfidenceScore,
			Faults:          faultKinds(report.Faults),
		},
	}
	if vectorOK || len(semanticMatches) > 0 {
		resp.Results.Semantic = &SemanticResults{
			Summary: semanticSummary(len(semanticMatches)),
			Matches: toPublicSemantic(semanticMatches),
		}
	}
	if graphOK || len(structuralMatches) > 0 {
		resp.Results.Structural = &StructuralResults{
			Summary:       structuralSummary(len(structuralMatches)),
			Relationships: toPublicStructural(structuralMatches),
		}
	}

	totalBytes := estimateBytes(resp)
	resp.Meta = Meta{
		GraphQueried:    true,
		VectorQueried:   true,
		GraphLatencyMs:  graphLatencyMs,
		VectorLatencyMs: vectorLatencyMs,
		TotalLatencyMs:  time.Since(start).Milliseconds(),
		ResultSize: ResultSize{
			TotalBytes:              totalBytes,
			SemanticMatches:         len(semanticMatches),
			StructuralRelationships: len(structuralMatches),
			Compressed:              false,
		},
	}

	return resp, nil
}

func (e *Engine) totalBudget() time.Duration {
	if e.cfg.TotalBudget > 0 {
		return e.cfg.TotalBudget
	}
	return 1500 * time.Millisecond
}

func (e *Engine) searchSemantic(ctx context.Context, req Request) ([]semanticCandidate, bool, int64) {
	breaker := e.breakers.Get("vector")
	allowed, _ := breaker.Allow()
	if !allowed {
		return nil, false, 0
	}

	timeout := e.cfg.SemanticTimeout
	if timeout <= 0 {
		timeout = 800 * time.Millisecond
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	vec, err := e.embedSvc.EmbedQuery(callCtx, req.Query)
	if err != nil {
		breaker.RecordFailure()
		return nil, false, time.Since(start).Milliseconds()
	}

	points, scores, err := e.vector.Search(callCtx, req.Project, vec, 30)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		breaker.RecordFailure()
		return nil, false, latency
	}
	breaker.RecordSuccess()

	out := make([]semanticCandidate, 0, len(points))
	for i, p := range points {
		score := float64(0)
		if i < len(scores) {
			score = float64(scores[i])
		}
		out = append(out, semanticCandidate{
			UID:          p.ChunkID,
			Content:      p.Content,
			Score:        score,
			Source:       p.Path,
			Type:         p.Type,
			LineStart:    p.LineStart,
			LineEnd:      p.LineEnd,
			Language:     p.Language,
			HasEmbedding: true,
		})
	}
	return out, true, latency
}

func (e *Engine) searchStructural(ctx context.Context, req Request, classification Classification) ([]structuralCandidate, bool, int64) {
	breaker := e.breakers.Get("graph")
	allowed, _ := breaker.Allow()
	if !allowed {
		return nil, false, 0
	}

	timeout := e.cfg.StructuralTimeout
	if timeout <= 0 {
		timeout = 800 * time.Millisecond
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	matches, err := e.graph.SearchStructural(callCtx, req.Project, req.Query, 30)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		breaker.RecordFailure()
		return nil, false, latency
	}
	breaker.RecordSuccess()

	out := make([]structuralCandidate, 0, len(matches))
	for _, m := range matches {
		out = append(out, structuralCandidate{
			UID:    m.UID,
			Kind:   m.Kind,
			Source: m.Source,
			Target: m.Target,
			Type:   string(m.Type),
			Path:   []string{m.Path},
		})
	}
	return out, true, latency
}

func (e *Engine) validate(ctx context.Context, requestID string, semantic []semanticCandidate, structural []structuralCandidate) model.VeracityReport {
	if e.validator == nil {
		return model.VeracityReport{ConfidenceScore: 100}
	}

	var input veracity.Input
	seenCode := make(map[string]bool)
	for _, m := range semantic {
		if m.Type == "doc" {
			input.Docs = append(input.Docs, veracity.DocEvidence{UID: m.UID, Path: m.Source, LastModified: m.LastModified})
			continue
		}
		input.CodeNodes = append(input.CodeNodes, veracity.CodeEvidence{UID: m.UID, Path: m.Source, HasEmbedding: m.HasEmbedding})
		seenCode[m.UID] = true
	}
	for _, s := range structural {
		if s.UID == "" || s.Kind == "" || s.Kind == "External" || seenCode[s.UID] {
			continue
		}
		// Structural-only hits carry no embedding_ref from this query
		// (SearchStructural doesn't project it); assume present rather
		// than penalize a node EMBEDDING_MISSING never actually checked.
		input.CodeNodes = append(input.CodeNodes, veracity.CodeEvidence{UID: s.UID, HasEmbedding: true})
		seenCode[s.UID] = true
	}
	input.TotalResultCount = len(semantic) + len(structural)

	return e.validator.Validate(ctx, requestID, input, time.Now())
}

func (e *Engine) clarificationResponse(req Request, c Classification) *Response {
	return &Response{
		SchemaVersion: SchemaVersion,
		RequestID:     req.RequestID,
		Status:        StatusPartial,
		Timestamp:     req.Timestamp,
		QueryType:     string(c.Intent),
		Warnings:      []string{"clarification_requested"},
		Clarification: &Clarification{
			Question:  "Could you clarify whether you're asking about code location, behavior, or relationships?",
			Intent:    string(c.Intent),
			Round:     1,
			MaxRounds: 3,
		},
		Meta: Meta{},
	}
}

func statusFor(graphOK, vectorOK bool) (Status, []string, string) {
	switch {
	case graphOK && vectorOK:
		return StatusSuccess, nil, ""
	case graphOK && !vectorOK:
		return StatusPartial, []string{"semantic search unavailable"}, ""
	case !graphOK && vectorOK:
		return StatusPartial, []string{"structural search unavailable"}, ""
	default:
		return StatusUnavailable, nil, fallbackMessage
	}
}

func faultKinds(faults []model.Fault) []string {
	kinds := make([]string, 0, len(faults))
	for _, f := range faults {
		kinds = append(kinds, f.Kind)
	}
	return kinds
}

func semanticSummary(n int) string {
	if n == 0 {
		return "no semantic matches found"
	}
	return "semantic search returned matches"
}

func structuralSummary(n int) string {
	if n == 0 {
		return "no structural relationships found"
	}
	return "structural search returned relationships"
}

func estimateBytes(resp *Response) int {
	total := 0
	if resp.Results.Semantic != nil {
		for _, m := range resp.Results.Semantic.Matches {
			total += len(m.Content)
		}
	}
	if resp.Results.Structural != nil {
		for _, r := range resp.Results.Structural.Relationships {
			total += len(r.Source) + len(r.Target) + len(r.Type)
		}
	}
	return total
}
