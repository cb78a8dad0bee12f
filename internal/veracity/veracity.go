// Package veracity implements C8: deterministic fault computation and
// confidence scoring over a query engine's evidence, per spec §4.7.
package veracity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/veracity-dev/ess/internal/config"
	"github.com/veracity-dev/ess/internal/graphstore"
	"github.com/veracity-dev/ess/internal/model"
)

// DocEvidence is a Document returned in a query's result set.
type DocEvidence struct {
	UID          string
	Path         string
	LastModified time.Time
}

// CodeEvidence is a code node (Function/Class/Method/Module) returned
// in a query's result set.
type CodeEvidence struct {
	UID              string
	Path             string
	HasEmbedding     bool
	ProvLastModified time.Time
}

// DocCodeLink records that a returned Document references a returned
// code node (a MENTIONS edge in the result's induced subgraph), the
// input the CONTRADICTION rule needs.
type DocCodeLink struct {
	DocUID  string
	CodeUID string
}

// Input is everything the validator needs to score one query result.
type Input struct {
	Project          string
	Docs             []DocEvidence
	CodeNodes        []CodeEvidence
	DocCodeLinks     []DocCodeLink
	TotalResultCount int
}

// Validator scores query evidence against the five fault rules of
// spec §4.7. ORPHANED_NODE consults the live graph for each code
// node's neighbor count in the full graph (not just the induced
// result subgraph) since a result set of a handful of matches rarely
// contains enough edges to judge orphanhood on its own; every other
// rule is a pure function of Input.
type Validator struct {
	cfg   config.VeracityConfig
	graph *graphstore.Store
}

// NewValidator builds a Validator. graph may be nil; when nil,
// ORPHANED_NODE is skipped rather than erroring, so offline/unit
// callers can still exercise the other four rules.
func NewValidator(cfg config.VeracityConfig, graph *graphstore.Store) *Validator {
	return &Validator{cfg: cfg, graph: graph}
}

// Validate computes a VeracityReport for queryID. now is passed in
// rather than read from time.Now() so the STALE_DOC/CONTRADICTION
// rules stay deterministic under test.
func (v *Validator) Validate(ctx context.Context, queryID string, input Input, now time.Time) model.VeracityReport {
	var faults []model.Fault

	faults = append(faults, v.staleDocFaults(input, now)...)
	faults = append(faults, v.orphanedNodeFaults(ctx, input)...)
	faults = append(faults, v.contradictionFaults(input, now)...)
	faults = append(faults, v.lowCoverageFault(input)...)
	faults = append(faults, v.embeddingMissingFaults(input)...)

	sort.SliceStable(faults, func(i, j int) bool {
		if faults[i].Kind != faults[j].Kind {
			return faults[i].Kind < faults[j].Kind
		}
		return faults[i].EvidenceRef < faults[j].EvidenceRef
	})

	score := 100
	for _, f := range faults {
		score += f.Penalty
	}
	if score < 0 {
		score = 0
	}

	return model.VeracityReport{
		QueryID:         queryID,
		Project:         input.Project,
		CreatedAt:       now,
		ConfidenceScore: score,
		Faults:          faults,
	}
}

func (v *Validator) staleDocFaults(input Input, now time.Time) []model.Fault {
	threshold := time.Duration(v.cfg.StaleDocDays) * 24 * time.Hour
	var faults []model.Fault
	for _, d := range input.Docs {
		if d.LastModified.IsZero() {
			continue
		}
		if now.Sub(d.LastModified) > threshold {
			faults = append(faults, model.Fault{
				Kind:        "STALE_DOC",
				EvidenceRef: d.Path,
				Penalty:     -v.cfg.StaleDocPenalty,
			})
		}
	}
	return faults
}

func (v *Validator) orphanedNodeFaults(ctx context.Context, input Input) []model.Fault {
	if v.graph == nil {
		return nil
	}
	var faults []model.Fault
	for _, c := range input.CodeNodes {
		count, err := v.graph.NeighborCount(ctx, input.Project, c.UID)
		if err != nil {
			continue
		}
		if count < v.cfg.OrphanMinNeighbors {
			faults = append(faults, model.Fault{
				Kind:        "ORPHANED_NODE",
				EvidenceRef: c.UID,
				Penalty:     -v.cfg.OrphanPenalty,
			})
		}
	}
	return faults
}

func (v *Validator) contradictionFaults(input Input, now time.Time) []model.Fault {
	threshold := time.Duration(v.cfg.ContradictionDays) * 24 * time.Hour
	docs := make(map[string]DocEvidence, len(input.Docs))
	for _, d := range input.Docs {
		docs[d.UID] = d
	}
	codes := make(map[string]CodeEvidence, len(input.CodeNodes))
	for _, c := range input.CodeNodes {
		codes[c.UID] = c
	}

	var faults []model.Fault
	for _, link := range input.DocCodeLinks {
		doc, okDoc := docs[link.DocUID]
		code, okCode := codes[link.CodeUID]
		if !okDoc || !okCode || doc.LastModified.IsZero() || code.ProvLastModified.IsZero() {
			continue
		}
		if code.ProvLastModified.Sub(doc.LastModified) > threshold {
			faults = append(faults, model.Fault{
				Kind:        "CONTRADICTION",
				EvidenceRef: doc.Path,
				Penalty:     -v.cfg.ContradictionPenalty,
			})
		}
	}
	return faults
}

func (v *Validator) lowCoverageFault(input Input) []model.Fault {
	if input.TotalResultCount < v.cfg.LowCoverageMin {
		return []model.Fault{{
			Kind:        "LOW_COVERAGE",
			EvidenceRef: fmt.Sprintf("result_count=%d", input.TotalResultCount),
			Penalty:     -v.cfg.LowCoveragePenalty,
		}}
	}
	return nil
}

func (v *Validator) embeddingMissingFaults(input Input) []model.Fault {
	var faults []model.Fault
	for _, c := range input.CodeNodes {
		if !c.HasEmbedding {
			faults = append(faults, model.Fault{
				Kind:        "EMBEDDING_MISSING",
				EvidenceRef: c.UID,
				Penalty:     -v.cfg.EmbeddingMissingPenalty,
			})
		}
	}
	return faults
}
