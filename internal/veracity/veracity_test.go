package veracity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veracity-dev/ess/internal/config"
)

func testCfg() config.VeracityConfig {
	return config.VeracityConfig{
		StaleDocDays:            90,
		StaleDocPenalty:         15,
		OrphanMinNeighbors:      2,
		OrphanPenalty:           5,
		ContradictionDays:       30,
		ContradictionPenalty:    20,
		LowCoverageMin:          5,
		LowCoveragePenalty:      10,
		EmbeddingMissingPenalty: 10,
	}
}

func TestValidatePerfectEvidenceScoresMax(t *testing.T) {
	v := NewValidator(testCfg(), nil)
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	report := v.Validate(context.Background(), "q1", Input{
		Project:          "proj1",
		TotalResultCount: 10,
		CodeNodes: []CodeEvidence{
			{UID: "c1", HasEmbedding: true},
		},
	}, now)

	assert.Equal(t, 100, report.ConfidenceScore)
	assert.Empty(t, report.Faults)
}

func TestValidateStaleDocPenalized(t *testing.T) {
	v := NewValidator(testCfg(), nil)
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	report := v.Validate(context.Background(), "q1", Input{
		TotalResultCount: 10,
		Docs: []DocEvidence{
			{UID: "d1", Path: "docs/a.md", LastModified: now.AddDate(0, 0, -200)},
		},
	}, now)

	require.Len(t, report.Faults, 1)
	assert.Equal(t, "STALE_DOC", report.Faults[0].Kind)
	assert.Equal(t, "docs/a.md", report.Faults[0].EvidenceRef)
	assert.Equal(t, 85, report.ConfidenceScore)
}

func TestValidateLowCoveragePenalized(t *testing.T) {
	v := NewValidator(testCfg(), nil)
	now := time.Now().UTC()

	report := v.Validate(context.Background(), "q1", Input{TotalResultCount: 1}, now)

	require.Len(t, report.Faults, 1)
	assert.Equal(t, "LOW_COVERAGE", report.Faults[0].Kind)
	assert.Equal(t, 90, report.ConfidenceScore)
}

func TestValidateEmbeddingMissingPenalized(t *testing.T) {
	v := NewValidator(testCfg(), nil)
	now := time.Now().UTC()

	report := v.Validate(context.Background(), "q1", Input{
		TotalResultCount: 10,
		CodeNodes:        []CodeEvidence{{UID: "c1", HasEmbedding: false}},
	}, now)

	require.Len(t, report.Faults, 1)
	assert.Equal(t, "EMBEDDING_MISSING", report.Faults[0].Kind)
	assert.Equal(t, 90, report.ConfidenceScore)
}

func TestValidateContradictionPenalized(t *testing.T) {
	v := NewValidator(testCfg(), nil)
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	report := v.Validate(context.Background(), "q1", Input{
		TotalResultCount: 10,
		Docs:             []DocEvidence{{UID: "d1", Path: "docs/a.md", LastModified: now.AddDate(0, 0, -60)}},
		CodeNodes:        []CodeEvidence{{UID: "c1", HasEmbedding: true, ProvLastModified: now.AddDate(0, 0, -1)}},
		DocCodeLinks:     []DocCodeLink{{DocUID: "d1", CodeUID: "c1"}},
	}, now)

	require.Len(t, report.Faults, 1)
	assert.Equal(t, "CONTRADICTION", report.Faults[0].Kind)
	assert.Equal(t, 80, report.ConfidenceScore)
}

func TestValidateScoreNeverGoesBelowZero(t *testing.T) {
	cfg := testCfg()
	cfg.StaleDocPenalty = 60
	v := NewValidator(cfg, nil)
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	report := v.Validate(context.Background(), "q1", Input{
		TotalResultCount: 1,
		Docs: []DocEvidence{
			{UID: "d1", Path: "a.md", LastModified: now.AddDate(-1, 0, 0)},
			{UID: "d2", Path: "b.md", LastModified: now.AddDate(-1, 0, 0)},
		},
	}, now)

	assert.Equal(t, 0, report.ConfidenceScore)
}

func TestValidateIsPureGivenIdenticalInput(t *testing.T) {
	v := NewValidator(testCfg(), nil)
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	input := Input{
		TotalResultCount: 10,
		Docs:             []DocEvidence{{UID: "d1", Path: "docs/a.md", LastModified: now.AddDate(0, 0, -200)}},
	}

	r1 := v.Validate(context.Background(), "q1", input, now)
	r2 := v.Validate(context.Background(), "q1", input, now)
	assert.Equal(t, r1.ConfidenceScore, r2.ConfidenceScore)
	assert.Equal(t, r1.Faults, r2.Faults)
}
