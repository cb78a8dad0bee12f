package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortSemanticOrdersByScoreThenPathThenUID(t *testing.T) {
	matches := []semanticCandidate{
		{UID: "b", Source: "z.go", Score: 0.5},
		{UID: "a", Source: "a.go", Score: 0.9},
		{UID: "c", Source: "a.go", Score: 0.9},
	}
	sortSemantic(matches)
	assert.Equal(t, []string{"a", "c", "b"}, []string{matches[0].UID, matches[1].UID, matches[2].UID})
}

func TestSortStructuralOrdersByPathSourceTargetType(t *testing.T) {
	rels := []structuralCandidate{
		{Path: []string{"b.go"}, Source: "s2", Target: "t1", Type: "CALLS"},
		{Path: []string{"a.go"}, Source: "s2", Target: "t1", Type: "CALLS"},
		{Path: []string{"a.go"}, Source: "s1", Target: "t1", Type: "CALLS"},
	}
	sortStructural(rels)
	assert.Equal(t, "s1", rels[0].Source)
	assert.Equal(t, "a.go", rels[0].Path[0])
	assert.Equal(t, "s2", rels[1].Source)
	assert.Equal(t, "b.go", rels[2].Path[0])
}

func TestApplySemanticLimitsTruncatesContentAndCount(t *testing.T) {
	matches := make([]semanticCandidate, 0, 25)
	for i := 0; i < 25; i++ {
		matches = append(matches, semanticCandidate{UID: string(rune('a' + i)), Content: strings.Repeat("x", 100)})
	}
	out := applySemanticLimits(matches, IntentCode)
	assert.Len(t, out, 20) // code intent max is 20
	for _, m := range out {
		assert.LessOrEqual(t, len(m.Content), 50_000)
	}
}

func TestApplySemanticLimitsDoesNotPadBelowMin(t *testing.T) {
	matches := []semanticCandidate{{UID: "a"}}
	out := applySemanticLimits(matches, IntentExplanation)
	assert.Len(t, out, 1) // explanation min is 3, but we never fabricate matches
}

func TestBuildInsightsReturnsNilWhenNoEvidence(t *testing.T) {
	assert.Nil(t, buildInsights(nil, nil))
}

func TestBuildInsightsSummarizesCounts(t *testing.T) {
	semantic := []semanticCandidate{{UID: "a"}, {UID: "b"}}
	structural := []structuralCandidate{{Type: "CALLS"}, {Type: "CALLS"}, {Type: "IMPORTS"}}
	insights := buildInsights(semantic, structural)
	assert.NotNil(t, insights)
	assert.Contains(t, insights.KeyFindings, "2 semantic matches")
	assert.Contains(t, insights.KeyFindings, "2 CALLS relationships")
	assert.Contains(t, insights.KeyFindings, "1 IMPORTS relationship")
}
