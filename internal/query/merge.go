package query

import (
	"sort"
	"strconv"
	"time"
)

// semanticCandidate carries the full evidence a backend returns for
// one vector hit, before it is trimmed to the public SemanticMatch
// shape. UID/LastModified/HasEmbedding feed C8 and are not part of
// the v1.0 packet schema.
type semanticCandidate struct {
	UID          string
	Content      string
	Score        float64
	Source       string
	Type         string
	LineStart    int
	LineEnd      int
	Language     string
	LastModified time.Time
	HasEmbedding bool
}

// structuralCandidate mirrors graphstore.StructuralMatch without
// importing that package's name into the public API surface here.
// UID/Kind feed C8's ORPHANED_NODE and EMBEDDING_MISSING rules and are
// not part of the v1.0 packet schema.
type structuralCandidate struct {
	UID         string
	Kind        string
	Source      string
	Target      string
	Type        string
	Path        []string
	Explanation string
}

// sortSemantic orders candidates by (score DESC, path ASC, uid ASC),
// the merge rule from spec §4.6.
func sortSemantic(matches []semanticCandidate) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Source != matches[j].Source {
			return matches[i].Source < matches[j].Source
		}
		return matches[i].UID < matches[j].UID
	})
}

// sortStructural orders relationships by (path ASC, source ASC,
// target ASC, type ASC), per spec §4.6.
func sortStructural(rels []structuralCandidate) {
	sort.SliceStable(rels, func(i, j int) bool {
		pi, pj := pathKey(rels[i].Path), pathKey(rels[j].Path)
		if pi != pj {
			return pi < pj
		}
		if rels[i].Source != rels[j].Source {
			return rels[i].Source < rels[j].Source
		}
		if rels[i].Target != rels[j].Target {
			return rels[i].Target < rels[j].Target
		}
		return rels[i].Type < rels[j].Type
	})
}

func pathKey(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return path[0]
}

// applySemanticLimits truncates each match's content to the intent's
// max-bytes-per-match, then trims the slice to the intent's max match
// count. The configured minimum is a floor on what's kept, not a
// promise to pad a short result set up to it.
func applySemanticLimits(matches []semanticCandidate, intent Intent) []semanticCandidate {
	limit := limitsFor(intent)
	out := make([]semanticCandidate, 0, len(matches))
	for _, m := range matches {
		if len(m.Content) > limit.maxBytes {
			m.Content = m.Content[:limit.maxBytes]
		}
		out = append(out, m)
	}
	if len(out) > limit.max {
		out = out[:limit.max]
	}
	return out
}

func toPublicSemantic(matches []semanticCandidate) []SemanticMatch {
	out := make([]SemanticMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, SemanticMatch{
			Content:   m.Content,
			Score:     m.Score,
			Source:    m.Source,
			Type:      m.Type,
			LineStart: m.LineStart,
			LineEnd:   m.LineEnd,
			Language:  m.Language,
		})
	}
	return out
}

func toPublicStructural(rels []structuralCandidate) []StructuralRelationship {
	out := make([]StructuralRelationship, 0, len(rels))
	for _, r := range rels {
		out = append(out, StructuralRelationship{
			Source:      r.Source,
			Target:      r.Target,
			Type:        r.Type,
			Path:        r.Path,
			Explanation: r.Explanation,
		})
	}
	return out
}

// buildInsights derives a non-generative summary strictly from
// retrieved evidence counts and relationship types (spec §4.6: "no
// freeform synthesis").
func buildInsights(semantic []semanticCandidate, structural []structuralCandidate) *Insights {
	if len(semantic) == 0 && len(structural) == 0 {
		return nil
	}

	typeCounts := map[string]int{}
	for _, r := range structural {
		typeCounts[r.Type]++
	}

	findings := make([]string, 0, 2)
	if len(semantic) > 0 {
		findings = append(findings, itoaFinding(len(semantic), "semantic match"))
	}
	for _, t := range sortedKeys(typeCounts) {
		findings = append(findings, itoaFinding(typeCounts[t], t+" relationship"))
	}

	return &Insights{
		Summary:     "evidence-only summary, no generated answer",
		KeyFindings: findings,
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func itoaFinding(n int, noun string) string {
	plural := noun
	if n != 1 {
		plural += "s"
	}
	return strconv.Itoa(n) + " " + plural
}
