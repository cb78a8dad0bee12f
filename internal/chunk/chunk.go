// Package chunk implements C3: deterministic, category-driven
// splitting of normalized file text into stable-id chunks.
package chunk

import (
	"strings"
	"unicode"

	"github.com/veracity-dev/ess/internal/config"
	"github.com/veracity-dev/ess/internal/model"
)

// Split splits normalized text into chunks for the given category,
// following the per-category strategy from spec §4.3: code prefers
// line boundaries, doc prefers paragraph boundaries, everything else
// uses a fixed window with generous overlap. Natural split points are
// preferred within cfg.Tolerance bytes of cfg.TargetSize; otherwise
// the chunker hard-cuts at exactly TargetSize.
func Split(project, path string, text string, category model.Category, cfg config.ChunkConfig) []model.Chunk {
	if text == "" {
		return nil
	}

	var strategy model.ChunkStrategy
	var boundaries []int
	overlap := 0
	switch category {
	case model.CategoryCode:
		strategy = model.StrategyLine
		boundaries = lineBoundaries(text)
	case model.CategoryDoc:
		strategy = model.StrategyParagraph
		boundaries = paragraphBoundaries(text)
	default:
		strategy = model.StrategyFixed
		boundaries = nil
		overlap = cfg.Overlap
	}

	spans := split(text, cfg.TargetSize, cfg.Tolerance, overlap, boundaries)

	chunks := make([]model.Chunk, 0, len(spans))
	for i, span := range spans {
		chunkText := text[span.start:span.end]
		contentHash := model.ContentHash(chunkText)
		chunks = append(chunks, model.Chunk{
			ChunkID:     model.ChunkID(project, path, i, contentHash),
			Project:     project,
			SourcePath:  path,
			ChunkIndex:  i,
			ContentHash: contentHash,
			CharStart:   span.start,
			CharEnd:     span.end,
			Strategy:    strategy,
			Text:        chunkText,
		})
	}
	return chunks
}

type span struct{ start, end int }

// split walks text in target-sized windows. At each target boundary
// it looks within [target-tolerance, target+tolerance] for the
// nearest natural boundary in `boundaries`; if none exists in that
// window, it hard-cuts exactly at the target offset. overlap is not
// applied to code/doc line-aware strategies (natural points already
// avoid mid-token cuts); the fixed strategy below folds overlap in by
// stepping back on the window advance.
func split(text string, target, tolerance, overlap int, boundaries []int) []span {
	if target <= 0 {
		target = 1500
	}
	n := len(text)
	if n <= target+tolerance {
		return []span{{0, n}}
	}

	var spans []span
	pos := 0
	for pos < n {
		end := pos + target
		if end >= n {
			spans = append(spans, span{pos, n})
			break
		}
		cut := nearestBoundary(boundaries, end, tolerance, pos, n)
		if cut <= pos {
			cut = end
		}
		spans = append(spans, span{pos, cut})
		if overlap > 0 && cut-overlap > pos {
			pos = cut - overlap
		} else {
			pos = cut
		}
	}
	return spans
}

// nearestBoundary finds the boundary offset closest to target within
// [target-tolerance, target+tolerance], bounded to (after, before n).
func nearestBoundary(boundaries []int, target, tolerance, after, n int) int {
	best := -1
	bestDist := tolerance + 1
	lo, hi := target-tolerance, target+tolerance
	for _, b := range boundaries {
		if b <= after || b > n {
			continue
		}
		if b < lo || b > hi {
			continue
		}
		dist := abs(b - target)
		if dist < bestDist {
			bestDist = dist
			best = b
		}
	}
	return best
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// lineBoundaries returns byte offsets immediately after each newline,
// the natural split point for code (spec: "line/signature-aware").
func lineBoundaries(text string) []int {
	var bounds []int
	for i, r := range text {
		if r == '\n' {
			bounds = append(bounds, i+1)
		}
	}
	return bounds
}

// paragraphBoundaries returns offsets after each blank line, the
// natural split point for prose documents.
func paragraphBoundaries(text string) []int {
	var bounds []int
	lines := strings.Split(text, "\n")
	offset := 0
	for i, line := range lines {
		offset += len(line)
		if i < len(lines)-1 {
			offset++ // account for the newline split removed
		}
		if isBlank(line) {
			bounds = append(bounds, offset)
		}
	}
	return bounds
}

func isBlank(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
