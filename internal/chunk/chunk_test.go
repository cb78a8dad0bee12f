package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veracity-dev/ess/internal/config"
	"github.com/veracity-dev/ess/internal/model"
)

func testCfg() config.ChunkConfig {
	return config.ChunkConfig{TargetSize: 100, Overlap: 20, Tolerance: 15}
}

func TestSplitSmallTextYieldsSingleChunk(t *testing.T) {
	chunks := Split("proj1", "a.go", "package main\n", model.CategoryCode, testCfg())
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, model.StrategyLine, chunks[0].Strategy)
}

func TestSplitCodePrefersLineBoundaries(t *testing.T) {
	line := "x := 1\n" // 7 bytes
	text := strings.Repeat(line, 30)
	chunks := Split("proj1", "a.go", text, model.CategoryCode, testCfg())
	require.True(t, len(chunks) > 1)
	for _, c := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(c.Text, "\n"), "expected line-aligned chunk boundary")
	}
}

func TestChunkIDStableForIdenticalContent(t *testing.T) {
	text := strings.Repeat("line\n", 40)
	c1 := Split("proj1", "a.go", text, model.CategoryCode, testCfg())
	c2 := Split("proj1", "a.go", text, model.CategoryCode, testCfg())
	require.Equal(t, len(c1), len(c2))
	for i := range c1 {
		assert.Equal(t, c1[i].ChunkID, c2[i].ChunkID)
	}
}

func TestChunkIDChangesWhenContentChanges(t *testing.T) {
	text1 := strings.Repeat("line\n", 40)
	text2 := strings.Repeat("other\n", 40)
	c1 := Split("proj1", "a.go", text1, model.CategoryCode, testCfg())
	c2 := Split("proj1", "a.go", text2, model.CategoryCode, testCfg())
	require.NotEmpty(t, c1)
	require.NotEmpty(t, c2)
	assert.NotEqual(t, c1[0].ChunkID, c2[0].ChunkID)
}

func TestSplitDocPrefersParagraphBoundaries(t *testing.T) {
	para := "This is one paragraph of prose that goes on a while to pad length.\n\n"
	text := strings.Repeat(para, 6)
	chunks := Split("proj1", "readme.md", text, model.CategoryDoc, testCfg())
	require.True(t, len(chunks) >= 1)
	assert.Equal(t, model.StrategyParagraph, chunks[0].Strategy)
}

func TestSplitFallsBackToHardCutWithoutNaturalBoundary(t *testing.T) {
	text := strings.Repeat("x", 500) // no newlines, no paragraph breaks
	chunks := Split("proj1", "data.csv", text, model.CategoryData, testCfg())
	require.True(t, len(chunks) > 1)
	assert.Equal(t, model.StrategyFixed, chunks[0].Strategy)
}

func TestNeedsRechunk(t *testing.T) {
	assert.True(t, NeedsRechunk("", "abc"))
	assert.True(t, NeedsRechunk("abc", "def"))
	assert.False(t, NeedsRechunk("abc", "abc"))
}
