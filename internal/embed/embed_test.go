package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/config"
	"github.com/veracity-dev/ess/internal/esserr"
)

func TestDeterministicEmbedderIsReproducible(t *testing.T) {
	e := NewDeterministic("ess-embed-v1", 768, 42)
	v1, err := e.EmbedBatch(context.Background(), []string{"search_document: hello world"})
	require.NoError(t, err)
	v2, err := e.EmbedBatch(context.Background(), []string{"search_document: hello world"})
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Len(t, v1[0], 768)
}

func TestDeterministicEmbedderDiffersByText(t *testing.T) {
	e := NewDeterministic("ess-embed-v1", 768, 42)
	v, err := e.EmbedBatch(context.Background(), []string{"search_document: a", "search_document: b"})
	require.NoError(t, err)
	assert.NotEqual(t, v[0], v[1])
}

func TestDeterministicEmbedderDiffersBySeed(t *testing.T) {
	e1 := NewDeterministic("ess-embed-v1", 128, 1)
	e2 := NewDeterministic("ess-embed-v1", 128, 2)
	v1, _ := e1.EmbedBatch(context.Background(), []string{"same text"})
	v2, _ := e2.EmbedBatch(context.Background(), []string{"same text"})
	assert.NotEqual(t, v1[0], v2[0])
}

func TestServiceAppliesPrefixesAndCaches(t *testing.T) {
	e := NewDeterministic("ess-embed-v1", 64, 42)
	cfg := config.EmbedConfig{Dimensions: 64, BatchSize: 2, CacheSize: 100}
	svc, err := NewService(e, cfg, esserr.NewCircuitBreaker("embedder"), zap.NewNop())
	require.NoError(t, err)

	result, err := svc.EmbedDocuments(context.Background(), []string{"foo", "bar"})
	require.NoError(t, err)
	assert.Empty(t, result.Failed)
	assert.Len(t, result.Vectors, 2)

	queryVec, err := svc.EmbedQuery(context.Background(), "foo")
	require.NoError(t, err)
	docVec, err := svc.EmbedDocuments(context.Background(), []string{"foo"})
	require.NoError(t, err)
	assert.NotEqual(t, queryVec, docVec.Vectors[0], "document and query prefixes must yield different vectors")
}

type countingEmbedder struct {
	*Deterministic
	calls int
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	return c.Deterministic.EmbedBatch(ctx, texts)
}

func TestServiceCacheHitAvoidsRecompute(t *testing.T) {
	e := &countingEmbedder{Deterministic: NewDeterministic("ess-embed-v1", 32, 42)}
	cfg := config.EmbedConfig{Dimensions: 32, BatchSize: 8, CacheSize: 10}
	svc, err := NewService(e, cfg, esserr.NewCircuitBreaker("embedder"), zap.NewNop())
	require.NoError(t, err)

	r1, err := svc.EmbedDocuments(context.Background(), []string{"x"})
	require.NoError(t, err)
	r2, err := svc.EmbedDocuments(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, r1.Vectors[0], r2.Vectors[0])
	assert.Equal(t, 1, e.calls, "second call must be served from the cache")
}
