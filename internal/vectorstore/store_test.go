package vectorstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/config"
)

func TestSplitHostPort(t *testing.T) {
	host, port := splitHostPort("http://localhost:6334")
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 6334, port)

	host, port = splitHostPort("qdrant.internal:9000")
	assert.Equal(t, "qdrant.internal", host)
	assert.Equal(t, 9000, port)
}

func TestPointIDIsStableAndUUIDShaped(t *testing.T) {
	id1 := pointID("abc123")
	id2 := pointID("abc123")
	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 36)
	assert.NotEqual(t, id1, pointID("xyz789"))
}

// openTestStore connects to a live Qdrant instance when
// VERACITY_TEST_QDRANT_URL is set; otherwise it skips, mirroring the
// short-mode integration skip pattern used for graphstore.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping vector store integration test in short mode")
	}
	url := os.Getenv("VERACITY_TEST_QDRANT_URL")
	if url == "" {
		t.Skip("VERACITY_TEST_QDRANT_URL not set")
	}
	store, err := Open(config.VectorConfig{URL: url, Dimensions: 8}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestEnsureCollectionAndUpsertRoundTrip(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx, "it-proj"))
	require.NoError(t, store.Upsert(ctx, "it-proj", []Point{
		{ChunkID: "chunk-1", Vector: []float32{1, 0, 0, 0, 0, 0, 0, 0}, Project: "it-proj"},
	}))

	points, scores, err := store.Search(ctx, "it-proj", []float32{1, 0, 0, 0, 0, 0, 0, 0}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, points)
	assert.NotEmpty(t, scores)
}
