package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 768, cfg.Embed.Dimensions)
	assert.Equal(t, 32, cfg.Embed.BatchSize)
	assert.Equal(t, 5, cfg.Circuit.FailureThreshold)
	assert.Equal(t, 3, cfg.Circuit.SuccessThreshold)
	assert.Equal(t, 15, cfg.Veracity.StaleDocPenalty)
	assert.Equal(t, 3, cfg.Conversation.MaxRounds)
}

func TestLoadAppliesEnvOverEmptyFile(t *testing.T) {
	t.Setenv("VERACITY_GRAPH_URI", "bolt://example:7687")
	t.Setenv("VERACITY_EMBED_DIMS", "1024")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "bolt://example:7687", cfg.Graph.URI)
	assert.Equal(t, 1024, cfg.Embed.Dimensions)
	assert.Equal(t, 1024, cfg.Vector.Dimensions)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load("/nonexistent/ess-config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 768, cfg.Embed.Dimensions)
}
