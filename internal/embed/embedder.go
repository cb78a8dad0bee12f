// Package embed implements C4: batched, cached, circuit-breaker-
// wrapped calls to a pinned embedding model.
package embed

import (
	"context"
	"crypto/sha512"
	"encoding/binary"
	"math"
)

const (
	// DocumentPrefix and QueryPrefix are the pinned prompt prefixes
	// from spec §4.4: indexing and querying must never share a prefix,
	// since embedding models are prefix-sensitive.
	DocumentPrefix = "search_document: "
	QueryPrefix    = "search_query: "
)

// Embedder generates vectors for a batch of texts already carrying
// their prompt prefix. Implementations must be deterministic for a
// fixed (modelVersion, seed) pair.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelVersion() string
}

// Deterministic is a seeded, hash-based embedder: it needs no network
// and no model weights, making ingestion and query embedding
// reproducible byte-for-byte in tests and in environments without a
// real model endpoint wired in. It is not a semantic embedder — the
// cosine-similarity structure it produces is for exercising the
// query and storage pipeline, not for judging real relevance.
type Deterministic struct {
	modelVersion string
	dimensions   int
	seed         int64
}

// NewDeterministic builds a Deterministic embedder pinned to
// modelVersion/dimensions/seed, per the config's EmbedConfig.
func NewDeterministic(modelVersion string, dimensions int, seed int64) *Deterministic {
	return &Deterministic{modelVersion: modelVersion, dimensions: dimensions, seed: seed}
}

func (d *Deterministic) Dimensions() int     { return d.dimensions }
func (d *Deterministic) ModelVersion() string { return d.modelVersion }

// EmbedBatch never fails; it derives each vector from a seeded hash
// of the text so identical (model_version, seed, text) triples always
// produce identical vectors (spec §4.4 determinism requirement).
func (d *Deterministic) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = normalizeVector(d.vectorFor(text))
	}
	return out, nil
}

func (d *Deterministic) vectorFor(text string) []float32 {
	var seedBuf [8]byte
	binary.LittleEndian.PutUint64(seedBuf[:], uint64(d.seed))

	vec := make([]float32, d.dimensions)
	block := 0
	for i := 0; i < d.dimensions; i += 8 {
		h := sha512.New()
		h.Write(seedBuf[:])
		h.Write([]byte(text))
		var blockBuf [4]byte
		binary.LittleEndian.PutUint32(blockBuf[:], uint32(block))
		h.Write(blockBuf[:])
		digest := h.Sum(nil)

		for j := 0; j < 8 && i+j < d.dimensions; j++ {
			u := binary.LittleEndian.Uint64(digest[j*8 : j*8+8])
			vec[i+j] = float32(int64(u)%2000-1000) / 1000.0
		}
		block++
	}
	return vec
}

// normalizeVector scales v to unit length, grounded on the same
// normalization every downstream cosine-similarity backend expects.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / magnitude)
	}
	return out
}
