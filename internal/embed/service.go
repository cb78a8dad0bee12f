package embed

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/config"
	"github.com/veracity-dev/ess/internal/esserr"
)

// Service wraps an Embedder with the ambient concerns spec §4.4
// mandates: batching, a cache keyed by (model_version, prefix, text),
// a per-batch timeout, circuit-breaker gating, and retry with
// exponential backoff. A batch that exhausts its retries is reported
// per-text as an embedding-missing fault rather than failing the
// whole request.
type Service struct {
	embedder Embedder
	cfg      config.EmbedConfig
	breaker  *esserr.CircuitBreaker
	cache    *lru.Cache[string, []float32]
	log      *zap.Logger
}

// NewService builds a Service over embedder, sized per cfg.
func NewService(embedder Embedder, cfg config.EmbedConfig, breaker *esserr.CircuitBreaker, log *zap.Logger) (*Service, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = 10000
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, esserr.Internal("failed to create embedding cache", err)
	}
	return &Service{embedder: embedder, cfg: cfg, breaker: breaker, cache: cache, log: log}, nil
}

// BatchResult pairs each input index with its vector, or records it
// as failed when the batch's embedding call could not be completed.
type BatchResult struct {
	Vectors [][]float32
	Failed  []int // indices into the input slice that could not be embedded
}

// EmbedDocuments embeds chunk/entity texts for indexing, applying the
// document prompt prefix.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) (BatchResult, error) {
	return s.embed(ctx, texts, DocumentPrefix)
}

// EmbedQuery embeds a single query string, applying the query prompt
// prefix (spec §4.6 step 3).
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	result, err := s.embed(ctx, []string{text}, QueryPrefix)
	if err != nil {
		return nil, err
	}
	if len(result.Failed) > 0 {
		return nil, esserr.EmbeddingMissing("query", nil)
	}
	return result.Vectors[0], nil
}

func (s *Service) embed(ctx context.Context, texts []string, prefix string) (BatchResult, error) {
	result := BatchResult{Vectors: make([][]float32, len(texts))}

	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	pending := make([]int, 0, len(texts))
	pendingTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		key := s.cacheKey(prefix, text)
		if vec, ok := s.cache.Get(key); ok {
			result.Vectors[i] = vec
			continue
		}
		pending = append(pending, i)
		pendingTexts = append(pendingTexts, prefix+text)
	}

	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		idxSlice := pending[start:end]
		textSlice := pendingTexts[start:end]

		vectors, err := s.embedBatchWithResilience(ctx, textSlice)
		if err != nil {
			for _, idx := range idxSlice {
				result.Failed = append(result.Failed, idx)
			}
			s.log.Warn("embedding batch failed", zap.Int("batch_size", len(textSlice)), zap.Error(err))
			continue
		}
		for j, idx := range idxSlice {
			result.Vectors[idx] = vectors[j]
			s.cache.Add(s.cacheKey(prefix, texts[idx]), vectors[j])
		}
	}

	return result, nil
}

func (s *Service) embedBatchWithResilience(ctx context.Context, texts []string) ([][]float32, error) {
	allowed, circuitErr := s.breaker.Allow()
	if !allowed {
		return nil, esserr.Backend("embedder", "embedding circuit open", circuitErr)
	}

	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var vectors [][]float32
	retryCfg := esserr.DefaultRetryConfig()
	err := esserr.Retry(ctx, retryCfg, func() error {
		batchCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		v, embedErr := s.embedder.EmbedBatch(batchCtx, texts)
		if embedErr != nil {
			if batchCtx.Err() != nil {
				return esserr.TimeoutErr("embedder", "embedding batch timed out", embedErr)
			}
			return esserr.Backend("embedder", "embedding batch failed", embedErr)
		}
		vectors = v
		return nil
	})

	if err != nil {
		s.breaker.RecordFailure()
		return nil, err
	}
	s.breaker.RecordSuccess()
	return vectors, nil
}

func (s *Service) cacheKey(prefix, text string) string {
	return s.embedder.ModelVersion() + "|" + prefix + "|" + text
}
