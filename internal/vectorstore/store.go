// Package vectorstore implements C6: the vector index writer and
// reader backed by Qdrant, keyed by a per-project named collection.
package vectorstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/veracity-dev/ess/internal/config"
	"github.com/veracity-dev/ess/internal/esserr"
)

// Store wraps a Qdrant client, scoping every operation to a
// project-named collection (spec §3: "vector index keyed by project
// collection").
type Store struct {
	client *qdrant.Client
	dims   uint64
	log    *zap.Logger
}

// Open connects to Qdrant at cfg.URL.
func Open(cfg config.VectorConfig, log *zap.Logger) (*Store, error) {
	host, port := splitHostPort(cfg.URL)
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, esserr.Config("failed to build qdrant client", err)
	}
	return &Store{client: client, dims: uint64(cfg.Dimensions), log: log}, nil
}

// Close releases the underlying client connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func collectionName(project string) string {
	return "ess_" + project
}

// EnsureCollection creates the project's collection if absent, with
// the pinned dimensionality and cosine distance from spec §4.5.
func (s *Store) EnsureCollection(ctx context.Context, project string) error {
	name := collectionName(project)
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return esserr.Backend("vector", "collection existence check failed", err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.dims,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return esserr.Backend("vector", "collection creation failed", err)
	}
	return nil
}

// Point is one chunk or code entity vector plus the payload fields
// spec §4.5 requires for graph cross-reference.
type Point struct {
	ChunkID      string
	Vector       []float32
	GraphUID     string
	Path         string
	LineStart    int
	LineEnd      int
	Type         string
	Language     string
	Project      string
	ModelVersion string
	Content      string
}

// Upsert idempotently overwrites points keyed by chunk_id (spec
// §4.5 step 4). Point ids are derived deterministically from
// chunk_id so repeated upserts for the same chunk_id always hit the
// same Qdrant point.
func (s *Store) Upsert(ctx context.Context, project string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	qpoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		qpoints = append(qpoints, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(p.ChunkID)),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id":      p.ChunkID,
				"graph_uid":     p.GraphUID,
				"path":          p.Path,
				"line_start":    p.LineStart,
				"line_end":      p.LineEnd,
				"type":          p.Type,
				"language":      p.Language,
				"project":       p.Project,
				"model_version": p.ModelVersion,
				"content":       p.Content,
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName(project),
		Points:         qpoints,
	})
	if err != nil {
		return esserr.Backend("vector", "upsert failed", err)
	}
	return nil
}

// pointID derives a stable UUID-shaped string id from a chunk_id so
// re-ingestion of unchanged chunks always overwrites the same point
// rather than duplicating it.
func pointID(chunkID string) string {
	sum := md5.Sum([]byte(chunkID))
	var buf [16]byte
	copy(buf[:], sum[:])
	buf[6] = (buf[6] & 0x0f) | 0x40
	buf[8] = (buf[8] & 0x3f) | 0x80
	return fmtUUID(buf)
}

func fmtUUID(b [16]byte) string {
	h := hex.EncodeToString(b[:])
	return h[0:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:32]
}

// Search performs a cosine-similarity top-K search within a project's
// collection, per spec §4.6 step 4 semantic fan-out.
func (s *Store) Search(ctx context.Context, project string, vector []float32, limit uint64) ([]Point, []float32, error) {
	result, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionName(project),
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, nil, esserr.Backend("vector", "semantic search failed", err)
	}

	points := make([]Point, 0, len(result))
	scores := make([]float32, 0, len(result))
	for _, r := range result {
		payload := r.GetPayload()
		points = append(points, Point{
			ChunkID:      stringField(payload, "chunk_id"),
			GraphUID:     stringField(payload, "graph_uid"),
			Path:         stringField(payload, "path"),
			LineStart:    intField(payload, "line_start"),
			LineEnd:      intField(payload, "line_end"),
			Type:         stringField(payload, "type"),
			Language:     stringField(payload, "language"),
			Project:      stringField(payload, "project"),
			ModelVersion: stringField(payload, "model_version"),
			Content:      stringField(payload, "content"),
		})
		scores = append(scores, r.GetScore())
	}
	return points, scores, nil
}

func stringField(payload map[string]*qdrant.Value, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	return v.GetStringValue()
}

func intField(payload map[string]*qdrant.Value, key string) int {
	v, ok := payload[key]
	if !ok || v == nil {
		return 0
	}
	return int(v.GetIntegerValue())
}

// splitHostPort splits cfg.URL ("http://host:port") into a host/port
// pair the gRPC client dials. Kept intentionally simple: the config's
// URL is operator-controlled, not attacker-controlled input.
func splitHostPort(raw string) (string, int) {
	start := 0
	for i := 0; i+1 < len(raw); i++ {
		if raw[i] == '/' && raw[i+1] == '/' {
			start = i + 2
			break
		}
	}
	rest := raw[start:]
	host, portStr := "localhost", "6334"
	for i := 0; i < len(rest); i++ {
		if rest[i] == ':' {
			host = rest[:i]
			portStr = rest[i+1:]
			break
		}
	}
	if host == "" {
		host = "localhost"
	}
	port := 0
	for _, r := range portStr {
		if r < '0' || r > '9' {
			break
		}
		port = port*10 + int(r-'0')
	}
	if port == 0 {
		port = 6334
	}
	return host, port
}
