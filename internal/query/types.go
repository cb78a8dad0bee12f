// Package query implements C7, the Engineering Context Agent: intent
// classification, dual-backend fan-out, deterministic merge and rank,
// veracity validation, and evidence packet assembly (spec §4.6).
package query

// Request is the query engine's input, mirroring the POST /query body
// and the query_codebase tool argument set (spec §6).
type Request struct {
	Query     string   `json:"query"`
	RequestID string   `json:"request_id"`
	Timestamp string   `json:"timestamp"`
	Project   string   `json:"project,omitempty"`
	Context   []string `json:"context,omitempty"`
	Mode      string   `json:"mode,omitempty"` // one_shot (default) | conversational
}

const (
	ModeOneShot       = "one_shot"
	ModeConversational = "conversational"
)

// Status is the packet's top-level outcome, fixed by the graph/vector
// availability table in spec §4.6.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusPartial     Status = "partial"
	StatusUnavailable Status = "unavailable"
)

const fallbackMessage = "SYSTEM IS UNAVAILABLE, USE WEB & CODEBASE RESEARCH"

// SemanticMatch is one vector-search hit in the public evidence packet.
type SemanticMatch struct {
	Content   string  `json:"content"`
	Score     float64 `json:"score"`
	Source    string  `json:"source"`
	Type      string  `json:"type"` // code | doc | comment
	LineStart int     `json:"line_start,omitempty"`
	LineEnd   int     `json:"line_end,omitempty"`
	Language  string  `json:"language,omitempty"`
}

// StructuralRelationship is one graph-search hit in the public packet.
type StructuralRelationship struct {
	Source      string   `json:"source"`
	Target      string   `json:"target"`
	Type        string   `json:"type"`
	Path        []string `json:"path,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// SemanticResults is the packet's `results.semantic` section.
type SemanticResults struct {
	Summary string          `json:"summary"`
	Matches []SemanticMatch `json:"matches"`
}

// StructuralResults is the packet's `results.structural` section.
type StructuralResults struct {
	Summary       string                    `json:"summary"`
	Relationships []StructuralRelationship `json:"relationships"`
}

// Insights is the non-generative summary built only from retrieved
// evidence (spec §4.6: "no freeform synthesis").
type Insights struct {
	Summary         string   `json:"summary"`
	KeyFindings     []string `json:"key_findings"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Results is the packet's `results` object.
type Results struct {
	Semantic    *SemanticResults   `json:"semantic,omitempty"`
	Structural  *StructuralResults `json:"structural,omitempty"`
	Insights    *Insights          `json:"insights,omitempty"`
}

// ResultSize reports the packet's payload footprint. Packets are
// returned whole whatever their size; nothing streams or compresses
// them, so Compressed is always false.
type ResultSize struct {
	TotalBytes               int  `json:"total_bytes"`
	SemanticMatches          int  `json:"semantic_matches"`
	StructuralRelationships  int  `json:"structural_relationships"`
	Compressed               bool `json:"compressed"`
}

// Meta carries the packet's operational metadata.
type Meta struct {
	GraphQueried    bool       `json:"graph_queried"`
	VectorQueried   bool       `json:"vector_queried"`
	GraphLatencyMs  int64      `json:"graph_latency_ms"`
	VectorLatencyMs int64      `json:"vector_latency_ms"`
	TotalLatencyMs  int64      `json:"total_latency_ms"`
	CacheHit        bool       `json:"cache_hit"`
	ResultSize      ResultSize `json:"result_size"`
}

// VeracityInfo surfaces C8's report on the packet. This is an additive
// field beyond the schema excerpt in spec §6 (which elides it with
// "..."); the audit log's `confidence_score` field (spec §6 persisted
// state layout) has to come from somewhere on the response, so it is
// carried here rather than invented as a side channel.
type VeracityInfo struct {
	ConfidenceScore int      `json:"confidence_score"`
	Faults          []string `json:"faults,omitempty"`
}

// Clarification is returned instead of Results when the ambiguity gate
// (spec §4.6 step 2, §4.10) fires. It is additive to the schema.
type Clarification struct {
	Question  string   `json:"question"`
	Intent    string   `json:"intent"`
	Round     int      `json:"round"`
	MaxRounds int      `json:"max_rounds"`
}

// Response is the v1.0 evidence packet (spec §6).
type Response struct {
	SchemaVersion   string         `json:"schema_version"`
	RequestID       string         `json:"request_id"`
	Status          Status         `json:"status"`
	Timestamp       string         `json:"timestamp"`
	QueryType       string         `json:"query_type"`
	Results         Results        `json:"results"`
	Warnings        []string       `json:"warnings,omitempty"`
	FallbackMessage string         `json:"fallback_message,omitempty"`
	Meta            Meta           `json:"meta"`
	Veracity        *VeracityInfo  `json:"veracity,omitempty"`
	Clarification   *Clarification `json:"clarification,omitempty"`
}

const SchemaVersion = "1.0"
