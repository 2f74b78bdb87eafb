package domain

import (
	"context"
	"time"
)

// Outcome is the final disposition of a historical conversation.
type Outcome string

const (
	OutcomeResolved   Outcome = "resolved"
	OutcomeUnresolved Outcome = "unresolved"
	OutcomeEscalated  Outcome = "escalated"
)

// Valid reports whether o is one of the known outcome values.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeResolved, OutcomeUnresolved, OutcomeEscalated:
		return true
	}
	return false
}

// CaseRecord is a single historical conversation in the knowledge base.
// The embedding is produced once at ingestion time and never mutated;
// outcome corrections happen by upserting a replacement record.
type CaseRecord struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	Embedding    []float64 `json:"embedding"`
	Outcome      Outcome   `json:"outcome"`
	Topic        string    `json:"topic"`
	Timestamp    time.Time `json:"timestamp"`
	DurationSecs float64   `json:"duration_secs"`
	MessageCount int       `json:"message_count"`
}

// CaseSummary is the caller-facing projection of a retrieved case.
type CaseSummary struct {
	ID      string
	Topic   string
	Outcome Outcome
	Score   float64
	Excerpt string
}

// Hit is one scored match returned by a similarity index.
type Hit struct {
	ID    string
	Score float64
}

// Embedder converts free text into a fixed-dimension numeric vector.
// The dimension is fixed per embedder instance; mixing embedders within
// one knowledge base is disallowed. Embed is the only operation in the
// system that may perform network I/O, so it takes a context.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Index answers k-nearest-neighbor queries over case embeddings.
type Index interface {
	Build(records []CaseRecord) error
	Query(vector []float64, k int) ([]Hit, error)
}
