package domain

import "time"

// Row types are the public, storage-agnostic shapes returned from
// Datastore query methods: a stored KMS term row and a similarity-search
// result; internal/datastore maps them from its own gorm-tagged models.

// KMSEmbeddingRow describes a shared vocabulary term (instrument, platform,
// science keyword) with its own embedding, stored once and referenced by
// every concept that uses it.
type KMSEmbeddingRow struct {
	KMSUUID    string
	Scheme     string
	Term       string
	Definition *string
	Embedding  []float32
	UpdatedAt  time.Time
}

// SimilarityMatch is one result row of a SearchSimilar query.
type SimilarityMatch struct {
	ConceptType string
	ConceptID   string
	Attribute   string
	TextContent string
	Similarity  float64
}
