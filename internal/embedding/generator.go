// Package embedding generates dense vector embeddings for concept text,
// with per-concept-type/attribute model routing and KMS-definition
// enrichment for shared vocabulary terms.
package embedding

import "context"

// Generator produces an embedding vector for a piece of text. ConceptType
// and Attribute are optional routing hints; implementations that don't
// route on them ignore them.
type Generator interface {
	Generate(ctx context.Context, text string, conceptType, attribute string) ([]float32, error)
	ModelID() string
}
