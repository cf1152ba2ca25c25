// Package datastore is the gorm/pgx-backed Postgres+pgvector implementation
// of the embedding pipeline's storage layer: chunk embeddings, concept
// associations, and the shared KMS term vocabulary.
package datastore

import (
	"context"

	"github.com/nasa/earthdata-mcp/internal/domain"
)

// Datastore is the storage contract every Lambda handler programs against.
// A Postgres implementation is provided by this package; tests use an
// in-memory fake (see internal/embedhandler's fakeStore).
type Datastore interface {
	UpsertChunks(ctx context.Context, conceptType, conceptID string, chunks []domain.ChunkEmbedding) (int, error)
	DeleteChunks(ctx context.Context, conceptID string) (int, error)

	UpsertAssociations(ctx context.Context, conceptType, conceptID string, associations map[string][]string) (int, error)
	DeleteAssociations(ctx context.Context, conceptID string) (int, error)

	UpsertKMSEmbedding(ctx context.Context, uuid, scheme, term string, definition *string, embedding []float32) (bool, error)
	GetKMSEmbedding(ctx context.Context, uuid string) (*domain.KMSEmbeddingRow, error)

	UpsertConceptKMSAssociations(ctx context.Context, conceptType, conceptID string, uuids []string) (int, error)
	DeleteConceptKMSAssociations(ctx context.Context, conceptID string) (int, error)

	SearchSimilar(ctx context.Context, embedding []float32, limit int, conceptType *string) ([]domain.SimilarityMatch, error)

	Close() error
}
