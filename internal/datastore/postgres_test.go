package datastore

import (
	"context"
	"testing"

	"github.com/nasa/earthdata-mcp/internal/domain"
	"github.com/nasa/earthdata-mcp/internal/platform/logger"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	return log
}

func TestUpsertChunksReplacesExistingSet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n, err := store.UpsertChunks(ctx, "collection", "C1-PROV", []domain.ChunkEmbedding{
		{Attribute: "title", TextContent: "A Title", Embedding: []float32{0.1, 0.2}},
		{Attribute: "abstract", TextContent: "An abstract", Embedding: []float32{0.3, 0.4}},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// A redelivered update with a smaller chunk set should fully replace
	// the old set, not append to it.
	n, err = store.UpsertChunks(ctx, "collection", "C1-PROV", []domain.ChunkEmbedding{
		{Attribute: "title", TextContent: "A New Title", Embedding: []float32{0.5, 0.6}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	var count int64
	require.NoError(t, store.db.Model(&conceptEmbeddingRow{}).Where("concept_id = ?", "C1-PROV").Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestDeleteChunks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertChunks(ctx, "collection", "C2", []domain.ChunkEmbedding{
		{Attribute: "title", TextContent: "t", Embedding: []float32{1}},
	})
	require.NoError(t, err)

	deleted, err := store.DeleteChunks(ctx, "C2")
	require.NoError(t, err)
	require.Equal(t, 1, deleted)
}

func TestUpsertAssociationsMapsKeysToConceptTypes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n, err := store.UpsertAssociations(ctx, "collection", "C1", map[string][]string{
		"variables": {"V1", "V2"},
		"citations": {"CI1"},
	})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	var rows []conceptAssociationRow
	require.NoError(t, store.db.Where("left_concept_id = ?", "C1").Find(&rows).Error)
	require.Len(t, rows, 3)

	var variableRow conceptAssociationRow
	for _, r := range rows {
		if r.RightConceptID == "V1" {
			variableRow = r
		}
	}
	require.Equal(t, "variable", variableRow.RightConceptType)
}

func TestDeleteAssociationsMatchesEitherSide(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertAssociations(ctx, "collection", "C1", map[string][]string{"variables": {"V1"}})
	require.NoError(t, err)

	deleted, err := store.DeleteAssociations(ctx, "V1")
	require.NoError(t, err)
	require.Equal(t, 1, deleted)
}

func TestUpsertKMSEmbeddingInsertThenUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	def := "Moderate Resolution Imaging Spectroradiometer"
	inserted, err := store.UpsertKMSEmbedding(ctx, "uuid-1", "instruments", "MODIS", &def, []float32{0.1, 0.2})
	require.NoError(t, err)
	require.True(t, inserted)

	row, err := store.GetKMSEmbedding(ctx, "uuid-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	require.Equal(t, "MODIS", row.Term)
	require.Equal(t, []float32{0.1, 0.2}, row.Embedding)

	newDef := "Updated definition"
	inserted, err = store.UpsertKMSEmbedding(ctx, "uuid-1", "instruments", "MODIS", &newDef, []float32{0.5})
	require.NoError(t, err)
	require.False(t, inserted)

	row, err = store.GetKMSEmbedding(ctx, "uuid-1")
	require.NoError(t, err)
	require.Equal(t, "Updated definition", *row.Definition)
}

func TestGetKMSEmbeddingNotFound(t *testing.T) {
	store := newTestStore(t)
	row, err := store.GetKMSEmbedding(context.Background(), "missing")
	require.NoError(t, err)
	require.Nil(t, row)
}

func TestConceptKMSAssociationsUpsertAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n, err := store.UpsertConceptKMSAssociations(ctx, "collection", "C1", []string{"uuid-1", "uuid-2"})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	deleted, err := store.DeleteConceptKMSAssociations(ctx, "C1")
	require.NoError(t, err)
	require.Equal(t, 2, deleted)
}
