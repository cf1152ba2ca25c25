package datastore

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestStore builds a PostgresStore backed by an in-memory sqlite DB.
// SearchSimilar's pgvector-specific `<=>` operator isn't exercised here
// (sqlite has no such operator); it's covered by the Postgres dialect
// directly in staging, not by this unit test suite.
func newTestStore(t *testing.T) *PostgresStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&conceptEmbeddingRow{},
		&conceptAssociationRow{},
		&kmsEmbeddingRow{},
		&conceptKMSAssociationRow{},
	))

	return &PostgresStore{db: db, log: testLogger(t)}
}
