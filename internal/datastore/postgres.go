package datastore

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/nasa/earthdata-mcp/internal/domain"
	"github.com/nasa/earthdata-mcp/internal/platform/apierr"
	"github.com/nasa/earthdata-mcp/internal/platform/logger"
)

// PostgresStore is the Postgres/pgvector Datastore implementation.
type PostgresStore struct {
	db  *gorm.DB
	log *logger.Logger
}

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

func NewPostgresStore(baseLog *logger.Logger, cfg Config) (*PostgresStore, error) {
	storeLog := baseLog.With("service", "PostgresStore")

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name,
	)

	gormLog := gormLogger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	storeLog.Info("connecting to postgres")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, apierr.Storage(fmt.Errorf("connect to postgres: %w", err))
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error; err != nil {
		return nil, apierr.Storage(fmt.Errorf("enable pgvector extension: %w", err))
	}

	store := &PostgresStore{db: db, log: storeLog}
	if err := store.autoMigrate(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) autoMigrate() error {
	s.log.Info("auto migrating datastore tables")
	if err := s.db.AutoMigrate(
		&conceptEmbeddingRow{},
		&conceptAssociationRow{},
		&kmsEmbeddingRow{},
		&conceptKMSAssociationRow{},
	); err != nil {
		return apierr.Storage(fmt.Errorf("auto migrate: %w", err))
	}
	return nil
}

func onConflictDoNothing(columns ...string) clause.OnConflict {
	cols := make([]clause.Column, len(columns))
	for i, c := range columns {
		cols[i] = clause.Column{Name: c}
	}
	return clause.OnConflict{Columns: cols, DoNothing: true}
}

func onConflictUpdateKMS() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "kms_uuid"}},
		DoUpdates: clause.AssignmentColumns([]string{"definition", "embedding", "updated_at"}),
	}
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertChunks replaces every embedding chunk stored for conceptID with the
// given set: delete-then-insert inside one transaction, matching the
// Python datastore's delete/insert-in-one-commit semantics. This makes a
// redelivered "concept-update" message self-correcting: the old chunk set
// never lingers alongside the new one.
func (s *PostgresStore) UpsertChunks(ctx context.Context, conceptType, conceptID string, chunks []domain.ChunkEmbedding) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	rows := make([]conceptEmbeddingRow, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, conceptEmbeddingRow{
			ID:          uuid.NewString(),
			ConceptType: conceptType,
			ConceptID:   conceptID,
			Attribute:   c.Attribute,
			TextContent: c.TextContent,
			Embedding:   Vector(c.Embedding),
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("concept_id = ?", conceptID).Delete(&conceptEmbeddingRow{}).Error; err != nil {
			return err
		}
		const batchSize = 100
		return tx.CreateInBatches(rows, batchSize).Error
	})
	if err != nil {
		return 0, apierr.Storage(fmt.Errorf("upsert chunks for %s: %w", conceptID, err))
	}

	s.log.Info("upserted chunks", "concept_id", conceptID, "count", len(rows))
	return len(rows), nil
}

func (s *PostgresStore) DeleteChunks(ctx context.Context, conceptID string) (int, error) {
	res := s.db.WithContext(ctx).Where("concept_id = ?", conceptID).Delete(&conceptEmbeddingRow{})
	if res.Error != nil {
		return 0, apierr.Storage(fmt.Errorf("delete chunks for %s: %w", conceptID, res.Error))
	}
	return int(res.RowsAffected), nil
}

// UpsertAssociations replaces every association where conceptID is the
// left-hand side with the given set.
func (s *PostgresStore) UpsertAssociations(ctx context.Context, conceptType, conceptID string, associations map[string][]string) (int, error) {
	if len(associations) == 0 {
		return 0, nil
	}

	count := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("left_concept_id = ?", conceptID).Delete(&conceptAssociationRow{}).Error; err != nil {
			return err
		}

		for assocKey, rightConceptType := range associationTypeMap {
			for _, rightConceptID := range associations[assocKey] {
				row := conceptAssociationRow{
					ID:               uuid.NewString(),
					LeftConceptType:  conceptType,
					LeftConceptID:    conceptID,
					RightConceptType: rightConceptType,
					RightConceptID:   rightConceptID,
				}
				if err := tx.Clauses(onConflictDoNothing("left_concept_id", "right_concept_id")).Create(&row).Error; err != nil {
					return err
				}
				count++
			}
		}
		return nil
	})
	if err != nil {
		return 0, apierr.Storage(fmt.Errorf("upsert associations for %s: %w", conceptID, err))
	}
	return count, nil
}

func (s *PostgresStore) DeleteAssociations(ctx context.Context, conceptID string) (int, error) {
	res := s.db.WithContext(ctx).
		Where("left_concept_id = ? OR right_concept_id = ?", conceptID, conceptID).
		Delete(&conceptAssociationRow{})
	if res.Error != nil {
		return 0, apierr.Storage(fmt.Errorf("delete associations for %s: %w", conceptID, res.Error))
	}
	return int(res.RowsAffected), nil
}

// UpsertKMSEmbedding inserts or updates a shared KMS term embedding,
// returning true when a new row was inserted (as opposed to an existing
// term's definition/embedding being refreshed).
func (s *PostgresStore) UpsertKMSEmbedding(ctx context.Context, uuidStr, scheme, term string, definition *string, embedding []float32) (bool, error) {
	var existing kmsEmbeddingRow
	err := s.db.WithContext(ctx).Where("kms_uuid = ?", uuidStr).First(&existing).Error
	inserted := err == gorm.ErrRecordNotFound

	row := kmsEmbeddingRow{
		KMSUUID:    uuidStr,
		Scheme:     scheme,
		Term:       term,
		Definition: definition,
		Embedding:  Vector(embedding),
	}
	if saveErr := s.db.WithContext(ctx).Clauses(onConflictUpdateKMS()).Create(&row).Error; saveErr != nil {
		return false, apierr.Storage(fmt.Errorf("upsert kms embedding %s/%s: %w", scheme, term, saveErr))
	}

	s.log.Info("upserted kms embedding", "scheme", scheme, "term", term, "inserted", inserted)
	return inserted, nil
}

func (s *PostgresStore) GetKMSEmbedding(ctx context.Context, uuidStr string) (*domain.KMSEmbeddingRow, error) {
	var row kmsEmbeddingRow
	err := s.db.WithContext(ctx).Where("kms_uuid = ?", uuidStr).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, apierr.Storage(fmt.Errorf("get kms embedding %s: %w", uuidStr, err))
	}
	return &domain.KMSEmbeddingRow{
		KMSUUID:    row.KMSUUID,
		Scheme:     row.Scheme,
		Term:       row.Term,
		Definition: row.Definition,
		Embedding:  []float32(row.Embedding),
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

func (s *PostgresStore) UpsertConceptKMSAssociations(ctx context.Context, conceptType, conceptID string, uuids []string) (int, error) {
	if len(uuids) == 0 {
		return 0, nil
	}

	count := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("concept_id = ?", conceptID).Delete(&conceptKMSAssociationRow{}).Error; err != nil {
			return err
		}
		for _, u := range uuids {
			row := conceptKMSAssociationRow{
				ID:          uuid.NewString(),
				ConceptType: conceptType,
				ConceptID:   conceptID,
				KMSUUID:     u,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, apierr.Storage(fmt.Errorf("upsert concept kms associations for %s: %w", conceptID, err))
	}
	return count, nil
}

func (s *PostgresStore) DeleteConceptKMSAssociations(ctx context.Context, conceptID string) (int, error) {
	res := s.db.WithContext(ctx).Where("concept_id = ?", conceptID).Delete(&conceptKMSAssociationRow{})
	if res.Error != nil {
		return 0, apierr.Storage(fmt.Errorf("delete concept kms associations for %s: %w", conceptID, res.Error))
	}
	return int(res.RowsAffected), nil
}

// SearchSimilar ranks stored chunks by cosine similarity to embedding
// (1 - cosine distance, matching pgvector's <=> operator).
func (s *PostgresStore) SearchSimilar(ctx context.Context, embedding []float32, limit int, conceptType *string) ([]domain.SimilarityMatch, error) {
	if limit <= 0 {
		limit = 10
	}

	vec, err := Vector(embedding).Value()
	if err != nil {
		return nil, apierr.Storage(err)
	}

	query := s.db.WithContext(ctx).
		Model(&conceptEmbeddingRow{}).
		Select("concept_type, concept_id, attribute, text_content, 1 - (embedding <=> ?) as similarity", vec).
		Order(gorm.Expr("embedding <=> ?", vec)).
		Limit(limit)

	if conceptType != nil {
		query = query.Where("concept_type = ?", *conceptType)
	}

	var rows []struct {
		ConceptType string
		ConceptID   string
		Attribute   string
		TextContent string
		Similarity  float64
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, apierr.Storage(fmt.Errorf("search similar: %w", err))
	}

	matches := make([]domain.SimilarityMatch, 0, len(rows))
	for _, r := range rows {
		matches = append(matches, domain.SimilarityMatch{
			ConceptType: r.ConceptType,
			ConceptID:   r.ConceptID,
			Attribute:   r.Attribute,
			TextContent: r.TextContent,
			Similarity:  r.Similarity,
		})
	}
	return matches, nil
}
