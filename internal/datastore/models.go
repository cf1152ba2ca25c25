package datastore

import "time"

// Gorm-tagged row models for the four tables this datastore owns. These
// are private to the package; internal/datastore translates to and from
// the storage-agnostic domain row types at the interface boundary.

type conceptEmbeddingRow struct {
	ID          string `gorm:"column:id;primaryKey"`
	ConceptType string `gorm:"column:concept_type;index"`
	ConceptID   string `gorm:"column:concept_id;index"`
	Attribute   string `gorm:"column:attribute"`
	TextContent string `gorm:"column:text_content"`
	Embedding   Vector `gorm:"column:embedding"`
}

func (conceptEmbeddingRow) TableName() string { return "concept_embeddings" }

type conceptAssociationRow struct {
	ID               string `gorm:"column:id;primaryKey"`
	LeftConceptType  string `gorm:"column:left_concept_type"`
	LeftConceptID    string `gorm:"column:left_concept_id;index:idx_assoc_left;uniqueIndex:idx_assoc_pair,priority:1"`
	RightConceptType string `gorm:"column:right_concept_type"`
	RightConceptID   string `gorm:"column:right_concept_id;index:idx_assoc_right;uniqueIndex:idx_assoc_pair,priority:2"`
}

func (conceptAssociationRow) TableName() string { return "concept_associations" }

type kmsEmbeddingRow struct {
	KMSUUID    string    `gorm:"column:kms_uuid;primaryKey"`
	Scheme     string    `gorm:"column:scheme"`
	Term       string    `gorm:"column:term"`
	Definition *string   `gorm:"column:definition"`
	Embedding  Vector    `gorm:"column:embedding"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (kmsEmbeddingRow) TableName() string { return "kms_embeddings" }

type conceptKMSAssociationRow struct {
	ID          string `gorm:"column:id;primaryKey"`
	ConceptType string `gorm:"column:concept_type"`
	ConceptID   string `gorm:"column:concept_id;index"`
	KMSUUID     string `gorm:"column:kms_uuid;index"`
}

func (conceptKMSAssociationRow) TableName() string { return "concept_kms_associations" }

// associationTypeMap maps the CMR association response keys to the
// concept type of the right-hand side of the link.
var associationTypeMap = map[string]string{
	"variables": "variable",
	"citations": "citation",
}
