// Package queue abstracts the durable FIFO queue sitting between the
// ingest handler (and the bootstrap driver) and the embedding handler.
package queue

import (
	"context"
	"fmt"

	"github.com/nasa/earthdata-mcp/internal/domain"
)

// Entry is a single message to enqueue, addressable by caller-assigned ID
// so a batch send can report which entries failed.
type Entry struct {
	ID      string
	Message domain.ConceptMessage
}

// SendResult reports per-entry outcomes of a batch send.
type SendResult struct {
	Successful []string
	Failed     []FailedEntry
}

type FailedEntry struct {
	ID      string
	Code    string
	Message string
}

// Queue is the durable FIFO queue contract. Implementations must derive
// MessageGroupId as "{concept_type}:{concept_id}" and
// MessageDeduplicationId as "{concept_id}:{revision_id}" so that same-
// concept events stay ordered and duplicate revisions dedupe, per the
// pipeline's FIFO delivery contract.
type Queue interface {
	Send(ctx context.Context, msg domain.ConceptMessage) (messageID string, err error)
	SendBatch(ctx context.Context, entries []Entry) (SendResult, error)
}

func groupID(msg domain.ConceptMessage) string {
	return fmt.Sprintf("%s:%s", msg.ConceptType, msg.ConceptID)
}

func dedupeID(msg domain.ConceptMessage) string {
	return fmt.Sprintf("%s:%d", msg.ConceptID, msg.RevisionID)
}
