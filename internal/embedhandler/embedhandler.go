// Package embedhandler implements the SQS-triggered Lambda that consumes
// concept events off the FIFO queue and orchestrates the full
// fetch -> extract -> embed -> enrich -> store pipeline (or, for
// deletes, the corresponding teardown).
package embedhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"golang.org/x/sync/errgroup"

	"github.com/nasa/earthdata-mcp/internal/cmr"
	"github.com/nasa/earthdata-mcp/internal/datastore"
	"github.com/nasa/earthdata-mcp/internal/domain"
	"github.com/nasa/earthdata-mcp/internal/embedding"
	"github.com/nasa/earthdata-mcp/internal/extractor"
	"github.com/nasa/earthdata-mcp/internal/kms"
	"github.com/nasa/earthdata-mcp/internal/platform/ctxutil"
	"github.com/nasa/earthdata-mcp/internal/platform/logger"
)

const kmsConceptType = "kms"

// Handler orchestrates concept-update/concept-delete processing for
// messages pulled off the FIFO queue.
type Handler struct {
	log            *logger.Logger
	cmrClient      *cmr.Client
	kmsClient      *kms.Client
	embedder       embedding.Generator
	store          datastore.Datastore
	maxConcurrency int
}

func NewHandler(log *logger.Logger, cmrClient *cmr.Client, kmsClient *kms.Client, embedder embedding.Generator, store datastore.Datastore, maxConcurrency int) *Handler {
	if maxConcurrency <= 0 {
		maxConcurrency = 8
	}
	return &Handler{
		log:            log.With("handler", "embedding"),
		cmrClient:      cmrClient,
		kmsClient:      kmsClient,
		embedder:       embedder,
		store:          store,
		maxConcurrency: maxConcurrency,
	}
}

// embeddedChunk pairs an extracted chunk with its embedding vector, index
// preserved so concurrent embedding can write results back in order.
type embeddedChunk struct {
	attribute   string
	textContent string
	embedding   []float32
}

// embedChunks generates an embedding for every chunk, bounded to
// h.maxConcurrency concurrent Generate calls, matching the teacher's
// errgroup-bounded chunk-embedding pattern.
func (h *Handler) embedChunks(ctx context.Context, chunks []domain.EmbeddingChunk) ([]domain.ChunkEmbedding, error) {
	results := make([]embeddedChunk, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.maxConcurrency)

	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			vec, err := h.embedder.Generate(gctx, chunk.TextContent, chunk.ConceptType, chunk.Attribute)
			if err != nil {
				return fmt.Errorf("embed chunk %s/%s: %w", chunk.ConceptType, chunk.Attribute, err)
			}
			results[i] = embeddedChunk{attribute: chunk.Attribute, textContent: chunk.TextContent, embedding: vec}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.ChunkEmbedding, len(results))
	for i, r := range results {
		out[i] = domain.ChunkEmbedding{Attribute: r.attribute, TextContent: r.textContent, Embedding: r.embedding}
	}
	return out, nil
}

// processKMSTerms looks up each unique KMS term, embeds and stores any not
// already in the datastore, and returns the UUIDs to link to the concept.
// KMS terms are shared across many concepts (hundreds of collections
// reference "MODIS"), so a term is embedded once and referenced by UUID
// from then on.
func (h *Handler) processKMSTerms(ctx context.Context, terms []domain.KMSTerm) ([]string, error) {
	var uuids []string
	seen := make(map[string]bool, len(terms))

	for _, ref := range terms {
		key := ref.Scheme + "|" + ref.Term
		if seen[key] {
			continue
		}
		seen[key] = true

		resolved := h.kmsClient.LookupTerm(ctx, ref.Term, ref.Scheme)
		if resolved == nil {
			h.log.Debug("kms term not found", "term", ref.Term, "scheme", ref.Scheme)
			continue
		}
		uuids = append(uuids, resolved.UUID)

		existing, err := h.store.GetKMSEmbedding(ctx, resolved.UUID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}

		text := kms.EmbeddingText(resolved)
		vec, err := h.embedder.Generate(ctx, text, kmsConceptType, ref.Scheme)
		if err != nil {
			h.log.Warn("failed to embed kms term", "term", resolved.Term, "error", err)
			continue
		}

		if _, err := h.store.UpsertKMSEmbedding(ctx, resolved.UUID, resolved.Scheme, resolved.Term, resolved.Definition, vec); err != nil {
			return nil, err
		}
	}

	return uuids, nil
}

// handleUpdate fetches a concept's metadata, extracts text and KMS term
// references, embeds and stores everything, then (for collections) stores
// associations to linked variables and citations.
func (h *Handler) handleUpdate(ctx context.Context, msg domain.ConceptMessage) error {
	metadata, err := h.cmrClient.FetchConcept(ctx, msg.ConceptID, fmt.Sprintf("%d", msg.RevisionID))
	if err != nil {
		return fmt.Errorf("fetch %s: %w", msg.ConceptID, err)
	}

	extraction := extractor.ExtractData(msg.ConceptType, msg.ConceptID, metadata)
	h.log.Info("extracted concept data",
		"concept_id", msg.ConceptID,
		"chunks", len(extraction.Chunks),
		"kms_terms", len(extraction.KMSTerms),
	)

	embedded, err := h.embedChunks(ctx, extraction.Chunks)
	if err != nil {
		return fmt.Errorf("embedding failed for %s: %w", msg.ConceptID, err)
	}

	if _, err := h.store.UpsertChunks(ctx, msg.ConceptType, msg.ConceptID, embedded); err != nil {
		return err
	}

	kmsUUIDs, err := h.processKMSTerms(ctx, extraction.KMSTerms)
	if err != nil {
		return err
	}
	if len(kmsUUIDs) > 0 {
		if _, err := h.store.UpsertConceptKMSAssociations(ctx, msg.ConceptType, msg.ConceptID, kmsUUIDs); err != nil {
			return err
		}
	}

	if msg.ConceptType == domain.ConceptTypeCollection {
		associations := h.cmrClient.FetchAssociations(ctx, msg.ConceptID)
		if len(associations) > 0 {
			if _, err := h.store.UpsertAssociations(ctx, msg.ConceptType, msg.ConceptID, associations); err != nil {
				return err
			}
		}
	}

	h.log.Info("processed concept",
		"concept_id", msg.ConceptID,
		"chunks_stored", len(embedded),
		"kms_terms_linked", len(kmsUUIDs),
		"request_id", ctxutil.GetTraceData(ctx).RequestID,
	)
	return nil
}

// handleDelete removes every stored chunk, association, and KMS link for a
// concept. KMS term embeddings themselves are never deleted, since other
// concepts may still reference them.
func (h *Handler) handleDelete(ctx context.Context, msg domain.ConceptMessage) error {
	deletedChunks, err := h.store.DeleteChunks(ctx, msg.ConceptID)
	if err != nil {
		return err
	}
	deletedAssocs, err := h.store.DeleteAssociations(ctx, msg.ConceptID)
	if err != nil {
		return err
	}
	deletedKMS, err := h.store.DeleteConceptKMSAssociations(ctx, msg.ConceptID)
	if err != nil {
		return err
	}

	h.log.Info("deleted concept",
		"concept_id", msg.ConceptID,
		"chunks", deletedChunks,
		"associations", deletedAssocs,
		"kms_links", deletedKMS,
	)
	return nil
}

// processMessage parses one SQS message body and routes it to the update
// or delete path.
func (h *Handler) processMessage(ctx context.Context, body string) error {
	var msg domain.ConceptMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("invalid message format: %w", err)
	}

	switch msg.Action {
	case domain.ActionConceptUpdate:
		return h.handleUpdate(ctx, msg)
	case domain.ActionConceptDelete:
		return h.handleDelete(ctx, msg)
	default:
		return fmt.Errorf("unrecognized action %q", msg.Action)
	}
}

// Handle processes every SQS message in event, returning the message IDs
// that failed so SQS retries only those (partial batch response), rather
// than redelivering the whole batch on a single message's failure.
func (h *Handler) Handle(ctx context.Context, event events.SQSEvent) events.SQSEventResponse {
	h.log.Info("processing SQS messages", "count", len(event.Records))

	var failures []events.SQSBatchItemFailure
	for _, record := range event.Records {
		recordCtx := ctxutil.WithTraceData(ctx, &ctxutil.TraceData{RequestID: record.MessageId, TraceID: record.MessageId})
		if err := h.processMessage(recordCtx, record.Body); err != nil {
			h.log.Error("failed to process message", "message_id", record.MessageId, "error", err)
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
			continue
		}
	}

	return events.SQSEventResponse{BatchItemFailures: failures}
}
