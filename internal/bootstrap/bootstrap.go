// Package bootstrap implements the one-off driver that bulk-loads
// existing CMR concepts into the embedding pipeline by paginating a CMR
// search and feeding every result through the same FIFO queue the ingest
// Lambda uses, so a backfill and a live update take the identical path
// through the embedding handler.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/nasa/earthdata-mcp/internal/cmr"
	"github.com/nasa/earthdata-mcp/internal/platform/logger"
	"github.com/nasa/earthdata-mcp/internal/platform/progress"
	"github.com/nasa/earthdata-mcp/internal/queue"
)

// Request mirrors the console-invoked event payload: which concept type
// to backfill, the CMR search parameters that select it, and whether to
// actually enqueue anything.
type Request struct {
	ConceptType  string
	SearchParams map[string]string
	PageSize     int
	DryRun       bool
}

// Summary reports what the bootstrap run did, mirroring the original
// driver's {concept_type, search_params, total_processed, total_sent,
// total_errors, dry_run} response shape.
type Summary struct {
	ConceptType    string
	SearchParams   map[string]string
	TotalProcessed int
	TotalSent      int
	TotalErrors    int
	DryRun         bool
}

// Driver paginates a CMR search and enqueues every item found.
type Driver struct {
	log       *logger.Logger
	cmrClient *cmr.Client
	queue     queue.Queue
	progress  progress.Bus
}

func NewDriver(log *logger.Logger, cmrClient *cmr.Client, q queue.Queue) *Driver {
	return &Driver{log: log.With("driver", "bootstrap"), cmrClient: cmrClient, queue: q}
}

// WithProgress attaches a progress.Bus so each page's outcome is published
// for an operator console to watch a long-running backfill live, rather
// than tailing Lambda logs. Optional: a nil bus (the default) disables it.
func (d *Driver) WithProgress(bus progress.Bus) *Driver {
	d.progress = bus
	return d
}

func (d *Driver) publish(ctx context.Context, event progress.Event) {
	if d.progress == nil {
		return
	}
	if err := d.progress.Publish(ctx, event); err != nil {
		d.log.Warn("failed to publish progress event", "error", err)
	}
}

// Run paginates req's CMR search, extracting a ConceptMessage per item and
// enqueueing batches of up to 10 through the queue. In dry-run mode it
// counts what it would have sent without calling the queue.
func (d *Driver) Run(ctx context.Context, req Request) (Summary, error) {
	d.log.Info("starting bootstrap",
		"concept_type", req.ConceptType,
		"search_params", req.SearchParams,
		"page_size", req.PageSize,
		"dry_run", req.DryRun,
	)

	summary := Summary{ConceptType: req.ConceptType, SearchParams: req.SearchParams, DryRun: req.DryRun}

	cursor, err := d.cmrClient.Search(req.ConceptType, req.SearchParams, req.PageSize)
	if err != nil {
		return summary, err
	}

	for {
		items, ok, err := cursor.Next(ctx)
		if err != nil {
			return summary, err
		}
		if !ok {
			break
		}

		var entries []queue.Entry
		for _, item := range items {
			msg, extractErr := cmr.ExtractConceptInfo(req.ConceptType, item)
			if extractErr != nil {
				d.log.Warn("error extracting concept info", "error", extractErr)
				summary.TotalErrors++
				continue
			}
			summary.TotalProcessed++
			entries = append(entries, queue.NewEntry(msg))
		}

		if req.DryRun {
			d.log.Info("dry run: would send messages to queue", "count", len(entries))
			summary.TotalSent += len(entries)
			d.publish(ctx, progress.Event{Stage: "bootstrap", ConceptType: req.ConceptType, Status: "dry-run-page", Detail: fmt.Sprintf("%d items", len(entries))})
			continue
		}

		sent, err := d.sendAll(ctx, entries)
		summary.TotalSent += sent
		if err != nil {
			return summary, err
		}
		d.log.Info("sent messages to queue", "count", sent)
		d.publish(ctx, progress.Event{Stage: "bootstrap", ConceptType: req.ConceptType, Status: "page-sent", Detail: fmt.Sprintf("%d items", sent)})
	}

	d.log.Info("bootstrap complete",
		"total_processed", summary.TotalProcessed,
		"total_sent", summary.TotalSent,
		"total_errors", summary.TotalErrors,
	)
	return summary, nil
}

// sendAll batches entries into groups of at most 10 (SQS's
// SendMessageBatch limit) and sends each through the queue, which owns its
// own retry-with-backoff loop for partial batch failures. If any entry is
// still failing once the queue's retries are exhausted, sendAll raises an
// error naming the failed IDs rather than reporting the batch as sent.
func (d *Driver) sendAll(ctx context.Context, entries []queue.Entry) (int, error) {
	const maxBatch = 10

	sent := 0
	var failedIDs []string
	for i := 0; i < len(entries); i += maxBatch {
		end := i + maxBatch
		if end > len(entries) {
			end = len(entries)
		}

		result, err := d.queue.SendBatch(ctx, entries[i:end])
		if err != nil {
			return sent, err
		}
		sent += len(result.Successful)
		if len(result.Failed) > 0 {
			d.log.Error("batch send exhausted retries", "failed_count", len(result.Failed))
			for _, f := range result.Failed {
				failedIDs = append(failedIDs, f.ID)
			}
		}
	}
	if len(failedIDs) > 0 {
		return sent, fmt.Errorf("failed to send %d entries after exhausting retries: %v", len(failedIDs), failedIDs)
	}
	return sent, nil
}
