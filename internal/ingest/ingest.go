// Package ingest implements the SNS-triggered Lambda that receives CMR
// concept events and forwards them, validated, onto the FIFO queue the
// embedding handler consumes.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/nasa/earthdata-mcp/internal/domain"
	"github.com/nasa/earthdata-mcp/internal/platform/apierr"
	"github.com/nasa/earthdata-mcp/internal/platform/ctxutil"
	"github.com/nasa/earthdata-mcp/internal/platform/logger"
	"github.com/nasa/earthdata-mcp/internal/queue"
)

var validActions = map[string]bool{
	domain.ActionConceptUpdate: true,
	domain.ActionConceptDelete: true,
}

// Result summarizes the handler's processing of one SNS record.
type Result struct {
	ConceptID    string `json:"concept_id"`
	Status       string `json:"status"`
	SQSMessageID string `json:"sqs_message_id"`
}

// Failure records why one record couldn't be queued.
type Failure struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

// Summary is the handler's return value, mirroring the original ingest
// Lambda's {processed, failed, results, errors} response shape.
type Summary struct {
	Processed int       `json:"processed"`
	Failed    int       `json:"failed"`
	Results   []Result  `json:"results"`
	Errors    []Failure `json:"errors,omitempty"`
}

// Handler parses SNS records, validates each concept event, and enqueues
// it onto the FIFO queue for the embedding handler.
type Handler struct {
	log   *logger.Logger
	queue queue.Queue
}

func NewHandler(log *logger.Logger, q queue.Queue) *Handler {
	return &Handler{log: log.With("handler", "ingest"), queue: q}
}

// validateMessage checks that message contains every required field and a
// recognized action, rewritten from the Python handler's set-difference
// check against REQUIRED_FIELDS.
func validateMessage(raw map[string]json.RawMessage, msg domain.ConceptMessage) error {
	required := []string{"concept-type", "concept-id", "action", "revision-id"}
	var missing []string
	for _, field := range required {
		if _, ok := raw[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %v", missing)
	}
	if !validActions[msg.Action] {
		return fmt.Errorf("invalid action %q: must be one of concept-update, concept-delete", msg.Action)
	}
	return nil
}

func (h *Handler) processRecord(ctx context.Context, record events.SNSEventRecord) (Result, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(record.SNS.Message), &raw); err != nil {
		return Result{}, apierr.Validation(fmt.Errorf("invalid JSON in SNS message: %w", err))
	}

	var msg domain.ConceptMessage
	if err := json.Unmarshal([]byte(record.SNS.Message), &msg); err != nil {
		return Result{}, apierr.Validation(fmt.Errorf("invalid JSON in SNS message: %w", err))
	}

	if err := validateMessage(raw, msg); err != nil {
		return Result{}, apierr.Validation(err)
	}

	sqsMessageID, err := h.queue.Send(ctx, msg)
	if err != nil {
		return Result{}, err
	}

	h.log.Info("queued concept event",
		"action", msg.Action,
		"concept_type", msg.ConceptType,
		"concept_id", msg.ConceptID,
		"revision_id", msg.RevisionID,
		"sqs_message_id", sqsMessageID,
		"request_id", ctxutil.GetTraceData(ctx).RequestID,
	)

	return Result{
		ConceptID:    msg.ConceptID,
		Status:       "queued",
		SQSMessageID: sqsMessageID,
	}, nil
}

// Handle processes every SNS record in event, enqueuing valid concept
// events and collecting failures for the rest rather than aborting the
// whole batch on the first bad record.
func (h *Handler) Handle(ctx context.Context, event events.SNSEvent) Summary {
	h.log.Info("processing SNS records", "count", len(event.Records))

	summary := Summary{}
	for _, record := range event.Records {
		recordCtx := ctxutil.WithTraceData(ctx, &ctxutil.TraceData{RequestID: record.SNS.MessageID, TraceID: record.SNS.MessageID})
		result, err := h.processRecord(recordCtx, record)
		if err != nil {
			summary.Errors = append(summary.Errors, Failure{
				MessageID: record.SNS.MessageID,
				Error:     err.Error(),
			})
			continue
		}
		summary.Results = append(summary.Results, result)
	}

	summary.Processed = len(summary.Results)
	summary.Failed = len(summary.Errors)

	if summary.Failed > 0 {
		h.log.Warn("completed with errors", "processed", summary.Processed, "failed", summary.Failed)
	} else {
		h.log.Info("processed all records successfully", "processed", summary.Processed)
	}

	return summary
}
