package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"github.com/nasa/earthdata-mcp/internal/domain"
	"github.com/nasa/earthdata-mcp/internal/platform/apierr"
	"github.com/nasa/earthdata-mcp/internal/platform/logger"
)

const (
	maxBatchSize = 10
	maxRetries   = 3
)

// initialBackoff is a var, not a const, so tests can shrink it.
var initialBackoff = 1 * time.Second

// sqsAPI is the subset of *sqs.Client SQSQueue depends on, narrowed so
// tests can substitute a fake without spinning up a real client.
type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	SendMessageBatch(ctx context.Context, in *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
}

// SQSQueue is the FIFO SQS implementation of Queue.
type SQSQueue struct {
	log      *logger.Logger
	client   sqsAPI
	queueURL string
}

func NewSQSQueue(log *logger.Logger, client *sqs.Client, queueURL string) *SQSQueue {
	return &SQSQueue{log: log.With("client", "SQSQueue"), client: client, queueURL: queueURL}
}

// Send enqueues a single concept message, deriving the FIFO group and
// dedupe IDs from the message itself.
func (q *SQSQueue) Send(ctx context.Context, msg domain.ConceptMessage) (string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return "", apierr.Validation(fmt.Errorf("marshal concept message: %w", err))
	}

	out, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:               aws.String(q.queueURL),
		MessageBody:            aws.String(string(body)),
		MessageGroupId:         aws.String(groupID(msg)),
		MessageDeduplicationId: aws.String(dedupeID(msg)),
	})
	if err != nil {
		return "", apierr.Storage(fmt.Errorf("sqs send_message: %w", err))
	}
	return aws.ToString(out.MessageId), nil
}

func buildRequestEntries(entries []Entry) ([]types.SendMessageBatchRequestEntry, error) {
	reqEntries := make([]types.SendMessageBatchRequestEntry, 0, len(entries))
	for _, e := range entries {
		body, err := json.Marshal(e.Message)
		if err != nil {
			return nil, apierr.Validation(fmt.Errorf("marshal concept message %s: %w", e.ID, err))
		}
		reqEntries = append(reqEntries, types.SendMessageBatchRequestEntry{
			Id:                     aws.String(e.ID),
			MessageBody:            aws.String(string(body)),
			MessageGroupId:         aws.String(groupID(e.Message)),
			MessageDeduplicationId: aws.String(dedupeID(e.Message)),
		})
	}
	return reqEntries, nil
}

// NewEntry assigns a fresh caller-side ID to a concept message, for
// callers that don't already have a natural per-entry identifier.
func NewEntry(msg domain.ConceptMessage) Entry {
	return Entry{ID: uuid.NewString(), Message: msg}
}

func (q *SQSQueue) sendOnce(ctx context.Context, entries []types.SendMessageBatchRequestEntry) (*sqs.SendMessageBatchOutput, error) {
	return q.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
		QueueUrl: aws.String(q.queueURL),
		Entries:  entries,
	})
}

// SendBatch sends up to 10 entries with a partial-failure retry loop:
// SQS's SendMessageBatch can succeed as an API call while individual
// entries fail, so failed entries are retried with exponential backoff
// (1s, 2s, 4s) up to maxRetries times before being reported as failed.
func (q *SQSQueue) SendBatch(ctx context.Context, entries []Entry) (SendResult, error) {
	if len(entries) == 0 {
		return SendResult{}, nil
	}
	if len(entries) > maxBatchSize {
		return SendResult{}, apierr.Validation(fmt.Errorf("batch size %d exceeds max of %d", len(entries), maxBatchSize))
	}

	pending := entries
	result := SendResult{}
	backoff := initialBackoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		reqEntries, err := buildRequestEntries(pending)
		if err != nil {
			return result, err
		}

		out, sendErr := q.sendOnce(ctx, reqEntries)
		if sendErr != nil {
			return result, apierr.Storage(fmt.Errorf("sqs send_message_batch: %w", sendErr))
		}

		for _, ok := range out.Successful {
			result.Successful = append(result.Successful, aws.ToString(ok.Id))
		}

		if len(out.Failed) == 0 {
			return result, nil
		}

		failedIDs := make(map[string]bool, len(out.Failed))
		for _, f := range out.Failed {
			failedIDs[aws.ToString(f.Id)] = true
		}

		var retry []Entry
		for _, e := range pending {
			if failedIDs[e.ID] {
				retry = append(retry, e)
			}
		}
		pending = retry

		if attempt == maxRetries {
			for _, f := range out.Failed {
				result.Failed = append(result.Failed, FailedEntry{
					ID:      aws.ToString(f.Id),
					Code:    aws.ToString(f.Code),
					Message: aws.ToString(f.Message),
				})
			}
			q.log.Warn("sqs batch send exhausted retries", "failed", len(result.Failed))
			return result, nil
		}

		q.log.Warn("sqs batch send retrying",
			"attempt", attempt+1,
			"max_retries", maxRetries,
			"failed_count", len(out.Failed),
			"sleep", backoff.String(),
		)
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return result, nil
}
