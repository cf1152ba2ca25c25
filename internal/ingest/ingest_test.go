package ingest

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"github.com/nasa/earthdata-mcp/internal/platform/logger"
	"github.com/nasa/earthdata-mcp/internal/queue"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	return log
}

func snsEvent(messages ...string) events.SNSEvent {
	var records []events.SNSEventRecord
	for i, m := range messages {
		records = append(records, events.SNSEventRecord{
			SNS: events.SNSEntity{
				MessageID: "msg-" + string(rune('0'+i)),
				Message:   m,
			},
		})
	}
	return events.SNSEvent{Records: records}
}

func TestHandleQueuesValidConceptUpdate(t *testing.T) {
	q := queue.NewFakeQueue()
	h := NewHandler(testLogger(t), q)

	event := snsEvent(`{"action":"concept-update","concept-type":"collection","concept-id":"C1-PROV","revision-id":3}`)
	summary := h.Handle(context.Background(), event)

	require.Equal(t, 1, summary.Processed)
	require.Equal(t, 0, summary.Failed)
	require.Equal(t, "C1-PROV", summary.Results[0].ConceptID)
	require.Equal(t, "queued", summary.Results[0].Status)
	require.Len(t, q.Sent, 1)
	require.Equal(t, "C1-PROV", q.Sent[0].ConceptID)
}

func TestHandleQueuesConceptDelete(t *testing.T) {
	q := queue.NewFakeQueue()
	h := NewHandler(testLogger(t), q)

	event := snsEvent(`{"action":"concept-delete","concept-type":"variable","concept-id":"V1","revision-id":1}`)
	summary := h.Handle(context.Background(), event)

	require.Equal(t, 1, summary.Processed)
	require.Equal(t, 0, summary.Failed)
}

func TestHandleRejectsMissingFields(t *testing.T) {
	q := queue.NewFakeQueue()
	h := NewHandler(testLogger(t), q)

	event := snsEvent(`{"action":"concept-update","concept-type":"collection"}`)
	summary := h.Handle(context.Background(), event)

	require.Equal(t, 0, summary.Processed)
	require.Equal(t, 1, summary.Failed)
	require.Contains(t, summary.Errors[0].Error, "missing required fields")
	require.Empty(t, q.Sent)
}

func TestHandleRejectsInvalidAction(t *testing.T) {
	q := queue.NewFakeQueue()
	h := NewHandler(testLogger(t), q)

	event := snsEvent(`{"action":"concept-frobnicate","concept-type":"collection","concept-id":"C1","revision-id":1}`)
	summary := h.Handle(context.Background(), event)

	require.Equal(t, 0, summary.Processed)
	require.Equal(t, 1, summary.Failed)
	require.Contains(t, summary.Errors[0].Error, "invalid action")
}

func TestHandleRejectsMalformedJSON(t *testing.T) {
	q := queue.NewFakeQueue()
	h := NewHandler(testLogger(t), q)

	event := snsEvent(`not json`)
	summary := h.Handle(context.Background(), event)

	require.Equal(t, 0, summary.Processed)
	require.Equal(t, 1, summary.Failed)
}

func TestHandleContinuesAfterOneBadRecord(t *testing.T) {
	q := queue.NewFakeQueue()
	h := NewHandler(testLogger(t), q)

	event := snsEvent(
		`{"action":"concept-update","concept-type":"collection","concept-id":"C1","revision-id":1}`,
		`not json`,
		`{"action":"concept-update","concept-type":"variable","concept-id":"V1","revision-id":1}`,
	)
	summary := h.Handle(context.Background(), event)

	require.Equal(t, 2, summary.Processed)
	require.Equal(t, 1, summary.Failed)
	require.Len(t, q.Sent, 2)
}

func TestHandlePropagatesQueueSendError(t *testing.T) {
	q := queue.NewFakeQueue()
	q.SendErr = errSendFailed
	h := NewHandler(testLogger(t), q)

	event := snsEvent(`{"action":"concept-update","concept-type":"collection","concept-id":"C1","revision-id":1}`)
	summary := h.Handle(context.Background(), event)

	require.Equal(t, 0, summary.Processed)
	require.Equal(t, 1, summary.Failed)
}

var errSendFailed = &sendFailedErr{}

type sendFailedErr struct{}

func (e *sendFailedErr) Error() string { return "sqs unavailable" }
