package queue

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/require"

	"github.com/nasa/earthdata-mcp/internal/domain"
	"github.com/nasa/earthdata-mcp/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	return log
}

type fakeSQSAPI struct {
	sendMessageFn func(*sqs.SendMessageInput) (*sqs.SendMessageOutput, error)
	batchFns      []func(*sqs.SendMessageBatchInput) (*sqs.SendMessageBatchOutput, error)
	batchCalls    int
}

func (f *fakeSQSAPI) SendMessage(ctx context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	return f.sendMessageFn(in)
}

func (f *fakeSQSAPI) SendMessageBatch(ctx context.Context, in *sqs.SendMessageBatchInput, _ ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error) {
	fn := f.batchFns[f.batchCalls]
	f.batchCalls++
	return fn(in)
}

func newFakeQueue(api *fakeSQSAPI) *SQSQueue {
	return &SQSQueue{log: mustLogger(), client: api, queueURL: "https://sqs.example.com/queue.fifo"}
}

func mustLogger() *logger.Logger {
	l, err := logger.New("development")
	if err != nil {
		panic(err)
	}
	return l
}

func TestSendDerivesGroupAndDedupeIDs(t *testing.T) {
	var captured *sqs.SendMessageInput
	api := &fakeSQSAPI{
		sendMessageFn: func(in *sqs.SendMessageInput) (*sqs.SendMessageOutput, error) {
			captured = in
			return &sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
		},
	}
	q := newFakeQueue(api)

	id, err := q.Send(context.Background(), domain.ConceptMessage{
		Action:      domain.ActionConceptUpdate,
		ConceptType: "collection",
		ConceptID:   "C1-PROV",
		RevisionID:  3,
	})
	require.NoError(t, err)
	require.Equal(t, "msg-1", id)
	require.Equal(t, "collection:C1-PROV", aws.ToString(captured.MessageGroupId))
	require.Equal(t, "C1-PROV:3", aws.ToString(captured.MessageDeduplicationId))
}

func TestSendBatchAllSucceedFirstTry(t *testing.T) {
	api := &fakeSQSAPI{
		batchFns: []func(*sqs.SendMessageBatchInput) (*sqs.SendMessageBatchOutput, error){
			func(in *sqs.SendMessageBatchInput) (*sqs.SendMessageBatchOutput, error) {
				out := &sqs.SendMessageBatchOutput{}
				for _, e := range in.Entries {
					out.Successful = append(out.Successful, types.SendMessageBatchResultEntry{Id: e.Id, MessageId: aws.String("m-" + aws.ToString(e.Id))})
				}
				return out, nil
			},
		},
	}
	q := newFakeQueue(api)

	result, err := q.SendBatch(context.Background(), []Entry{
		NewEntry(domain.ConceptMessage{ConceptType: "collection", ConceptID: "C1", RevisionID: 1}),
		NewEntry(domain.ConceptMessage{ConceptType: "variable", ConceptID: "V1", RevisionID: 1}),
	})
	require.NoError(t, err)
	require.Len(t, result.Successful, 2)
	require.Empty(t, result.Failed)
	require.Equal(t, 1, api.batchCalls)
}

func TestSendBatchRetriesFailedEntriesThenSucceeds(t *testing.T) {
	initialBackoff = time.Millisecond
	defer func() { initialBackoff = time.Second }()

	entryA := NewEntry(domain.ConceptMessage{ConceptType: "collection", ConceptID: "C1", RevisionID: 1})
	entryB := NewEntry(domain.ConceptMessage{ConceptType: "variable", ConceptID: "V1", RevisionID: 1})

	api := &fakeSQSAPI{
		batchFns: []func(*sqs.SendMessageBatchInput) (*sqs.SendMessageBatchOutput, error){
			func(in *sqs.SendMessageBatchInput) (*sqs.SendMessageBatchOutput, error) {
				return &sqs.SendMessageBatchOutput{
					Successful: []types.SendMessageBatchResultEntry{{Id: in.Entries[0].Id, MessageId: aws.String("m-1")}},
					Failed:     []types.BatchResultErrorEntry{{Id: in.Entries[1].Id, Code: aws.String("ServiceUnavailable"), Message: aws.String("throttled")}},
				}, nil
			},
			func(in *sqs.SendMessageBatchInput) (*sqs.SendMessageBatchOutput, error) {
				require.Len(t, in.Entries, 1)
				return &sqs.SendMessageBatchOutput{
					Successful: []types.SendMessageBatchResultEntry{{Id: in.Entries[0].Id, MessageId: aws.String("m-2")}},
				}, nil
			},
		},
	}
	q := newFakeQueue(api)

	result, err := q.SendBatch(context.Background(), []Entry{entryA, entryB})
	require.NoError(t, err)
	require.Len(t, result.Successful, 2)
	require.Empty(t, result.Failed)
	require.Equal(t, 2, api.batchCalls)
}

func TestSendBatchExhaustsRetriesAndReportsFailure(t *testing.T) {
	initialBackoff = time.Millisecond
	defer func() { initialBackoff = time.Second }()

	entry := NewEntry(domain.ConceptMessage{ConceptType: "collection", ConceptID: "C1", RevisionID: 1})

	alwaysFails := func(in *sqs.SendMessageBatchInput) (*sqs.SendMessageBatchOutput, error) {
		return &sqs.SendMessageBatchOutput{
			Failed: []types.BatchResultErrorEntry{{Id: in.Entries[0].Id, Code: aws.String("ServiceUnavailable"), Message: aws.String("throttled")}},
		}, nil
	}
	api := &fakeSQSAPI{batchFns: []func(*sqs.SendMessageBatchInput) (*sqs.SendMessageBatchOutput, error){
		alwaysFails, alwaysFails, alwaysFails, alwaysFails,
	}}
	q := newFakeQueue(api)
	q.log = testLogger(t)

	result, err := q.SendBatch(context.Background(), []Entry{entry})
	require.NoError(t, err)
	require.Empty(t, result.Successful)
	require.Len(t, result.Failed, 1)
	require.Equal(t, entry.ID, result.Failed[0].ID)
	require.Equal(t, maxRetries+1, api.batchCalls)
}

func TestSendBatchRejectsOversizedBatch(t *testing.T) {
	q := newFakeQueue(&fakeSQSAPI{})
	entries := make([]Entry, maxBatchSize+1)
	for i := range entries {
		entries[i] = NewEntry(domain.ConceptMessage{ConceptType: "collection", ConceptID: "C1", RevisionID: 1})
	}

	_, err := q.SendBatch(context.Background(), entries)
	require.Error(t, err)
}
