package queue

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/nasa/earthdata-mcp/internal/domain"
)

// FakeQueue is an in-memory Queue used by other packages' tests so they
// don't need a real SQS endpoint to exercise the ingest/bootstrap paths.
// FailIDs is keyed by concept ID rather than the entry's own (randomly
// generated) ID, since callers building entries via NewEntry never see
// that ID in advance.
type FakeQueue struct {
	mu      sync.Mutex
	Sent    []domain.ConceptMessage
	FailIDs map[string]bool
	SendErr error
}

func NewFakeQueue() *FakeQueue {
	return &FakeQueue{FailIDs: map[string]bool{}}
}

func (f *FakeQueue) Send(ctx context.Context, msg domain.ConceptMessage) (string, error) {
	if f.SendErr != nil {
		return "", f.SendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = append(f.Sent, msg)
	return uuid.NewString(), nil
}

func (f *FakeQueue) SendBatch(ctx context.Context, entries []Entry) (SendResult, error) {
	if f.SendErr != nil {
		return SendResult{}, f.SendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	result := SendResult{}
	for _, e := range entries {
		if f.FailIDs[e.Message.ConceptID] {
			result.Failed = append(result.Failed, FailedEntry{ID: e.ID, Code: "Fake", Message: "forced failure"})
			continue
		}
		f.Sent = append(f.Sent, e.Message)
		result.Successful = append(result.Successful, e.ID)
	}
	return result, nil
}

var _ Queue = (*FakeQueue)(nil)
