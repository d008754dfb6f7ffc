package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/repositories"
)

type fakeConversationRepo struct {
	mu      sync.Mutex
	saved   []*models.LLMConversation
	saveErr error
	block   chan struct{}
}

func (f *fakeConversationRepo) Save(ctx context.Context, conv *models.LLMConversation) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, conv)
	return nil
}

func (f *fakeConversationRepo) GetByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]*models.LLMConversation, error) {
	return nil, nil
}

func (f *fakeConversationRepo) GetByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]*models.LLMConversation, error) {
	return nil, nil
}

func (f *fakeConversationRepo) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

var _ repositories.ConversationRepository = (*fakeConversationRepo)(nil)

func newConversation(stage string) *models.LLMConversation {
	return &models.LLMConversation{
		ID:      uuid.New(),
		StoreID: uuid.New(),
		Stage:   stage,
		Model:   "mock-model",
		Status:  models.LLMConversationStatusSuccess,
	}
}

func TestAsyncConversationRecorder_SavesRecords(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := &fakeConversationRepo{}
	recorder := NewAsyncConversationRecorder(repo, zap.NewNop(), 10)

	for _, stage := range []string{"profile", "collector", "analyst"} {
		recorder.Record(newConversation(stage))
	}
	recorder.Close()

	require.Equal(t, 3, repo.savedCount())
	assert.Equal(t, "profile", repo.saved[0].Stage)
	assert.Equal(t, "analyst", repo.saved[2].Stage)
}

func TestAsyncConversationRecorder_DropsWhenQueueFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := &fakeConversationRepo{block: make(chan struct{})}
	recorder := NewAsyncConversationRecorder(repo, zap.NewNop(), 1)

	// The first record is picked up by the worker and blocks in Save; the
	// second fills the queue; the rest are dropped.
	recorder.Record(newConversation("a"))
	require.Eventually(t, func() bool { return len(recorder.queue) == 0 }, time.Second, time.Millisecond)
	for i := 0; i < 5; i++ {
		recorder.Record(newConversation("b"))
	}

	close(repo.block)
	recorder.Close()

	assert.Equal(t, 2, repo.savedCount())
}

func TestAsyncConversationRecorder_DefaultQueueSize(t *testing.T) {
	defer goleak.VerifyNone(t)

	recorder := NewAsyncConversationRecorder(&fakeConversationRepo{}, zap.NewNop(), 0)
	assert.Equal(t, 100, cap(recorder.queue))
	recorder.Close()
}

func TestAsyncConversationRecorder_RepoErrorDoesNotStopWorker(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := &fakeConversationRepo{saveErr: errors.New("connection reset")}
	recorder := NewAsyncConversationRecorder(repo, zap.NewNop(), 10)

	recorder.Record(newConversation("critic"))
	recorder.Record(newConversation("critic"))
	recorder.Close()

	assert.Equal(t, 0, repo.savedCount())
}

func TestAsyncConversationRecorder_CloseDrainsQueue(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := &fakeConversationRepo{block: make(chan struct{})}
	recorder := NewAsyncConversationRecorder(repo, zap.NewNop(), 10)
	for i := 0; i < 4; i++ {
		recorder.Record(newConversation("strategist"))
	}

	closed := make(chan struct{})
	go func() {
		recorder.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned before pending records were saved")
	case <-time.After(20 * time.Millisecond):
	}

	close(repo.block)
	<-closed
	assert.Equal(t, 4, repo.savedCount())
}
