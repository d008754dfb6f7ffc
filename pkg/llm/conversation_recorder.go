package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/repositories"
)

// ConversationRecorder records LLM conversations.
type ConversationRecorder interface {
	// Record queues a finished conversation for persistence. It never blocks
	// the caller and never fails the backend call it describes.
	Record(conv *models.LLMConversation)
}

// AsyncConversationRecorder records conversations asynchronously to avoid blocking LLM calls.
type AsyncConversationRecorder struct {
	repo        repositories.ConversationRepository
	logger      *zap.Logger
	saveTimeout time.Duration
	queue       chan *models.LLMConversation
	done        chan struct{}
}

// NewAsyncConversationRecorder creates a new async recorder.
// queueSize controls the buffer size - if full, records are dropped with a warning.
func NewAsyncConversationRecorder(
	repo repositories.ConversationRepository,
	logger *zap.Logger,
	queueSize int,
) *AsyncConversationRecorder {
	if queueSize <= 0 {
		queueSize = 100
	}

	r := &AsyncConversationRecorder{
		repo:        repo,
		logger:      logger.Named("conversation-recorder"),
		saveTimeout: 10 * time.Second,
		queue:       make(chan *models.LLMConversation, queueSize),
		done:        make(chan struct{}),
	}

	go r.processQueue()

	return r
}

// Record queues a conversation for async persistence.
// Non-blocking - if queue is full, the record is dropped with a warning.
func (r *AsyncConversationRecorder) Record(conv *models.LLMConversation) {
	select {
	case r.queue <- conv:
	default:
		r.logger.Warn("Conversation record queue full, dropping entry",
			zap.String("store_id", conv.StoreID.String()),
			zap.String("stage", conv.Stage),
			zap.String("model", conv.Model))
	}
}

// Close stops the recorder and waits for pending records to be saved.
// Record must not be called after Close.
func (r *AsyncConversationRecorder) Close() {
	close(r.queue)
	<-r.done
}

func (r *AsyncConversationRecorder) processQueue() {
	defer close(r.done)

	for conv := range r.queue {
		r.saveConversation(conv)
	}
}

// saveConversation persists a single record. The caller's context may be
// long gone, so each save gets its own deadline.
func (r *AsyncConversationRecorder) saveConversation(conv *models.LLMConversation) {
	ctx, cancel := context.WithTimeout(context.Background(), r.saveTimeout)
	defer cancel()

	if err := r.repo.Save(ctx, conv); err != nil {
		r.logger.Error("Failed to save LLM conversation",
			zap.String("store_id", conv.StoreID.String()),
			zap.String("stage", conv.Stage),
			zap.String("model", conv.Model),
			zap.Error(err))
		return
	}

	r.logger.Debug("Saved LLM conversation",
		zap.String("id", conv.ID.String()),
		zap.String("stage", conv.Stage),
		zap.String("status", conv.Status),
		zap.Int("duration_ms", conv.DurationMs))
}

var _ ConversationRecorder = (*AsyncConversationRecorder)(nil)
