package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"filiale-console/internal/model"
)

const archivePrefetch = 20

// TranscriptStore persists archived chat messages.
type TranscriptStore interface {
	Create(ctx context.Context, msg *model.ArchivedMessage) error
}

// TranscriptArchiveWorker drains the archive queue into the transcript store.
type TranscriptArchiveWorker struct {
	conn      *amqp.Connection
	store     TranscriptStore
	queueName string
	log       *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTranscriptArchiveWorker(conn *amqp.Connection, store TranscriptStore, queueName string, log *zap.Logger) *TranscriptArchiveWorker {
	if log == nil {
		log = zap.NewNop()
	}
	return &TranscriptArchiveWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		log:       log,
	}
}

func (w *TranscriptArchiveWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := ch.QueueDeclare(w.queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}
	if err := ch.Qos(archivePrefetch, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker prefetch failed: %w", err)
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.log.Warn("archive queue closed", zap.String("queue", w.queueName))
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					w.log.Warn("archive transcript failed", zap.String("queue", w.queueName), zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.log.Info("transcript archive worker started", zap.String("queue", w.queueName))
	return nil
}

func (w *TranscriptArchiveWorker) handle(ctx context.Context, body []byte) error {
	var msg model.ArchivedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode transcript failed: %w", err)
	}
	if msg.ConversationID == "" || msg.MessageID == "" {
		return fmt.Errorf("transcript without conversation or message id")
	}
	msg.ID = 0
	return w.store.Create(ctx, &msg)
}

func (w *TranscriptArchiveWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
