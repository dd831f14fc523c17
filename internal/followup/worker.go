package followup

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/clientcheck/followup-platform/pkg/logging"
)

type workerConfig struct {
	workers          int
	receiveBatchSize int
	receiveWaitSecs  int
	handleTimeout    time.Duration
}

// Worker consumes queued action presses and runs the decision pipeline.
// Each message gets a bounded execution window so a stuck remote call
// cannot hold the notification un-cancelled forever.
type Worker struct {
	queue    queueClient
	pipeline *Pipeline
	logger   *logging.Logger
	cfg      workerConfig
	wg       sync.WaitGroup
}

func NewWorker(queue queueClient, pipeline *Pipeline, logger *logging.Logger) *Worker {
	if queue == nil {
		panic("followup: queue cannot be nil")
	}
	if pipeline == nil {
		panic("followup: pipeline cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		queue:    queue,
		pipeline: pipeline,
		logger:   logger,
		cfg: workerConfig{
			workers:          2,
			receiveBatchSize: 10,
			receiveWaitSecs:  10,
			handleTimeout:    30 * time.Second,
		},
	}
}

func (w *Worker) WithWorkers(n int) *Worker {
	if n > 0 {
		w.cfg.workers = n
	}
	return w
}

func (w *Worker) WithHandleTimeout(d time.Duration) *Worker {
	if d > 0 {
		w.cfg.handleTimeout = d
	}
	return w
}

// Start launches worker goroutines until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("followup worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("followup worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive action events", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	var payload queuePayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		w.logger.Error("failed to decode action event", "error", err, "msg_id", msg.ID)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	handleCtx, cancel := context.WithTimeout(ctx, w.cfg.handleTimeout)
	err := w.pipeline.HandleAction(handleCtx, payload.Action)
	cancel()
	if err != nil {
		w.logger.Error("action pipeline failed",
			"error", err,
			"job_id", payload.ID,
			"action_id", payload.Action.ActionID,
		)
	}

	// The pipeline always reaches a terminal state (cancelled notification),
	// so the message is consumed even on error; retrying a dispatch could
	// message the contact twice.
	w.deleteMessage(context.Background(), msg.ReceiptHandle)
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if err := w.queue.Delete(ctx, receiptHandle); err != nil {
		w.logger.Error("failed to delete queue message", "error", err)
	}
}
