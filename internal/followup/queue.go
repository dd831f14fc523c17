package followup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

type queuePayload struct {
	ID     string      `json:"id"`
	Action ActionEvent `json:"action"`
}

func encodePayload(payload queuePayload) (queuePayload, string, error) {
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return queuePayload{}, "", fmt.Errorf("followup: failed to encode payload: %w", err)
	}

	return payload, string(body), nil
}

// Publisher enqueues notification action presses for the background worker.
type Publisher struct {
	queue queueClient
}

func NewPublisher(queue queueClient) *Publisher {
	if queue == nil {
		panic("followup: queue cannot be nil")
	}
	return &Publisher{queue: queue}
}

// Publish hands an action press to the queue. The HTTP webhook returns as
// soon as the enqueue succeeds; the pipeline runs out of band.
func (p *Publisher) Publish(ctx context.Context, event ActionEvent) error {
	_, body, err := encodePayload(queuePayload{Action: event})
	if err != nil {
		return err
	}
	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("followup: failed to publish action: %w", err)
	}
	return nil
}
