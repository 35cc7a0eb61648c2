package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	busport "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/bus/port"
	queueport "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/queue/port"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/ai"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/application/task"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/application/usecase"
)

// HandleAssist snapshots the conversation and hands the model call to the job
// queue. Running the model off the partition worker keeps one slow provider
// call from blocking every other room sharing the partition.
func (c *Consumers) HandleAssist(ctx context.Context, d busport.Delivery) error {
	var req AssistRequest
	if err := json.Unmarshal(d.Payload, &req); err != nil {
		return c.outcome(d.Topic, fmt.Errorf("malformed assist request: %w", err))
	}
	if req.RoomID == "" || req.RequestID == "" {
		return c.outcome(d.Topic, fmt.Errorf("assist request missing room or request id"))
	}
	if c.deps.Jobs == nil {
		return c.outcome(d.Topic, fmt.Errorf("assist pipeline disabled, no job queue configured"))
	}

	snapshot, err := c.deps.Context.Execute(ctx, req.RoomID)
	if err != nil {
		return c.outcome(d.Topic, err)
	}

	messages := make([]ai.Message, 0, len(snapshot.Records))
	for _, rec := range snapshot.Records {
		m := ai.Message{Role: "user", Content: rec.Content}
		if rec.IsBot() {
			m.Role = "assistant"
		} else if p, ok := snapshot.Profiles[rec.AuthorID]; ok {
			m.Author = p.Name
		}
		messages = append(messages, m)
	}

	payload, err := json.Marshal(task.AssistReplyPayload{
		RoomID:    req.RoomID,
		RequestID: req.RequestID,
		Messages:  messages,
	})
	if err != nil {
		return c.outcome(d.Topic, err)
	}

	_, err = c.deps.Jobs.Enqueue(ctx, queueport.Task{Type: task.AssistReplyTaskType, Payload: payload},
		queueport.EnqueueOption{
			Queue:     "assist",
			MaxRetry:  3,
			Timeout:   2 * time.Minute,
			UniqueTTL: time.Hour, // one generation per request id at a time
		})
	if err != nil {
		return c.outcome(d.Topic, fmt.Errorf("%w: %v", usecase.ErrPersistence, err))
	}
	return c.outcome(d.Topic, nil)
}
