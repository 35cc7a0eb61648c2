package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	busport "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/bus/port"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/application/usecase"
	chat "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/domain"
)

// HandleDelete removes a message on the author's request. Deleting a message
// that is already gone acknowledges without fan-out; deleting someone else's
// message is dropped as semantic.
func (c *Consumers) HandleDelete(ctx context.Context, d busport.Delivery) error {
	env, err := chat.DecodeEnvelope(d.Payload)
	if err != nil {
		return c.outcome(d.Topic, err)
	}
	if env.Type != chat.EventDelete {
		return c.outcome(d.Topic, fmt.Errorf("unexpected event type %q on %s", env.Type, d.Topic))
	}

	deleted, err := c.deps.Delete.Execute(ctx, usecase.DeleteMessageInput{
		RoomID:      env.RoomID,
		RequesterID: env.Delete.MemberID,
		DeleteID:    env.Delete.DeleteID,
	})
	if err != nil {
		return c.outcome(d.Topic, err)
	}
	if !deleted {
		return c.outcome(d.Topic, nil)
	}

	frame, err := json.Marshal(chat.OutboundFrame{
		MessageType: chat.EventDelete,
		RoomID:      env.RoomID,
		DeleteID:    env.Delete.DeleteID,
		MemberID:    env.Delete.MemberID,
	})
	if err != nil {
		return c.outcome(d.Topic, err)
	}
	if err := c.publish(ctx, chat.TopicOutbound, env.RoomID, frame); err != nil {
		return c.outcome(d.Topic, fmt.Errorf("%w: %v", usecase.ErrPersistence, err))
	}
	return c.outcome(d.Topic, nil)
}
