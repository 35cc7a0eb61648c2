package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	busport "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/bus/port"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/application/usecase"
	chat "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/domain"
)

// HandleRead applies a READ_UP_TO event. A stale timestamp is acknowledged
// silently; only an actual advance is fanned out as a read receipt.
func (c *Consumers) HandleRead(ctx context.Context, d busport.Delivery) error {
	env, err := chat.DecodeEnvelope(d.Payload)
	if err != nil {
		return c.outcome(d.Topic, err)
	}
	if env.Type != chat.EventReadUpTo {
		return c.outcome(d.Topic, fmt.Errorf("unexpected event type %q on %s", env.Type, d.Topic))
	}

	advanced, err := c.deps.Read.Execute(ctx, usecase.AdvanceReadWatermarkInput{
		RoomID:     env.RoomID,
		MemberID:   env.ReadUpTo.MemberID,
		LastReadAt: env.ReadUpTo.LastReadAt,
	})
	if err != nil {
		return c.outcome(d.Topic, err)
	}
	if !advanced {
		return c.outcome(d.Topic, nil)
	}

	at := env.ReadUpTo.LastReadAt
	frame, err := json.Marshal(chat.OutboundFrame{
		MessageType: chat.EventReadUpTo,
		RoomID:      env.RoomID,
		MemberID:    env.ReadUpTo.MemberID,
		LastReadAt:  &at,
	})
	if err != nil {
		return c.outcome(d.Topic, err)
	}
	if err := c.publish(ctx, chat.TopicOutbound, env.RoomID, frame); err != nil {
		return c.outcome(d.Topic, fmt.Errorf("%w: %v", usecase.ErrPersistence, err))
	}
	return c.outcome(d.Topic, nil)
}
