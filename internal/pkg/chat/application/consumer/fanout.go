package consumer

import (
	"context"

	busport "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/bus/port"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/realtime"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/metrics"
	chat "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/domain"
)

// Fanout is the gateway-side stage: every gateway replica subscribes it to the
// outbound topic and pushes each canonical frame to the local sessions of the
// affected room. Delivery to clients is at-least-once; clients de-duplicate by
// the frame's logical id.
type Fanout struct {
	hub *realtime.Hub
}

func NewFanout(hub *realtime.Hub) *Fanout {
	return &Fanout{hub: hub}
}

// Register binds the fan-out handler on the subscriber. The outbound topic is
// consumed broadcast-style: each gateway replica must see every frame, since
// any replica may hold sessions for the room.
func (f *Fanout) Register(sub busport.Subscriber) error {
	return sub.SubscribeBroadcast(chat.TopicOutbound, f.Handle)
}

// Handle pushes one committed frame to the room's live sessions. It never
// fails the delivery: a dead session is evicted by the hub, and there is
// nothing to retry beyond that.
func (f *Fanout) Handle(ctx context.Context, d busport.Delivery) error {
	delivered := f.hub.Broadcast(d.Key, d.Payload)
	metrics.BroadcastDeliveries.Add(float64(delivered))
	return nil
}
