package port

import "context"

// Delivery is one event handed to a subscriber. Key is the partition key: all
// deliveries sharing a key on one topic arrive at the handler in publish order.
type Delivery struct {
	Topic   string
	Key     string
	Payload []byte
}

// Handler processes a delivery. A nil return acknowledges the event; a non-nil
// error leaves it unacknowledged so the adapter redelivers it. Handlers must
// therefore be idempotent.
type Handler func(ctx context.Context, d Delivery) error

// Publisher pushes keyed events onto a topic. Publish returns an error only
// when the event could not be handed to the broker; durability beyond that
// point is the broker's problem.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
	Close() error
}

// Subscriber binds handlers to topics. All subscription calls must happen
// before Run; Run blocks until the context is canceled.
//
// Subscribe is competing consumption: across all running instances of the
// service, each event is handled by exactly one. SubscribeBroadcast is
// fan-out consumption: every running instance handles every event. Persistence
// stages use the former; per-instance state like the session hub needs the
// latter.
type Subscriber interface {
	Subscribe(topic string, h Handler) error
	SubscribeBroadcast(topic string, h Handler) error
	Run(ctx context.Context) error
}

// Bus combines both sides. Broker-backed and in-process implementations are
// interchangeable behind this interface.
type Bus interface {
	Publisher
	Subscriber
}
