// Package consumer holds the bus-facing stages of the pipeline: events
// published by the gateway come in, durable records and canonical outbound
// frames go out.
package consumer

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	busport "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/bus/port"
	queueport "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/queue/port"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/metrics"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/application/usecase"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/directory"
	chat "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/domain"
)

// Deps wires the consumer stages.
type Deps struct {
	Publisher busport.Publisher
	Persist   *usecase.PersistMessageUseCase
	Read      *usecase.AdvanceReadWatermarkUseCase
	Delete    *usecase.DeleteMessageUseCase
	Context   *usecase.BuildAssistContextUseCase
	Profiles  directory.Profiles
	Jobs      queueport.Client
	Log       zerolog.Logger
	Now       func() time.Time
}

// Consumers subscribes the persistence-side handlers. Handlers signal
// redelivery by returning an error; semantic failures are logged and
// acknowledged so a poisoned event can never wedge its partition.
type Consumers struct {
	deps Deps
}

func New(deps Deps) *Consumers {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	deps.Log = deps.Log.With().Str("component", "consumer").Logger()
	return &Consumers{deps: deps}
}

// Register binds every persistence-side topic on the subscriber.
func (c *Consumers) Register(sub busport.Subscriber) error {
	if err := sub.Subscribe(chat.TopicMessage, c.HandleMessage); err != nil {
		return err
	}
	if err := sub.Subscribe(chat.TopicRead, c.HandleRead); err != nil {
		return err
	}
	if err := sub.Subscribe(chat.TopicDelete, c.HandleDelete); err != nil {
		return err
	}
	return sub.Subscribe(chat.TopicAssist, c.HandleAssist)
}

// outcome records the consumed-event metric and returns the error to hand the
// bus: nil acknowledges, non-nil redelivers.
func (c *Consumers) outcome(topic string, err error) error {
	switch {
	case err == nil:
		metrics.EventsConsumed.WithLabelValues(topic, "ok").Inc()
		return nil
	case errors.Is(err, usecase.ErrPersistence):
		metrics.EventsConsumed.WithLabelValues(topic, "retry").Inc()
		return err
	default:
		// Semantic: terminal for this one event only.
		metrics.EventsConsumed.WithLabelValues(topic, "dropped").Inc()
		c.deps.Log.Warn().Err(err).Str("topic", topic).Msg("dropping event")
		return nil
	}
}

func (c *Consumers) publish(ctx context.Context, topic, key string, payload []byte) error {
	if err := c.deps.Publisher.Publish(ctx, topic, key, payload); err != nil {
		return err
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()
	return nil
}
