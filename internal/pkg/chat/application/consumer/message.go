package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	busport "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/bus/port"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/metrics"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/application/usecase"
	chat "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/domain"
)

// botDisplayName labels assistant-authored frames for clients.
const botDisplayName = "Loopin Coach"

// HandleMessage is the durability stage: validate, persist idempotently, then
// re-emit the canonical record for fan-out. Redelivery at any point re-enters
// with a no-op upsert, so the handler is safe to run any number of times.
func (c *Consumers) HandleMessage(ctx context.Context, d busport.Delivery) error {
	env, err := chat.DecodeEnvelope(d.Payload)
	if err != nil {
		return c.outcome(d.Topic, err)
	}
	if env.Type != chat.EventMessage {
		return c.outcome(d.Topic, fmt.Errorf("unexpected event type %q on %s", env.Type, d.Topic))
	}

	rec, err := recordFromEvent(env, c.deps.Now())
	if err != nil {
		return c.outcome(d.Topic, err)
	}

	stored, inserted, err := c.deps.Persist.Execute(ctx, rec)
	if err != nil {
		return c.outcome(d.Topic, err)
	}
	if !inserted {
		metrics.DuplicatesSuppressed.Inc()
	}

	frame, err := c.canonicalFrame(ctx, stored, env.Message.ClientMessageID)
	if err != nil {
		// Profile resolution is store I/O; redeliver and try again.
		return c.outcome(d.Topic, fmt.Errorf("%w: %v", usecase.ErrPersistence, err))
	}
	if err := c.publish(ctx, chat.TopicOutbound, stored.RoomID, frame); err != nil {
		return c.outcome(d.Topic, fmt.Errorf("%w: %v", usecase.ErrPersistence, err))
	}

	if inserted && env.Message.Assist && !stored.IsBot() {
		if err := c.requestAssist(ctx, env); err != nil {
			return c.outcome(d.Topic, fmt.Errorf("%w: %v", usecase.ErrPersistence, err))
		}
	}
	return c.outcome(d.Topic, nil)
}

func recordFromEvent(env chat.Envelope, now time.Time) (chat.MessageRecord, error) {
	e := env.Message
	at := e.SentAt
	if at.IsZero() {
		at = now
	}
	if e.AuthorID == "" {
		return chat.NewBotMessage(env.RoomID, e.ClientMessageID, e.Content, e.Recommendation, at)
	}
	return chat.NewUserMessage(env.RoomID, e.AuthorID, e.ClientMessageID, e.Content, e.Attachments, at)
}

// canonicalFrame builds the server-assigned outbound frame for a stored
// record, resolving author display fields.
func (c *Consumers) canonicalFrame(ctx context.Context, rec chat.MessageRecord, clientMessageID string) ([]byte, error) {
	created := rec.CreatedAt
	out := chat.OutboundFrame{
		MessageType:     chat.EventMessage,
		ID:              rec.LogicalID,
		RoomID:          rec.RoomID,
		ClientMessageID: clientMessageID,
		AuthorID:        rec.AuthorID,
		Content:         rec.Content,
		Attachments:     rec.Attachments,
		Recommendation:  rec.Recommendation,
		CreatedAt:       &created,
	}
	if rec.IsBot() {
		out.AuthorName = botDisplayName
	} else {
		profiles, err := c.deps.Profiles.Lookup(ctx, []string{rec.AuthorID})
		if err != nil {
			return nil, err
		}
		if p, ok := profiles[rec.AuthorID]; ok {
			out.AuthorName = p.Name
			out.AuthorImageURL = p.ImageURL
		}
	}
	return json.Marshal(out)
}

// AssistRequest crosses from the message stage to the assist stage on its own
// topic, partitioned by room like everything else.
type AssistRequest struct {
	RoomID    string `json:"roomId"`
	RequestID string `json:"requestId"`
	MemberID  string `json:"memberId"`
}

func (c *Consumers) requestAssist(ctx context.Context, env chat.Envelope) error {
	req := AssistRequest{
		RoomID:    env.RoomID,
		RequestID: env.Message.ClientMessageID,
		MemberID:  env.Message.AuthorID,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return c.publish(ctx, chat.TopicAssist, env.RoomID, payload)
}
