package task

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	busport "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/bus/port"
	qport "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/queue/port"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/ai"
	chat "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/domain"
)

// AssistReplyTaskType is the queue task name for generating an AI reply.
const AssistReplyTaskType = "chat:assist_reply"

// terminalReply is the single bot-error message surfaced when every provider
// is exhausted.
const terminalReply = "Your coach is unavailable right now. Please try again in a moment."

// AssistReplyPayload is the JSON payload transported via the queue.
type AssistReplyPayload struct {
	RoomID    string       `json:"roomId"`
	RequestID string       `json:"requestId"`
	Messages  []ai.Message `json:"messages"`
}

// RegisterAssistReplyTask binds the AI generation handler to the worker
// server. The bot reply re-enters the message pipeline as a regular producer;
// its logical id is derived from the request id, so a retried task can never
// persist a second record, the terminal error message included.
func RegisterAssistReplyTask(srv qport.Server, orch *ai.Orchestrator, pub busport.Publisher, log zerolog.Logger) {
	log = log.With().Str("task", AssistReplyTaskType).Logger()

	srv.Register(AssistReplyTaskType, func(ctx context.Context, t qport.Task) error {
		var p AssistReplyPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			log.Error().Err(err).Msg("malformed payload, dropping")
			return nil
		}

		event := chat.MessageEvent{ClientMessageID: p.RequestID, SentAt: time.Now()}

		rec, err := orch.Generate(ctx, ai.Request{RoomID: p.RoomID, Messages: p.Messages})
		switch {
		case err == nil:
			event.Content = rec.Reply
			if raw, merr := json.Marshal(rec); merr == nil {
				event.Recommendation = raw
			}
		case errors.Is(err, ai.ErrProvidersExhausted):
			log.Error().Err(err).Str("room", p.RoomID).Msg("providers exhausted, sending terminal reply")
			event.Content = terminalReply
		default:
			// Cancellation or shutdown; let the queue retry the whole call.
			return err
		}

		env := chat.Envelope{Type: chat.EventMessage, RoomID: p.RoomID, Message: &event}
		payload, err := env.Encode()
		if err != nil {
			log.Error().Err(err).Msg("encode bot reply, dropping")
			return nil
		}
		// Publish failure retries the task; the bot id keeps it idempotent.
		return pub.Publish(ctx, chat.TopicMessage, p.RoomID, payload)
	})
}
