package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	busport "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/bus/port"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/realtime"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/metrics"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/directory"
	chat "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/domain"
)

// ContextMemberIDKey is where the upstream-auth middleware leaves the member
// identity. The gateway never takes identity from a request body.
const ContextMemberIDKey = "chat.memberId"

// RoomKind separates the human chat endpoint from the AI coach endpoint.
type RoomKind int

const (
	RoomKindHuman RoomKind = iota
	RoomKindAssistant
)

// defaultReadTimeout must exceed the 60s keepalive interval so a healthy but
// quiet peer is never dropped between pings.
const defaultReadTimeout = 90 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin is enforced by the upstream edge; the gateway trusts it.
		return true
	},
}

// Deps carries the gateway's collaborators.
type Deps struct {
	Hub       *realtime.Hub
	Registry  *realtime.Registry
	Members   directory.Membership
	Publisher busport.Publisher
	Log       zerolog.Logger
}

// ChatSocketController is the connection gateway: it admits one websocket per
// (member, room), relays validated frames onto the bus and never persists
// anything itself. The bus publish is the durability boundary, so a gateway
// crash between receipt and broadcast loses nothing that was accepted.
type ChatSocketController struct {
	kind RoomKind
	deps Deps
}

func NewChatSocketController(kind RoomKind, deps Deps) *ChatSocketController {
	deps.Log = deps.Log.With().Str("component", "gateway").Logger()
	return &ChatSocketController{kind: kind, deps: deps}
}

// Handle authorizes the handshake, upgrades the connection and runs the read
// loop until the client disconnects.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID := c.GetString(ContextMemberIDKey)
		roomID := c.Param("roomId")
		if memberID == "" || roomID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "member identity and room are required"})
			return
		}

		if !ctl.authorize(c, roomID, memberID) {
			return // authorize wrote the rejection; no session was registered
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; just log and return.
			ctl.deps.Log.Debug().Err(err).Msg("upgrade failed")
			return
		}

		conn := realtime.NewConnection(memberID, roomID, ws)
		ctl.deps.Registry.Add(conn)
		replaced := ctl.deps.Hub.Join(conn)
		conn.Start()
		metrics.LiveConnections.Inc()

		if replaced != nil {
			ctl.deps.Registry.Remove(replaced)
			replaced.Close(realtime.CloseSessionReplaced, "session replaced")
			metrics.SessionEvictions.Inc()
		}

		defer func() {
			ctl.deps.Hub.Leave(conn)
			ctl.deps.Registry.Remove(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
			metrics.LiveConnections.Dec()
		}()

		ctl.readLoop(c, ws, conn)
	}
}

// authorize re-validates membership and room kind before any session state is
// created. It reports false after writing the rejection.
func (ctl *ChatSocketController) authorize(c *gin.Context, roomID, memberID string) bool {
	ctx := c.Request.Context()

	ok, err := ctl.deps.Members.IsMember(ctx, roomID, memberID)
	if err != nil {
		if errors.Is(err, chat.ErrUnknownRoom) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return false
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "membership check unavailable"})
		return false
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this room"})
		return false
	}

	isBot, err := ctl.deps.Members.IsBotRoom(ctx, roomID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "room check unavailable"})
		return false
	}
	if isBot != (ctl.kind == RoomKindAssistant) {
		c.JSON(http.StatusForbidden, gin.H{"error": chat.ErrRoomKind.Error()})
		return false
	}
	return true
}

func (ctl *ChatSocketController) readLoop(c *gin.Context, ws *websocket.Conn, conn *realtime.Connection) {
	ws.SetReadLimit(1 << 20) // 1MB payload cap
	_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
	})

	ctl.sendJSON(conn, gin.H{"messageType": "CONNECTED", "roomId": conn.RoomID})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !isExpectedClose(err) {
				ctl.deps.Log.Debug().Err(err).Str("member", conn.MemberID).Msg("read failed")
			}
			return
		}
		ctl.dispatch(c, conn, data)
	}
}

func (ctl *ChatSocketController) dispatch(c *gin.Context, conn *realtime.Connection, data []byte) {
	var frame chat.InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		ctl.replyError(conn, "bad_request", "invalid payload")
		return
	}
	metrics.FramesIn.WithLabelValues(string(frame.MessageType)).Inc()

	env, err := ctl.envelopeFromFrame(conn, frame)
	if err != nil {
		ctl.replyError(conn, "validation_failed", err.Error())
		return
	}

	payload, err := env.Encode()
	if err != nil {
		ctl.replyError(conn, "validation_failed", err.Error())
		return
	}

	topic := topicFor(env.Type)
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	if err := ctl.deps.Publisher.Publish(ctx, topic, conn.RoomID, payload); err != nil {
		// The event was never accepted by the broker, so the client must
		// resend; its idempotency key makes that safe.
		ctl.deps.Log.Error().Err(err).Str("topic", topic).Msg("publish failed")
		ctl.replyError(conn, "try_again", "message not accepted, please resend")
		return
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()
}

// envelopeFromFrame validates the frame per tag and shapes the bus envelope.
// Identity always comes from the session, never from the frame.
func (ctl *ChatSocketController) envelopeFromFrame(conn *realtime.Connection, frame chat.InboundFrame) (chat.Envelope, error) {
	env := chat.Envelope{Type: frame.MessageType, RoomID: conn.RoomID}

	switch frame.MessageType {
	case chat.EventMessage:
		if frame.ClientMessageID == "" {
			return chat.Envelope{}, chat.ErrMissingKey
		}
		if strings.TrimSpace(frame.Content) == "" && len(frame.Attachments) == 0 {
			return chat.Envelope{}, chat.ErrEmptyContent
		}
		env.Message = &chat.MessageEvent{
			ClientMessageID: frame.ClientMessageID,
			AuthorID:        conn.MemberID,
			Content:         strings.TrimSpace(frame.Content),
			Attachments:     frame.Attachments,
			Assist:          frame.Assist || ctl.kind == RoomKindAssistant,
			SentAt:          time.Now(),
		}
	case chat.EventReadUpTo:
		if frame.LastReadAt == nil || frame.LastReadAt.IsZero() {
			return chat.Envelope{}, chat.ErrMissingTime
		}
		env.ReadUpTo = &chat.ReadUpToEvent{MemberID: conn.MemberID, LastReadAt: *frame.LastReadAt}
	case chat.EventDelete:
		if frame.DeleteID == "" {
			return chat.Envelope{}, chat.ErrMissingTarget
		}
		env.Delete = &chat.DeleteEvent{MemberID: conn.MemberID, DeleteID: frame.DeleteID}
	default:
		return chat.Envelope{}, fmt.Errorf("unknown message type %q", frame.MessageType)
	}
	return env, nil
}

func topicFor(t chat.EventType) string {
	switch t {
	case chat.EventReadUpTo:
		return chat.TopicRead
	case chat.EventDelete:
		return chat.TopicDelete
	default:
		return chat.TopicMessage
	}
}

func (ctl *ChatSocketController) replyError(conn *realtime.Connection, code, message string) {
	metrics.FrameRejections.WithLabelValues(code).Inc()
	ctl.sendJSON(conn, chat.NewErrorFrame(code, message))
}

func (ctl *ChatSocketController) sendJSON(conn *realtime.Connection, v any) {
	if payload, err := json.Marshal(v); err == nil {
		_ = conn.Send(payload)
	}
}

func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) || errors.Is(err, websocket.ErrCloseSent)
}
