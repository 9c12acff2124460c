package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"project-chat-service/internal/middleware"
	"project-chat-service/internal/models"
	"project-chat-service/internal/observability"
)

const transportWebsocket = "websocket"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SessionHandler upgrades HTTP requests to websocket sessions and
// drives their read loops against the broadcast engine.
type SessionHandler struct {
	engine *Engine
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(engine *Engine) *SessionHandler {
	return &SessionHandler{engine: engine}
}

// Handle upgrades the connection and starts the session read loop.
func (h *SessionHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("project-chat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      uuid.NewString(),
		ExternalID:  ident.ExternalID,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	session := &wsSession{id: info.ConnID, conn: conn, identity: ident}

	observability.IncRealtimeActive(transportWebsocket)
	observability.IncRealtimeEvent(transportWebsocket, "connect")
	publishConnEvent(context.Background(), "connect", info, "")

	go h.readLoop(session, info)
}

func (h *SessionHandler) readLoop(session *wsSession, info ConnInfo) {
	var closeReason string
	defer func() {
		h.engine.Disconnect(session)
		session.close()
		observability.DecRealtimeActive(transportWebsocket)
		observability.IncRealtimeEvent(transportWebsocket, "disconnect")
		publishConnEvent(context.Background(), "disconnect", info, closeReason)
	}()

	ctx := context.Background()
	for {
		_, payload, err := session.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncRealtimeEvent(transportWebsocket, "error")
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			h.reject(session, Event{Type: EventMessageError, Error: &EventError{Code: CodeInvalidFrame, Message: "malformed frame"}}, CodeInvalidFrame)
			continue
		}
		h.dispatch(ctx, session, frame)
	}
}

func (h *SessionHandler) dispatch(ctx context.Context, session *wsSession, frame ClientFrame) {
	switch frame.Type {
	case EventJoinProject:
		if err := h.engine.Join(ctx, session, frame.ProjectID); err != nil {
			h.reject(session, ErrorEvent(err), ErrorCode(err))
		}
	case EventLeaveProject:
		h.engine.Leave(session, frame.ProjectID)
	case EventSendMessage:
		if err := h.engine.SendMessage(ctx, session, frame.ProjectID, frame.Text, frame.AuthorExternalID); err != nil {
			h.reject(session, ErrorEvent(err), ErrorCode(err))
		}
	default:
		h.reject(session, Event{Type: EventMessageError, Error: &EventError{Code: CodeInvalidFrame, Message: "unknown event type"}}, CodeInvalidFrame)
	}
}

// reject reports a failure to the originating connection only.
func (h *SessionHandler) reject(session *wsSession, event Event, reason string) {
	observability.IncMessageRejected(reason)
	if err := session.Deliver(event); err != nil {
		log.Printf("reject delivery failed: %v", err)
	}
}

func publishConnEvent(ctx context.Context, name string, info ConnInfo, reason string) {
	payload := map[string]interface{}{
		"realtime": map[string]interface{}{
			"transport":   transportWebsocket,
			"event":       name,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"external_id": info.ExternalID,
			"ip":          info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(ctx, "realtime_events.connections",
		observability.NewEnvelope("realtime_events", name, payload), headers)
}

// ConnInfo snapshots one websocket connection for telemetry: who
// connected, from where, and under which trace.
type ConnInfo struct {
	ConnID      string
	ExternalID  string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// wsSession is one websocket-backed subscriber. Writes go through a
// mutex: the read loop, the engine's broadcast path and rejection
// delivery all write concurrently.
type wsSession struct {
	id       string
	conn     *websocket.Conn
	identity models.Identity

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (s *wsSession) ID() string { return s.id }

func (s *wsSession) Identity() models.Identity { return s.identity }

func (s *wsSession) Deliver(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("websocket write error: %v", err)
		s.close()
		return err
	}
	return nil
}

func (s *wsSession) close() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
	})
}
