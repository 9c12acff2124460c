package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"project-chat-service/internal/middleware"
	"project-chat-service/internal/models"
	"project-chat-service/internal/observability"
)

const transportLongPoll = "longpoll"

// pollQueueSize bounds the per-session event backlog. A client that
// stops draining its queue is treated as disconnected.
const pollQueueSize = 64

const defaultPollWait = 25 * time.Second

var errPollQueueFull = errors.New("poll session queue full")

// LongPollHandler is the fallback transport for clients that cannot
// hold a websocket. It drives the same engine and registry as the
// websocket sessions: one poll session is one Subscriber.
type LongPollHandler struct {
	engine     *Engine
	sessionTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*pollSession
}

// NewLongPollHandler constructs a LongPollHandler. Sessions idle
// longer than sessionTTL are reaped by the janitor.
func NewLongPollHandler(engine *Engine, sessionTTL time.Duration) *LongPollHandler {
	return &LongPollHandler{
		engine:     engine,
		sessionTTL: sessionTTL,
		sessions:   make(map[string]*pollSession),
	}
}

// StartJanitor reaps idle sessions until ctx is done.
func (h *LongPollHandler) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(h.sessionTTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.reapIdle()
			}
		}
	}()
}

// Create opens a poll session for the authenticated identity.
func (h *LongPollHandler) Create(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	session := &pollSession{
		id:       uuid.NewString(),
		identity: ident,
		events:   make(chan Event, pollQueueSize),
		lastSeen: time.Now(),
	}

	h.mu.Lock()
	h.sessions[session.id] = session
	h.mu.Unlock()

	observability.IncRealtimeActive(transportLongPoll)
	observability.IncRealtimeEvent(transportLongPoll, "connect")
	c.JSON(http.StatusCreated, gin.H{"session_id": session.id})
}

// Join subscribes the poll session to a project room.
func (h *LongPollHandler) Join(c *gin.Context) {
	session, ok := h.touch(c)
	if !ok {
		return
	}

	var req struct {
		ProjectID string `json:"project_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.engine.Join(c.Request.Context(), session, req.ProjectID); err != nil {
		event := ErrorEvent(err)
		observability.IncMessageRejected(event.Error.Code)
		c.JSON(statusForCode(event.Error.Code), gin.H{"error": event.Error.Message})
		return
	}
	c.Status(http.StatusNoContent)
}

// Leave unsubscribes the poll session from a project room.
func (h *LongPollHandler) Leave(c *gin.Context) {
	session, ok := h.touch(c)
	if !ok {
		return
	}

	var req struct {
		ProjectID string `json:"project_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.engine.Leave(session, req.ProjectID)
	c.Status(http.StatusNoContent)
}

// SendMessage submits a message through the poll session. Rejections
// surface as HTTP errors instead of message_error frames.
func (h *LongPollHandler) SendMessage(c *gin.Context) {
	session, ok := h.touch(c)
	if !ok {
		return
	}

	var req struct {
		ProjectID string `json:"project_id" binding:"required"`
		Text      string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.engine.SendMessage(c.Request.Context(), session, req.ProjectID, req.Text, session.identity.ExternalID); err != nil {
		event := ErrorEvent(err)
		observability.IncMessageRejected(event.Error.Code)
		c.JSON(statusForCode(event.Error.Code), gin.H{"error": event.Error.Message})
		return
	}
	c.Status(http.StatusAccepted)
}

// Events long-polls the session queue, returning as soon as at least
// one event is available or the wait expires with an empty batch.
func (h *LongPollHandler) Events(c *gin.Context) {
	session, ok := h.touch(c)
	if !ok {
		return
	}

	wait := defaultPollWait
	if raw := c.Query("wait"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 && parsed < time.Minute {
			wait = parsed
		}
	}

	events := make([]Event, 0, 4)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case event := <-session.events:
		events = append(events, event)
	case <-timer.C:
		c.JSON(http.StatusOK, gin.H{"events": events})
		return
	case <-c.Request.Context().Done():
		c.Status(http.StatusRequestTimeout)
		return
	}

	// Drain whatever else has queued up behind the first event.
	for {
		select {
		case event := <-session.events:
			events = append(events, event)
		default:
			c.JSON(http.StatusOK, gin.H{"events": events})
			return
		}
	}
}

// Close tears down the session, leaving every joined room.
func (h *LongPollHandler) Close(c *gin.Context) {
	session, ok := h.touch(c)
	if !ok {
		return
	}
	h.drop(session)
	c.Status(http.StatusNoContent)
}

func (h *LongPollHandler) touch(c *gin.Context) (*pollSession, bool) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return nil, false
	}

	h.mu.Lock()
	session, exists := h.sessions[c.Param("session_id")]
	if exists {
		session.lastSeen = time.Now()
	}
	h.mu.Unlock()

	if !exists || session.identity.ExternalID != ident.ExternalID {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return nil, false
	}
	return session, true
}

func (h *LongPollHandler) drop(session *pollSession) {
	h.mu.Lock()
	_, exists := h.sessions[session.id]
	delete(h.sessions, session.id)
	h.mu.Unlock()
	if !exists {
		return
	}

	h.engine.Disconnect(session)
	observability.DecRealtimeActive(transportLongPoll)
	observability.IncRealtimeEvent(transportLongPoll, "disconnect")
}

func (h *LongPollHandler) reapIdle() {
	h.mu.Lock()
	expired := make([]*pollSession, 0)
	for _, session := range h.sessions {
		if time.Since(session.lastSeen) > h.sessionTTL {
			expired = append(expired, session)
		}
	}
	h.mu.Unlock()

	for _, session := range expired {
		h.drop(session)
	}
}

func statusForCode(code string) int {
	switch code {
	case CodeInvalidMessage, CodeInvalidFrame:
		return http.StatusBadRequest
	case CodeIdentity:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// pollSession is one long-poll-backed subscriber.
type pollSession struct {
	id       string
	identity models.Identity
	events   chan Event
	lastSeen time.Time
}

func (s *pollSession) ID() string { return s.id }

func (s *pollSession) Identity() models.Identity { return s.identity }

func (s *pollSession) Deliver(event Event) error {
	select {
	case s.events <- event:
		return nil
	default:
		return errPollQueueFull
	}
}
