// Package chatclient is the Go mirror of the browser chat controller:
// it owns one realtime connection, joins project rooms, reconciles the
// live stream with one-time history hydration and classifies incoming
// messages against its own identity.
package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"project-chat-service/internal/models"
	"project-chat-service/internal/ws"
)

// ConnState is the transport connection state.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

var (
	ErrNotConnected = errors.New("transport is not connected")
	ErrEmptyInput   = errors.New("message is empty")
	ErrClosed       = errors.New("client is closed")
)

// Message is an entry in the client's local ordered view. Mine is
// derived from the carried external identity, never from guesswork
// about send timing.
type Message struct {
	models.MessageView
	Mine bool
}

// Options configures a Client.
type Options struct {
	// BaseURL is the http(s) origin of the chat service.
	BaseURL string
	// Identity is the client's own externally-issued identity.
	Identity models.Identity
	// OnMessage, when set, observes every appended message.
	OnMessage func(projectID string, msg Message)
	// OnError, when set, observes message_error events.
	OnError func(code, message string)
	// ReconnectBase is the initial reconnect backoff. Defaults to
	// 500ms, doubling up to 30s.
	ReconnectBase time.Duration
	// HTTPClient is used for history hydration. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client
}

// Client is one user's connection to the realtime chat. All methods
// are safe for concurrent use.
type Client struct {
	opts       Options
	httpClient *http.Client

	// writeMu serializes frame writes; gorilla conns allow only one
	// concurrent writer.
	writeMu sync.Mutex

	mu          sync.Mutex
	state       ConnState
	conn        *websocket.Conn
	joined      map[string]bool
	views       map[string][]Message
	closed      bool
	connectedCh chan struct{}
}

// New constructs a Client in the disconnected state.
func New(opts Options) *Client {
	if opts.ReconnectBase <= 0 {
		opts.ReconnectBase = 500 * time.Millisecond
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		opts:        opts,
		httpClient:  httpClient,
		joined:      make(map[string]bool),
		views:       make(map[string][]Message),
		connectedCh: make(chan struct{}),
	}
}

// Connect dials the realtime endpoint and starts the read loop with
// automatic reconnection. It returns once the first connection attempt
// resolves; later drops are retried in the background.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return err
	}

	c.onConnected(conn)
	go c.readLoop(ctx, conn)
	return nil
}

// State reports the current transport state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// WaitConnected blocks until the transport reaches connected or ctx is
// done.
func (c *Client) WaitConnected(ctx context.Context) error {
	c.mu.Lock()
	ch := c.connectedCh
	if c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join subscribes to a project's room. Joins issued while the
// transport is still connecting are held in the joined set and
// replayed on connect, never dropped.
func (c *Client) Join(projectID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.joined[projectID] = true
	if c.state != StateConnected {
		c.mu.Unlock()
		return nil
	}
	conn := c.conn
	c.mu.Unlock()

	return c.writeFrame(conn, ws.ClientFrame{Type: ws.EventJoinProject, ProjectID: projectID})
}

// Leave unsubscribes from a project's room.
func (c *Client) Leave(projectID string) error {
	c.mu.Lock()
	delete(c.joined, projectID)
	if c.state != StateConnected {
		c.mu.Unlock()
		return nil
	}
	conn := c.conn
	c.mu.Unlock()

	return c.writeFrame(conn, ws.ClientFrame{Type: ws.EventLeaveProject, ProjectID: projectID})
}

// SubmitMessage sends a message. Empty input (after trimming) and a
// not-connected transport are rejected locally without touching the
// network. There is no optimistic append: the message shows up in the
// local view when its broadcast echo arrives.
func (c *Client) SubmitMessage(projectID, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}

	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.Unlock()

	return c.writeFrame(conn, ws.ClientFrame{
		Type:             ws.EventSendMessage,
		ProjectID:        projectID,
		Text:             text,
		AuthorExternalID: c.opts.Identity.ExternalID,
	})
}

// History hydrates the project's local view from the non-realtime
// history endpoint: the most recent page, chronological. Hydration
// replaces the view once; live messages then append behind it.
func (c *Client) History(ctx context.Context, projectID string) error {
	endpoint := fmt.Sprintf("%s/projects/%s/messages", strings.TrimRight(c.opts.BaseURL, "/"), url.PathEscape(projectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-External-Id", c.opts.Identity.ExternalID)
	req.Header.Set("X-User-Email", c.opts.Identity.Email)
	req.Header.Set("X-User-Name", c.opts.Identity.Name)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("history fetch: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Messages []models.MessageView `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}

	view := make([]Message, 0, len(body.Messages))
	for _, msg := range body.Messages {
		view = append(view, c.classify(msg))
	}

	c.mu.Lock()
	c.views[projectID] = view
	c.mu.Unlock()
	return nil
}

// Messages returns a copy of the project's local ordered view.
func (c *Client) Messages(projectID string) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	view := c.views[projectID]
	out := make([]Message, len(view))
	copy(out, view)
	return out
}

// IsMine classifies a message by comparing its carried external
// identity with the client's own.
func (c *Client) IsMine(msg models.MessageView) bool {
	return msg.AuthorExternalID == c.opts.Identity.ExternalID
}

// Close tears down the transport and stops reconnecting.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	wsURL, err := websocketURL(c.opts.BaseURL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("X-External-Id", c.opts.Identity.ExternalID)
	header.Set("X-User-Email", c.opts.Identity.Email)
	header.Set("X-User-Name", c.opts.Identity.Name)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// onConnected flips the state and replays every room in the joined set
// (pre-connect joins and rooms held from a previous connection alike)
// so a join can never be lost to a race with the handshake.
func (c *Client) onConnected(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	close(c.connectedCh)
	c.connectedCh = make(chan struct{})
	rejoin := make([]string, 0, len(c.joined))
	for projectID := range c.joined {
		rejoin = append(rejoin, projectID)
	}
	c.mu.Unlock()

	for _, projectID := range rejoin {
		_ = c.writeFrame(conn, ws.ClientFrame{Type: ws.EventJoinProject, ProjectID: projectID})
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if !c.markDisconnected(conn) {
				return
			}
			c.reconnect(ctx)
			return
		}

		var event ws.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			continue
		}
		c.handleEvent(event)
	}
}

func (c *Client) handleEvent(event ws.Event) {
	switch event.Type {
	case ws.EventNewMessage:
		if event.Message == nil {
			return
		}
		c.appendMessage(*event.Message)
	case ws.EventMessageError:
		if event.Error != nil && c.opts.OnError != nil {
			c.opts.OnError(event.Error.Code, event.Error.Message)
		}
	}
}

// appendMessage appends in arrival order. There is no dedup key and no
// correlation id: the echo of the client's own send arrives the same
// way as everyone else's messages.
func (c *Client) appendMessage(view models.MessageView) {
	msg := c.classify(view)
	projectID := c.projectForAppend(view)

	c.mu.Lock()
	c.views[projectID] = append(c.views[projectID], msg)
	c.mu.Unlock()

	if c.opts.OnMessage != nil {
		c.opts.OnMessage(projectID, msg)
	}
}

// projectForAppend picks the view bucket for an incoming message. The
// broadcast payload carries the project id; the single-room fallback
// covers servers that predate that field.
func (c *Client) projectForAppend(view models.MessageView) string {
	if view.ProjectID != "" {
		return view.ProjectID
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.joined) == 1 {
		for projectID := range c.joined {
			return projectID
		}
	}
	return ""
}

func (c *Client) classify(view models.MessageView) Message {
	return Message{MessageView: view, Mine: c.IsMine(view)}
}

// markDisconnected reports whether a reconnect should be attempted.
func (c *Client) markDisconnected(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn != conn {
		return false
	}
	_ = conn.Close()
	c.conn = nil
	c.state = StateConnecting
	return true
}

func (c *Client) reconnect(ctx context.Context) {
	backoff := c.opts.ReconnectBase
	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.state = StateDisconnected
			c.mu.Unlock()
			return
		case <-time.After(backoff):
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		conn, err := c.dial(ctx)
		if err == nil {
			c.onConnected(conn)
			go c.readLoop(ctx, conn)
			return
		}

		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

func (c *Client) writeFrame(conn *websocket.Conn, frame ws.ClientFrame) error {
	if conn == nil {
		return ErrNotConnected
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func websocketURL(baseURL string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/ws"
	return parsed.String(), nil
}
