package chatclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-chat-service/internal/models"
	"project-chat-service/internal/ws"
)

// fakeChatServer is a minimal realtime endpoint: it records join frames
// and echoes every send_message to all connected clients, the way the
// real engine broadcasts to a room.
type fakeChatServer struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu      sync.Mutex
	conns   map[*websocket.Conn]bool
	joins   chan ws.ClientFrame
	history []models.MessageView
}

func newFakeChatServer(t *testing.T) *fakeChatServer {
	t.Helper()
	f := &fakeChatServer{
		conns: make(map[*websocket.Conn]bool),
		joins: make(chan ws.ClientFrame, 16),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", f.handleWS)
	mux.HandleFunc("/projects/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		history := f.history
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"messages": history})
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeChatServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	f.mu.Lock()
	f.conns[conn] = true
	f.mu.Unlock()

	go func() {
		defer func() {
			f.mu.Lock()
			delete(f.conns, conn)
			f.mu.Unlock()
			conn.Close()
		}()
		for {
			var frame ws.ClientFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			switch frame.Type {
			case ws.EventJoinProject:
				f.joins <- frame
			case ws.EventSendMessage:
				f.broadcast(ws.Event{Type: ws.EventNewMessage, Message: &models.MessageView{
					ID:               "m1",
					ProjectID:        frame.ProjectID,
					AuthorExternalID: frame.AuthorExternalID,
					Text:             frame.Text,
					CreatedAt:        time.Now(),
				}})
			}
		}
	}()
}

func (f *fakeChatServer) broadcast(event ws.Event) {
	payload, _ := json.Marshal(event)
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.conns {
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}
}

func (f *fakeChatServer) dropAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.conns {
		conn.Close()
	}
}

func (f *fakeChatServer) waitJoin(t *testing.T) ws.ClientFrame {
	t.Helper()
	select {
	case frame := <-f.joins:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for join frame")
		return ws.ClientFrame{}
	}
}

func newTestClient(t *testing.T, server *fakeChatServer, externalID string, onMessage func(string, Message)) *Client {
	t.Helper()
	client := New(Options{
		BaseURL:       server.server.URL,
		Identity:      models.Identity{ExternalID: externalID, Name: "Tester"},
		OnMessage:     onMessage,
		ReconnectBase: 20 * time.Millisecond,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestJoinBeforeConnectIsBufferedAndReplayed(t *testing.T) {
	server := newFakeChatServer(t)
	client := newTestClient(t, server, "ext-1", nil)

	require.NoError(t, client.Join("p1"))
	require.NoError(t, client.Connect(context.Background()))

	frame := server.waitJoin(t)
	assert.Equal(t, ws.EventJoinProject, frame.Type)
	assert.Equal(t, "p1", frame.ProjectID)
}

func TestSubmitAndReceiveClassifiesOwnEcho(t *testing.T) {
	server := newFakeChatServer(t)

	received := make(chan Message, 4)
	sender := newTestClient(t, server, "ext-1", func(_ string, msg Message) { received <- msg })

	peerReceived := make(chan Message, 4)
	peer := newTestClient(t, server, "ext-2", func(_ string, msg Message) { peerReceived <- msg })

	require.NoError(t, sender.Connect(context.Background()))
	require.NoError(t, peer.Connect(context.Background()))
	require.NoError(t, sender.Join("p1"))
	require.NoError(t, peer.Join("p1"))
	server.waitJoin(t)
	server.waitJoin(t)

	require.NoError(t, sender.SubmitMessage("p1", "hello"))

	select {
	case msg := <-received:
		assert.True(t, msg.Mine)
		assert.Equal(t, "hello", msg.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("sender never received its own echo")
	}

	select {
	case msg := <-peerReceived:
		assert.False(t, msg.Mine)
		assert.Equal(t, "hello", msg.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("peer never received the message")
	}

	view := sender.Messages("p1")
	require.Len(t, view, 1)
	assert.True(t, view[0].Mine)
}

func TestMessagesRouteByProjectWithMultipleRooms(t *testing.T) {
	server := newFakeChatServer(t)

	received := make(chan string, 4)
	client := newTestClient(t, server, "ext-1", func(projectID string, _ Message) { received <- projectID })

	require.NoError(t, client.Connect(context.Background()))
	require.NoError(t, client.Join("p1"))
	require.NoError(t, client.Join("p2"))
	server.waitJoin(t)
	server.waitJoin(t)

	require.NoError(t, client.SubmitMessage("p2", "second room"))

	select {
	case projectID := <-received:
		assert.Equal(t, "p2", projectID)
	case <-time.After(2 * time.Second):
		t.Fatal("client never received the message")
	}

	assert.Empty(t, client.Messages("p1"))
	view := client.Messages("p2")
	require.Len(t, view, 1)
	assert.Equal(t, "second room", view[0].Text)
}

func TestSubmitMessageLocalRejections(t *testing.T) {
	server := newFakeChatServer(t)
	client := newTestClient(t, server, "ext-1", nil)

	assert.ErrorIs(t, client.SubmitMessage("p1", "   "), ErrEmptyInput)
	assert.ErrorIs(t, client.SubmitMessage("p1", "hello"), ErrNotConnected)
}

func TestHistoryHydratesView(t *testing.T) {
	server := newFakeChatServer(t)
	server.history = []models.MessageView{
		{ID: "m1", AuthorExternalID: "ext-2", AuthorName: "Bob", Text: "first"},
		{ID: "m2", AuthorExternalID: "ext-1", AuthorName: "Alice", Text: "second"},
	}

	client := newTestClient(t, server, "ext-1", nil)
	require.NoError(t, client.History(context.Background(), "p1"))

	view := client.Messages("p1")
	require.Len(t, view, 2)
	assert.Equal(t, "first", view[0].Text)
	assert.False(t, view[0].Mine)
	assert.Equal(t, "second", view[1].Text)
	assert.True(t, view[1].Mine)
}

func TestIsMine(t *testing.T) {
	server := newFakeChatServer(t)
	client := newTestClient(t, server, "ext-1", nil)

	assert.True(t, client.IsMine(models.MessageView{AuthorExternalID: "ext-1"}))
	assert.False(t, client.IsMine(models.MessageView{AuthorExternalID: "ext-2"}))
}

func TestReconnectRejoinsRooms(t *testing.T) {
	server := newFakeChatServer(t)
	client := newTestClient(t, server, "ext-1", nil)

	require.NoError(t, client.Connect(context.Background()))
	require.NoError(t, client.Join("p1"))
	server.waitJoin(t)

	server.dropAll()

	frame := server.waitJoin(t)
	assert.Equal(t, "p1", frame.ProjectID)
	require.Eventually(t, func() bool {
		return client.State() == StateConnected
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClosedClientRefusesWork(t *testing.T) {
	server := newFakeChatServer(t)
	client := newTestClient(t, server, "ext-1", nil)

	require.NoError(t, client.Close())
	assert.ErrorIs(t, client.Connect(context.Background()), ErrClosed)
	assert.ErrorIs(t, client.Join("p1"), ErrClosed)
}
