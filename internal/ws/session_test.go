package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"project-chat-service/internal/middleware"
	"project-chat-service/internal/models"
)

func newSessionServer(t *testing.T, f *engineFixture) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewSessionHandler(f.engine)
	router.GET("/ws", middleware.Identity(), handler.Handle)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func dialSession(t *testing.T, server *httptest.Server, externalID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?external_id=" + externalID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestSessionJoinSendReceive(t *testing.T) {
	f := newEngineFixture()
	f.allowMember("ext-1", "u1", "p1", "o1")
	f.users.On("Resolve", mock.Anything, "ext-2", mock.Anything, mock.Anything).
		Return(models.User{ID: "u2", ExternalID: "ext-2", Name: "Bob"}, nil)
	f.orgs.On("IsMember", mock.Anything, "o1", "u2").Return(true, nil)
	f.messages.On("Append", mock.Anything, "p1", "u1", "Alice", "hello").
		Return(models.Message{ID: "m1", ProjectID: "p1", AuthorID: "u1", AuthorName: "Alice", Body: "hello"}, nil).Once()

	server := newSessionServer(t, f)
	alice := dialSession(t, server, "ext-1")
	bob := dialSession(t, server, "ext-2")

	require.NoError(t, alice.WriteJSON(ClientFrame{Type: EventJoinProject, ProjectID: "p1"}))
	require.NoError(t, bob.WriteJSON(ClientFrame{Type: EventJoinProject, ProjectID: "p1"}))

	// Joins are processed asynchronously by each read loop; wait until
	// both subscribers are registered before sending.
	require.Eventually(t, func() bool {
		return len(f.registry.SubscribersOf("p1")) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, alice.WriteJSON(ClientFrame{Type: EventSendMessage, ProjectID: "p1", Text: "hello", AuthorExternalID: "ext-1"}))

	for _, conn := range []*websocket.Conn{alice, bob} {
		event := readEvent(t, conn)
		require.Equal(t, EventNewMessage, event.Type)
		require.NotNil(t, event.Message)
		require.Equal(t, "hello", event.Message.Text)
		require.Equal(t, "ext-1", event.Message.AuthorExternalID)
	}
}

func TestSessionRejectionGoesOnlyToSender(t *testing.T) {
	f := newEngineFixture()
	f.allowMember("ext-1", "u1", "p1", "o1")

	server := newSessionServer(t, f)
	alice := dialSession(t, server, "ext-1")

	require.NoError(t, alice.WriteJSON(ClientFrame{Type: EventJoinProject, ProjectID: "p1"}))
	require.Eventually(t, func() bool {
		return len(f.registry.SubscribersOf("p1")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, alice.WriteJSON(ClientFrame{Type: EventSendMessage, ProjectID: "p1", Text: "   "}))

	event := readEvent(t, alice)
	require.Equal(t, EventMessageError, event.Type)
	require.NotNil(t, event.Error)
	require.Equal(t, CodeInvalidMessage, event.Error.Code)
}

func TestSessionMalformedFrame(t *testing.T) {
	f := newEngineFixture()
	server := newSessionServer(t, f)
	alice := dialSession(t, server, "ext-1")

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("not json")))

	event := readEvent(t, alice)
	require.Equal(t, EventMessageError, event.Type)
	require.Equal(t, CodeInvalidFrame, event.Error.Code)
}

func TestSessionHandshakeRequiresIdentity(t *testing.T) {
	f := newEngineFixture()
	server := newSessionServer(t, f)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSessionDisconnectLeavesRooms(t *testing.T) {
	f := newEngineFixture()
	f.allowMember("ext-1", "u1", "p1", "o1")

	server := newSessionServer(t, f)
	alice := dialSession(t, server, "ext-1")

	require.NoError(t, alice.WriteJSON(ClientFrame{Type: EventJoinProject, ProjectID: "p1"}))
	require.Eventually(t, func() bool {
		return len(f.registry.SubscribersOf("p1")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, alice.Close())
	require.Eventually(t, func() bool {
		return len(f.registry.SubscribersOf("p1")) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
