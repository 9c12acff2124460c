package ws

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"project-chat-service/internal/middleware"
	"project-chat-service/internal/models"
)

func newPollRouter(f *engineFixture, ttl time.Duration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewLongPollHandler(f.engine, ttl)
	identity := middleware.Identity()
	router.POST("/poll", identity, handler.Create)
	router.POST("/poll/:session_id/join", identity, handler.Join)
	router.POST("/poll/:session_id/messages", identity, handler.SendMessage)
	router.GET("/poll/:session_id/events", identity, handler.Events)
	router.DELETE("/poll/:session_id", identity, handler.Close)
	return router
}

func pollRequest(router *gin.Engine, method, path, externalID string, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body == "" {
		reader = bytes.NewBuffer(nil)
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-External-Id", externalID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createPollSession(t *testing.T, router *gin.Engine, externalID string) string {
	t.Helper()
	rec := pollRequest(router, http.MethodPost, "/poll", externalID, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestLongPollJoinSendAndDrain(t *testing.T) {
	f := newEngineFixture()
	f.allowMember("ext-1", "u1", "p1", "o1")
	f.messages.On("Append", mock.Anything, "p1", "u1", "Alice", "hello").
		Return(models.Message{ID: "m1", ProjectID: "p1", AuthorName: "Alice", Body: "hello"}, nil).Once()

	router := newPollRouter(f, time.Minute)
	sessionID := createPollSession(t, router, "ext-1")

	rec := pollRequest(router, http.MethodPost, "/poll/"+sessionID+"/join", "ext-1", `{"project_id":"p1"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = pollRequest(router, http.MethodPost, "/poll/"+sessionID+"/messages", "ext-1", `{"project_id":"p1","text":"hello"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = pollRequest(router, http.MethodGet, "/poll/"+sessionID+"/events?wait=100ms", "ext-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Events []Event `json:"events"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, EventNewMessage, resp.Events[0].Type)
	assert.Equal(t, "hello", resp.Events[0].Message.Text)
}

func TestLongPollEmptyBatchOnTimeout(t *testing.T) {
	f := newEngineFixture()
	router := newPollRouter(f, time.Minute)
	sessionID := createPollSession(t, router, "ext-1")

	rec := pollRequest(router, http.MethodGet, "/poll/"+sessionID+"/events?wait=50ms", "ext-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Events []Event `json:"events"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Events)
}

func TestLongPollRejectionsMapToHTTPStatus(t *testing.T) {
	f := newEngineFixture()
	f.allowMember("ext-1", "u1", "p1", "o1")

	router := newPollRouter(f, time.Minute)
	sessionID := createPollSession(t, router, "ext-1")

	rec := pollRequest(router, http.MethodPost, "/poll/"+sessionID+"/messages", "ext-1", `{"project_id":"p1","text":"  "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLongPollSessionIsOwnerScoped(t *testing.T) {
	f := newEngineFixture()
	router := newPollRouter(f, time.Minute)
	sessionID := createPollSession(t, router, "ext-1")

	rec := pollRequest(router, http.MethodGet, "/poll/"+sessionID+"/events?wait=10ms", "ext-2", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLongPollCloseLeavesRooms(t *testing.T) {
	f := newEngineFixture()
	f.allowMember("ext-1", "u1", "p1", "o1")

	router := newPollRouter(f, time.Minute)
	sessionID := createPollSession(t, router, "ext-1")

	rec := pollRequest(router, http.MethodPost, "/poll/"+sessionID+"/join", "ext-1", `{"project_id":"p1"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, f.registry.SubscribersOf("p1"), 1)

	rec = pollRequest(router, http.MethodDelete, "/poll/"+sessionID, "ext-1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.registry.SubscribersOf("p1"))

	rec = pollRequest(router, http.MethodGet, "/poll/"+sessionID+"/events?wait=10ms", "ext-1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
