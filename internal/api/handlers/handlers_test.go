package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/unifiedui/chat-bridge/internal/api/dto"
	"github.com/unifiedui/chat-bridge/internal/api/handlers"
	"github.com/unifiedui/chat-bridge/internal/api/middleware"
	"github.com/unifiedui/chat-bridge/internal/api/routes"
	"github.com/unifiedui/chat-bridge/internal/domain/models"
	"github.com/unifiedui/chat-bridge/internal/mocks"
	"github.com/unifiedui/chat-bridge/internal/pkg/encryption"
	"github.com/unifiedui/chat-bridge/internal/services/archive"
	"github.com/unifiedui/chat-bridge/internal/services/authorization"
	"github.com/unifiedui/chat-bridge/internal/services/conversation"
	"github.com/unifiedui/chat-bridge/internal/services/session"
	"github.com/unifiedui/chat-bridge/internal/services/statestore"
	"github.com/unifiedui/chat-bridge/internal/testutil"
)

const (
	testOrigin  = "http://localhost:3000"
	previewJSON = `{"topic":"Sync","date":"2025-06-01","startTime":"10:00","duration":"30 minutes","timeZone":"UTC"}`
)

type pendingFeed struct {
	polls atomic.Int32
}

func (f *pendingFeed) FetchStates(context.Context, string) ([]string, error) {
	f.polls.Add(1)
	return []string{}, nil
}

type fakeHistory struct {
	messages []*models.ArchivedMessage
	limit    int64
	skip     int64
	purged   []string
}

func (h *fakeHistory) History(_ context.Context, _, _ string, limit, skip int64) (*archive.HistoryPage, error) {
	h.limit, h.skip = limit, skip
	return &archive.HistoryPage{Messages: h.messages, Total: int64(len(h.messages)) + skip}, nil
}

func (h *fakeHistory) Purge(_ context.Context, sessionID, threadID string) (int64, error) {
	h.purged = append(h.purged, sessionID+"/"+threadID)
	return int64(len(h.messages)), nil
}

type apiEnv struct {
	router   *gin.Engine
	agent    *mocks.MockAgent
	manager  *conversation.Manager
	history  *fakeHistory
	basePath string
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	_, cacheClient := testutil.NewRedisCache(t)

	poller, err := authorization.NewPoller(&authorization.Config{
		Fetcher:     &pendingFeed{},
		Interval:    20 * time.Millisecond,
		MaxAttempts: 500,
	})
	require.NoError(t, err)

	creds, err := session.NewCredentials(&session.Config{CacheClient: cacheClient, Encryptor: encryption.NoOpEncryptor{}})
	require.NoError(t, err)

	env := &apiEnv{
		agent:    new(mocks.MockAgent),
		history:  &fakeHistory{},
		basePath: routes.BasePath,
	}
	env.manager, err = conversation.NewManager(&conversation.Config{
		Exchanger:   env.agent,
		Tracker:     authorization.NewTracker(poller),
		Credentials: creds,
		Mirror:      statestore.NewMirror(cacheClient, time.Hour, nil),
	})
	require.NoError(t, err)
	t.Cleanup(env.manager.Close)

	cors := middleware.DefaultCORSConfig([]string{testOrigin})
	env.router = testutil.SetupTestRouter()
	routes.SetupWithMiddleware(env.router, &routes.Config{
		HealthHandler:        handlers.NewHealthHandler(cacheClient, nil),
		SessionsHandler:      handlers.NewSessionsHandler(env.manager),
		MessagesHandler:      handlers.NewMessagesHandler(env.manager, env.history),
		AuthorizationHandler: handlers.NewAuthorizationHandler(env.manager),
		ExplanationHandler:   handlers.NewExplanationHandler(env.manager),
		EventsHandler:        handlers.NewEventsHandler(env.manager, handlers.EventsConfig{CheckOrigin: cors.AllowsOrigin}),
		AuthMiddleware:       middleware.NewAuthMiddleware(true),
	}, cors, middleware.NewLoggingMiddleware(), middleware.NewErrorMiddleware())

	return env
}

func (e *apiEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	return e.doWith(method, path, body, testutil.AuthHeaders())
}

func (e *apiEnv) doWith(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	return testutil.PerformRequest(e.router, method, e.basePath+path, body, headers)
}

// openThread opens a session and a thread through the API.
func (e *apiEnv) openThread(t *testing.T) (string, string) {
	t.Helper()

	w := e.do(http.MethodPost, "/sessions", nil)
	testutil.AssertStatusCode(t, http.StatusOK, w)
	var info conversation.SessionInfo
	testutil.ParseJSONResponse(t, w, &info)

	w = e.do(http.MethodPost, "/sessions/"+info.SessionID+"/threads", dto.OpenThreadRequest{UserName: "Ana"})
	testutil.AssertStatusCode(t, http.StatusCreated, w)
	var opened dto.OpenThreadResponse
	testutil.ParseJSONResponse(t, w, &opened)

	return info.SessionID, opened.Thread.ThreadID
}

func threadPath(sessionID, threadID string) string {
	return "/sessions/" + sessionID + "/threads/" + threadID
}

func TestAuth_MissingToken(t *testing.T) {
	env := newAPIEnv(t)

	w := env.doWith(http.MethodPost, "/sessions", nil, nil)

	testutil.AssertStatusCode(t, http.StatusUnauthorized, w)
	var resp dto.ErrorResponse
	testutil.ParseJSONResponse(t, w, &resp)
	assert.Equal(t, "UNAUTHORIZED", resp.Code)
}

func TestAuth_MalformedHeader(t *testing.T) {
	env := newAPIEnv(t)

	w := env.doWith(http.MethodPost, "/sessions", nil, map[string]string{"Authorization": "Basic abc"})

	testutil.AssertStatusCode(t, http.StatusUnauthorized, w)
}

func TestAuth_QueryToken(t *testing.T) {
	router := testutil.SetupTestRouter()
	router.GET("/echo", middleware.NewAuthMiddleware(true).Authenticate(), func(c *gin.Context) {
		c.String(http.StatusOK, middleware.GetToken(c))
	})

	w := testutil.PerformRequest(router, http.MethodGet, "/echo?access_token=abc", nil, nil)

	testutil.AssertStatusCode(t, http.StatusOK, w)
	assert.Equal(t, "abc", w.Body.String())

	strict := testutil.SetupTestRouter()
	strict.GET("/echo", middleware.NewAuthMiddleware(false).Authenticate(), func(c *gin.Context) {})
	w = testutil.PerformRequest(strict, http.MethodGet, "/echo?access_token=abc", nil, nil)
	testutil.AssertStatusCode(t, http.StatusUnauthorized, w)
}

func TestCORS_Preflight(t *testing.T) {
	env := newAPIEnv(t)

	w := env.doWith(http.MethodOptions, "/sessions", nil, map[string]string{
		"Origin":                        testOrigin,
		"Access-Control-Request-Method": http.MethodPost,
	})

	testutil.AssertStatusCode(t, http.StatusNoContent, w)
	assert.Equal(t, testOrigin, w.Header().Get("Access-Control-Allow-Origin"))

	w = env.doWith(http.MethodOptions, "/sessions", nil, map[string]string{"Origin": "http://evil.example"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID_IsEchoed(t *testing.T) {
	env := newAPIEnv(t)

	w := env.doWith(http.MethodGet, "/live", nil, map[string]string{"X-Request-ID": "req-1"})
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))

	w = env.doWith(http.MethodGet, "/live", nil, nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestUnknownRoute(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodGet, "/nope", nil)

	testutil.AssertStatusCode(t, http.StatusNotFound, w)
}

func TestSessions_OpenReopenClose(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodPost, "/sessions", dto.OpenSessionRequest{SessionID: "session-1"})
	testutil.AssertStatusCode(t, http.StatusOK, w)
	var info conversation.SessionInfo
	testutil.ParseJSONResponse(t, w, &info)
	assert.Equal(t, "session-1", info.SessionID)
	assert.False(t, info.Restored)

	w = env.do(http.MethodPost, "/sessions/session-1/threads", nil)
	testutil.AssertStatusCode(t, http.StatusCreated, w)

	w = env.do(http.MethodPost, "/sessions", dto.OpenSessionRequest{SessionID: "session-1"})
	testutil.AssertStatusCode(t, http.StatusOK, w)
	testutil.ParseJSONResponse(t, w, &info)
	assert.Len(t, info.ThreadIDs, 1)

	w = env.do(http.MethodDelete, "/sessions/session-1", nil)
	testutil.AssertStatusCode(t, http.StatusNoContent, w)

	w = env.do(http.MethodDelete, "/sessions/session-1", nil)
	testutil.AssertStatusCode(t, http.StatusNotFound, w)
}

func TestThreads_OpenGreetsAndClose(t *testing.T) {
	env := newAPIEnv(t)
	sessionID, threadID := env.openThread(t)

	w := env.do(http.MethodGet, threadPath(sessionID, threadID)+"/messages", nil)
	testutil.AssertStatusCode(t, http.StatusOK, w)
	var resp dto.GetMessagesResponse
	testutil.ParseJSONResponse(t, w, &resp)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "Hello Ana ! How can I help you today?", resp.Messages[0].Content)
	assert.False(t, resp.Loading)

	w = env.do(http.MethodDelete, threadPath(sessionID, threadID), nil)
	testutil.AssertStatusCode(t, http.StatusNoContent, w)

	w = env.do(http.MethodGet, threadPath(sessionID, threadID)+"/messages", nil)
	testutil.AssertStatusCode(t, http.StatusNotFound, w)
}

func TestThreads_UnknownSession(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodPost, "/sessions/missing/threads", nil)

	testutil.AssertStatusCode(t, http.StatusNotFound, w)
}

func TestMessages_Send(t *testing.T) {
	env := newAPIEnv(t)
	sessionID, threadID := env.openThread(t)

	env.agent.On("Exchange", mock.Anything, testutil.TestToken, threadID, "hi").
		Return(&models.AgentResponse{ChatText: "hello", StateTags: []string{"FETCHED_HOTELS"}}, nil).Once()

	w := env.do(http.MethodPost, threadPath(sessionID, threadID)+"/messages", dto.SendMessageRequest{Content: "hi"})

	testutil.AssertStatusCode(t, http.StatusOK, w)
	var resp dto.SendMessageResponse
	testutil.ParseJSONResponse(t, w, &resp)
	assert.Equal(t, "hello", resp.Message.Content)
	assert.Equal(t, models.PhaseDelivered, resp.Message.Phase)

	w = env.do(http.MethodGet, threadPath(sessionID, threadID)+"/messages", nil)
	var transcript dto.GetMessagesResponse
	testutil.ParseJSONResponse(t, w, &transcript)
	assert.Len(t, transcript.Messages, 3)

	env.agent.AssertExpectations(t)
}

func TestMessages_AgentFailureIsAFailedMessage(t *testing.T) {
	env := newAPIEnv(t)
	sessionID, threadID := env.openThread(t)

	env.agent.On("Exchange", mock.Anything, testutil.TestToken, threadID, "hi").
		Return(nil, assert.AnError).Once()

	w := env.do(http.MethodPost, threadPath(sessionID, threadID)+"/messages", dto.SendMessageRequest{Content: "hi"})

	testutil.AssertStatusCode(t, http.StatusOK, w)
	var resp dto.SendMessageResponse
	testutil.ParseJSONResponse(t, w, &resp)
	assert.Equal(t, models.PhaseFailed, resp.Message.Phase)
}

func TestMessages_BlankContent(t *testing.T) {
	env := newAPIEnv(t)
	sessionID, threadID := env.openThread(t)

	w := env.do(http.MethodPost, threadPath(sessionID, threadID)+"/messages", dto.SendMessageRequest{Content: "  "})

	testutil.AssertStatusCode(t, http.StatusBadRequest, w)
	env.agent.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMessages_History(t *testing.T) {
	env := newAPIEnv(t)
	env.history.messages = []*models.ArchivedMessage{
		models.NewArchivedMessage("s", models.NewMessage("t", models.OriginAgent, models.PhaseDelivered, "old")),
	}

	w := env.do(http.MethodGet, threadPath("s", "t")+"/history?limit=10&offset=5", nil)

	testutil.AssertStatusCode(t, http.StatusOK, w)
	var resp dto.HistoryResponse
	testutil.ParseJSONResponse(t, w, &resp)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "old", resp.Messages[0].Content)
	assert.Equal(t, int64(6), resp.Total)
	assert.Equal(t, int64(10), env.history.limit)
	assert.Equal(t, int64(5), env.history.skip)

	w = env.do(http.MethodGet, threadPath("s", "t")+"/history?limit=1000", nil)
	testutil.AssertStatusCode(t, http.StatusBadRequest, w)
}

func TestMessages_PurgeHistory(t *testing.T) {
	env := newAPIEnv(t)
	env.history.messages = []*models.ArchivedMessage{
		models.NewArchivedMessage("s", models.NewMessage("t", models.OriginUser, models.PhaseDelivered, "hi")),
		models.NewArchivedMessage("s", models.NewMessage("t", models.OriginAgent, models.PhaseDelivered, "hello")),
	}

	w := env.do(http.MethodDelete, threadPath("s", "t")+"/history", nil)

	testutil.AssertStatusCode(t, http.StatusOK, w)
	var resp dto.PurgeHistoryResponse
	testutil.ParseJSONResponse(t, w, &resp)
	assert.Equal(t, int64(2), resp.Deleted)
	assert.Equal(t, []string{"s/t"}, env.history.purged)
}

func TestMessages_HistoryDisabled(t *testing.T) {
	router := testutil.SetupTestRouter()
	h := handlers.NewMessagesHandler(nil, nil)
	router.GET("/history", h.GetHistory)
	router.DELETE("/history", h.PurgeHistory)

	w := testutil.PerformRequest(router, http.MethodGet, "/history", nil, nil)
	testutil.AssertStatusCode(t, http.StatusServiceUnavailable, w)

	w = testutil.PerformRequest(router, http.MethodDelete, "/history", nil, nil)
	testutil.AssertStatusCode(t, http.StatusServiceUnavailable, w)
}

func deliverPreview(t *testing.T, env *apiEnv, sessionID, threadID string) *models.Message {
	t.Helper()

	env.agent.On("Exchange", mock.Anything, testutil.TestToken, threadID, "book").
		Return(&models.AgentResponse{
			ChatText:            "Please authorize",
			AuthorizationURL:    "https://idp.example.com/authorize?client_id=abc",
			ContinuationPayload: json.RawMessage(previewJSON),
			StateTags:           []string{"BOOKING_PREVIEW_INITIATED"},
		}, nil).Once()

	w := env.do(http.MethodPost, threadPath(sessionID, threadID)+"/messages", dto.SendMessageRequest{Content: "book"})
	testutil.AssertStatusCode(t, http.StatusOK, w)
	var resp dto.SendMessageResponse
	testutil.ParseJSONResponse(t, w, &resp)
	return resp.Message
}

func TestAuthorization_StartStatusCancel(t *testing.T) {
	env := newAPIEnv(t)
	sessionID, threadID := env.openThread(t)
	source := deliverPreview(t, env, sessionID, threadID)
	path := threadPath(sessionID, threadID) + "/authorization"

	w := env.do(http.MethodPost, path, dto.StartAuthorizationRequest{MessageID: source.ID})
	testutil.AssertStatusCode(t, http.StatusAccepted, w)
	var start conversation.AuthorizationStart
	testutil.ParseJSONResponse(t, w, &start)
	assert.Contains(t, start.TriggerURL, "prompt=none")
	assert.Equal(t, authorization.OutcomePending, start.Status.Outcome)
	assert.Equal(t, source.ID, start.Status.MessageID)

	w = env.do(http.MethodGet, path, nil)
	testutil.AssertStatusCode(t, http.StatusOK, w)
	var status authorization.Status
	testutil.ParseJSONResponse(t, w, &status)
	assert.Equal(t, 500, status.MaxAttempts)

	w = env.do(http.MethodDelete, path, nil)
	testutil.AssertStatusCode(t, http.StatusOK, w)
	var cancelled dto.CancelAuthorizationResponse
	testutil.ParseJSONResponse(t, w, &cancelled)
	assert.True(t, cancelled.Cancelled)
}

func TestAuthorization_Rejections(t *testing.T) {
	env := newAPIEnv(t)
	sessionID, threadID := env.openThread(t)
	path := threadPath(sessionID, threadID) + "/authorization"

	w := env.do(http.MethodPost, path, map[string]string{})
	testutil.AssertStatusCode(t, http.StatusBadRequest, w)

	w = env.do(http.MethodPost, path, dto.StartAuthorizationRequest{MessageID: "missing"})
	testutil.AssertStatusCode(t, http.StatusNotFound, w)

	w = env.do(http.MethodGet, threadPath(sessionID, threadID)+"/messages", nil)
	var transcript dto.GetMessagesResponse
	testutil.ParseJSONResponse(t, w, &transcript)

	w = env.do(http.MethodPost, path, dto.StartAuthorizationRequest{MessageID: transcript.Messages[0].ID})
	testutil.AssertStatusCode(t, http.StatusConflict, w)

	w = env.do(http.MethodGet, path, nil)
	testutil.AssertStatusCode(t, http.StatusNotFound, w)
}

func TestExplanation_Lifecycle(t *testing.T) {
	env := newAPIEnv(t)
	sessionID, threadID := env.openThread(t)

	env.agent.On("Exchange", mock.Anything, testutil.TestToken, threadID, "hotels").
		Return(&models.AgentResponse{ChatText: "found", StateTags: []string{"FETCHED_HOTELS"}}, nil).Once()
	w := env.do(http.MethodPost, threadPath(sessionID, threadID)+"/messages", dto.SendMessageRequest{Content: "hotels"})
	var sent dto.SendMessageResponse
	testutil.ParseJSONResponse(t, w, &sent)

	path := "/sessions/" + sessionID + "/explanation"

	w = env.do(http.MethodPut, path, dto.ShowExplanationRequest{ThreadID: threadID, MessageID: sent.Message.ID})
	testutil.AssertStatusCode(t, http.StatusOK, w)
	var e conversation.Explanation
	testutil.ParseJSONResponse(t, w, &e)
	assert.True(t, e.Snapshot.ExplanationVisible)
	require.NotNil(t, e.Scenario)
	assert.Equal(t, "Hotel Suggestions", e.Scenario.Title)
	assert.NotEmpty(t, e.Points)

	w = env.do(http.MethodPost, path+"/toggle", nil)
	testutil.AssertStatusCode(t, http.StatusOK, w)
	testutil.ParseJSONResponse(t, w, &e)
	assert.False(t, e.Snapshot.ExplanationVisible)

	visible := true
	w = env.do(http.MethodPost, path+"/toggle", dto.ToggleExplanationRequest{Visible: &visible})
	testutil.ParseJSONResponse(t, w, &e)
	assert.True(t, e.Snapshot.ExplanationVisible)

	w = env.do(http.MethodDelete, path, nil)
	testutil.AssertStatusCode(t, http.StatusNoContent, w)

	w = env.do(http.MethodGet, path, nil)
	testutil.AssertStatusCode(t, http.StatusOK, w)
	e = conversation.Explanation{}
	testutil.ParseJSONResponse(t, w, &e)
	assert.Nil(t, e.Scenario)
	assert.False(t, e.Snapshot.ExplanationVisible)

	w = env.do(http.MethodPut, path, map[string]string{"threadId": threadID})
	testutil.AssertStatusCode(t, http.StatusBadRequest, w)
}

func TestScenarios(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodGet, "/scenarios", nil)

	testutil.AssertStatusCode(t, http.StatusOK, w)
	var resp dto.ScenariosResponse
	testutil.ParseJSONResponse(t, w, &resp)
	require.Len(t, resp.Scenarios, 4)
	assert.True(t, strings.HasPrefix(resp.Scenarios[0].Key, "CALENDAR"))
}
