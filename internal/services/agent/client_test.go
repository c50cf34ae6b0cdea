package agent_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifiedui/chat-bridge/internal/domain/models"
	"github.com/unifiedui/chat-bridge/internal/services/agent"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *agent.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := agent.NewClient(&agent.ClientConfig{BaseURL: server.URL})
	require.NoError(t, err)
	return client
}

func TestNewClient_NilConfig(t *testing.T) {
	client, err := agent.NewClient(nil)

	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "config is required")
}

func TestNewClient_MissingBaseURL(t *testing.T) {
	client, err := agent.NewClient(&agent.ClientConfig{})

	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "base URL is required")
}

func TestExchange_Success(t *testing.T) {
	var gotBody map[string]string
	var gotAuth string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "agent-msg-1",
			"response": {
				"chat_response": "Please confirm the booking",
				"tool_response": {
					"authorization_url": "https://idp.example.com/authorize?client_id=abc",
					"schedule_preview": {"topic": "Sync", "date": "2025-06-01", "startTime": "10:00", "duration": "30", "timeZone": "UTC"}
				}
			},
			"frontend_state": "BOOKING_PREVIEW",
			"message_states": ["BOOKING_PREVIEW_INITIATED", "BOOKING_PREVIEW_INITIATED"]
		}`))
	})

	resp, err := client.Exchange(context.Background(), "user-token", "thread-1", "schedule a meeting")

	require.NoError(t, err)
	assert.Equal(t, "Bearer user-token", gotAuth)
	assert.Equal(t, "schedule a meeting", gotBody["message"])
	assert.Equal(t, "thread-1", gotBody["threadId"])

	assert.Equal(t, "agent-msg-1", resp.AgentMessageID)
	assert.Equal(t, "Please confirm the booking", resp.ChatText)
	assert.Equal(t, "https://idp.example.com/authorize?client_id=abc", resp.AuthorizationURL)
	assert.Equal(t, "BOOKING_PREVIEW", resp.FrontendState)
	assert.Equal(t, []string{"BOOKING_PREVIEW_INITIATED"}, resp.StateTags)
	assert.True(t, resp.RequiresAuthorization())

	preview, err := models.DecodeMeetingPreview(resp.ContinuationPayload)
	require.NoError(t, err)
	assert.Equal(t, "Sync", preview.Topic)
	assert.Equal(t, "UTC", preview.TimeZone)
}

func TestExchange_PlainAnswerWithoutToolResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response": {"chat_response": "Hi!"}}`))
	})

	resp, err := client.Exchange(context.Background(), "", "thread-1", "hello")

	require.NoError(t, err)
	assert.Equal(t, "Hi!", resp.ChatText)
	assert.False(t, resp.RequiresAuthorization())
	assert.Empty(t, resp.StateTags)
	assert.Nil(t, resp.ContinuationPayload)
}

func TestExchange_NonSuccessStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	resp, err := client.Exchange(context.Background(), "token", "thread-1", "hello")

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, agent.ErrAgentStatus)
}

func TestExchange_MalformedPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"missing response", `{"message_states": []}`},
		{"missing chat_response", `{"response": {"tool_response": {}}}`},
		{"authorization_url not a string", `{"response": {"chat_response": "x", "tool_response": {"authorization_url": 42}}}`},
		{"authorization_url relative", `{"response": {"chat_response": "x", "tool_response": {"authorization_url": "/authorize"}}}`},
		{"preview not an object", `{"response": {"chat_response": "x", "tool_response": {"schedule_preview": "soon"}}}`},
		{"message_states not a list", `{"response": {"chat_response": "x"}, "message_states": "DONE"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			resp, err := client.Exchange(context.Background(), "token", "thread-1", "hello")

			assert.Nil(t, resp)
			assert.ErrorIs(t, err, agent.ErrMalformedResponse)
		})
	}
}

func TestFetchStates_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/state/thread-42", r.URL.Path)
		_, _ = w.Write([]byte(`{"states": ["BOOKING_PREVIEW_INITIATED", "BOOKING_AUTHORIZED"]}`))
	})

	states, err := client.FetchStates(context.Background(), "thread-42")

	require.NoError(t, err)
	assert.Equal(t, []string{"BOOKING_PREVIEW_INITIATED", "BOOKING_AUTHORIZED"}, states)
}

func TestFetchStates_MissingStates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	states, err := client.FetchStates(context.Background(), "thread-42")

	assert.Nil(t, states)
	assert.ErrorIs(t, err, agent.ErrMalformedResponse)
}

func TestFetchStates_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.FetchStates(context.Background(), "thread-42")

	assert.ErrorIs(t, err, agent.ErrAgentStatus)
}
