package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/unifiedui/chat-bridge/internal/domain/models"
)

// maxResponseBytes bounds how much of an agent response is read.
const maxResponseBytes = 4 << 20

// ClientConfig holds the configuration for the agent client.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the chat agent service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new agent client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// Exchange sends one user message for a thread and returns the validated
// agent response.
func (c *Client) Exchange(ctx context.Context, token, threadID, message string) (*models.AgentResponse, error) {
	body, err := json.Marshal(chatRequest{Message: message, ThreadID: threadID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	data, err := c.do(req)
	if err != nil {
		return nil, err
	}

	return decodeChatResponse(data)
}

// FetchStates returns the state tags the agent recorded for a thread.
func (c *Client) FetchStates(ctx context.Context, threadID string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/state/%s", c.baseURL, url.PathEscape(threadID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	data, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp stateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.States == nil {
		return nil, fmt.Errorf("%w: missing states", ErrMalformedResponse)
	}
	return *resp.States, nil
}

// do executes the request and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrAgentStatus, resp.StatusCode)
	}
	return data, nil
}

// decodeChatResponse validates the chat payload at the boundary.
func decodeChatResponse(data []byte) (*models.AgentResponse, error) {
	var raw chatResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw.Response == nil || raw.Response.ChatResponse == nil {
		return nil, fmt.Errorf("%w: missing response.chat_response", ErrMalformedResponse)
	}

	out := &models.AgentResponse{
		AgentMessageID: raw.ID,
		ChatText:       *raw.Response.ChatResponse,
		FrontendState:  raw.FrontendState,
	}

	if len(raw.MessageStates) > 0 && string(raw.MessageStates) != "null" {
		var tags []string
		if err := json.Unmarshal(raw.MessageStates, &tags); err != nil {
			return nil, fmt.Errorf("%w: message_states: %v", ErrMalformedResponse, err)
		}
		out.StateTags = dedupe(tags)
	}

	tool := raw.Response.ToolResponse
	if rawURL, ok := tool["authorization_url"]; ok && string(rawURL) != "null" {
		var authURL string
		if err := json.Unmarshal(rawURL, &authURL); err != nil {
			return nil, fmt.Errorf("%w: authorization_url: %v", ErrMalformedResponse, err)
		}
		if authURL != "" {
			parsed, err := url.Parse(authURL)
			if err != nil || !parsed.IsAbs() {
				return nil, fmt.Errorf("%w: authorization_url is not an absolute URL", ErrMalformedResponse)
			}
			out.AuthorizationURL = authURL
		}
	}

	for _, key := range continuationKeys {
		payload, ok := tool[key]
		if !ok || string(payload) == "null" {
			continue
		}
		if !json.Valid(payload) || !bytes.HasPrefix(bytes.TrimSpace(payload), []byte("{")) {
			return nil, fmt.Errorf("%w: %s must be an object", ErrMalformedResponse, key)
		}
		out.ContinuationPayload = append(json.RawMessage(nil), payload...)
		break
	}

	return out, nil
}

// dedupe keeps the first occurrence of each tag.
func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
