package authorization

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Trigger starts the external consent step for an authorization URL.
type Trigger interface {
	Trigger(ctx context.Context, authorizationURL string) error
}

// SilentURL returns the authorization URL with prompt=none, the form loaded
// into a hidden frame so the identity provider reuses the user's session.
func SilentURL(authorizationURL string) (string, error) {
	u, err := url.Parse(authorizationURL)
	if err != nil {
		return "", fmt.Errorf("invalid authorization url: %w", err)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("authorization url must be absolute")
	}
	q := u.Query()
	q.Set("prompt", "none")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// BrowserTrigger leaves the navigation to the browser. The caller hands the
// SilentURL to the chat view, which opens it in an invisible frame.
type BrowserTrigger struct{}

// Trigger validates the URL; the browser performs the navigation.
func (BrowserTrigger) Trigger(_ context.Context, authorizationURL string) error {
	_, err := SilentURL(authorizationURL)
	return err
}

// HTTPTrigger issues the silent authorization request from the server, for
// identity providers that complete consent over a backchannel.
type HTTPTrigger struct {
	client *http.Client
}

// NewHTTPTrigger creates a trigger that does not follow redirects: the
// provider's redirect back to the agent counts as success.
func NewHTTPTrigger(timeout time.Duration) *HTTPTrigger {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPTrigger{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Trigger performs GET on the silent authorization URL.
func (t *HTTPTrigger) Trigger(ctx context.Context, authorizationURL string) error {
	silent, err := SilentURL(authorizationURL)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, silent, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("authorization endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
