package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmehdipour/notify-redirector/internal/model"
	"github.com/jmehdipour/notify-redirector/internal/relay"
)

// RelayError is a reply from the Redirector starting with "ERROR".
type RelayError struct {
	Body string
}

func (e *RelayError) Error() string { return "relay: " + e.Body }

// IsRelayError reports whether err carries an ERROR reply from the relay.
func IsRelayError(err error) bool {
	var re *RelayError
	return errors.As(err, &re)
}

// Client talks to the Redirector's /NotifyRequest/ endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Notify asks the relay to send n. The returned body is the relay's success
// page.
func (c *Client) Notify(ctx context.Context, n model.Notification, apiKey string) (string, error) {
	return c.get(ctx, "/NotifyRequest/", relay.NotifyValues(n, apiKey))
}

// Poll pushes outcomes and returns the drained callback records. An empty
// slice with a nil error is a successful poll with nothing queued.
func (c *Client) Poll(ctx context.Context, outcomes []model.AckOutcome) ([]string, error) {
	body, err := c.get(ctx, "/NotifyRequest/", relay.StatusValues(outcomes))
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Ping checks that the relay answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("relay ping: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay ping: status=%d", resp.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("relay read: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("relay request: status=%d", resp.StatusCode)
	}

	body := string(b)
	if strings.HasPrefix(body, "ERROR") {
		return "", &RelayError{Body: body}
	}
	return body, nil
}
