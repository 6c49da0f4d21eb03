package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jmehdipour/notify-redirector/internal/model"
)

var ErrCircuitOpen = errors.New("provider circuit open")

// StatusError is a non-2xx answer from the provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider=%s status=%d body=%s", e.Provider, e.Code, e.Body)
}

// Sender delivers one notification to the messaging provider. authToken is
// supplied per call so the relay never holds the provider secret.
type Sender interface {
	Name() string
	Send(ctx context.Context, n model.Notification, authToken string) error
}

// FlowClient starts a Twilio Studio flow execution for every notification.
type FlowClient struct {
	name       string
	flowURL    string
	accountSID string
	from       string
	client     *http.Client
	br         *MicroBreaker
}

func NewFlowClient(
	name, flowURL, accountSID, from string,
	timeoutMs, failThreshold, openForMs int,
) *FlowClient {
	if name == "" {
		name = "twilio"
	}

	if timeoutMs <= 0 {
		timeoutMs = 10000
	}

	if openForMs <= 0 {
		openForMs = 30000
	}

	return &FlowClient{
		name:       name,
		flowURL:    flowURL,
		accountSID: accountSID,
		from:       from,
		client:     &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:         NewMicroBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

func (c *FlowClient) Name() string         { return c.name }
func (c *FlowClient) BreakerState() string { return c.br.State() }

func (c *FlowClient) Send(ctx context.Context, n model.Notification, authToken string) error {
	if !c.br.TryAcquire() {
		return ErrCircuitOpen
	}

	if err := c.post(ctx, n, authToken); err != nil {
		// only transport errors and 5xx count against the breaker; a 4xx is
		// about this request (bad per-call token, bad number), not the provider
		var se *StatusError
		if errors.As(err, &se) && se.Code < 500 {
			c.br.OnSuccess()
		} else {
			c.br.OnFailure()
		}
		return err
	}

	c.br.OnSuccess()

	return nil
}

// flowParameters is read by the flow widgets as {{flow.data.*}}.
type flowParameters struct {
	Message     string `json:"mymessage"`
	MessageType string `json:"messagetype"`
	AlarmCookie string `json:"alarmcookie"`
}

func (c *FlowClient) values(n model.Notification) (url.Values, error) {
	params, err := json.Marshal(flowParameters{
		Message:     n.Body,
		MessageType: n.Kind.String(),
		AlarmCookie: strconv.FormatInt(n.Cookie, 10),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal flow parameters: %w", err)
	}

	v := url.Values{}
	v.Set("From", c.from)
	v.Set("To", n.Recipient)
	v.Set("Parameters", string(params))

	return v, nil
}

func (c *FlowClient) post(ctx context.Context, n model.Notification, authToken string) error {
	form, err := c.values(n)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.flowURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, authToken)

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}

	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return &StatusError{Provider: c.name, Code: res.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	_, _ = io.Copy(io.Discard, res.Body)

	return nil
}
