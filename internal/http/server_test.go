package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jmehdipour/notify-redirector/internal/ackstore"
	"github.com/jmehdipour/notify-redirector/internal/config"
	"github.com/jmehdipour/notify-redirector/internal/inbox"
	"github.com/jmehdipour/notify-redirector/internal/model"
	"github.com/jmehdipour/notify-redirector/internal/relay"
	"github.com/jmoiron/sqlx"
)

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []model.Notification
}

func (f *fakeSender) Name() string { return "fake" }

func (f *fakeSender) Send(_ context.Context, n model.Notification, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return f.err
}

type fakeEvents struct {
	kind  model.EventKind
	limit int
	rows  []model.Event
}

func (f *fakeEvents) InsertBatch(context.Context, *sqlx.Tx, []model.Event) error { return nil }

func (f *fakeEvents) ListRecent(_ context.Context, kind model.EventKind, limit, _ int) ([]model.Event, error) {
	f.kind, f.limit = kind, limit
	return f.rows, nil
}

func newTestServer(t *testing.T, sender *fakeSender, cfg config.Config) *httptest.Server {
	t.Helper()
	svc := relay.NewService(inbox.NewBuffer(0), ackstore.New(ackstore.Options{}), sender, nil, relay.Options{})
	ts := httptest.NewServer(NewServer(cfg, Deps{Relay: svc}).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string, q url.Values) (int, string) {
	t.Helper()
	resp, err := http.Get(ts.URL + path + "?" + q.Encode())
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(b)
}

func getRaw(t *testing.T, ts *httptest.Server, pathAndQuery string) string {
	t.Helper()
	resp, err := http.Get(ts.URL + pathAndQuery)
	if err != nil {
		t.Fatalf("GET %s: %v", pathAndQuery, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func TestNotifyRequestSendsToProvider(t *testing.T) {
	sender := &fakeSender{}
	ts := newTestServer(t, sender, config.Config{})

	code, body := get(t, ts, "/NotifyRequest/", url.Values{
		"type":    {"SMS"},
		"key":     {"tok"},
		"phone":   {"+15551234"},
		"message": {"Tank 3 high"},
		"cookie":  {"42"},
	})
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !strings.HasPrefix(body, "<HTML><BODY>NotifyRequest<br>") {
		t.Fatalf("unexpected body %q", body)
	}
	want := []model.Notification{{Kind: model.KindSMS, Recipient: "+15551234", Body: "Tank 3 high", Cookie: 42}}
	if diff := cmp.Diff(want, sender.sent); diff != "" {
		t.Fatalf("sent mismatch (-want +got):\n%s", diff)
	}
}

func TestNotifyRequestProviderFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("provider=fake status=404 body=" + strings.Repeat("n", 200))}
	ts := newTestServer(t, sender, config.Config{})

	code, body := get(t, ts, "/NotifyRequest/", url.Values{
		"type": {"VOICE"}, "key": {"tok"}, "phone": {"1"}, "message": {"m"},
	})
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !strings.HasPrefix(body, "ERROR provider=fake status=404") {
		t.Fatalf("unexpected body %q", body)
	}
	if n := len([]rune(strings.TrimPrefix(body, "ERROR "))); n > 100 {
		t.Fatalf("detail has %d runes", n)
	}
}

func TestNotifyRequestBadInput(t *testing.T) {
	sender := &fakeSender{}
	ts := newTestServer(t, sender, config.Config{})

	_, body := get(t, ts, "/NotifyRequest", url.Values{"type": {"FAX"}, "key": {"k"}})
	if !strings.HasPrefix(body, "ERROR ") {
		t.Fatalf("unexpected body %q", body)
	}
	if len(sender.sent) != 0 {
		t.Fatal("invalid request reached the provider")
	}
}

func TestCallbacksAreDrainedOnStatus(t *testing.T) {
	ts := newTestServer(t, &fakeSender{}, config.Config{})

	if body := getRaw(t, ts, "/TwilioRequest/?type=ERRORMESSAGE&phone=555&message=no+answer"); body != "body=nothing" {
		t.Fatalf("webhook reply = %q", body)
	}
	if body := getRaw(t, ts, "/TwilioRequest?type=ACKALARM&phone=555&cookie=9&userid=op&pin=1234"); body != "body=nothing" {
		t.Fatalf("webhook reply = %q", body)
	}

	_, body := get(t, ts, "/NotifyRequest/", url.Values{"type": {"STATUS"}})
	want := "type=ERRORMESSAGE&phone=555&message=no+answer\n" +
		"type=ACKALARM&phone=555&cookie=9&userid=op&pin=1234\n"
	if diff := cmp.Diff(want, body); diff != "" {
		t.Fatalf("status body mismatch (-want +got):\n%s", diff)
	}

	if _, body := get(t, ts, "/NotifyRequest/", url.Values{"type": {"STATUS"}}); body != "" {
		t.Fatalf("second poll = %q, want empty", body)
	}
}

func TestAckRoundTrip(t *testing.T) {
	ts := newTestServer(t, &fakeSender{}, config.Config{})

	if body := getRaw(t, ts, "/TwilioRequest/?type=ACKCHECK&cookie=555"); body != "ackresponse=2" {
		t.Fatalf("before push = %q", body)
	}

	getRaw(t, ts, "/NotifyRequest/?type=STATUS&acookie1=555&astatus1=1&acookie2=556&astatus2=0")

	cases := map[string]string{
		"555": "ackresponse=1",
		"556": "ackresponse=0",
		"999": "ackresponse=2",
	}
	for cookie, want := range cases {
		if body := getRaw(t, ts, "/TwilioRequest/?type=ACKCHECK&cookie="+cookie); body != want {
			t.Errorf("cookie %s: got %q, want %q", cookie, body, want)
		}
	}
}

func TestWebhookTokenEnforced(t *testing.T) {
	cfg := config.Config{Relay: config.RelayConfig{WebhookToken: "hook"}}
	ts := newTestServer(t, &fakeSender{}, cfg)

	resp, err := http.Get(ts.URL + "/TwilioRequest/?type=ERRORMESSAGE&message=x")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/TwilioRequest/?type=ERRORMESSAGE&message=x", nil)
	req.Header.Set("X-Webhook-Token", "hook")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	// the driver endpoint is never gated
	if _, body := get(t, ts, "/NotifyRequest/", url.Values{"type": {"STATUS"}}); body != "type=ERRORMESSAGE&message=x\n" {
		t.Fatalf("status body = %q", body)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &fakeSender{}, config.Config{})
	if code, body := get(t, ts, "/healthz", nil); code != http.StatusOK || body != "ok" {
		t.Fatalf("healthz = %d %q", code, body)
	}
}

func TestReportsEvents(t *testing.T) {
	events := &fakeEvents{rows: []model.Event{{ID: "01J", Kind: model.EventNotifySent, Type: "SMS"}}}
	svc := relay.NewService(inbox.NewBuffer(0), ackstore.New(ackstore.Options{}), &fakeSender{}, nil, relay.Options{})
	ts := httptest.NewServer(NewServer(config.Config{}, Deps{Relay: svc, Events: events}).Handler())
	defer ts.Close()

	code, body := get(t, ts, "/reports/events", url.Values{"kind": {"notify_sent"}, "limit": {"5"}})
	if code != http.StatusOK {
		t.Fatalf("status = %d body=%s", code, body)
	}
	if events.kind != model.EventNotifySent || events.limit != 5 {
		t.Fatalf("repository called with kind=%q limit=%d", events.kind, events.limit)
	}
	if !strings.Contains(body, `"count":1`) {
		t.Fatalf("unexpected body %s", body)
	}

	if code, _ := get(t, ts, "/reports/events", url.Values{"kind": {"bogus"}}); code != http.StatusBadRequest {
		t.Fatalf("bogus kind status = %d", code)
	}
}

func TestReportsDisabledWithoutRepository(t *testing.T) {
	ts := newTestServer(t, &fakeSender{}, config.Config{})
	if code, _ := get(t, ts, "/reports/events", nil); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
}

func TestAccessLogOmitsSecrets(t *testing.T) {
	var accessLog bytes.Buffer
	svc := relay.NewService(inbox.NewBuffer(0), ackstore.New(ackstore.Options{}), &fakeSender{}, nil, relay.Options{})
	h := NewServer(config.Config{}, Deps{Relay: svc, AccessLog: &accessLog}).Handler()

	for _, target := range []string{
		"/NotifyRequest/?type=SMS&key=tok-s3cret&phone=1&message=m&cookie=0",
		"/TwilioRequest/?type=ACKALARM&phone=555&cookie=7&userid=op&pin=9731",
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", target, rec.Code)
		}
	}

	out := accessLog.String()
	for _, secret := range []string{"tok-s3cret", "9731", "key=", "pin="} {
		if strings.Contains(out, secret) {
			t.Errorf("access log leaks %q:\n%s", secret, out)
		}
	}
	if !strings.Contains(out, `"path":"/NotifyRequest/"`) || !strings.Contains(out, `"type":"ACKALARM"`) {
		t.Errorf("access log missing request lines:\n%s", out)
	}
}
