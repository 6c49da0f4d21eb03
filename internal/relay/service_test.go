package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jmehdipour/notify-redirector/internal/ackstore"
	"github.com/jmehdipour/notify-redirector/internal/inbox"
	"github.com/jmehdipour/notify-redirector/internal/model"
)

type stubSender struct {
	mu    sync.Mutex
	err   error
	sent  []model.Notification
	creds []string
}

func (s *stubSender) Name() string { return "stub" }

func (s *stubSender) Send(_ context.Context, n model.Notification, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	s.creds = append(s.creds, token)
	return s.err
}

type recordingJournal struct {
	mu     sync.Mutex
	events []model.Event
}

func (j *recordingJournal) Record(ev model.Event) {
	j.mu.Lock()
	j.events = append(j.events, ev)
	j.mu.Unlock()
}

func (j *recordingJournal) Close() error { return nil }

func newTestService(sender *stubSender) (*Service, *recordingJournal) {
	j := &recordingJournal{}
	return NewService(inbox.NewBuffer(0), ackstore.New(ackstore.Options{}), sender, j, Options{}), j
}

func TestSend_SuccessAndFailure(t *testing.T) {
	sender := &stubSender{}
	svc, j := newTestService(sender)
	n := model.Notification{Kind: model.KindSMS, Recipient: "+1555", Body: "pump trip", Cookie: 12}

	res := svc.Send(context.Background(), n, "tok")
	if !res.OK || res.Detail != "" {
		t.Fatalf("expected success, got %+v", res)
	}
	if sender.creds[0] != "tok" {
		t.Errorf("secret not passed through: %q", sender.creds[0])
	}

	sender.err = errors.New(strings.Repeat("x", 300))
	res = svc.Send(context.Background(), n, "tok")
	if res.OK {
		t.Fatal("expected failure")
	}
	if len([]rune(res.Detail)) != DefaultErrorDetailMaxLen {
		t.Errorf("detail length = %d, want %d", len(res.Detail), DefaultErrorDetailMaxLen)
	}

	if len(j.events) != 2 || j.events[0].Kind != model.EventNotifySent || j.events[1].Kind != model.EventNotifyFailed {
		t.Fatalf("unexpected journal: %+v", j.events)
	}
}

func TestAccept_BuffersInArrivalOrder(t *testing.T) {
	svc, _ := newTestService(&stubSender{})

	if got := svc.Accept("type=ERRORMESSAGE&phone=555&message=hi"); got != WebhookReply {
		t.Fatalf("reply = %q", got)
	}
	if got := svc.Accept("type=ACKALARM&phone=555&cookie=77&userid=op&pin=1234"); got != WebhookReply {
		t.Fatalf("reply = %q", got)
	}

	want := []string{
		"type=ERRORMESSAGE&phone=555&message=hi",
		"type=ACKALARM&phone=555&cookie=77&userid=op&pin=1234",
	}
	if diff := cmp.Diff(want, svc.StatusPoll(nil)); diff != "" {
		t.Fatalf("drain mismatch (-want +got):\n%s", diff)
	}
	if got := svc.StatusPoll(nil); len(got) != 0 {
		t.Fatalf("second poll should be empty, got %v", got)
	}
}

func TestAccept_TruncatesLongValues(t *testing.T) {
	svc, _ := newTestService(&stubSender{})

	svc.Accept("type=ERRORMESSAGE&message=" + strings.Repeat("m", 500))
	recs := svc.StatusPoll(nil)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if got := inbox.Decode(recs[0])["message"]; len(got) != 200 {
		t.Fatalf("message length = %d, want 200", len(got))
	}
}

func TestAccept_UnknownTypeIsStillBuffered(t *testing.T) {
	svc, _ := newTestService(&stubSender{})

	if got := svc.Accept("type=SOMETHINGELSE&x=1"); got != WebhookReply {
		t.Fatalf("reply = %q", got)
	}
	if got := svc.StatusPoll(nil); len(got) != 1 {
		t.Fatalf("expected the record to be relayed, got %v", got)
	}
}

func TestAckCheck_RoundTrip(t *testing.T) {
	svc, _ := newTestService(&stubSender{})

	svc.StatusPoll([]model.AckOutcome{{Token: 555, Accepted: true}, {Token: 556, Accepted: false}})

	cases := map[string]string{
		"type=ACKCHECK&cookie=555": AckReplyAccepted,
		"type=ACKCHECK&cookie=556": AckReplyRejected,
		"type=ACKCHECK&cookie=999": AckReplyUnresolved,
		"type=ACKCHECK&cookie=abc": AckReplyUnresolved,
		"type=ACKCHECK":            AckReplyUnresolved,
	}
	for q, want := range cases {
		if got := svc.Accept(q); got != want {
			t.Errorf("Accept(%q) = %q, want %q", q, got, want)
		}
	}

	// ACKCHECK never reaches the buffer
	if got := svc.StatusPoll(nil); len(got) != 0 {
		t.Fatalf("ack checks leaked into the buffer: %v", got)
	}
}

func TestAckAlarm_MarksPendingUntilResolved(t *testing.T) {
	svc, _ := newTestService(&stubSender{})

	svc.Accept("type=ACKALARM&phone=555&cookie=31&userid=op&pin=1")
	if got := svc.Accept("type=ACKCHECK&cookie=31"); got != AckReplyUnresolved {
		t.Fatalf("pending ack = %q, want unresolved", got)
	}

	svc.StatusPoll([]model.AckOutcome{{Token: 31, Accepted: false}})
	if got := svc.Accept("type=ACKCHECK&cookie=31"); got != AckReplyRejected {
		t.Fatalf("resolved ack = %q, want rejected", got)
	}
}

func TestStatusPoll_IgnoresZeroToken(t *testing.T) {
	acks := ackstore.New(ackstore.Options{})
	svc := NewService(inbox.NewBuffer(0), acks, &stubSender{}, nil, Options{})

	svc.StatusPoll([]model.AckOutcome{{Token: 0, Accepted: true}, {Token: 4, Accepted: true}})
	if acks.Len() != 1 {
		t.Fatalf("entries = %d, want 1", acks.Len())
	}
}

func TestFormatRecords(t *testing.T) {
	if got := FormatRecords(nil); got != "" {
		t.Errorf("empty = %q", got)
	}
	if got := FormatRecords([]string{"a=1", "b=2"}); got != "a=1\nb=2\n" {
		t.Errorf("got %q", got)
	}
}
