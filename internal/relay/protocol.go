package relay

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jmehdipour/notify-redirector/internal/model"
)

const (
	// ErrorPrefix starts every failed /NotifyRequest/ reply.
	ErrorPrefix = "ERROR "

	// WebhookReply is returned for every buffered callback.
	WebhookReply = "body=nothing"

	AckReplyRejected   = "ackresponse=0"
	AckReplyAccepted   = "ackresponse=1"
	AckReplyUnresolved = "ackresponse=2"

	// MaxAckPairs bounds the acookieN/astatusN pairs read from one STATUS poll.
	MaxAckPairs = 99
)

var ErrInvalidInput = errors.New("invalid input")

// ParseNotifyRequest reads a send request. Only presence of the fields and the
// cookie's syntax are checked.
func ParseNotifyRequest(q url.Values) (model.Notification, string, error) {
	kind, ok := model.ParseNotificationKind(q.Get("type"))
	if !ok {
		return model.Notification{}, "", fmt.Errorf("%w: unsupported type %q", ErrInvalidInput, q.Get("type"))
	}

	key := q.Get("key")
	if key == "" {
		return model.Notification{}, "", fmt.Errorf("%w: missing key", ErrInvalidInput)
	}

	n := model.Notification{
		Kind:      kind,
		Recipient: strings.TrimSpace(q.Get("phone")),
		Body:      q.Get("message"),
	}
	if n.Recipient == "" {
		return model.Notification{}, "", fmt.Errorf("%w: missing phone", ErrInvalidInput)
	}
	if n.Body == "" {
		return model.Notification{}, "", fmt.Errorf("%w: missing message", ErrInvalidInput)
	}

	cookie, err := ParseCookie(q.Get("cookie"))
	if err != nil {
		return model.Notification{}, "", err
	}
	n.Cookie = cookie

	return n, key, nil
}

// ParseCookie accepts an empty string as 0 ("no acknowledge").
func ParseCookie(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: cookie %q is not an integer", ErrInvalidInput, s)
	}
	return v, nil
}

// NotifyValues is the query a driver sends to /NotifyRequest/.
func NotifyValues(n model.Notification, apiKey string) url.Values {
	v := url.Values{}
	v.Set("type", n.Kind.String())
	v.Set("key", apiKey)
	v.Set("phone", n.Recipient)
	v.Set("message", n.Body)
	v.Set("cookie", strconv.FormatInt(n.Cookie, 10))
	return v
}

// StatusValues is the STATUS poll query carrying the driver's resolved outcomes.
// Outcomes beyond MaxAckPairs are left for a later poll.
func StatusValues(outcomes []model.AckOutcome) url.Values {
	v := url.Values{}
	v.Set("type", model.RequestStatus)
	for i, o := range outcomes {
		if i >= MaxAckPairs {
			break
		}
		n := strconv.Itoa(i + 1)
		v.Set("acookie"+n, strconv.FormatInt(o.Token, 10))
		status := "0"
		if o.Accepted {
			status = "1"
		}
		v.Set("astatus"+n, status)
	}
	return v
}

// ParseAckPush reads acookieN/astatusN pairs for N = 1.. until the first pair
// with a missing half. Malformed pairs are skipped and reported.
func ParseAckPush(q url.Values) ([]model.AckOutcome, []error) {
	var (
		out  []model.AckOutcome
		errs []error
	)
	for i := 1; i <= MaxAckPairs; i++ {
		n := strconv.Itoa(i)
		rawCookie, rawStatus := q.Get("acookie"+n), q.Get("astatus"+n)
		if rawCookie == "" || rawStatus == "" {
			break
		}

		token, err := strconv.ParseInt(strings.TrimSpace(rawCookie), 10, 64)
		if err != nil || token == 0 {
			errs = append(errs, fmt.Errorf("%w: acookie%s=%q", ErrInvalidInput, n, rawCookie))
			continue
		}

		var accepted bool
		switch strings.TrimSpace(rawStatus) {
		case "1":
			accepted = true
		case "0":
			accepted = false
		default:
			errs = append(errs, fmt.Errorf("%w: astatus%s=%q", ErrInvalidInput, n, rawStatus))
			continue
		}

		out = append(out, model.AckOutcome{Token: token, Accepted: accepted})
	}
	return out, errs
}
