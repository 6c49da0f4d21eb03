package inbox

import (
	"net/url"
	"strings"

	"github.com/jmehdipour/notify-redirector/internal/util"
)

// DefaultValueMaxLen caps each stored value.
const DefaultValueMaxLen = 200

type Pair struct {
	Key   string
	Value string
}

// ParseQuery splits a raw query string into pairs, keeping the order in which
// keys first appear. Repeated keys are joined with ",".
func ParseQuery(raw string) []Pair {
	var (
		pairs []Pair
		index = map[string]int{}
	)
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		k = unescape(k)
		v = unescape(v)
		if k == "" {
			continue
		}
		if i, ok := index[k]; ok {
			pairs[i].Value += "," + v
			continue
		}
		index[k] = len(pairs)
		pairs = append(pairs, Pair{Key: k, Value: v})
	}
	return pairs
}

// Get returns the value for key, or "".
func Get(pairs []Pair, key string) string {
	for _, p := range pairs {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

// Encode serializes pairs into one percent-encoded line, capping every value
// at maxLen runes.
func Encode(pairs []Pair, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultValueMaxLen
	}
	var sb strings.Builder
	for i, p := range pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(util.Truncate(p.Value, maxLen)))
	}
	return sb.String()
}

// Decode parses a record produced by Encode. A pair is kept only when splitting
// it on "=" yields exactly two parts; anything else is ignored. The first
// occurrence of a key wins.
func Decode(line string) map[string]string {
	out := map[string]string{}
	for _, param := range strings.Split(strings.TrimSpace(line), "&") {
		kv := strings.Split(param, "=")
		if len(kv) != 2 {
			continue
		}
		k := unescape(kv[0])
		if _, ok := out[k]; ok {
			continue
		}
		out[k] = unescape(kv[1])
	}
	return out
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}
