package provider

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bitly/go-simplejson"
	"golang.org/x/sync/errgroup"

	"github.com/tempmail-sdk/client-go/internal/apierrors"
)

const (
	lowerAlnum = "abcdefghijklmnopqrstuvwxyz0123456789"
	mixedAlnum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// detailConcurrency bounds per-message detail fetches within one list call.
	detailConcurrency = 5
)

func headers(kv ...string) http.Header {
	h := make(http.Header, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func randomString(n int, alphabet string) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}

func requireToken(id ID, mb Mailbox) error {
	if mb.Token == "" {
		return &apierrors.AuthRequiredError{Provider: string(id), Message: "token required"}
	}
	return nil
}

// rawList converts a JSON array of objects into raw records. A missing or
// null node yields an empty list.
func rawList(js *simplejson.Json) ([]RawMessage, error) {
	if js == nil || js.Interface() == nil {
		return []RawMessage{}, nil
	}
	arr, err := js.Array()
	if err != nil {
		return nil, apierrors.Shape("expected message array")
	}
	out := make([]RawMessage, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			out = append(out, RawMessage(m))
		}
	}
	return out, nil
}

// timeValue reads an epoch (seconds or millis) or an RFC 3339 string.
func timeValue(js *simplejson.Json) time.Time {
	if js == nil {
		return time.Time{}
	}
	switch v := js.Interface().(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return epoch(n)
		}
		if f, err := v.Float64(); err == nil {
			return epoch(int64(f))
		}
	case float64:
		return epoch(int64(v))
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return epoch(n)
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

func epoch(n int64) time.Time {
	switch {
	case n <= 0:
		return time.Time{}
	case n >= 1e12:
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// fetchDetails replaces each summary with the result of fetch, concurrently.
// Order is preserved and a failed fetch keeps the summary.
func fetchDetails(ctx context.Context, summaries []RawMessage, fetch func(ctx context.Context, summary RawMessage) (RawMessage, error)) []RawMessage {
	out := make([]RawMessage, len(summaries))
	copy(out, summaries)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailConcurrency)
	for i, summary := range summaries {
		i, summary := i, summary
		g.Go(func() error {
			detail, err := fetch(gctx, summary)
			if err == nil && detail != nil {
				out[i] = detail
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func stringField(m RawMessage, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		b, _ := json.Marshal(v)
		return strings.Trim(string(b), `"`)
	}
}
