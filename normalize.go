package tempmail

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"strconv"
	"strings"
	"time"
)

// ReceivedAtLayout is the layout of Message.ReceivedAt.
const ReceivedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// millisThreshold separates epoch seconds from epoch milliseconds for the
// keys whose unit differs between providers.
const millisThreshold = 1e12

var (
	idKeys      = []string{"id", "eid", "_id", "mailboxId", "messageId", "mail_id"}
	fromKeys    = []string{"from_address", "address_from", "from", "messageFrom", "sender"}
	toKeys      = []string{"to", "to_address", "name_to", "email_address", "address"}
	subjectKeys = []string{"subject", "e_subject"}
	textKeys    = []string{"text", "body", "content", "body_text", "text_content"}
	htmlKeys    = []string{"html", "html_content", "body_html"}

	attFilenameKeys = []string{"filename", "name"}
	attSizeKeys     = []string{"size", "filesize"}
	attTypeKeys     = []string{"contentType", "content_type", "mimeType", "mime_type"}
	attURLKeys      = []string{"url", "download_url", "downloadUrl"}
)

type timeKind int

const (
	epochAuto timeKind = iota
	epochMillis
	epochSeconds
)

var receivedAtKeys = []struct {
	key  string
	kind timeKind
}{
	{"received_at", epochAuto},
	{"created_at", epochAuto},
	{"createdAt", epochAuto},
	{"date", epochMillis},
	{"timestamp", epochSeconds},
	{"e_date", epochMillis},
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700 MST",
	time.RFC1123Z,
	time.RFC1123,
}

// Normalize maps a provider's raw message record onto Message. It never
// fails: missing fields take their zero value and To falls back to
// fallbackRecipient.
func Normalize(raw map[string]any, fallbackRecipient string) Message {
	msg := Message{
		ID:          firstPresent(raw, idKeys),
		From:        firstString(raw, fromKeys),
		To:          firstString(raw, toKeys),
		Subject:     firstString(raw, subjectKeys),
		Text:        firstString(raw, textKeys),
		HTML:        firstString(raw, htmlKeys),
		ReceivedAt:  receivedAt(raw),
		IsRead:      isRead(raw),
		Attachments: attachments(raw["attachments"]),
	}
	if msg.To == "" {
		msg.To = fallbackRecipient
	}
	return msg
}

func firstString(raw map[string]any, keys []string) string {
	for _, k := range keys {
		if s := coerceString(raw[k]); s != "" {
			return s
		}
	}
	return ""
}

// firstPresent stops at the first key that is set at all, so an empty or
// zero id is kept rather than skipped.
func firstPresent(raw map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return coerceString(v)
		}
	}
	return ""
}

func coerceString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case map[string]any:
		if s := coerceString(x["address"]); s != "" {
			return s
		}
		return coerceString(x["email"])
	case []any:
		if len(x) == 0 {
			return ""
		}
		return coerceString(x[0])
	}
	return fmt.Sprint(v)
}

func coerceNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

func receivedAt(raw map[string]any) string {
	for _, c := range receivedAtKeys {
		v, ok := raw[c.key]
		if !ok || v == nil || v == "" {
			continue
		}
		t, ok := parseTime(v, c.kind)
		if !ok {
			return ""
		}
		return t.UTC().Format(ReceivedAtLayout)
	}
	return ""
}

func parseTime(v any, kind timeKind) (time.Time, bool) {
	if n, ok := coerceNumber(v); ok {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return time.Time{}, false
		}
		ms := int64(n)
		switch kind {
		case epochSeconds, epochAuto:
			if math.Abs(n) < millisThreshold {
				ms = int64(n * 1000)
			}
		}
		return time.UnixMilli(ms), true
	}

	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, err := mail.ParseDate(s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func isRead(raw map[string]any) bool {
	for _, k := range []string{"seen", "read", "isRead"} {
		if b, ok := raw[k].(bool); ok {
			return b
		}
	}
	switch v := raw["is_read"].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true":
			return true
		}
		return false
	default:
		if n, ok := coerceNumber(v); ok {
			return n != 0
		}
	}
	return false
}

func attachments(v any) []Attachment {
	var items []map[string]any
	switch x := v.(type) {
	case []any:
		for _, it := range x {
			if m, ok := it.(map[string]any); ok {
				items = append(items, m)
			}
		}
	case []map[string]any:
		items = x
	}

	out := make([]Attachment, 0, len(items))
	for _, m := range items {
		att := Attachment{
			Filename:    firstString(m, attFilenameKeys),
			ContentType: firstString(m, attTypeKeys),
			DownloadURL: firstString(m, attURLKeys),
		}
		for _, k := range attSizeKeys {
			if n, ok := coerceNumber(m[k]); ok {
				att.Size = int64(n)
				break
			}
		}
		out = append(out, att)
	}
	return out
}
