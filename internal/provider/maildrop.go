package provider

import (
	"bytes"
	"context"
	"io"
	"mime"
	"strings"

	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/tempmail-sdk/client-go/internal/api"
	"github.com/tempmail-sdk/client-go/internal/apierrors"
)

// MailDropEndpoint is the maildrop.cc GraphQL endpoint.
const MailDropEndpoint = "https://api.maildrop.cc/graphql"

const (
	mailDropDomain = "maildrop.cc"

	mailDropProbe   = `query GetInbox($mailbox: String!) { inbox(mailbox: $mailbox) { id } }`
	mailDropInbox   = `query GetInbox($mailbox: String!) { inbox(mailbox: $mailbox) { id headerfrom subject date } }`
	mailDropMessage = `query GetMessage($mailbox: String!, $id: String!) { message(mailbox: $mailbox, id: $id) { id headerfrom subject date data html } }`
)

var wordDecoder = &mime.WordDecoder{CharsetReader: charset.Reader}

// MailDropAdapter talks to maildrop.cc. Any local part is a valid inbox, so
// creation only picks a random name and checks the service answers.
type MailDropAdapter struct {
	http     *api.Client
	endpoint string
}

// NewMailDrop returns a maildrop.cc adapter posting to endpoint.
func NewMailDrop(c *api.Client, endpoint string) *MailDropAdapter {
	return &MailDropAdapter{http: c, endpoint: endpoint}
}

func (a *MailDropAdapter) ID() ID { return MailDrop }

func (a *MailDropAdapter) Capabilities() Capabilities {
	return Capabilities{RequiresAddress: true}
}

func (a *MailDropAdapter) request(op, q string, vars map[string]any) api.GraphQLRequest {
	return api.GraphQLRequest{
		URL:           a.endpoint,
		OperationName: op,
		Query:         q,
		Variables:     vars,
		Header: headers(
			"Origin", "https://maildrop.cc",
			"Referer", "https://maildrop.cc/",
		),
		Provider: string(MailDrop),
	}
}

func (a *MailDropAdapter) CreateMailbox(ctx context.Context, _ CreateOptions) (*Mailbox, error) {
	name := randomString(10, lowerAlnum)
	req := a.request("GetInbox", mailDropProbe, map[string]any{"mailbox": name})
	if _, err := a.http.GraphQL(ctx, req); err != nil {
		return nil, err
	}
	return &Mailbox{
		Provider: MailDrop,
		Address:  name + "@" + mailDropDomain,
		Token:    name,
	}, nil
}

// mailboxName prefers the token and falls back to the address local part.
func mailboxName(mb Mailbox) string {
	if mb.Token != "" {
		return mb.Token
	}
	local, _, _ := strings.Cut(mb.Address, "@")
	return local
}

func (a *MailDropAdapter) ListMessages(ctx context.Context, mb Mailbox) ([]RawMessage, error) {
	name := mailboxName(mb)
	if name == "" {
		return nil, apierrors.Validation("email", "maildrop needs an address or token")
	}

	data, err := a.http.GraphQL(ctx, a.request("GetInbox", mailDropInbox, map[string]any{"mailbox": name}))
	if err != nil {
		return nil, err
	}
	summaries, err := rawList(data.Get("inbox"))
	if err != nil {
		return nil, err
	}

	details := fetchDetails(ctx, summaries, func(ctx context.Context, s RawMessage) (RawMessage, error) {
		req := a.request("GetMessage", mailDropMessage, map[string]any{"mailbox": name, "id": stringField(s, "id")})
		d, err := a.http.GraphQL(ctx, req)
		if err != nil {
			return nil, err
		}
		m, err := d.Get("message").Map()
		if err != nil {
			return nil, apierrors.Shape("maildrop: message is not an object")
		}
		return RawMessage(m), nil
	})

	out := make([]RawMessage, len(details))
	for i, d := range details {
		out[i] = flattenMailDrop(d, mb.Address)
	}
	return out, nil
}

func flattenMailDrop(m RawMessage, to string) RawMessage {
	out := RawMessage{
		"id":      m["id"],
		"from":    decodeWords(stringField(m, "headerfrom")),
		"to":      to,
		"subject": decodeWords(stringField(m, "subject")),
		"date":    m["date"],
		"html":    m["html"],
	}
	if raw := stringField(m, "data"); raw != "" {
		text, html, atts := parseMIME([]byte(raw))
		out["text"] = text
		if stringField(m, "html") == "" && html != "" {
			out["html"] = html
		}
		if len(atts) > 0 {
			out["attachments"] = atts
		}
	}
	return out
}

func decodeWords(s string) string {
	if s == "" {
		return ""
	}
	decoded, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}

// parseMIME extracts the text and html bodies and attachment metadata from a
// raw RFC 5322 message. Unparsable input is returned as plain text.
func parseMIME(raw []byte) (text, html string, attachments []any) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw), "", nil
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			switch {
			case strings.HasPrefix(contentType, "text/plain") && text == "":
				text = string(body)
			case strings.HasPrefix(contentType, "text/html") && html == "":
				html = string(body)
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			n, _ := io.Copy(io.Discard, part.Body)
			attachments = append(attachments, map[string]any{
				"filename":    filename,
				"size":        n,
				"contentType": contentType,
			})
		}
	}
	return text, html, attachments
}
