package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multipartSource = "From: Sender <sender@example.com>\r\n" +
	"To: box@maildrop.cc\r\n" +
	"Subject: =?UTF-8?B?SGVsbG8gV29ybGQ=?=\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"XYZ\"\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"plain body\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<b>html body</b>\r\n" +
	"--XYZ\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"doc.pdf\"\r\n" +
	"\r\n" +
	"PDFDATA\r\n" +
	"--XYZ--\r\n"

func TestParseMIME_Multipart(t *testing.T) {
	text, html, atts := parseMIME([]byte(multipartSource))

	assert.Equal(t, "plain body", text)
	assert.Equal(t, "<b>html body</b>", html)
	require.Len(t, atts, 1)
	att := atts[0].(map[string]any)
	assert.Equal(t, "doc.pdf", att["filename"])
	assert.Equal(t, "application/pdf", att["contentType"])
	assert.Equal(t, int64(7), att["size"])
}

func TestParseMIME_SinglePart(t *testing.T) {
	src := "Subject: x\r\nContent-Type: text/plain\r\n\r\njust text"
	text, html, atts := parseMIME([]byte(src))

	assert.Equal(t, "just text", text)
	assert.Empty(t, html)
	assert.Empty(t, atts)
}

func TestDecodeWords(t *testing.T) {
	assert.Equal(t, "Hello World", decodeWords("=?UTF-8?B?SGVsbG8gV29ybGQ=?="))
	assert.Equal(t, "Grüße", decodeWords("=?ISO-8859-1?Q?Gr=FC=DFe?="))
	assert.Equal(t, "plain", decodeWords("plain"))
	assert.Equal(t, "", decodeWords(""))
}

func TestMailboxName(t *testing.T) {
	assert.Equal(t, "tok", mailboxName(Mailbox{Token: "tok", Address: "x@maildrop.cc"}))
	assert.Equal(t, "x", mailboxName(Mailbox{Address: "x@maildrop.cc"}))
}

func TestMailDrop(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://maildrop.cc", r.Header.Get("Origin"))
		var body struct {
			OperationName string         `json:"operationName"`
			Query         string         `json:"query"`
			Variables     map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch {
		case body.Query == mailDropProbe:
			_, _ = w.Write([]byte(`{"data":{"inbox":[]}}`))
		case body.OperationName == "GetInbox":
			assert.Equal(t, "box", body.Variables["mailbox"])
			_, _ = w.Write([]byte(`{"data":{"inbox":[
				{"id":"1","headerfrom":"=?UTF-8?B?U2VuZGVy?= <sender@example.com>","subject":"=?UTF-8?B?SGVsbG8gV29ybGQ=?=","date":"2024-01-01T00:00:00.000Z"},
				{"id":"2","headerfrom":"other@example.com","subject":"second","date":"2024-01-01T00:05:00.000Z"}
			]}}`))
		case body.OperationName == "GetMessage" && body.Variables["id"] == "1":
			msg := map[string]any{"data": map[string]any{"message": map[string]any{
				"id": "1", "headerfrom": "Sender <sender@example.com>", "subject": "=?UTF-8?B?SGVsbG8gV29ybGQ=?=",
				"date": "2024-01-01T00:00:00.000Z", "data": multipartSource, "html": "<b>html body</b>",
			}}}
			_ = json.NewEncoder(w).Encode(msg)
		default:
			_, _ = w.Write([]byte(`{"errors":[{"message":"not found"}]}`))
		}
	})
	a := NewMailDrop(newAPIClient(t), server.URL)

	mb, err := a.CreateMailbox(context.Background(), CreateOptions{})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(mb.Address, "@maildrop.cc"))
	assert.Len(t, mb.Token, 10)

	msgs, err := a.ListMessages(context.Background(), Mailbox{Provider: MailDrop, Address: "box@maildrop.cc"})
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "Hello World", msgs[0]["subject"])
	assert.Equal(t, "plain body", msgs[0]["text"])
	assert.Equal(t, "<b>html body</b>", msgs[0]["html"])
	assert.Equal(t, "box@maildrop.cc", msgs[0]["to"])

	// detail for 2 failed: summary survives with decoded headers
	assert.Equal(t, "2", msgs[1]["id"])
	assert.Equal(t, "second", msgs[1]["subject"])
	assert.Equal(t, "other@example.com", msgs[1]["from"])
	_, hasText := msgs[1]["text"]
	assert.False(t, hasText)
}
