package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempmail-sdk/client-go/internal/apierrors"
)

func TestMailTM_CreateMailbox(t *testing.T) {
	var registered string
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/domains":
			_, _ = w.Write([]byte(`{"hydra:member":[{"domain":"old.tm","isActive":false},{"domain":"fresh.tm","isActive":true},{"domain":"other.tm","isActive":true}]}`))
		case "/accounts":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			registered = body["address"]
			assert.Len(t, body["password"], 16)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"acc","address":"` + registered + `","createdAt":"2024-01-01T00:00:00+00:00"}`))
		case "/token":
			_, _ = w.Write([]byte(`{"id":"acc","token":"jwt"}`))
		}
	})
	a := NewMailTM(newAPIClient(t), server.URL)

	mb, err := a.CreateMailbox(context.Background(), CreateOptions{Domain: "other.tm"})
	require.NoError(t, err)
	assert.Equal(t, "jwt", mb.Token)
	assert.Equal(t, registered, mb.Address)
	assert.True(t, strings.HasSuffix(mb.Address, "@other.tm"))
	local, _, _ := strings.Cut(mb.Address, "@")
	assert.Len(t, local, 12)
	assert.False(t, mb.CreatedAt.IsZero())
}

func TestMailTM_CreateMailbox_NoDomain(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hydra:member":[]}`))
	})
	a := NewMailTM(newAPIClient(t), server.URL)

	_, err := a.CreateMailbox(context.Background(), CreateOptions{})
	assert.ErrorIs(t, err, apierrors.ErrProtocol)
}

func TestMailTM_ListMessages_DetailFallback(t *testing.T) {
	var detailCalls atomic.Int32
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer jwt", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/messages":
			_, _ = w.Write([]byte(`{"hydra:member":[
				{"id":"m1","from":{"address":"a@x","name":"A"},"to":[{"address":"me@fresh.tm"}],"subject":"one","seen":false,"createdAt":"2024-01-01T00:00:00+00:00"},
				{"id":"m2","from":{"address":"b@x"},"to":[{"address":"me@fresh.tm"}],"subject":"two","seen":true,"createdAt":"2024-01-01T00:01:00+00:00"},
				{"id":"m3","from":{"address":"c@x"},"to":[],"subject":"three"}
			]}`))
		case "/messages/m1":
			detailCalls.Add(1)
			_, _ = w.Write([]byte(`{"id":"m1","from":{"address":"a@x"},"to":[{"address":"me@fresh.tm"}],"subject":"one","text":"body one","html":["<p>one</p>","<p>more</p>"],"seen":false,
				"attachments":[{"filename":"f.txt","size":3,"contentType":"text/plain","downloadUrl":"/messages/m1/attachment/ATTACH1"}]}`))
		case "/messages/m2":
			detailCalls.Add(1)
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/messages/m3":
			detailCalls.Add(1)
			_, _ = w.Write([]byte(`{"id":"m3","from":{"address":"c@x"},"to":[],"subject":"three","text":"body three"}`))
		}
	})
	a := NewMailTM(newAPIClient(t), server.URL)

	msgs, err := a.ListMessages(context.Background(), Mailbox{Provider: MailTM, Address: "me@fresh.tm", Token: "jwt"})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, int32(3), detailCalls.Load())

	assert.Equal(t, "m1", msgs[0]["id"])
	assert.Equal(t, "a@x", msgs[0]["from"])
	assert.Equal(t, "me@fresh.tm", msgs[0]["to"])
	assert.Equal(t, "body one", msgs[0]["text"])
	assert.Equal(t, "<p>one</p><p>more</p>", msgs[0]["html"])
	atts, ok := msgs[0]["attachments"].([]any)
	require.True(t, ok)
	require.Len(t, atts, 1)
	assert.Equal(t, server.URL+"/messages/m1/attachment/ATTACH1", atts[0].(map[string]any)["downloadUrl"])

	// m2 detail failed: summary kept, still flattened.
	assert.Equal(t, "m2", msgs[1]["id"])
	assert.Equal(t, "b@x", msgs[1]["from"])
	assert.Equal(t, true, msgs[1]["seen"])
	assert.Nil(t, msgs[1]["text"])

	assert.Equal(t, "m3", msgs[2]["id"])
	_, hasTo := msgs[2]["to"]
	assert.False(t, hasTo)
}

func TestMailTM_ListMessages_NeedsToken(t *testing.T) {
	a := NewMailTM(newAPIClient(t), "http://127.0.0.1:1")

	_, err := a.ListMessages(context.Background(), Mailbox{Provider: MailTM, Address: "me@fresh.tm"})
	assert.ErrorIs(t, err, apierrors.ErrAuthRequired)
}

func TestMailTM_ListMessages_Unauthorized(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	a := NewMailTM(newAPIClient(t), server.URL)

	_, err := a.ListMessages(context.Background(), Mailbox{Provider: MailTM, Address: "me@fresh.tm", Token: "expired"})
	assert.ErrorIs(t, err, apierrors.ErrAuthRequired)
}
