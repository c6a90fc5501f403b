package provider

import (
	"context"

	"github.com/tempmail-sdk/client-go/internal/api"
	"github.com/tempmail-sdk/client-go/internal/apierrors"
)

// DropMailEndpoint is the dropmail.me GraphQL endpoint.
const DropMailEndpoint = "https://dropmail.me/api/graphql/MY_TOKEN"

const (
	dropMailCreate = `mutation {introduceSession {id, expiresAt, addresses {id, address}}}`
	dropMailList   = `query ($id: ID!) { session(id:$id) { mails { id, rawSize, fromAddr, toAddr, receivedAt, text, headerFrom, headerSubject, html } } }`
)

// DropMailAdapter talks to dropmail.me. The mailbox token is the session id.
type DropMailAdapter struct {
	http     *api.Client
	endpoint string
}

// NewDropMail returns a dropmail.me adapter posting to endpoint.
func NewDropMail(c *api.Client, endpoint string) *DropMailAdapter {
	return &DropMailAdapter{http: c, endpoint: endpoint}
}

func (a *DropMailAdapter) ID() ID { return DropMail }

func (a *DropMailAdapter) Capabilities() Capabilities {
	return Capabilities{RequiresAddress: true, RequiresToken: true}
}

func (a *DropMailAdapter) CreateMailbox(ctx context.Context, _ CreateOptions) (*Mailbox, error) {
	data, err := a.http.GraphQL(ctx, api.GraphQLRequest{
		URL:      a.endpoint,
		Query:    dropMailCreate,
		Form:     true,
		Provider: string(DropMail),
	})
	if err != nil {
		return nil, err
	}

	session := data.Get("introduceSession")
	id := session.Get("id").MustString()
	address := session.Get("addresses").GetIndex(0).Get("address").MustString()
	if id == "" || address == "" {
		return nil, apierrors.Shape("dropmail: session without id or address")
	}
	return &Mailbox{
		Provider:  DropMail,
		Address:   address,
		Token:     id,
		ExpiresAt: timeValue(session.Get("expiresAt")),
	}, nil
}

func (a *DropMailAdapter) ListMessages(ctx context.Context, mb Mailbox) ([]RawMessage, error) {
	if err := requireToken(DropMail, mb); err != nil {
		return nil, err
	}
	data, err := a.http.GraphQL(ctx, api.GraphQLRequest{
		URL:       a.endpoint,
		Query:     dropMailList,
		Variables:     map[string]any{"id": mb.Token},
		Form:          true,
		Authenticated: true,
		Provider:      string(DropMail),
	})
	if err != nil {
		return nil, err
	}

	session := data.Get("session")
	if session.Interface() == nil {
		return nil, &apierrors.AuthRequiredError{Provider: string(DropMail), Message: "session expired"}
	}
	mails, err := rawList(session.Get("mails"))
	if err != nil {
		return nil, err
	}

	out := make([]RawMessage, len(mails))
	for i, m := range mails {
		out[i] = RawMessage{
			"id":          m["id"],
			"from":        m["fromAddr"],
			"to":          m["toAddr"],
			"subject":     m["headerSubject"],
			"text":        m["text"],
			"html":        m["html"],
			"received_at": m["receivedAt"],
			"size":        m["rawSize"],
		}
	}
	return out, nil
}
