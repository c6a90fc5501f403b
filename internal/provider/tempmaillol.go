package provider

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tempmail-sdk/client-go/internal/api"
	"github.com/tempmail-sdk/client-go/internal/apierrors"
)

// TempMailLOLBaseURL is the tempmail.lol v2 API root.
const TempMailLOLBaseURL = "https://api.tempmail.lol/v2"

// TempMailLOLAdapter talks to tempmail.lol. Listing needs only the token.
type TempMailLOLAdapter struct {
	http    *api.Client
	baseURL string
}

// NewTempMailLOL returns a tempmail.lol adapter rooted at baseURL.
func NewTempMailLOL(c *api.Client, baseURL string) *TempMailLOLAdapter {
	return &TempMailLOLAdapter{http: c, baseURL: baseURL}
}

func (a *TempMailLOLAdapter) ID() ID { return TempMailLOL }

func (a *TempMailLOLAdapter) Capabilities() Capabilities {
	return Capabilities{RequiresToken: true}
}

// CreateMailbox honours Domain.
func (a *TempMailLOLAdapter) CreateMailbox(ctx context.Context, opts CreateOptions) (*Mailbox, error) {
	var domain any
	if opts.Domain != "" {
		domain = opts.Domain
	}
	resp, err := a.http.Do(ctx, &api.Request{
		Method:   http.MethodPost,
		URL:      a.baseURL + "/inbox/create",
		JSON:     map[string]any{"domain": domain, "captcha": nil},
		Provider: string(TempMailLOL),
	})
	if err != nil {
		return nil, err
	}
	js, err := resp.JSON()
	if err != nil {
		return nil, err
	}

	address := js.Get("address").MustString()
	token := js.Get("token").MustString()
	if address == "" || token == "" {
		return nil, apierrors.Shape("tempmail-lol: create returned no address or token")
	}
	return &Mailbox{Provider: TempMailLOL, Address: address, Token: token}, nil
}

func (a *TempMailLOLAdapter) ListMessages(ctx context.Context, mb Mailbox) ([]RawMessage, error) {
	if err := requireToken(TempMailLOL, mb); err != nil {
		return nil, err
	}
	resp, err := a.http.Do(ctx, &api.Request{
		URL:           a.baseURL + "/inbox?token=" + url.QueryEscape(mb.Token),
		Authenticated: true,
		Provider:      string(TempMailLOL),
	})
	if err != nil {
		return nil, err
	}
	js, err := resp.JSON()
	if err != nil {
		return nil, err
	}
	if js.Get("expired").MustBool() {
		return nil, &apierrors.AuthRequiredError{Provider: string(TempMailLOL), Message: "inbox expired"}
	}
	return rawList(js.Get("emails"))
}
