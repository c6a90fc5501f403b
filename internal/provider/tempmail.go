package provider

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/tempmail-sdk/client-go/internal/api"
	"github.com/tempmail-sdk/client-go/internal/apierrors"
)

// TempMailBaseURL is the tempmail.ing API root.
const TempMailBaseURL = "https://api.tempmail.ing/api"

const tempMailDefaultDuration = 30 * time.Minute

// TempMailAdapter talks to tempmail.ing.
type TempMailAdapter struct {
	http    *api.Client
	baseURL string
}

// NewTempMail returns a tempmail.ing adapter rooted at baseURL.
func NewTempMail(c *api.Client, baseURL string) *TempMailAdapter {
	return &TempMailAdapter{http: c, baseURL: baseURL}
}

func (a *TempMailAdapter) ID() ID { return TempMail }

func (a *TempMailAdapter) Capabilities() Capabilities {
	return Capabilities{RequiresAddress: true}
}

func (a *TempMailAdapter) headers() http.Header {
	return headers(
		"Referer", "https://tempmail.ing/",
		"DNT", "1",
	)
}

// CreateMailbox honours Duration, rounded to whole minutes.
func (a *TempMailAdapter) CreateMailbox(ctx context.Context, opts CreateOptions) (*Mailbox, error) {
	d := opts.Duration
	if d <= 0 {
		d = tempMailDefaultDuration
	}
	minutes := int(d / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	resp, err := a.http.Do(ctx, &api.Request{
		Method:   http.MethodPost,
		URL:      a.baseURL + "/generate",
		Header:   a.headers(),
		JSON:     map[string]any{"duration": minutes},
		Provider: string(TempMail),
	})
	if err != nil {
		return nil, err
	}
	js, err := resp.JSON()
	if err != nil {
		return nil, err
	}

	address := js.GetPath("email", "address").MustString()
	if !js.Get("success").MustBool() || address == "" {
		return nil, apierrors.Shape("tempmail: generate returned no address")
	}
	return &Mailbox{
		Provider:  TempMail,
		Address:   address,
		CreatedAt: timeValue(js.GetPath("email", "createdAt")),
		ExpiresAt: timeValue(js.GetPath("email", "expiresAt")),
	}, nil
}

func (a *TempMailAdapter) ListMessages(ctx context.Context, mb Mailbox) ([]RawMessage, error) {
	resp, err := a.http.Do(ctx, &api.Request{
		URL:      a.baseURL + "/emails/" + url.PathEscape(mb.Address),
		Header:   a.headers(),
		Provider: string(TempMail),
	})
	if err != nil {
		return nil, err
	}
	js, err := resp.JSON()
	if err != nil {
		return nil, err
	}
	if !js.Get("success").MustBool() {
		return nil, apierrors.Shape("tempmail: list reported failure")
	}
	return rawList(js.Get("emails"))
}
