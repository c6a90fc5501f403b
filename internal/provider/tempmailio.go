package provider

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tempmail-sdk/client-go/internal/api"
	"github.com/tempmail-sdk/client-go/internal/apierrors"
)

// TempMailIOBaseURL is the temp-mail.io internal API root.
const TempMailIOBaseURL = "https://api.internal.temp-mail.io/api/v3"

// TempMailIOAdapter talks to temp-mail.io.
type TempMailIOAdapter struct {
	http    *api.Client
	baseURL string
}

// NewTempMailIO returns a temp-mail.io adapter rooted at baseURL.
func NewTempMailIO(c *api.Client, baseURL string) *TempMailIOAdapter {
	return &TempMailIOAdapter{http: c, baseURL: baseURL}
}

func (a *TempMailIOAdapter) ID() ID { return TempMailIO }

func (a *TempMailIOAdapter) Capabilities() Capabilities {
	return Capabilities{RequiresAddress: true}
}

func (a *TempMailIOAdapter) headers() http.Header {
	return headers(
		"Origin", "https://temp-mail.io",
		"Referer", "https://temp-mail.io/",
		"application-name", "web",
		"application-version", "4.0.0",
		"x-cors-header", "iaWg3pchvFx48fY",
	)
}

func (a *TempMailIOAdapter) CreateMailbox(ctx context.Context, _ CreateOptions) (*Mailbox, error) {
	resp, err := a.http.Do(ctx, &api.Request{
		Method:   http.MethodPost,
		URL:      a.baseURL + "/email/new",
		Header:   a.headers(),
		JSON:     map[string]any{"min_name_length": 10, "max_name_length": 10},
		Provider: string(TempMailIO),
	})
	if err != nil {
		return nil, err
	}
	js, err := resp.JSON()
	if err != nil {
		return nil, err
	}

	address := js.Get("email").MustString()
	if address == "" {
		return nil, apierrors.Shape("temp-mail-io: create returned no address")
	}
	return &Mailbox{
		Provider: TempMailIO,
		Address:  address,
		Token:    js.Get("token").MustString(),
	}, nil
}

func (a *TempMailIOAdapter) ListMessages(ctx context.Context, mb Mailbox) ([]RawMessage, error) {
	resp, err := a.http.Do(ctx, &api.Request{
		URL:      a.baseURL + "/email/" + url.PathEscape(mb.Address) + "/messages",
		Header:   a.headers(),
		Provider: string(TempMailIO),
	})
	if err != nil {
		return nil, err
	}
	js, err := resp.JSON()
	if err != nil {
		return nil, err
	}
	return rawList(js)
}
