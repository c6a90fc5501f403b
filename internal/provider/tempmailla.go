package provider

import (
	"context"
	"net/http"

	"github.com/tempmail-sdk/client-go/internal/api"
	"github.com/tempmail-sdk/client-go/internal/apierrors"
)

// TempMailLABaseURL is the tempmail.la API root.
const TempMailLABaseURL = "https://tempmail.la/api"

// tempMailLAMaxPages bounds cursor pagination in one list call.
const tempMailLAMaxPages = 20

// TempMailLAAdapter talks to tempmail.la.
type TempMailLAAdapter struct {
	http    *api.Client
	baseURL string
}

// NewTempMailLA returns a tempmail.la adapter rooted at baseURL.
func NewTempMailLA(c *api.Client, baseURL string) *TempMailLAAdapter {
	return &TempMailLAAdapter{http: c, baseURL: baseURL}
}

func (a *TempMailLAAdapter) ID() ID { return TempMailLA }

func (a *TempMailLAAdapter) Capabilities() Capabilities {
	return Capabilities{RequiresAddress: true}
}

func (a *TempMailLAAdapter) headers() http.Header {
	return headers(
		"Accept-Language", "en-US,en;q=0.9",
		"Cache-Control", "no-cache",
		"Origin", "https://tempmail.la",
		"Pragma", "no-cache",
		"Referer", "https://tempmail.la/",
		"Sec-Fetch-Dest", "empty",
		"Sec-Fetch-Mode", "cors",
		"Sec-Fetch-Site", "same-origin",
		"locale", "en-US",
		"platform", "PC",
		"product", "TEMP_MAIL",
	)
}

func (a *TempMailLAAdapter) CreateMailbox(ctx context.Context, _ CreateOptions) (*Mailbox, error) {
	resp, err := a.http.Do(ctx, &api.Request{
		Method:   http.MethodPost,
		URL:      a.baseURL + "/mail/create",
		Header:   a.headers(),
		JSON:     map[string]any{"turnstile": ""},
		Provider: string(TempMailLA),
	})
	if err != nil {
		return nil, err
	}
	js, err := resp.JSON()
	if err != nil {
		return nil, err
	}

	address := js.GetPath("data", "address").MustString()
	if js.Get("code").MustInt(-1) != 0 || address == "" {
		return nil, apierrors.Shape("tempmail-la: create returned no address")
	}
	return &Mailbox{
		Provider:  TempMailLA,
		Address:   address,
		CreatedAt: timeValue(js.GetPath("data", "startAt")),
		ExpiresAt: timeValue(js.GetPath("data", "endAt")),
	}, nil
}

// ListMessages follows the cursor until hasMore is false.
func (a *TempMailLAAdapter) ListMessages(ctx context.Context, mb Mailbox) ([]RawMessage, error) {
	all := []RawMessage{}
	var cursor any

	for page := 0; page < tempMailLAMaxPages; page++ {
		resp, err := a.http.Do(ctx, &api.Request{
			Method:   http.MethodPost,
			URL:      a.baseURL + "/mail/box",
			Header:   a.headers(),
			JSON:     map[string]any{"address": mb.Address, "cursor": cursor},
			Provider: string(TempMailLA),
		})
		if err != nil {
			return nil, err
		}
		js, err := resp.JSON()
		if err != nil {
			return nil, err
		}
		if js.Get("code").MustInt(-1) != 0 {
			return nil, apierrors.Shape("tempmail-la: box reported code %d", js.Get("code").MustInt(-1))
		}

		rows, err := rawList(js.GetPath("data", "rows"))
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)

		next := js.GetPath("data", "cursor").Interface()
		if !js.GetPath("data", "hasMore").MustBool() || next == nil {
			break
		}
		cursor = next
	}
	return all, nil
}
