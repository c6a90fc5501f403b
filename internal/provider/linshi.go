package provider

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tempmail-sdk/client-go/internal/api"
	"github.com/tempmail-sdk/client-go/internal/apierrors"
)

// LinshiBaseURL is the linshi-email.com API root.
const LinshiBaseURL = "https://www.linshi-email.com/api/v1"

const linshiKey = "552562b8524879814776e52bc8de5c9f"

// LinshiAdapter talks to linshi-email.com.
type LinshiAdapter struct {
	http    *api.Client
	baseURL string
	now     func() time.Time
}

// NewLinshi returns a linshi-email.com adapter rooted at baseURL.
func NewLinshi(c *api.Client, baseURL string) *LinshiAdapter {
	return &LinshiAdapter{http: c, baseURL: baseURL, now: time.Now}
}

func (a *LinshiAdapter) ID() ID { return LinshiEmail }

func (a *LinshiAdapter) Capabilities() Capabilities {
	return Capabilities{RequiresAddress: true}
}

func (a *LinshiAdapter) headers() http.Header {
	return headers(
		"Origin", "https://www.linshi-email.com",
		"Referer", "https://www.linshi-email.com/",
	)
}

func (a *LinshiAdapter) CreateMailbox(ctx context.Context, _ CreateOptions) (*Mailbox, error) {
	resp, err := a.http.Do(ctx, &api.Request{
		Method:   http.MethodPost,
		URL:      a.baseURL + "/email/" + linshiKey,
		Header:   a.headers(),
		JSON:     map[string]any{},
		Provider: string(LinshiEmail),
	})
	if err != nil {
		return nil, err
	}
	js, err := resp.JSON()
	if err != nil {
		return nil, err
	}

	address := js.GetPath("data", "email").MustString()
	if js.Get("status").MustString() != "ok" || address == "" {
		return nil, apierrors.Shape("linshi-email: create returned no address")
	}
	return &Mailbox{
		Provider:  LinshiEmail,
		Address:   address,
		ExpiresAt: timeValue(js.GetPath("data", "expired")),
	}, nil
}

func (a *LinshiAdapter) ListMessages(ctx context.Context, mb Mailbox) ([]RawMessage, error) {
	u := a.baseURL + "/refreshmessage/" + linshiKey + "/" + url.PathEscape(mb.Address) +
		"?t=" + strconv.FormatInt(a.now().UnixMilli(), 10)
	resp, err := a.http.Do(ctx, &api.Request{
		URL:      u,
		Header:   a.headers(),
		Provider: string(LinshiEmail),
	})
	if err != nil {
		return nil, err
	}
	js, err := resp.JSON()
	if err != nil {
		return nil, err
	}
	if js.Get("status").MustString() != "ok" {
		return nil, apierrors.Shape("linshi-email: refresh reported failure")
	}
	return rawList(js.Get("list"))
}
