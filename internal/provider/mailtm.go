package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/bitly/go-simplejson"

	"github.com/tempmail-sdk/client-go/internal/api"
	"github.com/tempmail-sdk/client-go/internal/apierrors"
)

// MailTMBaseURL is the mail.tm API root.
const MailTMBaseURL = "https://api.mail.tm"

// MailTMAdapter talks to mail.tm. Creation registers an account with a
// random password and keeps only the resulting bearer token.
type MailTMAdapter struct {
	http    *api.Client
	baseURL string
}

// NewMailTM returns a mail.tm adapter rooted at baseURL.
func NewMailTM(c *api.Client, baseURL string) *MailTMAdapter {
	return &MailTMAdapter{http: c, baseURL: baseURL}
}

func (a *MailTMAdapter) ID() ID { return MailTM }

func (a *MailTMAdapter) Capabilities() Capabilities {
	return Capabilities{RequiresAddress: true, RequiresToken: true}
}

func (a *MailTMAdapter) call(ctx context.Context, method, path, token string, body any) (*simplejson.Json, error) {
	h := headers("Accept", "application/ld+json, application/json")
	if body != nil {
		h.Set("Content-Type", "application/json")
	}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.http.Do(ctx, &api.Request{
		Method:        method,
		URL:           a.baseURL + path,
		Header:        h,
		JSON:          body,
		Authenticated: token != "",
		Provider:      string(MailTM),
	})
	if err != nil {
		return nil, err
	}
	return resp.JSON()
}

// CreateMailbox honours Domain when mail.tm currently offers it.
func (a *MailTMAdapter) CreateMailbox(ctx context.Context, opts CreateOptions) (*Mailbox, error) {
	domains, err := a.call(ctx, http.MethodGet, "/domains", "", nil)
	if err != nil {
		return nil, err
	}
	domain := pickMailTMDomain(domains.Get("hydra:member"), opts.Domain)
	if domain == "" {
		return nil, apierrors.Shape("mail-tm: no active domain")
	}

	address := randomString(12, lowerAlnum) + "@" + domain
	password := randomString(16, mixedAlnum)
	creds := map[string]any{"address": address, "password": password}

	account, err := a.call(ctx, http.MethodPost, "/accounts", "", creds)
	if err != nil {
		return nil, err
	}
	tok, err := a.call(ctx, http.MethodPost, "/token", "", creds)
	if err != nil {
		return nil, err
	}
	token := tok.Get("token").MustString()
	if token == "" {
		return nil, apierrors.Shape("mail-tm: token endpoint returned no token")
	}
	if got := account.Get("address").MustString(); got != "" {
		address = got
	}
	return &Mailbox{
		Provider:  MailTM,
		Address:   address,
		Token:     token,
		CreatedAt: timeValue(account.Get("createdAt")),
	}, nil
}

func pickMailTMDomain(members *simplejson.Json, preferred string) string {
	arr, _ := members.Array()
	var first string
	for i := range arr {
		m := members.GetIndex(i)
		if !m.Get("isActive").MustBool(true) {
			continue
		}
		d := m.Get("domain").MustString()
		if d == "" {
			continue
		}
		if preferred != "" && strings.EqualFold(d, preferred) {
			return d
		}
		if first == "" {
			first = d
		}
	}
	return first
}

// ListMessages fetches summaries, then each message's detail concurrently.
func (a *MailTMAdapter) ListMessages(ctx context.Context, mb Mailbox) ([]RawMessage, error) {
	if err := requireToken(MailTM, mb); err != nil {
		return nil, err
	}
	js, err := a.call(ctx, http.MethodGet, "/messages", mb.Token, nil)
	if err != nil {
		return nil, err
	}
	summaries, err := rawList(js.Get("hydra:member"))
	if err != nil {
		return nil, err
	}

	details := fetchDetails(ctx, summaries, func(ctx context.Context, s RawMessage) (RawMessage, error) {
		id := stringField(s, "id")
		if id == "" {
			return nil, apierrors.Shape("mail-tm: message without id")
		}
		d, err := a.call(ctx, http.MethodGet, "/messages/"+url.PathEscape(id), mb.Token, nil)
		if err != nil {
			return nil, err
		}
		m, err := d.Map()
		if err != nil {
			return nil, apierrors.Shape("mail-tm: message detail is not an object")
		}
		return RawMessage(m), nil
	})

	out := make([]RawMessage, len(details))
	for i, d := range details {
		out[i] = a.flatten(d)
	}
	return out, nil
}

// flatten lifts nested address objects and joins the html parts.
func (a *MailTMAdapter) flatten(m RawMessage) RawMessage {
	out := make(RawMessage, len(m))
	for k, v := range m {
		out[k] = v
	}
	if from, ok := m["from"].(map[string]any); ok {
		out["from"] = from["address"]
	}
	if to, ok := m["to"].([]any); ok {
		delete(out, "to")
		if len(to) > 0 {
			if first, ok := to[0].(map[string]any); ok {
				out["to"] = first["address"]
			}
		}
	}
	if parts, ok := m["html"].([]any); ok {
		var b strings.Builder
		for _, p := range parts {
			if s, ok := p.(string); ok {
				b.WriteString(s)
			}
		}
		out["html"] = b.String()
	}
	if atts, ok := m["attachments"].([]any); ok {
		fixed := make([]any, 0, len(atts))
		for _, att := range atts {
			am, ok := att.(map[string]any)
			if !ok {
				continue
			}
			cp := make(map[string]any, len(am))
			for k, v := range am {
				cp[k] = v
			}
			if u, ok := am["downloadUrl"].(string); ok && strings.HasPrefix(u, "/") {
				cp["downloadUrl"] = a.baseURL + u
			}
			fixed = append(fixed, cp)
		}
		out["attachments"] = fixed
	}
	return out
}
