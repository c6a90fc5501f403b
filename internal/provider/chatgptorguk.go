package provider

import (
	"context"
	"net/url"

	"github.com/tempmail-sdk/client-go/internal/api"
	"github.com/tempmail-sdk/client-go/internal/apierrors"
)

// ChatGPTOrgUKBaseURL is the mail.chatgpt.org.uk API root.
const ChatGPTOrgUKBaseURL = "https://mail.chatgpt.org.uk/api"

// ChatGPTOrgUKAdapter talks to mail.chatgpt.org.uk.
type ChatGPTOrgUKAdapter struct {
	http    *api.Client
	baseURL string
}

// NewChatGPTOrgUK returns a mail.chatgpt.org.uk adapter rooted at baseURL.
func NewChatGPTOrgUK(c *api.Client, baseURL string) *ChatGPTOrgUKAdapter {
	return &ChatGPTOrgUKAdapter{http: c, baseURL: baseURL}
}

func (a *ChatGPTOrgUKAdapter) ID() ID { return ChatGPTOrgUK }

func (a *ChatGPTOrgUKAdapter) Capabilities() Capabilities {
	return Capabilities{RequiresAddress: true}
}

func (a *ChatGPTOrgUKAdapter) CreateMailbox(ctx context.Context, _ CreateOptions) (*Mailbox, error) {
	resp, err := a.http.Do(ctx, &api.Request{
		URL:      a.baseURL + "/generate-email",
		Header:   headers("Referer", "https://mail.chatgpt.org.uk/"),
		Provider: string(ChatGPTOrgUK),
	})
	if err != nil {
		return nil, err
	}
	js, err := resp.JSON()
	if err != nil {
		return nil, err
	}

	address := js.GetPath("data", "email").MustString()
	if !js.Get("success").MustBool() || address == "" {
		return nil, apierrors.Shape("chatgpt-org-uk: generate returned no address")
	}
	return &Mailbox{Provider: ChatGPTOrgUK, Address: address}, nil
}

func (a *ChatGPTOrgUKAdapter) ListMessages(ctx context.Context, mb Mailbox) ([]RawMessage, error) {
	resp, err := a.http.Do(ctx, &api.Request{
		URL:      a.baseURL + "/emails?email=" + url.QueryEscape(mb.Address),
		Header:   headers("Referer", "https://mail.chatgpt.org.uk/"),
		Provider: string(ChatGPTOrgUK),
	})
	if err != nil {
		return nil, err
	}
	js, err := resp.JSON()
	if err != nil {
		return nil, err
	}
	if !js.Get("success").MustBool() {
		return nil, apierrors.Shape("chatgpt-org-uk: list reported failure")
	}
	return rawList(js.GetPath("data", "emails"))
}
