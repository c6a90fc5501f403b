package provider

import (
	"github.com/tempmail-sdk/client-go/internal/api"
	"github.com/tempmail-sdk/client-go/internal/apierrors"
)

// New returns the adapter for id wired to the production endpoint.
func New(id ID, c *api.Client) (Provider, error) {
	switch id {
	case TempMail:
		return NewTempMail(c, TempMailBaseURL), nil
	case LinshiEmail:
		return NewLinshi(c, LinshiBaseURL), nil
	case TempMailLOL:
		return NewTempMailLOL(c, TempMailLOLBaseURL), nil
	case ChatGPTOrgUK:
		return NewChatGPTOrgUK(c, ChatGPTOrgUKBaseURL), nil
	case TempMailLA:
		return NewTempMailLA(c, TempMailLABaseURL), nil
	case TempMailIO:
		return NewTempMailIO(c, TempMailIOBaseURL), nil
	case AwaMail:
		return NewAwaMail(c, AwaMailBaseURL), nil
	case MailTM:
		return NewMailTM(c, MailTMBaseURL), nil
	case DropMail:
		return NewDropMail(c, DropMailEndpoint), nil
	case GuerrillaMail:
		return NewGuerrillaMail(c, GuerrillaMailBaseURL), nil
	case MailDrop:
		return NewMailDrop(c, MailDropEndpoint), nil
	}
	return nil, apierrors.Validation("provider", "unknown provider %q", id)
}

// All returns one adapter per known backend, in IDs order.
func All(c *api.Client) []Provider {
	out := make([]Provider, 0, len(IDs()))
	for _, id := range IDs() {
		p, err := New(id, c)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}
