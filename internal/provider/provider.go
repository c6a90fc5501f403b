// Package provider defines the adapter contract for disposable-mail backends
// and implements one adapter per supported service.
package provider

import (
	"context"
	"time"
)

// ID identifies a backend.
type ID string

// Known backends.
const (
	TempMail      ID = "tempmail"
	LinshiEmail   ID = "linshi-email"
	TempMailLOL   ID = "tempmail-lol"
	ChatGPTOrgUK  ID = "chatgpt-org-uk"
	TempMailLA    ID = "tempmail-la"
	TempMailIO    ID = "temp-mail-io"
	AwaMail       ID = "awamail"
	MailTM        ID = "mail-tm"
	DropMail      ID = "dropmail"
	GuerrillaMail ID = "guerrillamail"
	MailDrop      ID = "maildrop"
)

// IDs returns every known backend in a stable order.
func IDs() []ID {
	return []ID{
		TempMail,
		LinshiEmail,
		TempMailLOL,
		ChatGPTOrgUK,
		TempMailLA,
		TempMailIO,
		AwaMail,
		MailTM,
		DropMail,
		GuerrillaMail,
		MailDrop,
	}
}

// Known reports whether id names a supported backend.
func Known(id ID) bool {
	for _, k := range IDs() {
		if k == id {
			return true
		}
	}
	return false
}

// Mailbox is a disposable address issued by one backend. Zero times mean
// the backend did not report them.
type Mailbox struct {
	Provider  ID        `json:"channel"`
	Address   string    `json:"email"`
	Token     string    `json:"token,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// CreateOptions are hints for mailbox creation. Adapters ignore what they
// cannot honour.
type CreateOptions struct {
	Domain   string
	Duration time.Duration
}

// RawMessage is one message record in the backend's own field names.
type RawMessage map[string]any

// Capabilities describes what a backend needs to list messages.
type Capabilities struct {
	RequiresAddress bool
	RequiresToken   bool
}

// Provider is implemented by every backend adapter. Adapters never retry.
type Provider interface {
	ID() ID
	Capabilities() Capabilities
	CreateMailbox(ctx context.Context, opts CreateOptions) (*Mailbox, error)
	ListMessages(ctx context.Context, mb Mailbox) ([]RawMessage, error)
}

// Info is the display metadata of a backend.
type Info struct {
	ID      ID     `json:"channel"`
	Name    string `json:"name"`
	Website string `json:"website"`
}

var infos = map[ID]Info{
	TempMail:      {TempMail, "TempMail", "tempmail.ing"},
	LinshiEmail:   {LinshiEmail, "临时邮箱", "linshi-email.com"},
	TempMailLOL:   {TempMailLOL, "TempMail LOL", "tempmail.lol"},
	ChatGPTOrgUK:  {ChatGPTOrgUK, "ChatGPT Mail", "mail.chatgpt.org.uk"},
	TempMailLA:    {TempMailLA, "TempMail LA", "tempmail.la"},
	TempMailIO:    {TempMailIO, "Temp Mail IO", "temp-mail.io"},
	AwaMail:       {AwaMail, "AwaMail", "awamail.com"},
	MailTM:        {MailTM, "Mail.tm", "mail.tm"},
	DropMail:      {DropMail, "DropMail", "dropmail.me"},
	GuerrillaMail: {GuerrillaMail, "Guerrilla Mail", "guerrillamail.com"},
	MailDrop:      {MailDrop, "Maildrop", "maildrop.cc"},
}

// Describe returns the display metadata for id.
func Describe(id ID) (Info, bool) {
	info, ok := infos[id]
	return info, ok
}
