package tempmail

import "github.com/tempmail-sdk/client-go/internal/provider"

// ProviderID identifies a disposable-mail backend.
type ProviderID = provider.ID

// Supported providers.
const (
	ProviderTempMail      = provider.TempMail
	ProviderLinshiEmail   = provider.LinshiEmail
	ProviderTempMailLOL   = provider.TempMailLOL
	ProviderChatGPTOrgUK  = provider.ChatGPTOrgUK
	ProviderTempMailLA    = provider.TempMailLA
	ProviderTempMailIO    = provider.TempMailIO
	ProviderAwaMail       = provider.AwaMail
	ProviderMailTM        = provider.MailTM
	ProviderDropMail      = provider.DropMail
	ProviderGuerrillaMail = provider.GuerrillaMail
	ProviderMailDrop      = provider.MailDrop
)

// Mailbox is a disposable address together with the provider that issued
// it. The Token, when present, is opaque and must be passed back unchanged.
type Mailbox = provider.Mailbox

// Provider is the adapter contract implemented by every backend. Custom
// adapters can be installed with WithAdapters.
type Provider = provider.Provider

// RawMessage is one message record in a provider's own field names.
type RawMessage = provider.RawMessage

// CreateOptions are the hints passed to Provider.CreateMailbox.
type CreateOptions = provider.CreateOptions

// Capabilities describes what a provider needs to list messages.
type Capabilities = provider.Capabilities
