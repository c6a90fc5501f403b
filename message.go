package tempmail

// Message is one received email in the unified shape shared by every
// provider.
type Message struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`

	// ReceivedAt is an ISO-8601 UTC timestamp with millisecond precision,
	// or empty when the provider did not report a parsable time.
	ReceivedAt string `json:"receivedAt"`

	IsRead      bool         `json:"isRead"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment describes a file attached to a Message.
type Attachment struct {
	Filename    string `json:"filename"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}
