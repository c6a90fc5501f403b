package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	tempmail "github.com/tempmail-sdk/client-go"
)

const (
	maxTextPreview = 200
	maxHTMLPreview = 100
)

var (
	colorAccent = lipgloss.Color("#7D56F4")
	colorGray   = lipgloss.Color("#888888")
	colorWhite  = lipgloss.Color("#FAFAFA")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	labelStyle = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	valueStyle = lipgloss.NewStyle().Foreground(colorWhite)
	cardStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1)
)

func field(label, value string) string {
	if value == "" {
		value = "-"
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}

func renderProviders(infos []tempmail.ProviderInfo) string {
	lines := []string{titleStyle.Render("Providers")}
	for _, info := range infos {
		lines = append(lines, fmt.Sprintf("%s %s (%s)",
			labelStyle.Width(16).Render(string(info.ID)),
			valueStyle.Render(info.Name),
			info.Website,
		))
	}
	return strings.Join(lines, "\n")
}

func renderMailbox(mb tempmail.Mailbox) string {
	lines := []string{
		titleStyle.Render("Mailbox"),
		field("Provider", string(mb.Provider)),
		field("Address", mb.Address),
	}
	if mb.Token != "" {
		lines = append(lines, field("Token", truncate(mb.Token, 48)))
	}
	if !mb.ExpiresAt.IsZero() {
		lines = append(lines, field("Expires", mb.ExpiresAt.Local().Format("2006-01-02 15:04:05")))
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func renderMessage(m tempmail.Message, n int) string {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Message #%d", n)),
		field("ID", m.ID),
		field("From", m.From),
		field("To", m.To),
		field("Subject", m.Subject),
		field("Received", m.ReceivedAt),
		field("Read", fmt.Sprint(m.IsRead)),
	}
	if m.Text != "" {
		lines = append(lines, field("Text", truncate(m.Text, maxTextPreview)))
	}
	if m.HTML != "" {
		lines = append(lines, field("HTML", truncate(m.HTML, maxHTMLPreview)))
	}
	if len(m.Attachments) > 0 {
		names := make([]string, len(m.Attachments))
		for i, a := range m.Attachments {
			names[i] = a.Filename
		}
		lines = append(lines, field("Attachments", strings.Join(names, ", ")))
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

// truncate cuts s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
