package tui

import (
	"fmt"
	"strings"

	"public-chat/internal/feed"
)

// FormatRow renders one message. Messages from self are labelled "You".
func FormatRow(msg feed.Message, self *feed.User) string {
	stamp := "--:--"
	if t, ok := msg.Time(); ok {
		stamp = t.Local().Format("15:04")
	}

	sender := msg.SenderName
	if sender == "" {
		sender = "anonymous"
	}
	if self != nil && msg.SenderID == self.ID {
		sender = "You"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s:", stamp, sender)
	if msg.Text != "" {
		b.WriteString(" " + msg.Text)
	}
	if msg.ImageURL != nil {
		b.WriteString(" [image] " + *msg.ImageURL)
	}
	return b.String()
}

func renderFeed(items []feed.Message, self *feed.User, width int) string {
	if len(items) == 0 {
		return "No messages yet."
	}
	rows := make([]string, 0, len(items))
	for _, it := range items {
		row := FormatRow(it, self)
		if width > 0 && len(row) > width {
			row = wrap(row, width)
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

func wrap(s string, width int) string {
	var b strings.Builder
	runes := []rune(s)
	for len(runes) > width {
		b.WriteString(string(runes[:width]) + "\n")
		runes = runes[width:]
	}
	b.WriteString(string(runes))
	return b.String()
}

func (m Model) View() string {
	if !m.ready {
		return "\n  starting..."
	}

	who := "not logged in"
	if m.user != nil {
		who = "logged in as " + m.user.DisplayName
	}
	header := "public chat | " + who

	status := m.status
	if status == "" {
		if err := m.feed.Err(); err != nil {
			status = "feed: " + err.Error()
		}
	}
	switch {
	case m.feed.State() == feed.StateLoading:
		status = m.spinner.View() + " loading messages"
	case m.feed.Sending():
		status = m.spinner.View() + " sending"
	}
	if c := m.feed.Composer(); c.File != nil {
		status = strings.TrimSpace(status + " | attachment: " + c.File.Name)
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s", header, m.viewport.View(), status, m.input.View())
}
