package feed

import (
	"time"

	"public-chat/internal/client"
)

// timestampLayout matches JavaScript's Date.toISOString, which other clients of the
// same collection write.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Message is the read-only projection of a stored message document.
type Message struct {
	ID         string  `json:"$id"`
	SenderID   string  `json:"senderId"`
	SenderName string  `json:"senderName"`
	Text       string  `json:"text"`
	ImageURL   *string `json:"imageUrl"`
	CreatedAt  string  `json:"createdAt"`
	StoredAt   string  `json:"$createdAt,omitempty"`
}

// Time returns createdAt, falling back to the store's own timestamp.
func (m Message) Time() (time.Time, bool) {
	for _, v := range []string{m.CreatedAt, m.StoredAt} {
		if v == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Payload is the document body written by Send.
type Payload struct {
	SenderID   string  `json:"senderId"`
	SenderName string  `json:"senderName"`
	Text       string  `json:"text"`
	ImageURL   *string `json:"imageUrl"`
	CreatedAt  string  `json:"createdAt"`
}

// User is the cached session user.
type User struct {
	ID          string
	DisplayName string
}

// SessionUser projects an account, using the email when no name is set.
func SessionUser(u *client.User) *User {
	if u == nil {
		return nil
	}
	name := u.Name
	if name == "" {
		name = u.Email
	}
	return &User{ID: u.ID, DisplayName: name}
}
