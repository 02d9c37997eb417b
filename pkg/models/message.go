package models

import "strings"

type Attachment struct {
	URL      string `json:"url" validate:"required"`
	MimeType string `json:"mime_type" validate:"required"`
	Name     string `json:"name,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Message is immutable once appended. Exactly one of Body or Attachment is set.
type Message struct {
	ID         uint64      `json:"id"`
	Sender     string      `json:"sender"`
	Receiver   string      `json:"receiver"`
	Body       *string     `json:"body,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
	// SentAt is nanoseconds since epoch; non-decreasing within a conversation
	SentAt int64 `json:"sent_at"`
}

// Payload is the user-supplied content of a new message.
type Payload struct {
	Body       string      `json:"body,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// HasBody reports whether the payload carries non-whitespace text.
func (p Payload) HasBody() bool {
	return strings.TrimSpace(p.Body) != ""
}

// MessageView is a history entry with the reactions attached to it.
type MessageView struct {
	Message
	Reactions map[string]string `json:"reactions,omitempty"`
	Groups    []ReactionGroup   `json:"groups,omitempty"`
}

// HistoryPage is one page of a conversation, oldest first.
type HistoryPage struct {
	Messages   []MessageView `json:"messages"`
	NextCursor string        `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

// Conversation is the per-pair metadata kept alongside the message log.
type Conversation struct {
	Key          string `json:"key"`
	UserA        string `json:"user_a"`
	UserB        string `json:"user_b"`
	LastSentAt   int64  `json:"last_sent_at"`
	MessageCount int64  `json:"message_count"`
}

// Peer returns the other participant of the conversation.
func (c Conversation) Peer(user string) string {
	if c.UserA == user {
		return c.UserB
	}
	return c.UserA
}
