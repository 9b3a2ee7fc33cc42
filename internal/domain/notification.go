package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a notification as reported by the backend.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// Label returns the human-readable status. Unknown values are returned verbatim.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Channel represents the delivery channel.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelTelegram Channel = "telegram"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelTelegram:
		return true
	}
	return false
}

// Label returns the human-readable channel. Unknown values are returned verbatim.
func (c Channel) Label() string {
	if label, ok := channelLabels[c]; ok {
		return label
	}
	return string(c)
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToLower(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

var statusLabels = map[Status]string{
	StatusPending:   "⏳ Pending",
	StatusSent:      "✅ Sent",
	StatusCancelled: "❌ Cancelled",
	StatusFailed:    "⚠️ Failed",
}

var channelLabels = map[Channel]string{
	ChannelEmail:    "📧 Email",
	ChannelTelegram: "📱 Telegram",
}

// Channels returns the selectable delivery channels in display order.
func Channels() []Channel {
	return []Channel{ChannelEmail, ChannelTelegram}
}

// Notification is the backend record as consumed by the console. It is never mutated locally.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Recipient string    `json:"recipient,omitempty"`
	Channel   Channel   `json:"channel"`
	Message   string    `json:"message"`
	SendAt    time.Time `json:"send_at"`
	Status    Status    `json:"status"`
	Retries   int       `json:"retries"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Target returns the recipient identifier, preferring user_id over recipient.
func (n Notification) Target() string {
	if strings.TrimSpace(n.UserID) != "" {
		return n.UserID
	}
	return n.Recipient
}

// Cancellable reports whether the backend accepts a cancel request for n.
func (n Notification) Cancellable() bool {
	return n.Status == StatusPending
}

// CreateNotification is the payload submitted to the backend.
type CreateNotification struct {
	UserID  string  `json:"user_id"`
	Channel Channel `json:"channel"`
	Message string  `json:"message"`
	SendAt  string  `json:"send_at"`
}
