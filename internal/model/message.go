package model

import "github.com/nhle/mxctl/internal/fields"

// Category is the triage bucket a message is filed under.
type Category string

const (
	CategoryFlagged      Category = "flagged"
	CategoryPerson       Category = "person"
	CategoryNotification Category = "notification"
)

// Message is one message snapshot decoded from an automation record. Which
// fields are populated depends on the record kind that produced it.
type Message struct {
	Account string           `json:"account,omitempty"`
	Mailbox string           `json:"mailbox,omitempty"`
	ID      fields.MessageID `json:"id"`
	Subject string           `json:"subject"`
	Sender  string           `json:"sender"`

	// Date is the long-form string Mail.app reported; it is converted to
	// ISO-8601 only when rendered as JSON.
	Date string `json:"date"`

	To      string `json:"to,omitempty"`
	Read    bool   `json:"read"`
	Flagged bool   `json:"flagged"`
	Body    string `json:"body,omitempty"`

	// AttachmentCount is set by the weekly-review attachment query.
	AttachmentCount int `json:"attachment_count,omitempty"`
}

// Account is a configured Mail.app account.
type Account struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Enabled bool   `json:"enabled"`
}

// Mailbox is a mailbox with its message counts. Total is only known to the
// stats queries.
type Mailbox struct {
	Account string `json:"account,omitempty"`
	Name    string `json:"name"`
	Total   int    `json:"total,omitempty"`
	Unread  int    `json:"unread"`
}

// Rule is a Mail.app filtering rule.
type Rule struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Attachment is a named attachment on a message.
type Attachment struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// SenderCount is a sender with the number of messages seen from it.
type SenderCount struct {
	Sender string `json:"sender"`
	Count  int    `json:"count"`
}
