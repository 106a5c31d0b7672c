// Package records turns raw automation output into typed records and groups
// them for presentation.
package records

import (
	"sort"
	"strings"

	"github.com/nhle/mxctl/internal/classify"
	"github.com/nhle/mxctl/internal/fields"
	"github.com/nhle/mxctl/internal/mailaddr"
	"github.com/nhle/mxctl/internal/model"
)

// Result holds the records built from one block of output and the number of
// lines skipped for carrying too few fields.
type Result[T any] struct {
	Records   []T
	Malformed int
}

// Assemble decodes raw one line at a time. Blank lines are ignored, lines
// with fewer than minFields fields are counted and skipped, and build is
// called for the rest. It never fails.
func Assemble[T any](raw string, minFields int, build func(f []string) T) Result[T] {
	res := Result[T]{Records: []T{}}
	for _, line := range Lines(raw) {
		f := fields.Decode(line)
		if !fields.HasMinFields(f, minFields) {
			res.Malformed++
			continue
		}
		res.Records = append(res.Records, build(f))
	}
	return res
}

// Lines splits raw output into its non-blank lines.
func Lines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Single decodes output that carries exactly one record whose last field may
// span several lines (message bodies). ok is false when the record is short.
func Single(raw string, minFields int) (f []string, ok bool) {
	raw = strings.TrimRight(raw, "\r\n")
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	f = fields.Decode(raw)
	if !fields.HasMinFields(f, minFields) {
		return nil, false
	}
	return f, true
}

// Accounts parses "name, email, enabled" records.
func Accounts(raw string) Result[model.Account] {
	return Assemble(raw, 3, func(f []string) model.Account {
		return model.Account{Name: f[0], Email: f[1], Enabled: fields.ParseBool(f[2])}
	})
}

// Mailboxes parses "name, unread" records.
func Mailboxes(raw string) Result[model.Mailbox] {
	return Assemble(raw, 2, func(f []string) model.Mailbox {
		return model.Mailbox{Name: f[0], Unread: fields.ParseInt(f[1])}
	})
}

// InboxCounts parses "account, unread" records.
func InboxCounts(raw string) Result[model.Mailbox] {
	return Assemble(raw, 2, func(f []string) model.Mailbox {
		return model.Mailbox{Account: f[0], Name: "INBOX", Unread: fields.ParseInt(f[1])}
	})
}

// MailboxStats parses "name, total, unread" records.
func MailboxStats(raw string) Result[model.Mailbox] {
	return Assemble(raw, 3, func(f []string) model.Mailbox {
		return model.Mailbox{Name: f[0], Total: fields.ParseInt(f[1]), Unread: fields.ParseInt(f[2])}
	})
}

// Totals parses a single "total, unread" record.
func Totals(raw string) (total, unread int, ok bool) {
	f, ok := Single(raw, 2)
	if !ok {
		return 0, 0, false
	}
	return fields.ParseInt(f[0]), fields.ParseInt(f[1]), true
}

// Summaries parses "account, id, subject, sender, date" records.
func Summaries(raw string) Result[model.Message] {
	return Assemble(raw, 5, func(f []string) model.Message {
		return model.Message{Account: f[0], ID: fields.ParseID(f[1]), Subject: f[2], Sender: f[3], Date: f[4]}
	})
}

// Triage parses summary records with a trailing flagged field. All six
// fields are required.
func Triage(raw string) Result[model.Message] {
	return Assemble(raw, 6, func(f []string) model.Message {
		return model.Message{
			Account: f[0], ID: fields.ParseID(f[1]), Subject: f[2], Sender: f[3], Date: f[4],
			Flagged: fields.ParseBool(f[5]),
		}
	})
}

// Listed parses "id, subject, sender, date, read, flagged" records.
func Listed(raw string) Result[model.Message] {
	return Assemble(raw, 6, func(f []string) model.Message {
		return model.Message{
			ID: fields.ParseID(f[0]), Subject: f[1], Sender: f[2], Date: f[3],
			Read: fields.ParseBool(f[4]), Flagged: fields.ParseBool(f[5]),
		}
	})
}

// Located parses "id, subject, sender, date, mailbox, account" records.
func Located(raw string) Result[model.Message] {
	return Assemble(raw, 6, func(f []string) model.Message {
		return model.Message{
			ID: fields.ParseID(f[0]), Subject: f[1], Sender: f[2], Date: f[3],
			Mailbox: f[4], Account: f[5],
		}
	})
}

// Unreplied parses "id, subject, sender, date" records.
func Unreplied(raw string) Result[model.Message] {
	return Assemble(raw, 4, func(f []string) model.Message {
		return model.Message{ID: fields.ParseID(f[0]), Subject: f[1], Sender: f[2], Date: f[3]}
	})
}

// AttachmentReview parses "id, subject, sender, date, count" records.
func AttachmentReview(raw string) Result[model.Message] {
	return Assemble(raw, 5, func(f []string) model.Message {
		return model.Message{
			ID: fields.ParseID(f[0]), Subject: f[1], Sender: f[2], Date: f[3],
			AttachmentCount: fields.ParseInt(f[4]),
		}
	})
}

// SenderReads parses "sender, read" records.
func SenderReads(raw string) Result[model.Message] {
	return Assemble(raw, 2, func(f []string) model.Message {
		return model.Message{Sender: f[0], Read: fields.ParseBool(f[1])}
	})
}

// Archived parses "account, mailbox, id, subject, sender, date, read,
// flagged" records.
func Archived(raw string) Result[model.Message] {
	return Assemble(raw, 8, func(f []string) model.Message {
		return model.Message{
			Account: f[0], Mailbox: f[1], ID: fields.ParseID(f[2]), Subject: f[3], Sender: f[4], Date: f[5],
			Read: fields.ParseBool(f[6]), Flagged: fields.ParseBool(f[7]),
		}
	})
}

// Rules parses "name, enabled" records.
func Rules(raw string) Result[model.Rule] {
	return Assemble(raw, 2, func(f []string) model.Rule {
		return model.Rule{Name: f[0], Enabled: fields.ParseBool(f[1])}
	})
}

// Senders parses one sender per line.
func Senders(raw string) []string {
	res := Assemble(raw, 1, func(f []string) string { return strings.TrimSpace(f[0]) })
	return res.Records
}

// Detail parses the single "subject, sender, date, to, read, flagged, body"
// record of a full message read. The body may span lines.
func Detail(raw string) (model.Message, bool) {
	f, ok := Single(raw, 7)
	if !ok {
		return model.Message{}, false
	}
	return model.Message{
		Subject: f[0], Sender: f[1], Date: f[2], To: f[3],
		Read: fields.ParseBool(f[4]), Flagged: fields.ParseBool(f[5]),
		Body: strings.Join(f[6:], fields.Separator),
	}, true
}

// ComposeSource parses the "subject, sender, date, body" record used to
// build replies and forwards.
func ComposeSource(raw string) (model.Message, bool) {
	f, ok := Single(raw, 4)
	if !ok {
		return model.Message{}, false
	}
	return model.Message{Subject: f[0], Sender: f[1], Date: f[2], Body: strings.Join(f[3:], fields.Separator)}, true
}

// TaskSource parses the "subject, sender, date" record sent to Todoist.
func TaskSource(raw string) (model.Message, bool) {
	f, ok := Single(raw, 3)
	if !ok {
		return model.Message{}, false
	}
	return model.Message{Subject: f[0], Sender: f[1], Date: strings.TrimSpace(f[2])}, true
}

// AttachmentList parses the attachment listing: the subject on the first
// line, then one attachment name per line.
func AttachmentList(raw string) (subject string, atts []model.Attachment) {
	lines := Lines(raw)
	atts = []model.Attachment{}
	if len(lines) == 0 {
		return "", atts
	}
	subject = strings.TrimSpace(lines[0])
	for i, name := range lines[1:] {
		atts = append(atts, model.Attachment{Index: i + 1, Name: strings.TrimSpace(name)})
	}
	return subject, atts
}

// DomainGroup is the set of messages sharing a sender domain.
type DomainGroup struct {
	Domain   string          `json:"domain"`
	Messages []model.Message `json:"messages"`
}

// GroupByDomain groups messages by the domain of their sender address,
// largest group first and first-seen order on ties. Messages whose sender
// has no address are skipped.
func GroupByDomain(messages []model.Message) []DomainGroup {
	index := map[string]int{}
	groups := []DomainGroup{}
	for _, msg := range messages {
		domain := mailaddr.DomainOf(msg.Sender)
		if domain == "" {
			continue
		}
		i, ok := index[domain]
		if !ok {
			i = len(groups)
			index[domain] = i
			groups = append(groups, DomainGroup{Domain: domain})
		}
		groups[i].Messages = append(groups[i].Messages, msg)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Messages) > len(groups[j].Messages)
	})
	return groups
}

// MailboxGroup is the set of messages located in one account mailbox.
type MailboxGroup struct {
	Account  string          `json:"account"`
	Mailbox  string          `json:"mailbox"`
	Messages []model.Message `json:"messages"`
}

// GroupByMailbox groups messages by account and mailbox in first-seen
// order.
func GroupByMailbox(messages []model.Message) []MailboxGroup {
	index := map[[2]string]int{}
	groups := []MailboxGroup{}
	for _, msg := range messages {
		key := [2]string{msg.Account, msg.Mailbox}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, MailboxGroup{Account: msg.Account, Mailbox: msg.Mailbox})
		}
		groups[i].Messages = append(groups[i].Messages, msg)
	}
	return groups
}

// TopSenders ranks the senders listed in raw by message count and keeps the
// first limit.
func TopSenders(raw string, limit int) []model.SenderCount {
	ranked := classify.RankSenders(classify.CountSenders(Senders(raw)), limit)
	if ranked == nil {
		return []model.SenderCount{}
	}
	return ranked
}
