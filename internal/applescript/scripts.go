package applescript

import (
	"fmt"
	"strings"

	"github.com/nhle/mxctl/internal/fields"
)

// sep is the field separator as an AppleScript string literal.
var sep = `"` + fields.Separator + `"`

// join builds an AppleScript expression that concatenates exprs with the
// field separator.
func join(exprs ...string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = "(" + e + ")"
	}
	return strings.Join(parts, " & "+sep+" & ")
}

// accountLoop opens a loop binding acct and acctName over one named account,
// or every enabled account when account is empty.
func accountLoop(account, body string) string {
	if account != "" {
		return fmt.Sprintf(`
        set acct to account %s
        set acctName to name of acct
%s`, Quote(account), body)
	}
	return fmt.Sprintf(`
        repeat with acct in (every account)
            if enabled of acct then
                set acctName to name of acct
%s
            end if
        end repeat`, body)
}

func tell(body string) string {
	return fmt.Sprintf(`
    tell application "Mail"
        set output to ""
%s
        return output
    end tell
    `, body)
}

func messageRef(account, mailbox string, id int) string {
	return fmt.Sprintf("first message of mailbox %s of account %s whose id is %d",
		Quote(mailbox), Quote(account), id)
}

// Filter narrows the messages a batch operation touches. Zero fields are
// ignored.
type Filter struct {
	Sender     string
	Subject    string
	UnreadOnly bool
	// Before and Since are long-form AppleScript date literals
	// ("January 02, 2006").
	Before string
	Since  string
}

func (f Filter) whose() string {
	var parts []string
	if f.Sender != "" {
		parts = append(parts, "sender contains "+Quote(f.Sender))
	}
	if f.Subject != "" {
		parts = append(parts, "subject contains "+Quote(f.Subject))
	}
	if f.UnreadOnly {
		parts = append(parts, "read status is false")
	}
	if f.Before != "" {
		parts = append(parts, "date received < date "+Quote(f.Before))
	}
	if f.Since != "" {
		parts = append(parts, "date received > date "+Quote(f.Since))
	}
	if len(parts) == 0 {
		return ""
	}
	return " whose " + strings.Join(parts, " and ")
}

// capped iterates the first limit messages of msgsExpr, binding m.
func capped(msgsExpr string, limit int, body string) string {
	return fmt.Sprintf(`
                set msgList to (%s)
                set cap to %d
                if (count of msgList) < cap then set cap to (count of msgList)
                repeat with j from 1 to cap
                    set m to item j of msgList
%s
                end repeat`, msgsExpr, limit, body)
}

func appendLine(exprs ...string) string {
	return "                    set output to output & " + join(exprs...) + " & linefeed"
}

func inboxLoop(account string, limit int, f Filter, line string) string {
	body := fmt.Sprintf(`
                try
                    set mbox to mailbox "INBOX" of acct
%s
                end try`, capped("every message of mbox"+f.whose(), limit, line))
	return tell(accountLoop(account, body))
}

// Accounts lists "name, email, enabled" for every account.
func Accounts() string {
	return tell(`
        repeat with acct in (every account)
            set addrs to email addresses of acct
            set addr to ""
            if (count of addrs) > 0 then set addr to item 1 of addrs
            set output to output & ` + join("name of acct", "addr", "enabled of acct") + ` & linefeed
        end repeat`)
}

// Mailboxes lists "name, unread" for the mailboxes of one account, or all
// enabled accounts.
func Mailboxes(account string) string {
	return tell(accountLoop(account, `
                repeat with mbox in (mailboxes of acct)
                    set output to output & `+join("name of mbox", "unread count of mbox")+` & linefeed
                end repeat`))
}

// InboxCounts lists "account, unread" for each INBOX.
func InboxCounts(account string) string {
	return tell(accountLoop(account, `
                try
                    set mbox to mailbox "INBOX" of acct
                    set output to output & `+join("acctName", "unread count of mbox")+` & linefeed
                end try`))
}

// UnreadCount returns the unread count of one mailbox.
func UnreadCount(account, mailbox string) string {
	return fmt.Sprintf(`
    tell application "Mail"
        return unread count of mailbox %s of account %s
    end tell
    `, Quote(mailbox), Quote(account))
}

// UnreadInbox lists unread INBOX messages as "account, id, subject, sender,
// date", plus "flagged" when withFlag is set.
func UnreadInbox(account string, limit int, withFlag bool) string {
	exprs := []string{"acctName", "id of m", "subject of m", "sender of m", "date received of m as string"}
	if withFlag {
		exprs = append(exprs, "flagged status of m")
	}
	return inboxLoop(account, limit, Filter{UnreadOnly: true}, appendLine(exprs...))
}

// ListMessages lists "id, subject, sender, date, read, flagged" for the
// newest messages of a mailbox.
func ListMessages(account, mailbox string, limit int, f Filter) string {
	return tell(fmt.Sprintf(`
        set acct to account %s
        set mbox to mailbox %s of acct
%s`, Quote(account), Quote(mailbox), capped("every message of mbox"+f.whose(), limit,
		appendLine("id of m", "subject of m", "sender of m", "date received of m as string",
			"read status of m", "flagged status of m"))))
}

// ReadMessage returns "subject, sender, date, to, read, flagged, body" for
// one message.
func ReadMessage(account, mailbox string, id int) string {
	return fmt.Sprintf(`
    tell application "Mail"
        set theMsg to %s
        set toList to ""
        repeat with r in (to recipients of theMsg)
            if toList is not "" then set toList to toList & ", "
            set toList to toList & (address of r)
        end repeat
        return %s
    end tell
    `, messageRef(account, mailbox, id), join(
		"subject of theMsg", "sender of theMsg", "date received of theMsg as string", "toList",
		"read status of theMsg", "flagged status of theMsg", "content of theMsg"))
}

// locatedLine is "id, subject, sender, date, mailbox, account".
var locatedLine = appendLine("id of m", "subject of m", "sender of m",
	"date received of m as string", "name of mbox", "acctName")

// Search lists messages matching f in every mailbox of the account(s) as
// located records.
func Search(account string, f Filter, limit int) string {
	return tell(accountLoop(account, fmt.Sprintf(`
                repeat with mbox in (mailboxes of acct)
                    try
%s
                    end try
                end repeat`, capped("every message of mbox"+f.whose(), limit, locatedLine))))
}

// Thread lists messages whose subject contains subject, across the
// account's mailboxes or every account when account is empty.
func Thread(account, subject string, limit int) string {
	return Search(account, Filter{Subject: subject}, limit)
}

// FlaggedMessages lists flagged messages as located records.
func FlaggedMessages(account string, limit int) string {
	return tell(accountLoop(account, fmt.Sprintf(`
                repeat with mbox in (mailboxes of acct)
                    try
%s
                    end try
                end repeat`, capped("every message of mbox whose flagged status is true", limit, locatedLine))))
}

// MessageSubject returns the subject of one message.
func MessageSubject(account, mailbox string, id int) string {
	return fmt.Sprintf(`
    tell application "Mail"
        return subject of (%s)
    end tell
    `, messageRef(account, mailbox, id))
}

// Headers returns the raw header block of one message.
func Headers(account, mailbox string, id int) string {
	return fmt.Sprintf(`
    tell application "Mail"
        return all headers of (%s)
    end tell
    `, messageRef(account, mailbox, id))
}

// SetProperty sets a boolean message property ("read status", "flagged
// status") and returns the subject.
func SetProperty(account, mailbox string, id int, property string, value bool) string {
	return fmt.Sprintf(`
    tell application "Mail"
        set theMsg to %s
        set %s of theMsg to %t
        return subject of theMsg
    end tell
    `, messageRef(account, mailbox, id), property, value)
}

// Move moves one message to dest in the same account and returns its
// subject.
func Move(account, mailbox string, id int, dest string) string {
	return fmt.Sprintf(`
    tell application "Mail"
        set theMsg to %s
        set msgSubject to subject of theMsg
        move theMsg to mailbox %s of account %s
        return msgSubject
    end tell
    `, messageRef(account, mailbox, id), Quote(dest), Quote(account))
}

// Delete moves one message to the trash and returns its subject.
func Delete(account, mailbox string, id int) string {
	return fmt.Sprintf(`
    tell application "Mail"
        set theMsg to %s
        set msgSubject to subject of theMsg
        delete theMsg
        return msgSubject
    end tell
    `, messageRef(account, mailbox, id))
}

// Rules lists "name, enabled" for every mail rule.
func Rules() string {
	return tell(`
        repeat with r in (every rule)
            set output to output & ` + join("name of r", "enabled of r") + ` & linefeed
        end repeat`)
}

// SetRuleEnabled enables or disables a rule and returns its name.
func SetRuleEnabled(name string, enabled bool) string {
	return fmt.Sprintf(`
    tell application "Mail"
        set r to rule %s
        set enabled of r to %t
        return name of r
    end tell
    `, Quote(name), enabled)
}

// Draft is an outgoing message saved to Drafts.
type Draft struct {
	Account string
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string
}

// SaveDraft creates the draft without sending it.
func SaveDraft(d Draft) string {
	var b strings.Builder
	fmt.Fprintf(&b, `
    tell application "Mail"
        set acct to account %s
        set newMsg to make new outgoing message with properties {subject:%s, content:%s, visible:false}
        tell newMsg
            set addrs to email addresses of acct
            if (count of addrs) > 0 then set sender to item 1 of addrs
`, Quote(d.Account), Quote(d.Subject), Quote(d.Body))
	for _, kind := range []struct {
		class string
		addrs []string
	}{{"to recipient", d.To}, {"cc recipient", d.Cc}, {"bcc recipient", d.Bcc}} {
		for _, addr := range kind.addrs {
			fmt.Fprintf(&b, "            make new %s at end of %ss with properties {address:%s}\n",
				kind.class, kind.class, Quote(addr))
		}
	}
	b.WriteString(`        end tell
        save newMsg
        return "OK"
    end tell
    `)
	return b.String()
}

// ComposeSource returns "subject, sender, date, body" of the message being
// replied to or forwarded.
func ComposeSource(account, mailbox string, id int) string {
	return fmt.Sprintf(`
    tell application "Mail"
        set theMsg to %s
        return %s
    end tell
    `, messageRef(account, mailbox, id), join(
		"subject of theMsg", "sender of theMsg", "date received of theMsg as string", "content of theMsg"))
}

// TaskSource returns "subject, sender, date" of one message.
func TaskSource(account, mailbox string, id int) string {
	return fmt.Sprintf(`
    tell application "Mail"
        set theMsg to %s
        return %s
    end tell
    `, messageRef(account, mailbox, id), join("subject of theMsg", "sender of theMsg", "date received of theMsg as string"))
}

// CreateMailbox creates a mailbox in the account and returns its name.
func CreateMailbox(account, name string) string {
	return fmt.Sprintf(`
    tell application "Mail"
        make new mailbox with properties {name:%s} at account %s
        return %s
    end tell
    `, Quote(name), Quote(account), Quote(name))
}

// DeleteMailbox removes a mailbox and everything in it, returning how many
// messages it held.
func DeleteMailbox(account, name string) string {
	return fmt.Sprintf(`
    tell application "Mail"
        set mbox to mailbox %s of account %s
        set n to count of messages of mbox
        delete mbox
        return n
    end tell
    `, Quote(name), Quote(account))
}

// trashNames are the trash mailbox names Mail.app uses across providers.
var trashNames = `{"Trash", "Deleted Messages", "Deleted Items", "Bin"}`

// TrashCount counts the messages in the account's trash, or every enabled
// account's trash when account is empty.
func TrashCount(account string) string {
	return tell(accountLoop(account, fmt.Sprintf(`
                repeat with mbox in (mailboxes of acct)
                    if %s contains (name of mbox as string) then
                        set output to output & (count of messages of mbox) & linefeed
                    end if
                end repeat`, trashNames)))
}

// EmptyTrash permanently erases the trash of the account(s), one count per
// trash mailbox emptied.
func EmptyTrash(account string) string {
	return tell(accountLoop(account, fmt.Sprintf(`
                repeat with mbox in (mailboxes of acct)
                    if %s contains (name of mbox as string) then
                        set n to count of messages of mbox
                        delete every message of mbox
                        set output to output & n & linefeed
                    end if
                end repeat`, trashNames)))
}

// CheckMail asks Mail.app to fetch new mail for one account or all of them.
func CheckMail(account string) string {
	target := ""
	if account != "" {
		target = " for account " + Quote(account)
	}
	return fmt.Sprintf(`
    tell application "Mail"
        check for new mail%s
        return "ok"
    end tell
    `, target)
}

// OpenMessage shows one message in a Mail.app viewer and returns its
// subject.
func OpenMessage(account, mailbox string, id int) string {
	return fmt.Sprintf(`
    tell application "Mail"
        set theMsg to %s
        open theMsg
        activate
        return subject of theMsg
    end tell
    `, messageRef(account, mailbox, id))
}

// SetJunk sets the junk status of one message, moves it to dest in the same
// account, and returns its subject.
func SetJunk(account, mailbox string, id int, junk bool, dest string) string {
	return fmt.Sprintf(`
    tell application "Mail"
        set theMsg to %s
        set msgSubject to subject of theMsg
        set junk mail status of theMsg to %t
        move theMsg to mailbox %s of account %s
        return msgSubject
    end tell
    `, messageRef(account, mailbox, id), junk, Quote(dest), Quote(account))
}

// BatchCount counts the messages a batch operation would touch.
func BatchCount(account, mailbox string, f Filter) string {
	return fmt.Sprintf(`
    tell application "Mail"
        return count of (every message of mailbox %s of account %s%s)
    end tell
    `, Quote(mailbox), Quote(account), f.whose())
}

// BatchAction is what a batch operation does to each message.
type BatchAction struct {
	verb string
}

var (
	ActionMarkRead = BatchAction{verb: "set read status of m to true"}
	ActionFlag     = BatchAction{verb: "set flagged status of m to true"}
	ActionDelete   = BatchAction{verb: "delete m"}
)

// ActionMoveTo moves each message to dest in the same account.
func ActionMoveTo(dest string) BatchAction {
	return BatchAction{verb: "move m to mailbox " + Quote(dest) + " of acct"}
}

// BatchApply applies action to up to limit messages matching f and returns
// the ids it touched, one per line.
func BatchApply(account, mailbox string, f Filter, action BatchAction, limit int) string {
	return tell(fmt.Sprintf(`
        set acct to account %s
        set mbox to mailbox %s of acct
%s`, Quote(account), Quote(mailbox), capped("every message of mbox"+f.whose(), limit, `
                    set output to output & (id of m) & linefeed
                    `+action.verb)))
}

func idList(ids []string) string {
	return "{" + strings.Join(ids, ", ") + "}"
}

// MoveByIDs moves the listed messages from one mailbox to another within an
// account and returns how many were found.
func MoveByIDs(account, from, to string, ids []string) string {
	return fmt.Sprintf(`
    tell application "Mail"
        set acct to account %s
        set moved to 0
        repeat with msgId in %s
            try
                set m to first message of mailbox %s of acct whose id is msgId
                move m to mailbox %s of acct
                set moved to moved + 1
            end try
        end repeat
        return moved
    end tell
    `, Quote(account), idList(ids), Quote(from), Quote(to))
}

// RestoreFromTrash moves the listed messages out of the trash back into a
// mailbox of the account.
func RestoreFromTrash(account, to string, ids []string) string {
	return fmt.Sprintf(`
    tell application "Mail"
        set acct to account %s
        set moved to 0
        repeat with msgId in %s
            try
                set m to first message of trash mailbox whose id is msgId
                move m to mailbox %s of acct
                set moved to moved + 1
            end try
        end repeat
        return moved
    end tell
    `, Quote(account), idList(ids), Quote(to))
}

// SetPropertyByIDs sets a boolean property ("read status", "flagged
// status") on the listed messages and returns how many were found.
func SetPropertyByIDs(account, mailbox string, ids []string, property string, value bool) string {
	return fmt.Sprintf(`
    tell application "Mail"
        set mbox to mailbox %s of account %s
        set changed to 0
        repeat with msgId in %s
            try
                set %s of (first message of mbox whose id is msgId) to %t
                set changed to changed + 1
            end try
        end repeat
        return changed
    end tell
    `, Quote(mailbox), Quote(account), idList(ids), property, value)
}

// InboxSenders lists the sender of each INBOX message received after since.
func InboxSenders(account, since string, limit int) string {
	return inboxLoop(account, limit, Filter{Since: since}, appendLine("sender of m"))
}

// InboxSenderReads lists "sender, read" for INBOX messages.
func InboxSenderReads(account string, limit int) string {
	return inboxLoop(account, limit, Filter{}, appendLine("sender of m", "read status of m"))
}

// MailboxStats lists "name, total, unread" for every mailbox of an account.
func MailboxStats(account string) string {
	return tell(fmt.Sprintf(`
        set acct to account %s
        repeat with mbox in (mailboxes of acct)
            set output to output & %s & linefeed
        end repeat`, Quote(account), join("name of mbox", "count of messages of mbox", "unread count of mbox")))
}

// MailboxTotals returns "total, unread" for one mailbox.
func MailboxTotals(account, mailbox string) string {
	return fmt.Sprintf(`
    tell application "Mail"
        set mbox to mailbox %s of account %s
        return %s
    end tell
    `, Quote(mailbox), Quote(account), join("count of messages of mbox", "unread count of mbox"))
}

// Attachments returns the subject on the first line and one attachment name
// per following line.
func Attachments(account, mailbox string, id int) string {
	return fmt.Sprintf(`
    tell application "Mail"
        set theMsg to %s
        set output to (subject of theMsg) & linefeed
        repeat with att in (mail attachments of theMsg)
            set output to output & (name of att) & linefeed
        end repeat
        return output
    end tell
    `, messageRef(account, mailbox, id))
}

// SaveAttachment writes the named attachment to path.
func SaveAttachment(account, mailbox string, id int, name, path string) string {
	return fmt.Sprintf(`
    tell application "Mail"
        set theMsg to %s
        repeat with att in (mail attachments of theMsg)
            if name of att is %s then
                save att in POSIX file %s
                return %s
            end if
        end repeat
        error "attachment not found: " & %s
    end tell
    `, messageRef(account, mailbox, id), Quote(name), Quote(path), Quote(path), Quote(name))
}

// AttachmentReview lists INBOX messages since a date that carry attachments
// as "id, subject, sender, date, count".
func AttachmentReview(account, since string, limit int) string {
	return inboxLoop(account, limit, Filter{Since: since}, `
                    set attCount to count of (mail attachments of m)
                    if attCount > 0 then
`+appendLine("id of m", "subject of m", "sender of m", "date received of m as string", "attCount")+`
                    end if`)
}

// Unreplied lists INBOX messages since a date that were never replied to,
// as "id, subject, sender, date".
func Unreplied(account, since string, limit int) string {
	return inboxLoop(account, limit, Filter{Since: since}, `
                    if was replied to of m is false then
`+appendLine("id of m", "subject of m", "sender of m", "date received of m as string")+`
                    end if`)
}

// ExportMessages lists "account, mailbox, id, subject, sender, date, read,
// flagged" for the newest messages of a mailbox.
func ExportMessages(account, mailbox string, limit int) string {
	return tell(fmt.Sprintf(`
        set acct to account %s
        set acctName to name of acct
        set mbox to mailbox %s of acct
%s`, Quote(account), Quote(mailbox), capped("every message of mbox", limit,
		appendLine("acctName", "name of mbox", "id of m", "subject of m", "sender of m",
			"date received of m as string", "read status of m", "flagged status of m"))))
}
