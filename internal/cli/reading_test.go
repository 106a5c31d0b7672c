package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboxTotalsAcrossAccounts(t *testing.T) {
	h := newHarness(t, lines(rec("iCloud", "3"), rec("Work", "2"), rec("broken")))
	out := h.mustRun("inbox")
	assert.Contains(t, out, "iCloud: 3 unread")
	assert.Contains(t, out, "Work: 2 unread")
	assert.Contains(t, out, "Total: 5 unread")
	assert.Contains(t, h.runner.LastScript(), "every account")
}

func TestListMessages(t *testing.T) {
	h := newHarness(t, lines(
		rec("101", "Hello", "Alice <alice@example.com>", longDate, "false", "false"),
		rec("102", "Invoice", "billing@shop.com", longDate, "true", "true"),
	)).withAccount("iCloud")

	out := h.mustRun("list", "--limit", "500")
	assert.Contains(t, out, "INBOX [iCloud] (2 messages):")
	assert.Contains(t, out, "* [101] Hello - Alice")
	assert.Contains(t, out, "! [102] Invoice - billing@shop.com")
	assert.Contains(t, h.runner.LastScript(), "set cap to 100")
}

func TestListRejectsBadDate(t *testing.T) {
	h := newHarness(t).withAccount("iCloud")
	code := h.run("list", "--since", "14/02/2026")
	assert.Equal(t, 1, code)
	assert.Contains(t, h.errOut.String(), "invalid date format")
	assert.Empty(t, h.runner.Scripts)
}

func TestListSinceBuildsDateFilter(t *testing.T) {
	h := newHarness(t, "").withAccount("iCloud")
	out := h.mustRun("list", "--since", "2026-02-01", "--unread")
	assert.Contains(t, out, "No messages found in INBOX [iCloud].")
	script := h.runner.LastScript()
	assert.Contains(t, script, `date received > date "February 01, 2026"`)
	assert.Contains(t, script, "read status is false")
}

func TestReadMessage(t *testing.T) {
	raw := "Hello" + "\x1f" + "Alice <alice@example.com>" + "\x1f" + longDate + "\x1f" +
		"me@icloud.com" + "\x1f" + "false" + "\x1f" + "true" + "\x1f" + "Line one\nLine two\n"
	h := newHarness(t, raw).withAccount("iCloud")

	out := h.mustRun("read", "42")
	assert.Contains(t, out, "Subject: Hello")
	assert.Contains(t, out, "From: Alice <alice@example.com>")
	assert.Contains(t, out, "Flags: unread, flagged")
	assert.Contains(t, out, "Line one\nLine two")
	assert.Contains(t, h.runner.LastScript(), "whose id is 42")
}

func TestReadMessageJSON(t *testing.T) {
	raw := "Hello\x1fbob@example.com\x1f" + longDate + "\x1f\x1ftrue\x1ffalse\x1fBody"
	h := newHarness(t, raw).withAccount("iCloud")
	payload := h.decodeJSON("read", "42")
	assert.Equal(t, float64(42), payload["id"])
	assert.Equal(t, "2026-01-14T14:30:00", payload["date"])
	assert.Equal(t, "Body", payload["body"])
}

func TestReadMissingMessage(t *testing.T) {
	h := newHarness(t, "").withAccount("iCloud")
	assert.Equal(t, 1, h.run("read", "42"))
	assert.Contains(t, h.errOut.String(), "Message 42 not found")
}

func TestSearchGroupsByMailbox(t *testing.T) {
	h := newHarness(t, lines(
		rec("1", "Trip plans", "alice@example.com", longDate, "INBOX", "iCloud"),
		rec("2", "Trip receipt", "travel@agency.com", longDate, "Archive", "iCloud"),
	))
	out := h.mustRun("search", "Trip")
	assert.Contains(t, out, "Search results for 'Trip' (2):")
	assert.Contains(t, out, "INBOX [iCloud]:")
	assert.Contains(t, out, "Archive [iCloud]:")
	assert.Contains(t, h.runner.LastScript(), `subject contains "Trip"`)
}

func TestSearchBySender(t *testing.T) {
	h := newHarness(t, "")
	out := h.mustRun("search", "alice", "--sender")
	assert.Contains(t, out, "No messages found matching 'alice'.")
	assert.Contains(t, h.runner.LastScript(), `sender contains "alice"`)
}

func TestThreadNormalizesSubject(t *testing.T) {
	h := newHarness(t,
		"Re: Fwd: Project plan",
		lines(rec("7", "Project plan", "alice@example.com", longDate, "INBOX", "iCloud")),
	).withAccount("iCloud")

	out := h.mustRun("thread", "7")
	assert.Contains(t, out, "Thread: Project plan (1 message)")
	require.Len(t, h.runner.Scripts, 2)
	assert.Contains(t, h.runner.Scripts[1], `subject contains "Project plan"`)
	assert.Contains(t, h.runner.Scripts[1], `account "iCloud"`)
}

func TestThreadAllAccounts(t *testing.T) {
	h := newHarness(t, "Project plan", "").withAccount("iCloud")
	out := h.mustRun("thread", "7", "--all-accounts")
	assert.Contains(t, out, "No thread found for 'Project plan'.")
	assert.Contains(t, h.runner.LastScript(), "every account")
}

const sampleHeaders = "From: sender@example.com\n" +
	"To: recipient@example.com\n" +
	"Subject: Test\n" +
	"Received: from a by b\n" +
	"Received: from c by d\n" +
	"Authentication-Results: mx.example.com; spf=pass; dkim=pass; dmarc=fail\n" +
	"Reply-To: replies@example.com\n" +
	"List-Unsubscribe: <mailto:unsub@example.com>, <https://example.com/unsub?token=abc123>\n"

func TestHeadersSummary(t *testing.T) {
	h := newHarness(t, sampleHeaders).withAccount("iCloud")
	out := h.mustRun("headers", "9")
	assert.Contains(t, out, "Reply-To: replies@example.com")
	assert.Contains(t, out, "SPF: PASS")
	assert.Contains(t, out, "DMARC: FAIL")
	assert.Contains(t, out, "Hops: 2")
	assert.Contains(t, out, "Unsubscribe: <mailto:unsub@example.com>")
}

func TestHeadersRaw(t *testing.T) {
	h := newHarness(t, sampleHeaders).withAccount("iCloud")
	out := h.mustRun("headers", "9", "--raw")
	assert.Contains(t, out, "Authentication-Results: mx.example.com;")
}

func TestHeadersJSON(t *testing.T) {
	h := newHarness(t, "From: a@x.com\nSubject: Direct\n").withAccount("iCloud")
	payload := h.decodeJSON("headers", "9")
	assert.Equal(t, float64(0), payload["hops"])
	assert.Equal(t, "a@x.com", payload["from"])
}

func TestHeadersToleratesJunkLines(t *testing.T) {
	h := newHarness(t, "From: a@b.com\nthis line has no colon\nSubject: hi\n").withAccount("iCloud")
	out := h.mustRun("headers", "9")
	assert.Contains(t, out, "From: a@b.com")
	assert.Contains(t, out, "Subject: hi")
}

func TestThreadSortsUnparsedDatesLast(t *testing.T) {
	h := newHarness(t,
		"Plan",
		lines(
			rec("3", "Plan", "c@x.com", "sometime soon", "INBOX", "iCloud"),
			rec("2", "Plan", "b@x.com", "Thursday, January 15, 2026 at 9:00:00 AM", "INBOX", "iCloud"),
			rec("1", "Plan", "a@x.com", "January 2, 2026 at 11:00:00 PM", "INBOX", "iCloud"),
		),
	).withAccount("iCloud")

	out := h.mustRun("thread", "1")
	first, second, third := strings.Index(out, "[1]"), strings.Index(out, "[2]"), strings.Index(out, "[3]")
	require.True(t, first >= 0 && second >= 0 && third >= 0, out)
	assert.Less(t, first, second)
	assert.Less(t, second, third)
}

func TestContextShowsMessageAndConversation(t *testing.T) {
	raw := "Re: Budget\x1fAlice <alice@example.com>\x1f" + longDate + "\x1fme@icloud.com\x1ftrue\x1ffalse\x1fLooks fine to me"
	h := newHarness(t, raw, lines(
		rec("42", "Re: Budget", "alice@example.com", longDate, "INBOX", "iCloud"),
		rec("40", "Budget", "bob@example.com", "Monday, January 12, 2026 at 9:00:00 AM", "Sent", "iCloud"),
	)).withAccount("iCloud")

	out := h.mustRun("context", "42")
	assert.Contains(t, out, "Subject: Re: Budget")
	assert.Contains(t, out, "Looks fine to me")
	assert.Contains(t, out, "Conversation (1 other message):")
	assert.Contains(t, out, "[40] Budget")
	assert.NotContains(t, out, "[42]")
	assert.Contains(t, h.runner.LastScript(), `subject contains "Budget"`)
}

func TestContextWithoutSubjectSkipsThread(t *testing.T) {
	raw := "\x1fbob@example.com\x1f" + longDate + "\x1f\x1ftrue\x1ffalse\x1fping"
	h := newHarness(t, raw).withAccount("iCloud")
	payload := h.decodeJSON("context", "8")
	assert.Equal(t, []any{}, payload["thread"])
	assert.Len(t, h.runner.Scripts, 1)
}

func TestContextMissingMessage(t *testing.T) {
	h := newHarness(t, "").withAccount("iCloud")
	assert.Equal(t, 1, h.run("context", "8"))
	assert.Contains(t, h.errOut.String(), "Message 8 not found in INBOX [iCloud]")
}
