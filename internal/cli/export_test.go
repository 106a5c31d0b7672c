package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mxctl/internal/credential"
	"github.com/nhle/mxctl/internal/model"
	"github.com/nhle/mxctl/internal/todoist"
)

func TestExportThenShow(t *testing.T) {
	db := filepath.Join(t.TempDir(), "mail.db")
	h := newHarness(t, lines(
		rec("iCloud", "INBOX", "101", "Invoice", "Billing <billing@shop.com>", longDate, "true", "false"),
		rec("iCloud", "INBOX", "102", "Hello", "alice@example.com", longDate, "false", "true"),
	)).withAccount("iCloud")

	out := h.mustRun("export", "--db", db)
	assert.Equal(t, "Exported 2 messages from INBOX [iCloud] to "+db+"\n", out)
	assert.Contains(t, h.runner.LastScript(), `mailbox "INBOX" of acct`)

	out = h.mustRun("export", "--db", db, "--show")
	assert.Contains(t, out, "(1 export):")
	assert.Contains(t, out, "[101] Invoice - billing@shop.com")
	assert.Contains(t, out, "[102] Hello - alice@example.com")
	assert.Contains(t, out, "2026-01-14T14:30:00")

	out = h.mustRun("export", "--db", db, "--show", "--from", "shop.com")
	assert.Contains(t, out, "[101]")
	assert.NotContains(t, out, "[102]")
	assert.Len(t, h.runner.Scripts, 1)
}

func TestExportShowMissingArchive(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, 1, h.run("export", "--db", filepath.Join(t.TempDir(), "none.db"), "--show"))
	assert.Contains(t, h.errOut.String(), "not found")
}

func TestExportRequiresDB(t *testing.T) {
	h := newHarness(t).withAccount("iCloud")
	assert.Equal(t, 1, h.run("export"))
	assert.Contains(t, h.errOut.String(), "--db is required")
}

func TestAttachments(t *testing.T) {
	h := newHarness(t, "Photos\nbeach.jpg\nsunset.jpg\n").withAccount("iCloud")
	out := h.mustRun("attachments", "8")
	assert.Contains(t, out, "Attachments on 'Photos' (2):")
	assert.Contains(t, out, "  1. beach.jpg")
	assert.Contains(t, out, "  2. sunset.jpg")
}

func TestAttachmentsNone(t *testing.T) {
	h := newHarness(t, "Plain note\n").withAccount("iCloud")
	assert.Equal(t, "No attachments on: Plain note\n", h.mustRun("attachments", "8"))
}

func TestSaveAttachmentByIndex(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "sunset.jpg")
	h := newHarness(t, "Photos\nbeach.jpg\nsunset.jpg\n", target).withAccount("iCloud")
	require.NoError(t, os.WriteFile(target, []byte("jpg"), 0o600))

	out := h.mustRun("save-attachment", "8", "2", "-d", dir)
	assert.Equal(t, "Saved attachment: sunset.jpg -> "+target+"\n", out)
	assert.Contains(t, h.runner.LastScript(), `POSIX file "`+target+`"`)
}

func TestSaveAttachmentNotWritten(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, "Photos\nbeach.jpg\n", "").withAccount("iCloud")
	assert.Equal(t, 1, h.run("save-attachment", "8", "beach.jpg", "--dir", dir))
	assert.Contains(t, h.errOut.String(), "Attachment was not written to "+filepath.Join(dir, "beach.jpg"))
}

func TestSaveAttachmentUnknownName(t *testing.T) {
	h := newHarness(t, "Photos\nbeach.jpg\n").withAccount("iCloud")
	assert.Equal(t, 1, h.run("save-attachment", "8", "other.png"))
	assert.Contains(t, h.errOut.String(), "Available: beach.jpg")
	assert.Len(t, h.runner.Scripts, 1)
}

func TestPickAttachment(t *testing.T) {
	atts := []model.Attachment{{Index: 1, Name: "a.pdf"}, {Index: 2, Name: "3"}}
	got, ok := pickAttachment(atts, "2")
	require.True(t, ok)
	assert.Equal(t, "3", got.Name)

	got, ok = pickAttachment(atts, "a.pdf")
	require.True(t, ok)
	assert.Equal(t, 1, got.Index)

	_, ok = pickAttachment(atts, "9")
	assert.False(t, ok)
}

func TestToTodoistNeedsToken(t *testing.T) {
	h := newHarness(t).withAccount("iCloud")
	assert.Equal(t, 1, h.run("to-todoist", "5"))
	assert.Contains(t, h.errOut.String(), "Todoist API token not configured")
	assert.Empty(t, h.runner.Scripts)
}

func TestToTodoistCreatesTask(t *testing.T) {
	h := newHarness(t, "Contract review\x1fLegal <legal@firm.com>\x1f"+longDate).withAccount("iCloud")
	require.NoError(t, h.secrets.Set(credential.TodoistTokenKey, "tok"))

	out := h.mustRun("to-todoist", "5", "--priority", "4", "--due", "tomorrow")
	assert.Contains(t, out, "Created Todoist task: Email: Contract review")
	assert.Contains(t, out, "https://todoist.com/showTask?id=42")

	assert.Equal(t, "tok", h.todoist.token)
	require.Len(t, h.todoist.reqs, 1)
	req := h.todoist.reqs[0]
	assert.Equal(t, "Email: Contract review", req.Content)
	assert.Equal(t, 4, req.Priority)
	assert.Equal(t, "tomorrow", req.DueString)
	assert.Contains(t, req.Description, "From: Legal")
	assert.Contains(t, req.Description, "Account: iCloud")
}

func TestToTodoistPrefersConfigToken(t *testing.T) {
	h := newHarness(t, "Hi\x1fa@x.com\x1f"+longDate)
	require.NoError(t, model.SaveConfig(h.app.Paths, &model.AppConfig{
		Mail:            model.MailConfig{DefaultAccount: "iCloud"},
		TodoistAPIToken: "from-config",
	}))
	require.NoError(t, h.secrets.Set(credential.TodoistTokenKey, "from-keyring"))
	h.mustRun("to-todoist", "5")
	assert.Equal(t, "from-config", h.todoist.token)
}

func TestToTodoistAuthError(t *testing.T) {
	h := newHarness(t, "Hi\x1fa@x.com\x1f"+longDate).withAccount("iCloud")
	require.NoError(t, h.secrets.Set(credential.TodoistTokenKey, "bad"))
	h.todoist.err = &todoist.AuthError{Message: "401"}

	assert.Equal(t, 1, h.run("to-todoist", "5"))
	assert.Contains(t, h.errOut.String(), "Todoist rejected the API token")
}

func TestToTodoistRejectsPriority(t *testing.T) {
	h := newHarness(t).withAccount("iCloud")
	assert.Equal(t, 1, h.run("to-todoist", "5", "--priority", "7"))
	assert.Contains(t, h.errOut.String(), "--priority must be between 1 and 4")
}
