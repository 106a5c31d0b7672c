package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mxctl/internal/credential"
	"github.com/nhle/mxctl/internal/model"
)

// brokenStore is a keyring that refuses writes.
type brokenStore struct{ credential.Memory }

func (brokenStore) Set(string, string) error { return errors.New("keychain locked") }

func savedAccount(t *testing.T, h *harness) string {
	t.Helper()
	cfg, err := model.LoadConfig(h.app.Paths)
	require.NoError(t, err)
	return cfg.Mail.DefaultAccount
}

func TestInitWithNoAccountsIsFatal(t *testing.T) {
	h := newHarness(t, "")
	assert.Equal(t, 1, h.run("init"))
	assert.Contains(t, h.errOut.String(), "No mail accounts found")
}

func TestInitAutoSelectsSingleEnabledAccount(t *testing.T) {
	h := newHarness(t, lines(
		rec("iCloud", "me@icloud.com", "true"),
		rec("Old", "old@example.com", "false"),
	))
	out := h.mustRun("init")
	assert.Contains(t, out, "Auto-selected account: iCloud")
	assert.Contains(t, out, "Default account: iCloud")
	assert.Contains(t, out, "Configuration saved to "+h.app.Paths.Config())
	assert.Equal(t, "iCloud", savedAccount(t, h))
	assert.Equal(t, []string{"secret"}, h.prompter.asked)
}

func TestInitPromptsWhenSeveralAccountsEnabled(t *testing.T) {
	h := newHarness(t, lines(
		rec("iCloud", "me@icloud.com", "true"),
		rec("Work", "me@work.com", "true"),
	))
	h.prompter.choice = "Work"
	h.prompter.secret = "tok-123"

	out := h.mustRun("init")
	assert.NotContains(t, out, "Auto-selected")
	assert.Len(t, h.prompter.offered, 2)
	assert.Equal(t, "Work", savedAccount(t, h))

	token, err := h.secrets.Get(credential.TodoistTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
}

func TestInitNoInputPicksFirstAccount(t *testing.T) {
	h := newHarness(t, lines(
		rec("iCloud", "me@icloud.com", "true"),
		rec("Work", "me@work.com", "true"),
	))
	payload := h.decodeJSON("init", "--no-input")
	assert.Equal(t, "configured", payload["status"])
	assert.Equal(t, "iCloud", payload["default_account"])
	assert.Equal(t, false, payload["todoist_configured"])
	assert.Empty(t, h.prompter.asked)
}

func TestInitAccountFlagMustExist(t *testing.T) {
	h := newHarness(t, lines(rec("iCloud", "me@icloud.com", "true")))
	assert.Equal(t, 1, h.run("init", "-a", "Gmail", "--no-input"))
	assert.Contains(t, h.errOut.String(), `Account "Gmail" not found in Mail.app`)
}

func TestInitKeepsExistingConfigWhenDeclined(t *testing.T) {
	h := newHarness(t).withAccount("iCloud")
	h.prompter.confirm = false

	out := h.mustRun("init")
	assert.Contains(t, out, "Keeping existing configuration.")
	assert.Empty(t, h.runner.Scripts)
	assert.Equal(t, "iCloud", savedAccount(t, h))
}

func TestInitFallsBackToConfigWhenKeyringFails(t *testing.T) {
	h := newHarness(t, lines(rec("iCloud", "me@icloud.com", "true")))
	h.app.Secrets = brokenStore{credential.Memory{}}
	h.prompter.secret = "tok-456"

	out := h.mustRun("init")
	assert.Contains(t, out, "Keyring unavailable")
	cfg, err := model.LoadConfig(h.app.Paths)
	require.NoError(t, err)
	assert.Equal(t, "tok-456", cfg.TodoistAPIToken)
}

func TestInitResetTodoist(t *testing.T) {
	h := newHarness(t, lines(rec("iCloud", "me@icloud.com", "true")))
	require.NoError(t, h.secrets.Set(credential.TodoistTokenKey, "old"))

	out := h.mustRun("init", "--reset-todoist", "--no-input")
	assert.Contains(t, out, "Removed stored Todoist token")
	_, err := h.secrets.Get(credential.TodoistTokenKey)
	assert.ErrorIs(t, err, credential.ErrNotFound)
}

func TestAccounts(t *testing.T) {
	h := newHarness(t, lines(
		rec("iCloud", "me@icloud.com", "true"),
		rec("Old", "", "false"),
	))
	out := h.mustRun("accounts")
	assert.Contains(t, out, "Mail accounts (2):")
	assert.Contains(t, out, "  iCloud <me@icloud.com>")
	assert.Contains(t, out, "  Old (disabled)")
}

func TestAccountsEmpty(t *testing.T) {
	h := newHarness(t, "")
	assert.Equal(t, "No mail accounts found.\n", h.mustRun("accounts"))
}

func TestMailboxes(t *testing.T) {
	h := newHarness(t, lines(rec("INBOX", "3"), rec("Archive", "0"))).withAccount("iCloud")
	out := h.mustRun("mailboxes")
	assert.Contains(t, out, "Mailboxes [iCloud]:")
	assert.Contains(t, out, "  INBOX (3 unread)")
	assert.Contains(t, out, "  Archive\n")
	assert.Contains(t, h.runner.LastScript(), `account "iCloud"`)
}

func TestCheckReportsInboxCounts(t *testing.T) {
	h := newHarness(t, "ok", lines(rec("iCloud", "3"), rec("Work", "0")))
	out := h.mustRun("check")
	assert.Contains(t, out, "Checked for new mail.")
	assert.Contains(t, out, "  iCloud: 3 unread")
	assert.Contains(t, out, "  Work: 0 unread")
	require.Len(t, h.runner.Scripts, 2)
	assert.Contains(t, h.runner.Scripts[0], "check for new mail\n")
}

func TestCheckOneAccount(t *testing.T) {
	h := newHarness(t, "ok", lines(rec("Work", "1")))
	h.mustRun("check", "-a", "Work")
	assert.Contains(t, h.runner.Scripts[0], `check for new mail for account "Work"`)
	assert.Contains(t, h.runner.Scripts[1], `set acct to account "Work"`)
}
