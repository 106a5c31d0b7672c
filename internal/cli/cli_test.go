package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nhle/mxctl/internal/applescript"
	"github.com/nhle/mxctl/internal/credential"
	"github.com/nhle/mxctl/internal/fields"
	"github.com/nhle/mxctl/internal/model"
	"github.com/nhle/mxctl/internal/todoist"
	"github.com/nhle/mxctl/tests/testutil"
)

var fixedNow = time.Date(2026, time.February, 14, 12, 0, 0, 0, time.UTC)

const longDate = "Tuesday, January 14, 2026 at 2:30:00 PM"

type fakePrompter struct {
	choice  string
	confirm bool
	secret  string

	offered []model.Account
	asked   []string
}

func (p *fakePrompter) SelectAccount(_ context.Context, accounts []model.Account) (string, error) {
	p.offered = accounts
	p.asked = append(p.asked, "select")
	return p.choice, nil
}

func (p *fakePrompter) Confirm(_ context.Context, title string) (bool, error) {
	p.asked = append(p.asked, "confirm")
	return p.confirm, nil
}

func (p *fakePrompter) Secret(_ context.Context, title, description string) (string, error) {
	p.asked = append(p.asked, "secret")
	return p.secret, nil
}

type fakeTodoist struct {
	token string
	reqs  []todoist.TaskRequest
	err   error
}

func (f *fakeTodoist) CreateTask(_ context.Context, req todoist.TaskRequest) (*todoist.Task, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &todoist.Task{ID: "42", Content: req.Content, URL: "https://todoist.com/showTask?id=42"}, nil
}

type harness struct {
	t        *testing.T
	app      *App
	runner   *testutil.FakeRunner
	out      *bytes.Buffer
	errOut   *bytes.Buffer
	prompter *fakePrompter
	secrets  credential.Memory
	todoist  *fakeTodoist
}

// newHarness builds an App over a temp config dir. The automation notice is
// already acknowledged so stderr only carries errors.
func newHarness(t *testing.T, outputs ...string) *harness {
	t.Helper()
	paths := model.Paths{Dir: t.TempDir()}
	require.NoError(t, model.SaveState(paths, model.AppState{AutomationPrompted: true}))

	h := &harness{
		t:        t,
		runner:   testutil.NewFakeRunner(outputs...),
		out:      &bytes.Buffer{},
		errOut:   &bytes.Buffer{},
		prompter: &fakePrompter{},
		secrets:  credential.Memory{},
		todoist:  &fakeTodoist{},
	}
	h.app = &App{
		Runner:   h.runner,
		Session:  applescript.NewSession(paths),
		Paths:    paths,
		Out:      h.out,
		Err:      h.errOut,
		Prompter: h.prompter,
		Secrets:  h.secrets,
		Logger:   zaptest.NewLogger(t),
		NewTodoist: func(token string) TaskCreator {
			h.todoist.token = token
			return h.todoist
		},
		OpenURL: func(context.Context, string) error { return nil },
		Now:     func() time.Time { return fixedNow },
		Version: "1.2.3",
	}
	return h
}

// withAccount writes a config whose default account is name.
func (h *harness) withAccount(name string) *harness {
	h.t.Helper()
	require.NoError(h.t, model.SaveConfig(h.app.Paths, &model.AppConfig{Mail: model.MailConfig{DefaultAccount: name}}))
	return h
}

func (h *harness) run(args ...string) int {
	h.t.Helper()
	h.out.Reset()
	h.errOut.Reset()
	return Run(context.Background(), h.app, args)
}

// mustRun runs args and requires a zero exit status.
func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	code := h.run(args...)
	require.Equal(h.t, 0, code, "stderr: %s", h.errOut.String())
	return h.out.String()
}

func (h *harness) decodeJSON(args ...string) map[string]any {
	h.t.Helper()
	out := h.mustRun(append([]string{"--json"}, args...)...)
	var payload map[string]any
	require.NoError(h.t, json.Unmarshal([]byte(out), &payload), out)
	return payload
}

// lines joins encoded records one per line.
func lines(records ...[]string) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(fields.Encode(r...) + "\n")
	}
	return b.String()
}

func rec(f ...string) []string { return f }

func TestVersionFlag(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "mxctl 1.2.3\n", h.mustRun("--version"))
}

func TestHelpListsGroups(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("--help")
	for _, group := range []string{"Setup:", "Reading:", "Actions:", "Compose:", "Manage:", "Batch:", "AI & Analytics:", "Export:"} {
		assert.Contains(t, out, group)
	}
	for _, name := range []string{"clean-newsletters", "check", "context", "not-junk", "templates", "empty-trash", "batch-flag", "find-related"} {
		assert.Contains(t, out, name)
	}
}

func TestMissingConfigIsFatal(t *testing.T) {
	h := newHarness(t)
	code := h.run("count")
	assert.Equal(t, 1, code)
	assert.Contains(t, h.errOut.String(), "Error: no configuration found")
	assert.Contains(t, h.errOut.String(), "mxctl init")
	assert.Empty(t, h.runner.Scripts)
}

func TestMissingDefaultAccountIsFatal(t *testing.T) {
	h := newHarness(t).withAccount("")
	code := h.run("count")
	assert.Equal(t, 1, code)
	assert.Contains(t, h.errOut.String(), "Error: no default account set")
}

func TestAccountFlagOverridesConfig(t *testing.T) {
	h := newHarness(t, "4").withAccount("iCloud")
	out := h.mustRun("count", "-a", "Work")
	assert.Equal(t, "4 unread in INBOX [Work]\n", out)
	assert.Contains(t, h.runner.LastScript(), `account "Work"`)
}

func TestAutomationFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.runner.Fail(&applescript.ExecError{Code: -1728, Stderr: "Can't get account \"Nope\"."})
	code := h.run("accounts")
	assert.Equal(t, 1, code)
	assert.Contains(t, h.errOut.String(), "Error: AppleScript error: Can't get account")
}

func TestInterruptExits130(t *testing.T) {
	h := newHarness(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	code := Run(ctx, h.app, []string{"accounts"})
	assert.Equal(t, ExitCodeInterrupted, code)
	assert.Contains(t, h.errOut.String(), "Cancelled.")
}

func TestAutomationNoticeShownOncePerInstall(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, model.SaveState(h.app.Paths, model.AppState{}))
	h.runner.Queue("").Queue("")

	h.mustRun("accounts")
	assert.Contains(t, h.errOut.String(), "Automation")
	assert.True(t, model.LoadState(h.app.Paths).AutomationPrompted)

	h.app.Session = applescript.NewSession(h.app.Paths)
	h.mustRun("accounts")
	assert.NotContains(t, h.errOut.String(), "Automation")
}

func TestInvalidMessageID(t *testing.T) {
	h := newHarness(t).withAccount("iCloud")
	code := h.run("read", "abc")
	assert.Equal(t, 1, code)
	assert.Contains(t, h.errOut.String(), `invalid message id: "abc"`)
}
