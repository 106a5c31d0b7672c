package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/mxctl/internal/applescript"
	"github.com/nhle/mxctl/internal/credential"
	"github.com/nhle/mxctl/internal/model"
	"github.com/nhle/mxctl/internal/output"
	"github.com/nhle/mxctl/internal/theme"
	"github.com/nhle/mxctl/internal/todoist"
)

// ExitCodeInterrupted is the conventional status for a process stopped by
// SIGINT.
const ExitCodeInterrupted = 130

// ExitError is a fatal, user-facing failure.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

// fail returns an ExitError with status 1.
func fail(format string, args ...any) error {
	return &ExitError{Code: 1, Msg: fmt.Sprintf(format, args...)}
}

// TaskCreator creates Todoist tasks.
type TaskCreator interface {
	CreateTask(ctx context.Context, req todoist.TaskRequest) (*todoist.Task, error)
}

// App holds the collaborators shared by every command.
type App struct {
	Runner   applescript.Runner
	Session  *applescript.Session
	Paths    model.Paths
	Out      io.Writer
	Err      io.Writer
	Prompter Prompter
	Secrets  credential.Store
	Logger   *zap.Logger

	// NewTodoist builds a Todoist client for a token.
	NewTodoist func(token string) TaskCreator

	// OpenURL opens a link in the user's browser.
	OpenURL func(ctx context.Context, url string) error

	// HTTP sends one-click unsubscribe requests.
	HTTP *http.Client

	Now     func() time.Time
	Version string

	flags rootFlags
}

type rootFlags struct {
	JSON    bool
	Account string
	Verbose bool
}

// NewApp wires the production collaborators.
func NewApp(logger *zap.Logger, version string) *App {
	paths := model.DefaultPaths()
	return &App{
		Runner:   applescript.Osascript{Logger: logger},
		Session:  applescript.NewSession(paths),
		Paths:    paths,
		Out:      os.Stdout,
		Err:      os.Stderr,
		Prompter: HuhPrompter{},
		Secrets:  credential.Keyring{FileDir: filepath.Join(paths.Dir, "credentials")},
		Logger:   logger,
		NewTodoist: func(token string) TaskCreator {
			return todoist.NewClient("", token, logger)
		},
		OpenURL: func(ctx context.Context, url string) error {
			return exec.CommandContext(ctx, "open", url).Run() // #nosec G204 - URL comes from the message headers
		},
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Now:     time.Now,
		Version: version,
	}
}

// Run executes the command line and returns the process exit status. Fatal
// errors are printed to Err as "Error: <msg>".
func Run(ctx context.Context, app *App, args []string) int {
	root := NewRootCmd(app)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, huh.ErrUserAborted) || ctx.Err() != nil {
		fmt.Fprintln(app.Err, "\nCancelled.")
		return ExitCodeInterrupted
	}
	app.logger().Debug("command failed", zap.Error(err))

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintf(app.Err, "Error: %s\n", exitErr.Msg)
		return exitErr.Code
	}
	fmt.Fprintf(app.Err, "Error: %s\n", err)
	return 1
}

func (a *App) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func (a *App) printer() output.Printer {
	return output.Printer{Out: a.Out, JSON: a.flags.JSON}
}

func (a *App) styles() theme.Styles {
	return theme.New(a.Out)
}

// emit prints text, or payload when --json is set.
func (a *App) emit(text string, payload any) error {
	return a.printer().Emit(text, payload)
}

// run executes one automation script, showing the one-time Automation
// notice first.
func (a *App) run(ctx context.Context, script string) (string, error) {
	if a.Session != nil {
		if err := a.Session.WarnAutomationOnce(a.Err); err != nil {
			a.logger().Debug("saving state", zap.Error(err))
		}
	}
	out, err := a.Runner.Run(ctx, script)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", err
	}
	return out, nil
}

// account resolves -a or the configured default account.
func (a *App) account() (string, error) {
	acct, err := model.ResolveAccount(a.Paths, a.flags.Account)
	if err != nil {
		return "", fail("%s", err)
	}
	return acct, nil
}

// scope is the -a value only; empty means every enabled account.
func (a *App) scope() string {
	return strings.TrimSpace(a.flags.Account)
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || id < 0 {
		return 0, fail("invalid message id: %q", arg)
	}
	return id, nil
}

func addMailboxFlag(cmd *cobra.Command, mailbox *string) {
	cmd.Flags().StringVarP(mailbox, "mailbox", "m", model.DefaultMailbox, "Mailbox name")
}

func addLimitFlag(cmd *cobra.Command, limit *int, def int) {
	cmd.Flags().IntVarP(limit, "limit", "n", def, fmt.Sprintf("Maximum number of messages (%d-%d)", model.MinLimit, model.MaxLimit))
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
