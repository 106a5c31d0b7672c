// Package applescript drives Mail.app by generating AppleScript and running
// it through osascript.
package applescript

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CodeNotAuthorized is the AppleEvent error raised when the terminal has not
// been granted Automation access to Mail.app.
const CodeNotAuthorized = -1743

// Runner executes a script and returns its text result.
type Runner interface {
	Run(ctx context.Context, script string) (string, error)
}

// ExecError is an osascript failure.
type ExecError struct {
	// Code is the AppleScript error number, or 0 when none was reported.
	Code   int
	Stderr string
	Err    error
}

func (e *ExecError) Error() string {
	if e.Code == CodeNotAuthorized {
		return "Mail.app refused the request: grant your terminal Automation access in " +
			"System Settings > Privacy & Security > Automation"
	}
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return "AppleScript error: " + msg
}

func (e *ExecError) Unwrap() error { return e.Err }

var errorCodeRe = regexp.MustCompile(`\((-?\d+)\)\s*$`)

func parseErrorCode(stderr string) int {
	m := errorCodeRe.FindStringSubmatch(strings.TrimSpace(stderr))
	if len(m) != 2 {
		return 0
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return code
}

// Osascript runs scripts with the osascript binary, feeding the script on
// stdin.
type Osascript struct {
	// Binary defaults to "osascript".
	Binary string
	Logger *zap.Logger
}

// Run executes script and returns stdout without surrounding newlines.
func (o Osascript) Run(ctx context.Context, script string) (string, error) {
	bin := o.Binary
	if bin == "" {
		bin = "osascript"
	}
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.CommandContext(ctx, bin, "-") // #nosec G204 - binary is fixed or set by tests
	cmd.Stdin = strings.NewReader(script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	logger.Debug("osascript finished",
		zap.Int("script_bytes", len(script)),
		zap.Int("output_bytes", stdout.Len()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &ExecError{
			Code:   parseErrorCode(stderr.String()),
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    fmt.Errorf("run %s: %w", bin, err),
		}
	}
	return strings.Trim(stdout.String(), "\r\n"), nil
}

// Escape quotes s for use inside an AppleScript string literal.
func Escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// Quote returns s as an AppleScript string literal.
func Quote(s string) string {
	return `"` + Escape(s) + `"`
}
