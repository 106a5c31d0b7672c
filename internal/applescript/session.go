package applescript

import (
	"fmt"
	"io"

	"github.com/nhle/mxctl/internal/model"
)

const noticeAutomation = "automation"

const automationNotice = `Note: mxctl controls Mail.app through AppleScript.
macOS may ask to allow your terminal to control Mail.app. If commands fail,
grant access in System Settings > Privacy & Security > Automation.`

// Session tracks the one-time notices shown during a process. The automation
// notice is also remembered across processes in the state file.
type Session struct {
	Paths model.Paths
	shown map[string]bool
}

// NewSession returns a session with no notices shown.
func NewSession(p model.Paths) *Session {
	return &Session{Paths: p, shown: map[string]bool{}}
}

// First reports whether key is being seen for the first time in this
// session, marking it as seen.
func (s *Session) First(key string) bool {
	if s.shown == nil {
		s.shown = map[string]bool{}
	}
	if s.shown[key] {
		return false
	}
	s.shown[key] = true
	return true
}

// WarnAutomationOnce prints the Automation permission notice to w the first
// time mxctl ever talks to Mail.app, then records that in state.json.
func (s *Session) WarnAutomationOnce(w io.Writer) error {
	if !s.First(noticeAutomation) {
		return nil
	}
	if model.LoadState(s.Paths).AutomationPrompted {
		return nil
	}
	fmt.Fprintln(w, automationNotice)
	return model.SaveState(s.Paths, model.AppState{AutomationPrompted: true})
}
