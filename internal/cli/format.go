package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nhle/mxctl/internal/dates"
	"github.com/nhle/mxctl/internal/mailaddr"
	"github.com/nhle/mxctl/internal/model"
	"github.com/nhle/mxctl/internal/output"
	"github.com/nhle/mxctl/internal/theme"
)

const (
	subjectWidth = 70
	senderWidth  = 40
)

// messageLine renders "[id] subject - sender".
func messageLine(m model.Message) string {
	subject := m.Subject
	if strings.TrimSpace(subject) == "" {
		subject = "(no subject)"
	}
	return fmt.Sprintf("[%s] %s - %s", m.ID, output.Truncate(subject, subjectWidth),
		output.Truncate(mailaddr.SenderLabel(m.Sender), senderWidth))
}

// writeMessages renders one indented line per message with the date muted.
func writeMessages(b *strings.Builder, st theme.Styles, msgs []model.Message) {
	for _, m := range msgs {
		line := "  " + messageLine(m)
		if m.Date != "" {
			line += " " + st.Muted.Render("("+m.Date+")")
		}
		b.WriteString(line + "\n")
	}
}

// writeSection renders "TITLE (n):" followed by the messages.
func writeSection(b *strings.Builder, st theme.Styles, title string, msgs []model.Message) {
	b.WriteString(st.Section.Render(fmt.Sprintf("%s (%d):", title, len(msgs))) + "\n")
	writeMessages(b, st, msgs)
}

// where names an account mailbox as "INBOX [iCloud]".
func where(account, mailbox string) string {
	return fmt.Sprintf("%s [%s]", mailbox, account)
}

// sortByDate orders msgs oldest first. Messages whose date does not parse
// keep their relative order after the rest.
func sortByDate(msgs []model.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		ti, iok := dates.ParseLongTime(msgs[i].Date)
		tj, jok := dates.ParseLongTime(msgs[j].Date)
		if iok != jok {
			return iok
		}
		return iok && ti.Before(tj)
	})
}
