package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/mxctl/internal/applescript"
	"github.com/nhle/mxctl/internal/classify"
	"github.com/nhle/mxctl/internal/dates"
	"github.com/nhle/mxctl/internal/mailaddr"
	"github.com/nhle/mxctl/internal/model"
	"github.com/nhle/mxctl/internal/records"
)

// scanLimit caps how many INBOX messages per account the sender analyses
// read.
const scanLimit = 500

func newSummaryCmd(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "One line per unread message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := app.run(cmd.Context(), applescript.UnreadInbox(app.scope(), model.ValidateLimit(limit), false))
			if err != nil {
				return err
			}
			msgs := records.Summaries(raw).Records
			payload := map[string]any{"unread": len(msgs), "messages": msgs}
			if len(msgs) == 0 {
				return app.emit("No unread messages.", payload)
			}

			st := app.styles()
			var b strings.Builder
			b.WriteString(st.Header.Render(fmt.Sprintf("%d unread:", len(msgs))) + "\n")
			for _, m := range msgs {
				b.WriteString("  " + messageLine(m) + " " + st.Muted.Render("("+m.Account+")") + "\n")
			}
			return app.emit(b.String(), payload)
		},
	}
	addLimitFlag(cmd, &limit, 25)
	return cmd
}

func newTriageCmd(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Group unread mail into flagged, people and notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := app.run(cmd.Context(), applescript.UnreadInbox(app.scope(), model.ValidateLimit(limit), true))
			if err != nil {
				return err
			}
			t := classify.CategorizeForTriage(records.Triage(raw).Records)
			if t.Total() == 0 {
				return app.emit("No unread messages.", t)
			}

			st := app.styles()
			var b strings.Builder
			b.WriteString(st.Header.Render(fmt.Sprintf("Triage (%d unread):", t.Total())) + "\n")
			for _, sec := range []struct {
				title string
				msgs  []model.Message
			}{
				{"FLAGGED", t.Flagged},
				{"PEOPLE", t.People},
				{"NOTIFICATIONS", t.Notifications},
			} {
				if len(sec.msgs) == 0 {
					continue
				}
				b.WriteString("\n")
				writeSection(&b, st, sec.title, sec.msgs)
			}
			return app.emit(b.String(), t)
		},
	}
	addLimitFlag(cmd, &limit, 50)
	return cmd
}

func newProcessInboxCmd(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "process-inbox",
		Short: "Triage unread mail with a suggested next command per group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := app.run(cmd.Context(), applescript.UnreadInbox(app.scope(), model.ValidateLimit(limit), true))
			if err != nil {
				return err
			}
			t := classify.CategorizeForTriage(records.Triage(raw).Records)
			if t.Total() == 0 {
				return app.emit("No unread messages. Inbox zero!", t)
			}

			st := app.styles()
			var b strings.Builder
			b.WriteString(st.Header.Render(fmt.Sprintf("Process inbox (%d unread):", t.Total())) + "\n")

			if len(t.Flagged) > 0 {
				b.WriteString("\n")
				writeSection(&b, st, "FLAGGED", t.Flagged)
				b.WriteString(st.Muted.Render("  Follow up: mxctl read <id> -a <account>") + "\n")
			}
			if len(t.People) > 0 {
				b.WriteString("\n")
				writeSection(&b, st, "PEOPLE", t.People)
				first := t.People[0]
				b.WriteString(st.Muted.Render(fmt.Sprintf("  Reply: mxctl reply %s -a %q --body \"...\"", first.ID, first.Account)) + "\n")
			}
			if len(t.Notifications) > 0 {
				b.WriteString("\n")
				writeSection(&b, st, "NOTIFICATIONS", t.Notifications)
				senders := make([]string, 0, len(t.Notifications))
				for _, m := range t.Notifications {
					senders = append(senders, m.Sender)
				}
				for _, c := range classify.RankSenders(classify.CountSenders(senders), 3) {
					b.WriteString(st.Muted.Render(fmt.Sprintf("  Clear: mxctl batch-read --from %s", c.Sender)) + "\n")
				}
			}
			return app.emit(b.String(), t)
		},
	}
	addLimitFlag(cmd, &limit, 50)
	return cmd
}

func newDigestCmd(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Unread mail grouped by sender domain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := app.run(cmd.Context(), applescript.UnreadInbox(app.scope(), model.ValidateLimit(limit), false))
			if err != nil {
				return err
			}
			msgs := records.Summaries(raw).Records
			groups := records.GroupByDomain(msgs)
			total := 0
			for _, g := range groups {
				total += len(g.Messages)
			}
			payload := map[string]any{"total": total, "domains": groups}
			if total == 0 {
				return app.emit("No unread messages. Inbox zero!", payload)
			}

			st := app.styles()
			var b strings.Builder
			b.WriteString(st.Header.Render(fmt.Sprintf("Digest: %d messages from %s", total, plural(len(groups), "domain"))) + "\n")
			for _, g := range groups {
				b.WriteString("\n")
				writeSection(&b, st, g.Domain, g.Messages)
			}
			return app.emit(b.String(), payload)
		},
	}
	addLimitFlag(cmd, &limit, 50)
	return cmd
}

func newTopSendersCmd(app *App) *cobra.Command {
	var days, limit int
	cmd := &cobra.Command{
		Use:   "top-senders",
		Short: "Who sends you the most mail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fail("--days must be at least 1")
			}
			since := dates.ToLongDate(app.now().AddDate(0, 0, -days))
			raw, err := app.run(cmd.Context(), applescript.InboxSenders(app.scope(), since, scanLimit))
			if err != nil {
				return err
			}
			top := records.TopSenders(raw, model.ValidateLimit(limit))
			payload := map[string]any{"days": days, "senders": top}
			if len(top) == 0 {
				return app.emit(fmt.Sprintf("No messages found in the last %d days.", days), payload)
			}

			var b strings.Builder
			b.WriteString(app.styles().Header.Render(fmt.Sprintf("Top senders (last %d days):", days)) + "\n")
			for i, s := range top {
				fmt.Fprintf(&b, "  %d. %s (%s)\n", i+1, s.Sender, plural(s.Count, "message"))
			}
			return app.emit(b.String(), payload)
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "Look back this many days")
	addLimitFlag(cmd, &limit, 10)
	return cmd
}

func newShowFlaggedCmd(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "show-flagged",
		Short: "Flagged messages across mailboxes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := app.run(cmd.Context(), applescript.FlaggedMessages(app.scope(), model.ValidateLimit(limit)))
			if err != nil {
				return err
			}
			msgs := records.Located(raw).Records
			payload := map[string]any{"flagged": msgs}
			if len(msgs) == 0 {
				return app.emit("No flagged messages.", payload)
			}
			st := app.styles()
			var b strings.Builder
			b.WriteString(st.Header.Render(fmt.Sprintf("Flagged messages (%d):", len(msgs))) + "\n")
			for _, g := range records.GroupByMailbox(msgs) {
				b.WriteString(st.Section.Render(where(g.Account, g.Mailbox)+":") + "\n")
				writeMessages(&b, st, g.Messages)
			}
			return app.emit(b.String(), payload)
		},
	}
	addLimitFlag(cmd, &limit, 25)
	return cmd
}

func newWeeklyReviewCmd(app *App) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "weekly-review",
		Short: "Flagged mail, recent attachments and unreplied messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fail("--days must be at least 1")
			}
			ctx := cmd.Context()
			scope := app.scope()
			since := app.now().AddDate(0, 0, -days)
			sinceLong := dates.ToLongDate(since)

			raw, err := app.run(ctx, applescript.FlaggedMessages(scope, model.MaxLimit))
			if err != nil {
				return err
			}
			flagged := records.Located(raw).Records

			raw, err = app.run(ctx, applescript.AttachmentReview(scope, sinceLong, model.MaxLimit))
			if err != nil {
				return err
			}
			withAttachments := records.AttachmentReview(raw).Records

			raw, err = app.run(ctx, applescript.Unreplied(scope, sinceLong, model.MaxLimit))
			if err != nil {
				return err
			}
			unreplied := records.Unreplied(raw).Records

			payload := map[string]any{
				"since":       dates.Today(since),
				"flagged":     flagged,
				"attachments": withAttachments,
				"unreplied":   unreplied,
			}

			st := app.styles()
			var b strings.Builder
			b.WriteString(st.Header.Render("Weekly review (since "+dates.Today(since)+"):") + "\n")

			b.WriteString("\n")
			writeSection(&b, st, "FLAGGED", flagged)
			if len(flagged) == 0 {
				b.WriteString(st.Muted.Render("  Nothing flagged.") + "\n")
			}

			b.WriteString("\n" + st.Section.Render(fmt.Sprintf("ATTACHMENTS (%d):", len(withAttachments))) + "\n")
			for _, m := range withAttachments {
				fmt.Fprintf(&b, "  %s %s\n", messageLine(m), st.Muted.Render(fmt.Sprintf("(%s)", plural(m.AttachmentCount, "file"))))
			}
			if len(withAttachments) == 0 {
				b.WriteString(st.Muted.Render("  No attachments received.") + "\n")
			}

			b.WriteString("\n")
			writeSection(&b, st, "UNREPLIED", unreplied)
			if len(unreplied) == 0 {
				b.WriteString(st.Muted.Render("  All caught up.") + "\n")
			}
			return app.emit(b.String(), payload)
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "Review window in days")
	return cmd
}

// newsletterCandidate is a sender proposed for cleanup.
type newsletterCandidate struct {
	Sender string   `json:"sender"`
	Count  int      `json:"count"`
	Unread int      `json:"unread"`
	Reason []string `json:"reason"`
}

func newsletterCandidates(msgs []model.Message, threshold int) []newsletterCandidate {
	senders := make([]string, 0, len(msgs))
	unread := map[string]int{}
	for _, m := range msgs {
		senders = append(senders, m.Sender)
		if !m.Read {
			unread[mailaddr.ExtractEmail(strings.TrimSpace(m.Sender))]++
		}
	}
	counts := classify.CountSenders(senders)
	bulk := map[string]bool{}
	for _, c := range classify.IdentifyBulkSenders(counts, threshold) {
		bulk[c.Sender] = true
	}

	out := []newsletterCandidate{}
	for _, c := range counts {
		var reason []string
		if bulk[c.Sender] {
			reason = append(reason, "bulk")
		}
		if classify.IsAutomatedSender(c.Sender) {
			reason = append(reason, "automated")
		}
		if len(reason) == 0 {
			continue
		}
		out = append(out, newsletterCandidate{Sender: c.Sender, Count: c.Count, Unread: unread[c.Sender], Reason: reason})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func newCleanNewslettersCmd(app *App) *cobra.Command {
	var threshold int
	cmd := &cobra.Command{
		Use:   "clean-newsletters",
		Short: "Find bulk and automated senders worth filing away",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := app.run(cmd.Context(), applescript.InboxSenderReads(app.scope(), scanLimit))
			if err != nil {
				return err
			}
			msgs := records.SenderReads(raw).Records
			if len(msgs) == 0 {
				return app.emit("No messages found.", map[string]any{"candidates": []newsletterCandidate{}})
			}
			cands := newsletterCandidates(msgs, threshold)
			payload := map[string]any{"scanned": len(msgs), "candidates": cands}
			if len(cands) == 0 {
				return app.emit("No newsletter senders identified.", payload)
			}

			st := app.styles()
			var b strings.Builder
			b.WriteString(st.Header.Render(fmt.Sprintf("Newsletter candidates (%s):", plural(len(cands), "sender"))) + "\n")
			for _, c := range cands {
				fmt.Fprintf(&b, "  %s (%s, %d unread) %s\n", c.Sender, plural(c.Count, "message"), c.Unread,
					st.Muted.Render("["+strings.Join(c.Reason, ", ")+"]"))
				b.WriteString(st.Muted.Render("    mxctl batch-move --from "+c.Sender+" --to-mailbox Newsletters") + "\n")
			}
			return app.emit(b.String(), payload)
		},
	}
	cmd.Flags().IntVar(&threshold, "min", classify.DefaultBulkThreshold, "Messages from one sender that mark it as bulk")
	return cmd
}

func newStatsCmd(app *App) *cobra.Command {
	var (
		mailbox string
		all     bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Message and unread totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := app.account()
			if err != nil {
				return err
			}
			if !all {
				raw, err := app.run(cmd.Context(), applescript.MailboxTotals(account, mailbox))
				if err != nil {
					return err
				}
				total, unread, ok := records.Totals(raw)
				if !ok {
					return fail("Could not read totals for %s", where(account, mailbox))
				}
				return app.emit(fmt.Sprintf("%s: %d messages, %d unread", where(account, mailbox), total, unread),
					model.Mailbox{Account: account, Name: mailbox, Total: total, Unread: unread})
			}

			raw, err := app.run(cmd.Context(), applescript.MailboxStats(account))
			if err != nil {
				return err
			}
			boxes := records.MailboxStats(raw).Records
			total, unread := 0, 0
			for i := range boxes {
				boxes[i].Account = account
				total += boxes[i].Total
				unread += boxes[i].Unread
			}
			payload := map[string]any{"account": account, "total": total, "unread": unread, "mailboxes": boxes}

			st := app.styles()
			var b strings.Builder
			b.WriteString(st.Header.Render("Account: "+account) + "\n")
			fmt.Fprintf(&b, "Total: %d messages, %d unread\n", total, unread)
			if len(boxes) > 0 {
				b.WriteString("\n")
			}
			for _, m := range boxes {
				fmt.Fprintf(&b, "  %s: %d messages, %d unread\n", m.Name, m.Total, m.Unread)
			}
			return app.emit(b.String(), payload)
		},
	}
	addMailboxFlag(cmd, &mailbox)
	cmd.Flags().BoolVar(&all, "all", false, "Every mailbox of the account")
	return cmd
}

func newFindRelatedCmd(app *App) *cobra.Command {
	var (
		mailbox string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "find-related <id>",
		Short: "Find messages from the same sender or conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			account, err := app.account()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			limit = model.ValidateLimit(limit)

			raw, err := app.run(ctx, applescript.TaskSource(account, mailbox, id))
			if err != nil {
				return err
			}
			src, ok := records.TaskSource(raw)
			if !ok {
				return fail("Message %d not found in %s", id, where(account, mailbox))
			}

			var queries []applescript.Filter
			if addr := mailaddr.ExtractEmail(src.Sender); mailaddr.LooksLikeEmail(addr) {
				queries = append(queries, applescript.Filter{Sender: addr})
			}
			subject := mailaddr.NormalizeSubject(src.Subject)
			if subject != "" {
				queries = append(queries, applescript.Filter{Subject: subject})
			}
			if len(queries) == 0 {
				return fail("Message %d has neither a sender address nor a subject to match", id)
			}

			self := fmt.Sprintf("%s\x00%s\x00%d", account, mailbox, id)
			seen := map[string]bool{self: true}
			related := []model.Message{}
			for _, q := range queries {
				raw, err := app.run(ctx, applescript.Search(account, q, limit))
				if err != nil {
					return err
				}
				for _, m := range records.Located(raw).Records {
					key := m.Account + "\x00" + m.Mailbox + "\x00" + m.ID.String()
					if seen[key] {
						continue
					}
					seen[key] = true
					related = append(related, m)
				}
			}
			sortByDate(related)

			payload := map[string]any{"subject": src.Subject, "sender": src.Sender, "related": related}
			if len(related) == 0 {
				return app.emit(fmt.Sprintf("No related messages for '%s'.", src.Subject), payload)
			}
			st := app.styles()
			var b strings.Builder
			b.WriteString(st.Header.Render(fmt.Sprintf("Related to '%s' (%d):", src.Subject, len(related))) + "\n")
			for _, g := range records.GroupByMailbox(related) {
				b.WriteString(st.Section.Render(where(g.Account, g.Mailbox)+":") + "\n")
				writeMessages(&b, st, g.Messages)
			}
			return app.emit(b.String(), payload)
		},
	}
	addMailboxFlag(cmd, &mailbox)
	addLimitFlag(cmd, &limit, 25)
	return cmd
}
