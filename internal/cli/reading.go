package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/mxctl/internal/applescript"
	"github.com/nhle/mxctl/internal/dates"
	"github.com/nhle/mxctl/internal/fields"
	"github.com/nhle/mxctl/internal/mailaddr"
	"github.com/nhle/mxctl/internal/model"
	"github.com/nhle/mxctl/internal/output"
	"github.com/nhle/mxctl/internal/records"
)

func newInboxCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "inbox",
		Short: "Unread counts for every account's INBOX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := app.run(cmd.Context(), applescript.InboxCounts(app.scope()))
			if err != nil {
				return err
			}
			counts := records.InboxCounts(raw).Records
			total := 0
			for _, c := range counts {
				total += c.Unread
			}
			payload := map[string]any{"accounts": counts, "total_unread": total}
			if len(counts) == 0 {
				return app.emit("No mail accounts found.", payload)
			}

			var b strings.Builder
			b.WriteString(app.styles().Header.Render("Inbox:") + "\n")
			for _, c := range counts {
				fmt.Fprintf(&b, "  %s: %d unread\n", c.Account, c.Unread)
			}
			fmt.Fprintf(&b, "Total: %d unread", total)
			return app.emit(b.String(), payload)
		},
	}
}

func newCountCmd(app *App) *cobra.Command {
	var mailbox string
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Unread count of one mailbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := app.account()
			if err != nil {
				return err
			}
			raw, err := app.run(cmd.Context(), applescript.UnreadCount(account, mailbox))
			if err != nil {
				return err
			}
			n := fields.ParseInt(raw)
			return app.emit(fmt.Sprintf("%d unread in %s", n, where(account, mailbox)),
				map[string]any{"account": account, "mailbox": mailbox, "unread": n})
		},
	}
	addMailboxFlag(cmd, &mailbox)
	return cmd
}

func newListCmd(app *App) *cobra.Command {
	var (
		mailbox string
		limit   int
		unread  bool
		since   string
		from    string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the newest messages of a mailbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := app.account()
			if err != nil {
				return err
			}
			f := applescript.Filter{Sender: from, UnreadOnly: unread}
			if since != "" {
				t, err := dates.ParseDay(since)
				if err != nil {
					return fail("%s", err)
				}
				f.Since = dates.ToLongDate(t)
			}

			raw, err := app.run(cmd.Context(), applescript.ListMessages(account, mailbox, model.ValidateLimit(limit), f))
			if err != nil {
				return err
			}
			msgs := records.Listed(raw).Records
			for i := range msgs {
				msgs[i].Account, msgs[i].Mailbox = account, mailbox
			}
			payload := map[string]any{"account": account, "mailbox": mailbox, "messages": msgs}
			if len(msgs) == 0 {
				return app.emit("No messages found in "+where(account, mailbox)+".", payload)
			}

			st := app.styles()
			var b strings.Builder
			b.WriteString(st.Header.Render(fmt.Sprintf("%s (%s):", where(account, mailbox), plural(len(msgs), "message"))) + "\n")
			for _, m := range msgs {
				marker := " "
				switch {
				case m.Flagged:
					marker = st.Bad.Render("!")
				case !m.Read:
					marker = st.Good.Render("*")
				}
				fmt.Fprintf(&b, " %s %s %s\n", marker, messageLine(m), st.Muted.Render("("+m.Date+")"))
			}
			return app.emit(b.String(), payload)
		},
	}
	addMailboxFlag(cmd, &mailbox)
	addLimitFlag(cmd, &limit, 25)
	cmd.Flags().BoolVar(&unread, "unread", false, "Only unread messages")
	cmd.Flags().StringVar(&since, "since", "", "Only messages received on or after YYYY-MM-DD")
	cmd.Flags().StringVar(&from, "from", "", "Only messages whose sender contains this text")
	return cmd
}

func newReadCmd(app *App) *cobra.Command {
	var (
		mailbox string
		short   bool
	)
	cmd := &cobra.Command{
		Use:   "read <id>",
		Short: "Show a full message",
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
			raw, err := app.run(cmd.Context(), applescript.ReadMessage(account, mailbox, id))
			if err != nil {
				return err
			}
			msg, ok := records.Detail(raw)
			if !ok {
				return fail("Message %d not found in %s", id, where(account, mailbox))
			}
			msg.ID = fields.IntID(int64(id))
			msg.Account, msg.Mailbox = account, mailbox
			if short {
				msg.Body = output.Truncate(msg.Body, 500)
			}

			st := app.styles()
			var flags []string
			if !msg.Read {
				flags = append(flags, "unread")
			}
			if msg.Flagged {
				flags = append(flags, "flagged")
			}
			var b strings.Builder
			b.WriteString(st.Header.Render("Subject: "+msg.Subject) + "\n")
			fmt.Fprintf(&b, "From: %s\n", msg.Sender)
			if msg.To != "" {
				fmt.Fprintf(&b, "To: %s\n", msg.To)
			}
			fmt.Fprintf(&b, "Date: %s\n", msg.Date)
			if len(flags) > 0 {
				fmt.Fprintf(&b, "Flags: %s\n", strings.Join(flags, ", "))
			}
			b.WriteString("\n" + strings.TrimSpace(msg.Body))
			return app.emit(b.String(), msg)
		},
	}
	addMailboxFlag(cmd, &mailbox)
	cmd.Flags().BoolVar(&short, "short", false, "Truncate the body to 500 characters")
	return cmd
}

func newSearchCmd(app *App) *cobra.Command {
	var (
		limit    int
		bySender bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search subjects (or senders) across mailboxes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(args[0])
			if query == "" {
				return fail("search query cannot be empty")
			}
			f := applescript.Filter{Subject: query}
			if bySender {
				f = applescript.Filter{Sender: query}
			}
			raw, err := app.run(cmd.Context(), applescript.Search(app.scope(), f, model.ValidateLimit(limit)))
			if err != nil {
				return err
			}
			msgs := records.Located(raw).Records
			payload := map[string]any{"query": query, "messages": msgs}
			if len(msgs) == 0 {
				return app.emit(fmt.Sprintf("No messages found matching '%s'.", query), payload)
			}

			st := app.styles()
			var b strings.Builder
			b.WriteString(st.Header.Render(fmt.Sprintf("Search results for '%s' (%d):", query, len(msgs))) + "\n")
			for _, g := range records.GroupByMailbox(msgs) {
				b.WriteString(st.Section.Render(where(g.Account, g.Mailbox)+":") + "\n")
				writeMessages(&b, st, g.Messages)
			}
			return app.emit(b.String(), payload)
		},
	}
	addLimitFlag(cmd, &limit, 25)
	cmd.Flags().BoolVar(&bySender, "sender", false, "Match the query against senders instead of subjects")
	return cmd
}

func newThreadCmd(app *App) *cobra.Command {
	var (
		mailbox     string
		limit       int
		allAccounts bool
	)
	cmd := &cobra.Command{
		Use:   "thread <id>",
		Short: "Show the conversation a message belongs to",
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

			rawSubject, err := app.run(ctx, applescript.MessageSubject(account, mailbox, id))
			if err != nil {
				return err
			}
			subject := mailaddr.NormalizeSubject(rawSubject)
			if subject == "" {
				return fail("Message %d has no subject to follow", id)
			}

			scope := account
			if allAccounts {
				scope = ""
			}
			raw, err := app.run(ctx, applescript.Thread(scope, subject, model.ValidateLimit(limit)))
			if err != nil {
				return err
			}
			msgs := records.Located(raw).Records
			sortByDate(msgs)
			payload := map[string]any{"subject": subject, "messages": msgs}
			if len(msgs) == 0 {
				return app.emit(fmt.Sprintf("No thread found for '%s'.", subject), payload)
			}

			st := app.styles()
			var b strings.Builder
			b.WriteString(st.Header.Render(fmt.Sprintf("Thread: %s (%s)", subject, plural(len(msgs), "message"))) + "\n")
			for _, m := range msgs {
				fmt.Fprintf(&b, "  %s %s\n", messageLine(m), st.Muted.Render("("+m.Date+", "+where(m.Account, m.Mailbox)+")"))
			}
			return app.emit(b.String(), payload)
		},
	}
	addMailboxFlag(cmd, &mailbox)
	addLimitFlag(cmd, &limit, 50)
	cmd.Flags().BoolVar(&allAccounts, "all-accounts", false, "Search every account, not just the message's")
	return cmd
}

func newHeadersCmd(app *App) *cobra.Command {
	var (
		mailbox string
		raw     bool
	)
	cmd := &cobra.Command{
		Use:   "headers <id>",
		Short: "Show routing and authentication headers",
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
			block, err := app.run(cmd.Context(), applescript.Headers(account, mailbox, id))
			if err != nil {
				return err
			}
			if strings.TrimSpace(block) == "" {
				return fail("No headers found for message %d", id)
			}
			if raw {
				return app.emit(block, map[string]any{"id": id, "headers": block})
			}

			sum, err := records.SummarizeHeaders(block)
			if err != nil {
				return fail("%s", err)
			}
			return app.emit(renderHeaders(app, sum), sum)
		},
	}
	addMailboxFlag(cmd, &mailbox)
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the header block unparsed")
	return cmd
}

func renderHeaders(app *App, sum records.HeaderSummary) string {
	st := app.styles()
	var b strings.Builder
	b.WriteString(st.Header.Render("Subject: "+sum.Subject) + "\n")
	fmt.Fprintf(&b, "From: %s\n", sum.From)
	fmt.Fprintf(&b, "To: %s\n", sum.To)
	fmt.Fprintf(&b, "Date: %s\n", sum.Date)
	if sum.MessageID != "" {
		fmt.Fprintf(&b, "Message-ID: %s\n", sum.MessageID)
	}
	if sum.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\n", sum.ReplyTo)
	}
	if sum.ReturnPath != "" {
		fmt.Fprintf(&b, "Return-Path: %s\n", sum.ReturnPath)
	}

	b.WriteString(st.Section.Render("Authentication:") + "\n")
	if len(sum.Auth) == 0 {
		b.WriteString("  " + st.Muted.Render("none reported") + "\n")
	}
	for _, key := range []string{"spf", "dkim", "dmarc"} {
		if v, ok := sum.Auth[key]; ok {
			fmt.Fprintf(&b, "  %s: %s\n", strings.ToUpper(key), st.Verdict(v).Render(v))
		}
	}
	b.WriteString("Hops: " + strconv.Itoa(sum.Hops) + "\n")
	if sum.ListUnsubscribe != "" {
		fmt.Fprintf(&b, "Unsubscribe: %s\n", output.Truncate(sum.ListUnsubscribe, 100))
	}
	return b.String()
}

func newContextCmd(app *App) *cobra.Command {
	var (
		mailbox string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "context <id>",
		Short: "Show a message with the rest of its conversation",
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

			raw, err := app.run(ctx, applescript.ReadMessage(account, mailbox, id))
			if err != nil {
				return err
			}
			msg, ok := records.Detail(raw)
			if !ok {
				return fail("Message %d not found in %s", id, where(account, mailbox))
			}
			msg.ID = fields.IntID(int64(id))
			msg.Account, msg.Mailbox = account, mailbox

			var others []model.Message
			if subject := mailaddr.NormalizeSubject(msg.Subject); subject != "" {
				raw, err = app.run(ctx, applescript.Thread(account, subject, model.ValidateLimit(limit)))
				if err != nil {
					return err
				}
				for _, m := range records.Located(raw).Records {
					if m.ID == msg.ID && m.Mailbox == mailbox {
						continue
					}
					others = append(others, m)
				}
				sortByDate(others)
			}
			if others == nil {
				others = []model.Message{}
			}

			st := app.styles()
			var b strings.Builder
			b.WriteString(st.Header.Render("Subject: "+msg.Subject) + "\n")
			fmt.Fprintf(&b, "From: %s\nDate: %s\n\n", msg.Sender, msg.Date)
			b.WriteString(output.Truncate(strings.TrimSpace(msg.Body), 2000) + "\n")
			if len(others) == 0 {
				b.WriteString("\n" + st.Muted.Render("No other messages in this conversation."))
			} else {
				b.WriteString("\n" + st.Header.Render(fmt.Sprintf("Conversation (%s):", plural(len(others), "other message"))) + "\n")
				writeMessages(&b, st, others)
			}
			return app.emit(b.String(), map[string]any{"message": msg, "thread": others})
		},
	}
	addMailboxFlag(cmd, &mailbox)
	addLimitFlag(cmd, &limit, 25)
	return cmd
}
