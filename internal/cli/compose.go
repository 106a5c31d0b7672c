package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/mxctl/internal/applescript"
	"github.com/nhle/mxctl/internal/mailaddr"
	"github.com/nhle/mxctl/internal/records"
)

// prefixed adds prefix to subject unless one of the equivalent prefixes is
// already there.
func prefixed(subject, prefix string, equivalents ...string) string {
	lower := strings.ToLower(strings.TrimSpace(subject))
	for _, p := range append([]string{prefix}, equivalents...) {
		if strings.HasPrefix(lower, strings.ToLower(p)) {
			return strings.TrimSpace(subject)
		}
	}
	return prefix + " " + strings.TrimSpace(subject)
}

// quote prefixes every line of body with "> ".
func quote(body string) string {
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}

// addresses validates each recipient and returns the bare addresses.
func addresses(flag string, values []string) ([]string, error) {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			addr := mailaddr.ExtractEmail(part)
			if !mailaddr.LooksLikeEmail(addr) {
				return nil, fail("invalid %s address: %s", flag, part)
			}
			out = append(out, addr)
		}
	}
	return out, nil
}

func newDraftCmd(app *App) *cobra.Command {
	var (
		to, cc, bcc             []string
		subject, body, template string
	)
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Save a new message to Drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			toAddrs, err := addresses("--to", to)
			if err != nil {
				return err
			}
			if len(toAddrs) == 0 {
				return fail("at least one --to address is required")
			}
			ccAddrs, err := addresses("--cc", cc)
			if err != nil {
				return err
			}
			bccAddrs, err := addresses("--bcc", bcc)
			if err != nil {
				return err
			}
			if template != "" {
				tmpl, err := app.template(template)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("subject") {
					subject = tmpl.Subject
				}
				if !cmd.Flags().Changed("body") {
					body = tmpl.Body
				}
			}
			if strings.TrimSpace(subject) == "" {
				return fail("--subject is required")
			}
			if template == "" && !cmd.Flags().Changed("body") {
				return fail("--body is required unless --template is given")
			}
			account, err := app.account()
			if err != nil {
				return err
			}
			d := applescript.Draft{Account: account, To: toAddrs, Cc: ccAddrs, Bcc: bccAddrs, Subject: subject, Body: body}
			if _, err := app.run(cmd.Context(), applescript.SaveDraft(d)); err != nil {
				return err
			}
			return app.emit(fmt.Sprintf("Draft created: %s (to %s)", subject, strings.Join(toAddrs, ", ")),
				map[string]any{"status": "draft_created", "to": toAddrs, "cc": ccAddrs, "bcc": bccAddrs, "subject": subject})
		},
	}
	cmd.Flags().StringSliceVar(&to, "to", nil, "Recipient (repeatable or comma-separated)")
	cmd.Flags().StringSliceVar(&cc, "cc", nil, "Cc recipient")
	cmd.Flags().StringSliceVar(&bcc, "bcc", nil, "Bcc recipient")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject")
	cmd.Flags().StringVar(&body, "body", "", "Message body")
	cmd.Flags().StringVar(&template, "template", "", "Fill subject and body from a saved template")
	return cmd
}

func newReplyCmd(app *App) *cobra.Command {
	var mailbox, body string
	cmd := &cobra.Command{
		Use:   "reply <id>",
		Short: "Draft a reply to a message",
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
			raw, err := app.run(ctx, applescript.ComposeSource(account, mailbox, id))
			if err != nil {
				return err
			}
			src, ok := records.ComposeSource(raw)
			if !ok {
				return fail("Could not read message %d in %s", id, where(account, mailbox))
			}
			to := mailaddr.ExtractEmail(src.Sender)
			if !mailaddr.LooksLikeEmail(to) {
				return fail("Could not extract a valid email address from sender: %s", src.Sender)
			}

			subject := prefixed(src.Subject, "Re:")
			text := fmt.Sprintf("%s\n\nOn %s, %s wrote:\n%s", body, src.Date, src.Sender, quote(src.Body))
			d := applescript.Draft{Account: account, To: []string{to}, Subject: subject, Body: text}
			if _, err := app.run(ctx, applescript.SaveDraft(d)); err != nil {
				return err
			}
			return app.emit(fmt.Sprintf("Reply draft created: %s (to %s)", subject, to),
				map[string]any{"status": "draft_created", "to": to, "subject": subject})
		},
	}
	addMailboxFlag(cmd, &mailbox)
	cmd.Flags().StringVar(&body, "body", "", "Reply text placed above the quoted message")
	return cmd
}

func newForwardCmd(app *App) *cobra.Command {
	var mailbox, to, body string
	cmd := &cobra.Command{
		Use:   "forward <id>",
		Short: "Draft a forward of a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			addr := mailaddr.ExtractEmail(to)
			if !mailaddr.LooksLikeEmail(addr) {
				return fail("invalid --to address: %s", to)
			}
			account, err := app.account()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			raw, err := app.run(ctx, applescript.ComposeSource(account, mailbox, id))
			if err != nil {
				return err
			}
			src, ok := records.ComposeSource(raw)
			if !ok {
				return fail("Could not read message %d in %s", id, where(account, mailbox))
			}

			subject := prefixed(src.Subject, "Fwd:", "Fw:")
			text := fmt.Sprintf("%s\n\n---------- Forwarded message ----------\nFrom: %s\nDate: %s\nSubject: %s\n\n%s",
				body, src.Sender, src.Date, src.Subject, src.Body)
			d := applescript.Draft{Account: account, To: []string{addr}, Subject: subject, Body: strings.TrimLeft(text, "\n")}
			if _, err := app.run(ctx, applescript.SaveDraft(d)); err != nil {
				return err
			}
			return app.emit(fmt.Sprintf("Forward draft created: %s (to %s)", subject, addr),
				map[string]any{"status": "draft_created", "to": addr, "subject": subject})
		},
	}
	addMailboxFlag(cmd, &mailbox)
	cmd.Flags().StringVar(&to, "to", "", "Recipient address")
	cmd.Flags().StringVar(&body, "body", "", "Text placed above the forwarded message")
	return cmd
}
