package cli

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/mxctl/internal/applescript"
	"github.com/nhle/mxctl/internal/mailaddr"
	"github.com/nhle/mxctl/internal/records"
)

// newMarkCmd builds one of the single-message flag toggles.
func newMarkCmd(app *App, use, short, property string, value bool) *cobra.Command {
	var mailbox string
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
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
			subject, err := app.run(cmd.Context(), applescript.SetProperty(account, mailbox, id, property, value))
			if err != nil {
				return err
			}
			return app.emit(fmt.Sprintf("%s: %s", markVerb(use), subject), map[string]any{
				"status":  use,
				"id":      id,
				"subject": subject,
			})
		},
	}
	addMailboxFlag(cmd, &mailbox)
	return cmd
}

func markVerb(use string) string {
	switch use {
	case "mark-read":
		return "Marked as read"
	case "mark-unread":
		return "Marked as unread"
	case "flag":
		return "Flagged"
	default:
		return "Unflagged"
	}
}

func newMoveCmd(app *App) *cobra.Command {
	var mailbox, dest string
	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move a message to another mailbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(dest) == "" {
				return fail("--to is required")
			}
			account, err := app.account()
			if err != nil {
				return err
			}
			subject, err := app.run(cmd.Context(), applescript.Move(account, mailbox, id, dest))
			if err != nil {
				return err
			}
			return app.emit(fmt.Sprintf("Moved '%s' to %s", subject, dest), map[string]any{
				"status": "moved", "id": id, "subject": subject, "from": mailbox, "to": dest,
			})
		},
	}
	addMailboxFlag(cmd, &mailbox)
	cmd.Flags().StringVar(&dest, "to", "", "Destination mailbox")
	return cmd
}

func newDeleteCmd(app *App) *cobra.Command {
	var mailbox string
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Move a message to the trash",
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
			subject, err := app.run(cmd.Context(), applescript.Delete(account, mailbox, id))
			if err != nil {
				return err
			}
			return app.emit("Deleted: "+subject, map[string]any{"status": "deleted", "id": id, "subject": subject})
		},
	}
	addMailboxFlag(cmd, &mailbox)
	return cmd
}

func newUnsubscribeCmd(app *App) *cobra.Command {
	var (
		mailbox string
		dryRun  bool
		open    bool
	)
	cmd := &cobra.Command{
		Use:   "unsubscribe <id>",
		Short: "Unsubscribe using the List-Unsubscribe header",
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
			block, err := app.run(ctx, applescript.Headers(account, mailbox, id))
			if err != nil {
				return err
			}
			sum, err := records.SummarizeHeaders(block)
			if err != nil {
				return fail("%s", err)
			}
			if sum.ListUnsubscribe == "" {
				return fail("No List-Unsubscribe header found on message %d", id)
			}
			httpURL, mailto := records.UnsubscribeTargets(sum.ListUnsubscribe)
			if httpURL == "" && mailto == "" {
				return fail("List-Unsubscribe header has no usable link: %s", sum.ListUnsubscribe)
			}

			payload := map[string]any{
				"id": id, "from": sum.From, "url": httpURL, "mailto": mailto, "one_click": sum.OneClick,
			}
			var b strings.Builder
			b.WriteString(app.styles().Header.Render("Unsubscribe: "+sum.From) + "\n")
			if httpURL != "" {
				fmt.Fprintf(&b, "  HTTPS: %s\n", httpURL)
			}
			if mailto != "" {
				fmt.Fprintf(&b, "  Mailto: %s\n", strings.TrimPrefix(mailto, "mailto:"))
			}

			switch {
			case dryRun:
				payload["status"] = "dry_run"
				b.WriteString("Dry run: nothing sent.")
			case httpURL != "" && sum.OneClick && !open:
				if err := app.oneClickUnsubscribe(ctx, httpURL); err != nil {
					return fail("one-click unsubscribe failed: %s", err)
				}
				payload["status"] = "unsubscribed"
				b.WriteString("Unsubscribed (one-click request accepted).")
			case httpURL != "" && open:
				if err := app.OpenURL(ctx, httpURL); err != nil {
					return fail("opening %s: %s", httpURL, err)
				}
				payload["status"] = "opened"
				b.WriteString("Opened unsubscribe page in your browser.")
			case mailto != "":
				addr, subject := parseMailto(mailto)
				if !mailaddr.LooksLikeEmail(addr) {
					return fail("Unsubscribe mailto has no valid address: %s", mailto)
				}
				if _, err := app.run(ctx, applescript.SaveDraft(applescript.Draft{
					Account: account, To: []string{addr}, Subject: subject, Body: "unsubscribe",
				})); err != nil {
					return err
				}
				payload["status"] = "draft_created"
				fmt.Fprintf(&b, "Unsubscribe draft created to %s. Send it from Drafts.", addr)
			default:
				payload["status"] = "manual"
				b.WriteString("Open the link above, or re-run with --open.")
			}
			return app.emit(b.String(), payload)
		},
	}
	addMailboxFlag(cmd, &mailbox)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the unsubscribe targets without acting")
	cmd.Flags().BoolVar(&open, "open", false, "Open the HTTPS link in the browser")
	return cmd
}

// oneClickUnsubscribe sends an RFC 8058 one-click POST.
func (a *App) oneClickUnsubscribe(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target,
		strings.NewReader("List-Unsubscribe=One-Click"))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := a.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	a.logger().Debug("one-click unsubscribe", zap.String("url", target), zap.Int("status", resp.StatusCode))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

// parseMailto splits "mailto:addr?subject=x" into the address and subject.
func parseMailto(target string) (addr, subject string) {
	subject = "unsubscribe"
	u, err := url.Parse(target)
	if err != nil {
		return strings.TrimPrefix(target, "mailto:"), subject
	}
	addr = u.Opaque
	if addr == "" {
		addr = u.Path
	}
	if s := u.Query().Get("subject"); s != "" {
		subject = s
	}
	return addr, subject
}

func newRulesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rules [enable|disable NAME]",
		Short: "List mail rules, or enable or disable one",
		Args: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) == 0:
				return nil
			case len(args) == 2 && (args[0] == "enable" || args[0] == "disable"):
				return nil
			default:
				return fail("usage: mxctl rules [enable|disable NAME]")
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 2 {
				enable := args[0] == "enable"
				name, err := app.run(ctx, applescript.SetRuleEnabled(args[1], enable))
				if err != nil {
					return err
				}
				state := "disabled"
				if enable {
					state = "enabled"
				}
				return app.emit(fmt.Sprintf("Rule '%s' %s.", name, state),
					map[string]any{"rule": name, "status": state})
			}

			raw, err := app.run(ctx, applescript.Rules())
			if err != nil {
				return err
			}
			rules := records.Rules(raw).Records
			if len(rules) == 0 {
				return app.emit("No mail rules found.", map[string]any{"rules": rules})
			}
			st := app.styles()
			var b strings.Builder
			b.WriteString(st.Header.Render(fmt.Sprintf("Mail rules (%d):", len(rules))) + "\n")
			for _, r := range rules {
				mark := st.Muted.Render("[off]")
				if r.Enabled {
					mark = st.Good.Render("[on] ")
				}
				fmt.Fprintf(&b, "  %s %s\n", mark, r.Name)
			}
			return app.emit(b.String(), map[string]any{"rules": rules})
		},
	}
}

func newCreateMailboxCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create-mailbox <name>",
		Short: "Create a mailbox in the account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return fail("mailbox name cannot be empty")
			}
			account, err := app.account()
			if err != nil {
				return err
			}
			created, err := app.run(cmd.Context(), applescript.CreateMailbox(account, name))
			if err != nil {
				return err
			}
			if created == "" {
				created = name
			}
			return app.emit(fmt.Sprintf("Created mailbox '%s' in %s.", created, account),
				map[string]any{"status": "created", "account": account, "mailbox": created})
		},
	}
}

// newJunkCmd builds junk and not-junk. Both set Mail.app's junk status so its
// filter learns from the correction, then move the message.
func newJunkCmd(app *App, use, short string, junk bool, fromDefault, toDefault string) *cobra.Command {
	var mailbox, dest string
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
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
			subject, err := app.run(cmd.Context(), applescript.SetJunk(account, mailbox, id, junk, dest))
			if err != nil {
				return err
			}
			status, label := "junk", "junk"
			if !junk {
				status, label = "not_junk", "not junk"
			}
			return app.emit(fmt.Sprintf("Marked as %s: %s (moved to %s)", label, subject, dest),
				map[string]any{"status": status, "id": id, "subject": subject, "from": mailbox, "to": dest})
		},
	}
	cmd.Flags().StringVarP(&mailbox, "mailbox", "m", fromDefault, "Mailbox the message is in")
	cmd.Flags().StringVar(&dest, "to", toDefault, "Mailbox to move it to")
	return cmd
}

func newOpenCmd(app *App) *cobra.Command {
	var mailbox string
	cmd := &cobra.Command{
		Use:   "open <id>",
		Short: "Open a message in Mail.app",
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
			subject, err := app.run(cmd.Context(), applescript.OpenMessage(account, mailbox, id))
			if err != nil {
				return err
			}
			return app.emit("Opened in Mail: "+subject, map[string]any{"status": "opened", "id": id, "subject": subject})
		},
	}
	addMailboxFlag(cmd, &mailbox)
	return cmd
}
