package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/mxctl/internal/applescript"
	"github.com/nhle/mxctl/internal/credential"
	"github.com/nhle/mxctl/internal/model"
	"github.com/nhle/mxctl/internal/records"
)

func newInitCmd(app *App) *cobra.Command {
	var noInput, resetTodoist bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Choose a default account and store credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := model.LoadConfig(app.Paths)
			switch {
			case errors.Is(err, model.ErrNoConfig):
				cfg = &model.AppConfig{}
			case err != nil:
				return fail("reading config: %s", err)
			case cfg.Mail.DefaultAccount != "" && !noInput && app.flags.Account == "":
				again, err := app.Prompter.Confirm(ctx,
					fmt.Sprintf("Default account is %q. Reconfigure?", cfg.Mail.DefaultAccount))
				if err != nil {
					return err
				}
				if !again {
					return app.emit("Keeping existing configuration.", map[string]any{
						"status":          "unchanged",
						"default_account": cfg.Mail.DefaultAccount,
					})
				}
			}

			raw, err := app.run(ctx, applescript.Accounts())
			if err != nil {
				return err
			}
			accounts := records.Accounts(raw).Records
			if len(accounts) == 0 {
				return fail("No mail accounts found. Add an account in Mail.app first.")
			}
			enabled := make([]model.Account, 0, len(accounts))
			for _, a := range accounts {
				if a.Enabled {
					enabled = append(enabled, a)
				}
			}
			if len(enabled) == 0 {
				enabled = accounts
			}

			var lines []string
			var chosen string
			switch {
			case app.flags.Account != "":
				chosen = app.flags.Account
				if !hasAccount(accounts, chosen) {
					return fail("Account %q not found in Mail.app", chosen)
				}
			case len(enabled) == 1 || noInput:
				chosen = enabled[0].Name
				lines = append(lines, "Auto-selected account: "+chosen)
			default:
				chosen, err = app.Prompter.SelectAccount(ctx, enabled)
				if err != nil {
					return err
				}
			}
			cfg.Mail.DefaultAccount = chosen

			if resetTodoist {
				if err := app.Secrets.Delete(credential.TodoistTokenKey); err != nil && !errors.Is(err, credential.ErrNotFound) {
					return fail("removing Todoist token: %s", err)
				}
				lines = append(lines, "Removed stored Todoist token")
			}

			todoistConfigured := false
			if !noInput {
				token, err := app.Prompter.Secret(ctx, "Todoist API token (optional)",
					"Leave empty to skip. Used by to-todoist.")
				if err != nil {
					return err
				}
				if token != "" {
					todoistConfigured = true
					if err := app.Secrets.Set(credential.TodoistTokenKey, token); err != nil {
						app.logger().Debug("keyring unavailable, storing token in config", zap.Error(err))
						cfg.TodoistAPIToken = token
						lines = append(lines, "Keyring unavailable: Todoist token stored in config.json")
					}
				}
			}

			if err := model.SaveConfig(app.Paths, cfg); err != nil {
				return fail("saving config: %s", err)
			}
			lines = append(lines,
				"Default account: "+chosen,
				"Configuration saved to "+app.Paths.Config(),
			)
			return app.emit(strings.Join(lines, "\n"), map[string]any{
				"status":             "configured",
				"default_account":    chosen,
				"config_path":        app.Paths.Config(),
				"todoist_configured": todoistConfigured,
			})
		},
	}

	cmd.Flags().BoolVar(&noInput, "no-input", false, "Do not prompt; pick the first enabled account")
	cmd.Flags().BoolVar(&resetTodoist, "reset-todoist", false, "Remove the Todoist token from the keyring first")
	return cmd
}

func hasAccount(accounts []model.Account, name string) bool {
	for _, a := range accounts {
		if a.Name == name {
			return true
		}
	}
	return false
}

func newAccountsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List Mail.app accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := app.run(cmd.Context(), applescript.Accounts())
			if err != nil {
				return err
			}
			accounts := records.Accounts(raw).Records
			if len(accounts) == 0 {
				return app.emit("No mail accounts found.", map[string]any{"accounts": accounts})
			}

			st := app.styles()
			var b strings.Builder
			b.WriteString(st.Header.Render(fmt.Sprintf("Mail accounts (%d):", len(accounts))) + "\n")
			for _, a := range accounts {
				line := "  " + a.Name
				if a.Email != "" {
					line += " <" + a.Email + ">"
				}
				if !a.Enabled {
					line += st.Muted.Render(" (disabled)")
				}
				b.WriteString(line + "\n")
			}
			return app.emit(b.String(), map[string]any{"accounts": accounts})
		},
	}
}

func newMailboxesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "mailboxes",
		Short: "List mailboxes with unread counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := app.account()
			if err != nil {
				return err
			}
			raw, err := app.run(cmd.Context(), applescript.Mailboxes(account))
			if err != nil {
				return err
			}
			boxes := records.Mailboxes(raw).Records
			for i := range boxes {
				boxes[i].Account = account
			}
			if len(boxes) == 0 {
				return app.emit(fmt.Sprintf("No mailboxes found in %s.", account), map[string]any{"mailboxes": boxes})
			}

			var b strings.Builder
			b.WriteString(app.styles().Header.Render(fmt.Sprintf("Mailboxes [%s]:", account)) + "\n")
			for _, m := range boxes {
				if m.Unread > 0 {
					fmt.Fprintf(&b, "  %s (%d unread)\n", m.Name, m.Unread)
				} else {
					fmt.Fprintf(&b, "  %s\n", m.Name)
				}
			}
			return app.emit(b.String(), map[string]any{"account": account, "mailboxes": boxes})
		},
	}
}

func newCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fetch new mail now",
		Long:  "Ask Mail.app to check for new mail in the -a account, or in every account, then report INBOX unread counts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scope := app.scope()
			if _, err := app.run(ctx, applescript.CheckMail(scope)); err != nil {
				return err
			}
			raw, err := app.run(ctx, applescript.InboxCounts(scope))
			if err != nil {
				return err
			}
			boxes := records.InboxCounts(raw).Records

			var b strings.Builder
			b.WriteString("Checked for new mail.")
			for _, m := range boxes {
				fmt.Fprintf(&b, "\n  %s: %d unread", m.Account, m.Unread)
			}
			return app.emit(b.String(), map[string]any{"status": "checked", "inboxes": boxes})
		},
	}
}
