package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/mxctl/internal/applescript"
	"github.com/nhle/mxctl/internal/fields"
	"github.com/nhle/mxctl/internal/records"
)

// confirmed asks before a destructive step. force and --json skip the prompt.
func (a *App) confirmed(cmd *cobra.Command, force bool, title string) (bool, error) {
	if force || a.flags.JSON {
		return true, nil
	}
	return a.Prompter.Confirm(cmd.Context(), title)
}

func newDeleteMailboxCmd(app *App) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete-mailbox <name>",
		Short: "Delete a mailbox and the messages in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return fail("mailbox name cannot be empty")
			}
			if strings.EqualFold(name, "INBOX") {
				return fail("refusing to delete INBOX")
			}
			account, err := app.account()
			if err != nil {
				return err
			}
			ok, err := app.confirmed(cmd, force, fmt.Sprintf("Delete mailbox %q in %s and every message in it?", name, account))
			if err != nil {
				return err
			}
			if !ok {
				return app.emit("Kept mailbox '"+name+"'.", map[string]any{"status": "cancelled", "mailbox": name})
			}
			raw, err := app.run(cmd.Context(), applescript.DeleteMailbox(account, name))
			if err != nil {
				return err
			}
			n := fields.ParseInt(raw)
			return app.emit(fmt.Sprintf("Deleted mailbox '%s' in %s (%s).", name, account, plural(n, "message")),
				map[string]any{"status": "deleted", "account": account, "mailbox": name, "messages": n})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")
	return cmd
}

func newEmptyTrashCmd(app *App) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "empty-trash",
		Short: "Permanently erase the trash",
		Long:  "Permanently erase the trash of the -a account, or of every enabled account when -a is not given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scope := app.scope()
			label := scope
			if label == "" {
				label = "all accounts"
			}

			raw, err := app.run(ctx, applescript.TrashCount(scope))
			if err != nil {
				return err
			}
			pending := sumLines(raw)
			if pending == 0 {
				return app.emit("Trash is already empty ("+label+").", map[string]any{"status": "empty", "deleted": 0})
			}
			ok, err := app.confirmed(cmd, force, fmt.Sprintf("Permanently erase %s from the trash (%s)?", plural(pending, "message"), label))
			if err != nil {
				return err
			}
			if !ok {
				return app.emit("Trash left as is.", map[string]any{"status": "cancelled", "deleted": 0})
			}

			raw, err = app.run(ctx, applescript.EmptyTrash(scope))
			if err != nil {
				return err
			}
			n := sumLines(raw)
			return app.emit(fmt.Sprintf("Emptied trash (%s): %s erased.", label, plural(n, "message")),
				map[string]any{"status": "emptied", "deleted": n})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")
	return cmd
}

func sumLines(raw string) int {
	total := 0
	for _, l := range records.Lines(raw) {
		total += fields.ParseInt(l)
	}
	return total
}
