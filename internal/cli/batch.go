package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/mxctl/internal/applescript"
	"github.com/nhle/mxctl/internal/dates"
	"github.com/nhle/mxctl/internal/fields"
	"github.com/nhle/mxctl/internal/model"
	"github.com/nhle/mxctl/internal/records"
	"github.com/nhle/mxctl/internal/undo"
)

func (a *App) undoLog() undo.Log {
	return undo.Log{Path: a.Paths.UndoLog(), Now: a.now}
}

// batchSpec is one batch run: what to match, what to do, and how to log it.
type batchSpec struct {
	op      string
	verb    string // past tense, for the summary line
	account string
	mailbox string
	dest    string
	filter  applescript.Filter
	action  applescript.BatchAction
	limit   int
	dryRun  bool
}

func (a *App) runBatch(ctx context.Context, s batchSpec) error {
	limit := model.ValidateLimit(s.limit)
	payload := map[string]any{
		"operation": s.op, "account": s.account, "mailbox": s.mailbox, "dry_run": s.dryRun,
	}
	if s.dest != "" {
		payload["dest_mailbox"] = s.dest
	}

	if s.dryRun {
		raw, err := a.run(ctx, applescript.BatchCount(s.account, s.mailbox, s.filter))
		if err != nil {
			return err
		}
		n := min(fields.ParseInt(raw), limit)
		payload["would_affect"] = n
		return a.emit(fmt.Sprintf("Dry run: %s in %s would be %s.", plural(n, "message"), where(s.account, s.mailbox), s.passive()), payload)
	}

	raw, err := a.run(ctx, applescript.BatchApply(s.account, s.mailbox, s.filter, s.action, limit))
	if err != nil {
		return err
	}
	lines := records.Lines(raw)
	ids := make([]fields.MessageID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, fields.ParseID(strings.TrimSpace(l)))
	}
	payload["affected"] = len(ids)
	payload["ids"] = ids
	if len(ids) == 0 {
		return a.emit("No matching messages in "+where(s.account, s.mailbox)+".", payload)
	}

	entry := undo.Entry{
		Operation:     s.op,
		Account:       s.account,
		MessageIDs:    ids,
		SourceMailbox: s.mailbox,
		DestMailbox:   s.dest,
		Sender:        s.filter.Sender,
	}
	if err := a.undoLog().Append(entry); err != nil {
		return fail("recording undo entry: %s", err)
	}
	return a.emit(fmt.Sprintf("%s %s in %s. Run `mxctl undo` to revert.", s.verb, plural(len(ids), "message"), where(s.account, s.mailbox)), payload)
}

func (s batchSpec) passive() string {
	switch s.op {
	case undo.OpBatchRead:
		return "marked as read"
	case undo.OpBatchFlag:
		return "flagged"
	case undo.OpBatchMove:
		return "moved to " + s.dest
	default:
		return "deleted"
	}
}

func newBatchReadCmd(app *App) *cobra.Command {
	var (
		mailbox, from string
		limit         int
		dryRun        bool
	)
	cmd := &cobra.Command{
		Use:   "batch-read",
		Short: "Mark unread messages as read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := app.account()
			if err != nil {
				return err
			}
			return app.runBatch(cmd.Context(), batchSpec{
				op: undo.OpBatchRead, verb: "Marked as read", account: account, mailbox: mailbox,
				filter: applescript.Filter{Sender: from, UnreadOnly: true},
				action: applescript.ActionMarkRead, limit: limit, dryRun: dryRun,
			})
		},
	}
	addMailboxFlag(cmd, &mailbox)
	addLimitFlag(cmd, &limit, 50)
	cmd.Flags().StringVar(&from, "from", "", "Only messages whose sender contains this text")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Count matching messages without changing them")
	return cmd
}

func newBatchFlagCmd(app *App) *cobra.Command {
	var (
		mailbox, from string
		limit         int
		dryRun        bool
	)
	cmd := &cobra.Command{
		Use:   "batch-flag",
		Short: "Flag every message from a sender",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(from) == "" {
				return fail("--from is required")
			}
			account, err := app.account()
			if err != nil {
				return err
			}
			return app.runBatch(cmd.Context(), batchSpec{
				op: undo.OpBatchFlag, verb: "Flagged", account: account, mailbox: mailbox,
				filter: applescript.Filter{Sender: from},
				action: applescript.ActionFlag, limit: limit, dryRun: dryRun,
			})
		},
	}
	addMailboxFlag(cmd, &mailbox)
	addLimitFlag(cmd, &limit, 50)
	cmd.Flags().StringVar(&from, "from", "", "Sender to match")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Count matching messages without flagging them")
	return cmd
}

func newBatchMoveCmd(app *App) *cobra.Command {
	var (
		mailbox, from, dest string
		limit               int
		dryRun              bool
	)
	cmd := &cobra.Command{
		Use:   "batch-move",
		Short: "Move every message from a sender to another mailbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(from) == "" {
				return fail("--from is required")
			}
			if strings.TrimSpace(dest) == "" {
				return fail("--to-mailbox is required")
			}
			account, err := app.account()
			if err != nil {
				return err
			}
			return app.runBatch(cmd.Context(), batchSpec{
				op: undo.OpBatchMove, verb: "Moved", account: account, mailbox: mailbox, dest: dest,
				filter: applescript.Filter{Sender: from},
				action: applescript.ActionMoveTo(dest), limit: limit, dryRun: dryRun,
			})
		},
	}
	addMailboxFlag(cmd, &mailbox)
	addLimitFlag(cmd, &limit, 50)
	cmd.Flags().StringVar(&from, "from", "", "Sender to match")
	cmd.Flags().StringVar(&dest, "to-mailbox", "", "Destination mailbox")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Count matching messages without moving them")
	return cmd
}

func newBatchDeleteCmd(app *App) *cobra.Command {
	var (
		mailbox, from string
		olderThan     int
		limit         int
		dryRun        bool
	)
	cmd := &cobra.Command{
		Use:   "batch-delete",
		Short: "Trash messages by sender and/or age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(from) == "" && olderThan <= 0 {
				return fail("give --from, --older-than, or both")
			}
			account, err := app.account()
			if err != nil {
				return err
			}
			f := applescript.Filter{Sender: from}
			if olderThan > 0 {
				f.Before = dates.ToLongDate(app.now().AddDate(0, 0, -olderThan))
			}
			return app.runBatch(cmd.Context(), batchSpec{
				op: undo.OpBatchDelete, verb: "Deleted", account: account, mailbox: mailbox,
				filter: f, action: applescript.ActionDelete, limit: limit, dryRun: dryRun,
			})
		},
	}
	addMailboxFlag(cmd, &mailbox)
	addLimitFlag(cmd, &limit, 50)
	cmd.Flags().StringVar(&from, "from", "", "Sender to match")
	cmd.Flags().IntVar(&olderThan, "older-than", 0, "Only messages older than this many days")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Count matching messages without deleting them")
	return cmd
}

func newUndoCmd(app *App) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Revert the most recent batch operation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := app.undoLog()
			entries := log.Load()

			if list {
				if len(entries) == 0 {
					return app.emit("No recent batch operations to undo.", map[string]any{"operations": entries})
				}
				var b strings.Builder
				b.WriteString(app.styles().Header.Render("Recent batch operations:") + "\n")
				for i := len(entries) - 1; i >= 0; i-- {
					e := entries[i]
					fmt.Fprintf(&b, "  %d. %s (%s) %s", len(entries)-i, e.Operation, plural(len(e.MessageIDs), "message"), where(e.Account, e.SourceMailbox))
					if e.DestMailbox != "" {
						fmt.Fprintf(&b, " -> %s", e.DestMailbox)
					}
					fmt.Fprintf(&b, " at %s\n", e.Timestamp)
				}
				return app.emit(b.String(), map[string]any{"operations": entries})
			}

			if len(entries) == 0 {
				return app.emit("No recent batch operations to undo.", map[string]any{"status": "empty"})
			}
			last := entries[len(entries)-1]
			ids := make([]string, len(last.MessageIDs))
			for i, id := range last.MessageIDs {
				ids[i] = id.String()
			}

			var script, done string
			switch last.Operation {
			case undo.OpBatchMove:
				script = applescript.MoveByIDs(last.Account, last.DestMailbox, last.SourceMailbox, ids)
				done = "moved back to " + last.SourceMailbox
			case undo.OpBatchRead:
				script = applescript.SetPropertyByIDs(last.Account, last.SourceMailbox, ids, "read status", false)
				done = "marked unread"
			case undo.OpBatchFlag:
				script = applescript.SetPropertyByIDs(last.Account, last.SourceMailbox, ids, "flagged status", false)
				done = "unflagged"
			case undo.OpBatchDelete:
				script = applescript.RestoreFromTrash(last.Account, last.SourceMailbox, ids)
				done = "restored to " + last.SourceMailbox
			default:
				return fail("cannot undo unknown operation %q", last.Operation)
			}

			raw, err := app.run(cmd.Context(), script)
			if err != nil {
				return err
			}
			if _, _, err := log.Pop(); err != nil {
				return fail("updating undo log: %s", err)
			}
			n := fields.ParseInt(raw)
			return app.emit(
				fmt.Sprintf("Undid %s: %s %s.", last.Operation, plural(n, "message"), done),
				map[string]any{"status": "undone", "operation": last.Operation, "reverted": n, "entry": last},
			)
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "List recent batch operations instead of undoing")
	return cmd
}
