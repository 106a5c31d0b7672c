// Package cli is the mxctl command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/nhle/mxctl/internal/model"
)

const (
	groupSetup     = "setup"
	groupReading   = "reading"
	groupActions   = "actions"
	groupCompose   = "compose"
	groupManage    = "manage"
	groupBatch     = "batch"
	groupAnalytics = "analytics"
	groupExport    = "export"
)

// NewRootCmd builds the mxctl command tree bound to app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "mxctl",
		Short:         "Apple Mail from the terminal",
		Long:          "mxctl drives Mail.app through AppleScript: read, triage, batch-clean and export mail.",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(app.Out)
	root.SetErr(app.Err)
	root.SetVersionTemplate("mxctl {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.BoolVar(&app.flags.JSON, "json", false, "Output JSON")
	pf.StringVarP(&app.flags.Account, "account", "a", "", "Mail account name (default: configured account)")
	pf.BoolVar(&app.flags.Verbose, "verbose", false, "Log diagnostics to stderr")

	root.AddGroup(
		&cobra.Group{ID: groupSetup, Title: "Setup:"},
		&cobra.Group{ID: groupReading, Title: "Reading:"},
		&cobra.Group{ID: groupActions, Title: "Actions:"},
		&cobra.Group{ID: groupCompose, Title: "Compose:"},
		&cobra.Group{ID: groupManage, Title: "Manage:"},
		&cobra.Group{ID: groupBatch, Title: "Batch:"},
		&cobra.Group{ID: groupAnalytics, Title: "AI & Analytics:"},
		&cobra.Group{ID: groupExport, Title: "Export:"},
	)

	add := func(group string, cmds ...*cobra.Command) {
		for _, c := range cmds {
			c.GroupID = group
			root.AddCommand(c)
		}
	}

	add(groupSetup, newInitCmd(app), newCheckCmd(app), newAccountsCmd(app), newMailboxesCmd(app))
	add(groupReading,
		newInboxCmd(app), newCountCmd(app), newListCmd(app), newReadCmd(app),
		newSearchCmd(app), newThreadCmd(app), newContextCmd(app), newHeadersCmd(app),
	)
	add(groupActions,
		newMarkCmd(app, "mark-read", "Mark a message as read", "read status", true),
		newMarkCmd(app, "mark-unread", "Mark a message as unread", "read status", false),
		newMarkCmd(app, "flag", "Flag a message", "flagged status", true),
		newMarkCmd(app, "unflag", "Remove a message's flag", "flagged status", false),
		newMoveCmd(app), newDeleteCmd(app),
		newJunkCmd(app, "junk", "Mark a message as junk and move it to Junk", true, model.DefaultMailbox, "Junk"),
		newJunkCmd(app, "not-junk", "Mark a message as not junk and move it to INBOX", false, "Junk", model.DefaultMailbox),
		newUnsubscribeCmd(app), newOpenCmd(app), newRulesCmd(app),
	)
	add(groupCompose, newDraftCmd(app), newReplyCmd(app), newForwardCmd(app), newTemplatesCmd(app))
	add(groupManage, newCreateMailboxCmd(app), newDeleteMailboxCmd(app), newEmptyTrashCmd(app))
	add(groupBatch,
		newBatchReadCmd(app), newBatchFlagCmd(app), newBatchMoveCmd(app), newBatchDeleteCmd(app), newUndoCmd(app),
	)
	add(groupAnalytics,
		newSummaryCmd(app), newTriageCmd(app), newFindRelatedCmd(app), newDigestCmd(app), newTopSendersCmd(app),
		newShowFlaggedCmd(app), newWeeklyReviewCmd(app), newProcessInboxCmd(app),
		newCleanNewslettersCmd(app), newStatsCmd(app),
	)
	add(groupExport, newExportCmd(app), newAttachmentsCmd(app), newSaveAttachmentCmd(app), newToTodoistCmd(app))

	return root
}
