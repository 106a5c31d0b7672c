package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/mxctl/internal/applescript"
	"github.com/nhle/mxctl/internal/archive"
	"github.com/nhle/mxctl/internal/credential"
	"github.com/nhle/mxctl/internal/mailaddr"
	"github.com/nhle/mxctl/internal/model"
	"github.com/nhle/mxctl/internal/records"
	"github.com/nhle/mxctl/internal/todoist"
)

func newExportCmd(app *App) *cobra.Command {
	var (
		dbPath  string
		mailbox string
		limit   int
		show    bool
		from    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Archive messages into a local SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(dbPath) == "" {
				return fail("--db is required")
			}
			ctx := cmd.Context()
			if show {
				return showArchive(app, cmd, dbPath, mailbox, from, limit)
			}
			if mailbox == "" {
				mailbox = model.DefaultMailbox
			}

			account, err := app.account()
			if err != nil {
				return err
			}
			raw, err := app.run(ctx, applescript.ExportMessages(account, mailbox, model.ValidateLimit(limit)))
			if err != nil {
				return err
			}
			res := records.Archived(raw)
			if res.Malformed > 0 {
				app.logger().Debug("skipped malformed export records", zap.Int("count", res.Malformed))
			}
			if len(res.Records) == 0 {
				return app.emit("No messages found in "+where(account, mailbox)+".",
					map[string]any{"exported": 0, "db": dbPath})
			}

			store, err := archive.Open(dbPath, app.logger())
			if err != nil {
				return fail("opening archive %s: %s", dbPath, err)
			}
			defer store.Close()

			exp, err := store.SaveExport(ctx, account, mailbox, res.Records, app.now())
			if err != nil {
				return fail("%s", err)
			}
			return app.emit(
				fmt.Sprintf("Exported %s from %s to %s", plural(exp.MessageCount, "message"), where(account, mailbox), dbPath),
				map[string]any{"exported": exp.MessageCount, "db": dbPath, "export": exp},
			)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite archive path")
	cmd.Flags().StringVarP(&mailbox, "mailbox", "m", "", "Mailbox name (default INBOX when exporting)")
	addLimitFlag(cmd, &limit, 100)
	cmd.Flags().BoolVar(&show, "show", false, "List archived messages instead of exporting")
	cmd.Flags().StringVar(&from, "from", "", "With --show, only senders containing this text")
	return cmd
}

func showArchive(app *App, cmd *cobra.Command, dbPath, mailbox, from string, limit int) error {
	if _, err := os.Stat(dbPath); err != nil {
		return fail("archive %s not found", dbPath)
	}
	store, err := archive.Open(dbPath, app.logger())
	if err != nil {
		return fail("opening archive %s: %s", dbPath, err)
	}
	defer store.Close()

	ctx := cmd.Context()
	rows, err := store.Messages(ctx, archive.Filter{
		Account: app.scope(), Mailbox: mailbox, Sender: from, Limit: model.ValidateLimit(limit),
	})
	if err != nil {
		return fail("%s", err)
	}
	exps, err := store.Exports(ctx)
	if err != nil {
		return fail("%s", err)
	}
	payload := map[string]any{"db": dbPath, "exports": exps, "messages": rows}
	if len(rows) == 0 {
		return app.emit("No archived messages match.", payload)
	}

	st := app.styles()
	var b strings.Builder
	b.WriteString(st.Header.Render(fmt.Sprintf("Archive %s (%s):", dbPath, plural(len(exps), "export"))) + "\n")
	if len(exps) > 0 {
		b.WriteString(st.Muted.Render("  Last export: "+exps[0].CreatedAt.Local().Format("2006-01-02 15:04")) + "\n")
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "  [%s] %s - %s %s\n", r.MessageID, r.Subject, r.SenderAddress,
			st.Muted.Render("("+r.DateReceived+", "+where(r.Account, r.Mailbox)+")"))
	}
	return app.emit(b.String(), payload)
}

func newAttachmentsCmd(app *App) *cobra.Command {
	var mailbox string
	cmd := &cobra.Command{
		Use:   "attachments <id>",
		Short: "List a message's attachments",
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
			raw, err := app.run(cmd.Context(), applescript.Attachments(account, mailbox, id))
			if err != nil {
				return err
			}
			subject, atts := records.AttachmentList(raw)
			payload := map[string]any{"id": id, "subject": subject, "attachments": atts}
			if len(atts) == 0 {
				return app.emit(fmt.Sprintf("No attachments on: %s", subject), payload)
			}
			var b strings.Builder
			b.WriteString(app.styles().Header.Render(fmt.Sprintf("Attachments on '%s' (%d):", subject, len(atts))) + "\n")
			for _, a := range atts {
				fmt.Fprintf(&b, "  %d. %s\n", a.Index, a.Name)
			}
			return app.emit(b.String(), payload)
		},
	}
	addMailboxFlag(cmd, &mailbox)
	return cmd
}

// pickAttachment resolves a 1-based index or an exact name.
func pickAttachment(atts []model.Attachment, which string) (model.Attachment, bool) {
	if n, err := strconv.Atoi(which); err == nil {
		if n >= 1 && n <= len(atts) {
			return atts[n-1], true
		}
	}
	for _, a := range atts {
		if a.Name == which {
			return a, true
		}
	}
	return model.Attachment{}, false
}

func newSaveAttachmentCmd(app *App) *cobra.Command {
	var mailbox, dir string
	cmd := &cobra.Command{
		Use:   "save-attachment <id> <name|index>",
		Short: "Save one attachment to disk",
		Args:  cobra.ExactArgs(2),
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
			raw, err := app.run(ctx, applescript.Attachments(account, mailbox, id))
			if err != nil {
				return err
			}
			_, atts := records.AttachmentList(raw)
			if len(atts) == 0 {
				return fail("No attachments on message %d", id)
			}
			att, ok := pickAttachment(atts, args[1])
			if !ok {
				names := make([]string, len(atts))
				for i, a := range atts {
					names[i] = a.Name
				}
				return fail("Attachment '%s' not found. Available: %s", args[1], strings.Join(names, ", "))
			}

			if dir == "" {
				dir = defaultDownloadDir()
			}
			abs, err := filepath.Abs(dir)
			if err != nil {
				return fail("resolving %s: %s", dir, err)
			}
			target := filepath.Join(abs, filepath.Base(att.Name))
			if _, err := app.run(ctx, applescript.SaveAttachment(account, mailbox, id, att.Name, target)); err != nil {
				return err
			}
			if _, err := os.Stat(target); err != nil {
				return fail("Attachment was not written to %s", target)
			}
			return app.emit(fmt.Sprintf("Saved attachment: %s -> %s", att.Name, target),
				map[string]any{"status": "saved", "name": att.Name, "path": target})
		},
	}
	addMailboxFlag(cmd, &mailbox)
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory to save into (default ~/Downloads)")
	return cmd
}

func defaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

// todoistToken reads the token from config, then the keyring.
func (a *App) todoistToken() string {
	if cfg, err := model.LoadConfig(a.Paths); err == nil && strings.TrimSpace(cfg.TodoistAPIToken) != "" {
		return strings.TrimSpace(cfg.TodoistAPIToken)
	}
	if a.Secrets == nil {
		return ""
	}
	token, err := a.Secrets.Get(credential.TodoistTokenKey)
	if err != nil {
		if !errors.Is(err, credential.ErrNotFound) {
			a.logger().Debug("reading todoist token", zap.Error(err))
		}
		return ""
	}
	return token
}

func newToTodoistCmd(app *App) *cobra.Command {
	var (
		mailbox, project, due string
		priority              int
	)
	cmd := &cobra.Command{
		Use:   "to-todoist <id>",
		Short: "Turn a message into a Todoist task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if priority < 1 || priority > 4 {
				return fail("--priority must be between 1 and 4")
			}
			token := app.todoistToken()
			if token == "" {
				return fail("Todoist API token not configured. Run `mxctl init` or set todoist_api_token in config.json")
			}
			account, err := app.account()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			raw, err := app.run(ctx, applescript.TaskSource(account, mailbox, id))
			if err != nil {
				return err
			}
			src, ok := records.TaskSource(raw)
			if !ok {
				return fail("Could not read message %d in %s", id, where(account, mailbox))
			}

			req := todoist.TaskRequest{
				Content:     "Email: " + src.Subject,
				Description: fmt.Sprintf("From: %s\nDate: %s\nAccount: %s", mailaddr.SenderLabel(src.Sender), src.Date, account),
				ProjectID:   project,
				Priority:    priority,
				DueString:   due,
			}
			task, err := app.NewTodoist(token).CreateTask(ctx, req)
			if err != nil {
				if todoist.IsAuthError(err) {
					return fail("Todoist rejected the API token. Run `mxctl init` to replace it")
				}
				return fail("creating Todoist task: %s", err)
			}
			text := "Created Todoist task: " + task.Content
			if task.URL != "" {
				text += "\n  " + task.URL
			}
			return app.emit(text, task)
		},
	}
	addMailboxFlag(cmd, &mailbox)
	cmd.Flags().StringVar(&project, "project", "", "Todoist project id")
	cmd.Flags().IntVar(&priority, "priority", 1, "Priority 1 (normal) to 4 (urgent)")
	cmd.Flags().StringVar(&due, "due", "", "Due date in Todoist natural language, e.g. \"tomorrow\"")
	return cmd
}
