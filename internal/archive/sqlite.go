// Package archive stores exported messages in a local SQLite database.
package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nhle/mxctl/internal/dates"
	"github.com/nhle/mxctl/internal/mailaddr"
	"github.com/nhle/mxctl/internal/model"
)

// Store is a SQLite message archive.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// MessageRow is an archived message.
type MessageRow struct {
	Account       string    `db:"account" json:"account"`
	Mailbox       string    `db:"mailbox" json:"mailbox"`
	MessageID     string    `db:"message_id" json:"id"`
	Subject       string    `db:"subject" json:"subject"`
	Sender        string    `db:"sender" json:"sender"`
	SenderAddress string    `db:"sender_address" json:"sender_address"`
	DateReceived  string    `db:"date_received" json:"date"`
	Read          bool      `db:"read" json:"read"`
	Flagged       bool      `db:"flagged" json:"flagged"`
	ExportedAt    time.Time `db:"exported_at" json:"exported_at"`
}

// Export is one recorded export run.
type Export struct {
	ID           string    `db:"id" json:"id"`
	Account      string    `db:"account" json:"account"`
	Mailbox      string    `db:"mailbox" json:"mailbox"`
	MessageCount int       `db:"message_count" json:"message_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Open opens (or creates) the archive at dbPath, enables WAL mode, and runs
// any pending schema migrations.
func Open(dbPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		s.logger.Debug("applying archive migration", zap.Int("version", m.version))
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.GetContext(ctx, &v, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// SaveExport upserts msgs and records the export run in one transaction.
// Dates are stored in ISO-8601 when they parse.
func (s *Store) SaveExport(ctx context.Context, account, mailbox string, msgs []model.Message, at time.Time) (*Export, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO messages (
			account, mailbox, message_id,
			subject, sender, sender_address, date_received,
			read, flagged, exported_at
		) VALUES (
			?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?
		)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		acct, mbox := m.Account, m.Mailbox
		if acct == "" {
			acct = account
		}
		if mbox == "" {
			mbox = mailbox
		}
		_, err = stmt.ExecContext(ctx,
			acct, mbox, m.ID.String(),
			m.Subject, m.Sender, strings.ToLower(mailaddr.ExtractEmail(m.Sender)), dates.ParseLongDate(m.Date),
			boolToInt(m.Read), boolToInt(m.Flagged), at.UTC(),
		)
		if err != nil {
			return nil, fmt.Errorf("upserting message %s: %w", m.ID, err)
		}
	}

	exp := &Export{
		ID:           uuid.New().String(),
		Account:      account,
		Mailbox:      mailbox,
		MessageCount: len(msgs),
		CreatedAt:    at.UTC(),
	}
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO exports (id, account, mailbox, message_count, created_at)
		VALUES (:id, :account, :mailbox, :message_count, :created_at)`, exp)
	if err != nil {
		return nil, fmt.Errorf("recording export: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing export: %w", err)
	}
	s.logger.Debug("archived messages", zap.String("account", account),
		zap.String("mailbox", mailbox), zap.Int("count", len(msgs)))
	return exp, nil
}

// Filter narrows Messages. Zero fields are ignored.
type Filter struct {
	Account string
	Mailbox string
	Sender  string
	Limit   int
}

// Messages returns archived messages, newest first.
func (s *Store) Messages(ctx context.Context, f Filter) ([]MessageRow, error) {
	var conditions []string
	var args []interface{}

	if f.Account != "" {
		conditions = append(conditions, "account = ?")
		args = append(args, f.Account)
	}
	if f.Mailbox != "" {
		conditions = append(conditions, "mailbox = ?")
		args = append(args, f.Mailbox)
	}
	if f.Sender != "" {
		conditions = append(conditions, "sender_address LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Sender)+"%")
	}

	query := "SELECT * FROM messages"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date_received DESC, message_id DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows := []MessageRow{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	return rows, nil
}

// Exports returns recorded export runs, newest first.
func (s *Store) Exports(ctx context.Context) ([]Export, error) {
	exps := []Export{}
	if err := s.db.SelectContext(ctx, &exps, "SELECT * FROM exports ORDER BY created_at DESC"); err != nil {
		return nil, fmt.Errorf("querying exports: %w", err)
	}
	return exps, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
