package archive

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	account        TEXT NOT NULL,
	mailbox        TEXT NOT NULL,
	message_id     TEXT NOT NULL,
	subject        TEXT NOT NULL DEFAULT '',
	sender         TEXT NOT NULL DEFAULT '',
	sender_address TEXT NOT NULL DEFAULT '',
	date_received  TEXT NOT NULL DEFAULT '',
	read           INTEGER NOT NULL DEFAULT 0,
	flagged        INTEGER NOT NULL DEFAULT 0,
	exported_at    DATETIME NOT NULL,
	PRIMARY KEY (account, mailbox, message_id)
);

CREATE INDEX IF NOT EXISTS idx_messages_sender_address ON messages(sender_address);
CREATE INDEX IF NOT EXISTS idx_messages_date_received ON messages(date_received);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS exports (
	id          TEXT PRIMARY KEY,
	account     TEXT NOT NULL,
	mailbox     TEXT NOT NULL,
	message_count INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exports_created ON exports(created_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
