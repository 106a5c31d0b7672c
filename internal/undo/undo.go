// Package undo keeps a short log of batch operations so the most recent one
// can be reverted.
package undo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nhle/mxctl/internal/dates"
	"github.com/nhle/mxctl/internal/fields"
)

// MaxEntries is the number of operations kept; older ones are dropped first.
const MaxEntries = 10

// Operation names recorded in the log.
const (
	OpBatchRead   = "batch-read"
	OpBatchFlag   = "batch-flag"
	OpBatchMove   = "batch-move"
	OpBatchDelete = "batch-delete"
)

// Entry is one recorded batch operation.
type Entry struct {
	Operation     string             `json:"operation"`
	Account       string             `json:"account"`
	MessageIDs    []fields.MessageID `json:"message_ids"`
	SourceMailbox string             `json:"source_mailbox,omitempty"`
	DestMailbox   string             `json:"dest_mailbox,omitempty"`
	Sender        string             `json:"sender,omitempty"`
	Timestamp     string             `json:"timestamp"`
}

// Log is the undo log file, newest entry last.
type Log struct {
	Path string

	// Now stamps new entries; defaults to time.Now.
	Now func() time.Time
}

// Load returns the logged entries, oldest first. A missing or unreadable
// file is an empty log.
func (l Log) Load() []Entry {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return []Entry{}
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil || entries == nil {
		return []Entry{}
	}
	return entries
}

// Append records e, stamping it when it has no timestamp, and evicts the
// oldest entries beyond MaxEntries.
func (l Log) Append(e Entry) error {
	if e.Timestamp == "" {
		now := time.Now
		if l.Now != nil {
			now = l.Now
		}
		e.Timestamp = now().Format(dates.ISOLayout)
	}
	if e.MessageIDs == nil {
		e.MessageIDs = []fields.MessageID{}
	}
	entries := append(l.Load(), e)
	if len(entries) > MaxEntries {
		entries = entries[len(entries)-MaxEntries:]
	}
	return l.write(entries)
}

// Pop removes and returns the newest entry. ok is false when the log is
// empty.
func (l Log) Pop() (e Entry, ok bool, err error) {
	entries := l.Load()
	if len(entries) == 0 {
		return Entry{}, false, nil
	}
	e = entries[len(entries)-1]
	if err := l.write(entries[:len(entries)-1]); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (l Log) write(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding undo log: %w", err)
	}
	dir := filepath.Dir(l.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating undo log directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".mail-undo-*.json")
	if err != nil {
		return fmt.Errorf("writing undo log: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing undo log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing undo log: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.Path); err != nil {
		return fmt.Errorf("replacing undo log %s: %w", l.Path, err)
	}
	return nil
}
