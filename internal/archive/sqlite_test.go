package archive_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mxctl/internal/archive"
	"github.com/nhle/mxctl/internal/fields"
	"github.com/nhle/mxctl/internal/model"
	"github.com/nhle/mxctl/tests/testutil"
)

func TestMigrationsApplied(t *testing.T) {
	s := testutil.NewTestArchive(t)
	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.db")
	ctx := context.Background()

	s, err := archive.Open(path, nil)
	require.NoError(t, err)
	_, err = s.SaveExport(ctx, "iCloud", "INBOX", []model.Message{{ID: fields.IntID(1), Subject: "x"}}, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = archive.Open(path, nil)
	require.NoError(t, err)
	defer s.Close()
	rows, err := s.Messages(ctx, archive.Filter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSaveExportUpserts(t *testing.T) {
	s := testutil.NewTestArchive(t)
	ctx := context.Background()
	at := time.Date(2026, time.February, 14, 12, 0, 0, 0, time.UTC)

	msgs := []model.Message{
		{Account: "iCloud", Mailbox: "INBOX", ID: fields.IntID(1), Subject: "Hello",
			Sender: "Bob <Bob@Example.com>", Date: "Tuesday, January 14, 2026 at 2:30:00 PM", Flagged: true},
		{ID: fields.IntID(2), Subject: "Second", Sender: "alice@example.com", Date: "garbled", Read: true},
	}
	exp, err := s.SaveExport(ctx, "iCloud", "INBOX", msgs, at)
	require.NoError(t, err)
	assert.Equal(t, 2, exp.MessageCount)
	assert.NotEmpty(t, exp.ID)

	msgs[0].Subject = "Hello again"
	_, err = s.SaveExport(ctx, "iCloud", "INBOX", msgs[:1], at)
	require.NoError(t, err)

	rows, err := s.Messages(ctx, archive.Filter{Account: "iCloud"})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byID := map[string]archive.MessageRow{}
	for _, r := range rows {
		byID[r.MessageID] = r
	}
	assert.Equal(t, "Hello again", byID["1"].Subject)
	assert.Equal(t, "bob@example.com", byID["1"].SenderAddress)
	assert.Equal(t, "2026-01-14T14:30:00", byID["1"].DateReceived)
	assert.True(t, byID["1"].Flagged)
	assert.Equal(t, "INBOX", byID["2"].Mailbox)
	assert.Equal(t, "garbled", byID["2"].DateReceived)
	assert.True(t, byID["2"].Read)

	exps, err := s.Exports(ctx)
	require.NoError(t, err)
	assert.Len(t, exps, 2)
}

func TestMessagesFilter(t *testing.T) {
	s := testutil.NewTestArchive(t)
	ctx := context.Background()
	_, err := s.SaveExport(ctx, "Work", "INBOX", []model.Message{
		{ID: fields.IntID(1), Sender: "news@shop.com"},
		{ID: fields.IntID(2), Sender: "boss@work.com"},
		{ID: fields.IntID(3), Sender: "news@shop.com"},
	}, time.Now())
	require.NoError(t, err)

	rows, err := s.Messages(ctx, archive.Filter{Sender: "SHOP.com", Limit: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "news@shop.com", rows[0].SenderAddress)

	rows, err = s.Messages(ctx, archive.Filter{Mailbox: "Archive"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
