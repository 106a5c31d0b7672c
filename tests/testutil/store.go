package testutil

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/nhle/mxctl/internal/archive"
)

// NewTestArchive creates a file-backed archive in a temp directory with all
// migrations applied. It automatically closes the store when the test
// completes.
func NewTestArchive(t *testing.T) *archive.Store {
	t.Helper()

	s, err := archive.Open(filepath.Join(t.TempDir(), "archive.db"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("creating test archive: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test archive: %v", err)
		}
	})

	return s
}
