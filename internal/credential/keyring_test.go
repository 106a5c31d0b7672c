package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	var s Store = Memory{}

	_, err := s.Get(TodoistTokenKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(TodoistTokenKey, "tok"))
	got, err := s.Get(TodoistTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok", got)

	require.NoError(t, s.Delete(TodoistTokenKey))
	_, err = s.Get(TodoistTokenKey)
	assert.ErrorIs(t, err, ErrNotFound)
}
