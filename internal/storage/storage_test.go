package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScratchTrackDirsAreUnique(t *testing.T) {
	s, err := NewScratch(t.TempDir(), "segsweep-")
	require.NoError(t, err)

	a, err := s.TrackDir("SALAMI_1")
	require.NoError(t, err)
	b, err := s.TrackDir("SALAMI_1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, s.BasePath, filepath.Dir(a))

	require.NoError(t, s.Close())
	_, err = os.Stat(s.BasePath)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaveTruncates(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "nested", "annot_bounds.json")
	_, err := Save(strings.NewReader("a much longer first payload"), dest)
	require.NoError(t, err)

	n, err := Save(strings.NewReader("short"), dest)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "short", string(data))
}
