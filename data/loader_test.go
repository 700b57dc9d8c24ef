package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDatasetMissingRoot(t *testing.T) {
	_, err := LoadDataset(filepath.Join(t.TempDir(), "nope"), 1)
	assert.Error(t, err)
}

func TestLoadDatasetNoFolds(t *testing.T) {
	_, err := LoadDataset(t.TempDir(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestLoadDatasetRejectsNonIntegerLabelDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "foldA", "cat"), 0o755))

	_, err := LoadDataset(root, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cat")
}

func TestLoadDatasetRejectsZeroLabelDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "foldA", "0"), 0o755))

	_, err := LoadDataset(root, 1)
	assert.Error(t, err)
}

func TestListDirsSorted(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"b", "a", "c"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, d), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644))

	dirs, err := listDirs(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, dirs)
}
