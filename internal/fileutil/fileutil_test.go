package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "item.ics")

	require.NoError(t, AtomicWriteFile(path, []byte("BEGIN:VCALENDAR"), 0o600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCALENDAR", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestAtomicWriteFileOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "item.ics")

	require.NoError(t, AtomicWriteFile(path, []byte("old"), 0o600))
	require.NoError(t, AtomicWriteFile(path, []byte("new"), 0o600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestAtomicWriteFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, AtomicWriteFile(filepath.Join(dir, "item.ics"), []byte("x"), 0o600))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "item.ics", entries[0].Name())
}

func TestAtomicWriteFileMissingDir(t *testing.T) {
	err := AtomicWriteFile(filepath.Join(t.TempDir(), "missing", "item.ics"), []byte("x"), 0o600)
	require.Error(t, err)
}

func TestMakeDirsSynced(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")

	require.NoError(t, MakeDirsSynced(nested))
	assert.DirExists(t, nested)

	// Creating an existing path is a no-op.
	require.NoError(t, MakeDirsSynced(nested))
}

func TestSyncDirMissing(t *testing.T) {
	err := SyncDir(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
