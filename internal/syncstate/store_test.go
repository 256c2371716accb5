package syncstate

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/iliassync/internal/logger"
)

func newTestStore(fsys afero.Fs, path string) *Store {
	return NewStore(fsys, path, logger.Discard())
}

func TestStore_LoadMissingFileIsEmpty(t *testing.T) {
	store := newTestStore(afero.NewMemMapFs(), "/data/state.json")

	state, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, state.Len())
	assert.Empty(t, state.Events())
}

func TestStore_SaveLoadPreservesContent(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := newTestStore(fsys, "/data/state.json")

	at := time.Date(2026, 10, 19, 14, 30, 0, 0, time.Local)
	state := New()
	state.Commit([]string{"a/b.txt", "a/c.txt"}, at)

	require.NoError(t, store.Save(state))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, state.SyncedFiles(), loaded.SyncedFiles())
	require.Len(t, loaded.Events(), 1)
	assert.True(t, at.Equal(loaded.Events()[0].Time))
	assert.Equal(t, []string{"a/b.txt", "a/c.txt"}, loaded.Events()[0].NewFiles)

	exists, err := afero.Exists(fsys, "/data/state.json.tmp")
	require.NoError(t, err)
	assert.False(t, exists, "temporary file must be renamed away")
}

func TestStore_SaveIsTabIndented(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := newTestStore(fsys, "/state.json")

	require.NoError(t, store.Save(New()))

	data, err := afero.ReadFile(fsys, "/state.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n\t\"synced_files\"")
}

func TestStore_LoadCorruptFileFails(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/state.json", []byte("{not json"), 0644))
	store := newTestStore(fsys, "/state.json")

	state, err := store.Load()
	assert.Nil(t, state)

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "parse", perr.Op)
	assert.Equal(t, "/state.json", perr.Path)
}

func TestStore_LoadUnreadableFileFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	fsys := afero.NewOsFs()
	require.NoError(t, fsys.Mkdir(path, 0755))

	_, err := newTestStore(fsys, path).Load()

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "read", perr.Op)
}

func TestStore_SaveFailureLeavesFileUntouched(t *testing.T) {
	base := afero.NewMemMapFs()
	original := []byte(`{"synced_files": ["old.txt"], "upload_events": []}`)
	require.NoError(t, afero.WriteFile(base, "/state.json", original, 0644))

	store := newTestStore(afero.NewReadOnlyFs(base), "/state.json")

	state := New()
	state.Commit([]string{"new.txt"}, time.Now())
	err := store.Save(state)

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "write", perr.Op)

	data, err := afero.ReadFile(base, "/state.json")
	require.NoError(t, err)
	assert.Equal(t, original, data)
}
