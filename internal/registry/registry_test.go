package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMissingProjectReturnsErrNotRegistered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.yaml")
	_, err := Get(path, "nope")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestPutThenGetRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.yaml")

	require.NoError(t, Put(path, "demo", Project{
		RootDir:         "/home/dev/demo",
		WatchMode:       WatchRealtime,
		DebounceSeconds: 2,
		Enabled:         true,
	}))

	p, err := Get(path, "demo")
	require.NoError(t, err)
	assert.Equal(t, "/home/dev/demo", p.RootDir)
	assert.Equal(t, WatchRealtime, p.WatchMode)
	assert.True(t, p.Enabled)
}

func TestPutTwiceKeepsBothEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.yaml")

	require.NoError(t, Put(path, "a", Project{RootDir: "/a"}))
	require.NoError(t, Put(path, "b", Project{RootDir: "/b"}))

	names, err := Names(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestRemoveDeletesEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.yaml")
	require.NoError(t, Put(path, "demo", Project{RootDir: "/demo"}))
	require.NoError(t, Remove(path, "demo"))

	_, err := Get(path, "demo")
	assert.ErrorIs(t, err, ErrNotRegistered)
}
