package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigAt(t *testing.T, dir string) string {
	t.Helper()
	cfgDir := filepath.Join(dir, ConfigDirName)
	require.NoError(t, os.MkdirAll(cfgDir, 0755))
	path := filepath.Join(cfgDir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("executable: /bin/true\n"), 0644))
	return path
}

func assertSamePath(t *testing.T, want, got string) {
	t.Helper()
	// On macOS, /var is a symlink to /private/var
	wantResolved, _ := filepath.EvalSymlinks(want)
	gotResolved, _ := filepath.EvalSymlinks(got)
	assert.Equal(t, wantResolved, gotResolved)
}

func TestDiscoverConfig_WalkUp(t *testing.T) {
	// root/
	//   .launchwarden/config.yaml
	//   subdir/deepdir/
	root := t.TempDir()
	configPath := writeConfigAt(t, root)

	deepdir := filepath.Join(root, "subdir", "deepdir")
	require.NoError(t, os.MkdirAll(deepdir, 0755))

	t.Setenv("HOME", t.TempDir())
	t.Chdir(deepdir)

	assertSamePath(t, configPath, DiscoverConfig())
}

func TestDiscoverConfig_InCurrentDir(t *testing.T) {
	root := t.TempDir()
	configPath := writeConfigAt(t, root)

	t.Setenv("HOME", t.TempDir())
	t.Chdir(root)

	assertSamePath(t, configPath, DiscoverConfig())
}

func TestDiscoverConfig_HomeFallback(t *testing.T) {
	home := t.TempDir()
	configPath := writeConfigAt(t, home)

	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	assertSamePath(t, configPath, DiscoverConfig())
}

func TestDiscoverConfig_NotFound(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	assert.Empty(t, DiscoverConfig())
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "bin", "server"), ExpandPath("~/bin/server"))
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
	assert.Equal(t, "rel/path", ExpandPath("rel/path"))
	assert.Equal(t, "~user/x", ExpandPath("~user/x"))
	assert.Equal(t, "", ExpandPath(""))
}
