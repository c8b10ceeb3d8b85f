package commands

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataDirHonorsXDGDataHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-test")
	assert.Equal(t, filepath.Join("/tmp/xdg-test", "buddyx"), dataDir())
}

func TestSessionDirAndAuthPathAreUnderDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-test2")
	assert.Equal(t, filepath.Join(dataDir(), "sessions"), sessionDir())
	assert.Equal(t, filepath.Join(dataDir(), "auth.json"), authPath())
}

func TestEnsureDataDirCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	assert.NoError(t, ensureDataDir())
	assert.DirExists(t, dataDir())
}
