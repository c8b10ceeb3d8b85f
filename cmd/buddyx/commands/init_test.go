package commands

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInitWritesStarterProfile(t *testing.T) {
	t.Chdir(t.TempDir())
	flagInitForce = false

	require.NoError(t, runInit(nil, nil))

	data, err := os.ReadFile(initProfileFilename)
	require.NoError(t, err)

	var profile struct {
		ModelID  string `json:"model_id"`
		Protocol string `json:"protocol"`
	}
	require.NoError(t, json.Unmarshal(data, &profile))
	assert.NotEmpty(t, profile.ModelID)
	assert.Equal(t, "completions", profile.Protocol)
}

func TestRunInitRefusesToOverwriteWithoutForce(t *testing.T) {
	t.Chdir(t.TempDir())
	flagInitForce = false

	require.NoError(t, runInit(nil, nil))
	assert.Error(t, runInit(nil, nil))
}

func TestRunInitOverwritesWithForce(t *testing.T) {
	t.Chdir(t.TempDir())
	flagInitForce = false
	require.NoError(t, runInit(nil, nil))

	flagInitForce = true
	t.Cleanup(func() { flagInitForce = false })
	assert.NoError(t, runInit(nil, nil))
}
