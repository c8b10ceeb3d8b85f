package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDoomLoopDetectorFlagsThirdIdenticalCall(t *testing.T) {
	d := NewDoomLoopDetector()

	assert.False(t, d.Check("shell", map[string]any{"command": "ls"}))
	assert.False(t, d.Check("shell", map[string]any{"command": "ls"}))
	assert.True(t, d.Check("shell", map[string]any{"command": "ls"}))
}

func TestDoomLoopDetectorIgnoresDifferentArguments(t *testing.T) {
	d := NewDoomLoopDetector()

	assert.False(t, d.Check("shell", map[string]any{"command": "ls"}))
	assert.False(t, d.Check("shell", map[string]any{"command": "pwd"}))
	assert.False(t, d.Check("shell", map[string]any{"command": "ls"}))
}

func TestDoomLoopDetectorResetClearsHistory(t *testing.T) {
	d := NewDoomLoopDetector()

	d.Check("shell", "x")
	d.Check("shell", "x")
	d.Reset()

	assert.False(t, d.Check("shell", "x"))
	assert.False(t, d.Check("shell", "x"))
}

func TestDoomLoopDetectorCapsHistory(t *testing.T) {
	d := NewDoomLoopDetector()

	for i := 0; i < 20; i++ {
		d.Check("shell", i)
	}
	assert.LessOrEqual(t, len(d.history), doomLoopHistoryCap)
}
