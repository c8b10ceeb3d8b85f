package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// DoomLoopThreshold is the number of identical consecutive tool calls that
// trigger detection.
const DoomLoopThreshold = 3

const doomLoopHistoryCap = 10

// DoomLoopDetector flags a tool call as repetitive once the preceding
// DoomLoopThreshold-1 calls hash identically to it. Adapted from
// permission.DoomLoopDetector, narrowed from a sessionID-keyed map to one
// history slice since a Loop already owns exactly one session.
type DoomLoopDetector struct {
	history []string
}

func NewDoomLoopDetector() *DoomLoopDetector {
	return &DoomLoopDetector{}
}

// Check records the call and reports whether it completes a doom loop.
func (d *DoomLoopDetector) Check(toolName string, input any) bool {
	hash := hashCall(toolName, input)

	isLoop := false
	if len(d.history) >= DoomLoopThreshold-1 {
		allSame := true
		start := len(d.history) - (DoomLoopThreshold - 1)
		for i := start; i < len(d.history); i++ {
			if d.history[i] != hash {
				allSame = false
				break
			}
		}
		isLoop = allSame
	}

	d.history = append(d.history, hash)
	if len(d.history) > doomLoopHistoryCap {
		d.history = d.history[len(d.history)-doomLoopHistoryCap:]
	}
	return isLoop
}

// Reset clears the recorded history, e.g. after a session switch.
func (d *DoomLoopDetector) Reset() {
	d.history = nil
}

func hashCall(toolName string, input any) string {
	data, _ := json.Marshal(map[string]any{"tool": toolName, "input": input})
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
