package ops

import (
	"fmt"
	"strings"

	"github.com/calebsh/offcut/internal/artifact"
)

// InventoryOutput is the compact state summary surfaced at session start.
type InventoryOutput struct {
	SessionID    string `json:"session_id"`
	Artifacts    int    `json:"artifacts"`
	Pinned       int    `json:"pinned"`
	Failures     int    `json:"failures"`
	ScratchBytes int64  `json:"scratch_bytes"`
	ScratchFiles int    `json:"scratch_files"`
	LastFailure  string `json:"last_failure,omitempty"`
}

// Inventory summarizes what a fresh context window inherits: how much is
// stored, what is pinned, and the most recent failure still on disk.
func Inventory(env *Env) (*InventoryOutput, error) {
	out := &InventoryOutput{SessionID: env.SessionID}

	creations, err := env.Log.Creations(creationWindow, nil)
	if err != nil {
		return nil, err
	}
	out.Artifacts = len(creations)
	for _, r := range creations {
		if r.Exit() != 0 {
			out.Failures++
			if out.LastFailure == "" {
				out.LastFailure = fmt.Sprintf("[%s] %s e=%d %s", r.ID, r.Cmd, r.Exit(),
					artifact.FormatAge(r.CreatedAt, env.now()))
			}
		}
	}

	pinned, err := env.Log.PinnedIDs()
	if err != nil {
		return nil, err
	}
	out.Pinned = len(pinned)

	bytes, files, err := env.Store.ScratchUsage()
	if err != nil {
		return nil, err
	}
	out.ScratchBytes = bytes
	out.ScratchFiles = files
	return out, nil
}

// FormatInventory renders the one-line startup summary.
func FormatInventory(out *InventoryOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "offcut: %d artifacts (%s on disk, %d files), %d pinned, %d failing",
		out.Artifacts, artifact.FormatSize(out.ScratchBytes), out.ScratchFiles,
		out.Pinned, out.Failures)
	if out.LastFailure != "" {
		b.WriteString(" | last fail ")
		b.WriteString(out.LastFailure)
	}
	return b.String()
}
