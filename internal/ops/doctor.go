package ops

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/calebsh/offcut/internal/artifact"
	"github.com/calebsh/offcut/internal/store"
)

// DoctorOutput is the health report.
type DoctorOutput struct {
	Healthy         bool     `json:"healthy"`
	StorageWritable bool     `json:"storage_writable"`
	ScratchBytes    int64    `json:"scratch_bytes"`
	ScratchCapBytes int64    `json:"scratch_cap_bytes"`
	ScratchFiles    int      `json:"scratch_files"`
	PinnedFiles     int      `json:"pinned_files"`
	MalformedLines  int      `json:"malformed_lines"`
	OrphanFiles     []string `json:"orphan_files,omitempty"`
	StaleAliases    int      `json:"stale_aliases,omitempty"`
	Problems        []string `json:"problems,omitempty"`
}

// Doctor checks the store end to end: writability, size against the cap,
// manifest integrity, and content files no manifest record references
// (the debris a crash between a file move and its append leaves behind).
func Doctor(env *Env) (*DoctorOutput, error) {
	out := &DoctorOutput{Healthy: true}
	problem := func(format string, args ...any) {
		out.Problems = append(out.Problems, fmt.Sprintf(format, args...))
		out.Healthy = false
	}

	// Writability probe.
	probe := filepath.Join(env.Store.ScratchDir(), ".doctor_probe")
	if err := os.MkdirAll(env.Store.ScratchDir(), 0o755); err != nil {
		problem("scratch directory cannot be created: %v", err)
	} else if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		problem("scratch directory is not writable: %v", err)
	} else {
		out.StorageWritable = true
		os.Remove(probe)
	}

	bytes, count, err := env.Store.ScratchUsage()
	if err != nil {
		problem("scratch usage unreadable: %v", err)
	}
	out.ScratchBytes = bytes
	out.ScratchFiles = count
	out.ScratchCapBytes = int64(env.Cfg.ScratchMaxMB) << 20
	if out.ScratchBytes > out.ScratchCapBytes {
		problem("scratch holds %s, over the %dMB cap; run cleanup", artifact.FormatSize(out.ScratchBytes), env.Cfg.ScratchMaxMB)
	}

	out.MalformedLines = env.Log.MalformedCount()
	if out.MalformedLines > 0 {
		problem("manifest has %d malformed line(s); scans skip them", out.MalformedLines)
	}

	known, err := env.Log.KnownIDs()
	if err != nil {
		return nil, err
	}
	files, err := env.Store.ListScratch()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.Temp {
			continue
		}
		if !known[f.Info.ID] {
			out.OrphanFiles = append(out.OrphanFiles, f.Name)
		}
	}
	if pinned, err := os.ReadDir(env.Store.PinnedDir()); err == nil {
		for _, e := range pinned {
			if e.IsDir() {
				continue
			}
			info, ok := artifact.ParseFileName(e.Name())
			if !ok {
				continue
			}
			out.PinnedFiles++
			if !known[info.ID] {
				out.OrphanFiles = append(out.OrphanFiles, filepath.Join("pinned", e.Name()))
			}
		}
	}
	if len(out.OrphanFiles) > 0 {
		problem("%d content file(s) have no manifest record", len(out.OrphanFiles))
	}

	// Count stale aliases without removing them; cleanup owns mutation.
	if entries, err := os.ReadDir(env.Store.ScratchDir()); err == nil {
		for _, e := range entries {
			if !store.IsAlias(e.Name()) {
				continue
			}
			if _, ok := env.Store.ResolveAlias(store.AliasGroup(e.Name())); !ok {
				out.StaleAliases++
			}
		}
	}
	if out.StaleAliases > 0 {
		problem("%d stale latest-alias(es); the next sweep prunes them", out.StaleAliases)
	}

	return out, nil
}
