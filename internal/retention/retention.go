// Package retention enforces age and size limits on the scratch tier.
// Pinned content is never touched; deletion is recorded in the manifest as
// tombstones so history survives the files.
package retention

import (
	"sort"
	"time"

	"github.com/calebsh/offcut/internal/config"
	"github.com/calebsh/offcut/internal/manifest"
	"github.com/calebsh/offcut/internal/store"
)

// orphanGrace is how long an in-flight temp file may sit before the sweep
// treats it as abandoned by an interrupted command.
const orphanGrace = 5 * time.Minute

// minKeep is the floor on survivors: size pressure alone never deletes the
// last remaining output.
const minKeep = 1

// Summary reports what a sweep did (or would do, in dry-run).
type Summary struct {
	Scanned      int      `json:"scanned"`
	Deleted      int      `json:"deleted"`
	DeletedTemp  int      `json:"deleted_temp"`
	BytesFreed   int64    `json:"bytes_freed"`
	BytesInUse   int64    `json:"bytes_in_use"`
	DryRun       bool     `json:"dry_run,omitempty"`
	Errors       []string `json:"errors,omitempty"`
	DeletedIDs   []string `json:"deleted_ids,omitempty"`
	StaleAliases int      `json:"stale_aliases,omitempty"`
}

// Sweeper wires the sweep to its collaborators.
type Sweeper struct {
	Cfg   *config.Config
	Store *store.Store
	Log   *manifest.Log
}

// Sweep runs the three retention phases in order: orphaned temp files,
// expired TTLs, then size pressure (oldest first). Each deletion is
// independent; one failure is recorded and the sweep moves on.
func (sw *Sweeper) Sweep(now time.Time, dryRun bool) (*Summary, error) {
	sum := &Summary{DryRun: dryRun}
	files, err := sw.Store.ListScratch()
	if err != nil {
		return nil, err
	}
	sum.Scanned = len(files)

	pinned, err := sw.Log.PinnedIDs()
	if err != nil {
		return nil, err
	}

	var live []store.ScratchFile
	for _, f := range files {
		if f.Temp {
			if now.Sub(f.ModTime) > orphanGrace {
				sw.drop(f, "orphaned temp file", dryRun, sum)
				sum.DeletedTemp++
			}
			continue
		}
		if pinned[f.Info.ID] {
			// A pinned artifact's file should live in the pinned tier,
			// but if a copy lingers here the pin still protects it.
			live = append(live, f)
			continue
		}
		ttl := time.Duration(sw.Cfg.TTLMinutes(fileExit(f))) * time.Minute
		if now.Sub(f.ModTime) > ttl {
			sw.drop(f, "ttl expired", dryRun, sum)
			continue
		}
		live = append(live, f)
	}

	// Size pressure: delete oldest survivors until under the cap, keeping
	// at least minKeep and everything pinned.
	capBytes := int64(sw.Cfg.ScratchMaxMB) << 20
	var inUse int64
	for _, f := range live {
		inUse += f.Size
	}
	if inUse > capBytes {
		sort.Slice(live, func(i, j int) bool { return live[i].ModTime.Before(live[j].ModTime) })
		remaining := len(live)
		for _, f := range live {
			if inUse <= capBytes || remaining <= minKeep {
				break
			}
			if pinned[f.Info.ID] {
				continue
			}
			sw.drop(f, "size pressure", dryRun, sum)
			inUse -= f.Size
			remaining--
		}
	}
	sum.BytesInUse = inUse

	if !dryRun {
		sum.StaleAliases = sw.Store.PruneAliases()
	}
	return sum, nil
}

func (sw *Sweeper) drop(f store.ScratchFile, reason string, dryRun bool, sum *Summary) {
	if dryRun {
		sum.Deleted++
		sum.BytesFreed += f.Size
		if f.Info.ID != "" {
			sum.DeletedIDs = append(sum.DeletedIDs, f.Info.ID)
		}
		return
	}
	if err := sw.Store.Remove(f.Path); err != nil {
		sum.Errors = append(sum.Errors, f.Name+": "+err.Error())
		return
	}
	sum.Deleted++
	sum.BytesFreed += f.Size
	if f.Info.ID == "" {
		return
	}
	sum.DeletedIDs = append(sum.DeletedIDs, f.Info.ID)
	rec := manifest.Record{
		Type:      manifest.TypeTombstone,
		ID:        f.Info.ID,
		DeletedAt: time.Now().UTC(),
		Reason:    reason,
	}
	if err := sw.Log.Append(rec); err != nil {
		// The file is gone; the missing tombstone only costs history.
		sum.Errors = append(sum.Errors, f.Name+": tombstone: "+err.Error())
	}
}

func fileExit(f store.ScratchFile) int {
	if f.Info.Legacy {
		return 0
	}
	return f.Info.ExitCode
}
