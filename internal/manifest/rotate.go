package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// archiveGlob matches rotated manifests: manifest_YYYY-MM.jsonl and
// manifest_YYYY-MM_2.jsonl counter variants.
const archiveGlob = "manifest_*.jsonl"

// Archives returns rotated manifest paths, newest first by name.
func (l *Log) Archives() []string {
	matches, err := filepath.Glob(filepath.Join(l.dir, archiveGlob))
	if err != nil || len(matches) == 0 {
		return nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return matches
}

// Rotate moves the current manifest aside when it exceeds maxMB and prunes
// archives beyond keep. Returns the archive path when a rotation happened.
// Rotation never touches record content; the archived file stays readable
// through Tail.
func (l *Log) Rotate(maxMB, keep int, now time.Time) (string, error) {
	if maxMB <= 0 {
		maxMB = 50
	}
	info, err := os.Stat(l.Path())
	if err != nil || info.Size() == 0 {
		return "", nil
	}
	if info.Size() < int64(maxMB)*1024*1024 {
		return "", nil
	}

	stamp := now.Format("2006-01")
	target := filepath.Join(l.dir, fmt.Sprintf("manifest_%s.jsonl", stamp))
	for counter := 2; ; counter++ {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			break
		}
		target = filepath.Join(l.dir, fmt.Sprintf("manifest_%s_%d.jsonl", stamp, counter))
	}

	if err := os.Rename(l.Path(), target); err != nil {
		return "", err
	}
	// Fresh empty manifest so appenders do not recreate lazily mid-scan.
	if f, err := os.OpenFile(l.Path(), os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
		f.Close()
	}

	l.pruneArchives(keep)
	return target, nil
}

// pruneArchives removes rotated manifests beyond keep, oldest first.
// Failures are tolerated; pruning is housekeeping, not correctness.
func (l *Log) pruneArchives(keep int) {
	if keep <= 0 {
		keep = 5
	}
	archives := l.Archives()
	for i := keep; i < len(archives); i++ {
		os.Remove(archives[i])
	}
}
