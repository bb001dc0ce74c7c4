// Package manifest implements the append-only JSON Lines event log that is
// the source of truth for artifact state. Records are never edited in place;
// every state change is a new appended record, and derived state (pin status,
// tag sets) is recomputed by timestamp-ordered replay.
package manifest

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/calebsh/offcut/internal/errors"
)

// Record types. Consumers ignore unrecognized types forward-compatibly.
const (
	TypeOffload   = "offload"
	TypeManual    = "manual"
	TypeExport    = "export"
	TypePin       = "pin"
	TypeUnpin     = "unpin"
	TypeTag       = "tag"
	TypeTagRemove = "tag_remove"
	TypeNote      = "note"
	TypeTombstone = "tombstone"
	TypeOpen      = "open"
)

// Record is one immutable manifest line. Fields vary by Type; absent fields
// unmarshal to zero values and must never be treated as fatal. Each event
// kind that participates in ordered replay carries its own timestamp field.
type Record struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	// Creation fields (offload/manual/export).
	Cmd       string    `json:"cmd,omitempty"`
	CmdGroup  string    `json:"cmd_group,omitempty"`
	ExitCode  *int      `json:"exit_code,omitempty"`
	Bytes     int64     `json:"bytes,omitempty"`
	Lines     int       `json:"lines,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	Path      string    `json:"path,omitempty"`
	Title     string    `json:"title,omitempty"`
	Source    string    `json:"source,omitempty"`

	// Pin / unpin fields.
	PinnedAt     time.Time `json:"pinned_at,omitzero"`
	PinnedPath   string    `json:"pinned_path,omitempty"`
	AutoPinned   bool      `json:"auto_pinned,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	UnpinnedAt   time.Time `json:"unpinned_at,omitzero"`
	RestoredPath string    `json:"restored_path,omitempty"`

	// Tag / note fields.
	Tags      []string  `json:"tags,omitempty"`
	TaggedAt  time.Time `json:"tagged_at,omitzero"`
	RemovedAt time.Time `json:"removed_at,omitzero"`
	Note      string    `json:"note,omitempty"`
	NotedAt   time.Time `json:"noted_at,omitzero"`

	// Tombstone / open fields.
	DeletedAt time.Time `json:"deleted_at,omitzero"`
	OpenedAt  time.Time `json:"opened_at,omitzero"`
}

// IsCreation reports whether the record establishes an artifact.
func (r Record) IsCreation() bool {
	switch r.Type {
	case TypeOffload, TypeManual, TypeExport:
		return true
	}
	return false
}

// Exit returns the exit code, defaulting to 0 when absent (manual saves and
// exports have no exit code).
func (r Record) Exit() int {
	if r.ExitCode == nil {
		return 0
	}
	return *r.ExitCode
}

// EventTime returns the type-specific timestamp used for replay ordering.
// Line position must not be used across record types: clock skew between
// rapid appenders can make file order disagree with event order.
func (r Record) EventTime() time.Time {
	switch r.Type {
	case TypePin:
		return r.PinnedAt
	case TypeUnpin:
		return r.UnpinnedAt
	case TypeTag:
		return r.TaggedAt
	case TypeTagRemove:
		return r.RemovedAt
	case TypeNote:
		return r.NotedAt
	case TypeTombstone:
		return r.DeletedAt
	case TypeOpen:
		return r.OpenedAt
	default:
		return r.CreatedAt
	}
}

// FileName is the current manifest file name inside the index directory.
const FileName = "manifest.jsonl"

// maxLineBytes bounds a single manifest line during scans.
const maxLineBytes = 1 << 20

// Log is the manifest bound to an index directory.
type Log struct {
	dir string
}

// New returns a Log over indexDir. The directory and file are created lazily
// on first append; reads of a missing log yield nothing.
func New(indexDir string) *Log {
	return &Log{dir: indexDir}
}

// Path returns the current manifest file path.
func (l *Log) Path() string {
	return filepath.Join(l.dir, FileName)
}

// Append serializes rec as one JSON line and appends it durably: the write is
// flushed and synced to stable storage before Append returns. On error the
// event did not happen; callers must roll back any in-memory state change.
func (l *Log) Append(rec Record) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return errors.NewStorageFault("create index directory", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.NewInternal(err)
	}
	f, err := os.OpenFile(l.Path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.NewStorageFault("open manifest for append", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return errors.NewStorageFault("append manifest record", err)
	}
	if err := f.Sync(); err != nil {
		return errors.NewStorageFault("sync manifest", err)
	}
	return nil
}

// Scan reads the current manifest oldest-first, calling fn for each parsed
// record. Lines that fail to parse are skipped, not fatal: a torn concurrent
// append must not abort a read. fn returning false stops the scan. A missing
// or empty log scans zero records without error.
func (l *Log) Scan(fn func(Record) bool) error {
	return scanFile(l.Path(), fn)
}

func scanFile(path string, fn func(Record) bool) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.NewStorageFault("open manifest", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if !fn(rec) {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return errors.NewStorageFault("read manifest", err)
	}
	return nil
}

// Tail returns up to limit records newest-first, reading the current manifest
// and then rotated archives in reverse-chronological order. Archive reads are
// capped so a long history cannot make a tail read unbounded.
func (l *Log) Tail(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 1000
	}
	out := make([]Record, 0, min(limit, 256))

	collect := func(path string) error {
		var recs []Record
		if err := scanFile(path, func(r Record) bool {
			recs = append(recs, r)
			return true
		}); err != nil {
			return err
		}
		for i := len(recs) - 1; i >= 0 && len(out) < limit; i-- {
			out = append(out, recs[i])
		}
		return nil
	}

	if err := collect(l.Path()); err != nil {
		return nil, err
	}
	if len(out) >= limit {
		return out, nil
	}
	for _, archive := range l.Archives() {
		if err := collect(archive); err != nil {
			// A damaged archive should not block reading the rest.
			continue
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// MalformedCount reports how many lines of the current manifest fail to parse
// as JSON. Used by doctor.
func (l *Log) MalformedCount() int {
	f, err := os.Open(l.Path())
	if err != nil {
		return 0
	}
	defer f.Close()

	count := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			count++
		}
	}
	return count
}
