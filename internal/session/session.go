// Package session tracks the active agent session: its identifier, when it
// started, and the startup inventory surfaced to a fresh context window.
package session

import (
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/calebsh/offcut/internal/errors"
)

// State is what session.json records.
type State struct {
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	WorkDir   string    `json:"work_dir,omitempty"`
}

const stateFile = "session.json"

// NewID mints a session ULID.
func NewID(now time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return id.String(), nil
}

// Start begins a new session, replacing any previous state file.
func Start(indexDir, workDir string, now time.Time) (*State, error) {
	id, err := NewID(now)
	if err != nil {
		return nil, err
	}
	st := &State{SessionID: id, StartedAt: now.UTC(), WorkDir: workDir}
	if err := write(indexDir, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Current returns the active session, starting one if none is recorded or
// the state file is unreadable.
func Current(indexDir, workDir string, now time.Time) (*State, error) {
	data, err := os.ReadFile(filepath.Join(indexDir, stateFile))
	if err == nil {
		var st State
		if json.Unmarshal(data, &st) == nil && st.SessionID != "" {
			return &st, nil
		}
	}
	return Start(indexDir, workDir, now)
}

func write(indexDir string, st *State) error {
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return errors.NewStorageFault("create index directory", err)
	}
	data, err := json.Marshal(st)
	if err != nil {
		return errors.NewInternal(err)
	}
	tmp := filepath.Join(indexDir, stateFile+".part")
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return errors.NewStorageFault("write session state", err)
	}
	if err := os.Rename(tmp, filepath.Join(indexDir, stateFile)); err != nil {
		os.Remove(tmp)
		return errors.NewStorageFault("finalize session state", err)
	}
	return nil
}

// gitignore lines the data directory appends for itself.
var ignoreLines = []string{
	".offcut/scratch/",
	".offcut/index/",
	".offcut/exports/",
}

// EnsureIgnored appends the data directory's ephemeral paths to repoDir's
// .gitignore if not already present. Pinned content is deliberately left
// trackable. Best effort; a read-only repo is not an error.
func EnsureIgnored(repoDir string) {
	path := filepath.Join(repoDir, ".gitignore")
	existing, _ := os.ReadFile(path)
	have := make(map[string]bool)
	for _, ln := range strings.Split(string(existing), "\n") {
		have[strings.TrimSpace(ln)] = true
	}
	var missing []string
	for _, ln := range ignoreLines {
		if !have[ln] {
			missing = append(missing, ln)
		}
	}
	if len(missing) == 0 {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	var b strings.Builder
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		b.WriteString("\n")
	}
	for _, ln := range missing {
		b.WriteString(ln + "\n")
	}
	f.WriteString(b.String())
}
