// Package store manages artifact content on disk across the two tiers:
// ephemeral scratch output and permanent pinned files. The manifest owns the
// metadata; this package only moves bytes and keeps the tree shape.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/calebsh/offcut/internal/artifact"
	"github.com/calebsh/offcut/internal/errors"
)

// Store is the on-disk layout rooted at the data directory.
type Store struct {
	root string
}

// New returns a Store rooted at dataDir. No directories are created until
// the first write.
func New(dataDir string) *Store {
	return &Store{root: filepath.Clean(dataDir)}
}

// Root returns the data directory.
func (s *Store) Root() string { return s.root }

// ScratchDir is where ephemeral command outputs live.
func (s *Store) ScratchDir() string { return filepath.Join(s.root, "scratch", "tool_outputs") }

// PinnedDir is where pinned artifacts live, outside the retention sweep.
func (s *Store) PinnedDir() string { return filepath.Join(s.root, "memory", "pinned") }

// IndexDir holds the manifest log and session state.
func (s *Store) IndexDir() string { return filepath.Join(s.root, "index") }

// ExportDir holds generated reports.
func (s *Store) ExportDir() string { return filepath.Join(s.root, "exports") }

// Bootstrap creates the directory tree.
func (s *Store) Bootstrap() error {
	for _, dir := range []string{s.ScratchDir(), s.PinnedDir(), s.IndexDir(), s.ExportDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.NewStorageFault("create data directories", err)
		}
	}
	return nil
}

// WriteScratch writes content to the scratch tier under name, going through
// a temp file so interrupted writes never look like finished artifacts.
// Returns the final absolute path.
func (s *Store) WriteScratch(name string, content []byte) (string, error) {
	return s.writeVia(s.ScratchDir(), name, content)
}

// WritePinned writes content directly into the pinned tier.
func (s *Store) WritePinned(name string, content []byte) (string, error) {
	return s.writeVia(s.PinnedDir(), name, content)
}

// WriteExport writes a generated report.
func (s *Store) WriteExport(name string, content []byte) (string, error) {
	return s.writeVia(s.ExportDir(), name, content)
}

func (s *Store) writeVia(dir, name string, content []byte) (string, error) {
	if err := s.CheckWithin(filepath.Join(dir, name)); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.NewStorageFault("create directory", err)
	}
	final := filepath.Join(dir, name)
	tmp := final + ".part"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return "", errors.NewStorageFault("write content", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return "", errors.NewStorageFault("finalize content", err)
	}
	return final, nil
}

// Read returns the content at path after confining it to the data root.
// A missing file is reported as a storage fault; the caller maps it to an
// eviction error when the manifest says the artifact once existed.
func (s *Store) Read(path string) ([]byte, error) {
	if err := s.CheckWithin(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewStorageFault("read content", err)
	}
	return data, nil
}

// Exists reports whether the file at path is still on disk.
func (s *Store) Exists(path string) bool {
	if path == "" {
		return false
	}
	if err := s.CheckWithin(path); err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Promote moves a scratch file into the pinned tier and returns its new
// path. The move happens before the caller records the pin, so a crash
// in between leaves a recoverable file, never a dangling manifest entry.
func (s *Store) Promote(scratchPath string) (string, error) {
	if err := s.CheckWithin(scratchPath); err != nil {
		return "", err
	}
	if !s.Exists(scratchPath) {
		return "", errors.NewStorageFault("promote", fmt.Errorf("source missing: %s", scratchPath))
	}
	if err := os.MkdirAll(s.PinnedDir(), 0o755); err != nil {
		return "", errors.NewStorageFault("create pinned directory", err)
	}
	dest := filepath.Join(s.PinnedDir(), filepath.Base(scratchPath))
	if err := moveFile(scratchPath, dest); err != nil {
		return "", errors.NewStorageFault("promote", err)
	}
	return dest, nil
}

// Demote moves a pinned file back into the scratch tier, restoring it to
// the retention engine's jurisdiction. Returns the restored path.
func (s *Store) Demote(pinnedPath string) (string, error) {
	if err := s.CheckWithin(pinnedPath); err != nil {
		return "", err
	}
	if !s.Exists(pinnedPath) {
		return "", errors.NewStorageFault("demote", fmt.Errorf("source missing: %s", pinnedPath))
	}
	if err := os.MkdirAll(s.ScratchDir(), 0o755); err != nil {
		return "", errors.NewStorageFault("create scratch directory", err)
	}
	dest := filepath.Join(s.ScratchDir(), filepath.Base(pinnedPath))
	if err := moveFile(pinnedPath, dest); err != nil {
		return "", errors.NewStorageFault("demote", err)
	}
	return dest, nil
}

// Remove deletes the file at path if it is inside the data root. Missing
// files are not an error.
func (s *Store) Remove(path string) error {
	if err := s.CheckWithin(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.NewStorageFault("delete content", err)
	}
	return nil
}

// moveFile renames src to dest, falling back to copy+delete for
// cross-device moves.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return err
	}
	return os.Remove(src)
}

// CheckWithin rejects any path that resolves outside the data root. Every
// path read from the manifest goes through here before the store touches
// it, so a tampered manifest cannot reach the rest of the filesystem.
func (s *Store) CheckWithin(path string) error {
	if path == "" {
		return errors.NewPathViolation(path)
	}
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(s.root, abs)
	}
	abs = filepath.Clean(abs)
	rootAbs, err := filepath.Abs(s.root)
	if err != nil {
		return errors.NewPathViolation(path)
	}
	rel, err := filepath.Rel(rootAbs, abs)
	if err != nil {
		return errors.NewPathViolation(path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.NewPathViolation(path)
	}
	return nil
}

// ScratchFile is one file in the scratch tier, as seen by the retention
// sweep and usage accounting.
type ScratchFile struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
	Info    artifact.FileInfo
	Temp    bool
}

// ListScratch enumerates scratch-tier files. Aliases and unknown files are
// skipped; temp files are flagged rather than parsed.
func (s *Store) ListScratch() ([]ScratchFile, error) {
	entries, err := os.ReadDir(s.ScratchDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewStorageFault("list scratch", err)
	}
	var out []ScratchFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		f := ScratchFile{Name: name, Path: filepath.Join(s.ScratchDir(), name)}
		if artifact.IsTempFile(name) {
			f.Temp = true
		} else if info, ok := artifact.ParseFileName(name); ok {
			f.Info = info
		} else {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		f.Size = fi.Size()
		f.ModTime = fi.ModTime()
		out = append(out, f)
	}
	return out, nil
}

// ScratchUsage returns total bytes held by finished scratch outputs.
func (s *Store) ScratchUsage() (int64, int, error) {
	files, err := s.ListScratch()
	if err != nil {
		return 0, 0, err
	}
	var total int64
	count := 0
	for _, f := range files {
		if f.Temp {
			continue
		}
		total += f.Size
		count++
	}
	return total, count, nil
}
