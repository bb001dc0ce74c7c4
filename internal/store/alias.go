package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/calebsh/offcut/internal/artifact"
	"github.com/calebsh/offcut/internal/errors"
)

// Aliases are convenience names in the scratch tier: LATEST.txt points at
// the newest output overall, LATEST_{cmd}.txt at the newest per command
// group. Symlinks when the filesystem supports them, single-line pointer
// files otherwise. Aliases are best-effort and never the source of truth;
// the manifest decides what "latest" means.

const aliasPrefix = "LATEST"

// AliasName returns the alias filename for a command group, or the global
// alias when group is empty.
func AliasName(group string) string {
	if group == "" {
		return aliasPrefix + ".txt"
	}
	return aliasPrefix + "_" + artifact.SafeLabel(group) + ".txt"
}

// IsAlias reports whether name is an alias file.
func IsAlias(name string) bool {
	return strings.HasPrefix(name, aliasPrefix)
}

// SetAlias points the alias for group at target, which must live in the
// scratch tier. Failure to write an alias is swallowed by callers; it only
// costs convenience.
func (s *Store) SetAlias(group, target string) error {
	if err := s.CheckWithin(target); err != nil {
		return err
	}
	aliasPath := filepath.Join(s.ScratchDir(), AliasName(group))
	os.Remove(aliasPath)
	if err := os.Symlink(filepath.Base(target), aliasPath); err == nil {
		return nil
	}
	// Pointer-file fallback for filesystems without symlinks.
	if err := os.WriteFile(aliasPath, []byte(filepath.Base(target)+"\n"), 0o644); err != nil {
		return errors.NewStorageFault("write alias", err)
	}
	return nil
}

// ResolveAlias returns the absolute path the alias for group points at.
// Returns ok=false when the alias is missing or stale (target gone).
func (s *Store) ResolveAlias(group string) (string, bool) {
	aliasPath := filepath.Join(s.ScratchDir(), AliasName(group))
	var targetName string
	if dest, err := os.Readlink(aliasPath); err == nil {
		targetName = dest
	} else {
		data, err := os.ReadFile(aliasPath)
		if err != nil {
			return "", false
		}
		targetName = strings.TrimSpace(string(data))
	}
	if targetName == "" || strings.ContainsRune(targetName, filepath.Separator) {
		return "", false
	}
	target := filepath.Join(s.ScratchDir(), targetName)
	if !s.Exists(target) {
		return "", false
	}
	return target, true
}

// DropAlias removes the alias for group if present.
func (s *Store) DropAlias(group string) {
	os.Remove(filepath.Join(s.ScratchDir(), AliasName(group)))
}

// PruneAliases removes aliases whose targets no longer exist. Returns how
// many were dropped.
func (s *Store) PruneAliases() int {
	entries, err := os.ReadDir(s.ScratchDir())
	if err != nil {
		return 0
	}
	dropped := 0
	for _, e := range entries {
		name := e.Name()
		if !IsAlias(name) {
			continue
		}
		group := AliasGroup(name)
		if _, ok := s.ResolveAlias(group); !ok {
			os.Remove(filepath.Join(s.ScratchDir(), name))
			dropped++
		}
	}
	return dropped
}

// AliasGroup recovers the command group an alias filename refers to.
func AliasGroup(name string) string {
	base := strings.TrimSuffix(name, ".txt")
	if base == aliasPrefix {
		return ""
	}
	return strings.TrimPrefix(base, aliasPrefix+"_")
}
