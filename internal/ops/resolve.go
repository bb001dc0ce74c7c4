package ops

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/calebsh/offcut/internal/artifact"
	"github.com/calebsh/offcut/internal/errors"
	"github.com/calebsh/offcut/internal/manifest"
)

// ResolveInput is a selector plus optional shortcut modifiers.
type ResolveInput struct {
	// Selector is a positional number, an 8-hex ID, a command label or
	// group, a title, or the shortcut words "last" / "last-fail".
	Selector string
	// Cmd narrows shortcut resolution to one command label or group.
	Cmd string
	// Failing narrows shortcut resolution to non-zero exit codes.
	Failing bool
	// Nth selects the nth newest shortcut match, 1-based. Zero means first.
	Nth int
}

// Resolve maps a selector to a canonical artifact ID.
//
// Order: positional number against the last persisted listing snapshot,
// literal 8-hex ID (no existence check), then exact command label, group,
// or title match, newest first. Shortcut modifiers take a separate path
// over creation records. An empty selector with no shortcut modifiers is
// always an error; "most recent" must be asked for explicitly.
func Resolve(env *Env, in ResolveInput) (string, error) {
	sel := strings.TrimSpace(in.Selector)

	if sel == "last" || sel == "last-fail" {
		if sel == "last-fail" {
			in.Failing = true
		}
		sel = ""
	}
	if sel == "" {
		if in.Nth == 0 && !in.Failing && in.Cmd == "" {
			return "", errors.NewInvalidRequest("selector is required; use \"last\" for the most recent artifact")
		}
		return resolveShortcut(env, in)
	}
	if in.Nth > 0 || in.Failing {
		return "", errors.NewInvalidRequest("shortcut modifiers cannot be combined with an explicit selector")
	}

	if n, err := strconv.Atoi(sel); err == nil && n > 0 && len(sel) <= 4 {
		return resolvePositional(env, n)
	}

	if artifact.IsID(sel) {
		return strings.ToUpper(sel), nil
	}

	return resolveByLabel(env, sel)
}

func resolveShortcut(env *Env, in ResolveInput) (string, error) {
	nth := in.Nth
	if nth == 0 {
		nth = 1
	}
	group := env.Cfg.Group(in.Cmd)
	seen := 0
	var found string
	err := scanCreationsNewestFirst(env, func(r manifest.Record) bool {
		if in.Cmd != "" && r.Cmd != in.Cmd && r.CmdGroup != group {
			return true
		}
		if in.Failing && r.Exit() == 0 {
			return true
		}
		seen++
		if seen == nth {
			found = r.ID
			return false
		}
		return true
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", errors.NewNotFound(shortcutDesc(in, nth), "run the recent listing to see what exists")
	}
	return found, nil
}

func shortcutDesc(in ResolveInput, nth int) string {
	var b strings.Builder
	b.WriteString("recent #" + strconv.Itoa(nth))
	if in.Failing {
		b.WriteString(" failing")
	}
	if in.Cmd != "" {
		b.WriteString(" for " + in.Cmd)
	}
	return b.String()
}

func resolvePositional(env *Env, n int) (string, error) {
	ids, err := loadSnapshot(env)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", errors.NewNotFound(strconv.Itoa(n), "no listing snapshot exists; run the recent listing first")
	}
	if n > len(ids) {
		return "", errors.NewNotFound(strconv.Itoa(n), "the last listing had only "+strconv.Itoa(len(ids))+" entries")
	}
	return ids[n-1], nil
}

func resolveByLabel(env *Env, sel string) (string, error) {
	group := env.Cfg.Group(sel)
	var found string
	err := scanCreationsNewestFirst(env, func(r manifest.Record) bool {
		if r.Cmd == sel || r.CmdGroup == sel || r.CmdGroup == group || (r.Title != "" && r.Title == sel) {
			found = r.ID
			return false
		}
		return true
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", errors.NewNotFound(sel, "selectors match command labels exactly; run the recent listing to see what exists")
	}
	return found, nil
}

// scanCreationsNewestFirst walks creation records newest-first over a
// bounded window, stopping when fn returns false.
func scanCreationsNewestFirst(env *Env, fn func(manifest.Record) bool) error {
	recs, err := env.Log.Tail(creationWindow)
	if err != nil {
		return err
	}
	for _, r := range recs {
		if !r.IsCreation() {
			continue
		}
		if !fn(r) {
			return nil
		}
	}
	return nil
}

// Snapshot files. Positional resolution consults the caller's per-session
// file first, so the numbers an agent saw in its last listing stay valid
// even after another session's listing rewrites the shared alias. The
// unsuffixed alias serves sessionless callers.

func snapshotPath(env *Env, sessionID string) string {
	return filepath.Join(env.Store.IndexDir(), "recent_"+sessionID+".idx")
}

func snapshotAlias(env *Env) string {
	return filepath.Join(env.Store.IndexDir(), ".recent_index")
}

func saveSnapshot(env *Env, ids []string) error {
	if err := os.MkdirAll(env.Store.IndexDir(), 0o755); err != nil {
		return errors.NewStorageFault("create index directory", err)
	}
	body := []byte(strings.Join(ids, "\n") + "\n")
	if len(ids) == 0 {
		body = nil
	}
	if env.SessionID != "" {
		if err := os.WriteFile(snapshotPath(env, env.SessionID), body, 0o644); err != nil {
			return errors.NewStorageFault("write listing snapshot", err)
		}
	}
	if err := os.WriteFile(snapshotAlias(env), body, 0o644); err != nil {
		return errors.NewStorageFault("write listing snapshot", err)
	}
	return nil
}

func loadSnapshot(env *Env) ([]string, error) {
	var data []byte
	var err error
	if env.SessionID != "" {
		data, err = os.ReadFile(snapshotPath(env, env.SessionID))
	}
	if env.SessionID == "" || os.IsNotExist(err) {
		data, err = os.ReadFile(snapshotAlias(env))
	}
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewStorageFault("read listing snapshot", err)
	}
	var ids []string
	for _, ln := range strings.Split(string(data), "\n") {
		ln = strings.TrimSpace(ln)
		if artifact.IsID(ln) {
			ids = append(ids, ln)
		}
	}
	return ids, nil
}
