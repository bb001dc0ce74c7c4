package ops

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/calebsh/offcut/internal/errors"
	"github.com/calebsh/offcut/internal/manifest"
)

// DiffInput selects the pair to compare. Exactly one form applies:
// explicit A and B, Last (the last two runs of one command), or a single
// selector compared against its immediate predecessor of the same command.
type DiffInput struct {
	SelectorA string
	SelectorB string
	// Last diffs the two newest runs of Cmd.
	Last bool
	Cmd  string
	// Unified requests the full unified view instead of the summary.
	Unified bool
	// StripTimes additionally strips timestamp- and duration-like tokens
	// before comparing.
	StripTimes bool
}

// DiffOutput summarizes the change between two runs.
type DiffOutput struct {
	OldID      string `json:"old_id"`
	NewID      string `json:"new_id"`
	Cmd        string `json:"cmd,omitempty"`
	Added      int    `json:"added"`
	Removed    int    `json:"removed"`
	Unchanged  int    `json:"unchanged"`
	Transition string `json:"transition"`
	Unified    string `json:"unified,omitempty"`
	Truncated  bool   `json:"truncated,omitempty"`
}

// unifiedCap bounds the unified view.
const unifiedCap = 200

// Diff compares two artifacts after noise stripping. The summary counts
// come from line-set difference, not sequence alignment; the unified view
// uses a real diff, capped at 200 lines.
func Diff(env *Env, in DiffInput) (*DiffOutput, error) {
	oldE, newE, err := diffPair(env, in)
	if err != nil {
		return nil, err
	}

	oldLines, err := readStripped(env, oldE, in.StripTimes)
	if err != nil {
		return nil, err
	}
	newLines, err := readStripped(env, newE, in.StripTimes)
	if err != nil {
		return nil, err
	}

	out := &DiffOutput{
		OldID:      oldE.ID,
		NewID:      newE.ID,
		Cmd:        newE.Cmd,
		Transition: transition(oldE.Exit(), newE.Exit()),
	}

	oldSet := lineCounts(oldLines)
	newSet := lineCounts(newLines)
	for ln, n := range newSet {
		if o := oldSet[ln]; n > o {
			out.Added += n - o
			out.Unchanged += o
		} else {
			out.Unchanged += n
		}
	}
	for ln, o := range oldSet {
		if n := newSet[ln]; o > n {
			out.Removed += o - n
		}
	}

	if in.Unified {
		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        oldLines,
			B:        newLines,
			FromFile: oldE.ID,
			ToFile:   newE.ID,
			Context:  3,
		})
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		lines := strings.SplitAfter(text, "\n")
		if len(lines) > unifiedCap {
			lines = lines[:unifiedCap]
			out.Truncated = true
		}
		out.Unified = strings.Join(lines, "")
	}
	return out, nil
}

// diffPair resolves the input to (older, newer) entries.
func diffPair(env *Env, in DiffInput) (*manifest.Entry, *manifest.Entry, error) {
	if in.Last {
		if in.Cmd == "" {
			return nil, nil, errors.NewInvalidRequest("diffing the last two runs requires a command")
		}
		newID, err := Resolve(env, ResolveInput{Cmd: in.Cmd, Nth: 1})
		if err != nil {
			return nil, nil, err
		}
		oldID, err := Resolve(env, ResolveInput{Cmd: in.Cmd, Nth: 2})
		if err != nil {
			return nil, nil, err
		}
		return entryPair(env, oldID, newID)
	}

	if in.SelectorA != "" && in.SelectorB != "" {
		aE, err := findEntry(env, in.SelectorA)
		if err != nil {
			return nil, nil, err
		}
		bE, err := findEntry(env, in.SelectorB)
		if err != nil {
			return nil, nil, err
		}
		// Order by creation so the transition label reads old -> new.
		if aE.CreatedAt.After(bE.CreatedAt) {
			aE, bE = bE, aE
		}
		return aE, bE, nil
	}

	if in.SelectorA != "" {
		newE, err := findEntry(env, in.SelectorA)
		if err != nil {
			return nil, nil, err
		}
		oldE, err := predecessor(env, newE)
		if err != nil {
			return nil, nil, err
		}
		return oldE, newE, nil
	}

	return nil, nil, errors.NewInvalidRequest("diff needs two selectors, one selector, or --last with a command")
}

func entryPair(env *Env, oldID, newID string) (*manifest.Entry, *manifest.Entry, error) {
	oldE, err := findEntry(env, oldID)
	if err != nil {
		return nil, nil, err
	}
	newE, err := findEntry(env, newID)
	if err != nil {
		return nil, nil, err
	}
	return oldE, newE, nil
}

// predecessor finds the next older creation record with the same command
// group.
func predecessor(env *Env, of *manifest.Entry) (*manifest.Entry, error) {
	var found string
	err := scanCreationsNewestFirst(env, func(r manifest.Record) bool {
		if r.CmdGroup != of.CmdGroup || r.ID == of.ID {
			return true
		}
		if r.CreatedAt.After(of.CreatedAt) {
			return true
		}
		found = r.ID
		return false
	})
	if err != nil {
		return nil, err
	}
	if found == "" {
		return nil, errors.NewNotFound(of.ID, "no earlier run of "+of.Cmd+" to compare against")
	}
	return findEntry(env, found)
}

func readStripped(env *Env, e *manifest.Entry, stripTimes bool) ([]string, error) {
	if !env.Store.Exists(e.CurrentPath) {
		return nil, errors.NewEvicted(e.ID)
	}
	data, err := env.Store.Read(e.CurrentPath)
	if err != nil {
		return nil, err
	}
	raw := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, ln := range raw {
		out = append(out, stripNoise(ln, stripTimes)+"\n")
	}
	return out, nil
}

var (
	diffAnsi     = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)
	absPathToken = regexp.MustCompile(`(^|[\s"'(=])/[^\s"':)]+/([^\s"':/)]+)`)
	timeToken    = regexp.MustCompile(`\b\d{1,2}:\d{2}(:\d{2})?([.,]\d+)?\b|\b\d{4}-\d{2}-\d{2}\b`)
	durToken     = regexp.MustCompile(`\b\d+(\.\d+)?(ms|s|m|h|us|µs|ns)\b`)
)

// stripNoise removes content that changes between runs without meaning
// anything: ANSI color, absolute paths (kept as their basename), and
// optionally timestamps and durations.
func stripNoise(line string, stripTimes bool) string {
	line = diffAnsi.ReplaceAllString(line, "")
	line = absPathToken.ReplaceAllString(line, "$1$2")
	if stripTimes {
		line = timeToken.ReplaceAllString(line, "<t>")
		line = durToken.ReplaceAllString(line, "<dur>")
	}
	return line
}

func lineCounts(lines []string) map[string]int {
	m := make(map[string]int, len(lines))
	for _, ln := range lines {
		m[ln]++
	}
	return m
}

// transition labels the exit-code change.
func transition(oldExit, newExit int) string {
	switch {
	case oldExit != 0 && newExit == 0:
		return fmt.Sprintf("FIXED (exit %d -> 0)", oldExit)
	case oldExit == 0 && newExit != 0:
		return fmt.Sprintf("REGRESSED (exit 0 -> %d)", newExit)
	default:
		return fmt.Sprintf("exit %d -> %d", oldExit, newExit)
	}
}
