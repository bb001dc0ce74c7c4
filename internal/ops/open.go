package ops

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/calebsh/offcut/internal/errors"
	"github.com/calebsh/offcut/internal/manifest"
)

// View selects how much of an artifact Open returns.
type View string

const (
	ViewFull View = "full"
	ViewHead View = "head"
	ViewTail View = "tail"
	ViewGrep View = "grep"
)

// OpenInput resolves and reads one artifact.
type OpenInput struct {
	Selector string
	View     View
	// N is the line count for head/tail views. Zero means 50.
	N int
	// Pattern is the regexp for the grep view.
	Pattern string
	// Context is lines of context around grep matches.
	Context int
}

// OpenOutput carries the requested slice of content.
type OpenOutput struct {
	ID        string `json:"id"`
	Cmd       string `json:"cmd,omitempty"`
	ExitCode  int    `json:"exit_code"`
	Content   string `json:"content"`
	Lines     int    `json:"lines"`
	Total     int    `json:"total_lines"`
	Truncated bool   `json:"truncated,omitempty"`
	Pinned    bool   `json:"pinned,omitempty"`
}

const defaultViewLines = 50

// Open resolves a selector and returns its content under the requested
// view. Evicted content is a NotFound with the retention explanation, not
// a bare missing-file error.
func Open(env *Env, in OpenInput) (*OpenOutput, error) {
	entry, err := findEntry(env, in.Selector)
	if err != nil {
		return nil, err
	}
	if !env.Store.Exists(entry.CurrentPath) {
		return nil, errors.NewEvicted(entry.ID)
	}
	data, err := env.Store.Read(entry.CurrentPath)
	if err != nil {
		return nil, err
	}

	content := string(data)
	all := strings.Split(strings.TrimRight(content, "\n"), "\n")
	total := len(all)
	if content == "" {
		total = 0
		all = nil
	}

	out := &OpenOutput{
		ID:       entry.ID,
		Cmd:      entry.Cmd,
		ExitCode: entry.Exit(),
		Total:    total,
		Pinned:   entry.Pinned,
	}

	n := in.N
	if n <= 0 {
		n = defaultViewLines
	}
	switch in.View {
	case "", ViewFull:
		out.Content = content
		out.Lines = total
	case ViewHead:
		slice := all
		if len(slice) > n {
			slice = slice[:n]
			out.Truncated = true
		}
		out.Content = strings.Join(slice, "\n")
		out.Lines = len(slice)
	case ViewTail:
		slice := all
		if len(slice) > n {
			slice = slice[len(slice)-n:]
			out.Truncated = true
		}
		out.Content = strings.Join(slice, "\n")
		out.Lines = len(slice)
	case ViewGrep:
		if in.Pattern == "" {
			return nil, errors.NewInvalidRequest("grep view requires a pattern")
		}
		re, err := regexp.Compile(in.Pattern)
		if err != nil {
			return nil, errors.NewInvalidRequestf("invalid pattern %q: %v", in.Pattern, err)
		}
		matched := grepLines(all, re, in.Context)
		out.Content = strings.Join(matched, "\n")
		out.Lines = len(matched)
	default:
		return nil, errors.NewInvalidRequestf("unknown view %q", in.View)
	}

	// Access is history worth keeping even though retention ignores it.
	env.Log.Append(manifest.Record{
		Type:      manifest.TypeOpen,
		ID:        entry.ID,
		SessionID: env.SessionID,
		OpenedAt:  env.now().UTC(),
	})
	return out, nil
}

// grepLines returns matching lines with context, line-numbered, separated
// by -- between discontiguous regions.
func grepLines(all []string, re *regexp.Regexp, context int) []string {
	keep := make([]bool, len(all))
	match := make([]bool, len(all))
	for i, ln := range all {
		if re.MatchString(ln) {
			match[i] = true
			for j := max(0, i-context); j <= min(len(all)-1, i+context); j++ {
				keep[j] = true
			}
		}
	}
	var out []string
	prev := -2
	for i := range all {
		if !keep[i] {
			continue
		}
		if prev >= 0 && i > prev+1 {
			out = append(out, "--")
		}
		marker := " "
		if match[i] {
			marker = ":"
		}
		out = append(out, fmt.Sprintf("%4d%s%s", i+1, marker, all[i]))
		prev = i
	}
	return out
}
