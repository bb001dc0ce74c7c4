package ops

import (
	"fmt"
	"strings"

	"github.com/calebsh/offcut/internal/artifact"
	"github.com/calebsh/offcut/internal/errors"
	"github.com/calebsh/offcut/internal/manifest"
)

// RecentInput filters the listing.
type RecentInput struct {
	Limit int
	// AllSessions lifts the default current-session scope.
	AllSessions bool
	Cmd         string
	FailedOnly  bool
	PinnedOnly  bool
}

// defaultRecentLimit is K for the recent listing.
const defaultRecentLimit = 10

// RecentItem is one row of the listing.
type RecentItem struct {
	Position int      `json:"position"`
	ID       string   `json:"id"`
	Cmd      string   `json:"cmd"`
	ExitCode int      `json:"exit_code"`
	Size     string   `json:"size"`
	Lines    int      `json:"lines"`
	Age      string   `json:"age"`
	Exists   bool     `json:"exists"`
	Pinned   bool     `json:"pinned,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Notes    int      `json:"notes,omitempty"`
	Title    string   `json:"title,omitempty"`
}

// RecentOutput is the listing plus the session it was scoped to.
type RecentOutput struct {
	Items     []RecentItem `json:"items"`
	SessionID string       `json:"session_id,omitempty"`
	Scope     string       `json:"scope"`
}

// Recent lists the last K creation records newest-first, annotated with
// live state. The ID order is persisted as the positional snapshot, so the
// numbers shown stay resolvable even after newer captures arrive.
func Recent(env *Env, in RecentInput) (*RecentOutput, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > 100 {
		return nil, errors.NewInvalidRequest("limit must be at most 100")
	}
	group := env.Cfg.Group(in.Cmd)

	creations, err := env.Log.Creations(limit, func(r manifest.Record) bool {
		if !in.AllSessions && env.SessionID != "" && r.SessionID != env.SessionID {
			return false
		}
		if in.Cmd != "" && r.Cmd != in.Cmd && r.CmdGroup != group {
			return false
		}
		if in.FailedOnly && r.Exit() == 0 {
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	entries, err := env.Log.Materialize(creations)
	if err != nil {
		return nil, err
	}

	now := env.now()
	out := &RecentOutput{SessionID: env.SessionID, Scope: "session"}
	if in.AllSessions {
		out.Scope = "all"
	}
	var ids []string
	for _, e := range entries {
		if in.PinnedOnly && !e.Pinned {
			continue
		}
		item := RecentItem{
			Position: len(out.Items) + 1,
			ID:       e.ID,
			Cmd:      e.Cmd,
			ExitCode: e.Exit(),
			Size:     artifact.FormatSize(e.Bytes),
			Lines:    e.Lines,
			Age:      artifact.FormatAge(e.CreatedAt, now),
			Exists:   env.Store.Exists(e.CurrentPath),
			Pinned:   e.Pinned,
			Tags:     e.TagSet,
			Notes:    len(e.NoteList),
			Title:    e.Title,
		}
		out.Items = append(out.Items, item)
		ids = append(ids, e.ID)
	}

	if err := saveSnapshot(env, ids); err != nil {
		return nil, err
	}
	return out, nil
}

// FormatRecent renders the listing for terminal display.
func FormatRecent(out *RecentOutput) string {
	if len(out.Items) == 0 {
		return "no artifacts yet"
	}
	var b strings.Builder
	for _, it := range out.Items {
		state := "ok"
		if it.ExitCode != 0 {
			state = fmt.Sprintf("e=%d", it.ExitCode)
		}
		fmt.Fprintf(&b, "%2d. [%s] %-12s %-4s %7s %5dL %4s", it.Position, it.ID, it.Cmd, state, it.Size, it.Lines, it.Age)
		if !it.Exists {
			b.WriteString(" cleaned")
		}
		if it.Pinned {
			b.WriteString(" pinned")
		}
		if len(it.Tags) > 0 {
			b.WriteString(" #" + strings.Join(it.Tags, " #"))
		}
		b.WriteString("\n")
	}
	return b.String()
}
