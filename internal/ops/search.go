package ops

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/calebsh/offcut/internal/errors"
	"github.com/calebsh/offcut/internal/manifest"
)

// Search caps. These bound worst-case work up front instead of supporting
// mid-operation cancellation; every cap that fires is reported so partial
// results are never mistaken for complete ones.
const (
	searchMaxFiles     = 50
	searchMaxFileBytes = 2 << 20
	searchMaxLines     = 50
	searchMaxArtifacts = 10
)

// SearchInput is a bounded pattern scan over recent artifacts.
type SearchInput struct {
	Pattern string
	Cmd     string
	// MaxAge restricts candidates by recency; zero means no limit.
	MaxAge time.Duration
	// PinnedOnly restricts candidates to pinned artifacts.
	PinnedOnly bool
	// Fuller doubles the matched-line cap.
	Fuller bool
	// AllSessions lifts the current-session default scope.
	AllSessions bool
}

// SearchMatch is one matched line.
type SearchMatch struct {
	ID   string `json:"id"`
	Cmd  string `json:"cmd"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// SearchOutput is matches plus an honest account of every cap hit.
type SearchOutput struct {
	Matches       []SearchMatch `json:"matches"`
	TotalMatches  int           `json:"total_matches"`
	ArtifactsHit  int           `json:"artifacts_hit"`
	FilesScanned  int           `json:"files_scanned"`
	SkippedLarge  []string      `json:"skipped_large,omitempty"`
	SkippedGone   int           `json:"skipped_gone,omitempty"`
	CapsHit       []string      `json:"caps_hit,omitempty"`
}

// Search scans up to 50 candidate files line by line for a pattern. Files
// over 2MB are skipped and named, missing files are counted, and matched
// lines cap at 50 (100 with Fuller).
func Search(env *Env, in SearchInput) (*SearchOutput, error) {
	if strings.TrimSpace(in.Pattern) == "" {
		return nil, errors.NewInvalidRequest("pattern is required")
	}
	re, err := regexp.Compile(in.Pattern)
	if err != nil {
		return nil, errors.NewInvalidRequestf("invalid pattern %q: %v", in.Pattern, err)
	}

	lineCap := searchMaxLines
	if in.Fuller {
		lineCap *= 2
	}
	group := env.Cfg.Group(in.Cmd)
	now := env.now()

	creations, err := env.Log.Creations(creationWindow, func(r manifest.Record) bool {
		if !in.AllSessions && env.SessionID != "" && r.SessionID != env.SessionID {
			return false
		}
		if in.Cmd != "" && r.Cmd != in.Cmd && r.CmdGroup != group {
			return false
		}
		if in.MaxAge > 0 && now.Sub(r.CreatedAt) > in.MaxAge {
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

	out := &SearchOutput{}
	capHit := func(name string) {
		for _, c := range out.CapsHit {
			if c == name {
				return
			}
		}
		out.CapsHit = append(out.CapsHit, name)
	}

	artifacts := make(map[string]bool)
	for _, e := range entries {
		if in.PinnedOnly && !e.Pinned {
			continue
		}
		if out.FilesScanned >= searchMaxFiles {
			capHit(fmt.Sprintf("file cap (%d) hit; older artifacts not scanned", searchMaxFiles))
			break
		}
		if len(artifacts) >= searchMaxArtifacts {
			capHit(fmt.Sprintf("artifact cap (%d) hit", searchMaxArtifacts))
			break
		}
		if !env.Store.Exists(e.CurrentPath) {
			out.SkippedGone++
			continue
		}
		if e.Bytes > searchMaxFileBytes {
			out.SkippedLarge = append(out.SkippedLarge, e.ID)
			continue
		}
		data, err := env.Store.Read(e.CurrentPath)
		if err != nil {
			out.SkippedGone++
			continue
		}
		out.FilesScanned++

		hit := false
		for i, ln := range strings.Split(string(data), "\n") {
			if !re.MatchString(ln) {
				continue
			}
			hit = true
			out.TotalMatches++
			if len(out.Matches) < lineCap {
				out.Matches = append(out.Matches, SearchMatch{
					ID: e.ID, Cmd: e.Cmd, Line: i + 1, Text: strings.TrimRight(ln, "\r"),
				})
			} else {
				capHit(fmt.Sprintf("line cap (%d) hit; counts remain exact", lineCap))
			}
		}
		if hit {
			artifacts[e.ID] = true
		}
	}
	out.ArtifactsHit = len(artifacts)

	if out.SkippedGone > 0 {
		out.CapsHit = append(out.CapsHit, fmt.Sprintf("%d candidate(s) skipped: content cleaned", out.SkippedGone))
	}
	for _, id := range out.SkippedLarge {
		out.CapsHit = append(out.CapsHit, fmt.Sprintf("%s skipped: over the %dMB per-file limit", id, searchMaxFileBytes>>20))
	}
	return out, nil
}

// FormatSearchSummary renders the one-line result header, e.g.
// "7 matches across 3 outputs".
func FormatSearchSummary(out *SearchOutput) string {
	return fmt.Sprintf("%d matches across %d outputs", out.TotalMatches, out.ArtifactsHit)
}
