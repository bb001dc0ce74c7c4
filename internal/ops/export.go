package ops

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/calebsh/offcut/internal/artifact"
	"github.com/calebsh/offcut/internal/errors"
	"github.com/calebsh/offcut/internal/manifest"
)

// ExportInput configures the session report.
type ExportInput struct {
	Title string
	// HTML additionally renders the report to HTML.
	HTML bool
	// AllSessions widens the report beyond the current session.
	AllSessions bool
}

// ExportOutput identifies the written report.
type ExportOutput struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	HTMLPath string `json:"html_path,omitempty"`
	Bytes    int64  `json:"bytes"`
}

// Export writes a Markdown report of the session: recent captures, pinned
// artifacts, and failures with their notes. The report is itself an
// artifact, recorded and resolvable like any other.
func Export(env *Env, in ExportInput) (*ExportOutput, error) {
	creations, err := env.Log.Creations(creationWindow, func(r manifest.Record) bool {
		if r.Type == manifest.TypeExport {
			return false
		}
		if !in.AllSessions && env.SessionID != "" && r.SessionID != env.SessionID {
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

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "session report"
	}
	md := renderReport(env, title, entries)

	id, err := artifact.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := env.now()
	name := "report_" + now.Format("20060102_150405") + "_" + strings.ToLower(id) + ".md"
	path, err := env.Store.WriteExport(name, []byte(md))
	if err != nil {
		return nil, err
	}

	out := &ExportOutput{ID: id, Path: path, Bytes: int64(len(md))}
	if in.HTML {
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(md), &buf); err != nil {
			return nil, errors.NewInternal(err)
		}
		htmlName := strings.TrimSuffix(name, ".md") + ".html"
		htmlPath, err := env.Store.WriteExport(htmlName, buf.Bytes())
		if err != nil {
			return nil, err
		}
		out.HTMLPath = htmlPath
	}

	exit := 0
	rec := manifest.Record{
		Type:      manifest.TypeExport,
		ID:        id,
		SessionID: env.SessionID,
		Cmd:       "export",
		CmdGroup:  "export",
		ExitCode:  &exit,
		Bytes:     int64(len(md)),
		Lines:     artifact.CountLines(md),
		CreatedAt: now.UTC(),
		Path:      path,
		Title:     title,
	}
	if err := env.Log.Append(rec); err != nil {
		env.Store.Remove(path)
		if out.HTMLPath != "" {
			env.Store.Remove(out.HTMLPath)
		}
		return nil, err
	}
	return out, nil
}

func renderReport(env *Env, title string, entries []*manifest.Entry) string {
	now := env.now()
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Generated %s\n\n", now.UTC().Format("2006-01-02 15:04 UTC"))

	var pinned, failed []*manifest.Entry
	for _, e := range entries {
		if e.Pinned {
			pinned = append(pinned, e)
		}
		if e.Exit() != 0 {
			failed = append(failed, e)
		}
	}

	b.WriteString("## Recent captures\n\n")
	if len(entries) == 0 {
		b.WriteString("none\n\n")
	} else {
		b.WriteString("| ID | Command | Exit | Size | Age | Tags |\n")
		b.WriteString("|----|---------|------|------|-----|------|\n")
		for _, e := range entries {
			fmt.Fprintf(&b, "| %s | %s | %d | %s | %s | %s |\n",
				e.ID, e.Cmd, e.Exit(), artifact.FormatSize(e.Bytes),
				artifact.FormatAge(e.CreatedAt, now), strings.Join(e.TagSet, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Pinned\n\n")
	if len(pinned) == 0 {
		b.WriteString("none\n\n")
	} else {
		for _, e := range pinned {
			fmt.Fprintf(&b, "- **%s** %s (%s)\n", e.ID, e.Cmd, artifact.FormatSize(e.Bytes))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Failures\n\n")
	if len(failed) == 0 {
		b.WriteString("none\n")
	} else {
		for _, e := range failed {
			fmt.Fprintf(&b, "### %s %s (exit %d)\n\n", e.ID, e.Cmd, e.Exit())
			for _, note := range e.NoteList {
				fmt.Fprintf(&b, "> %s\n", note)
			}
			if len(e.NoteList) > 0 {
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}
