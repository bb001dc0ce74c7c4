package ops

import (
	"strings"

	"github.com/calebsh/offcut/internal/artifact"
	"github.com/calebsh/offcut/internal/errors"
	"github.com/calebsh/offcut/internal/manifest"
)

// SaveInput is a manual capture: content the user wants kept without a
// command having produced it.
type SaveInput struct {
	Content string
	Title   string
	// Pin stores the save directly in the permanent tier.
	Pin bool
}

// SaveOutput identifies the stored artifact.
type SaveOutput struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
	Lines int    `json:"lines"`
}

// Save writes a manual artifact. Unlike offloads there is no inline
// threshold; asking to save means save.
func Save(env *Env, in SaveInput) (*SaveOutput, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, errors.NewInvalidRequest("content is required")
	}
	id, err := artifact.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := env.now()
	name := artifact.ManualFileName(now, id, in.Title)

	var path string
	if in.Pin {
		path, err = env.Store.WritePinned(name, []byte(in.Content))
	} else {
		path, err = env.Store.WriteScratch(name, []byte(in.Content))
	}
	if err != nil {
		return nil, err
	}

	size := int64(len(in.Content))
	lines := artifact.CountLines(in.Content)
	exit := 0
	rec := manifest.Record{
		Type:      manifest.TypeManual,
		ID:        id,
		SessionID: env.SessionID,
		Cmd:       "manual",
		CmdGroup:  "manual",
		ExitCode:  &exit,
		Bytes:     size,
		Lines:     lines,
		CreatedAt: now.UTC(),
		Path:      path,
		Title:     strings.TrimSpace(in.Title),
	}
	if err := env.Log.Append(rec); err != nil {
		env.Store.Remove(path)
		return nil, err
	}
	if in.Pin {
		pin := manifest.Record{
			Type:       manifest.TypePin,
			ID:         id,
			SessionID:  env.SessionID,
			PinnedAt:   now.UTC(),
			PinnedPath: path,
			Reason:     "saved pinned",
		}
		if err := env.Log.Append(pin); err != nil {
			return nil, err
		}
	}
	return &SaveOutput{ID: id, Path: path, Bytes: size, Lines: lines}, nil
}
