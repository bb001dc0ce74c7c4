package ops

import (
	"fmt"
	"sort"
	"strings"

	"github.com/calebsh/offcut/internal/errors"
	"github.com/calebsh/offcut/internal/manifest"
)

// PinInput selects an artifact to promote to the permanent tier.
type PinInput struct {
	Selector string
	Reason   string
	// Auto marks pins applied by capture-time rules rather than the user.
	Auto bool
}

// PinOutput reports the pin result.
type PinOutput struct {
	ID         string `json:"id"`
	PinnedPath string `json:"pinned_path"`
	AlreadySet bool   `json:"already_pinned,omitempty"`
}

// Pin moves an artifact's content into the permanent tier and records the
// pin. The move happens first: a crash in between leaves an orphan file the
// doctor can find, never a manifest path that does not exist.
func Pin(env *Env, in PinInput) (*PinOutput, error) {
	entry, err := findEntry(env, in.Selector)
	if err != nil {
		return nil, err
	}
	if entry.Pinned {
		return &PinOutput{ID: entry.ID, PinnedPath: entry.CurrentPath, AlreadySet: true}, nil
	}
	if !env.Store.Exists(entry.CurrentPath) {
		return nil, errors.NewEvicted(entry.ID)
	}

	pinnedPath, err := env.Store.Promote(entry.CurrentPath)
	if err != nil {
		return nil, err
	}
	rec := manifest.Record{
		Type:       manifest.TypePin,
		ID:         entry.ID,
		SessionID:  env.SessionID,
		PinnedAt:   env.now().UTC(),
		PinnedPath: pinnedPath,
		AutoPinned: in.Auto,
		Reason:     in.Reason,
	}
	if err := env.Log.Append(rec); err != nil {
		// Undo the move so the manifest and the tree stay consistent.
		env.Store.Demote(pinnedPath)
		return nil, err
	}
	return &PinOutput{ID: entry.ID, PinnedPath: pinnedPath}, nil
}

// UnpinInput selects a pinned artifact to return to the ephemeral tier.
type UnpinInput struct {
	Selector string
}

// UnpinOutput reports the restored location and remaining lifetime.
type UnpinOutput struct {
	ID           string `json:"id"`
	RestoredPath string `json:"restored_path"`
	TTLNote      string `json:"ttl_note,omitempty"`
}

// Unpin restores the artifact to the ephemeral tier. Its TTL clock resumes
// from the original creation time, so an old artifact may be collected by
// the very next sweep; the output says so.
func Unpin(env *Env, in UnpinInput) (*UnpinOutput, error) {
	entry, err := findEntry(env, in.Selector)
	if err != nil {
		return nil, err
	}
	if !entry.Pinned {
		return nil, errors.NewInvalidRequestf("%s is not pinned", entry.ID)
	}
	if !env.Store.Exists(entry.CurrentPath) {
		return nil, errors.NewEvicted(entry.ID)
	}

	restored, err := env.Store.Demote(entry.CurrentPath)
	if err != nil {
		return nil, err
	}
	rec := manifest.Record{
		Type:         manifest.TypeUnpin,
		ID:           entry.ID,
		SessionID:    env.SessionID,
		UnpinnedAt:   env.now().UTC(),
		RestoredPath: restored,
	}
	if err := env.Log.Append(rec); err != nil {
		env.Store.Promote(restored)
		return nil, err
	}

	out := &UnpinOutput{ID: entry.ID, RestoredPath: restored}
	ttlMin := env.Cfg.TTLMinutes(entry.Exit())
	age := env.now().Sub(entry.CreatedAt)
	remaining := float64(ttlMin) - age.Minutes()
	if remaining <= 0 {
		out.TTLNote = "already past its retention window; the next sweep will remove it"
	} else {
		out.TTLNote = fmt.Sprintf("about %dm of retention remain", int(remaining))
	}
	return out, nil
}

// TagInput adds or removes tags on an artifact.
type TagInput struct {
	Selector string
	Tags     []string
	Remove   bool
}

// TagOutput is the tag set after the change, sorted for display.
type TagOutput struct {
	ID   string   `json:"id"`
	Tags []string `json:"tags"`
}

// Tag appends a tag or tag_remove event. Every token is validated before
// anything is appended; one bad token rejects the whole request.
func Tag(env *Env, in TagInput) (*TagOutput, error) {
	if len(in.Tags) == 0 {
		return nil, errors.NewInvalidRequest("at least one tag is required")
	}
	for _, tag := range in.Tags {
		if !validTag(tag) {
			return nil, errors.NewInvalidRequestf("invalid tag %q: tags are alphanumeric with hyphen and underscore only", tag)
		}
	}
	entry, err := findEntry(env, in.Selector)
	if err != nil {
		return nil, err
	}

	rec := manifest.Record{
		ID:        entry.ID,
		SessionID: env.SessionID,
		Tags:      in.Tags,
	}
	if in.Remove {
		rec.Type = manifest.TypeTagRemove
		rec.RemovedAt = env.now().UTC()
	} else {
		rec.Type = manifest.TypeTag
		rec.TaggedAt = env.now().UTC()
	}
	if err := env.Log.Append(rec); err != nil {
		return nil, err
	}

	// Recompute from the log rather than patching the in-memory set.
	after, err := findEntry(env, entry.ID)
	if err != nil {
		return nil, err
	}
	tags := append([]string(nil), after.TagSet...)
	sort.Strings(tags)
	return &TagOutput{ID: entry.ID, Tags: tags}, nil
}

func validTag(tag string) bool {
	if tag == "" || len(tag) > 64 {
		return false
	}
	for _, c := range tag {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

// NoteInput appends free text to an artifact.
type NoteInput struct {
	Selector string
	Note     string
}

// NoteOutput reports how many notes the artifact now carries.
type NoteOutput struct {
	ID    string `json:"id"`
	Notes int    `json:"notes"`
}

// Note appends a note event. Over-length notes are rejected outright;
// silent truncation would corrupt the debugging context the note exists
// to preserve.
func Note(env *Env, in NoteInput) (*NoteOutput, error) {
	text := strings.TrimSpace(in.Note)
	if text == "" {
		return nil, errors.NewInvalidRequest("note text is required")
	}
	if len(text) > env.Cfg.NoteMaxChars {
		return nil, errors.NewInvalidRequestf("note is %d chars; the limit is %d", len(text), env.Cfg.NoteMaxChars)
	}
	entry, err := findEntry(env, in.Selector)
	if err != nil {
		return nil, err
	}
	rec := manifest.Record{
		Type:      manifest.TypeNote,
		ID:        entry.ID,
		SessionID: env.SessionID,
		Note:      text,
		NotedAt:   env.now().UTC(),
	}
	if err := env.Log.Append(rec); err != nil {
		return nil, err
	}
	return &NoteOutput{ID: entry.ID, Notes: len(entry.NoteList) + 1}, nil
}

// findEntry resolves a selector and materializes the artifact's replayed
// state. NotFound when the ID has no creation record.
func findEntry(env *Env, selector string) (*manifest.Entry, error) {
	id, err := Resolve(env, ResolveInput{Selector: selector})
	if err != nil {
		return nil, err
	}
	entry, err := env.Log.Find(id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, errors.NewNotFound(selector, "no artifact with ID "+id+" exists in the manifest")
	}
	return entry, nil
}
