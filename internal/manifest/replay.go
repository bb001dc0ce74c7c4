package manifest

import (
	"sort"
	"strings"
)

// Entry is the materialized read-model for one artifact: its creation record
// plus state derived by replaying later events. It is always recomputed from
// the log, never cached.
type Entry struct {
	Record
	Pinned bool
	// CurrentPath is where the content lives now, accounting for pin moves
	// and unpin restores.
	CurrentPath string
	TagSet      []string
	NoteList    []string
}

// Find returns the materialized entry for id, or nil if no creation-type
// record exists for it. Lookup is case-insensitive; IDs are canonically
// uppercase.
func (l *Log) Find(id string) (*Entry, error) {
	id = strings.ToUpper(id)

	var creation *Record
	var events []Record
	err := l.Scan(func(r Record) bool {
		if !strings.EqualFold(r.ID, id) {
			return true
		}
		if r.IsCreation() {
			rc := r
			creation = &rc
		} else {
			events = append(events, r)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if creation == nil {
		return nil, nil
	}
	return materialize(*creation, events), nil
}

// materialize replays events over a creation record. Events are ordered by
// their type-specific timestamps, not file position.
func materialize(creation Record, events []Record) *Entry {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].EventTime().Before(events[j].EventTime())
	})

	e := &Entry{Record: creation, CurrentPath: creation.Path}

	// tag -> last event was an add
	tagState := make(map[string]bool)
	for _, ev := range events {
		switch ev.Type {
		case TypePin:
			e.Pinned = true
			if ev.PinnedPath != "" {
				e.CurrentPath = ev.PinnedPath
			}
		case TypeUnpin:
			e.Pinned = false
			if ev.RestoredPath != "" {
				e.CurrentPath = ev.RestoredPath
			} else {
				e.CurrentPath = creation.Path
			}
		case TypeTag:
			for _, t := range ev.Tags {
				tagState[t] = true
			}
		case TypeTagRemove:
			for _, t := range ev.Tags {
				tagState[t] = false
			}
		case TypeNote:
			if ev.Note != "" {
				e.NoteList = append(e.NoteList, ev.Note)
			}
		}
	}

	for tag, present := range tagState {
		if present {
			e.TagSet = append(e.TagSet, tag)
		}
	}
	sort.Strings(e.TagSet)
	return e
}

// CreationFilter selects creation records in Creations.
type CreationFilter func(Record) bool

// Creations returns creation-type records newest-first, up to limit,
// consulting rotated archives when the current manifest runs short.
func (l *Log) Creations(limit int, filter CreationFilter) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	// Over-read so the filter has enough raw records to chew through.
	raw, err := l.Tail(limit * 20)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, limit)
	for _, r := range raw {
		if !r.IsCreation() {
			continue
		}
		if filter != nil && !filter(r) {
			continue
		}
		out = append(out, r)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Materialize builds entries for the given creation records in one pass over
// the log, replaying pin/tag/note events per ID.
func (l *Log) Materialize(creations []Record) ([]*Entry, error) {
	wanted := make(map[string][]Record, len(creations))
	for _, c := range creations {
		wanted[strings.ToUpper(c.ID)] = nil
	}
	err := l.Scan(func(r Record) bool {
		if r.IsCreation() {
			return true
		}
		id := strings.ToUpper(r.ID)
		if evs, ok := wanted[id]; ok {
			wanted[id] = append(evs, r)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	out := make([]*Entry, 0, len(creations))
	for _, c := range creations {
		out = append(out, materialize(c, wanted[strings.ToUpper(c.ID)]))
	}
	return out, nil
}

// PinnedIDs returns the set of IDs whose replayed pin state is currently
// pinned. The retention engine uses this to exclude pinned artifacts.
func (l *Log) PinnedIDs() (map[string]bool, error) {
	type pinEvent struct {
		pinned bool
		at     int64
	}
	last := make(map[string]pinEvent)
	err := l.Scan(func(r Record) bool {
		var pinned bool
		switch r.Type {
		case TypePin:
			pinned = true
		case TypeUnpin:
			pinned = false
		default:
			return true
		}
		id := strings.ToUpper(r.ID)
		at := r.EventTime().UnixNano()
		if prev, ok := last[id]; !ok || at >= prev.at {
			last[id] = pinEvent{pinned: pinned, at: at}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	for id, ev := range last {
		if ev.pinned {
			out[id] = true
		}
	}
	return out, nil
}

// KnownIDs returns every ID that appears in a creation-type record, uppercase.
// Doctor uses this to detect orphaned content files.
func (l *Log) KnownIDs() (map[string]bool, error) {
	out := make(map[string]bool)
	err := l.Scan(func(r Record) bool {
		if r.IsCreation() {
			out[strings.ToUpper(r.ID)] = true
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
