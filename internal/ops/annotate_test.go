package ops

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/calebsh/offcut/internal/errors"
)

func TestPinMovesContent(t *testing.T) {
	env, _ := testEnv(t)
	id := capture(t, env, "pytest", 1, "precious failure")

	out, err := Pin(env, PinInput{Selector: id})
	if err != nil {
		t.Fatalf("Pin: %v", err)
	}
	if !strings.HasPrefix(out.PinnedPath, env.Store.PinnedDir()) {
		t.Errorf("pinned path = %q", out.PinnedPath)
	}
	entry, err := env.Log.Find(id)
	if err != nil {
		t.Fatal(err)
	}
	if !entry.Pinned || entry.CurrentPath != out.PinnedPath {
		t.Errorf("entry after pin = %+v", entry)
	}
	if !env.Store.Exists(out.PinnedPath) {
		t.Error("pinned content missing on disk")
	}
}

func TestPinTwiceIsNoOp(t *testing.T) {
	env, _ := testEnv(t)
	id := capture(t, env, "pytest", 1, "x")
	if _, err := Pin(env, PinInput{Selector: id}); err != nil {
		t.Fatal(err)
	}
	out, err := Pin(env, PinInput{Selector: id})
	if err != nil {
		t.Fatalf("second Pin: %v", err)
	}
	if !out.AlreadySet {
		t.Error("second pin not reported as already pinned")
	}
}

func TestPinUnpinRoundTrip(t *testing.T) {
	env, _ := testEnv(t)
	id := capture(t, env, "pytest", 1, "round trip content")
	entry, _ := env.Log.Find(id)
	before, err := env.Store.Read(entry.CurrentPath)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Pin(env, PinInput{Selector: id}); err != nil {
		t.Fatal(err)
	}
	out, err := Unpin(env, UnpinInput{Selector: id})
	if err != nil {
		t.Fatalf("Unpin: %v", err)
	}
	if !strings.HasPrefix(out.RestoredPath, env.Store.ScratchDir()) {
		t.Errorf("restored path = %q, want scratch tier", out.RestoredPath)
	}

	after, err := env.Store.Read(out.RestoredPath)
	if err != nil {
		t.Fatalf("restored content unreadable: %v", err)
	}
	if string(before) != string(after) {
		t.Error("content changed across pin/unpin")
	}
	entry, _ = env.Log.Find(id)
	if entry.Pinned {
		t.Error("entry still pinned after unpin")
	}
	if out.TTLNote == "" {
		t.Error("unpin did not report remaining retention")
	}
}

func TestUnpinPastTTLWarns(t *testing.T) {
	env, now := testEnv(t)
	id := capture(t, env, "pytest", 0, "old by now")
	if _, err := Pin(env, PinInput{Selector: id}); err != nil {
		t.Fatal(err)
	}
	*now = now.Add(48 * time.Hour)
	out, err := Unpin(env, UnpinInput{Selector: id})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.TTLNote, "next sweep") {
		t.Errorf("TTL note = %q, want expiry warning", out.TTLNote)
	}
}

func TestUnpinNotPinned(t *testing.T) {
	env, _ := testEnv(t)
	id := capture(t, env, "pytest", 0, "never pinned")
	if _, err := Unpin(env, UnpinInput{Selector: id}); !errors.Is(err, errors.CodeInvalidRequest) {
		t.Errorf("err = %v, want invalid request", err)
	}
}

func TestTagAddAndList(t *testing.T) {
	env, _ := testEnv(t)
	id := capture(t, env, "pytest", 1, "x")
	out, err := Tag(env, TagInput{Selector: id, Tags: []string{"prod-bug", "hotfix"}})
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if !reflect.DeepEqual(out.Tags, []string{"hotfix", "prod-bug"}) {
		t.Errorf("tags = %v, want sorted [hotfix prod-bug]", out.Tags)
	}
}

func TestTagInvalidCharsetAllOrNothing(t *testing.T) {
	env, _ := testEnv(t)
	id := capture(t, env, "pytest", 1, "x")
	_, err := Tag(env, TagInput{Selector: id, Tags: []string{"fine", "not ok!"}})
	if !errors.Is(err, errors.CodeInvalidRequest) {
		t.Fatalf("err = %v, want invalid request", err)
	}
	if !strings.Contains(err.Error(), "not ok!") {
		t.Errorf("error does not name the offending token: %v", err)
	}
	entry, _ := env.Log.Find(id)
	if len(entry.TagSet) != 0 {
		t.Errorf("tags partially applied: %v", entry.TagSet)
	}
}

func TestTagRemoveThenReAdd(t *testing.T) {
	env, now := testEnv(t)
	id := capture(t, env, "pytest", 1, "x")

	if _, err := Tag(env, TagInput{Selector: id, Tags: []string{"x"}}); err != nil {
		t.Fatal(err)
	}
	*now = now.Add(time.Second)
	if _, err := Tag(env, TagInput{Selector: id, Tags: []string{"x"}, Remove: true}); err != nil {
		t.Fatal(err)
	}
	*now = now.Add(time.Second)
	out, err := Tag(env, TagInput{Selector: id, Tags: []string{"x"}})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out.Tags, []string{"x"}) {
		t.Errorf("add/remove/re-add left tags = %v, want [x]", out.Tags)
	}
}

func TestNote(t *testing.T) {
	env, _ := testEnv(t)
	id := capture(t, env, "pytest", 1, "x")
	out, err := Note(env, NoteInput{Selector: id, Note: "flaky when the DB is cold"})
	if err != nil {
		t.Fatalf("Note: %v", err)
	}
	if out.Notes != 1 {
		t.Errorf("notes = %d, want 1", out.Notes)
	}
	entry, _ := env.Log.Find(id)
	if len(entry.NoteList) != 1 || entry.NoteList[0] != "flaky when the DB is cold" {
		t.Errorf("note list = %v", entry.NoteList)
	}
}

func TestNoteTooLongRejected(t *testing.T) {
	env, _ := testEnv(t)
	id := capture(t, env, "pytest", 1, "x")
	long := strings.Repeat("a", env.Cfg.NoteMaxChars+1)
	if _, err := Note(env, NoteInput{Selector: id, Note: long}); !errors.Is(err, errors.CodeInvalidRequest) {
		t.Errorf("err = %v, want invalid request", err)
	}
	entry, _ := env.Log.Find(id)
	if len(entry.NoteList) != 0 {
		t.Error("over-length note was appended anyway")
	}
}

func TestAnnotateUnknownID(t *testing.T) {
	env, _ := testEnv(t)
	// Resolves as a literal ID but has no creation record.
	if _, err := Pin(env, PinInput{Selector: "DEADBEEF"}); !errors.Is(err, errors.CodeNotFound) {
		t.Errorf("Pin unknown = %v, want not found", err)
	}
	if _, err := Tag(env, TagInput{Selector: "DEADBEEF", Tags: []string{"t"}}); !errors.Is(err, errors.CodeNotFound) {
		t.Errorf("Tag unknown = %v, want not found", err)
	}
}

func TestPinEvictedContent(t *testing.T) {
	env, _ := testEnv(t)
	id := capture(t, env, "pytest", 1, "soon gone")
	entry, _ := env.Log.Find(id)
	if err := env.Store.Remove(entry.CurrentPath); err != nil {
		t.Fatal(err)
	}
	_, err := Pin(env, PinInput{Selector: id})
	if !errors.Is(err, errors.CodeNotFound) {
		t.Fatalf("err = %v, want not found (evicted)", err)
	}
	if !strings.Contains(err.Error(), "retention") && !strings.Contains(err.Error(), "evicted") {
		t.Errorf("eviction error lacks explanation: %v", err)
	}
}
