package ops

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/calebsh/offcut/internal/errors"
)

// TestFullWorkflow exercises the complete artifact lifecycle:
// offload → recent → open by position → tag/note → pin → sweep survival →
// unpin → sweep eviction → open (evicted).
func TestFullWorkflow(t *testing.T) {
	env, now := testEnv(t)

	// 1. Offload a failing run.
	var content strings.Builder
	for i := 0; i < 200; i++ {
		content.WriteString("collecting tests and running them, line by line\n")
	}
	content.WriteString("E   AssertionError: expected 200, got 401\n")
	offOut, err := Offload(env, OffloadInput{Cmd: "pytest", ExitCode: 1, Content: content.String(), SkipSweep: true})
	require.NoError(t, err)
	require.False(t, offOut.Inline)
	require.NotEmpty(t, offOut.Pointer)
	require.Contains(t, offOut.Preview, "AssertionError")
	id := offOut.ID

	// 2. Recent shows it and persists the positional snapshot.
	recOut, err := Recent(env, RecentInput{})
	require.NoError(t, err)
	require.Len(t, recOut.Items, 1)
	require.Equal(t, id, recOut.Items[0].ID)
	require.True(t, recOut.Items[0].Exists)

	// 3. Open by position.
	openOut, err := Open(env, OpenInput{Selector: "1", View: ViewTail, N: 2})
	require.NoError(t, err)
	require.Equal(t, id, openOut.ID)
	require.Contains(t, openOut.Content, "AssertionError")

	// 4. Annotate.
	tagOut, err := Tag(env, TagInput{Selector: id, Tags: []string{"auth", "flaky"}})
	require.NoError(t, err)
	require.Equal(t, []string{"auth", "flaky"}, tagOut.Tags)
	_, err = Note(env, NoteInput{Selector: id, Note: "401 only under the seeded test user"})
	require.NoError(t, err)

	// 5. Pin, then age far past the failure TTL: the sweep must not touch it.
	_, err = Pin(env, PinInput{Selector: id})
	require.NoError(t, err)
	*now = now.Add(100 * time.Hour)
	sweep, err := Cleanup(env, CleanupInput{})
	require.NoError(t, err)
	require.Zero(t, sweep.Deleted)

	entry, err := env.Log.Find(id)
	require.NoError(t, err)
	require.True(t, entry.Pinned)
	require.True(t, env.Store.Exists(entry.CurrentPath))
	require.Equal(t, []string{"auth", "flaky"}, entry.TagSet)
	require.Len(t, entry.NoteList, 1)

	// 6. Unpin restores the ephemeral tier; the TTL clock never reset, so
	// the next sweep collects it.
	unpinOut, err := Unpin(env, UnpinInput{Selector: id})
	require.NoError(t, err)
	require.Contains(t, unpinOut.TTLNote, "next sweep")

	sweep, err = Cleanup(env, CleanupInput{})
	require.NoError(t, err)
	require.Equal(t, 1, sweep.Deleted)

	// 7. The manifest still resolves the ID; only the content is gone.
	_, err = Open(env, OpenInput{Selector: id})
	require.True(t, errors.Is(err, errors.CodeNotFound))
	require.Contains(t, err.Error(), "retention")

	entry, err = env.Log.Find(id)
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, []string{"auth", "flaky"}, entry.TagSet)
}

// TestConcreteRetentionScenarios pins down the default TTL boundaries.
func TestConcreteRetentionScenarios(t *testing.T) {
	t.Run("success expires after 24h", func(t *testing.T) {
		env, now := testEnv(t)
		id := capture(t, env, "make", 0, strings.Repeat("build output line\n", 2700))
		entry, _ := env.Log.Find(id)
		require.EqualValues(t, 45900, entry.Bytes)

		*now = now.Add(23*time.Hour + 59*time.Minute)
		sweep, err := Cleanup(env, CleanupInput{})
		require.NoError(t, err)
		require.Zero(t, sweep.Deleted)

		*now = now.Add(2 * time.Minute)
		sweep, err = Cleanup(env, CleanupInput{})
		require.NoError(t, err)
		require.Equal(t, 1, sweep.Deleted)
	})

	t.Run("failure expires after 48h", func(t *testing.T) {
		env, now := testEnv(t)
		capture(t, env, "make", 1, "broken build")

		*now = now.Add(47 * time.Hour)
		sweep, err := Cleanup(env, CleanupInput{})
		require.NoError(t, err)
		require.Zero(t, sweep.Deleted)

		*now = now.Add(2 * time.Hour)
		sweep, err = Cleanup(env, CleanupInput{})
		require.NoError(t, err)
		require.Equal(t, 1, sweep.Deleted)
	})
}
