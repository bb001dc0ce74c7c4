package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/calebsh/offcut/internal/config"
	"github.com/calebsh/offcut/internal/ops"
)

// setupEnv creates an Env over a temp data dir for testing.
func setupEnv(t *testing.T) *ops.Env {
	t.Helper()
	env := ops.NewEnv(t.TempDir(), config.DefaultConfig(), "SESSION01")
	if err := env.Store.Bootstrap(); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return env
}

// runCLI runs the app with the given args and returns captured stdout.
func runCLI(t *testing.T, env *ops.Env, args ...string) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	app := newCLIApp(env)
	err := app.Run(append([]string{"offcut"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), err
}

// withStdin redirects stdin to a pipe fed with content for the duration of fn.
func withStdin(t *testing.T, content string, fn func()) {
	t.Helper()

	oldStdin := os.Stdin
	r, w, _ := os.Pipe()
	os.Stdin = r
	go func() {
		_, _ = w.WriteString(content)
		w.Close()
	}()
	defer func() { os.Stdin = oldStdin }()

	fn()
}

// seedArtifact captures an output big enough to land on disk.
func seedArtifact(t *testing.T, env *ops.Env, cmd string, exit int, content string) string {
	t.Helper()
	if len(content) < env.Cfg.InlineMax {
		content = strings.Repeat("padding line for offload threshold\n", 1+env.Cfg.InlineMax/32) + content
	}
	out, err := ops.Offload(env, ops.OffloadInput{Cmd: cmd, ExitCode: exit, Content: content, SkipSweep: true})
	if err != nil {
		t.Fatalf("seed offload: %v", err)
	}
	if out.Inline {
		t.Fatal("seed output stayed inline")
	}
	return out.ID
}

func TestCLIOffloadInline(t *testing.T) {
	env := setupEnv(t)

	var out string
	var err error
	withStdin(t, "short output\n", func() {
		out, err = runCLI(t, env, "offload", "--cmd", "ls", "--exit", "0")
	})
	if err != nil {
		t.Fatalf("offload failed: %v", err)
	}
	if out != "short output\n" {
		t.Errorf("inline output = %q", out)
	}
}

func TestCLIOffloadPointer(t *testing.T) {
	env := setupEnv(t)

	content := strings.Repeat("a line of build output\n", 100)
	var out string
	var err error
	withStdin(t, content, func() {
		out, err = runCLI(t, env, "offload", "--cmd", "go build ./...", "--exit", "0", "--no-sweep")
	})
	if err != nil {
		t.Fatalf("offload failed: %v", err)
	}
	for _, want := range []string{"[oc ", "go build", "e=0", "offcut open"} {
		if !strings.Contains(out, want) {
			t.Errorf("pointer %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "a line of build output") {
		t.Error("large output was echoed instead of offloaded")
	}
}

func TestCLIOffloadFailingPreview(t *testing.T) {
	env := setupEnv(t)

	content := strings.Repeat("noise before the failure\n", 200) + "--- FAIL: TestThing\nFAIL\n"
	var out string
	var err error
	withStdin(t, content, func() {
		out, err = runCLI(t, env, "offload", "--cmd", "go test ./...", "--exit", "1", "--no-sweep")
	})
	if err != nil {
		t.Fatalf("offload failed: %v", err)
	}
	if !strings.Contains(out, "--- FAIL: TestThing") {
		t.Errorf("failing offload missing tail preview: %q", out)
	}
}

func TestCLIRecent(t *testing.T) {
	env := setupEnv(t)
	seedArtifact(t, env, "go test ./...", 1, "--- FAIL: TestOne\n")
	seedArtifact(t, env, "go build ./...", 0, "ok\n")

	out, err := runCLI(t, env, "recent", "--json")
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	var output ops.RecentOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if len(output.Items) != 2 {
		t.Errorf("items = %d, want 2", len(output.Items))
	}

	out, err = runCLI(t, env, "recent")
	if err != nil {
		t.Fatalf("recent (table) failed: %v", err)
	}
	if !strings.Contains(out, "go test ./...") {
		t.Errorf("table output missing command: %q", out)
	}
}

func TestCLIOpen(t *testing.T) {
	env := setupEnv(t)
	id := seedArtifact(t, env, "npm test", 1, "the real last line\n")

	out, err := runCLI(t, env, "open", id)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if !strings.Contains(out, "the real last line") {
		t.Errorf("open output missing content: %q", out)
	}

	out, err = runCLI(t, env, "open", "--view", "tail", "--n", "1", id)
	if err != nil {
		t.Fatalf("open tail failed: %v", err)
	}
	if !strings.Contains(out, "the real last line") {
		t.Errorf("tail output = %q", out)
	}
	if strings.Contains(out, "padding line") {
		t.Errorf("tail of 1 returned extra lines: %q", out)
	}
}

func TestCLIPinTagNote(t *testing.T) {
	env := setupEnv(t)
	id := seedArtifact(t, env, "go test ./...", 1, "--- FAIL: TestPin\n")

	out, err := runCLI(t, env, "pin", "--reason", "flaky repro", id)
	if err != nil {
		t.Fatalf("pin failed: %v", err)
	}
	var pinOut ops.PinOutput
	if err := json.Unmarshal([]byte(out), &pinOut); err != nil {
		t.Fatalf("failed to parse pin output: %v", err)
	}
	if pinOut.ID != id {
		t.Errorf("pin ID = %q, want %q", pinOut.ID, id)
	}

	out, err = runCLI(t, env, "tag", id, "flaky", "ci")
	if err != nil {
		t.Fatalf("tag failed: %v", err)
	}
	var tagOut ops.TagOutput
	if err := json.Unmarshal([]byte(out), &tagOut); err != nil {
		t.Fatalf("failed to parse tag output: %v", err)
	}
	if len(tagOut.Tags) != 2 {
		t.Errorf("tags = %v", tagOut.Tags)
	}

	if _, err = runCLI(t, env, "note", id, "reproduces", "on", "linux"); err != nil {
		t.Fatalf("note failed: %v", err)
	}

	if _, err = runCLI(t, env, "unpin", id); err != nil {
		t.Fatalf("unpin failed: %v", err)
	}
}

func TestCLISave(t *testing.T) {
	env := setupEnv(t)

	var out string
	var err error
	withStdin(t, "distilled findings\n", func() {
		out, err = runCLI(t, env, "save", "--title", "Root Cause", "--pin")
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	var saveOut ops.SaveOutput
	if err := json.Unmarshal([]byte(out), &saveOut); err != nil {
		t.Fatalf("failed to parse save output: %v", err)
	}
	if len(saveOut.ID) != 8 {
		t.Errorf("ID = %q", saveOut.ID)
	}
}

func TestCLISearch(t *testing.T) {
	env := setupEnv(t)
	seedArtifact(t, env, "go test ./...", 1, "parse error at line 3\n")

	out, err := runCLI(t, env, "search", "parse error")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	var output ops.SearchOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if output.TotalMatches < 1 {
		t.Errorf("total matches = %d", output.TotalMatches)
	}
}

func TestCLIDiff(t *testing.T) {
	env := setupEnv(t)
	seedArtifact(t, env, "go test ./...", 1, "--- FAIL: TestA\nFAIL\n")
	seedArtifact(t, env, "go test ./...", 0, "ok  \tall tests passed\n")

	out, err := runCLI(t, env, "diff", "--last", "--cmd", "go test ./...")
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	var output ops.DiffOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if output.Transition != "FIXED" {
		t.Errorf("transition = %q, want FIXED", output.Transition)
	}
}

func TestCLICleanupAndDoctor(t *testing.T) {
	env := setupEnv(t)
	seedArtifact(t, env, "go test ./...", 0, "ok\n")

	if _, err := runCLI(t, env, "cleanup", "--dry-run"); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	out, err := runCLI(t, env, "doctor")
	if err != nil {
		t.Fatalf("doctor failed: %v", err)
	}
	var output ops.DoctorOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if !output.StorageWritable {
		t.Error("doctor reports storage not writable")
	}
}

func TestCLIErrorExitCodes(t *testing.T) {
	env := setupEnv(t)

	_, err := runCLI(t, env, "open", "DEADBEEF")
	if err == nil {
		t.Fatal("open of unknown ID succeeded")
	}
	ec, ok := err.(cli.ExitCoder)
	if !ok {
		t.Fatalf("error is not an ExitCoder: %v", err)
	}
	if ec.ExitCode() != 1 {
		t.Errorf("exit code = %d, want 1", ec.ExitCode())
	}
	if !strings.Contains(err.Error(), "NOT_FOUND") {
		t.Errorf("error message missing code: %v", err)
	}
}

func TestIsCLIMode(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"offcut"}, false},
		{[]string{"offcut", "recent"}, true},
		{[]string{"offcut", "offload"}, true},
		{[]string{"offcut", "--help"}, true},
		{[]string{"offcut", "-v"}, true},
		{[]string{"offcut", "bogus"}, false},
	}
	for _, tt := range tests {
		os.Args = tt.args
		if got := isCLIMode(); got != tt.want {
			t.Errorf("isCLIMode(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}
