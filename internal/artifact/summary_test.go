package artifact

import (
	"strings"
	"testing"
)

func TestFirstToken(t *testing.T) {
	tests := []struct {
		cmd  string
		want string
	}{
		{"pytest -x tests/", "pytest"},
		{"sudo make install", "make"},
		{"FOO=bar env go test ./...", "go"},
		{"/usr/local/bin/npm install", "npm"},
		{"", "unknown"},
		{"CC=clang", "unknown"},
	}
	for _, tt := range tests {
		if got := FirstToken(tt.cmd); got != tt.want {
			t.Errorf("FirstToken(%q) = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		cmd     string
		content string
		want    string
	}{
		{
			name:    "pytest tally",
			cmd:     "pytest -x",
			content: "collected 13 items\n\ntests/test_core.py ............F\n\n12 passed, 1 failed in 3.41s\n",
			want:    "12 passed, 1 failed in 3.41s",
		},
		{
			name:    "go test failure",
			cmd:     "go test ./...",
			content: "=== RUN   TestThing\n--- FAIL: TestThing (0.01s)\nFAIL\n",
			want:    "--- FAIL: TestThing (0.01s)",
		},
		{
			name:    "go test ok line",
			cmd:     "go test ./...",
			content: "ok  \tgithub.com/calebsh/offcut/internal/ops\t0.412s\n",
			want:    "ok github.com/calebsh/offcut/internal/ops 0.412s",
		},
		{
			name:    "npm via pnpm alias",
			cmd:     "pnpm install",
			content: "progress lines\nadded 214 packages in 12s\n",
			want:    "added 214 packages in 12s",
		},
		{
			name:    "npm error",
			cmd:     "npm install",
			content: "npm ERR! code ERESOLVE\n",
			want:    "npm ERR! code ERESOLVE",
		},
		{
			name:    "tsc error count",
			cmd:     "tsc --noEmit",
			content: "src/a.ts(3,1): error TS2304\nFound 2 errors in 1 file.\n",
			want:    "Found 2 errors in 1 file.",
		},
		{
			name:    "python traceback",
			cmd:     "python3 script.py",
			content: "Traceback (most recent call last):\n  File \"script.py\"\nValueError: bad input\n",
			want:    "Traceback (most recent call last):",
		},
		{
			name:    "fallback error line for unknown tool",
			cmd:     "mytool run",
			content: "doing work\nerror: something broke\n",
			want:    "error: something broke",
		},
		{
			name:    "no status line",
			cmd:     "ls -la",
			content: "drwxr-xr-x  5 u u 4096 .\n",
			want:    "",
		},
		{
			name:    "empty content",
			cmd:     "go test",
			content: "",
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.cmd, tt.content); got != tt.want {
				t.Errorf("Summarize = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSummarizeOnlyScansTail(t *testing.T) {
	content := "error: buried too deep\n" + strings.Repeat("quiet line\n", 60)
	if got := Summarize("mytool", content); got != "" {
		t.Errorf("matched outside the tail window: %q", got)
	}
}

func TestSummarizeCapsLength(t *testing.T) {
	content := "error: " + strings.Repeat("x", 300) + "\n"
	got := Summarize("mytool", content)
	if len(got) > summaryMaxChars {
		t.Errorf("summary length = %d, cap is %d", len(got), summaryMaxChars)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated summary not marked: %q", got)
	}
}
