package artifact

import (
	"strings"
	"testing"
	"time"
)

func TestNewID(t *testing.T) {
	id, err := NewID()
	if err != nil {
		t.Fatalf("NewID: %v", err)
	}
	if !IsID(id) {
		t.Errorf("NewID produced %q, not an 8-hex ID", id)
	}
	if id != strings.ToUpper(id) {
		t.Errorf("NewID produced lowercase: %q", id)
	}
}

func TestIsID(t *testing.T) {
	cases := []struct {
		s    string
		want bool
	}{
		{"A3F2C881", true},
		{"a3f2c881", true},
		{"deadbeef", true},
		{"A3F2C88", false},
		{"A3F2C8811", false},
		{"A3F2C88G", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsID(c.s); got != c.want {
			t.Errorf("IsID(%q) = %v, want %v", c.s, got, c.want)
		}
	}
}

func TestFileNameRoundTrip(t *testing.T) {
	at := time.Date(2026, 8, 30, 14, 5, 9, 0, time.UTC)
	name := FileName("pytest", at, "A3F2C881", 1)
	want := "pytest_20260830_140509_a3f2c881_exit1.txt"
	if name != want {
		t.Fatalf("FileName = %q, want %q", name, want)
	}
	info, ok := ParseFileName(name)
	if !ok {
		t.Fatal("ParseFileName rejected a generated name")
	}
	if info.Label != "pytest" || info.ID != "A3F2C881" || info.ExitCode != 1 || info.Legacy {
		t.Errorf("ParseFileName = %+v", info)
	}
}

func TestFileNameSanitizesLabel(t *testing.T) {
	at := time.Date(2026, 8, 30, 14, 5, 9, 0, time.UTC)
	name := FileName("go test ./...", at, "A3F2C881", 0)
	if strings.ContainsAny(name, " /") {
		t.Errorf("label not sanitized: %q", name)
	}
	if _, ok := ParseFileName(name); !ok {
		t.Errorf("sanitized name does not parse: %q", name)
	}
}

func TestParseFileNameLegacy(t *testing.T) {
	info, ok := ParseFileName("pytest_20260830_140509_a3f2c881.txt")
	if !ok {
		t.Fatal("legacy name rejected")
	}
	if !info.Legacy {
		t.Error("legacy name not flagged")
	}
	if info.ExitCode != 0 {
		t.Errorf("legacy exit code = %d, want 0", info.ExitCode)
	}
}

func TestParseFileNameRejectsOtherFiles(t *testing.T) {
	for _, name := range []string{
		"LATEST.txt",
		"LATEST_pytest.txt",
		"pytest_20260830_140509_a3f2c881_tmp.txt",
		"notes.md",
		"",
	} {
		if _, ok := ParseFileName(name); ok {
			t.Errorf("ParseFileName accepted %q", name)
		}
	}
}

func TestIsTempFile(t *testing.T) {
	if !IsTempFile("pytest_20260830_140509_a3f2c881_tmp.txt") {
		t.Error("temp file not recognized")
	}
	if !IsTempFile("pytest_20260830_140509_a3f2c881_exit0.txt.part") {
		t.Error("stranded .part file not recognized")
	}
	if IsTempFile("pytest_20260830_140509_a3f2c881_exit0.txt") {
		t.Error("final file mistaken for temp")
	}
}

func TestManualFileName(t *testing.T) {
	at := time.Date(2026, 8, 30, 14, 5, 9, 0, time.UTC)
	name := ManualFileName(at, "A3F2C881", "API design notes")
	if name != "manual_API_design_notes_20260830_140509_a3f2c881_exit0.txt" {
		t.Errorf("ManualFileName = %q", name)
	}
	info, ok := ParseFileName(name)
	if !ok || info.ID != "A3F2C881" || info.ExitCode != 0 {
		t.Errorf("ManualFileName does not parse: %+v, %v", info, ok)
	}
	plain := ManualFileName(at, "A3F2C881", "")
	if plain != "manual_20260830_140509_a3f2c881_exit0.txt" {
		t.Errorf("ManualFileName without title = %q", plain)
	}
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{0, "0B"},
		{512, "512B"},
		{1536, "1.5KB"},
		{2 << 20, "2.0MB"},
	}
	for _, c := range cases {
		if got := FormatSize(c.n); got != c.want {
			t.Errorf("FormatSize(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		t    time.Time
		want string
	}{
		{now.Add(-42 * time.Second), "42s"},
		{now.Add(-5 * time.Minute), "5m"},
		{now.Add(-3 * time.Hour), "3h"},
		{now.Add(-49 * time.Hour), "2d"},
		{time.Time{}, "?"},
	}
	for _, c := range cases {
		if got := FormatAge(c.t, now); got != c.want {
			t.Errorf("FormatAge(%v) = %q, want %q", c.t, got, c.want)
		}
	}
}

func TestCountLines(t *testing.T) {
	cases := []struct {
		s    string
		want int
	}{
		{"", 0},
		{"one", 1},
		{"one\n", 1},
		{"one\ntwo\n", 2},
		{"one\ntwo", 2},
	}
	for _, c := range cases {
		if got := CountLines(c.s); got != c.want {
			t.Errorf("CountLines(%q) = %d, want %d", c.s, got, c.want)
		}
	}
}
