package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.InlineMax != 512 {
		t.Errorf("InlineMax = %d, want 512", cfg.InlineMax)
	}
	if cfg.RetentionSuccessMin != 1440 {
		t.Errorf("RetentionSuccessMin = %d, want 1440", cfg.RetentionSuccessMin)
	}
	if cfg.RetentionFailMin != 2880 {
		t.Errorf("RetentionFailMin = %d, want 2880", cfg.RetentionFailMin)
	}
	if cfg.ScratchMaxMB != 250 {
		t.Errorf("ScratchMaxMB = %d, want 250", cfg.ScratchMaxMB)
	}
	if cfg.NoteMaxChars != 500 {
		t.Errorf("NoteMaxChars = %d, want 500", cfg.NoteMaxChars)
	}
}

func TestMergeScalars(t *testing.T) {
	base := DefaultConfig()
	overlay := &Config{InlineMax: 1024, ShowPath: true}

	merged := Merge(base, overlay)

	if merged.InlineMax != 1024 {
		t.Errorf("InlineMax = %d, want overlay 1024", merged.InlineMax)
	}
	if !merged.ShowPath {
		t.Error("ShowPath should come from overlay")
	}
	// Untouched scalars keep base values.
	if merged.PreviewMin != 4096 {
		t.Errorf("PreviewMin = %d, want base 4096", merged.PreviewMin)
	}
}

func TestMergeAutoPin(t *testing.T) {
	base := DefaultConfig()
	overlay := &Config{AutoPin: AutoPin{OnFail: true, Cmds: []string{"pytest"}}}

	merged := Merge(base, overlay)

	if !merged.AutoPin.OnFail {
		t.Error("AutoPin.OnFail should come from overlay")
	}
	if merged.AutoPin.MaxFiles != 50 {
		t.Errorf("AutoPin.MaxFiles = %d, want base default 50", merged.AutoPin.MaxFiles)
	}
}

func TestFindRepoConfig(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	rcPath := filepath.Join(tmpDir, ".offcutrc.json")
	if err := os.WriteFile(rcPath, []byte(`{"inline_max": 256}`), 0o644); err != nil {
		t.Fatal(err)
	}

	found := FindRepoConfig(nested)
	if found != rcPath {
		t.Errorf("FindRepoConfig = %q, want %q", found, rcPath)
	}

	if got := FindRepoConfig(t.TempDir()); got != "" {
		t.Errorf("FindRepoConfig in empty tree = %q, want empty", got)
	}
}

func TestLoadRepoOverride(t *testing.T) {
	tmpDir := t.TempDir()
	rcPath := filepath.Join(tmpDir, ".offcutrc.json")
	if err := os.WriteFile(rcPath, []byte(`{"retention_fail_min": 60, "disabled": true}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.RetentionFailMin != 60 {
		t.Errorf("RetentionFailMin = %d, want 60", cfg.RetentionFailMin)
	}
	if !cfg.Disabled {
		t.Error("Disabled should be true from repo config")
	}
	if cfg.InlineMax != 512 {
		t.Errorf("InlineMax = %d, want default 512", cfg.InlineMax)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("OFFCUT_SCRATCH_MAX_MB", "10")
	t.Setenv("OFFCUT_DISABLE", "1")
	t.Setenv("OFFCUT_AUTO_PIN_EXIT", "2, 101")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ScratchMaxMB != 10 {
		t.Errorf("ScratchMaxMB = %d, want env 10", cfg.ScratchMaxMB)
	}
	if !cfg.Disabled {
		t.Error("Disabled should be set via env")
	}
	if len(cfg.AutoPin.ExitCodes) != 2 || cfg.AutoPin.ExitCodes[1] != 101 {
		t.Errorf("AutoPin.ExitCodes = %v, want [2 101]", cfg.AutoPin.ExitCodes)
	}
}

func TestLoadMalformedEnvIgnored(t *testing.T) {
	t.Setenv("OFFCUT_INLINE_MAX", "not-a-number")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.InlineMax != 512 {
		t.Errorf("InlineMax = %d, want default 512 on bad env", cfg.InlineMax)
	}
}

func TestGroup(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		cmd  string
		want string
	}{
		{"pnpm", "npm"},
		{"yarn", "npm"},
		{"npm", "npm"},
		{"gh", "git"},
		{"pytest", "pytest"},
		{"cargo", "cargo"}, // no alias entry: its own group
	}
	for _, tt := range tests {
		if got := cfg.Group(tt.cmd); got != tt.want {
			t.Errorf("Group(%q) = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}

func TestTTLMinutes(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.TTLMinutes(0); got != 1440 {
		t.Errorf("TTLMinutes(0) = %d, want 1440", got)
	}
	if got := cfg.TTLMinutes(1); got != 2880 {
		t.Errorf("TTLMinutes(1) = %d, want 2880", got)
	}
}
