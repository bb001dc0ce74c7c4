package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AutoPin holds the rules that pin an output automatically at capture time.
// All rules default to off; MaxFiles bounds runaway pinning.
type AutoPin struct {
	OnFail    bool     `json:"on_fail,omitempty"`
	Match     string   `json:"match,omitempty"`
	Cmds      []string `json:"cmds,omitempty"`
	ExitCodes []int    `json:"exit_codes,omitempty"`
	SizeMin   int      `json:"size_min,omitempty"`
	MaxFiles  int      `json:"max_files,omitempty"`
}

// Config holds application configuration.
type Config struct {
	// InlineMax is the byte threshold below which output stays inline
	// instead of being offloaded.
	InlineMax int `json:"inline_max"`

	// PreviewMin is the byte threshold above which a failing output gets a
	// bounded tail preview appended to its pointer.
	PreviewMin int `json:"preview_min"`

	// PreviewLines is the number of tail lines in a preview.
	PreviewLines int `json:"preview_lines"`

	// RetentionSuccessMin / RetentionFailMin are TTLs in minutes for
	// ephemeral artifacts, chosen by exit code at creation.
	RetentionSuccessMin int `json:"retention_success_min"`
	RetentionFailMin    int `json:"retention_fail_min"`

	// ScratchMaxMB caps total ephemeral storage; LRU eviction applies above it.
	ScratchMaxMB int `json:"scratch_max_mb"`

	// ManifestMaxMB triggers manifest rotation; KeepRotated bounds archives.
	ManifestMaxMB int `json:"manifest_max_mb"`
	KeepRotated   int `json:"keep_rotated"`

	// NoteMaxChars caps note length. Over-length notes are rejected outright.
	NoteMaxChars int `json:"note_max_chars"`

	// OpenCmd is the retrieval hint embedded in pointer lines.
	OpenCmd string `json:"open_cmd,omitempty"`

	// ShowPath appends the content path to pointer lines.
	ShowPath bool `json:"show_path,omitempty"`

	// VerbosePointer switches to the multi-line pointer format.
	VerbosePointer bool `json:"verbose_pointer,omitempty"`

	// Disabled turns off capture entirely.
	Disabled bool `json:"disabled,omitempty"`

	// Aliases maps a command group to the command labels it covers,
	// e.g. "npm" -> pnpm/yarn/bun.
	Aliases map[string][]string `json:"aliases,omitempty"`

	// AutoPin configures rule-based pinning at capture time.
	AutoPin AutoPin `json:"auto_pin,omitempty"`

	// DisabledTools lists MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		InlineMax:           512,
		PreviewMin:          4096,
		PreviewLines:        5,
		RetentionSuccessMin: 1440, // 24h
		RetentionFailMin:    2880, // 48h
		ScratchMaxMB:        250,
		ManifestMaxMB:       50,
		KeepRotated:         5,
		NoteMaxChars:        500,
		OpenCmd:             "offcut open",
		AutoPin:             AutoPin{MaxFiles: 50},
		Aliases: map[string][]string{
			"pytest": {"py.test"},
			"npm":    {"pnpm", "yarn", "bun"},
			"make":   {"gmake"},
			"git":    {"gh"},
		},
	}
}

const rcName = ".offcutrc.json"

// Load builds the effective configuration for a project rooted at startDir.
// Precedence, lowest to highest: defaults, user config (~/.offcutrc.json),
// repo config (nearest .offcutrc.json walking up from startDir), OFFCUT_*
// environment variables.
func Load(startDir string) (*Config, error) {
	cfg := DefaultConfig()

	if home, err := os.UserHomeDir(); err == nil {
		user, err := loadFileRaw(filepath.Join(home, rcName))
		if err != nil {
			return nil, err
		}
		cfg = Merge(cfg, user)
	}

	if repoPath := FindRepoConfig(startDir); repoPath != "" {
		repo, err := loadFileRaw(repoPath)
		if err != nil {
			return nil, err
		}
		cfg = Merge(cfg, repo)
	}

	applyEnv(cfg)
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to the nearest .offcutrc.json.
// Returns empty string if none is found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		p := filepath.Join(dir, rcName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads a config file, returning a zero-valued config (not
// defaults) when the file does not exist.
func loadFileRaw(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge combines base and overlay. Overlay wins for non-zero scalars;
// maps and slices replace wholesale when set.
func Merge(base, overlay *Config) *Config {
	result := *base

	setInt := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	setInt(&result.InlineMax, overlay.InlineMax)
	setInt(&result.PreviewMin, overlay.PreviewMin)
	setInt(&result.PreviewLines, overlay.PreviewLines)
	setInt(&result.RetentionSuccessMin, overlay.RetentionSuccessMin)
	setInt(&result.RetentionFailMin, overlay.RetentionFailMin)
	setInt(&result.ScratchMaxMB, overlay.ScratchMaxMB)
	setInt(&result.ManifestMaxMB, overlay.ManifestMaxMB)
	setInt(&result.KeepRotated, overlay.KeepRotated)
	setInt(&result.NoteMaxChars, overlay.NoteMaxChars)

	if overlay.OpenCmd != "" {
		result.OpenCmd = overlay.OpenCmd
	}
	result.ShowPath = base.ShowPath || overlay.ShowPath
	result.VerbosePointer = base.VerbosePointer || overlay.VerbosePointer
	result.Disabled = base.Disabled || overlay.Disabled

	if len(overlay.Aliases) > 0 {
		result.Aliases = overlay.Aliases
	}
	if len(overlay.DisabledTools) > 0 {
		result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	}

	ap := base.AutoPin
	if overlay.AutoPin.OnFail {
		ap.OnFail = true
	}
	if overlay.AutoPin.Match != "" {
		ap.Match = overlay.AutoPin.Match
	}
	if len(overlay.AutoPin.Cmds) > 0 {
		ap.Cmds = overlay.AutoPin.Cmds
	}
	if len(overlay.AutoPin.ExitCodes) > 0 {
		ap.ExitCodes = overlay.AutoPin.ExitCodes
	}
	if overlay.AutoPin.SizeMin != 0 {
		ap.SizeMin = overlay.AutoPin.SizeMin
	}
	if overlay.AutoPin.MaxFiles != 0 {
		ap.MaxFiles = overlay.AutoPin.MaxFiles
	}
	result.AutoPin = ap

	return &result
}

// applyEnv overlays OFFCUT_* environment variables onto cfg. Invalid values
// are ignored rather than failing startup.
func applyEnv(cfg *Config) {
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	envBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}

	envInt("OFFCUT_INLINE_MAX", &cfg.InlineMax)
	envInt("OFFCUT_PREVIEW_MIN", &cfg.PreviewMin)
	envInt("OFFCUT_PREVIEW_LINES", &cfg.PreviewLines)
	envInt("OFFCUT_RETENTION_SUCCESS_MIN", &cfg.RetentionSuccessMin)
	envInt("OFFCUT_RETENTION_FAIL_MIN", &cfg.RetentionFailMin)
	envInt("OFFCUT_SCRATCH_MAX_MB", &cfg.ScratchMaxMB)
	envInt("OFFCUT_MANIFEST_MAX_MB", &cfg.ManifestMaxMB)
	envInt("OFFCUT_KEEP_ROTATED", &cfg.KeepRotated)
	envInt("OFFCUT_NOTE_MAX_CHARS", &cfg.NoteMaxChars)
	envBool("OFFCUT_SHOW_PATH", &cfg.ShowPath)
	envBool("OFFCUT_VERBOSE_POINTER", &cfg.VerbosePointer)
	envBool("OFFCUT_DISABLE", &cfg.Disabled)
	if v := os.Getenv("OFFCUT_OPEN_CMD"); v != "" {
		cfg.OpenCmd = v
	}
	envBool("OFFCUT_AUTO_PIN_FAIL", &cfg.AutoPin.OnFail)
	if v := os.Getenv("OFFCUT_AUTO_PIN_CMDS"); v != "" {
		cfg.AutoPin.Cmds = splitList(v, ",")
	}
	if v := os.Getenv("OFFCUT_AUTO_PIN_EXIT"); v != "" {
		codes := make([]int, 0)
		for _, s := range splitList(v, ",") {
			if n, err := strconv.Atoi(s); err == nil {
				codes = append(codes, n)
			}
		}
		cfg.AutoPin.ExitCodes = codes
	}
	envInt("OFFCUT_AUTO_PIN_SIZE_MIN", &cfg.AutoPin.SizeMin)
	envInt("OFFCUT_AUTO_PIN_MAX", &cfg.AutoPin.MaxFiles)
	if v := os.Getenv("OFFCUT_AUTO_PIN_MATCH"); v != "" {
		cfg.AutoPin.Match = v
	}
}

// TTLMinutes returns the retention TTL for the given exit code.
func (c *Config) TTLMinutes(exitCode int) int {
	if exitCode == 0 {
		return c.RetentionSuccessMin
	}
	return c.RetentionFailMin
}

// Group maps a command label to its alias-normalized command group. Labels
// that match no alias list are their own group.
func (c *Config) Group(cmd string) string {
	for group, members := range c.Aliases {
		if cmd == group {
			return group
		}
		for _, m := range members {
			if cmd == m {
				return group
			}
		}
	}
	return cmd
}

func splitList(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
