// Package artifact defines the unit of captured content and the helpers that
// encode it on disk: IDs, filenames, and display formatting.
package artifact

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind classifies how an artifact was created.
type Kind string

const (
	KindCommandOutput Kind = "command-output"
	KindManualSave    Kind = "manual-save"
	KindExportReport  Kind = "export-report"
)

// Artifact is a unit of captured content tracked by the manifest.
type Artifact struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Cmd       string    `json:"cmd,omitempty"`
	CmdGroup  string    `json:"cmd_group,omitempty"`
	ExitCode  int       `json:"exit_code"`
	Title     string    `json:"title,omitempty"`
	Bytes     int64     `json:"bytes"`
	Lines     int       `json:"lines"`
	CreatedAt time.Time `json:"created_at"`
	SessionID string    `json:"session_id,omitempty"`
	Path      string    `json:"path"`
}

// NewID generates an 8-character uppercase hexadecimal artifact ID.
// Uniqueness within a manifest's lifetime rests on randomness; there is no
// uniqueness index.
func NewID() (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf[:])), nil
}

// IsID reports whether s looks like a literal 8-hex artifact ID.
func IsID(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// fileStamp is the timestamp layout embedded in content filenames.
const fileStamp = "20060102_150405"

var labelSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SafeLabel sanitizes a command label for filename use.
func SafeLabel(label string) string {
	s := labelSanitizer.ReplaceAllString(label, "_")
	if len(s) > 20 {
		s = s[:20]
	}
	if s == "" {
		s = "cmd"
	}
	return s
}

// FileName encodes a command-output artifact's filename:
// {cmd}_{YYYYMMDD_HHMMSS}_{id}_exit{code}.txt. The exit code rides in the
// name so the retention sweep can pick a TTL without opening the manifest.
func FileName(label string, at time.Time, id string, exitCode int) string {
	return fmt.Sprintf("%s_%s_%s_exit%d.txt", SafeLabel(label), at.Format(fileStamp), strings.ToLower(id), exitCode)
}

// ManualFileName encodes a manual-save artifact's filename, folding an
// optional title slug into the label segment so the name still parses like
// any other output file.
func ManualFileName(at time.Time, id, title string) string {
	label := "manual"
	slug := labelSanitizer.ReplaceAllString(strings.ReplaceAll(strings.TrimSpace(title), " ", "_"), "")
	if len(slug) > 40 {
		slug = slug[:40]
	}
	if slug != "" {
		label += "_" + slug
	}
	return fmt.Sprintf("%s_%s_%s_exit0.txt", label, at.Format(fileStamp), strings.ToLower(id))
}

// outputFile matches {cmd}_{YYYYMMDD_HHMMSS}_{8hex}_exit{code}.txt.
var outputFile = regexp.MustCompile(`^([a-zA-Z0-9_-]+)_(\d{8}_\d{6})_([0-9a-fA-F]{8})_exit(-?\d+)\.txt$`)

// legacyFile matches older names without an exit code.
var legacyFile = regexp.MustCompile(`^([a-zA-Z0-9_-]+)_(\d{8}_\d{6})_([0-9a-fA-F]{8})\.txt$`)

// tempFile matches in-flight capture files left by interrupted commands.
var tempFile = regexp.MustCompile(`^([a-zA-Z0-9_-]+)_(\d{8}_\d{6})_([0-9a-fA-F]{8})_tmp\.txt$`)

// FileInfo is what a content filename encodes.
type FileInfo struct {
	Label    string
	ID       string
	ExitCode int
	// Legacy is true for files written before exit codes were encoded;
	// they get the success TTL.
	Legacy bool
}

// ParseFileName decodes a content filename. Returns ok=false for aliases,
// temp files, and anything else that is not an offload output.
func ParseFileName(name string) (FileInfo, bool) {
	if m := outputFile.FindStringSubmatch(name); m != nil {
		code, err := strconv.Atoi(m[4])
		if err != nil {
			return FileInfo{}, false
		}
		return FileInfo{Label: m[1], ID: strings.ToUpper(m[3]), ExitCode: code}, true
	}
	if m := legacyFile.FindStringSubmatch(name); m != nil {
		return FileInfo{Label: m[1], ID: strings.ToUpper(m[3]), Legacy: true}, true
	}
	return FileInfo{}, false
}

// IsTempFile reports whether name is an in-flight capture file: a _tmp
// capture, or a .part file stranded by a crash between write and rename.
func IsTempFile(name string) bool {
	return tempFile.MatchString(name) || strings.HasSuffix(name, ".part")
}

// FormatSize renders a byte count for pointer display.
func FormatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}

// FormatAge renders the elapsed time since t in compact form (42s, 5m, 3h, 2d).
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "?"
	}
	d := now.Sub(t)
	switch {
	case d < 0:
		return "future"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// CountLines counts lines the way wc -l plus a trailing partial line does.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
