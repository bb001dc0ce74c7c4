package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Signature is a compact fingerprint of a failure output, used to find
// related failures without rereading whole files.
type Signature struct {
	ErrorTypes []string `json:"error_types,omitempty"`
	TestFiles  []string `json:"test_files,omitempty"`
	TailHash   string   `json:"tail_hash,omitempty"`
}

const (
	maxErrorTypes = 3
	maxTestFiles  = 5
	tailLines     = 10
)

var errorTypePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\w+Error)\b`),
	regexp.MustCompile(`\b(\w+Exception)\b`),
	regexp.MustCompile(`\b(panic): `),
	regexp.MustCompile(`\b(FAILED|FAIL)\b`),
	regexp.MustCompile(`\b(SyntaxWarning|DeprecationWarning)\b`),
}

var testFilePattern = regexp.MustCompile(`\b([\w./-]*(?:test_\w+|\w+_test|\w+\.test|\w+\.spec)\.\w{1,4})\b`)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

var digitRun = regexp.MustCompile(`\d+`)

var spaceRun = regexp.MustCompile(`\s+`)

// ExtractSignature fingerprints a failure output. Error types cap at 3 and
// test files at 5, each in first-seen order, so noisy outputs stay
// comparable.
func ExtractSignature(content string) Signature {
	var sig Signature
	seen := make(map[string]bool)
	for _, pat := range errorTypePatterns {
		for _, m := range pat.FindAllStringSubmatch(content, -1) {
			name := m[1]
			if seen[name] {
				continue
			}
			seen[name] = true
			sig.ErrorTypes = append(sig.ErrorTypes, name)
			if len(sig.ErrorTypes) >= maxErrorTypes {
				break
			}
		}
		if len(sig.ErrorTypes) >= maxErrorTypes {
			break
		}
	}

	seenFile := make(map[string]bool)
	for _, m := range testFilePattern.FindAllStringSubmatch(content, -1) {
		f := m[1]
		if seenFile[f] {
			continue
		}
		seenFile[f] = true
		sig.TestFiles = append(sig.TestFiles, f)
		if len(sig.TestFiles) >= maxTestFiles {
			break
		}
	}

	sig.TailHash = TailHash(content)
	return sig
}

// TailHash hashes the normalized last lines of content to 8 hex chars.
// Normalization strips ANSI sequences, replaces digit runs with N, and
// collapses whitespace, so timestamps and counters do not defeat matching.
func TailHash(content string) string {
	lines := nonEmptyTail(content, tailLines)
	if len(lines) == 0 {
		return ""
	}
	for i, ln := range lines {
		ln = ansiEscape.ReplaceAllString(ln, "")
		ln = digitRun.ReplaceAllString(ln, "N")
		ln = spaceRun.ReplaceAllString(ln, " ")
		lines[i] = strings.TrimSpace(ln)
	}
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:4])
}

func nonEmptyTail(content string, n int) []string {
	all := strings.Split(content, "\n")
	var out []string
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		if strings.TrimSpace(all[i]) == "" {
			continue
		}
		out = append(out, all[i])
	}
	// Reverse back to file order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Similarity weights:
//
//	0.3  error-type overlap (Jaccard)
//	0.4  test-file overlap (Jaccard)
//	0.3  tail-hash exact match
const (
	weightErrors = 0.3
	weightFiles  = 0.4
	weightTail   = 0.3
)

// Similarity scores how alike two failure signatures are, in [0, 1].
func Similarity(a, b Signature) float64 {
	score := weightErrors * jaccard(a.ErrorTypes, b.ErrorTypes)
	score += weightFiles * jaccard(a.TestFiles, b.TestFiles)
	if a.TailHash != "" && a.TailHash == b.TailHash {
		score += weightTail
	}
	return score
}

// ExplainSimilarity lists the concrete reasons two signatures match, in a
// stable order for display next to the score.
func ExplainSimilarity(a, b Signature) []string {
	var reasons []string
	if common := intersect(a.ErrorTypes, b.ErrorTypes); len(common) > 0 {
		reasons = append(reasons, fmt.Sprintf("same error types: %s", strings.Join(common, ", ")))
	}
	if common := intersect(a.TestFiles, b.TestFiles); len(common) > 0 {
		reasons = append(reasons, fmt.Sprintf("same test files: %s", strings.Join(common, ", ")))
	}
	if a.TailHash != "" && a.TailHash == b.TailHash {
		reasons = append(reasons, "identical output tail")
	}
	return reasons
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	inter := 0
	union := len(set)
	seen := make(map[string]bool, len(b))
	for _, s := range b {
		if seen[s] {
			continue
		}
		seen[s] = true
		if set[s] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	var out []string
	for _, s := range b {
		if set[s] {
			out = append(out, s)
			set[s] = false
		}
	}
	sort.Strings(out)
	return out
}
