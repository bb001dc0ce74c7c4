package artifact

import (
	"regexp"
	"strings"
)

// summaryTailLines bounds how far back extraction looks; status lines live
// at the end of tool output.
const summaryTailLines = 50

// summaryMaxChars caps the extracted line so the pointer stays one line.
const summaryMaxChars = 120

// extractors maps a command token to status-line patterns, most specific
// first. The first capture group (or the whole match) becomes the summary.
var extractors = map[string][]*regexp.Regexp{
	"pytest": {
		regexp.MustCompile(`(?i)(\d+ (?:passed|failed|skipped|error|warning)[^\n]*)`),
		regexp.MustCompile(`(=+ [^\n=]+ =+)`),
	},
	"go": {
		regexp.MustCompile(`(--- FAIL: [^\n]*)`),
		regexp.MustCompile(`(?m)^(ok\s+\S+\s+[\d.]+s)`),
		regexp.MustCompile(`(?m)^(FAIL|PASS)\b`),
	},
	"jest": {
		regexp.MustCompile(`(Tests:\s+\d+[^\n]*)`),
		regexp.MustCompile(`(Test Suites:\s+\d+[^\n]*)`),
	},
	"cargo": {
		regexp.MustCompile(`(test result:[^\n]*)`),
		regexp.MustCompile(`(error\[E\d+\]:[^\n]*)`),
		regexp.MustCompile(`(Finished\s+[^\n]*)`),
	},
	"npm": {
		regexp.MustCompile(`(added\s+\d+\s+packages?[^\n]*)`),
		regexp.MustCompile(`(up to date[^\n]*)`),
		regexp.MustCompile(`(npm ERR![^\n]*)`),
	},
	"pip": {
		regexp.MustCompile(`(Successfully installed[^\n]*)`),
		regexp.MustCompile(`(Requirement already satisfied[^\n]*)`),
	},
	"make": {
		regexp.MustCompile(`(make(?:\[\d+\])?:[^\n]*Error\s+\d+)`),
	},
	"tsc": {
		regexp.MustCompile(`(Found\s+\d+\s+errors?[^\n]*)`),
		regexp.MustCompile(`(error\s+TS\d+:[^\n]*)`),
	},
	"mypy": {
		regexp.MustCompile(`(Found\s+\d+\s+errors?[^\n]*)`),
		regexp.MustCompile(`(Success:[^\n]*)`),
	},
	"eslint": {
		regexp.MustCompile(`(\d+\s+problems?\s+\(\d+\s+errors?,\s+\d+\s+warnings?\))`),
	},
	"git": {
		regexp.MustCompile(`(\d+\s+files?\s+changed[^\n]*)`),
		regexp.MustCompile(`(CONFLICT[^\n]*)`),
		regexp.MustCompile(`(Already up to date[^\n]*)`),
	},
	"docker": {
		regexp.MustCompile(`(Successfully built\s+\S+)`),
		regexp.MustCompile(`(Successfully tagged[^\n]*)`),
	},
	"python": {
		regexp.MustCompile(`(Traceback[^\n]*)`),
		regexp.MustCompile(`(\w+(?:Error|Exception):[^\n]*)`),
	},
}

// fallbackExtractors apply to any command when no token pattern matched.
var fallbackExtractors = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(error:[^\n]*)`),
	regexp.MustCompile(`(?i)(\bfailed\b[^\n]*)`),
	regexp.MustCompile(`(?i)(warning:[^\n]*)`),
}

// tokenAliases fold alternate spellings onto a pattern set.
var tokenAliases = map[string]string{
	"py.test": "pytest",
	"pnpm":    "npm",
	"yarn":    "npm",
	"bun":     "npm",
	"pip3":    "pip",
	"python3": "python",
	"gmake":   "make",
}

// skipPrefixes are wrapper words that precede the real command.
var skipPrefixes = map[string]bool{
	"sudo": true, "env": true, "nohup": true, "nice": true, "time": true,
}

// FirstToken extracts the command word from a full command line, skipping
// env-var assignments and wrapper prefixes and stripping any path. The full
// line is never stored or displayed from here.
func FirstToken(cmd string) string {
	for _, w := range strings.Fields(cmd) {
		if strings.Contains(w, "=") && !strings.HasPrefix(w, "-") {
			continue
		}
		if skipPrefixes[w] {
			continue
		}
		if i := strings.LastIndex(w, "/"); i >= 0 {
			w = w[i+1:]
		}
		return w
	}
	return "unknown"
}

// Summarize pulls one meaningful status line out of a command's output tail,
// so a pointer can say "12 passed, 1 failed" without the artifact being
// opened. Returns "" when nothing matches.
func Summarize(cmd, content string) string {
	if content == "" {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) > summaryTailLines {
		lines = lines[len(lines)-summaryTailLines:]
	}
	tail := strings.Join(lines, "\n")

	token := FirstToken(cmd)
	if canonical, ok := tokenAliases[token]; ok {
		token = canonical
	}

	patterns := append([]*regexp.Regexp{}, extractors[token]...)
	patterns = append(patterns, fallbackExtractors...)

	for _, re := range patterns {
		m := re.FindStringSubmatch(tail)
		if m == nil {
			continue
		}
		s := m[0]
		if len(m) > 1 && m[1] != "" {
			s = m[1]
		}
		s = strings.Join(strings.Fields(s), " ")
		if len(s) > summaryMaxChars {
			s = s[:summaryMaxChars-3] + "..."
		}
		if s != "" {
			return s
		}
	}
	return ""
}
