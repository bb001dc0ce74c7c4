package ops

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/calebsh/offcut/internal/artifact"
	"github.com/calebsh/offcut/internal/errors"
	"github.com/calebsh/offcut/internal/manifest"
	"github.com/calebsh/offcut/internal/retention"
)

// OffloadInput is a captured command outcome.
type OffloadInput struct {
	Cmd      string
	ExitCode int
	Content  string
	// SkipSweep suppresses the post-capture retention pass.
	SkipSweep bool
}

// OffloadOutput is what replaces the raw output in the agent's context.
type OffloadOutput struct {
	ID      string `json:"id,omitempty"`
	Inline  bool   `json:"inline"`
	Pointer string `json:"pointer,omitempty"`
	Content string `json:"content,omitempty"`
	Preview string `json:"preview,omitempty"`
	Path    string `json:"path,omitempty"`
	Bytes   int64  `json:"bytes"`
	Lines   int    `json:"lines"`
	Pinned  bool   `json:"pinned,omitempty"`
}

// Offload stores a command's output and returns a compact pointer. Small
// outputs are returned inline untouched; large failing outputs carry a
// bounded tail preview after the pointer so the agent sees the error
// without a second round trip.
func Offload(env *Env, in OffloadInput) (*OffloadOutput, error) {
	if in.Cmd == "" {
		return nil, errors.NewInvalidRequest("cmd is required")
	}
	size := int64(len(in.Content))
	lines := artifact.CountLines(in.Content)

	if env.Cfg.Disabled || size < int64(env.Cfg.InlineMax) {
		return &OffloadOutput{Inline: true, Content: in.Content, Bytes: size, Lines: lines}, nil
	}

	id, err := artifact.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := env.now()
	group := env.Cfg.Group(in.Cmd)
	name := artifact.FileName(group, now, id, in.ExitCode)
	path, err := env.Store.WriteScratch(name, []byte(in.Content))
	if err != nil {
		return nil, err
	}

	exit := in.ExitCode
	rec := manifest.Record{
		Type:      manifest.TypeOffload,
		ID:        id,
		SessionID: env.SessionID,
		Cmd:       in.Cmd,
		CmdGroup:  group,
		ExitCode:  &exit,
		Bytes:     size,
		Lines:     lines,
		CreatedAt: now.UTC(),
		Path:      path,
	}
	if err := env.Log.Append(rec); err != nil {
		env.Store.Remove(path)
		return nil, err
	}
	if _, err := env.Log.Rotate(env.Cfg.ManifestMaxMB, env.Cfg.KeepRotated, now); err != nil {
		return nil, err
	}

	// Aliases are conveniences; losing one is not a capture failure.
	env.Store.SetAlias("", path)
	env.Store.SetAlias(group, path)

	out := &OffloadOutput{
		ID:      id,
		Pointer: pointerLine(env, rec, artifact.Summarize(in.Cmd, in.Content)),
		Bytes:   size,
		Lines:   lines,
	}
	if env.Cfg.ShowPath {
		out.Path = path
	}
	if in.ExitCode != 0 && size > int64(env.Cfg.PreviewMin) {
		out.Preview = tailPreview(in.Content, env.Cfg.PreviewLines)
	}

	if pinned, perr := maybeAutoPin(env, rec); perr == nil && pinned {
		out.Pinned = true
	}

	if !in.SkipSweep {
		sw := &retention.Sweeper{Cfg: env.Cfg, Store: env.Store, Log: env.Log}
		// Capture already succeeded; sweep trouble is not the caller's.
		sw.Sweep(now, false)
	}
	return out, nil
}

// pointerLine renders the compact stand-in. The summary, when a status line
// was extracted, rides in the pointer so the outcome is visible without
// opening the artifact. Format:
//
//	[oc A1B2C3D4] pytest e=1 44.6KB 882L (12 passed, 1 failed) | offcut open A1B2C3D4
func pointerLine(env *Env, rec manifest.Record, summary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[oc %s] %s e=%d %s %dL", rec.ID, rec.Cmd, rec.Exit(),
		artifact.FormatSize(rec.Bytes), rec.Lines)
	if summary != "" {
		fmt.Fprintf(&b, " (%s)", summary)
	}
	if env.Cfg.VerbosePointer {
		fmt.Fprintf(&b, " %s", rec.CreatedAt.Format("15:04:05"))
	}
	fmt.Fprintf(&b, " | %s %s", env.Cfg.OpenCmd, rec.ID)
	return b.String()
}

func tailPreview(content string, n int) string {
	all := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return strings.Join(all, "\n")
}

// maybeAutoPin applies the configured auto-pin rules to a fresh offload.
// Any one rule matching pins the artifact, subject to the pinned-file
// budget.
func maybeAutoPin(env *Env, rec manifest.Record) (bool, error) {
	ap := env.Cfg.AutoPin
	match := false
	switch {
	case ap.OnFail && rec.Exit() != 0:
		match = true
	case len(ap.ExitCodes) > 0 && containsInt(ap.ExitCodes, rec.Exit()):
		match = true
	case len(ap.Cmds) > 0 && (containsStr(ap.Cmds, rec.Cmd) || containsStr(ap.Cmds, rec.CmdGroup)):
		match = true
	case ap.SizeMin > 0 && rec.Bytes >= int64(ap.SizeMin):
		match = true
	case ap.Match != "":
		re, err := regexp.Compile(ap.Match)
		if err != nil {
			return false, errors.NewInvalidRequestf("auto_pin.match is not a valid pattern: %v", err)
		}
		data, err := env.Store.Read(rec.Path)
		if err != nil {
			return false, err
		}
		match = re.Match(data)
	}
	if !match {
		return false, nil
	}

	pinned, err := env.Log.PinnedIDs()
	if err != nil {
		return false, err
	}
	if ap.MaxFiles > 0 && len(pinned) >= ap.MaxFiles {
		return false, nil
	}

	reason := "auto: rule match"
	if rec.Exit() != 0 {
		reason = "auto: failing " + rec.CmdGroup
	}
	if _, err := Pin(env, PinInput{Selector: rec.ID, Auto: true, Reason: reason}); err != nil {
		return false, err
	}
	return true, nil
}

func containsInt(xs []int, n int) bool {
	for _, x := range xs {
		if x == n {
			return true
		}
	}
	return false
}

func containsStr(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
