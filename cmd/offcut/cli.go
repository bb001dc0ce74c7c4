package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/calebsh/offcut/internal/errors"
	"github.com/calebsh/offcut/internal/ops"
	"github.com/calebsh/offcut/internal/session"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *ops.Env) *cli.App {
	app := &cli.App{
		Name:    "offcut",
		Usage:   "Command-output offload store",
		Version: Version,
		Commands: []*cli.Command{
			offloadCmd(env),
			recentCmd(env),
			openCmd(env),
			searchCmd(env),
			diffCmd(env),
			correlateCmd(env),
			clusterCmd(env),
			pinCmd(env),
			unpinCmd(env),
			tagCmd(env),
			noteCmd(env),
			saveCmd(env),
			cleanupCmd(env),
			doctorCmd(env),
			exportCmd(env),
			inventoryCmd(env),
			sessionCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// offloadCmd creates the offload command. Its stdout is what replaces the
// raw output in the agent's context, so it prints plain text, never JSON.
func offloadCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "offload",
		Usage: "Capture command output from stdin, print an inline copy or a pointer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "cmd", Aliases: []string{"c"}, Required: true, Usage: "Command line that produced the output"},
			&cli.IntFlag{Name: "exit", Aliases: []string{"e"}, Value: 0, Usage: "Exit code of the command"},
			&cli.BoolFlag{Name: "no-sweep", Usage: "Skip the post-capture retention sweep"},
		},
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("output must be piped via stdin"))
			}
			content, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			output, err := ops.Offload(env, ops.OffloadInput{
				Cmd:       c.String("cmd"),
				ExitCode:  c.Int("exit"),
				Content:   content,
				SkipSweep: c.Bool("no-sweep"),
			})
			if err != nil {
				return outputError(err)
			}

			if output.Inline {
				fmt.Print(output.Content)
				return nil
			}
			fmt.Println(output.Pointer)
			if output.Preview != "" {
				fmt.Println(output.Preview)
			}
			return nil
		},
	}
}

// recentCmd creates the recent command.
func recentCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "recent",
		Usage: "List recent captures for this session",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum items to return (default 10)"},
			&cli.BoolFlag{Name: "all-sessions", Usage: "Include captures from other sessions"},
			&cli.StringFlag{Name: "cmd", Aliases: []string{"c"}, Usage: "Filter by exact command"},
			&cli.BoolFlag{Name: "failed", Usage: "Only failing captures"},
			&cli.BoolFlag{Name: "pinned", Usage: "Only pinned captures"},
			&cli.BoolFlag{Name: "json", Usage: "Emit JSON instead of the table"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Recent(env, ops.RecentInput{
				Limit:       c.Int("limit"),
				AllSessions: c.Bool("all-sessions"),
				Cmd:         c.String("cmd"),
				FailedOnly:  c.Bool("failed"),
				PinnedOnly:  c.Bool("pinned"),
			})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}
			fmt.Print(ops.FormatRecent(output))
			return nil
		},
	}
}

// openCmd creates the open command.
func openCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Print a stored output, whole or sliced",
		ArgsUsage: "<selector>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "view", Value: "full", Usage: "View mode: full|head|tail|grep"},
			&cli.IntFlag{Name: "n", Usage: "Line count for head/tail (default 50)"},
			&cli.StringFlag{Name: "pattern", Aliases: []string{"p"}, Usage: "Regexp for the grep view"},
			&cli.IntFlag{Name: "context", Aliases: []string{"C"}, Usage: "Context lines around grep matches"},
			&cli.BoolFlag{Name: "json", Usage: "Emit JSON instead of raw content"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Open(env, ops.OpenInput{
				Selector: c.Args().First(),
				View:     ops.View(c.String("view")),
				N:        c.Int("n"),
				Pattern:  c.String("pattern"),
				Context:  c.Int("context"),
			})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}
			fmt.Print(output.Content)
			if output.Content != "" && !strings.HasSuffix(output.Content, "\n") {
				fmt.Println()
			}
			return nil
		},
	}
}

// searchCmd creates the search command.
func searchCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search stored outputs with a regexp",
		ArgsUsage: "<pattern>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "cmd", Aliases: []string{"c"}, Usage: "Filter by command group"},
			&cli.IntFlag{Name: "max-age", Usage: "Only outputs captured within the last N minutes"},
			&cli.BoolFlag{Name: "pinned", Usage: "Only pinned outputs"},
			&cli.BoolFlag{Name: "fuller", Usage: "Double the matched-line cap"},
			&cli.BoolFlag{Name: "all-sessions", Usage: "Include outputs from other sessions"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Search(env, ops.SearchInput{
				Pattern:     c.Args().First(),
				Cmd:         c.String("cmd"),
				MaxAge:      time.Duration(c.Int("max-age")) * time.Minute,
				PinnedOnly:  c.Bool("pinned"),
				Fuller:      c.Bool("fuller"),
				AllSessions: c.Bool("all-sessions"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// diffCmd creates the diff command.
func diffCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "Compare two outputs, or a run against its predecessor",
		ArgsUsage: "[a] [b]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "last", Usage: "Diff the two newest runs of --cmd"},
			&cli.StringFlag{Name: "cmd", Aliases: []string{"c"}, Usage: "Command for --last"},
			&cli.BoolFlag{Name: "unified", Aliases: []string{"u"}, Usage: "Show the unified diff instead of the summary"},
			&cli.BoolFlag{Name: "strip-times", Usage: "Also strip timestamp and duration tokens"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Diff(env, ops.DiffInput{
				SelectorA:  c.Args().Get(0),
				SelectorB:  c.Args().Get(1),
				Last:       c.Bool("last"),
				Cmd:        c.String("cmd"),
				Unified:    c.Bool("unified"),
				StripTimes: c.Bool("strip-times"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// correlateCmd creates the correlate command.
func correlateCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "correlate",
		Usage:     "Find failures related to the given one",
		ArgsUsage: "<selector>",
		Action: func(c *cli.Context) error {
			output, err := ops.Correlate(env, ops.CorrelateInput{Selector: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// clusterCmd creates the cluster command.
func clusterCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "cluster",
		Usage: "Group recent failures by shared output tail",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "cmd", Aliases: []string{"c"}, Usage: "Filter by command group"},
			&cli.BoolFlag{Name: "all-sessions", Usage: "Include failures from other sessions"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ClusterFailures(env, ops.ClusterInput{
				Cmd:         c.String("cmd"),
				AllSessions: c.Bool("all-sessions"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// pinCmd creates the pin command.
func pinCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "pin",
		Usage:     "Move an output to the permanent tier",
		ArgsUsage: "<selector>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "reason", Aliases: []string{"r"}, Usage: "Why this output matters"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Pin(env, ops.PinInput{
				Selector: c.Args().First(),
				Reason:   c.String("reason"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// unpinCmd creates the unpin command.
func unpinCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "unpin",
		Usage:     "Restore a pinned output to the ephemeral tier",
		ArgsUsage: "<selector>",
		Action: func(c *cli.Context) error {
			output, err := ops.Unpin(env, ops.UnpinInput{Selector: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// tagCmd creates the tag command.
func tagCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "tag",
		Usage:     "Add or remove tags on an output",
		ArgsUsage: "<selector> <tag>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "remove", Usage: "Remove the tags instead of adding them"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("usage: tag <selector> <tag>..."))
			}
			output, err := ops.Tag(env, ops.TagInput{
				Selector: c.Args().First(),
				Tags:     c.Args().Slice()[1:],
				Remove:   c.Bool("remove"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// noteCmd creates the note command.
func noteCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "note",
		Usage:     "Attach a note to an output",
		ArgsUsage: "<selector> <text>...",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("usage: note <selector> <text>"))
			}
			output, err := ops.Note(env, ops.NoteInput{
				Selector: c.Args().First(),
				Note:     strings.Join(c.Args().Slice()[1:], " "),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// saveCmd creates the save command.
func saveCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Store distilled findings from stdin as a manual artifact",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Title (also resolvable as a selector)"},
			&cli.BoolFlag{Name: "pin", Usage: "Store directly in the permanent tier"},
		},
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("content must be piped via stdin"))
			}
			content, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			output, err := ops.Save(env, ops.SaveInput{
				Content: content,
				Title:   c.String("title"),
				Pin:     c.Bool("pin"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// cleanupCmd creates the cleanup command.
func cleanupCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "cleanup",
		Usage: "Run the retention sweep now",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Report what would be deleted without deleting"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Cleanup(env, ops.CleanupInput{DryRun: c.Bool("dry-run")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// doctorCmd creates the doctor command.
func doctorCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Check storage and manifest health",
		Action: func(c *cli.Context) error {
			output, err := ops.Doctor(env)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write a Markdown session report",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Report title"},
			&cli.BoolFlag{Name: "html", Usage: "Also render the report to HTML"},
			&cli.BoolFlag{Name: "all-sessions", Usage: "Cover all sessions, not just this one"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(env, ops.ExportInput{
				Title:       c.String("title"),
				HTML:        c.Bool("html"),
				AllSessions: c.Bool("all-sessions"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// inventoryCmd creates the inventory command.
func inventoryCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "inventory",
		Usage: "Print the compact session summary",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Emit JSON instead of the summary line"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Inventory(env)
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}
			fmt.Println(ops.FormatInventory(output))
			return nil
		},
	}
}

// sessionCmd creates the session command.
func sessionCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Manage the active session",
		Subcommands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Begin a fresh session",
				Action: func(c *cli.Context) error {
					workDir, _ := os.Getwd()
					st, err := session.Start(env.Store.IndexDir(), workDir, env.Now())
					if err != nil {
						return outputError(err)
					}
					env.SessionID = st.SessionID
					return outputJSON(st)
				},
			},
			{
				Name:  "show",
				Usage: "Print the active session",
				Action: func(c *cli.Context) error {
					workDir, _ := os.Getwd()
					st, err := session.Current(env.Store.IndexDir(), workDir, env.Now())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(st)
				},
			},
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI. Usage problems exit 1, storage and
// internal faults exit 2.
func outputError(err error) error {
	code := errors.ExitCodeFor(err)
	if appErr, ok := err.(*errors.Error); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", appErr.Code, appErr.Message), code)
	}
	return cli.Exit(err.Error(), code)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
