package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/calebsh/offcut/internal/config"
	"github.com/calebsh/offcut/internal/mcp"
	"github.com/calebsh/offcut/internal/ops"
	"github.com/calebsh/offcut/internal/session"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"offload": true, "recent": true, "open": true, "search": true,
	"diff": true, "correlate": true, "cluster": true,
	"pin": true, "unpin": true, "tag": true, "note": true,
	"save": true, "cleanup": true, "doctor": true,
	"export": true, "inventory": true, "session": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   ___  ___  ___ ___ _   _ _____
  / _ \| __|| __/ __| | | |_   _|
 | (_) | _| | _| (__| |_| | | |
  \___/|_|  |_| \___|\___/  |_|

  Command-output offload store

  Usage: offcut <command> [options]
         offcut --help

  MCP server mode requires piped input.`)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before touching the store
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine working directory: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(2)
	}

	dataDir := filepath.Join(workDir, ".offcut")

	// A DISABLE marker in the data dir turns off capture without touching
	// config files. Useful when a wrapper script needs a kill switch.
	if _, statErr := os.Stat(filepath.Join(dataDir, "DISABLE")); statErr == nil {
		cfg.Disabled = true
	}

	env := ops.NewEnv(dataDir, cfg, "")
	if err := env.Store.Bootstrap(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize storage: %v\n", err)
		os.Exit(2)
	}
	session.EnsureIgnored(workDir)

	st, err := session.Current(env.Store.IndexDir(), workDir, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load session: %v\n", err)
		os.Exit(2)
	}
	env.SessionID = st.SessionID

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(env)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			if ec, ok := err.(cli.ExitCoder); ok {
				os.Exit(ec.ExitCode())
			}
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'offcut --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(env, cfg, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}
