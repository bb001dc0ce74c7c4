package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var recentToolDef = mcp.NewTool("output_recent",
	mcp.WithDescription("List recent offloaded command outputs, newest first. The positions shown are what numeric selectors resolve against."),
	mcp.WithNumber("limit", mcp.Description("Rows to return (default 10, max 100)")),
	mcp.WithBoolean("all_sessions", mcp.Description("Include artifacts from other sessions")),
	mcp.WithString("cmd", mcp.Description("Only this command label or group")),
	mcp.WithBoolean("failed_only", mcp.Description("Only non-zero exit codes")),
	mcp.WithBoolean("pinned_only", mcp.Description("Only pinned artifacts")),
)

var openToolDef = mcp.NewTool("output_open",
	mcp.WithDescription("Read an offloaded output by selector: a position from the last listing, an 8-hex ID, a command name, or last/last-fail."),
	mcp.WithString("selector", mcp.Required(), mcp.Description("Which artifact to open")),
	mcp.WithString("view", mcp.Description("full, head, tail, or grep (default full)")),
	mcp.WithNumber("n", mcp.Description("Line count for head/tail views (default 50)")),
	mcp.WithString("pattern", mcp.Description("Regexp for the grep view")),
	mcp.WithNumber("context", mcp.Description("Context lines around grep matches")),
)

var searchToolDef = mcp.NewTool("output_search",
	mcp.WithDescription("Search recent outputs line by line. Bounded: at most 50 files, 2MB per file, 50 matched lines (100 with fuller); every cap that fires is reported."),
	mcp.WithString("pattern", mcp.Required(), mcp.Description("Regexp to match per line")),
	mcp.WithString("cmd", mcp.Description("Only this command label or group")),
	mcp.WithNumber("max_age_minutes", mcp.Description("Only artifacts newer than this")),
	mcp.WithBoolean("pinned_only", mcp.Description("Only pinned artifacts")),
	mcp.WithBoolean("fuller", mcp.Description("Double the matched-line cap")),
	mcp.WithBoolean("all_sessions", mcp.Description("Include artifacts from other sessions")),
)

var diffToolDef = mcp.NewTool("output_diff",
	mcp.WithDescription("Compare two outputs after noise stripping. Reports added/removed/unchanged line counts and FIXED/REGRESSED exit transitions; unified view capped at 200 lines."),
	mcp.WithString("a", mcp.Description("First selector; alone, compares against its predecessor")),
	mcp.WithString("b", mcp.Description("Second selector")),
	mcp.WithBoolean("last", mcp.Description("Diff the last two runs of cmd")),
	mcp.WithString("cmd", mcp.Description("Command for --last")),
	mcp.WithBoolean("unified", mcp.Description("Full unified diff instead of the summary")),
	mcp.WithBoolean("strip_times", mcp.Description("Also strip timestamps and durations")),
)

var correlateToolDef = mcp.NewTool("output_correlate",
	mcp.WithDescription("Find failures related to a failing output by shared error types, test files, and output tails. Best-effort heuristic."),
	mcp.WithString("selector", mcp.Required(), mcp.Description("The failing artifact")),
)

var clusterToolDef = mcp.NewTool("output_cluster",
	mcp.WithDescription("Group recent failures by identical normalized output tails."),
	mcp.WithString("cmd", mcp.Description("Only this command label or group")),
	mcp.WithBoolean("all_sessions", mcp.Description("Include failures from other sessions")),
)

var pinToolDef = mcp.NewTool("output_pin",
	mcp.WithDescription("Move an output to permanent storage, exempt from retention."),
	mcp.WithString("selector", mcp.Required(), mcp.Description("Which artifact to pin")),
	mcp.WithString("reason", mcp.Description("Why it is worth keeping")),
)

var unpinToolDef = mcp.NewTool("output_unpin",
	mcp.WithDescription("Return a pinned output to ephemeral storage. Its retention clock resumes from creation time."),
	mcp.WithString("selector", mcp.Required(), mcp.Description("Which artifact to unpin")),
)

var tagToolDef = mcp.NewTool("output_tag",
	mcp.WithDescription("Add or remove tags on an artifact. Tags are alphanumeric with hyphen and underscore."),
	mcp.WithString("selector", mcp.Required(), mcp.Description("Which artifact to tag")),
	mcp.WithArray("tags", mcp.Required(), mcp.Description("Tag tokens"), mcp.Items(map[string]any{"type": "string"})),
	mcp.WithBoolean("remove", mcp.Description("Remove the tags instead of adding")),
)

var noteToolDef = mcp.NewTool("output_note",
	mcp.WithDescription("Attach a note (max 500 chars) to an artifact. Notes accumulate; they are never edited or removed."),
	mcp.WithString("selector", mcp.Required(), mcp.Description("Which artifact to annotate")),
	mcp.WithString("note", mcp.Required(), mcp.Description("The note text")),
)

var saveToolDef = mcp.NewTool("output_save",
	mcp.WithDescription("Save arbitrary content as a manual artifact, optionally pinned."),
	mcp.WithString("content", mcp.Required(), mcp.Description("The content to keep")),
	mcp.WithString("title", mcp.Description("Title; also resolvable as a selector")),
	mcp.WithBoolean("pin", mcp.Description("Store directly in permanent storage")),
)

var cleanupToolDef = mcp.NewTool("output_cleanup",
	mcp.WithDescription("Run the retention sweep: expired TTLs, size pressure, orphaned temp files. Pinned content is never touched."),
	mcp.WithBoolean("dry_run", mcp.Description("Report what would be deleted without deleting")),
)

var doctorToolDef = mcp.NewTool("output_doctor",
	mcp.WithDescription("Health check: storage writability, size against the cap, manifest integrity, orphaned files, stale aliases."),
)

var exportToolDef = mcp.NewTool("output_export",
	mcp.WithDescription("Write a Markdown report of the session: recent captures, pinned artifacts, failures with notes."),
	mcp.WithString("title", mcp.Description("Report title")),
	mcp.WithBoolean("html", mcp.Description("Also render HTML")),
	mcp.WithBoolean("all_sessions", mcp.Description("Report across all sessions")),
)

var inventoryToolDef = mcp.NewTool("output_inventory",
	mcp.WithDescription("Compact summary of stored state: artifact count, disk usage, pins, last failure."),
)
