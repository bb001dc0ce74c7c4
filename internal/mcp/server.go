package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/calebsh/offcut/internal/config"
	"github.com/calebsh/offcut/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"output_recent": {
		def:     recentToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecent },
	},
	"output_open": {
		def:     openToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleOpen },
	},
	"output_search": {
		def:     searchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},
	"output_diff": {
		def:     diffToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDiff },
	},
	"output_correlate": {
		def:     correlateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCorrelate },
	},
	"output_cluster": {
		def:     clusterToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCluster },
	},
	"output_pin": {
		def:     pinToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePin },
	},
	"output_unpin": {
		def:     unpinToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUnpin },
	},
	"output_tag": {
		def:     tagToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTag },
	},
	"output_note": {
		def:     noteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNote },
	},
	"output_save": {
		def:     saveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSave },
	},
	"output_cleanup": {
		def:     cleanupToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCleanup },
	},
	"output_doctor": {
		def:     doctorToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDoctor },
	},
	"output_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"output_inventory": {
		def:     inventoryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInventory },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with offcut tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(env *ops.Env, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"offcut",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(env)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(env *ops.Env, cfg *config.Config, version string) error {
	s := NewServer(env, cfg, version)
	return server.ServeStdio(s)
}
