package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/calebsh/offcut/internal/errors"
	"github.com/calebsh/offcut/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	env *ops.Env
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env) *Handlers {
	return &Handlers{env: env}
}

// Request types for each tool

// RecentRequest represents the arguments for output_recent.
type RecentRequest struct {
	Limit       int    `json:"limit,omitempty"`
	AllSessions bool   `json:"all_sessions,omitempty"`
	Cmd         string `json:"cmd,omitempty"`
	FailedOnly  bool   `json:"failed_only,omitempty"`
	PinnedOnly  bool   `json:"pinned_only,omitempty"`
}

// OpenRequest represents the arguments for output_open.
type OpenRequest struct {
	Selector string `json:"selector"`
	View     string `json:"view,omitempty"`
	N        int    `json:"n,omitempty"`
	Pattern  string `json:"pattern,omitempty"`
	Context  int    `json:"context,omitempty"`
}

// SearchRequest represents the arguments for output_search.
type SearchRequest struct {
	Pattern       string `json:"pattern"`
	Cmd           string `json:"cmd,omitempty"`
	MaxAgeMinutes int    `json:"max_age_minutes,omitempty"`
	PinnedOnly    bool   `json:"pinned_only,omitempty"`
	Fuller        bool   `json:"fuller,omitempty"`
	AllSessions   bool   `json:"all_sessions,omitempty"`
}

// DiffRequest represents the arguments for output_diff.
type DiffRequest struct {
	A          string `json:"a,omitempty"`
	B          string `json:"b,omitempty"`
	Last       bool   `json:"last,omitempty"`
	Cmd        string `json:"cmd,omitempty"`
	Unified    bool   `json:"unified,omitempty"`
	StripTimes bool   `json:"strip_times,omitempty"`
}

// CorrelateRequest represents the arguments for output_correlate.
type CorrelateRequest struct {
	Selector string `json:"selector"`
}

// ClusterRequest represents the arguments for output_cluster.
type ClusterRequest struct {
	Cmd         string `json:"cmd,omitempty"`
	AllSessions bool   `json:"all_sessions,omitempty"`
}

// PinRequest represents the arguments for output_pin.
type PinRequest struct {
	Selector string `json:"selector"`
	Reason   string `json:"reason,omitempty"`
}

// UnpinRequest represents the arguments for output_unpin.
type UnpinRequest struct {
	Selector string `json:"selector"`
}

// TagRequest represents the arguments for output_tag.
type TagRequest struct {
	Selector string   `json:"selector"`
	Tags     []string `json:"tags"`
	Remove   bool     `json:"remove,omitempty"`
}

// NoteRequest represents the arguments for output_note.
type NoteRequest struct {
	Selector string `json:"selector"`
	Note     string `json:"note"`
}

// SaveRequest represents the arguments for output_save.
type SaveRequest struct {
	Content string `json:"content"`
	Title   string `json:"title,omitempty"`
	Pin     bool   `json:"pin,omitempty"`
}

// CleanupRequest represents the arguments for output_cleanup.
type CleanupRequest struct {
	DryRun bool `json:"dry_run,omitempty"`
}

// ExportRequest represents the arguments for output_export.
type ExportRequest struct {
	Title       string `json:"title,omitempty"`
	HTML        bool   `json:"html,omitempty"`
	AllSessions bool   `json:"all_sessions,omitempty"`
}

// errorResult converts an error into an MCP error result.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if appErr, ok := err.(*errors.Error); ok {
		errorObj := map[string]any{
			"code":    appErr.Code,
			"message": appErr.Message,
		}
		// Internal errors keep their details out of agent-visible output.
		if appErr.Code != errors.CodeInternal && appErr.Details != nil {
			errorObj["details"] = appErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.CodeInternal,
				"message": "an internal error occurred",
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}

// HandleRecent handles the output_recent tool call.
func (h *Handlers) HandleRecent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input RecentRequest
	if err := decodeArgs(req, &input); err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Recent(h.env, ops.RecentInput{
		Limit:       input.Limit,
		AllSessions: input.AllSessions,
		Cmd:         input.Cmd,
		FailedOnly:  input.FailedOnly,
		PinnedOnly:  input.PinnedOnly,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleOpen handles the output_open tool call.
func (h *Handlers) HandleOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input OpenRequest
	if err := decodeArgs(req, &input); err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Open(h.env, ops.OpenInput{
		Selector: input.Selector,
		View:     ops.View(input.View),
		N:        input.N,
		Pattern:  input.Pattern,
		Context:  input.Context,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSearch handles the output_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input SearchRequest
	if err := decodeArgs(req, &input); err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Search(h.env, ops.SearchInput{
		Pattern:     input.Pattern,
		Cmd:         input.Cmd,
		MaxAge:      time.Duration(input.MaxAgeMinutes) * time.Minute,
		PinnedOnly:  input.PinnedOnly,
		Fuller:      input.Fuller,
		AllSessions: input.AllSessions,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDiff handles the output_diff tool call.
func (h *Handlers) HandleDiff(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input DiffRequest
	if err := decodeArgs(req, &input); err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Diff(h.env, ops.DiffInput{
		SelectorA:  input.A,
		SelectorB:  input.B,
		Last:       input.Last,
		Cmd:        input.Cmd,
		Unified:    input.Unified,
		StripTimes: input.StripTimes,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCorrelate handles the output_correlate tool call.
func (h *Handlers) HandleCorrelate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input CorrelateRequest
	if err := decodeArgs(req, &input); err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Correlate(h.env, ops.CorrelateInput{Selector: input.Selector})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCluster handles the output_cluster tool call.
func (h *Handlers) HandleCluster(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ClusterRequest
	if err := decodeArgs(req, &input); err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.ClusterFailures(h.env, ops.ClusterInput{Cmd: input.Cmd, AllSessions: input.AllSessions})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePin handles the output_pin tool call.
func (h *Handlers) HandlePin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input PinRequest
	if err := decodeArgs(req, &input); err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Pin(h.env, ops.PinInput{Selector: input.Selector, Reason: input.Reason})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleUnpin handles the output_unpin tool call.
func (h *Handlers) HandleUnpin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input UnpinRequest
	if err := decodeArgs(req, &input); err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Unpin(h.env, ops.UnpinInput{Selector: input.Selector})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTag handles the output_tag tool call.
func (h *Handlers) HandleTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input TagRequest
	if err := decodeArgs(req, &input); err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Tag(h.env, ops.TagInput{Selector: input.Selector, Tags: input.Tags, Remove: input.Remove})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleNote handles the output_note tool call.
func (h *Handlers) HandleNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input NoteRequest
	if err := decodeArgs(req, &input); err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Note(h.env, ops.NoteInput{Selector: input.Selector, Note: input.Note})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSave handles the output_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input SaveRequest
	if err := decodeArgs(req, &input); err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Save(h.env, ops.SaveInput{Content: input.Content, Title: input.Title, Pin: input.Pin})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCleanup handles the output_cleanup tool call.
func (h *Handlers) HandleCleanup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input CleanupRequest
	if err := decodeArgs(req, &input); err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Cleanup(h.env, ops.CleanupInput{DryRun: input.DryRun})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDoctor handles the output_doctor tool call.
func (h *Handlers) HandleDoctor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Doctor(h.env)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles the output_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ExportRequest
	if err := decodeArgs(req, &input); err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Export(h.env, ops.ExportInput{Title: input.Title, HTML: input.HTML, AllSessions: input.AllSessions})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleInventory handles the output_inventory tool call.
func (h *Handlers) HandleInventory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Inventory(h.env)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}
