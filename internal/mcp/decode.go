package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// decodeArgs fills dst from the call's argument map by round-tripping it
// through JSON, so the request structs' tags drive the mapping. A call with
// no arguments leaves dst at its zero value, which every tool treats as
// defaults.
func decodeArgs[T any](req mcp.CallToolRequest, dst *T) error {
	args := req.GetArguments()
	if len(args) == 0 {
		return nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}
