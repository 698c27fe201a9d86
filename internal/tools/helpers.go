// Package tools implements the MCP tool handlers that wrap the
// continuity engine's two public operations plus a read-only artifact
// listing, the way Hoofy's own tools each wrap one store operation
// behind a Definition()/Handle() pair.
package tools

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers decode
// as float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArgPtr returns nil if key is absent, otherwise a pointer to its
// boolean value. The engine's RecordRunOutcomeInput distinguishes
// "not reported" from "reported false" via a *bool.
func boolArgPtr(req mcp.CallToolRequest, key string) *bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return nil
	}
	return &v
}

// intArgPtr mirrors boolArgPtr for integer arguments.
func intArgPtr(req mcp.CallToolRequest, key string) *int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return nil
	}
	n := int(v)
	return &n
}

// stringArgPtr returns nil for an absent or empty argument, otherwise a
// pointer to its value. Used for the optional project_path field.
func stringArgPtr(req mcp.CallToolRequest, key string) *string {
	v := req.GetString(key, "")
	if v == "" {
		return nil
	}
	return &v
}
