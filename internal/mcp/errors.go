// Package mcp serves the agent tools over the Model Context Protocol.
package mcp

import "errors"

// ErrMissingToolset is returned when no toolset is provided.
var ErrMissingToolset = errors.New("mcp: toolset is required")
