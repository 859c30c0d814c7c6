// Package mcptools exposes replica-db over the Model Context Protocol:
// schema listing, profiling, genome inspection, and generation as tools an
// AI client can call.
package mcptools

import "github.com/modelcontextprotocol/go-sdk/mcp"

// RegisterAll registers all replica-db tools on the given MCP server.
func RegisterAll(s *mcp.Server) {
	registerListTables(s)
	registerProfileDatabase(s)
	registerInspectGenome(s)
	registerGenerateData(s)
}
