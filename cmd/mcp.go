package cmd

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/Pragadeesh-19/replica-db/internal/mcptools"
	"github.com/Pragadeesh-19/replica-db/internal/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP stdio server for use with Claude Code and other AI tools",
	Long: `The mcp subcommand starts a Model Context Protocol server that communicates
over stdin/stdout using JSON-RPC. This allows AI tools to introspect schemas,
profile databases into genomes, inspect genomes, and generate synthetic data.

Configure in .claude/settings.json:

  "mcpServers": {
    "replica-db": {
      "command": "replica-db",
      "args": ["mcp"],
      "env": { "REPLICA_DSN": "user:pass@tcp(localhost:3306)/mydb" }
    }
  }`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

const mcpInstructions = `replica-db profiles relational databases into privacy-preserving statistical
summaries (genomes) and generates statistically faithful synthetic data from them.

## Connection

The MySQL DSN can be pre-configured via the REPLICA_DSN environment variable.

## Workflow

1. **list_tables** → see what tables exist and their FK relationships
2. **profile_database** → scan the database and write a genome file (no source rows retained)
3. **inspect_genome** → summarize a genome's marginals, correlations, and FK graph
4. **generate_data** → produce synthetic bulk-load files from a genome

Start with list_tables to orient yourself. profile_database and generate_data
write files in the working directory; pass explicit paths to control where.`

func runMCP(_ *cobra.Command, _ []string) error {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "replica-db",
			Version: version.Version(),
		},
		&mcp.ServerOptions{
			Instructions: mcpInstructions,
		},
	)

	mcptools.RegisterAll(server)

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
