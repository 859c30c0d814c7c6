package mcptools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type profileDatabaseArgs struct {
	Out    string   `json:"out,omitempty" jsonschema:"Genome output path (default genome.json)"`
	Tables []string `json:"tables,omitempty" jsonschema:"Tables to profile; all tables when empty"`
}

func registerProfileDatabase(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        "profile_database",
		Description: "Scan the connected MySQL database and write its statistical genome (histograms, frequency tables, correlations, FK graph — no source rows). Connection comes from REPLICA_DSN.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, handleProfileDatabase)
}

func handleProfileDatabase(ctx context.Context, _ *mcp.CallToolRequest, args profileDatabaseArgs) (*mcp.CallToolResult, any, error) {
	if resolveDSN() == "" {
		return errResult("REPLICA_DSN environment variable is not set"), nil, nil
	}

	cli := []string{"profile"}
	if args.Out != "" {
		cli = append(cli, "--out", args.Out)
	}
	for _, t := range args.Tables {
		cli = append(cli, "--table", t)
	}

	out, err := runSelf(ctx, cli...)
	if err != nil {
		return errResult(fmt.Sprintf("profiling failed: %v", err)), nil, nil
	}
	return textResult(out), nil, nil
}
