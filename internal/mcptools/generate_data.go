package mcptools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type generateDataArgs struct {
	Genome string `json:"genome,omitempty" jsonschema:"Genome file path (default genome.json)"`
	Out    string `json:"out,omitempty" jsonschema:"Output directory for .tsv bulk-load files (default synthetic)"`
	Rows   int64  `json:"rows,omitempty" jsonschema:"Rows per table; defaults to each table's profiled row count"`
	Seed   uint64 `json:"seed,omitempty" jsonschema:"Deterministic RNG seed"`
}

func registerGenerateData(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        "generate_data",
		Description: "Generate synthetic bulk-load files from a genome. Inter-column correlations and FK integrity are preserved; same seed and genome reproduce identical output.",
	}, handleGenerateData)
}

func handleGenerateData(ctx context.Context, _ *mcp.CallToolRequest, args generateDataArgs) (*mcp.CallToolResult, any, error) {
	cli := []string{"generate"}
	if args.Genome != "" {
		cli = append(cli, "--genome", args.Genome)
	}
	if args.Out != "" {
		cli = append(cli, "--out", args.Out)
	}
	if args.Rows > 0 {
		cli = append(cli, "--rows", strconv.FormatInt(args.Rows, 10))
	}
	if args.Seed != 0 {
		cli = append(cli, "--seed", strconv.FormatUint(args.Seed, 10))
	}

	out, err := runSelf(ctx, cli...)
	if err != nil {
		return errResult(fmt.Sprintf("generation failed: %v", err)), nil, nil
	}
	return textResult(out), nil, nil
}
