package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Pragadeesh-19/replica-db/internal/genome"
)

type inspectGenomeArgs struct {
	Path string `json:"path,omitempty" jsonschema:"Genome file path (default genome.json)"`
}

func registerInspectGenome(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        "inspect_genome",
		Description: "Summarize a genome file: per-table row counts, column marginals, correlated column groups, and the FK graph.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, handleInspectGenome)
}

func handleInspectGenome(_ context.Context, _ *mcp.CallToolRequest, args inspectGenomeArgs) (*mcp.CallToolResult, any, error) {
	path := args.Path
	if path == "" {
		path = "genome.json"
	}

	g, err := genome.Load(path)
	if err != nil {
		return errResult(fmt.Sprintf("loading genome: %v", err)), nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Genome %s (format version %d, %d tables)\n", path, g.Version, len(g.Tables))
	for _, name := range g.TableNames() {
		t := g.Tables[name]
		fmt.Fprintf(&sb, "\n%s: %d rows profiled\n", name, t.RowCount)
		for i := range t.Columns {
			m := &t.Columns[i]
			fmt.Fprintf(&sb, "  - %s (%s, %s) nulls %.1f%%\n", m.Name, m.Type, m.Kind, m.NullRate()*100)
		}
		if t.Covariance != nil && len(t.Covariance.Columns) > 1 {
			fmt.Fprintf(&sb, "  correlated: %s\n", strings.Join(t.Covariance.Columns, ", "))
		}
		for _, fk := range t.ForeignKeys {
			fmt.Fprintf(&sb, "  FK (%s) -> %s (%s)\n",
				strings.Join(fk.Columns, ", "), fk.RefTable, strings.Join(fk.RefColumns, ", "))
		}
	}

	return textResult(sb.String()), nil, nil
}
