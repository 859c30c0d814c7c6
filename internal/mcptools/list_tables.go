package mcptools

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Pragadeesh-19/replica-db/internal/introspect"
)

type listTablesArgs struct{}

func registerListTables(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_tables",
		Description: "List all tables in the connected MySQL database with their column counts and foreign key relationships. Takes no arguments — the connection is configured via the REPLICA_DSN environment variable.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, handleListTables)
}

func handleListTables(_ context.Context, _ *mcp.CallToolRequest, args listTablesArgs) (*mcp.CallToolResult, any, error) {
	dsn := resolveDSN()
	if dsn == "" {
		return errResult("REPLICA_DSN environment variable is not set"), nil, nil
	}

	schema := extractSchema(dsn)
	if schema == "" {
		return errResult("could not extract database name from DSN"), nil, nil
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return errResult(fmt.Sprintf("connecting to MySQL: %v", err)), nil, nil
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return errResult(fmt.Sprintf("pinging MySQL: %v", err)), nil, nil
	}

	cat, err := introspect.MySQL(db, schema)
	if err != nil {
		return errResult(fmt.Sprintf("introspecting schema: %v", err)), nil, nil
	}

	if len(cat.Tables) == 0 {
		return textResult(fmt.Sprintf("No tables found in schema %s", schema)), nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Schema: %s\nTables (%d):\n", schema, len(cat.Tables))
	for _, t := range cat.Tables {
		var fks []string
		for _, fk := range t.ForeignKeys {
			fks = append(fks, fmt.Sprintf("(%s) -> %s (%s)",
				strings.Join(fk.Columns, ", "), fk.RefTable, strings.Join(fk.RefColumns, ", ")))
		}
		if len(fks) > 0 {
			fmt.Fprintf(&sb, "  - %s (%d columns) [FK: %s]\n", t.Name, len(t.Columns), strings.Join(fks, ", "))
		} else {
			fmt.Fprintf(&sb, "  - %s (%d columns)\n", t.Name, len(t.Columns))
		}
	}

	return textResult(sb.String()), nil, nil
}
