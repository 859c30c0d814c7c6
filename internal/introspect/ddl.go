package introspect

import (
	"fmt"
	"strings"

	"github.com/Pragadeesh-19/replica-db/internal/catalog"
)

// CreateTableDDL reconstructs a MySQL CREATE TABLE statement from catalog
// metadata. Generated schemas only need to be loadable, not identical to the
// source DDL, so logical types map onto wide physical types.
func CreateTableDDL(t *catalog.Table) string {
	var parts []string
	for _, col := range t.Columns {
		def := fmt.Sprintf("`%s` %s", col.Name, mysqlColumnType(col.Type))
		if !col.Nullable {
			def += " NOT NULL"
		}
		parts = append(parts, def)
	}
	if len(t.PrimaryKey) > 0 {
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", quoteJoin(t.PrimaryKey)))
	}
	for _, fk := range t.ForeignKeys {
		parts = append(parts, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES `%s` (%s)",
			quoteJoin(fk.Columns), fk.RefTable, quoteJoin(fk.RefColumns)))
	}
	return fmt.Sprintf("CREATE TABLE `%s` (\n  %s\n)", t.Name, strings.Join(parts, ",\n  "))
}

func mysqlColumnType(t catalog.LogicalType) string {
	switch t {
	case catalog.Integer:
		return "BIGINT"
	case catalog.Real:
		return "DOUBLE"
	case catalog.Boolean:
		return "TINYINT(1)"
	case catalog.Timestamp:
		return "DATETIME"
	case catalog.Text:
		return "VARCHAR(255)"
	default:
		return "BLOB"
	}
}

func quoteJoin(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "`" + n + "`"
	}
	return strings.Join(quoted, ", ")
}
