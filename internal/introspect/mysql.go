// Package introspect reads live database schemas into the abstract catalog.
// MySQL goes through INFORMATION_SCHEMA, SQLite through its PRAGMA
// interface. SQL types collapse onto the six logical types; anything the
// profiler cannot model becomes opaque.
package introspect

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/Pragadeesh-19/replica-db/internal/catalog"
)

// ListTables returns all base table names in the given MySQL schema.
func ListTables(db *sql.DB, schema string) ([]string, error) {
	rows, err := db.Query(
		`SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		 WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		 ORDER BY TABLE_NAME`, schema)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// MySQL introspects every base table of the schema into a catalog.
func MySQL(db *sql.DB, schema string) (*catalog.Catalog, error) {
	names, err := ListTables(db, schema)
	if err != nil {
		return nil, err
	}

	cat := &catalog.Catalog{}
	for _, name := range names {
		t, err := mysqlTable(db, schema, name)
		if err != nil {
			return nil, err
		}
		cat.Tables = append(cat.Tables, t)
	}
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("schema %s: %w", schema, err)
	}
	return cat, nil
}

func mysqlTable(db *sql.DB, schema, tableName string) (*catalog.Table, error) {
	rows, err := db.Query(`
		SELECT COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, IS_NULLABLE, COLUMN_KEY
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("introspecting columns for %s: %w", tableName, err)
	}
	defer rows.Close()

	t := &catalog.Table{Name: tableName}
	for rows.Next() {
		var name, dataType, columnType, isNullable, colKey string
		if err := rows.Scan(&name, &dataType, &columnType, &isNullable, &colKey); err != nil {
			return nil, fmt.Errorf("scanning column for %s: %w", tableName, err)
		}
		t.Columns = append(t.Columns, catalog.Column{
			Name:     name,
			Type:     mysqlLogicalType(dataType, columnType),
			Nullable: isNullable == "YES",
		})
		if colKey == "PRI" {
			t.PrimaryKey = append(t.PrimaryKey, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fks, err := mysqlForeignKeys(db, schema, tableName)
	if err != nil {
		return nil, err
	}
	t.ForeignKeys = fks
	return t, nil
}

// mysqlForeignKeys groups KEY_COLUMN_USAGE rows by constraint so composite
// FKs come back as single edges with positional column lists.
func mysqlForeignKeys(db *sql.DB, schema, tableName string) ([]catalog.ForeignKey, error) {
	rows, err := db.Query(`
		SELECT CONSTRAINT_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION`,
		schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("introspecting FKs for %s: %w", tableName, err)
	}
	defer rows.Close()

	var (
		fks     []catalog.ForeignKey
		current string
	)
	for rows.Next() {
		var constraint, col, refTable, refCol string
		if err := rows.Scan(&constraint, &col, &refTable, &refCol); err != nil {
			return nil, fmt.Errorf("scanning FK for %s: %w", tableName, err)
		}
		if constraint != current || len(fks) == 0 {
			fks = append(fks, catalog.ForeignKey{RefTable: refTable})
			current = constraint
		}
		last := &fks[len(fks)-1]
		last.Columns = append(last.Columns, col)
		last.RefColumns = append(last.RefColumns, refCol)
	}
	return fks, rows.Err()
}

// mysqlLogicalType maps a MySQL column type onto a logical type.
func mysqlLogicalType(dataType, columnType string) catalog.LogicalType {
	switch strings.ToLower(dataType) {
	case "tinyint":
		if strings.HasPrefix(strings.ToLower(columnType), "tinyint(1)") {
			return catalog.Boolean
		}
		return catalog.Integer
	case "smallint", "mediumint", "int", "integer", "bigint", "year", "bit":
		return catalog.Integer
	case "float", "double", "decimal", "numeric":
		return catalog.Real
	case "date", "datetime", "timestamp":
		return catalog.Timestamp
	case "char", "varchar", "text", "tinytext", "mediumtext", "longtext", "enum", "set", "time":
		return catalog.Text
	default:
		// blob, binary, json, geometry, ...
		return catalog.Opaque
	}
}
