package introspect

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/Pragadeesh-19/replica-db/internal/catalog"
)

// SQLite introspects every user table of a SQLite database into a catalog
// using the PRAGMA interface.
func SQLite(db *sql.DB) (*catalog.Catalog, error) {
	rows, err := db.Query(
		`SELECT name FROM sqlite_master
		 WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cat := &catalog.Catalog{}
	for _, name := range names {
		t, err := sqliteTable(db, name)
		if err != nil {
			return nil, err
		}
		cat.Tables = append(cat.Tables, t)
	}

	// FKs declared without explicit target columns reference the parent PK.
	for _, t := range cat.Tables {
		for i := range t.ForeignKeys {
			fk := &t.ForeignKeys[i]
			if len(fk.RefColumns) == 0 {
				if parent := cat.Table(fk.RefTable); parent != nil {
					fk.RefColumns = append([]string(nil), parent.PrimaryKey...)
				}
			}
		}
	}

	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return cat, nil
}

func sqliteTable(db *sql.DB, tableName string) (*catalog.Table, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(`%s`)", tableName))
	if err != nil {
		return nil, fmt.Errorf("introspecting columns for %s: %w", tableName, err)
	}
	defer rows.Close()

	t := &catalog.Table{Name: tableName}
	type pkEntry struct {
		pos  int
		name string
	}
	var pks []pkEntry
	for rows.Next() {
		var (
			cid     int
			name    string
			decl    string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &decl, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scanning column for %s: %w", tableName, err)
		}
		t.Columns = append(t.Columns, catalog.Column{
			Name:     name,
			Type:     sqliteLogicalType(decl),
			Nullable: notNull == 0 && pk == 0,
		})
		if pk > 0 {
			pks = append(pks, pkEntry{pos: pk, name: name})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(pks, func(i, j int) bool { return pks[i].pos < pks[j].pos })
	for _, e := range pks {
		t.PrimaryKey = append(t.PrimaryKey, e.name)
	}

	fks, err := sqliteForeignKeys(db, tableName)
	if err != nil {
		return nil, err
	}
	t.ForeignKeys = fks
	return t, nil
}

// sqliteForeignKeys groups PRAGMA foreign_key_list rows by constraint id so
// composite FKs come back as single positional edges.
func sqliteForeignKeys(db *sql.DB, tableName string) ([]catalog.ForeignKey, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA foreign_key_list(`%s`)", tableName))
	if err != nil {
		return nil, fmt.Errorf("introspecting FKs for %s: %w", tableName, err)
	}
	defer rows.Close()

	byID := make(map[int]*catalog.ForeignKey)
	var order []int
	for rows.Next() {
		var (
			id, seq            int
			refTable, from     string
			to                 sql.NullString
			onUpd, onDel, mtch string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpd, &onDel, &mtch); err != nil {
			return nil, fmt.Errorf("scanning FK for %s: %w", tableName, err)
		}
		fk, ok := byID[id]
		if !ok {
			fk = &catalog.ForeignKey{RefTable: refTable}
			byID[id] = fk
			order = append(order, id)
		}
		fk.Columns = append(fk.Columns, from)
		if to.Valid {
			fk.RefColumns = append(fk.RefColumns, to.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fks := make([]catalog.ForeignKey, 0, len(order))
	for _, id := range order {
		fks = append(fks, *byID[id])
	}
	return fks, nil
}

// sqliteLogicalType maps a declared column type onto a logical type using
// SQLite's affinity rules, plus date/bool conventions.
func sqliteLogicalType(decl string) catalog.LogicalType {
	d := strings.ToUpper(decl)
	switch {
	case strings.Contains(d, "BOOL"):
		return catalog.Boolean
	case strings.Contains(d, "DATE") || strings.Contains(d, "TIME"):
		return catalog.Timestamp
	case strings.Contains(d, "INT"):
		return catalog.Integer
	case strings.Contains(d, "REAL") || strings.Contains(d, "FLOA") ||
		strings.Contains(d, "DOUB") || strings.Contains(d, "DEC") || strings.Contains(d, "NUM"):
		return catalog.Real
	case strings.Contains(d, "CHAR") || strings.Contains(d, "CLOB") || strings.Contains(d, "TEXT"):
		return catalog.Text
	default:
		return catalog.Opaque
	}
}
