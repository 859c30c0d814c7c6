package source

import (
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Pragadeesh-19/replica-db/internal/catalog"
	"github.com/Pragadeesh-19/replica-db/internal/introspect"
)

// openFixture builds a small SQLite database with an FK pair and some rows.
func openFixture(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "fixture.db"))
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			email TEXT,
			active BOOLEAN NOT NULL,
			balance REAL,
			joined_at DATETIME
		)`,
		`CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			user_id INTEGER REFERENCES users(id),
			total REAL NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	for i := 1; i <= 10; i++ {
		if _, err := db.Exec(
			`INSERT INTO users (id, email, active, balance, joined_at) VALUES (?, ?, ?, ?, ?)`,
			i, "u@x.com", i%2, float64(i)*1.5, "2024-01-02 03:04:05",
		); err != nil {
			t.Fatalf("insert user: %v", err)
		}
	}
	if _, err := db.Exec(`INSERT INTO orders (id, user_id, total) VALUES (1, 3, 9.99), (2, NULL, 1.25)`); err != nil {
		t.Fatalf("insert order: %v", err)
	}
	return db
}

func TestSQLiteIntrospection(t *testing.T) {
	db := openFixture(t)
	cat, err := introspect.SQLite(db)
	if err != nil {
		t.Fatalf("SQLite introspection: %v", err)
	}

	users := cat.Table("users")
	if users == nil {
		t.Fatal("users table missing")
	}
	wantTypes := map[string]catalog.LogicalType{
		"id":        catalog.Integer,
		"email":     catalog.Text,
		"active":    catalog.Boolean,
		"balance":   catalog.Real,
		"joined_at": catalog.Timestamp,
	}
	for name, want := range wantTypes {
		col, ok := users.Column(name)
		if !ok {
			t.Fatalf("column %s missing", name)
		}
		if col.Type != want {
			t.Errorf("%s type = %s, want %s", name, col.Type, want)
		}
	}
	if len(users.PrimaryKey) != 1 || users.PrimaryKey[0] != "id" {
		t.Errorf("users PK = %v", users.PrimaryKey)
	}

	orders := cat.Table("orders")
	if len(orders.ForeignKeys) != 1 {
		t.Fatalf("orders FKs = %+v", orders.ForeignKeys)
	}
	fk := orders.ForeignKeys[0]
	if fk.RefTable != "users" || fk.Columns[0] != "user_id" || fk.RefColumns[0] != "id" {
		t.Errorf("FK = %+v", fk)
	}
}

func TestDBSourceStreamsTypedRows(t *testing.T) {
	db := openFixture(t)
	cat, err := introspect.SQLite(db)
	if err != nil {
		t.Fatalf("introspection: %v", err)
	}

	src := NewDBSource(db)
	reader, err := src.Table(cat.Table("users"))
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	defer reader.Close()

	var rows [][]any
	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		rows = append(rows, row)
	}
	if len(rows) != 10 {
		t.Fatalf("read %d rows, want 10", len(rows))
	}

	first := rows[0]
	if _, ok := first[0].(int64); !ok {
		t.Errorf("id = %T, want int64", first[0])
	}
	if s, ok := first[1].(string); !ok || s != "u@x.com" {
		t.Errorf("email = %v (%T), want string", first[1], first[1])
	}
	if _, ok := first[2].(bool); !ok {
		t.Errorf("active = %T, want bool", first[2])
	}
	if _, ok := first[3].(float64); !ok {
		t.Errorf("balance = %T, want float64", first[3])
	}
	ts, ok := first[4].(time.Time)
	if !ok {
		t.Fatalf("joined_at = %T, want time.Time", first[4])
	}
	if ts.Year() != 2024 {
		t.Errorf("joined_at = %v", ts)
	}
}

func TestDBSourceNulls(t *testing.T) {
	db := openFixture(t)
	cat, err := introspect.SQLite(db)
	if err != nil {
		t.Fatalf("introspection: %v", err)
	}

	src := NewDBSource(db)
	reader, err := src.Table(cat.Table("orders"))
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	defer reader.Close()

	var rows [][]any
	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		rows = append(rows, row)
	}
	if len(rows) != 2 {
		t.Fatalf("read %d rows, want 2", len(rows))
	}
	if rows[0][1] == nil {
		t.Error("order 1 user_id should be non-null")
	}
	if rows[1][1] != nil {
		t.Errorf("order 2 user_id = %v, want null", rows[1][1])
	}
}

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name string
		v    any
		typ  catalog.LogicalType
		want any
	}{
		{"int64 passthrough", int64(5), catalog.Integer, int64(5)},
		{"bytes to int", []byte("42"), catalog.Integer, int64(42)},
		{"garbage int is null", []byte("abc"), catalog.Integer, nil},
		{"float passthrough", 2.5, catalog.Real, 2.5},
		{"int to real", int64(3), catalog.Real, 3.0},
		{"int to bool", int64(1), catalog.Boolean, true},
		{"zero to bool", int64(0), catalog.Boolean, false},
		{"bytes to text", []byte("hi"), catalog.Text, "hi"},
		{"nil stays nil", nil, catalog.Integer, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := coerceValue(tt.v, tt.typ); got != tt.want {
				t.Errorf("coerceValue(%v, %s) = %v, want %v", tt.v, tt.typ, got, tt.want)
			}
		})
	}
}
