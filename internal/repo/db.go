// Package repo holds the SQLite-backed repositories: one table per
// concern, a schema created on first open, and a thin CRUD surface
// returning domain structs. The pattern is grounded on the teacher's
// events.SQLiteStore (constructor-driven initSchema, database/sql,
// context-free blocking calls).
package repo

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens (creating if absent) a SQLite database file at path using
// the pure-Go modernc.org/sqlite driver, with WAL mode and a busy
// timeout suited to a single-process admin backend under concurrent
// subtask writers.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return db, nil
}

// sanitizeIdent strips anything but letters, digits, and underscore,
// used whenever a use-case key is interpolated into a table or
// collection name so it can never be used for SQL injection.
func sanitizeIdent(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}
