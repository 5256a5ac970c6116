// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package durable

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// schemaVersion is the current schema generation. A stored version that
// does not match is an open-time failure (ErrSchemaCorrupt) rather than an
// attempted migration: this engine has no upgrade path across versions.
const schemaVersion = 1

const schemaDDL = `
CREATE TABLE IF NOT EXISTS command (
    command_id INTEGER PRIMARY KEY,
    kind       INTEGER NOT NULL,
    serialized BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot (
    snapshot_id INTEGER PRIMARY KEY,
    serialized  BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS cur_cmd_seq_no (
    cur_cmd_seq_no INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL
);
`

// openDB opens the SQLite file at path with the single-connection pragmas
// the store relies on (only the persister goroutine ever touches *sql.DB,
// so a connection pool would just mask bugs) and ensures the schema exists.
func openDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrDatabase, path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrDatabase, path, err)
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// ensureSchema creates the tables if absent and validates (or seeds) the
// schema_version row.
func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("%w: create tables: %v", ErrDatabase, err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_version`).Scan(&count); err != nil {
		return fmt.Errorf("%w: read schema_version: %v", ErrDatabase, err)
	}
	if count == 0 {
		if _, err := db.Exec(`INSERT INTO schema_version(version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("%w: seed schema_version: %v", ErrDatabase, err)
		}
		return nil
	}

	var version int
	if err := db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version); err != nil {
		return fmt.Errorf("%w: read schema_version: %v", ErrDatabase, err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: on-disk version %d, expected %d", ErrSchemaCorrupt, version, schemaVersion)
	}
	return nil
}
