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
)

// commandRow is one retained command as stored on disk.
type commandRow struct {
	id      int64
	kind    uint16
	payload []byte
}

// readCur returns the persisted cur_cmd_seq_no, inserting 0 if the table is
// empty (matches the restore engine's step 1).
func readCur(q querier) (int64, error) {
	var cur int64
	err := q.QueryRow(`SELECT cur_cmd_seq_no FROM cur_cmd_seq_no LIMIT 1`).Scan(&cur)
	switch {
	case err == sql.ErrNoRows:
		if _, err := q.Exec(`INSERT INTO cur_cmd_seq_no(cur_cmd_seq_no) VALUES (0)`); err != nil {
			return 0, fmt.Errorf("%w: seed cur_cmd_seq_no: %v", ErrDatabase, err)
		}
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("%w: read cur_cmd_seq_no: %v", ErrDatabase, err)
	}
	return cur, nil
}

// writeCur overwrites the single cur_cmd_seq_no row.
func writeCur(q querier, cur int64) error {
	res, err := q.Exec(`UPDATE cur_cmd_seq_no SET cur_cmd_seq_no = ?`, cur)
	if err != nil {
		return fmt.Errorf("%w: write cur_cmd_seq_no: %v", ErrDatabase, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: write cur_cmd_seq_no: %v", ErrDatabase, err)
	}
	if n == 0 {
		if _, err := q.Exec(`INSERT INTO cur_cmd_seq_no(cur_cmd_seq_no) VALUES (?)`, cur); err != nil {
			return fmt.Errorf("%w: insert cur_cmd_seq_no: %v", ErrDatabase, err)
		}
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// commandBounds returns the min and max command_id currently retained, or
// (0, 0) if the command table is empty.
func commandBounds(q querier) (min, max int64, err error) {
	row := q.QueryRow(`SELECT COALESCE(MIN(command_id), 0), COALESCE(MAX(command_id), 0) FROM command`)
	if err := row.Scan(&min, &max); err != nil {
		return 0, 0, fmt.Errorf("%w: read command bounds: %v", ErrDatabase, err)
	}
	return min, max, nil
}

// insertCommand inserts a new command row with the caller-assigned id
// nextID.
func insertCommand(q querier, nextID int64, kind uint16, payload []byte) error {
	if _, err := q.Exec(`INSERT INTO command(command_id, kind, serialized) VALUES (?, ?, ?)`, nextID, kind, payload); err != nil {
		return fmt.Errorf("%w: insert command %d: %v", ErrDatabase, nextID, err)
	}
	return nil
}

// deleteCommandsAbove deletes all command rows with command_id > cur and
// returns the number of rows removed (branch truncation, §4.5 step 2).
func deleteCommandsAbove(q querier, cur int64) (int64, error) {
	res, err := q.Exec(`DELETE FROM command WHERE command_id > ?`, cur)
	if err != nil {
		return 0, fmt.Errorf("%w: truncate branch above %d: %v", ErrDatabase, cur, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: truncate branch above %d: %v", ErrDatabase, cur, err)
	}
	return n, nil
}

// trimCommands deletes every command row except the L rows with the
// largest command_id, returning the number removed (§4.5 step 5).
func trimCommands(q querier, limit int) (int64, error) {
	res, err := q.Exec(`
		DELETE FROM command
		WHERE command_id NOT IN (
			SELECT command_id FROM command ORDER BY command_id DESC LIMIT ?
		)`, limit)
	if err != nil {
		return 0, fmt.Errorf("%w: trim commands: %v", ErrDatabase, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: trim commands: %v", ErrDatabase, err)
	}
	return n, nil
}

// readCommand reads a single command row by id.
func readCommand(q querier, id int64) (commandRow, error) {
	var row commandRow
	row.id = id
	err := q.QueryRow(`SELECT kind, serialized FROM command WHERE command_id = ?`, id).Scan(&row.kind, &row.payload)
	if err == sql.ErrNoRows {
		return commandRow{}, fmt.Errorf("%w: command_id %d", ErrMissingCommand, id)
	}
	if err != nil {
		return commandRow{}, fmt.Errorf("%w: read command %d: %v", ErrDatabase, id, err)
	}
	return row, nil
}

// readCommandRange reads commands with id in [from, to] ordered ascending.
func readCommandRange(q querier, from, to int64) ([]commandRow, error) {
	rows, err := q.Query(`SELECT command_id, kind, serialized FROM command WHERE command_id BETWEEN ? AND ? ORDER BY command_id ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: read command range [%d,%d]: %v", ErrDatabase, from, to, err)
	}
	defer rows.Close()
	var out []commandRow
	for rows.Next() {
		var r commandRow
		if err := rows.Scan(&r.id, &r.kind, &r.payload); err != nil {
			return nil, fmt.Errorf("%w: scan command row: %v", ErrDatabase, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read command range [%d,%d]: %v", ErrDatabase, from, to, err)
	}
	return out, nil
}

// latestSnapshotID returns the greatest snapshot_id, and false if none
// exists.
func latestSnapshotID(q querier) (int64, bool, error) {
	var id sql.NullInt64
	err := q.QueryRow(`SELECT MAX(snapshot_id) FROM snapshot`).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("%w: read latest snapshot id: %v", ErrDatabase, err)
	}
	if !id.Valid {
		return 0, false, nil
	}
	return id.Int64, true, nil
}

// eligibleSnapshotID returns the greatest snapshot_id within
// [minCommandID-1, maxCommandID], and false if none qualifies (§4.4 step 3).
func eligibleSnapshotID(q querier, minCommandID, maxCommandID int64) (int64, bool, error) {
	var id sql.NullInt64
	err := q.QueryRow(`SELECT MAX(snapshot_id) FROM snapshot WHERE snapshot_id >= ? AND snapshot_id <= ?`, minCommandID-1, maxCommandID).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("%w: read eligible snapshot id: %v", ErrDatabase, err)
	}
	if !id.Valid {
		return 0, false, nil
	}
	return id.Int64, true, nil
}

// readSnapshot reads the encoded model bytes for a snapshot id.
func readSnapshot(q querier, id int64) ([]byte, error) {
	var payload []byte
	err := q.QueryRow(`SELECT serialized FROM snapshot WHERE snapshot_id = ?`, id).Scan(&payload)
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot %d: %v", ErrDatabase, id, err)
	}
	return payload, nil
}

// insertSnapshot writes (or overwrites) the snapshot at id.
func insertSnapshot(q querier, id int64, payload []byte) error {
	if _, err := q.Exec(`INSERT OR REPLACE INTO snapshot(snapshot_id, serialized) VALUES (?, ?)`, id, payload); err != nil {
		return fmt.Errorf("%w: write snapshot %d: %v", ErrDatabase, id, err)
	}
	return nil
}

// deleteAllSnapshots removes every snapshot row.
func deleteAllSnapshots(q querier) error {
	if _, err := q.Exec(`DELETE FROM snapshot`); err != nil {
		return fmt.Errorf("%w: delete snapshots: %v", ErrDatabase, err)
	}
	return nil
}

// deleteSnapshotsExcept removes every snapshot row except keepID.
func deleteSnapshotsExcept(q querier, keepID int64) error {
	if _, err := q.Exec(`DELETE FROM snapshot WHERE snapshot_id != ?`, keepID); err != nil {
		return fmt.Errorf("%w: delete old snapshots: %v", ErrDatabase, err)
	}
	return nil
}
