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
	"math"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// writeResult reports the new committed position after a successful write.
type writeResult struct {
	cur          int64
	minID, maxID int64
}

// appendCommand implements the write path of §4.5: branch-truncate above
// cur, insert the new command, persist cur, trim beyond the undo limit,
// and apply the snapshot policy. encodeModel produces the bytes for a
// snapshot write, taken only when the policy calls for one.
func appendCommand(db *sql.DB, cur int64, limit int, kind uint16, payload []byte, encodeModel func() ([]byte, error)) (writeResult, error) {
	if cur >= math.MaxInt64-1 {
		return writeResult{}, ErrNeedsCompaction
	}
	start := time.Now()
	defer func() { writeLatency.UpdateSince(start) }()

	tx, err := db.Begin()
	if err != nil {
		return writeResult{}, fmt.Errorf("%w: begin write tx: %v", ErrDatabase, err)
	}
	defer tx.Rollback()

	deleted, err := deleteCommandsAbove(tx, cur)
	if err != nil {
		return writeResult{}, err
	}

	newCur := cur + 1
	if err := insertCommand(tx, newCur, kind, payload); err != nil {
		return writeResult{}, err
	}
	if err := writeCur(tx, newCur); err != nil {
		return writeResult{}, err
	}

	removed, err := trimCommands(tx, limit)
	if err != nil {
		return writeResult{}, err
	}

	if err := applySnapshotPolicy(tx, newCur, limit, removed, deleted, encodeModel); err != nil {
		return writeResult{}, err
	}

	minID, maxID, err := commandBounds(tx)
	if err != nil {
		return writeResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return writeResult{}, fmt.Errorf("%w: commit write tx: %v", ErrDatabase, err)
	}

	return writeResult{cur: newCur, minID: minID, maxID: maxID}, nil
}

// applySnapshotPolicy implements §4.5 step 6: write a snapshot when
// trimming discarded a command and the last snapshot has fallen out of the
// retention window, discard all snapshots on a branch and write a fresh
// one, or otherwise keep only the newest snapshot.
func applySnapshotPolicy(q querier, cur int64, limit int, removed, deleted int64, encodeModel func() ([]byte, error)) error {
	switch {
	case removed > 0:
		last, have, err := latestSnapshotID(q)
		if err != nil {
			return err
		}
		if !have || last < cur-int64(limit) {
			payload, err := encodeModel()
			if err != nil {
				return fmt.Errorf("%w: encode snapshot at %d: %v", ErrEncode, cur, err)
			}
			if err := insertSnapshot(q, cur, payload); err != nil {
				return err
			}
			if err := deleteSnapshotsExcept(q, cur); err != nil {
				return err
			}
			snapshotWrites.Inc(1)
			snapshotBytes.Update(int64(len(payload)))
			log.Debug("undo/durable: wrote snapshot (trim)", "at", cur)
		}
	case deleted > 0:
		if err := deleteAllSnapshots(q); err != nil {
			return err
		}
		payload, err := encodeModel()
		if err != nil {
			return fmt.Errorf("%w: encode snapshot at %d: %v", ErrEncode, cur, err)
		}
		if err := insertSnapshot(q, cur, payload); err != nil {
			return err
		}
		snapshotWrites.Inc(1)
		snapshotBytes.Update(int64(len(payload)))
		log.Debug("undo/durable: wrote snapshot (branch)", "at", cur)
	default:
		last, have, err := latestSnapshotID(q)
		if err != nil {
			return err
		}
		if have {
			if err := deleteSnapshotsExcept(q, last); err != nil {
				return err
			}
		}
	}
	return nil
}

// stepUndo reads the raw command row at cur, persists the decremented cur,
// and returns the row undecoded; the caller decodes it and applies Undo to
// its model replica.
func stepUndo(db *sql.DB, cur int64) (commandRow, int64, error) {
	row, err := readCommand(db, cur)
	if err != nil {
		return commandRow{}, 0, err
	}
	newCur := cur - 1
	if err := writeCur(db, newCur); err != nil {
		return commandRow{}, 0, err
	}
	return row, newCur, nil
}

// stepRedo reads the raw command row at cur+1, persists the incremented
// cur, and returns the row undecoded.
func stepRedo(db *sql.DB, cur int64) (commandRow, int64, error) {
	row, err := readCommand(db, cur+1)
	if err != nil {
		return commandRow{}, 0, err
	}
	newCur := cur + 1
	if err := writeCur(db, newCur); err != nil {
		return commandRow{}, 0, err
	}
	return row, newCur, nil
}
