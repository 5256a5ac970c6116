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

	"github.com/ethereum/go-ethereum/log"
	"github.com/undostore/undostore/undo"
)

// restored is the result of reconstructing a model at Open time.
type restored[M any] struct {
	model        M
	cur          int64
	minID, maxID int64
}

// restoreModel implements the restore algorithm of §4.4: read cur, locate
// the latest eligible snapshot, and replay commands forward or backward
// from it (or from the default model, if none is eligible) to reach cur.
func restoreModel[C undo.DurableCommand[M], M any](db *sql.DB, opts Options[C, M]) (restored[M], error) {
	cur, err := readCur(db)
	if err != nil {
		return restored[M]{}, err
	}

	minID, maxID, err := commandBounds(db)
	if err != nil {
		return restored[M]{}, err
	}

	if cur == 0 {
		model := opts.runSnapshotHook(opts.defaultModel())
		return restored[M]{model: model, cur: 0, minID: minID, maxID: maxID}, nil
	}

	snapID, haveSnap, err := eligibleSnapshotID(db, minID, maxID)
	if err != nil {
		return restored[M]{}, err
	}

	var model M
	if !haveSnap {
		model = opts.defaultModel()
		if err := replayAscending[C, M](db, opts, &model, 1, cur, minID, maxID); err != nil {
			return restored[M]{}, err
		}
	} else {
		payload, err := readSnapshot(db, snapID)
		if err != nil {
			return restored[M]{}, err
		}
		model, err = opts.DecodeModel(payload)
		if err != nil {
			return restored[M]{}, fmt.Errorf("%w: snapshot %d: %v", ErrCodecMismatch, snapID, err)
		}
		switch {
		case cur < snapID:
			if err := replayDescending[C, M](db, opts, &model, cur, snapID); err != nil {
				return restored[M]{}, err
			}
		case cur > snapID:
			if err := replayAscending[C, M](db, opts, &model, snapID+1, cur, minID, maxID); err != nil {
				return restored[M]{}, err
			}
		}
	}

	model = opts.runSnapshotHook(model)
	log.Info("undo/durable: restored model", "cur", cur, "minID", minID, "maxID", maxID, "usedSnapshot", haveSnap)
	return restored[M]{model: model, cur: cur, minID: minID, maxID: maxID}, nil
}

// replayAscending replays commands [from, to] via Redo, requiring strict
// contiguous ascent (no gaps).
func replayAscending[C undo.DurableCommand[M], M any](db *sql.DB, opts Options[C, M], model *M, from, to, minID, maxID int64) error {
	if to < from {
		return nil
	}
	rows, err := readCommandRange(db, from, to)
	if err != nil {
		return err
	}
	want := from
	for _, r := range rows {
		if r.id != want {
			return fmt.Errorf("%w: expected command_id %d, found %d", ErrRestoreGap, want, r.id)
		}
		cmd, err := opts.DecodeCommand(r.kind, r.payload)
		if err != nil {
			return fmt.Errorf("%w: command %d: %v", ErrDecode, r.id, err)
		}
		cmd.Redo(model)
		want++
	}
	if want != to+1 {
		return fmt.Errorf("%w: expected contiguous range up to %d, stopped at %d", ErrRestoreGap, to, want-1)
	}
	return nil
}

// replayDescending replays commands (from, to] via Undo in descending
// order, requiring strict contiguous descent.
func replayDescending[C undo.DurableCommand[M], M any](db *sql.DB, opts Options[C, M], model *M, from, to int64) error {
	if to <= from {
		return nil
	}
	rows, err := readCommandRange(db, from+1, to)
	if err != nil {
		return err
	}
	want := to
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		if r.id != want {
			return fmt.Errorf("%w: expected command_id %d, found %d", ErrRestoreGap, want, r.id)
		}
		cmd, err := opts.DecodeCommand(r.kind, r.payload)
		if err != nil {
			return fmt.Errorf("%w: command %d: %v", ErrDecode, r.id, err)
		}
		cmd.Undo(model)
		want--
	}
	if want != from {
		return fmt.Errorf("%w: expected contiguous range down to %d, stopped at %d", ErrRestoreGap, from+1, want+1)
	}
	return nil
}
