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
	"os"

	"github.com/undostore/undostore/undo"
)

// engine is the single-threaded combination of the database handle, the
// directory lock, and the server-side model replica. It is only ever
// touched by the persister server goroutine (see persister.go); nothing in
// this file is safe for concurrent use.
type engine[C undo.DurableCommand[M], M any] struct {
	dir          string
	db           *sql.DB
	lock         *dirLock
	opts         Options[C, M]
	model        M
	cur          int64
	minID, maxID int64
}

const dbFileName = "store.db"

// newEngine acquires the directory lock, opens (creating if needed) the
// SQLite file and schema, and restores the model per §4.4.
func newEngine[C undo.DurableCommand[M], M any](dir string, opts Options[C, M]) (*engine[C, M], error) {
	info, err := os.Stat(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("undo/durable: stat %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("undo/durable: create %s: %w", dir, err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, dir)
	}

	lock, err := acquireLock(dir)
	if err != nil {
		return nil, err
	}

	db, err := openDB(dir + string(os.PathSeparator) + dbFileName)
	if err != nil {
		lock.release()
		return nil, err
	}

	r, err := restoreModel(db, opts)
	if err != nil {
		db.Close()
		lock.release()
		return nil, err
	}

	return &engine[C, M]{
		dir:   dir,
		db:    db,
		lock:  lock,
		opts:  opts,
		model: r.model,
		cur:   r.cur,
		minID: r.minID,
		maxID: r.maxID,
	}, nil
}

// addCmd decodes the incoming command, applies it to the server-side model
// replica, and runs it through the write path.
func (e *engine[C, M]) addCmd(kind uint16, payload []byte) (writeResult, error) {
	cmd, err := e.opts.DecodeCommand(kind, payload)
	if err != nil {
		return writeResult{}, fmt.Errorf("%w: decode incoming command: %v", ErrDecode, err)
	}
	cmd.Redo(&e.model)

	res, err := appendCommand(e.db, e.cur, e.opts.undoLimit(), kind, payload, func() ([]byte, error) {
		return e.opts.EncodeModel(e.model)
	})
	if err != nil {
		return writeResult{}, err
	}
	e.cur, e.minID, e.maxID = res.cur, res.minID, res.maxID
	return res, nil
}

// undo decodes and applies Undo for the command at cur against the server
// replica, persists the decremented cur, and returns the raw row so the
// caller (over the channel) can apply the same Undo to its own replica.
func (e *engine[C, M]) undo() (commandRow, int64, error) {
	if e.cur < e.minID {
		return commandRow{}, e.cur, nil
	}
	row, newCur, err := stepUndo(e.db, e.cur)
	if err != nil {
		return commandRow{}, 0, err
	}
	cmd, err := e.opts.DecodeCommand(row.kind, row.payload)
	if err != nil {
		return commandRow{}, 0, fmt.Errorf("%w: command %d: %v", ErrDecode, row.id, err)
	}
	cmd.Undo(&e.model)
	e.cur = newCur
	undoTotal.Inc(1)
	return row, newCur, nil
}

// redo decodes and applies Redo for the command at cur+1 against the
// server replica, persists the incremented cur, and returns the raw row.
func (e *engine[C, M]) redo() (commandRow, int64, error) {
	if e.cur >= e.maxID {
		return commandRow{}, e.cur, nil
	}
	row, newCur, err := stepRedo(e.db, e.cur)
	if err != nil {
		return commandRow{}, 0, err
	}
	cmd, err := e.opts.DecodeCommand(row.kind, row.payload)
	if err != nil {
		return commandRow{}, 0, fmt.Errorf("%w: command %d: %v", ErrDecode, row.id, err)
	}
	cmd.Redo(&e.model)
	e.cur = newCur
	redoTotal.Inc(1)
	return row, newCur, nil
}

// close releases the database handle and the directory lock. It always
// attempts both, returning the first error encountered.
func (e *engine[C, M]) close() error {
	dbErr := e.db.Close()
	lockErr := e.lock.release()
	if dbErr != nil {
		return dbErr
	}
	return lockErr
}
