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
	"errors"

	"github.com/undostore/undostore/undo"
)

// Sentinel errors for the durable store, collapsed into wrapped stdlib
// errors rather than a bespoke enum. Use
// errors.Is to test for these; additional context (path, sequence number,
// cause) is attached with fmt.Errorf's %w.
var (
	// Open-time failures.
	ErrNotADirectory = errors.New("undo/durable: path exists and is not a directory")
	ErrAlreadyLocked = errors.New("undo/durable: store directory is locked by another open store")
	ErrSchemaCorrupt = errors.New("undo/durable: schema is missing or has an unrecognized version")
	ErrCodecMismatch = errors.New("undo/durable: stored payload did not decode with the configured codec")
	ErrRestoreGap    = errors.New("undo/durable: command id sequence has a gap or is out of order")

	// Write failures.
	ErrDatabase        = errors.New("undo/durable: database operation failed")
	ErrEncode          = errors.New("undo/durable: command encoding failed")
	ErrNeedsCompaction = errors.New("undo/durable: command id has reached the maximum representable sequence")

	// Undo/Redo failures.
	ErrMissingCommand    = errors.New("undo/durable: expected command row is missing (structural corruption)")
	ErrDecode            = errors.New("undo/durable: stored command failed to decode")
	ErrChannelClosed     = errors.New("undo/durable: persister channel closed unexpectedly")
	ErrProtocolViolation = errors.New("undo/durable: persister response arrived out of order")
	ErrStorePoisoned     = undo.ErrStorePoisoned
	ErrSaveAsWhileDirty  = errors.New("undo/durable: SaveAs requires Saved() to be true; call WaitUntilSaved first")
)
