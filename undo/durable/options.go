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

import "github.com/undostore/undostore/undo"

// DefaultUndoLimit is used when Options.UndoLimit is zero.
const DefaultUndoLimit = 100

// Options configures a durable Store at Open time.
type Options[C undo.DurableCommand[M], M any] struct {
	// UndoLimit bounds the number of retained commands. Defaults to
	// DefaultUndoLimit when zero or negative.
	UndoLimit int

	// Default constructs the model's default value, used at restore when
	// cur == 0 and as the starting point of replay when no snapshot is
	// eligible (which includes a store opened for the first time).
	Default func() M

	// EncodeModel and DecodeModel (de)serialize the model for snapshots.
	EncodeModel func(M) ([]byte, error)
	DecodeModel func([]byte) (M, error)

	// DecodeCommand reconstructs a command from its stored kind tag and
	// payload. The engine never interprets kind itself; it is whatever
	// discriminant the caller's command type uses (a tag-per-command-kind
	// enumeration is the idiom this engine expects, rather than a
	// reflection-based registry).
	DecodeCommand func(kind uint16, payload []byte) (C, error)

	// CommandKind returns the kind tag to persist alongside an encoded
	// command.
	CommandKind func(C) uint16

	// OnSnapshotRestored runs exactly once per Open, after the model has
	// been reconstructed (regardless of whether a snapshot was actually
	// used), letting the caller rebuild derived, non-persistent fields.
	OnSnapshotRestored func(M) M
}

func (o Options[C, M]) undoLimit() int {
	if o.UndoLimit <= 0 {
		return DefaultUndoLimit
	}
	return o.UndoLimit
}

func (o Options[C, M]) defaultModel() M {
	if o.Default != nil {
		return o.Default()
	}
	var zero M
	return zero
}

func (o Options[C, M]) runSnapshotHook(m M) M {
	if o.OnSnapshotRestored != nil {
		return o.OnSnapshotRestored(m)
	}
	return m
}
