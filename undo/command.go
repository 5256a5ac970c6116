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

// Package undo implements a reusable undo/redo engine over a user-defined
// model type. Every externally visible mutation is expressed as a Command
// that can both apply (Redo) and invert (Undo) itself; the engine owns a
// linear history of committed commands and navigates it on Undo/Redo.
//
// Two stores share this contract: the bounded in-memory History in this
// package, and the crash-consistent on-disk store in the durable
// subpackage.
package undo

// Command is the model-mutation protocol the engine requires. Redo applies
// the forward effect; Undo reverses the most recently applied Redo for the
// same command. Undo is only ever invoked immediately after the matching
// Redo (or after restoring to the equivalent position), so implementations
// do not need to track whether they have been applied.
//
// Redo must be pure with respect to anything outside the model: the engine
// may call it again during restore, so it must not read wall-clock time,
// randomness, or other ambient state to decide what to do.
type Command[M any] interface {
	Redo(m *M)
	Undo(m *M)
}

// DurableCommand is a Command that additionally round-trips through a byte
// encoding, required by the durable store. Decode is supplied separately by
// the caller (see durable.Options.DecodeCommand) rather than threaded through this
// interface, following a tag-per-command-kind discriminant instead of a
// reflection-based type registry.
type DurableCommand[M any] interface {
	Command[M]
	// Encode returns the deterministic byte encoding of the command. The
	// same command must always encode to the same bytes.
	Encode() ([]byte, error)
}
