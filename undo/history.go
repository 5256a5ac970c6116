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

package undo

// History is a bounded, linear, in-memory undo/redo store over model M and
// command type C. It owns the model and a fixed-capacity ring of committed
// commands; location marks how many of them have been applied ("redone").
//
// History is not safe for concurrent use; callers needing concurrent access
// must serialize it themselves, the same discipline the durable store's
// persister applies across goroutines.
type History[C Command[M], M any] struct {
	model    M
	buf      []C
	location int
	capacity int
}

// New creates an empty History with the given default model and undo
// capacity L. capacity must be positive.
func New[C Command[M], M any](defaultModel M, capacity int) *History[C, M] {
	if capacity <= 0 {
		panic("undo: capacity must be positive")
	}
	return &History[C, M]{
		model:    defaultModel,
		buf:      make([]C, 0, capacity),
		capacity: capacity,
	}
}

// Model returns a pointer to the current model. Callers must not retain it
// across a subsequent mutating call.
func (h *History[C, M]) Model() *M {
	return &h.model
}

// CanUndo reports whether Undo has an entry to apply.
func (h *History[C, M]) CanUndo() bool {
	return h.location > 0
}

// CanRedo reports whether Redo has an entry to apply.
func (h *History[C, M]) CanRedo() bool {
	return h.location < len(h.buf)
}

// AddCmd commits c as the next history entry and applies it via Redo.
//
// If the current location is behind the tip, the discarded tail is dropped
// (truncation on branch). If the buffer is already at capacity, the oldest
// entry is evicted to make room.
func (h *History[C, M]) AddCmd(c C) {
	h.commit(c)
	c.Redo(&h.model)
}

// Undo applies Undo of the entry immediately before the current location
// and moves location back by one. It is a no-op when !CanUndo.
func (h *History[C, M]) Undo() {
	if !h.CanUndo() {
		return
	}
	h.location--
	h.buf[h.location].Undo(&h.model)
	undoTotal.Inc(1)
}

// Redo applies Redo of the entry at the current location and moves location
// forward by one. It is a no-op when !CanRedo.
func (h *History[C, M]) Redo() {
	if !h.CanRedo() {
		return
	}
	h.buf[h.location].Redo(&h.model)
	h.location++
	redoTotal.Inc(1)
}

// Mutate runs f against the model. f either returns a command describing
// the change it just made (committed into history WITHOUT re-invoking
// Redo, since f already applied the effect) or an error.
//
// On error, the model has already been mutated by f and is NOT rolled
// back: f must not partially mutate before deciding to fail. This mirrors
// the durable store's Mutate and is documented loudly because it is easy
// to get wrong: write f so that it only commits to a change once it knows
// it will succeed.
func (h *History[C, M]) Mutate(f func(*M) (C, error)) (C, error) {
	c, err := f(&h.model)
	if err != nil {
		var zero C
		return zero, err
	}
	h.commit(c)
	return c, nil
}

// commit records c in the history without invoking Redo, used by Mutate
// where the caller's closure already applied the effect.
func (h *History[C, M]) commit(c C) {
	h.buf = h.buf[:h.location]
	if len(h.buf) == h.capacity {
		copy(h.buf, h.buf[1:])
		h.buf = h.buf[:len(h.buf)-1]
	}
	h.buf = append(h.buf, c)
	h.location = len(h.buf)
}

// IrreversibleMutate runs f against the model and returns its result
// without touching history. Intended for model fields deliberately kept
// out of undo scope.
func IrreversibleMutate[C Command[M], M, T any](h *History[C, M], f func(*M) T) T {
	return f(&h.model)
}

// Len returns the number of commands currently retained.
func (h *History[C, M]) Len() int {
	return len(h.buf)
}

// Location returns the current position within the retained buffer.
func (h *History[C, M]) Location() int {
	return h.location
}
