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

import "testing"

// addCmd adds n to an int model; its inverse subtracts n. It is the
// canonical fixture command used throughout the engine's tests, mirroring
// the integer-accumulator examples in the original specification.
type addCmd int

func (c addCmd) Redo(m *int) { *m += int(c) }
func (c addCmd) Undo(m *int) { *m -= int(c) }

func TestHistoryBasicUndoRedo(t *testing.T) {
	h := New[addCmd](0, 3)
	h.AddCmd(3)
	if got := *h.Model(); got != 3 {
		t.Fatalf("model = %d, want 3", got)
	}
	if !h.CanUndo() || h.CanRedo() {
		t.Fatalf("CanUndo/CanRedo = %v/%v, want true/false", h.CanUndo(), h.CanRedo())
	}
	h.Undo()
	if got := *h.Model(); got != 0 {
		t.Fatalf("model after undo = %d, want 0", got)
	}
	if h.CanUndo() || !h.CanRedo() {
		t.Fatalf("CanUndo/CanRedo = %v/%v, want false/true", h.CanUndo(), h.CanRedo())
	}
	h.Redo()
	if got := *h.Model(); got != 3 {
		t.Fatalf("model after redo = %d, want 3", got)
	}
}

func TestHistoryBoundedEviction(t *testing.T) {
	h := New[addCmd](0, 3)
	for _, n := range []addCmd{3, 4, 5, 6} {
		h.AddCmd(n)
	}
	if got := *h.Model(); got != 18 {
		t.Fatalf("model = %d, want 18", got)
	}
	wantTrace := []int{12, 7, 3, 3}
	for i, want := range wantTrace {
		h.Undo()
		if got := *h.Model(); got != want {
			t.Fatalf("undo #%d: model = %d, want %d", i+1, got, want)
		}
	}
	if h.CanUndo() {
		t.Fatalf("CanUndo = true after exhausting history, want false")
	}
}

func TestHistoryBranchOnUndoThenAdd(t *testing.T) {
	h := New[addCmd](0, 3)
	h.AddCmd(3)
	h.AddCmd(4)
	h.AddCmd(5)
	h.Undo()
	h.AddCmd(6)
	if got := *h.Model(); got != 13 {
		t.Fatalf("model = %d, want 13", got)
	}
	if h.CanRedo() {
		t.Fatalf("CanRedo = true after branch, want false")
	}
	h.Undo()
	if got := *h.Model(); got != 7 {
		t.Fatalf("model after first undo = %d, want 7", got)
	}
	h.Undo()
	if got := *h.Model(); got != 3 {
		t.Fatalf("model after second undo = %d, want 3", got)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	cmds := []addCmd{1, 2, 3, 4, 5}
	h := New[addCmd](0, len(cmds))
	for _, c := range cmds {
		h.AddCmd(c)
	}
	for range cmds {
		h.Undo()
	}
	if got := *h.Model(); got != 0 {
		t.Fatalf("model after full undo = %d, want 0 (default)", got)
	}
	var want int
	for _, c := range cmds {
		want += int(c)
	}
	for range cmds {
		h.Redo()
	}
	if got := *h.Model(); got != want {
		t.Fatalf("model after full redo = %d, want %d", got, want)
	}
}

func TestHistoryMutateDoesNotRollBackOnError(t *testing.T) {
	h := New[addCmd](0, 3)
	_, err := h.Mutate(func(m *int) (addCmd, error) {
		*m += 10
		return 0, errFixture
	})
	if err != errFixture {
		t.Fatalf("err = %v, want errFixture", err)
	}
	if got := *h.Model(); got != 10 {
		t.Fatalf("model = %d, want 10 (mutate does not roll back)", got)
	}
}

func TestHistoryIrreversibleMutate(t *testing.T) {
	h := New[addCmd](0, 3)
	h.AddCmd(5)
	got := IrreversibleMutate(h, func(m *int) int { return *m * 2 })
	if got != 10 {
		t.Fatalf("IrreversibleMutate result = %d, want 10", got)
	}
	if h.CanRedo() {
		t.Fatalf("IrreversibleMutate must not touch history")
	}
}

type fixtureErr struct{}

func (fixtureErr) Error() string { return "fixture error" }

var errFixture = fixtureErr{}
