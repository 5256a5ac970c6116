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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPersisterServerRespondsInOrder drives the request/response protocol
// directly, bypassing Store, to pin down the server's reply shape for each
// request kind.
func TestPersisterServerRespondsInOrder(t *testing.T) {
	dir := t.TempDir()
	reqCh := make(chan request)
	respCh := make(chan response)
	srv := newPersisterServer[testCmd, testModel](dir, testOptions(10), reqCh, respCh)
	go srv.run()

	reqCh <- openReq{}
	open, ok := (<-respCh).(openResp)
	require.True(t, ok, "expected openResp")
	require.NoError(t, open.err)
	assert.Equal(t, int64(0), open.cur)

	payload, err := addTestCmd(5).Encode()
	require.NoError(t, err)
	reqCh <- addCmdReq{seq: 1, kind: testKindAdd, payload: payload}
	added, ok := (<-respCh).(addCmdResp)
	require.True(t, ok, "expected addCmdResp")
	require.NoError(t, added.err)
	assert.Equal(t, int64(1), added.seq)
	assert.Equal(t, int64(1), added.minID)
	assert.Equal(t, int64(1), added.maxID)

	reqCh <- undoReq{}
	undone, ok := (<-respCh).(undoResp)
	require.True(t, ok, "expected undoResp")
	require.NoError(t, undone.err)
	assert.Equal(t, int64(0), undone.seq)
	assert.Equal(t, testKindAdd, undone.kind)

	reqCh <- redoReq{}
	redone, ok := (<-respCh).(redoResp)
	require.True(t, ok, "expected redoResp")
	require.NoError(t, redone.err)
	assert.Equal(t, int64(1), redone.seq)

	reqCh <- closeReq{}
	closed, ok := (<-respCh).(closeResp)
	require.True(t, ok, "expected closeResp")
	assert.NoError(t, closed.err)
}

// TestStoreUndoDrainsPendingAddCmdResp verifies that Undo folds an
// addCmdResp arriving ahead of the expected undoResp into bookkeeping
// instead of treating it as a protocol violation.
func TestStoreUndoDrainsPendingAddCmdResp(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, 10)
	defer s.Close()

	if err := s.AddCmd(addTestCmd(1)); err != nil {
		t.Fatalf("AddCmd: %v", err)
	}
	waitSaved(t, s)
	if err := s.AddCmd(addTestCmd(2)); err != nil {
		t.Fatalf("AddCmd: %v", err)
	}
	// Undo is issued immediately, before this second AddCmd's ack has
	// necessarily arrived; the server processes requests strictly in
	// order, so Undo's reply always follows the AddCmd's reply on the
	// channel, and Undo must drain the latter transparently.
	if err := s.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if got := s.Model().Value; got != 1 {
		t.Fatalf("model after undo = %d, want 1", got)
	}
}

// TestStoreUndoSurfacesProtocolViolation wires a Store to a fake server
// goroutine that replies with an unexpected response kind, and asserts the
// store poisons itself rather than silently misinterpreting it.
func TestStoreUndoSurfacesProtocolViolation(t *testing.T) {
	reqCh := make(chan request)
	respCh := make(chan response)
	s := &Store[testCmd, testModel]{
		opts:             testOptions(10),
		reqCh:            reqCh,
		respCh:           respCh,
		lastSeq:          1,
		lastProcessedSeq: 1,
		minSeq:           1,
		maxSeq:           1,
	}
	go func() {
		<-reqCh // the undoReq Undo() is about to send
		respCh <- closeResp{}
	}()

	err := s.Undo()
	if !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("Undo err = %v, want ErrProtocolViolation", err)
	}
	if err := s.Undo(); !errors.Is(err, ErrStorePoisoned) {
		t.Fatalf("Undo on poisoned store err = %v, want ErrStorePoisoned", err)
	}
}
