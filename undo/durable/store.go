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

// Package durable implements the crash-consistent, on-disk undo/redo store:
// a SQLite-backed schema (command/snapshot/cur_cmd_seq_no tables), a
// restore algorithm that reconstructs the model from the latest reachable
// snapshot plus forward/backward command replay, a write path with a
// bounded retention and snapshot policy, and an asynchronous persister
// that runs all of the above on a dedicated goroutine so the caller's
// mutations do not wait for their own disk writes.
package durable

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/undostore/undostore/undo"
)

// pollInterval is how often WaitUntilSaved checks Saved().
const pollInterval = 100 * time.Millisecond

// Store is the facade over the durable engine: it owns the facade-side
// model replica and the persister client bookkeeping, and proxies
// mutating calls to the persister server over a pair of channels. Store is
// not safe for concurrent use from multiple goroutines.
type Store[C undo.DurableCommand[M], M any] struct {
	dir  string
	opts Options[C, M]

	reqCh  chan request
	respCh chan response

	model M

	lastSeq          int64 // optimistic cur, advanced locally before the server acknowledges
	lastProcessedSeq int64 // last seq the server has confirmed durable
	minSeq, maxSeq   int64 // cached retained bounds

	poisoned bool
	closed   bool
}

// Open acquires the store directory, restores the model on a background
// persister goroutine, and returns a ready-to-use facade.
func Open[C undo.DurableCommand[M], M any](dir string, opts Options[C, M]) (*Store[C, M], error) {
	reqCh := make(chan request)
	respCh := make(chan response)

	server := newPersisterServer[C, M](dir, opts, reqCh, respCh)
	go server.run()

	reqCh <- openReq{}
	resp, ok := (<-respCh).(openResp)
	if !ok {
		close(reqCh)
		return nil, fmt.Errorf("%w: expected openResp", ErrProtocolViolation)
	}
	if resp.err != nil {
		close(reqCh)
		return nil, resp.err
	}

	model, err := opts.DecodeModel(resp.modelBytes)
	if err != nil {
		reqCh <- closeReq{}
		<-respCh
		close(reqCh)
		return nil, fmt.Errorf("%w: decode restored model: %v", ErrCodecMismatch, err)
	}

	return &Store[C, M]{
		dir:              dir,
		opts:             opts,
		reqCh:            reqCh,
		respCh:           respCh,
		model:            model,
		lastSeq:          resp.cur,
		lastProcessedSeq: resp.cur,
		minSeq:           resp.minID,
		maxSeq:           resp.maxID,
	}, nil
}

// Dir returns the directory this store was opened against.
func (s *Store[C, M]) Dir() string { return s.dir }

// Model returns a pointer to the facade's current model replica. Callers
// must not retain it across a subsequent mutating call.
func (s *Store[C, M]) Model() *M { return &s.model }

// CanUndo reports whether there is a command to undo. minSeq/maxSeq are
// updated optimistically at submit time (mirroring the server's retention
// formula), so this is accurate immediately after AddCmd/Mutate, not only
// after the server has acknowledged; any lag runs in the direction of
// over- rather than under-reporting undoability.
func (s *Store[C, M]) CanUndo() bool {
	return s.maxSeq > 0 && s.lastSeq >= s.minSeq
}

// CanRedo reports whether there is a command to redo.
func (s *Store[C, M]) CanRedo() bool {
	return s.lastSeq < s.maxSeq
}

// Saved reports whether every submitted command has been durably written.
// It is non-blocking: it drains any responses already waiting without
// suspending the caller.
func (s *Store[C, M]) Saved() bool {
	s.drainPending()
	return s.lastProcessedSeq == s.lastSeq
}

// WaitUntilSaved blocks, polling every 100ms, until Saved() is true or ctx
// is done.
func (s *Store[C, M]) WaitUntilSaved(ctx context.Context) error {
	for !s.Saved() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return nil
}

// AddCmd applies c to the facade's model replica and submits it for
// durable persistence. It does not wait for c's own write; because reqCh
// is unbuffered, the submission does wait until the persister server has
// finished any write already in progress and accepts the request.
func (s *Store[C, M]) AddCmd(c C) error {
	if s.poisoned {
		return ErrStorePoisoned
	}
	c.Redo(&s.model)
	return s.submit(c)
}

// Mutate runs f against the model to produce a command (already applied by
// f) or a recoverable user error. On error the model is NOT rolled back —
// f must not partially mutate before it knows it will succeed. Unlike
// AddCmd, the produced command's Redo is not re-invoked.
func (s *Store[C, M]) Mutate(f func(*M) (C, error)) (C, error) {
	if s.poisoned {
		var zero C
		return zero, ErrStorePoisoned
	}
	c, err := f(&s.model)
	if err != nil {
		var zero C
		return zero, err
	}
	return c, s.submit(c)
}

// submit encodes c, advances the optimistic cur and retention bounds, and
// enqueues it for the persister server without blocking on the reply.
func (s *Store[C, M]) submit(c C) error {
	payload, err := c.Encode()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	seq := s.lastSeq + 1
	if err := s.sendReq(addCmdReq{seq: seq, kind: s.opts.CommandKind(c), payload: payload}); err != nil {
		return err
	}
	s.lastSeq = seq

	// Mirrors the server's retention formula (appendCommand/trimCommands):
	// after this write lands, the retained window is the last undoLimit
	// commands ending at seq. Tracking it here, rather than waiting for
	// the server's ack, is what lets CanUndo answer truthfully right away.
	limit := int64(s.opts.undoLimit())
	minSeq := seq - limit + 1
	if minSeq < 1 {
		minSeq = 1
	}
	s.minSeq = minSeq
	s.maxSeq = seq
	return nil
}

// sendReq enqueues req for the persister server. Both reqCh and respCh are
// unbuffered, and the server may be blocked trying to send an earlier
// AddCmd's acknowledgement on respCh while this send is attempted — so a
// bare blocking send on reqCh can deadlock against an unread response. The
// select below races the send against draining (and folding) any pending
// addCmdResp, which unblocks the server and lets the send go through.
func (s *Store[C, M]) sendReq(req request) error {
	for {
		select {
		case s.reqCh <- req:
			return nil
		case resp := <-s.respCh:
			r, ok := resp.(addCmdResp)
			if !ok {
				err := fmt.Errorf("%w: unexpected response while sending request", ErrProtocolViolation)
				s.poison(err)
				return err
			}
			s.foldAddCmd(r)
		}
	}
}

// IrreversibleMutate runs f against the model and returns its result
// without touching history. Defined as a free function (not a method)
// because Go does not allow a method to introduce its own type parameter.
func IrreversibleMutate[C undo.DurableCommand[M], M, T any](s *Store[C, M], f func(*M) T) T {
	return f(&s.model)
}

// Undo blocks until the persister server has read and acknowledged the
// command immediately before the current position, then applies Undo to
// the facade's model replica. It is a no-op when !CanUndo.
func (s *Store[C, M]) Undo() error {
	if s.poisoned {
		return ErrStorePoisoned
	}
	if !s.CanUndo() {
		return nil
	}
	if err := s.sendReq(undoReq{}); err != nil {
		return err
	}
	for {
		switch r := (<-s.respCh).(type) {
		case addCmdResp:
			s.foldAddCmd(r)
			if r.err != nil {
				return r.err
			}
		case undoResp:
			if r.err != nil {
				s.poison(r.err)
				return r.err
			}
			cmd, err := s.opts.DecodeCommand(r.kind, r.payload)
			if err != nil {
				s.poison(err)
				return fmt.Errorf("%w: %v", ErrDecode, err)
			}
			cmd.Undo(&s.model)
			s.lastSeq = r.seq
			return nil
		default:
			err := fmt.Errorf("%w: unexpected response while waiting for Undo", ErrProtocolViolation)
			s.poison(err)
			return err
		}
	}
}

// Redo is the mirror of Undo, applying the command immediately after the
// current position. It is a no-op when !CanRedo.
func (s *Store[C, M]) Redo() error {
	if s.poisoned {
		return ErrStorePoisoned
	}
	if !s.CanRedo() {
		return nil
	}
	if err := s.sendReq(redoReq{}); err != nil {
		return err
	}
	for {
		switch r := (<-s.respCh).(type) {
		case addCmdResp:
			s.foldAddCmd(r)
			if r.err != nil {
				return r.err
			}
		case redoResp:
			if r.err != nil {
				s.poison(r.err)
				return r.err
			}
			cmd, err := s.opts.DecodeCommand(r.kind, r.payload)
			if err != nil {
				s.poison(err)
				return fmt.Errorf("%w: %v", ErrDecode, err)
			}
			cmd.Redo(&s.model)
			s.lastSeq = r.seq
			return nil
		default:
			err := fmt.Errorf("%w: unexpected response while waiting for Redo", ErrProtocolViolation)
			s.poison(err)
			return err
		}
	}
}

// SaveAs byte-copies the store's database file into destDir, which can
// then be opened independently. The caller must ensure Saved() first.
func (s *Store[C, M]) SaveAs(destDir string) error {
	if !s.Saved() {
		return ErrSaveAsWhileDirty
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("undo/durable: SaveAs mkdir %s: %w", destDir, err)
	}
	src, err := os.Open(filepath.Join(s.dir, dbFileName))
	if err != nil {
		return fmt.Errorf("undo/durable: SaveAs open source: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(destDir, dbFileName))
	if err != nil {
		return fmt.Errorf("undo/durable: SaveAs create destination: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("undo/durable: SaveAs copy: %w", err)
	}
	return dst.Sync()
}

// Close tells the persister server to release the lock and exit, draining
// any responses in flight until it confirms.
func (s *Store[C, M]) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.sendReq(closeReq{}); err != nil {
		return err
	}
	for {
		switch r := (<-s.respCh).(type) {
		case closeResp:
			close(s.reqCh)
			return r.err
		case addCmdResp:
			s.foldAddCmd(r)
		}
	}
}

func (s *Store[C, M]) foldAddCmd(r addCmdResp) {
	s.lastProcessedSeq = r.seq
	if r.err != nil {
		s.poison(r.err)
		return
	}
	s.minSeq, s.maxSeq = r.minID, r.maxID
	persisterBacklog.Update(s.lastSeq - s.lastProcessedSeq)
}

func (s *Store[C, M]) drainPending() {
	for {
		select {
		case resp := <-s.respCh:
			r, ok := resp.(addCmdResp)
			if !ok {
				s.poison(fmt.Errorf("%w: unexpected response while draining", ErrProtocolViolation))
				return
			}
			s.foldAddCmd(r)
		default:
			return
		}
	}
}

func (s *Store[C, M]) poison(err error) {
	s.poisoned = true
	persisterPoisoned.Update(1)
	log.Error("undo/durable: store poisoned", "dir", s.dir, "err", err)
}
