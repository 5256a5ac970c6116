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
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/undostore/undostore/undo"
)

// request and response are closed tagged unions (Go's idiom for a sum type:
// an interface with an unexported marker method) carried over the ordered
// channels between the persister client and server. Only the server
// goroutine ever touches the database handle or the server-side model
// replica; only the caller's goroutine touches the facade's replica.
type request interface{ isRequest() }
type response interface{ isResponse() }

type openReq struct{}
type addCmdReq struct {
	seq     int64
	kind    uint16
	payload []byte
}
type undoReq struct{}
type redoReq struct{}
type closeReq struct{}

func (openReq) isRequest()   {}
func (addCmdReq) isRequest() {}
func (undoReq) isRequest()   {}
func (redoReq) isRequest()   {}
func (closeReq) isRequest()  {}

type openResp struct {
	modelBytes   []byte
	cur          int64
	minID, maxID int64
	err          error
}
type addCmdResp struct {
	seq          int64
	minID, maxID int64
	err          error
}
type undoResp struct {
	seq     int64
	kind    uint16
	payload []byte
	err     error
}
type redoResp struct {
	seq     int64
	kind    uint16
	payload []byte
	err     error
}
type closeResp struct{ err error }

func (openResp) isResponse()   {}
func (addCmdResp) isResponse() {}
func (undoResp) isResponse()   {}
func (redoResp) isResponse()   {}
func (closeResp) isResponse()  {}

// persisterServer is the single owner of the database connection and the
// server-side model replica. It processes exactly one request at a time
// from reqCh, in order, and replies on respCh.
type persisterServer[C undo.DurableCommand[M], M any] struct {
	dir    string
	opts   Options[C, M]
	reqCh  <-chan request
	respCh chan<- response
	eng    *engine[C, M]
}

func newPersisterServer[C undo.DurableCommand[M], M any](dir string, opts Options[C, M], reqCh <-chan request, respCh chan<- response) *persisterServer[C, M] {
	return &persisterServer[C, M]{dir: dir, opts: opts, reqCh: reqCh, respCh: respCh}
}

// run is the server's main loop; it returns once the client sends Close (or
// the request channel is closed without one, in which case it releases the
// engine the same way but sends no reply).
func (s *persisterServer[C, M]) run() {
	for req := range s.reqCh {
		switch r := req.(type) {
		case openReq:
			s.handleOpen()
		case addCmdReq:
			s.handleAddCmd(r)
		case undoReq:
			s.handleUndo()
		case redoReq:
			s.handleRedo()
		case closeReq:
			s.handleClose()
			return
		}
	}
	if s.eng != nil {
		s.eng.close()
	}
}

func (s *persisterServer[C, M]) handleOpen() {
	eng, err := newEngine(s.dir, s.opts)
	if err != nil {
		s.respCh <- openResp{err: err}
		return
	}
	s.eng = eng
	modelBytes, err := s.opts.EncodeModel(eng.model)
	if err != nil {
		s.respCh <- openResp{err: fmt.Errorf("%w: encode restored model: %v", ErrEncode, err)}
		return
	}
	s.respCh <- openResp{modelBytes: modelBytes, cur: eng.cur, minID: eng.minID, maxID: eng.maxID}
}

func (s *persisterServer[C, M]) handleAddCmd(r addCmdReq) {
	res, err := s.eng.addCmd(r.kind, r.payload)
	if err != nil {
		log.Error("undo/durable: persister AddCmd failed", "seq", r.seq, "err", err)
		s.respCh <- addCmdResp{seq: r.seq, err: err}
		return
	}
	s.respCh <- addCmdResp{seq: r.seq, minID: res.minID, maxID: res.maxID}
}

func (s *persisterServer[C, M]) handleUndo() {
	row, newCur, err := s.eng.undo()
	if err != nil {
		s.respCh <- undoResp{err: err}
		return
	}
	s.respCh <- undoResp{seq: newCur, kind: row.kind, payload: row.payload}
}

func (s *persisterServer[C, M]) handleRedo() {
	row, newCur, err := s.eng.redo()
	if err != nil {
		s.respCh <- redoResp{err: err}
		return
	}
	s.respCh <- redoResp{seq: newCur, kind: row.kind, payload: row.payload}
}

func (s *persisterServer[C, M]) handleClose() {
	var err error
	if s.eng != nil {
		err = s.eng.close()
	}
	s.respCh <- closeResp{err: err}
}
