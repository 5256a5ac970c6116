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

import "encoding/binary"

// testModel is the fixture model: a single accumulator plus a counter the
// OnSnapshotRestored hook bumps, so tests can tell a restore-via-snapshot
// path apart from a restore-via-replay-only path.
type testModel struct {
	Value    int64
	Restores int
}

const (
	testKindAdd uint16 = 1
	testKindMul uint16 = 2
)

// testCmd is add-or-multiply over testModel, encoded as 8 big-endian bytes
// (the operand) with the kind carried out-of-band in the command row.
type testCmd struct {
	kind    uint16
	operand int64
}

func addTestCmd(n int64) testCmd { return testCmd{kind: testKindAdd, operand: n} }
func mulTestCmd(n int64) testCmd { return testCmd{kind: testKindMul, operand: n} }

func (c testCmd) Redo(m *testModel) {
	if c.kind == testKindMul {
		m.Value *= c.operand
	} else {
		m.Value += c.operand
	}
}

func (c testCmd) Undo(m *testModel) {
	if c.kind == testKindMul {
		m.Value /= c.operand
	} else {
		m.Value -= c.operand
	}
}

func (c testCmd) Encode() ([]byte, error) {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(c.operand))
	return b, nil
}

func testDecodeCommand(kind uint16, payload []byte) (testCmd, error) {
	return testCmd{kind: kind, operand: int64(binary.BigEndian.Uint64(payload))}, nil
}

func testCommandKind(c testCmd) uint16 { return c.kind }

func testEncodeModel(m testModel) ([]byte, error) {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[:8], uint64(m.Value))
	binary.BigEndian.PutUint64(b[8:], uint64(m.Restores))
	return b, nil
}

func testDecodeModel(b []byte) (testModel, error) {
	return testModel{
		Value:    int64(binary.BigEndian.Uint64(b[:8])),
		Restores: int(binary.BigEndian.Uint64(b[8:])),
	}, nil
}

func testOptions(undoLimit int) Options[testCmd, testModel] {
	return Options[testCmd, testModel]{
		UndoLimit:     undoLimit,
		Default:       func() testModel { return testModel{} },
		EncodeModel:   testEncodeModel,
		DecodeModel:   testDecodeModel,
		DecodeCommand: testDecodeCommand,
		CommandKind:   testCommandKind,
		OnSnapshotRestored: func(m testModel) testModel {
			m.Restores++
			return m
		},
	}
}
