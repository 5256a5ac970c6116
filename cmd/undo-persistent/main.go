// Copyright 2024 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

// undo-persistent is the crash-consistent counterpart of undo-inmemory: the
// same calculator, backed by a SQLite-resident undo/durable.Store so the
// history survives process restarts. Commands and snapshots are encoded
// with RLP, the same deterministic codec go-ethereum uses on the wire.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/urfave/cli/v2"
	"github.com/undostore/undostore/undo/durable"
)

var (
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "store directory (created if absent)",
		Value: "./undo-persistent-data",
	}
	undoLimitFlag = &cli.IntFlag{
		Name:  "undo-limit",
		Usage: "maximum number of retained undo entries",
		Value: durable.DefaultUndoLimit,
	}
)

// Sum is the calculator's model. RLP requires exported fields.
type Sum struct {
	Value int64
}

const (
	kindAdd uint16 = 1
	kindMul uint16 = 2
)

// sumCmd is RLP-encoded directly: RLP has no native sum-type support, so
// the discriminant travels as the stored kind tag (see Options.CommandKind)
// and the payload is just the operand.
type sumCmd struct {
	Operand int64
}

// kindedCmd pairs a decoded sumCmd with the kind it was read back with,
// since sumCmd alone doesn't carry add-vs-multiply.
type kindedCmd struct {
	kind uint16
	sumCmd
}

func (c kindedCmd) Redo(m *Sum) {
	if c.kind == kindMul {
		m.Value *= c.Operand
	} else {
		m.Value += c.Operand
	}
}

func (c kindedCmd) Undo(m *Sum) {
	if c.kind == kindMul {
		m.Value /= c.Operand
	} else {
		m.Value -= c.Operand
	}
}

func (c kindedCmd) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(c.sumCmd)
}

func addCmd(n int64) kindedCmd { return kindedCmd{kind: kindAdd, sumCmd: sumCmd{Operand: n}} }
func mulCmd(n int64) kindedCmd { return kindedCmd{kind: kindMul, sumCmd: sumCmd{Operand: n}} }

func encodeModel(m Sum) ([]byte, error) { return rlp.EncodeToBytes(m) }

func decodeModel(b []byte) (Sum, error) {
	var m Sum
	err := rlp.DecodeBytes(b, &m)
	return m, err
}

func decodeCommand(kind uint16, payload []byte) (kindedCmd, error) {
	var c sumCmd
	if err := rlp.DecodeBytes(payload, &c); err != nil {
		return kindedCmd{}, err
	}
	return kindedCmd{kind: kind, sumCmd: c}, nil
}

func commandKind(c kindedCmd) uint16 { return c.kind }

func main() {
	app := &cli.App{
		Name:  "undo-persistent",
		Usage: "interactive calculator backed by a durable, SQLite-resident undo store",
		Flags: []cli.Flag{dataDirFlag, undoLimitFlag},
		Action: func(ctx *cli.Context) error {
			return run(ctx.String("datadir"), ctx.Int("undo-limit"))
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(dataDir string, undoLimit int) error {
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.LevelInfo, true)))

	dir, err := filepath.Abs(dataDir)
	if err != nil {
		return err
	}

	store, err := durable.Open[kindedCmd](dir, durable.Options[kindedCmd, Sum]{
		UndoLimit:     undoLimit,
		Default:       func() Sum { return Sum{} },
		EncodeModel:   encodeModel,
		DecodeModel:   decodeModel,
		DecodeCommand: decodeCommand,
		CommandKind:   commandKind,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		printPrompt(store)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "+"):
			n, perr := strconv.ParseInt(strings.TrimSpace(line[1:]), 10, 64)
			if perr != nil {
				fmt.Println("??? not a number")
				continue
			}
			if err := store.AddCmd(addCmd(n)); err != nil {
				return fmt.Errorf("add: %w", err)
			}
		case strings.HasPrefix(line, "*"):
			n, perr := strconv.ParseInt(strings.TrimSpace(line[1:]), 10, 64)
			if perr != nil {
				fmt.Println("??? not a number")
				continue
			}
			if err := store.AddCmd(mulCmd(n)); err != nil {
				return fmt.Errorf("mul: %w", err)
			}
		case line == "u":
			if !store.CanUndo() {
				fmt.Println("Cannot undo now.")
				continue
			}
			if err := store.Undo(); err != nil {
				return fmt.Errorf("undo: %w", err)
			}
		case line == "r":
			if !store.CanRedo() {
				fmt.Println("Cannot redo now.")
				continue
			}
			if err := store.Redo(); err != nil {
				return fmt.Errorf("redo: %w", err)
			}
		case line == "q":
			return store.WaitUntilSaved(context.Background())
		default:
			fmt.Printf("??? Unknown command %q\n", line)
		}
	}
	return scanner.Err()
}

func printPrompt(s *durable.Store[kindedCmd, Sum]) {
	fmt.Printf("Current sum: %d\n", s.Model().Value)
	opts := ""
	if s.CanUndo() {
		opts += "u: undo, "
	}
	if s.CanRedo() {
		opts += "r: redo, "
	}
	fmt.Printf("Command(+n: add number, *n: multiply number, %sq: quit):\n", opts)
}
