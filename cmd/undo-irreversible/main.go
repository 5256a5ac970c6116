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

// undo-irreversible demonstrates undo.IrreversibleMutate: a call counter
// that is bumped on every command but is never itself subject to undo/redo,
// modelling fields a real application keeps deliberately out of history
// scope (e.g. telemetry counters, cached derived data).
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"github.com/undostore/undostore/undo"
)

var capacityFlag = &cli.IntFlag{
	Name:  "capacity",
	Usage: "maximum number of retained undo entries",
	Value: 10,
}

// Sum is the calculator's model. CallCount is mutated only through
// undo.IrreversibleMutate and is never touched by Redo/Undo.
type Sum struct {
	Value     int64
	CallCount int
}

type sumCmd struct {
	add int64
	mul int64 // zero means "not a multiply"
}

func (c sumCmd) Redo(m *Sum) {
	if c.mul != 0 {
		m.Value *= c.mul
	} else {
		m.Value += c.add
	}
}

func (c sumCmd) Undo(m *Sum) {
	if c.mul != 0 {
		m.Value /= c.mul
	} else {
		m.Value -= c.add
	}
}

func main() {
	app := &cli.App{
		Name:  "undo-irreversible",
		Usage: "interactive calculator demonstrating IrreversibleMutate",
		Flags: []cli.Flag{capacityFlag},
		Action: func(ctx *cli.Context) error {
			return run(ctx.Int("capacity"))
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(capacity int) error {
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.LevelWarn, true)))
	h := undo.New[sumCmd](Sum{}, capacity)
	scanner := bufio.NewScanner(os.Stdin)

	for {
		printPrompt(h)
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "+"):
			n, err := strconv.ParseInt(strings.TrimSpace(line[1:]), 10, 64)
			if err != nil {
				fmt.Println("??? not a number")
				continue
			}
			bumpCallCount(h)
			h.AddCmd(sumCmd{add: n})
		case strings.HasPrefix(line, "*"):
			n, err := strconv.ParseInt(strings.TrimSpace(line[1:]), 10, 64)
			if err != nil {
				fmt.Println("??? not a number")
				continue
			}
			bumpCallCount(h)
			h.AddCmd(sumCmd{mul: n})
		case line == "u":
			if !h.CanUndo() {
				fmt.Println("Cannot undo now.")
				continue
			}
			h.Undo()
		case line == "r":
			if !h.CanRedo() {
				fmt.Println("Cannot redo now.")
				continue
			}
			h.Redo()
		case line == "q":
			return nil
		default:
			fmt.Printf("??? Unknown command %q\n", line)
		}
	}
}

func bumpCallCount(h *undo.History[sumCmd, Sum]) {
	undo.IrreversibleMutate[sumCmd](h, func(m *Sum) struct{} {
		m.CallCount++
		return struct{}{}
	})
}

func printPrompt(h *undo.History[sumCmd, Sum]) {
	fmt.Printf("Current sum: %d, call count: %d\n", h.Model().Value, h.Model().CallCount)
	opts := ""
	if h.CanUndo() {
		opts += "u: undo, "
	}
	if h.CanRedo() {
		opts += "r: redo, "
	}
	fmt.Printf("Command(+n: add number, *n: multiply number, %sq: quit):\n", opts)
}
