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

// undo-inmemory is a terminal calculator demonstrating the plain in-memory
// undo.History: +n adds, *n multiplies, u undoes, r redoes.
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

// Sum is the calculator's model.
type Sum struct {
	Value int64
}

type sumCmd struct {
	add int64
	mul int64 // zero means "not a multiply"
}

func addCmd(n int64) sumCmd { return sumCmd{add: n} }
func mulCmd(n int64) sumCmd { return sumCmd{mul: n} }

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
		Name:  "undo-inmemory",
		Usage: "interactive calculator backed by undo.History",
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
			h.AddCmd(addCmd(n))
		case strings.HasPrefix(line, "*"):
			n, err := strconv.ParseInt(strings.TrimSpace(line[1:]), 10, 64)
			if err != nil {
				fmt.Println("??? not a number")
				continue
			}
			h.AddCmd(mulCmd(n))
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

func printPrompt(h *undo.History[sumCmd, Sum]) {
	fmt.Printf("Current sum: %d\n", h.Model().Value)
	opts := ""
	if h.CanUndo() {
		opts += "u: undo, "
	}
	if h.CanRedo() {
		opts += "r: redo, "
	}
	fmt.Printf("Command(+n: add number, *n: multiply number, %sq: quit):\n", opts)
}
