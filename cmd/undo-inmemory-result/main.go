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

// undo-inmemory-result is the fallible-mutation counterpart of
// undo-inmemory: dividing by zero is rejected via undo.History.Mutate
// instead of being accepted into history, demonstrating that a returned
// error leaves the model exactly as the mutator left it (no rollback).
package main

import (
	"bufio"
	"errors"
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

var errDivByZero = errors.New("divide by zero")

// Sum is the calculator's model.
type Sum struct {
	Value int64
}

type sumCmd struct {
	add int64
	div int64 // zero means "not a division"
}

func (c sumCmd) Redo(m *Sum) {
	if c.div != 0 {
		m.Value /= c.div
	} else {
		m.Value += c.add
	}
}

func (c sumCmd) Undo(m *Sum) {
	if c.div != 0 {
		m.Value *= c.div
	} else {
		m.Value -= c.add
	}
}

func main() {
	app := &cli.App{
		Name:  "undo-inmemory-result",
		Usage: "interactive calculator demonstrating History.Mutate error handling",
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
			h.AddCmd(sumCmd{add: n})
		case strings.HasPrefix(line, "/"):
			n, err := strconv.ParseInt(strings.TrimSpace(line[1:]), 10, 64)
			if err != nil {
				fmt.Println("??? not a number")
				continue
			}
			_, err = h.Mutate(func(m *Sum) (sumCmd, error) {
				if n == 0 {
					return sumCmd{}, errDivByZero
				}
				cmd := sumCmd{div: n}
				cmd.Redo(m)
				return cmd, nil
			})
			if errors.Is(err, errDivByZero) {
				fmt.Println("Divide by zero.")
			}
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
	fmt.Printf("Command(+n: add number, /n: divide number, %sq: quit):\n", opts)
}
