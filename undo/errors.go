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

import "errors"

// Sentinel errors shared by every store variant. The durable subpackage
// defines additional sentinels for failures that can only occur on disk
// (see durable.Err*); these cover the engine-wide taxonomy.
var (
	// ErrStorePoisoned is returned by every operation after a write-path
	// failure has left the in-memory model ahead of what is durably
	// recorded. The store does not attempt to resynchronize automatically;
	// it must be reopened.
	ErrStorePoisoned = errors.New("undo: store poisoned by a prior write failure")
)
