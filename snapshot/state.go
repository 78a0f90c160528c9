// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package snapshot

import (
	"sync"
	"sync/atomic"
)

// State - snapshot progress of one document
type State int32

// states
const (
	Idle State = iota
	Processing
	Fail
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Processing:
		return "processing"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// per document cells, created on first use
type cells struct {
	m sync.Map
}

func (c *cells) cell(name string) *atomic.Int32 {
	if v, ok := c.m.Load(name); ok {
		return v.(*atomic.Int32)
	}
	v, _ := c.m.LoadOrStore(name, new(atomic.Int32))
	return v.(*atomic.Int32)
}

func (c *cells) get(name string) State {
	if v, ok := c.m.Load(name); ok {
		return State(v.(*atomic.Int32).Load())
	}
	return Idle
}

func (c *cells) set(name string, s State) {
	c.cell(name).Store(int32(s))
}

// move to Processing, returns the replaced state
func (c *cells) acquire(name string) (State, bool) {
	cell := c.cell(name)
	for _, from := range []State{Idle, Fail} {
		if cell.CompareAndSwap(int32(from), int32(Processing)) {
			return from, true
		}
	}
	return Processing, false
}

// drop an idle or failed cell, a cell in Processing is kept so that
// no second job can start while the first is running
func (c *cells) forget(name string) bool {
	v, ok := c.m.Load(name)
	if !ok {
		return true
	}
	cell := v.(*atomic.Int32)
	for _, from := range []State{Idle, Fail} {
		// the removed cell stays in Processing for any holder of it
		if cell.CompareAndSwap(int32(from), int32(Processing)) {
			c.m.CompareAndDelete(name, cell)
			return true
		}
	}
	return false
}

func (c *cells) all() map[string]State {
	result := make(map[string]State)
	c.m.Range(func(k, v interface{}) bool {
		result[k.(string)] = State(v.(*atomic.Int32).Load())
		return true
	})
	return result
}
