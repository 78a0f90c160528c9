// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package idgen

import (
	"strconv"
	"sync"
	"time"

	"github.com/bitmark-inc/collabd/fault"
)

// ID - a packed identifier
type ID uint64

// String - decimal form
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Parse - reverse of String
func Parse(s string) (ID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if nil != err || n>>totalBits != 0 {
		return 0, fault.ErrInvalidLength
	}
	return ID(n), nil
}

// Clock - time source, replaceable for tests
type Clock func() time.Time

// Generator - produces identifiers of one layout for one node
type Generator struct {
	sync.Mutex
	layout        Layout
	node          uint64
	sequence      uint64
	lastTimestamp int64
	now           Clock
}

// New - create a generator using the system clock
func New(layout Layout, node uint64) (*Generator, error) {
	return NewWithClock(layout, node, time.Now)
}

// NewWithClock - create a generator with an explicit time source
func NewWithClock(layout Layout, node uint64, now Clock) (*Generator, error) {
	if !layout.valid() {
		return nil, fault.ErrInvalidLength
	}
	if node > layout.MaxNode() {
		return nil, fault.ErrInvalidNodeID
	}
	return &Generator{
		layout:        layout,
		node:          node,
		lastTimestamp: -1,
		now:           now,
	}, nil
}

// Layout - the generator's bit split
func (g *Generator) Layout() Layout {
	return g.layout
}

// Next - the next identifier
//
// a clock that moved backwards is reported as fault.ErrClockMovedBackwards,
// the generator state is left unchanged so that a later call can succeed
// once the clock has caught up
func (g *Generator) Next() (ID, error) {
	g.Lock()
	defer g.Unlock()

	ts := g.millis()
	if !g.inRange(ts) {
		return 0, fault.ErrIdentifierExhausted
	}

	sequence := uint64(0)
	switch {
	case ts < g.lastTimestamp:
		return 0, fault.ErrClockMovedBackwards

	case ts == g.lastTimestamp:
		sequence = (g.sequence + 1) & mask(g.layout.SequenceBits)
		if 0 == sequence {
			// sequence wrapped inside one millisecond: wait for the next
			for ts <= g.lastTimestamp {
				ts = g.millis()
			}
			if !g.inRange(ts) {
				return 0, fault.ErrIdentifierExhausted
			}
		}
	}

	g.sequence = sequence
	g.lastTimestamp = ts
	return g.layout.pack(uint64(ts), g.node, g.sequence), nil
}

// timestamp fits the layout
func (g *Generator) inRange(ts int64) bool {
	return ts >= 0 && uint64(ts) <= mask(g.layout.TimestampBits)
}

func (g *Generator) millis() int64 {
	return g.now().Sub(g.layout.Epoch).Milliseconds()
}
