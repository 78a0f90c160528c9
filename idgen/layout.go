// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package idgen

import (
	"time"
)

// total usable bits, the sign bit is never set
const totalBits = 63

// Layout - bit split of an identifier
type Layout struct {
	Name          string
	Epoch         time.Time
	ScopeBits     uint
	Scope         uint64
	TimestampBits uint
	NodeBits      uint
	SequenceBits  uint
}

// the three identifier families
var (
	DocumentLayout = Layout{
		Name:          "document",
		Epoch:         time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		ScopeBits:     2,
		Scope:         1,
		TimestampBits: 41,
		NodeBits:      8,
		SequenceBits:  12,
	}
	RowLayout = Layout{
		Name:          "row",
		Epoch:         time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		ScopeBits:     2,
		Scope:         2,
		TimestampBits: 41,
		NodeBits:      6,
		SequenceBits:  14,
	}
	SessionLayout = Layout{
		Name:          "session",
		Epoch:         time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		ScopeBits:     2,
		Scope:         3,
		TimestampBits: 41,
		NodeBits:      10,
		SequenceBits:  10,
	}
)

// Layouts - all known layouts
var Layouts = []Layout{DocumentLayout, RowLayout, SessionLayout}

// LayoutByName - find a layout, false if there is no such name
func LayoutByName(name string) (Layout, bool) {
	for _, l := range Layouts {
		if name == l.Name {
			return l, true
		}
	}
	return Layout{}, false
}

// LayoutOf - find the layout whose scope tag an identifier carries
func LayoutOf(id ID) (Layout, bool) {
	for _, l := range Layouts {
		if l.valid() && l.Scope == uint64(id)>>l.scopeShift() {
			return l, true
		}
	}
	return Layout{}, false
}

// MaxNode - largest node number the layout can hold
func (l Layout) MaxNode() uint64 {
	return mask(l.NodeBits)
}

func (l Layout) valid() bool {
	return totalBits == l.ScopeBits+l.TimestampBits+l.NodeBits+l.SequenceBits &&
		l.Scope <= mask(l.ScopeBits)
}

func (l Layout) nodeShift() uint      { return l.SequenceBits }
func (l Layout) timestampShift() uint { return l.SequenceBits + l.NodeBits }
func (l Layout) scopeShift() uint     { return l.SequenceBits + l.NodeBits + l.TimestampBits }

func (l Layout) pack(timestamp uint64, node uint64, sequence uint64) ID {
	return ID(l.Scope<<l.scopeShift() |
		timestamp<<l.timestampShift() |
		node<<l.nodeShift() |
		sequence)
}

// Parts - decoded fields of an identifier
type Parts struct {
	Scope     uint64
	Timestamp time.Time
	Node      uint64
	Sequence  uint64
}

// Decode - split an identifier back into its fields
func (l Layout) Decode(id ID) Parts {
	n := uint64(id)
	ms := int64(n >> l.timestampShift() & mask(l.TimestampBits))
	return Parts{
		Scope:     n >> l.scopeShift(),
		Timestamp: l.Epoch.Add(time.Duration(ms) * time.Millisecond).UTC(),
		Node:      n >> l.nodeShift() & mask(l.NodeBits),
		Sequence:  n & mask(l.SequenceBits),
	}
}

func mask(bits uint) uint64 {
	return 1<<bits - 1
}
