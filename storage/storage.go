// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"bytes"
)

// Element - a key and value pair
type Element struct {
	Key   []byte
	Value []byte
}

// Store - a database handle
type Store interface {
	View(func(Reader) error) error
	Update(func(Transaction) error) error
	Backend() string
	Close() error
}

// Reader - read access inside View or Update
//
// returned slices belong to the caller
type Reader interface {
	// Get - value of key, nil with no error if the key is absent
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	// Iterator - ascending iteration over a range, must be released
	Iterator(r Range) Iterator
	// NextBackEntry - entry with the greatest key <= key, nil if none
	NextBackEntry(key []byte) (*Element, error)
}

// Transaction - read-write access inside Update
type Transaction interface {
	Reader
	Put(key []byte, value []byte) error
	Delete(key []byte) error
	// DeleteRange - remove every key in [from, to]
	DeleteRange(from []byte, to []byte) error
}

// Iterator - forward iteration
//
// Key and Value are only valid until the next call to Next
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// BoundKind - how a range end treats its key
type BoundKind int

// bound kinds
const (
	Unbounded BoundKind = iota
	Included
	Excluded
)

// Bound - one end of a range
type Bound struct {
	Kind BoundKind
	Key  []byte
}

// Range - iteration bounds
type Range struct {
	Start Bound
	End   Bound
}

// Include - bound containing key
func Include(key []byte) Bound {
	return Bound{Kind: Included, Key: key}
}

// Exclude - bound stopping just before/after key
func Exclude(key []byte) Bound {
	return Bound{Kind: Excluded, Key: key}
}

// Unbound - open range end
func Unbound() Bound {
	return Bound{Kind: Unbounded}
}

// Inclusive - range [start, end]
func Inclusive(start []byte, end []byte) Range {
	return Range{Start: Include(start), End: Include(end)}
}

// All - the whole key space
func All() Range {
	return Range{Start: Unbound(), End: Unbound()}
}

// seek position for backends: first key >= this
func (r Range) seekKey() []byte {
	if Unbounded == r.Start.Kind {
		return nil
	}
	return r.Start.Key
}

func (r Range) beforeStart(key []byte) bool {
	switch r.Start.Kind {
	case Included:
		return bytes.Compare(key, r.Start.Key) < 0
	case Excluded:
		return bytes.Compare(key, r.Start.Key) <= 0
	}
	return false
}

func (r Range) pastEnd(key []byte) bool {
	switch r.End.Kind {
	case Included:
		return bytes.Compare(key, r.End.Key) > 0
	case Excluded:
		return bytes.Compare(key, r.End.Key) >= 0
	}
	return false
}

// empty if the bounds cannot contain any key
func (r Range) empty() bool {
	if Unbounded == r.Start.Kind || Unbounded == r.End.Kind {
		return false
	}
	c := bytes.Compare(r.Start.Key, r.End.Key)
	if Included == r.Start.Kind && Included == r.End.Kind {
		return c > 0
	}
	return c >= 0
}

func copyBytes(b []byte) []byte {
	if nil == b {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
