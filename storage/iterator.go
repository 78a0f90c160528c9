// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

// rawIterator - backend iteration from the first key >= the range seek key
type rawIterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// rangeIterator - applies range bounds on top of a backend iterator
type rangeIterator struct {
	raw  rawIterator
	r    Range
	done bool
}

func newRangeIterator(raw rawIterator, r Range) Iterator {
	return &rangeIterator{
		raw:  raw,
		r:    r,
		done: r.empty(),
	}
}

func (it *rangeIterator) Next() bool {
	if it.done {
		return false
	}
	for it.raw.Next() {
		key := it.raw.Key()
		if it.r.beforeStart(key) {
			continue
		}
		if it.r.pastEnd(key) {
			break
		}
		return true
	}
	it.done = true
	return false
}

func (it *rangeIterator) Key() []byte   { return it.raw.Key() }
func (it *rangeIterator) Value() []byte { return it.raw.Value() }
func (it *rangeIterator) Release()      { it.raw.Release() }
func (it *rangeIterator) Error() error  { return it.raw.Error() }

// errorIterator - an iterator that could not be created
type errorIterator struct {
	err error
}

func (it errorIterator) Next() bool    { return false }
func (it errorIterator) Key() []byte   { return nil }
func (it errorIterator) Value() []byte { return nil }
func (it errorIterator) Release()      {}
func (it errorIterator) Error() error  { return it.err }

// collect keys of a range so that they can be deleted after the
// iterator is released
func rangeKeys(reader Reader, from []byte, to []byte) ([][]byte, error) {
	iter := reader.Iterator(Inclusive(from, to))
	defer iter.Release()

	keys := make([][]byte, 0, 16)
	for iter.Next() {
		keys = append(keys, copyBytes(iter.Key()))
	}
	return keys, iter.Error()
}
