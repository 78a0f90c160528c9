// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"github.com/bitmark-inc/collabd/fault"
)

// FetchCursor - cursor structure
type FetchCursor struct {
	store    Store
	maxRange Range
}

// NewFetchCursor - initialise a cursor to the start of a key range
func NewFetchCursor(store Store, r Range) *FetchCursor {
	return &FetchCursor{
		store:    store,
		maxRange: r,
	}
}

// Seek - move cursor to specific key position
func (cursor *FetchCursor) Seek(key []byte) *FetchCursor {
	cursor.maxRange.Start = Include(copyBytes(key))
	return cursor
}

// Fetch - return some elements starting from the cursor position, the
// cursor moves past the last element returned
func (cursor *FetchCursor) Fetch(count int) ([]Element, error) {
	if nil == cursor || nil == cursor.store {
		return nil, fault.ErrInvalidCursor
	}
	if count <= 0 {
		return nil, fault.ErrInvalidCount
	}

	results := make([]Element, 0, count)
	err := cursor.store.View(func(r Reader) error {
		iter := r.Iterator(cursor.maxRange)
		defer iter.Release()

		for len(results) < count && iter.Next() {
			results = append(results, Element{
				Key:   copyBytes(iter.Key()),
				Value: copyBytes(iter.Value()),
			})
		}
		return iter.Error()
	})

	if n := len(results); n > 0 {
		cursor.maxRange.Start = Exclude(results[n-1].Key)
	}
	return results, err
}

// Map - run a function on all elements in the range
//
// iteration stops at the first error returned by f
func (cursor *FetchCursor) Map(f func(key []byte, value []byte) error) error {
	if nil == cursor || nil == cursor.store {
		return fault.ErrInvalidCursor
	}

	return cursor.store.View(func(r Reader) error {
		iter := r.Iterator(cursor.maxRange)
		defer iter.Release()

		for iter.Next() {
			// contents of the iterator slices are only valid until
			// the next call to Next
			err := f(copyBytes(iter.Key()), copyBytes(iter.Value()))
			if nil != err {
				return err
			}
		}
		return iter.Error()
	})
}
