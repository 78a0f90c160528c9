// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package document

import (
	"github.com/bitmark-inc/collabd/fault"
	"github.com/bitmark-inc/collabd/keys"
	"github.com/bitmark-inc/collabd/storage"
)

// size of the base clock prefix
const baseClockSize = 4

// baseline of a document
type baseline struct {
	baseClock keys.Clock
	state     []byte
}

func packState(base keys.Clock, state []byte) []byte {
	value := make([]byte, 0, baseClockSize+len(state))
	value = append(value, keys.EncodeClock(base)...)
	return append(value, state...)
}

func unpackState(value []byte) (*baseline, error) {
	base, ok := keys.DecodeClock(value)
	if !ok {
		return nil, fault.ErrMalformedRecord
	}
	return &baseline{
		baseClock: base,
		state:     value[baseClockSize:],
	}, nil
}

// read the baseline, nil if the document does not exist
func readBaseline(r storage.Reader, id keys.DocID) (*baseline, error) {
	value, err := r.Get(keys.DocStateKey(id))
	if nil != err || nil == value {
		return nil, err
	}
	return unpackState(value)
}

// last clock in the log, false if the log is empty
func lastClock(r storage.Reader, id keys.DocID) (keys.Clock, bool, error) {
	_, end := keys.DocUpdateRange(id)
	e, err := r.NextBackEntry(end)
	if nil != err || nil == e {
		return 0, false, err
	}
	clock, ok := keys.DecodeUpdateClock(id, e.Key)
	return clock, ok, nil
}

// Update - one log entry
type Update struct {
	Clock keys.Clock
	Data  []byte
}

// all updates of a document in clock order
func readUpdates(r storage.Reader, id keys.DocID) ([]Update, error) {
	start, end := keys.DocUpdateRange(id)
	iter := r.Iterator(storage.Inclusive(start, end))
	defer iter.Release()

	updates := make([]Update, 0, 16)
	for iter.Next() {
		clock, ok := keys.DecodeUpdateClock(id, iter.Key())
		if !ok {
			return nil, fault.ErrInvalidKey
		}
		data := make([]byte, len(iter.Value()))
		copy(data, iter.Value())
		updates = append(updates, Update{Clock: clock, Data: data})
	}
	return updates, iter.Error()
}
