// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crdt

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bitmark-inc/collabd/fault"
)

// encoding format version
const formatVersion = 1

// Item - one edit
type Item struct {
	Client  uint64 `msgpack:"c"`
	Clock   uint64 `msgpack:"k"`
	Lamport uint64 `msgpack:"l"`
	Key     string `msgpack:"n"`
	Value   []byte `msgpack:"v"`
	Deleted bool   `msgpack:"d"`
}

// the same record serves as update and as state
type updateRecord struct {
	Version uint8  `msgpack:"f"`
	Items   []Item `msgpack:"i"`
}

type vectorEntry struct {
	Client uint64 `msgpack:"c"`
	Clock  uint64 `msgpack:"k"`
}

type vectorRecord struct {
	Version uint8         `msgpack:"f"`
	Entries []vectorEntry `msgpack:"e"`
}

// StateVector - next expected clock of each client
type StateVector map[uint64]uint64

// precedes - ordering used for every encoding
func precedes(a Item, b Item) bool {
	if a.Client != b.Client {
		return a.Client < b.Client
	}
	return a.Clock < b.Clock
}

// beats - last-writer-wins: higher lamport wins, ties go to higher client
func beats(a Item, b Item) bool {
	if a.Lamport != b.Lamport {
		return a.Lamport > b.Lamport
	}
	return a.Client > b.Client
}

func encodeItems(items []Item) ([]byte, error) {
	sort.Slice(items, func(i, j int) bool {
		return precedes(items[i], items[j])
	})
	b, err := msgpack.Marshal(&updateRecord{
		Version: formatVersion,
		Items:   items,
	})
	if nil != err {
		return nil, errors.Wrap(fault.ErrMalformedUpdate, err.Error())
	}
	return b, nil
}

// DecodeUpdate - items of an update or state
func DecodeUpdate(update []byte) ([]Item, error) {
	var record updateRecord
	if err := msgpack.Unmarshal(update, &record); nil != err {
		return nil, errors.Wrap(fault.ErrMalformedUpdate, err.Error())
	}
	if formatVersion != record.Version {
		return nil, fault.ErrUnsupportedStateVersion
	}
	return record.Items, nil
}

// Encode - canonical form of a state vector
func (sv StateVector) Encode() ([]byte, error) {
	entries := make([]vectorEntry, 0, len(sv))
	for client, clock := range sv {
		entries = append(entries, vectorEntry{Client: client, Clock: clock})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Client < entries[j].Client
	})
	b, err := msgpack.Marshal(&vectorRecord{
		Version: formatVersion,
		Entries: entries,
	})
	if nil != err {
		return nil, errors.Wrap(fault.ErrMalformedStateVector, err.Error())
	}
	return b, nil
}

// DecodeStateVector - reverse of Encode, empty input is an empty vector
func DecodeStateVector(b []byte) (StateVector, error) {
	sv := make(StateVector)
	if 0 == len(b) {
		return sv, nil
	}

	var record vectorRecord
	if err := msgpack.Unmarshal(b, &record); nil != err {
		return nil, errors.Wrap(fault.ErrMalformedStateVector, err.Error())
	}
	if formatVersion != record.Version {
		return nil, fault.ErrUnsupportedStateVersion
	}
	for _, e := range record.Entries {
		sv[e.Client] = e.Clock
	}
	return sv, nil
}
