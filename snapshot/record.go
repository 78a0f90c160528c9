// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package snapshot

import (
	"bytes"
	"time"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/sha3"

	"github.com/bitmark-inc/collabd/fault"
	"github.com/bitmark-inc/collabd/keys"
)

// Record - one stored snapshot
type Record struct {
	CreatedAt time.Time  `msgpack:"t"`
	Clock     keys.Clock `msgpack:"c"`
	Digest    []byte     `msgpack:"d"`
	State     []byte     `msgpack:"s"`
}

// Info - a record without its state
type Info struct {
	CreatedAt time.Time  `json:"createdAt"`
	Clock     keys.Clock `json:"clock"`
	Size      int        `json:"size"`
}

func newRecord(clock keys.Clock, state []byte, now time.Time) *Record {
	digest := sha3.Sum256(state)
	return &Record{
		CreatedAt: now.UTC(),
		Clock:     clock,
		Digest:    digest[:],
		State:     state,
	}
}

// Info - summary of the record
func (r *Record) Info() Info {
	return Info{
		CreatedAt: r.CreatedAt,
		Clock:     r.Clock,
		Size:      len(r.State),
	}
}

// Verify - the state matches the stored digest
func (r *Record) Verify() error {
	digest := sha3.Sum256(r.State)
	if !bytes.Equal(digest[:], r.Digest) {
		return fault.ErrSnapshotChecksum
	}
	return nil
}

func (r *Record) pack() ([]byte, error) {
	b, err := msgpack.Marshal(r)
	if nil != err {
		return nil, errors.Wrap(fault.ErrMalformedRecord, err.Error())
	}
	return b, nil
}

// the clock in the key must agree with the record
func unpackRecord(clock keys.Clock, value []byte) (*Record, error) {
	r := &Record{}
	if err := msgpack.Unmarshal(value, r); nil != err {
		return nil, errors.Wrap(fault.ErrMalformedRecord, err.Error())
	}
	if clock != r.Clock {
		return nil, errors.Wrapf(fault.ErrStorageCorrupted, "snapshot clock: %d  key clock: %d", r.Clock, clock)
	}
	return r, nil
}
