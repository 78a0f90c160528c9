// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/bitmark-inc/collabd/fault"
)

// NextSequence - increment the 32 bit counter held under key and
// return the new value, the first value is 1
//
// must run inside the Update that uses the value so that the counter
// and its use commit together
func NextSequence(tx Transaction, key []byte) (uint32, error) {
	value, err := tx.Get(key)
	if nil != err {
		return 0, err
	}

	last := uint32(0)
	if nil != value {
		if 4 != len(value) {
			return 0, errors.Wrapf(fault.ErrStorageCorrupted, "sequence length: %d", len(value))
		}
		last = binary.BigEndian.Uint32(value)
	}
	if math.MaxUint32 == last {
		return 0, fault.ErrIdentifierExhausted
	}

	next := last + 1
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, next)
	if err := tx.Put(key, b); nil != err {
		return 0, err
	}
	return next, nil
}
