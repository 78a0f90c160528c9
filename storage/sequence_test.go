// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/collabd/fault"
	"github.com/bitmark-inc/collabd/storage"
)

func TestNextSequence(t *testing.T) {
	key := []byte{0x01, 0x00, 0xff}

	forEachBackend(t, func(t *testing.T, store storage.Store) {
		for expected := uint32(1); expected <= 3; expected += 1 {
			var n uint32
			err := store.Update(func(tx storage.Transaction) error {
				var err error
				n, err = storage.NextSequence(tx, key)
				return err
			})
			require.Nil(t, err, "sequence error")
			assert.Equal(t, expected, n, "wrong sequence")
		}

		// a rolled back allocation is not consumed
		_ = store.Update(func(tx storage.Transaction) error {
			_, _ = storage.NextSequence(tx, key)
			return fault.ErrInvalidCount
		})
		var n uint32
		err := store.Update(func(tx storage.Transaction) error {
			var err error
			n, err = storage.NextSequence(tx, key)
			return err
		})
		require.Nil(t, err, "sequence error")
		assert.Equal(t, uint32(4), n, "rolled back value consumed")
	})
}

func TestNextSequenceExhausted(t *testing.T) {
	key := []byte{0x01, 0x00, 0xff}
	store := storage.NewMemory()

	err := store.Update(func(tx storage.Transaction) error {
		return tx.Put(key, []byte{0xff, 0xff, 0xff, 0xff})
	})
	require.Nil(t, err, "put")

	err = store.Update(func(tx storage.Transaction) error {
		_, err := storage.NextSequence(tx, key)
		return err
	})
	assert.Equal(t, fault.ErrIdentifierExhausted, err, "wrong error")
}
