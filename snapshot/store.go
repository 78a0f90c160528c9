// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package snapshot

import (
	"github.com/bitmark-inc/collabd/fault"
	"github.com/bitmark-inc/collabd/keys"
	"github.com/bitmark-inc/collabd/storage"
)

// Store - snapshot records of every document
type Store struct {
	db storage.Store
}

// NewStore - snapshot records kept in db
func NewStore(db storage.Store) *Store {
	return &Store{db: db}
}

// series id of a name, false if no snapshot was ever written
func seriesID(r storage.Reader, name string) (keys.SnapshotID, bool, error) {
	value, err := r.Get(keys.SnapshotIDKey(name))
	if nil != err || nil == value {
		return 0, false, err
	}
	id, ok := keys.DecodeDocID(value)
	if !ok {
		return 0, false, fault.ErrMalformedRecord
	}
	return keys.SnapshotID(id), true, nil
}

// series id of a name, allocated on first use
func allocateSeries(tx storage.Transaction, name string) (keys.SnapshotID, error) {
	id, found, err := seriesID(tx, name)
	if nil != err || found {
		return id, err
	}

	n, err := storage.NextSequence(tx, keys.SnapshotIDCounterKey())
	if nil != err {
		return 0, err
	}
	id = keys.SnapshotID(n)
	err = tx.Put(keys.SnapshotIDKey(name), keys.EncodeDocID(keys.DocID(id)))
	return id, err
}

// write a record inside an existing write transaction
func (s *Store) put(tx storage.Transaction, name string, record *Record) error {
	id, err := allocateSeries(tx, name)
	if nil != err {
		return err
	}

	key := keys.SnapshotKey(id, record.Clock)
	exists, err := tx.Has(key)
	if nil != err {
		return err
	}
	if exists {
		return fault.ErrSnapshotExists
	}

	value, err := record.pack()
	if nil != err {
		return err
	}
	return tx.Put(key, value)
}

// Has - whether a snapshot exists at clock
func (s *Store) Has(name string, clock keys.Clock) (bool, error) {
	found := false
	err := s.db.View(func(r storage.Reader) error {
		id, ok, err := seriesID(r, name)
		if nil != err || !ok {
			return err
		}
		found, err = r.Has(keys.SnapshotKey(id, clock))
		return err
	})
	return found, err
}

// visit every record of a name in clock order
func eachRecord(r storage.Reader, name string, f func(key []byte, record *Record) error) error {
	id, found, err := seriesID(r, name)
	if nil != err || !found {
		return err
	}

	start, end := keys.SnapshotRange(id)
	iter := r.Iterator(storage.Inclusive(start, end))
	defer iter.Release()

	for iter.Next() {
		clock, ok := keys.DecodeSnapshotClock(id, iter.Key())
		if !ok {
			return fault.ErrInvalidKey
		}
		record, err := unpackRecord(clock, iter.Value())
		if nil != err {
			return err
		}
		key := append([]byte{}, iter.Key()...)
		if err := f(key, record); nil != err {
			return err
		}
	}
	return iter.Error()
}

// List - every snapshot of a document, oldest first
func (s *Store) List(name string) ([]Info, error) {
	list := make([]Info, 0, 8)
	err := s.db.View(func(r storage.Reader) error {
		return eachRecord(r, name, func(_ []byte, record *Record) error {
			list = append(list, record.Info())
			return nil
		})
	})
	return list, err
}

// Get - the verified snapshot at clock
func (s *Store) Get(name string, clock keys.Clock) (*Record, error) {
	var record *Record
	err := s.db.View(func(r storage.Reader) error {
		id, found, err := seriesID(r, name)
		if nil != err {
			return err
		}
		if !found {
			return fault.ErrSnapshotNotFound
		}
		value, err := r.Get(keys.SnapshotKey(id, clock))
		if nil != err {
			return err
		}
		if nil == value {
			return fault.ErrSnapshotNotFound
		}
		record, err = unpackRecord(clock, value)
		return err
	})
	if nil != err {
		return nil, err
	}
	return record, record.Verify()
}

// Latest - the verified snapshot with the highest clock
func (s *Store) Latest(name string) (*Record, error) {
	var record *Record
	err := s.db.View(func(r storage.Reader) error {
		id, found, err := seriesID(r, name)
		if nil != err {
			return err
		}
		if !found {
			return fault.ErrSnapshotNotFound
		}

		_, end := keys.SnapshotRange(id)
		e, err := r.NextBackEntry(end)
		if nil != err {
			return err
		}
		if nil == e {
			return fault.ErrSnapshotNotFound
		}
		clock, ok := keys.DecodeSnapshotClock(id, e.Key)
		if !ok {
			// entry of an earlier series
			return fault.ErrSnapshotNotFound
		}
		record, err = unpackRecord(clock, e.Value)
		return err
	})
	if nil != err {
		return nil, err
	}
	return record, record.Verify()
}

// Prune - keep the newest records, returns how many were deleted
func (s *Store) Prune(name string, keep int) (int, error) {
	if keep < 0 {
		return 0, fault.ErrInvalidCount
	}

	deleted := 0
	err := s.db.Update(func(tx storage.Transaction) error {
		deleted = 0
		all := make([][]byte, 0, 16)
		err := eachRecord(tx, name, func(key []byte, _ *Record) error {
			all = append(all, key)
			return nil
		})
		if nil != err {
			return err
		}
		if len(all) <= keep {
			return nil
		}
		for _, key := range all[:len(all)-keep] {
			if err := tx.Delete(key); nil != err {
				return err
			}
			deleted += 1
		}
		return nil
	})
	return deleted, err
}

// DeleteAll - remove every record and the series of a document
func (s *Store) DeleteAll(name string) error {
	return s.db.Update(func(tx storage.Transaction) error {
		id, found, err := seriesID(tx, name)
		if nil != err || !found {
			return err
		}
		start, end := keys.SnapshotRange(id)
		if err := tx.DeleteRange(start, end); nil != err {
			return err
		}
		return tx.Delete(keys.SnapshotIDKey(name))
	})
}
