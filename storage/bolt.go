// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"bytes"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/bitmark-inc/collabd/fault"
)

// all keys are in one bucket
var boltBucket = []byte("collab")

// time to wait for the file lock
const boltLockTimeout = 2 * time.Second

// Bolt store, bolt itself allows only one writer at a time
type boltStore struct {
	db       *bolt.DB
	readOnly bool
}

func openBolt(name string, readOnly bool, syncWrites bool) (*boltStore, error) {
	db, err := bolt.Open(name, 0600, &bolt.Options{
		Timeout:  boltLockTimeout,
		ReadOnly: readOnly,
		NoSync:   !syncWrites,
	})
	if nil != err {
		return nil, boltError(err, "open: "+name)
	}

	if !readOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(boltBucket)
			return err
		})
		if nil != err {
			db.Close()
			return nil, boltError(err, "create bucket")
		}
	}

	return &boltStore{
		db:       db,
		readOnly: readOnly,
	}, nil
}

func (s *boltStore) Backend() string {
	return BackendBolt
}

// a read-only database that was never written has no bucket, a nil
// bucket reads as empty
func (s *boltStore) View(f func(Reader) error) error {
	userError := false
	err := s.db.View(func(tx *bolt.Tx) error {
		err := f(&boltReader{bucket: tx.Bucket(boltBucket)})
		userError = nil != err
		return err
	})
	if nil != err && !userError {
		return boltError(err, "view")
	}
	return err
}

func (s *boltStore) Update(f func(Transaction) error) error {
	if s.readOnly {
		return fault.ErrTransactionReadOnly
	}

	userError := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		err := f(&boltTransaction{boltReader: boltReader{bucket: tx.Bucket(boltBucket)}})
		userError = nil != err
		return err
	})
	if nil != err && !userError {
		return boltError(err, "commit")
	}
	return err
}

func (s *boltStore) Close() error {
	return boltError(s.db.Close(), "close")
}

type boltReader struct {
	bucket *bolt.Bucket
}

// bolt values are only valid inside the transaction
func (r *boltReader) Get(key []byte) ([]byte, error) {
	if nil == r.bucket {
		return nil, nil
	}
	return copyBytes(r.bucket.Get(key)), nil
}

func (r *boltReader) Has(key []byte) (bool, error) {
	if nil == r.bucket {
		return false, nil
	}
	return nil != r.bucket.Get(key), nil
}

func (r *boltReader) Iterator(rg Range) Iterator {
	if nil == r.bucket {
		return errorIterator{}
	}
	return newRangeIterator(&boltIterator{
		cursor: r.bucket.Cursor(),
		seek:   rg.seekKey(),
	}, rg)
}

func (r *boltReader) NextBackEntry(key []byte) (*Element, error) {
	if nil == r.bucket {
		return nil, nil
	}

	c := r.bucket.Cursor()
	k, v := c.Seek(key)
	if nil == k {
		k, v = c.Last()
	} else if !bytes.Equal(key, k) {
		k, v = c.Prev()
	}
	if nil == k {
		return nil, nil
	}
	return &Element{
		Key:   copyBytes(k),
		Value: copyBytes(v),
	}, nil
}

type boltTransaction struct {
	boltReader
}

func (t *boltTransaction) Put(key []byte, value []byte) error {
	return boltError(t.bucket.Put(copyBytes(key), copyBytes(value)), "put")
}

func (t *boltTransaction) Delete(key []byte) error {
	return boltError(t.bucket.Delete(key), "delete")
}

// bolt cursors are invalidated by writes, so collect first
func (t *boltTransaction) DeleteRange(from []byte, to []byte) error {
	keys, err := rangeKeys(t, from, to)
	if nil != err {
		return err
	}
	for _, k := range keys {
		if err := t.bucket.Delete(k); nil != err {
			return boltError(err, "delete range")
		}
	}
	return nil
}

type boltIterator struct {
	cursor  *bolt.Cursor
	seek    []byte
	started bool
	key     []byte
	value   []byte
}

func (it *boltIterator) Next() bool {
	if !it.started {
		it.started = true
		if nil == it.seek {
			it.key, it.value = it.cursor.First()
		} else {
			it.key, it.value = it.cursor.Seek(it.seek)
		}
	} else {
		it.key, it.value = it.cursor.Next()
	}
	return nil != it.key
}

func (it *boltIterator) Key() []byte   { return it.key }
func (it *boltIterator) Value() []byte { return it.value }
func (it *boltIterator) Release()      {}
func (it *boltIterator) Error() error  { return nil }

func boltError(err error, message string) error {
	switch {
	case nil == err:
		return nil
	case errors.Is(err, bolt.ErrTimeout):
		return errors.Wrapf(fault.ErrStorageBusy, "bolt %s: %s", message, err)
	case errors.Is(err, bolt.ErrDatabaseNotOpen):
		return errors.Wrapf(fault.ErrStorageClosed, "bolt %s", message)
	case errors.Is(err, bolt.ErrInvalid), errors.Is(err, bolt.ErrChecksum):
		return errors.Wrapf(fault.ErrStorageCorrupted, "bolt %s: %s", message, err)
	case errors.Is(err, bolt.ErrTxNotWritable), errors.Is(err, bolt.ErrDatabaseReadOnly):
		return errors.Wrapf(fault.ErrTransactionReadOnly, "bolt %s", message)
	default:
		return errors.Wrapf(fault.ErrStorageIO, "bolt %s: %s", message, err)
	}
}
