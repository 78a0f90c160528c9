// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldb_errors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bitmark-inc/collabd/fault"
)

// LevelDB store
//
// read scopes use a snapshot, write scopes use a leveldb transaction
// which also blocks all other writers until commit/discard
type levelStore struct {
	db       *leveldb.DB
	readOnly bool
	wo       *ldb_opt.WriteOptions
}

func openLevelDB(name string, readOnly bool, syncWrites bool) (*levelStore, error) {
	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: readOnly,
		ReadOnly:       readOnly,
	}

	db, err := leveldb.OpenFile(name, opt)
	if nil != err {
		return nil, levelError(err, "open: "+name)
	}

	return &levelStore{
		db:       db,
		readOnly: readOnly,
		wo:       &ldb_opt.WriteOptions{Sync: syncWrites},
	}, nil
}

func (s *levelStore) Backend() string {
	return BackendLevelDB
}

func (s *levelStore) View(f func(Reader) error) error {
	snapshot, err := s.db.GetSnapshot()
	if nil != err {
		return levelError(err, "snapshot")
	}
	defer snapshot.Release()

	return f(&levelReader{source: snapshot})
}

func (s *levelStore) Update(f func(Transaction) error) error {
	if s.readOnly {
		return fault.ErrTransactionReadOnly
	}

	tr, err := s.db.OpenTransaction()
	if nil != err {
		return levelError(err, "begin")
	}
	// no-op after a successful commit
	defer tr.Discard()

	err = f(&levelTransaction{
		levelReader: levelReader{source: tr},
		tr:          tr,
		wo:          s.wo,
	})
	if nil != err {
		return err
	}

	if err := tr.Commit(); nil != err {
		return levelError(err, "commit")
	}
	return nil
}

func (s *levelStore) Close() error {
	return levelError(s.db.Close(), "close")
}

// methods shared by leveldb.Snapshot and leveldb.Transaction
type levelSource interface {
	Get(key []byte, ro *ldb_opt.ReadOptions) ([]byte, error)
	Has(key []byte, ro *ldb_opt.ReadOptions) (bool, error)
	NewIterator(slice *ldb_util.Range, ro *ldb_opt.ReadOptions) iterator.Iterator
}

type levelReader struct {
	source levelSource
}

func (r *levelReader) Get(key []byte) ([]byte, error) {
	value, err := r.source.Get(key, nil)
	if leveldb.ErrNotFound == err {
		return nil, nil
	}
	if nil != err {
		return nil, levelError(err, "get")
	}
	return value, nil
}

func (r *levelReader) Has(key []byte) (bool, error) {
	found, err := r.source.Has(key, nil)
	if nil != err {
		return false, levelError(err, "has")
	}
	return found, nil
}

func (r *levelReader) Iterator(rg Range) Iterator {
	slice := &ldb_util.Range{
		Start: rg.seekKey(),
		Limit: nil,
	}
	return newRangeIterator(&levelIterator{iter: r.source.NewIterator(slice, nil)}, rg)
}

func (r *levelReader) NextBackEntry(key []byte) (*Element, error) {
	iter := r.source.NewIterator(nil, nil)
	defer iter.Release()

	found := false
	if iter.Seek(key) {
		found = bytes.Equal(key, iter.Key()) || iter.Prev()
	} else {
		found = iter.Last()
	}
	if err := iter.Error(); nil != err {
		return nil, levelError(err, "seek")
	}
	if !found {
		return nil, nil
	}
	return &Element{
		Key:   copyBytes(iter.Key()),
		Value: copyBytes(iter.Value()),
	}, nil
}

type levelTransaction struct {
	levelReader
	tr *leveldb.Transaction
	wo *ldb_opt.WriteOptions
}

func (t *levelTransaction) Put(key []byte, value []byte) error {
	return levelError(t.tr.Put(key, value, t.wo), "put")
}

func (t *levelTransaction) Delete(key []byte) error {
	return levelError(t.tr.Delete(key, t.wo), "delete")
}

func (t *levelTransaction) DeleteRange(from []byte, to []byte) error {
	keys, err := rangeKeys(t, from, to)
	if nil != err {
		return err
	}
	batch := new(leveldb.Batch)
	for _, k := range keys {
		batch.Delete(k)
	}
	return levelError(t.tr.Write(batch, t.wo), "delete range")
}

// error positions are mapped, the rest passes straight through
type levelIterator struct {
	iter iterator.Iterator
}

func (it *levelIterator) Next() bool    { return it.iter.Next() }
func (it *levelIterator) Key() []byte   { return it.iter.Key() }
func (it *levelIterator) Value() []byte { return it.iter.Value() }
func (it *levelIterator) Release()      { it.iter.Release() }
func (it *levelIterator) Error() error  { return levelError(it.iter.Error(), "iterate") }

// map driver errors onto the fault classes
func levelError(err error, message string) error {
	switch {
	case nil == err:
		return nil
	case ldb_errors.IsCorrupted(err):
		return errors.Wrapf(fault.ErrStorageCorrupted, "leveldb %s: %s", message, err)
	case leveldb.ErrClosed == err:
		return errors.Wrapf(fault.ErrStorageClosed, "leveldb %s", message)
	default:
		return errors.Wrapf(fault.ErrStorageIO, "leveldb %s: %s", message, err)
	}
}
