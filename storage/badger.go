// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/bitmark-inc/collabd/fault"
	"github.com/bitmark-inc/logger"
)

// value log garbage collection
const (
	badgerGCInterval     = 5 * time.Minute
	badgerGCDiscardRatio = 0.5
)

// Badger store
//
// badger transactions are optimistic, so writers are serialized here
// to give the same guarantee as the other backends
type badgerStore struct {
	db       *badger.DB
	readOnly bool
	writer   sync.Mutex
	log      *logger.L
	shutdown chan struct{}
	finished chan struct{}
}

func openBadger(directory string, inMemory bool, readOnly bool, syncWrites bool, log *logger.L) (*badgerStore, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(directory).WithReadOnly(readOnly)
	}
	opts = opts.WithSyncWrites(syncWrites).
		WithLogger(&badgerLogger{log: log})

	db, err := badger.Open(opts)
	if nil != err {
		return nil, badgerError(err, "open: "+directory)
	}

	s := &badgerStore{
		db:       db,
		readOnly: readOnly,
		log:      log,
		shutdown: make(chan struct{}),
		finished: make(chan struct{}),
	}

	if inMemory || readOnly {
		close(s.finished)
	} else {
		go s.collectGarbage()
	}
	return s, nil
}

func (s *badgerStore) Backend() string {
	return BackendBadger
}

func (s *badgerStore) View(f func(Reader) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		return f(&badgerReader{txn: txn})
	})
}

func (s *badgerStore) Update(f func(Transaction) error) error {
	if s.readOnly {
		return fault.ErrTransactionReadOnly
	}

	s.writer.Lock()
	defer s.writer.Unlock()

	// user errors come back unchanged, commit errors are mapped
	userError := false
	err := s.db.Update(func(txn *badger.Txn) error {
		err := f(&badgerTransaction{badgerReader: badgerReader{txn: txn}})
		userError = nil != err
		return err
	})
	if nil != err && !userError {
		return badgerError(err, "commit")
	}
	return err
}

func (s *badgerStore) Close() error {
	close(s.shutdown)
	<-s.finished
	return badgerError(s.db.Close(), "close")
}

func (s *badgerStore) collectGarbage() {
	defer close(s.finished)

	ticker := time.NewTicker(badgerGCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(badgerGCDiscardRatio)
			if nil == err {
				s.log.Debug("value log GC completed")
			} else if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
				s.log.Warnf("value log GC error: %s", err)
			}
		}
	}
}

type badgerReader struct {
	txn *badger.Txn
}

func (r *badgerReader) Get(key []byte) ([]byte, error) {
	item, err := r.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if nil != err {
		return nil, badgerError(err, "get")
	}
	value, err := item.ValueCopy(nil)
	if nil != err {
		return nil, badgerError(err, "get value")
	}
	return value, nil
}

func (r *badgerReader) Has(key []byte) (bool, error) {
	_, err := r.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if nil != err {
		return false, badgerError(err, "has")
	}
	return true, nil
}

func (r *badgerReader) Iterator(rg Range) Iterator {
	return newRangeIterator(&badgerIterator{
		iter: r.txn.NewIterator(badger.DefaultIteratorOptions),
		seek: rg.seekKey(),
	}, rg)
}

// a reverse iterator seeks to the greatest key <= key
func (r *badgerReader) NextBackEntry(key []byte) (*Element, error) {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true

	iter := r.txn.NewIterator(opts)
	defer iter.Close()

	iter.Seek(key)
	if !iter.Valid() {
		return nil, nil
	}

	item := iter.Item()
	value, err := item.ValueCopy(nil)
	if nil != err {
		return nil, badgerError(err, "seek value")
	}
	return &Element{
		Key:   item.KeyCopy(nil),
		Value: value,
	}, nil
}

type badgerTransaction struct {
	badgerReader
}

// badger holds the slices until commit
func (t *badgerTransaction) Put(key []byte, value []byte) error {
	return badgerError(t.txn.Set(copyBytes(key), copyBytes(value)), "put")
}

func (t *badgerTransaction) Delete(key []byte) error {
	return badgerError(t.txn.Delete(copyBytes(key)), "delete")
}

// only one iterator may be open in a read-write transaction so the
// keys are collected first
func (t *badgerTransaction) DeleteRange(from []byte, to []byte) error {
	keys, err := rangeKeys(t, from, to)
	if nil != err {
		return err
	}
	for _, k := range keys {
		if err := t.txn.Delete(k); nil != err {
			return badgerError(err, "delete range")
		}
	}
	return nil
}

type badgerIterator struct {
	iter    *badger.Iterator
	seek    []byte
	started bool
	err     error
}

func (it *badgerIterator) Next() bool {
	if !it.started {
		it.started = true
		if nil == it.seek {
			it.iter.Rewind()
		} else {
			it.iter.Seek(it.seek)
		}
	} else {
		it.iter.Next()
	}
	return it.iter.Valid()
}

func (it *badgerIterator) Key() []byte {
	return it.iter.Item().Key()
}

func (it *badgerIterator) Value() []byte {
	value, err := it.iter.Item().ValueCopy(nil)
	if nil != err && nil == it.err {
		it.err = badgerError(err, "iterate")
	}
	return value
}

func (it *badgerIterator) Release()     { it.iter.Close() }
func (it *badgerIterator) Error() error { return it.err }

func badgerError(err error, message string) error {
	switch {
	case nil == err:
		return nil
	case errors.Is(err, badger.ErrConflict):
		return errors.Wrapf(fault.ErrStorageBusy, "badger %s: %s", message, err)
	default:
		return errors.Wrapf(fault.ErrStorageIO, "badger %s: %s", message, err)
	}
}

// route badger's internal log onto a logger channel
type badgerLogger struct {
	log *logger.L
}

func (b *badgerLogger) Errorf(format string, args ...interface{}) {
	b.log.Errorf(strings.TrimSuffix(format, "\n"), args...)
}

func (b *badgerLogger) Warningf(format string, args ...interface{}) {
	b.log.Warnf(strings.TrimSuffix(format, "\n"), args...)
}

func (b *badgerLogger) Infof(format string, args ...interface{}) {
	b.log.Infof(strings.TrimSuffix(format, "\n"), args...)
}

func (b *badgerLogger) Debugf(format string, args ...interface{}) {
	b.log.Debugf(strings.TrimSuffix(format, "\n"), args...)
}
