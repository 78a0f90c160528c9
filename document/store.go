// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package document

import (
	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/collabd/crdt"
	"github.com/bitmark-inc/collabd/fault"
	"github.com/bitmark-inc/collabd/keys"
	"github.com/bitmark-inc/collabd/metrics"
	"github.com/bitmark-inc/collabd/storage"
)

// attempts for writes that hit a busy backend
const writeAttempts = 3

// Store - document logs on top of a key/value store
type Store struct {
	db      storage.Store
	factory crdt.Factory
	names   *names
	log     *logger.L
	metrics *metrics.Metrics
}

// New - document access, factory makes the runtime documents used for
// flushing and replay
//
// m may be nil
func New(db storage.Store, factory crdt.Factory, m *metrics.Metrics) *Store {
	return &Store{
		db:      db,
		factory: factory,
		names:   newNames(),
		log:     logger.New("document"),
		metrics: m,
	}
}

// DB - the underlying key/value store
func (s *Store) DB() storage.Store {
	return s.db
}

// NewDoc - a fresh empty runtime document
func (s *Store) NewDoc() crdt.Doc {
	return s.factory()
}

// resolve and read the baseline, fault.ErrDocumentNotFound if absent
//
// a write transaction always reads the index, a read scope may use the
// cache and falls back to the index if the cached id has no baseline
func (s *Store) resolveBaseline(r storage.Reader, name string) (keys.DocID, *baseline, error) {
	if err := ValidName(name); nil != err {
		return 0, nil, err
	}

	var id keys.DocID
	var found, cached bool
	var err error
	if tx, ok := r.(storage.Transaction); ok {
		id, found, err = s.names.lookupTx(tx, name)
	} else {
		id, found, cached, err = s.names.lookup(r, name)
	}
	if nil != err {
		return 0, nil, err
	}
	if !found {
		return 0, nil, fault.ErrDocumentNotFound
	}

	base, err := readBaseline(r, id)
	if nil != err {
		return 0, nil, err
	}
	if nil == base && cached {
		s.names.forget(name)
		id, found, err = readDocID(r, name)
		if nil != err {
			return 0, nil, err
		}
		if !found {
			return 0, nil, fault.ErrDocumentNotFound
		}
		base, err = readBaseline(r, id)
		if nil != err {
			return 0, nil, err
		}
	}
	if nil == base {
		return 0, nil, fault.ErrDocumentNotFound
	}
	return id, base, nil
}

// CreateNewDoc - allocate a doc id and write the baseline from the
// current runtime state
func (s *Store) CreateNewDoc(name string, doc crdt.Doc) (keys.DocID, error) {
	if err := ValidName(name); nil != err {
		return 0, err
	}
	if nil == doc {
		return 0, fault.ErrUnexpectedNilDocument
	}

	state, err := doc.EncodeState()
	if nil != err {
		return 0, err
	}
	stateVector, err := doc.EncodeStateVector()
	if nil != err {
		return 0, err
	}

	var id keys.DocID
	err = storage.UpdateRetry(s.db, writeAttempts, func(tx storage.Transaction) error {
		found, err := tx.Has(keys.DocIDKey(name))
		if nil != err {
			return err
		}
		if found {
			return fault.ErrDocumentExists
		}

		n, err := storage.NextSequence(tx, keys.DocIDCounterKey())
		if nil != err {
			return err
		}
		id = keys.DocID(n)

		if err := tx.Put(keys.DocIDKey(name), keys.EncodeDocID(id)); nil != err {
			return err
		}
		if err := tx.Put(keys.DocStateKey(id), packState(0, state)); nil != err {
			return err
		}
		return tx.Put(keys.DocStateVectorKey(id), stateVector)
	})
	if nil != err {
		if !fault.IsErrExists(err) {
			s.log.Errorf("create: %q  error: %s", name, err)
			s.metrics.Error("create")
		}
		return 0, err
	}

	s.log.Infof("created: %q  id: %d", name, id)
	return id, nil
}

// Exists - whether a document has been created
func (s *Store) Exists(name string) (bool, error) {
	found := false
	err := s.db.View(func(r storage.Reader) error {
		_, _, err := s.resolveBaseline(r, name)
		if nil == err {
			found = true
		} else if fault.IsErrNotFound(err) {
			err = nil
		}
		return err
	})
	return found, err
}

// PushUpdate - append an update under the next clock
//
// the greatest existing clock is found and the new entry written in one
// write transaction, the backend serializes these
func (s *Store) PushUpdate(name string, update []byte) (keys.Clock, error) {
	var clock keys.Clock
	err := storage.UpdateRetry(s.db, writeAttempts, func(tx storage.Transaction) error {
		id, base, err := s.resolveBaseline(tx, name)
		if nil != err {
			return err
		}

		last, found, err := lastClock(tx, id)
		if nil != err {
			return err
		}
		if found {
			if keys.MaxClock == last {
				return fault.ErrClockExhausted
			}
			clock = last + 1
		} else {
			clock = base.baseClock
		}

		key := keys.DocUpdateKey(id, clock)
		exists, err := tx.Has(key)
		if nil != err {
			return err
		}
		if exists {
			return fault.ErrDuplicateClock
		}
		return tx.Put(key, update)
	})
	if nil != err {
		s.log.Errorf("push: %q  error: %s", name, err)
		s.metrics.Error("push")
		return 0, err
	}

	s.metrics.UpdatePushed(len(update))
	s.log.Debugf("push: %q  clock: %d  size: %d", name, clock, len(update))
	return clock, nil
}

// GetUpdates - all updates with their clocks in clock order
func (s *Store) GetUpdates(name string) ([]Update, error) {
	var updates []Update
	err := s.db.View(func(r storage.Reader) error {
		id, _, err := s.resolveBaseline(r, name)
		if nil != err {
			return err
		}
		updates, err = readUpdates(r, id)
		return err
	})
	return updates, err
}

// GetAllUpdates - all update payloads in clock order
func (s *Store) GetAllUpdates(name string) ([][]byte, error) {
	updates, err := s.GetUpdates(name)
	if nil != err {
		return nil, err
	}
	data := make([][]byte, len(updates))
	for i, u := range updates {
		data[i] = u.Data
	}
	return data, nil
}

// DeleteUpdatesTo - remove updates with clock <= clock
//
// the baseline is not changed, the caller must already have folded the
// removed updates into a persisted state
func (s *Store) DeleteUpdatesTo(name string, clock keys.Clock) error {
	err := storage.UpdateRetry(s.db, writeAttempts, func(tx storage.Transaction) error {
		id, _, err := s.resolveBaseline(tx, name)
		if nil != err {
			return err
		}
		return tx.DeleteRange(keys.DocUpdateKey(id, 0), keys.DocUpdateKey(id, clock))
	})
	if nil != err {
		s.log.Errorf("delete updates: %q  to: %d  error: %s", name, clock, err)
		s.metrics.Error("delete-updates")
	}
	return err
}

// Replace - discard the log and baseline of a document and write doc as
// its new baseline
//
// the id is kept and clocks continue after the last clock of the
// discarded log
func (s *Store) Replace(name string, doc crdt.Doc) (keys.Clock, error) {
	if nil == doc {
		return 0, fault.ErrUnexpectedNilDocument
	}
	state, err := doc.EncodeState()
	if nil != err {
		return 0, err
	}
	stateVector, err := doc.EncodeStateVector()
	if nil != err {
		return 0, err
	}

	var next keys.Clock
	err = storage.UpdateRetry(s.db, writeAttempts, func(tx storage.Transaction) error {
		id, base, err := s.resolveBaseline(tx, name)
		if nil != err {
			return err
		}

		next = base.baseClock
		last, found, err := lastClock(tx, id)
		if nil != err {
			return err
		}
		if found {
			if keys.MaxClock == last {
				return fault.ErrClockExhausted
			}
			next = last + 1
		}

		start, end := keys.DocRange(id)
		if err := tx.DeleteRange(start, end); nil != err {
			return err
		}
		if err := tx.Put(keys.DocStateKey(id), packState(next, state)); nil != err {
			return err
		}
		return tx.Put(keys.DocStateVectorKey(id), stateVector)
	})
	if nil != err {
		s.log.Errorf("replace: %q  error: %s", name, err)
		s.metrics.Error("replace")
		return 0, err
	}

	s.log.Infof("replaced: %q  next clock: %d", name, next)
	return next, nil
}

// DeleteDoc - remove the whole document and its name
func (s *Store) DeleteDoc(name string) error {
	if err := ValidName(name); nil != err {
		return err
	}
	err := storage.UpdateRetry(s.db, writeAttempts, func(tx storage.Transaction) error {
		id, found, err := readDocID(tx, name)
		if nil != err {
			return err
		}
		if !found {
			return fault.ErrDocumentNotFound
		}
		start, end := keys.DocRange(id)
		if err := tx.DeleteRange(start, end); nil != err {
			return err
		}
		return tx.Delete(keys.DocIDKey(name))
	})
	s.names.forget(name)

	if nil != err {
		if !fault.IsErrNotFound(err) {
			s.log.Errorf("delete: %q  error: %s", name, err)
			s.metrics.Error("delete")
		}
		return err
	}
	s.log.Infof("deleted: %q", name)
	return nil
}
