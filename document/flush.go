// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package document

import (
	"github.com/pkg/errors"

	"github.com/bitmark-inc/collabd/fault"
	"github.com/bitmark-inc/collabd/keys"
	"github.com/bitmark-inc/collabd/metrics"
	"github.com/bitmark-inc/collabd/storage"
)

// FlushDoc - fold every update into the baseline and delete the updates
//
// replay, rewrite and delete happen in one write transaction so no
// concurrent push can be lost; flushing a document without updates
// changes nothing
func (s *Store) FlushDoc(name string) error {
	flushed := 0
	err := storage.UpdateRetry(s.db, writeAttempts, func(tx storage.Transaction) error {
		flushed = 0

		id, base, err := s.resolveBaseline(tx, name)
		if nil != err {
			return err
		}

		replayed, err := replay(tx, id, base, s.factory())
		if nil != err {
			return err
		}
		if 0 == replayed.Updates {
			return nil
		}
		if keys.MaxClock == replayed.LastClock {
			return fault.ErrClockExhausted
		}

		if err := writeBaseline(tx, replayed, replayed.LastClock+1); nil != err {
			return err
		}
		start, end := keys.DocUpdateRange(id)
		if err := tx.DeleteRange(start, end); nil != err {
			return err
		}
		flushed = replayed.Updates
		return nil
	})

	switch {
	case nil != err:
		s.log.Errorf("flush: %q  error: %s", name, err)
		s.metrics.Flushed(metrics.ResultFail)
	case 0 == flushed:
		s.metrics.Flushed(metrics.ResultSkipped)
	default:
		s.log.Infof("flush: %q  updates: %d", name, flushed)
		s.metrics.Flushed(metrics.ResultOK)
	}
	return err
}

// Checkpoint - write a replayed state as the new baseline and delete the
// updates it covers, except the last one
//
// the replay may come from an earlier read scope: if the baseline moved
// since then (a flush or another checkpoint ran) fault.ErrStorageBusy is
// returned and the caller should replay again.  extra runs in the same
// transaction, e.g. to store a snapshot record.
func (s *Store) Checkpoint(name string, replayed *Replayed, extra func(tx storage.Transaction) error) error {
	clock, ok := replayed.Clock()
	if !ok {
		return fault.ErrEmptyDocument
	}

	err := s.db.Update(func(tx storage.Transaction) error {
		id, base, err := s.resolveBaseline(tx, name)
		if nil != err {
			return err
		}
		if id != replayed.ID || base.baseClock != replayed.BaseClock {
			return errors.Wrapf(fault.ErrStorageBusy, "checkpoint: %q baseline moved", name)
		}

		if replayed.Updates > 0 {
			// the update at clock is kept so that the next clock is
			// still found from the log
			if err := writeBaseline(tx, replayed, clock+1); nil != err {
				return err
			}
			if clock > 0 {
				if err := tx.DeleteRange(keys.DocUpdateKey(id, 0), keys.DocUpdateKey(id, clock-1)); nil != err {
					return err
				}
			}
		}

		if nil != extra {
			return extra(tx)
		}
		return nil
	})
	if nil != err && !fault.IsErrBusy(err) {
		s.log.Errorf("checkpoint: %q  error: %s", name, err)
		s.metrics.Error("checkpoint")
	}
	return err
}

// Guard - run f in a write transaction only if name still refers to
// document id
//
// fault.ErrDocumentNotFound if the document was deleted, possibly
// re-created under a new id
func (s *Store) Guard(name string, id keys.DocID, f func(tx storage.Transaction) error) error {
	return s.db.Update(func(tx storage.Transaction) error {
		current, _, err := s.resolveBaseline(tx, name)
		if nil != err {
			return err
		}
		if current != id {
			return fault.ErrDocumentNotFound
		}
		return f(tx)
	})
}

func writeBaseline(tx storage.Transaction, replayed *Replayed, nextBase keys.Clock) error {
	state, err := replayed.Doc.EncodeState()
	if nil != err {
		return err
	}
	stateVector, err := replayed.Doc.EncodeStateVector()
	if nil != err {
		return err
	}
	if err := tx.Put(keys.DocStateKey(replayed.ID), packState(nextBase, state)); nil != err {
		return err
	}
	return tx.Put(keys.DocStateVectorKey(replayed.ID), stateVector)
}
