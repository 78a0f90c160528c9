// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package document

import (
	"github.com/bitmark-inc/collabd/crdt"
	"github.com/bitmark-inc/collabd/fault"
	"github.com/bitmark-inc/collabd/keys"
	"github.com/bitmark-inc/collabd/storage"
)

// Replayed - a document rebuilt from one consistent view of its log
type Replayed struct {
	ID        keys.DocID
	Doc       crdt.Doc
	BaseClock keys.Clock
	Updates   int

	// clock of the last applied update, valid if Updates > 0
	LastClock keys.Clock
}

// Clock - the clock the replayed state covers, false if no update was
// ever appended
func (r *Replayed) Clock() (keys.Clock, bool) {
	if r.Updates > 0 {
		return r.LastClock, true
	}
	if r.BaseClock > 0 {
		return r.BaseClock - 1, true
	}
	return 0, false
}

// apply the baseline and then every update in clock order
func replay(r storage.Reader, id keys.DocID, base *baseline, doc crdt.Doc) (*Replayed, error) {
	if len(base.state) > 0 {
		if err := doc.ApplyUpdate(base.state); nil != err {
			return nil, err
		}
	}

	updates, err := readUpdates(r, id)
	if nil != err {
		return nil, err
	}

	result := &Replayed{
		ID:        id,
		Doc:       doc,
		BaseClock: base.baseClock,
		Updates:   len(updates),
	}
	for _, u := range updates {
		if err := doc.ApplyUpdate(u.Data); nil != err {
			return nil, err
		}
		result.LastClock = u.Clock
	}
	return result, nil
}

// LoadDoc - apply the persisted document to a runtime document
//
// updates are not deduplicated: applying an update the runtime has
// already seen must be a no-op
func (s *Store) LoadDoc(name string, doc crdt.Doc) error {
	if nil == doc {
		return fault.ErrUnexpectedNilDocument
	}

	err := s.db.View(func(r storage.Reader) error {
		id, base, err := s.resolveBaseline(r, name)
		if nil != err {
			return err
		}
		_, err = replay(r, id, base, doc)
		return err
	})
	if nil != err {
		if !fault.IsErrNotFound(err) {
			s.log.Errorf("load: %q  error: %s", name, err)
			s.metrics.Error("load")
		}
		return err
	}

	s.metrics.Loaded()
	return nil
}

// Replay - rebuild into a fresh runtime document
func (s *Store) Replay(name string) (*Replayed, error) {
	var result *Replayed
	err := s.db.View(func(r storage.Reader) error {
		id, base, err := s.resolveBaseline(r, name)
		if nil != err {
			return err
		}
		result, err = replay(r, id, base, s.factory())
		return err
	})
	return result, err
}

// EncodeDiff - the update a replica with the given state vector needs
func (s *Store) EncodeDiff(name string, stateVector []byte) ([]byte, error) {
	replayed, err := s.Replay(name)
	if nil != err {
		return nil, err
	}
	return replayed.Doc.EncodeDiff(stateVector)
}

// Info - summary of one document
type Info struct {
	Name        string     `json:"name"`
	ID          keys.DocID `json:"id"`
	BaseClock   keys.Clock `json:"baseClock"`
	LastClock   keys.Clock `json:"lastClock"`
	Updates     int        `json:"updates"`
	UpdateBytes int        `json:"updateBytes"`
	StateBytes  int        `json:"stateBytes"`
}

// Info - sizes and clocks of a document
func (s *Store) Info(name string) (*Info, error) {
	var info *Info
	err := s.db.View(func(r storage.Reader) error {
		id, base, err := s.resolveBaseline(r, name)
		if nil != err {
			return err
		}
		updates, err := readUpdates(r, id)
		if nil != err {
			return err
		}

		info = &Info{
			Name:       name,
			ID:         id,
			BaseClock:  base.baseClock,
			Updates:    len(updates),
			StateBytes: len(base.state),
		}
		for _, u := range updates {
			info.UpdateBytes += len(u.Data)
			info.LastClock = u.Clock
		}
		return nil
	})
	return info, err
}

// NameID - an entry of the name index
type NameID struct {
	Name string
	ID   keys.DocID
}

// ListDocs - every document name in byte order
func (s *Store) ListDocs() ([]NameID, error) {
	start, limit := keys.NameRange()
	cursor := storage.NewFetchCursor(s.db, storage.Range{
		Start: storage.Include(start),
		End:   storage.Exclude(limit),
	})

	result := make([]NameID, 0, 16)
	err := cursor.Map(func(key []byte, value []byte) error {
		name, ok := keys.DecodeName(key)
		if !ok {
			return fault.ErrInvalidKey
		}
		id, ok := keys.DecodeDocID(value)
		if !ok {
			return fault.ErrMalformedRecord
		}
		result = append(result, NameID{Name: name, ID: id})
		return nil
	})
	return result, err
}
