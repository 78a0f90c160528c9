// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package document_test

import (
	"encoding/binary"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/collabd/crdt"
	"github.com/bitmark-inc/collabd/document"
	"github.com/bitmark-inc/collabd/fault"
	"github.com/bitmark-inc/collabd/keys"
	"github.com/bitmark-inc/collabd/storage"
)

func TestValidName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"d1", true},
		{"docs/notes.md", true},
		{"émoji ✓", true},
		{"", false},
		{"a\x00b", false},
		{string([]byte{0xff, 0xfe}), false},
		{strings.Repeat("x", document.MaxNameLength), true},
		{strings.Repeat("x", document.MaxNameLength+1), false},
	}

	for i, item := range tests {
		err := document.ValidName(item.name)
		if item.ok {
			assert.Nil(t, err, "%d: %q", i, item.name)
		} else {
			assert.Equal(t, fault.ErrInvalidDocumentName, err, "%d: %q", i, item.name)
		}
	}
}

func TestCreateNewDoc(t *testing.T) {
	s, _ := newMemoryStore(t)

	m := crdt.New(1)
	_, err := m.Set("title", []byte("hello"))
	require.Nil(t, err, "set")

	id1, err := s.CreateNewDoc("d1", m)
	require.Nil(t, err, "create d1")
	id2, err := s.CreateNewDoc("d2", crdt.New(2))
	require.Nil(t, err, "create d2")
	assert.Equal(t, keys.DocID(1), id1, "first id")
	assert.Equal(t, keys.DocID(2), id2, "second id")

	_, err = s.CreateNewDoc("d1", crdt.New(1))
	assert.Equal(t, fault.ErrDocumentExists, err, "duplicate name")

	_, err = s.CreateNewDoc("", crdt.New(1))
	assert.Equal(t, fault.ErrInvalidDocumentName, err, "empty name")

	_, err = s.CreateNewDoc("d3", nil)
	assert.Equal(t, fault.ErrUnexpectedNilDocument, err, "nil document")

	found, err := s.Exists("d1")
	require.Nil(t, err, "exists")
	assert.True(t, found, "d1 exists")

	found, err = s.Exists("nope")
	require.Nil(t, err, "exists")
	assert.False(t, found, "unknown name")

	// baseline state is loaded even with no updates
	assert.Equal(t, encodedState(t, m), loadedState(t, s, "d1"), "baseline")
}

func TestPushUpdateClockOrder(t *testing.T) {
	s, m := newMemoryStore(t)
	editor := createWithEdits(t, s, "d1", 1, 10)

	updates, err := s.GetUpdates("d1")
	require.Nil(t, err, "get updates")
	require.Equal(t, 10, len(updates), "update count")
	for i, u := range updates {
		assert.Equal(t, keys.Clock(i), u.Clock, "clock of %d", i)
	}

	all, err := s.GetAllUpdates("d1")
	require.Nil(t, err, "get all updates")
	assert.Equal(t, 10, len(all), "payload count")
	assert.Equal(t, updates[3].Data, all[3], "payload order")

	assert.Equal(t, encodedState(t, editor), loadedState(t, s, "d1"), "replay")
	assert.Contains(t, metricText(t, m), "collabd_document_updates_pushed_total 10", "pushed metric")
}

func TestPushUpdateMissingDocument(t *testing.T) {
	s, _ := newMemoryStore(t)

	_, err := s.PushUpdate("missing", []byte{1})
	assert.Equal(t, fault.ErrDocumentNotFound, err, "push to missing doc")

	_, err = s.GetAllUpdates("missing")
	assert.Equal(t, fault.ErrDocumentNotFound, err, "updates of missing doc")

	err = s.LoadDoc("missing", crdt.New(1))
	assert.Equal(t, fault.ErrDocumentNotFound, err, "load missing doc")

	err = s.FlushDoc("missing")
	assert.Equal(t, fault.ErrDocumentNotFound, err, "flush missing doc")
}

func TestDocumentIsolation(t *testing.T) {
	s, _ := newMemoryStore(t)
	createWithEdits(t, s, "d1", 1, 5)
	e2 := createWithEdits(t, s, "d2", 2, 3)

	u1, err := s.GetUpdates("d1")
	require.Nil(t, err, "d1 updates")
	u2, err := s.GetUpdates("d2")
	require.Nil(t, err, "d2 updates")
	assert.Equal(t, 5, len(u1), "d1 count")
	assert.Equal(t, 3, len(u2), "d2 count")

	require.Nil(t, s.FlushDoc("d1"), "flush d1")

	u2, err = s.GetUpdates("d2")
	require.Nil(t, err, "d2 updates")
	assert.Equal(t, 3, len(u2), "d2 untouched by d1 flush")

	require.Nil(t, s.DeleteDoc("d1"), "delete d1")
	assert.Equal(t, encodedState(t, e2), loadedState(t, s, "d2"), "d2 after d1 delete")

	found, err := s.Exists("d1")
	require.Nil(t, err, "exists")
	assert.False(t, found, "d1 deleted")
}

func TestConcurrentDocumentIsolation(t *testing.T) {
	stores := map[string]*document.Store{
		storage.BackendMemory:  document.New(storage.NewMemory(), crdt.NewFactory(99), nil),
		storage.BackendLevelDB: newLevelStore(t),
	}

	const edits = 50

	for backend, s := range stores {
		e1 := crdt.New(1)
		e2 := crdt.New(2)
		id1, err := s.CreateNewDoc("d1", e1)
		require.Nil(t, err, "%s: create d1", backend)
		id2, err := s.CreateNewDoc("d2", e2)
		require.Nil(t, err, "%s: create d2", backend)

		var wg sync.WaitGroup
		errs := make(chan error, 2*edits)
		edit := func(name string, m *crdt.Map) {
			defer wg.Done()
			for i := 0; i < edits; i++ {
				u, err := m.Set(keyOf(i%4), []byte{byte(i)})
				if nil == err {
					_, err = s.PushUpdate(name, u)
				}
				if nil != err {
					errs <- err
					return
				}
			}
		}
		wg.Add(2)
		go edit("d1", e1)
		go edit("d2", e2)
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.Nil(t, err, "%s: push", backend)
		}

		// every key in the d1 range carries the d1 id
		n := 0
		err = storage.NewFetchCursor(s.DB(), storage.Inclusive(keys.DocRange(id1))).Map(func(key []byte, _ []byte) error {
			n += 1
			assert.True(t, len(key) > 6, "%s: key length: %x", backend, key)
			assert.Equal(t, uint32(id1), binary.BigEndian.Uint32(key[2:6]), "%s: foreign key: %x", backend, key)
			return nil
		})
		require.Nil(t, err, "%s: scan d1", backend)
		assert.Equal(t, 2+edits, n, "%s: STATE, SV and updates of d1", backend)

		assert.Equal(t, encodedState(t, e1), loadedState(t, s, "d1"), "%s: d1 replay", backend)
		assert.Equal(t, encodedState(t, e2), loadedState(t, s, "d2"), "%s: d2 replay", backend)

		u2, err := s.GetUpdates("d2")
		require.Nil(t, err, "%s: d2 updates", backend)
		assert.Equal(t, edits, len(u2), "%s: d2 count", backend)
		assert.NotEqual(t, id1, id2, "%s: distinct ids", backend)
	}
}

func TestConcurrentPush(t *testing.T) {
	s := newLevelStore(t)
	_, err := s.CreateNewDoc("d1", crdt.New(1))
	require.Nil(t, err, "create")

	const writers = 16
	const perWriter = 10

	var wg sync.WaitGroup
	clocks := make(chan keys.Clock, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				c, err := s.PushUpdate("d1", []byte{byte(i)})
				if nil != err {
					t.Errorf("push error: %s", err)
					return
				}
				clocks <- c
			}
		}()
	}
	wg.Wait()
	close(clocks)

	seen := make(map[keys.Clock]bool)
	for c := range clocks {
		assert.False(t, seen[c], "clock %d allocated twice", c)
		seen[c] = true
	}
	require.Equal(t, writers*perWriter, len(seen), "allocated clocks")
	for c := keys.Clock(0); c < writers*perWriter; c++ {
		assert.True(t, seen[c], "clock %d missing", c)
	}
}

func TestDeleteUpdatesTo(t *testing.T) {
	s, _ := newMemoryStore(t)
	createWithEdits(t, s, "d1", 1, 6)

	require.Nil(t, s.DeleteUpdatesTo("d1", 2), "delete to 2")

	updates, err := s.GetUpdates("d1")
	require.Nil(t, err, "get updates")
	require.Equal(t, 3, len(updates), "remaining")
	assert.Equal(t, keys.Clock(3), updates[0].Clock, "first remaining clock")

	c, err := s.PushUpdate("d1", []byte{1})
	require.Nil(t, err, "push")
	assert.Equal(t, keys.Clock(6), c, "clock continues")
}

func TestDeleteDoc(t *testing.T) {
	s, _ := newMemoryStore(t)
	createWithEdits(t, s, "d1", 1, 3)

	require.Nil(t, s.DeleteDoc("d1"), "delete")
	assert.Equal(t, fault.ErrDocumentNotFound, s.DeleteDoc("d1"), "second delete")

	_, err := s.PushUpdate("d1", []byte{1})
	assert.Equal(t, fault.ErrDocumentNotFound, err, "push after delete")

	// a new document under the same name starts empty with a new id
	id, err := s.CreateNewDoc("d1", crdt.New(1))
	require.Nil(t, err, "recreate")
	assert.Equal(t, keys.DocID(2), id, "fresh id")

	updates, err := s.GetUpdates("d1")
	require.Nil(t, err, "get updates")
	assert.Equal(t, 0, len(updates), "no stale updates")

	c, err := s.PushUpdate("d1", []byte{1})
	require.Nil(t, err, "push")
	assert.Equal(t, keys.Clock(0), c, "clock restarts")
}

// holds the first armed read scope open until released
type gatedStore struct {
	storage.Store
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGatedStore(db storage.Store) *gatedStore {
	return &gatedStore{
		Store:   db,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedStore) View(f func(storage.Reader) error) error {
	return g.Store.View(func(r storage.Reader) error {
		if g.armed.CompareAndSwap(true, false) {
			close(g.entered)
			<-g.release
		}
		return f(r)
	})
}

func TestDeleteDocWithOldReader(t *testing.T) {
	g := newGatedStore(storage.NewMemory())
	s := document.New(g, crdt.NewFactory(99), nil)
	createWithEdits(t, s, "d1", 1, 2)

	// a reader takes its view before the delete and finishes after the
	// name has been re-created
	g.armed.Store(true)
	done := make(chan bool)
	go func() {
		found, err := s.Exists("d1")
		assert.Nil(t, err, "old reader")
		done <- found
	}()
	<-g.entered

	require.Nil(t, s.DeleteDoc("d1"), "delete")
	id, err := s.CreateNewDoc("d1", crdt.New(1))
	require.Nil(t, err, "recreate")
	require.Equal(t, keys.DocID(2), id, "new id")

	close(g.release)
	assert.True(t, <-done, "old view still sees d1")

	c, err := s.PushUpdate("d1", []byte{1})
	require.Nil(t, err, "push to re-created d1")
	assert.Equal(t, keys.Clock(0), c, "clock of re-created d1")

	updates, err := s.GetUpdates("d1")
	require.Nil(t, err, "updates")
	assert.Equal(t, 1, len(updates), "update count")

	require.Nil(t, s.DeleteDoc("d1"), "delete re-created d1")

	n := 0
	err = storage.NewFetchCursor(g, storage.Inclusive(keys.DocRange(id))).Map(func(_ []byte, _ []byte) error {
		n += 1
		return nil
	})
	require.Nil(t, err, "scan")
	assert.Equal(t, 0, n, "entries left under the new id")

	list, err := s.ListDocs()
	require.Nil(t, err, "list")
	assert.Equal(t, 0, len(list), "names after delete")
}

func TestListDocsAndInfo(t *testing.T) {
	s, _ := newMemoryStore(t)
	createWithEdits(t, s, "beta", 1, 2)
	createWithEdits(t, s, "alpha", 2, 3)

	list, err := s.ListDocs()
	require.Nil(t, err, "list")
	assert.Equal(t, []document.NameID{
		{Name: "alpha", ID: 2},
		{Name: "beta", ID: 1},
	}, list, "name order")

	info, err := s.Info("alpha")
	require.Nil(t, err, "info")
	assert.Equal(t, keys.DocID(2), info.ID, "id")
	assert.Equal(t, 3, info.Updates, "updates")
	assert.Equal(t, keys.Clock(2), info.LastClock, "last clock")
	assert.Equal(t, keys.Clock(0), info.BaseClock, "base clock")
	assert.True(t, info.UpdateBytes > 0, "update bytes")

	_, err = s.Info("gamma")
	assert.Equal(t, fault.ErrDocumentNotFound, err, "missing")
}
