// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"bytes"
	"sync"

	"github.com/google/btree"

	"github.com/bitmark-inc/collabd/fault"
)

// branching factor of the in-memory tree
const memoryDegree = 32

type memoryItem struct {
	key   []byte
	value []byte
}

func (a *memoryItem) Less(b btree.Item) bool {
	return bytes.Compare(a.key, b.(*memoryItem).key) < 0
}

// Memory store
//
// the committed tree is never modified: a write scope works on a
// copy-on-write clone that replaces the committed tree on success
type memoryStore struct {
	writer sync.Mutex

	sync.RWMutex
	tree   *btree.BTree
	closed bool
}

// NewMemory - an empty non-persistent store
func NewMemory() Store {
	return &memoryStore{
		tree: btree.New(memoryDegree),
	}
}

func (s *memoryStore) Backend() string {
	return BackendMemory
}

func (s *memoryStore) committed() (*btree.BTree, error) {
	s.RLock()
	defer s.RUnlock()
	if s.closed {
		return nil, fault.ErrStorageClosed
	}
	return s.tree, nil
}

func (s *memoryStore) View(f func(Reader) error) error {
	tree, err := s.committed()
	if nil != err {
		return err
	}
	return f(&memoryReader{tree: tree})
}

func (s *memoryStore) Update(f func(Transaction) error) error {
	s.writer.Lock()
	defer s.writer.Unlock()

	tree, err := s.committed()
	if nil != err {
		return err
	}

	work := tree.Clone()
	if err := f(&memoryTransaction{memoryReader: memoryReader{tree: work}}); nil != err {
		return err
	}

	s.Lock()
	defer s.Unlock()
	if s.closed {
		return fault.ErrStorageClosed
	}
	s.tree = work
	return nil
}

func (s *memoryStore) Close() error {
	s.writer.Lock()
	defer s.writer.Unlock()
	s.Lock()
	defer s.Unlock()

	s.closed = true
	s.tree = nil
	return nil
}

type memoryReader struct {
	tree *btree.BTree
}

func (r *memoryReader) Get(key []byte) ([]byte, error) {
	item := r.tree.Get(&memoryItem{key: key})
	if nil == item {
		return nil, nil
	}
	return copyBytes(item.(*memoryItem).value), nil
}

func (r *memoryReader) Has(key []byte) (bool, error) {
	return r.tree.Has(&memoryItem{key: key}), nil
}

// the tree is walked with callbacks, so the range is gathered up front
func (r *memoryReader) Iterator(rg Range) Iterator {
	items := make([]*memoryItem, 0, 16)
	collect := func(i btree.Item) bool {
		item := i.(*memoryItem)
		if rg.pastEnd(item.key) {
			return false
		}
		items = append(items, item)
		return true
	}

	if !rg.empty() {
		if seek := rg.seekKey(); nil == seek {
			r.tree.Ascend(collect)
		} else {
			r.tree.AscendGreaterOrEqual(&memoryItem{key: seek}, collect)
		}
	}
	return newRangeIterator(&memoryIterator{items: items, index: -1}, rg)
}

func (r *memoryReader) NextBackEntry(key []byte) (*Element, error) {
	var found *memoryItem
	r.tree.DescendLessOrEqual(&memoryItem{key: key}, func(i btree.Item) bool {
		found = i.(*memoryItem)
		return false
	})
	if nil == found {
		return nil, nil
	}
	return &Element{
		Key:   copyBytes(found.key),
		Value: copyBytes(found.value),
	}, nil
}

type memoryTransaction struct {
	memoryReader
}

func (t *memoryTransaction) Put(key []byte, value []byte) error {
	t.tree.ReplaceOrInsert(&memoryItem{
		key:   copyBytes(key),
		value: copyBytes(value),
	})
	return nil
}

func (t *memoryTransaction) Delete(key []byte) error {
	t.tree.Delete(&memoryItem{key: key})
	return nil
}

func (t *memoryTransaction) DeleteRange(from []byte, to []byte) error {
	keys, err := rangeKeys(t, from, to)
	if nil != err {
		return err
	}
	for _, k := range keys {
		t.tree.Delete(&memoryItem{key: k})
	}
	return nil
}

type memoryIterator struct {
	items []*memoryItem
	index int
}

func (it *memoryIterator) Next() bool {
	if it.index+1 >= len(it.items) {
		it.index = len(it.items)
		return false
	}
	it.index += 1
	return true
}

func (it *memoryIterator) Key() []byte   { return it.items[it.index].key }
func (it *memoryIterator) Value() []byte { return it.items[it.index].value }
func (it *memoryIterator) Release()      { it.items = nil }
func (it *memoryIterator) Error() error  { return nil }
