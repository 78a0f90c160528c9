// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crdt

import (
	"sort"
	"sync"
)

// Map - last-writer-wins map of byte values
type Map struct {
	sync.Mutex
	client  uint64
	lamport uint64
	vector  StateVector

	// integrated items of each client, index == clock
	items map[uint64][]Item

	// items waiting for an earlier clock of the same client
	pending map[uint64]map[uint64]Item

	// winning item of each key
	current map[string]Item
}

// New - an empty map editing as client
func New(client uint64) *Map {
	return &Map{
		client:  client,
		vector:  make(StateVector),
		items:   make(map[uint64][]Item),
		pending: make(map[uint64]map[uint64]Item),
		current: make(map[string]Item),
	}
}

// NewFactory - factory of empty maps editing as client
func NewFactory(client uint64) Factory {
	return func() Doc {
		return New(client)
	}
}

// Client - the editing client id
func (m *Map) Client() uint64 {
	return m.client
}

// Get - value of a key, false if absent or deleted
func (m *Map) Get(key string) ([]byte, bool) {
	m.Lock()
	defer m.Unlock()

	item, ok := m.current[key]
	if !ok || item.Deleted {
		return nil, false
	}
	return item.Value, true
}

// Keys - sorted live keys
func (m *Map) Keys() []string {
	m.Lock()
	defer m.Unlock()

	keys := make([]string, 0, len(m.current))
	for k, item := range m.current {
		if !item.Deleted {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Len - number of live keys
func (m *Map) Len() int {
	return len(m.Keys())
}

// Pending - number of items waiting for missing predecessors
func (m *Map) Pending() int {
	m.Lock()
	defer m.Unlock()

	n := 0
	for _, p := range m.pending {
		n += len(p)
	}
	return n
}

// Set - local edit, returns the update to broadcast and persist
func (m *Map) Set(key string, value []byte) ([]byte, error) {
	v := make([]byte, len(value))
	copy(v, value)
	return m.local(key, v, false)
}

// Delete - local removal, returns the update
func (m *Map) Delete(key string) ([]byte, error) {
	return m.local(key, nil, true)
}

func (m *Map) local(key string, value []byte, deleted bool) ([]byte, error) {
	m.Lock()
	defer m.Unlock()

	item := Item{
		Client:  m.client,
		Clock:   m.vector[m.client],
		Lamport: m.lamport + 1,
		Key:     key,
		Value:   value,
		Deleted: deleted,
	}
	m.integrate(item)
	return encodeItems([]Item{item})
}

// ApplyUpdate - merge a remote update or a state
func (m *Map) ApplyUpdate(update []byte) error {
	items, err := DecodeUpdate(update)
	if nil != err {
		return err
	}

	m.Lock()
	defer m.Unlock()

	for _, item := range items {
		next := m.vector[item.Client]
		switch {
		case item.Clock < next:
			// already integrated
		case item.Clock == next:
			m.integrate(item)
		default:
			p, ok := m.pending[item.Client]
			if !ok {
				p = make(map[uint64]Item)
				m.pending[item.Client] = p
			}
			p[item.Clock] = item
		}
	}
	m.drainPending()
	return nil
}

// EncodeState - every item, integrated or pending
func (m *Map) EncodeState() ([]byte, error) {
	m.Lock()
	defer m.Unlock()

	return encodeItems(m.selectItems(StateVector{}))
}

// EncodeStateVector - next clock of every known client
func (m *Map) EncodeStateVector() ([]byte, error) {
	m.Lock()
	defer m.Unlock()

	return m.vector.Encode()
}

// EncodeDiff - the items not covered by a remote state vector
func (m *Map) EncodeDiff(stateVector []byte) ([]byte, error) {
	remote, err := DecodeStateVector(stateVector)
	if nil != err {
		return nil, err
	}

	m.Lock()
	defer m.Unlock()

	return encodeItems(m.selectItems(remote))
}

// items at or after the remote clock of their client
func (m *Map) selectItems(remote StateVector) []Item {
	selected := make([]Item, 0, 16)
	for client, items := range m.items {
		from := remote[client]
		if from < uint64(len(items)) {
			selected = append(selected, items[from:]...)
		}
	}
	for client, p := range m.pending {
		for clock, item := range p {
			if clock >= remote[client] {
				selected = append(selected, item)
			}
		}
	}
	return selected
}

// item.Clock must be the next clock of its client
//
// a losing item keeps its identity but drops the value, it can never
// become visible again
func (m *Map) integrate(item Item) {
	m.vector[item.Client] = item.Clock + 1
	if item.Lamport > m.lamport {
		m.lamport = item.Lamport
	}

	current, found := m.current[item.Key]
	if !found || beats(item, current) {
		if found {
			m.items[current.Client][current.Clock].Value = nil
		}
		m.current[item.Key] = item
	} else {
		item.Value = nil
	}
	m.items[item.Client] = append(m.items[item.Client], item)
}

func (m *Map) drainPending() {
	for client, p := range m.pending {
		for {
			next := m.vector[client]
			item, ok := p[next]
			if !ok {
				break
			}
			delete(p, next)
			m.integrate(item)
		}
		for clock := range p {
			if clock < m.vector[client] {
				delete(p, clock)
			}
		}
		if 0 == len(p) {
			delete(m.pending, client)
		}
	}
}
