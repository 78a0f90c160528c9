// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package snapshot

import (
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/collabd/background"
	"github.com/bitmark-inc/collabd/document"
	"github.com/bitmark-inc/collabd/fault"
	"github.com/bitmark-inc/collabd/keys"
	"github.com/bitmark-inc/collabd/metrics"
	"github.com/bitmark-inc/collabd/storage"
)

// defaults
const (
	DefaultWorkers   = 2
	DefaultQueueSize = 64

	// a checkpoint racing with a flush replays again
	replayAttempts = 3
)

// Configuration - snapshot worker settings
type Configuration struct {
	Threshold     uint64  `gluamapper:"threshold" json:"threshold"`
	Workers       int     `gluamapper:"workers" json:"workers"`
	QueueSize     int     `gluamapper:"queue_size" json:"queue_size"`
	RatePerSecond float64 `gluamapper:"rate_per_second" json:"rate_per_second"`
	DeleteUpdates bool    `gluamapper:"delete_updates" json:"delete_updates"`
	Retain        int     `gluamapper:"retain" json:"retain"`
}

// Manager - creates snapshots on background workers
type Manager struct {
	docs    *document.Store
	store   *Store
	config  Configuration
	states  cells
	pool    *background.Pool
	limiter *rate.Limiter
	pending sync.WaitGroup
	now     func() time.Time
	log     *logger.L
	metrics *metrics.Metrics
}

// NewManager - create a manager and start its workers
//
// m may be nil
func NewManager(docs *document.Store, store *Store, config Configuration, m *metrics.Metrics) (*Manager, error) {
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}

	manager := &Manager{
		docs:    docs,
		store:   store,
		config:  config,
		pool:    background.NewPool(config.Workers, config.QueueSize),
		now:     time.Now,
		log:     logger.New("snapshot"),
		metrics: m,
	}
	if config.RatePerSecond > 0 {
		burst := int(config.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		manager.limiter = rate.NewLimiter(rate.Limit(config.RatePerSecond), burst)
	}

	if err := manager.pool.Start(); nil != err {
		return nil, err
	}
	return manager, nil
}

// Store - the snapshot records
func (m *Manager) Store() *Store {
	return m.store
}

// Threshold - updates between snapshots, zero disables them
func (m *Manager) Threshold() uint64 {
	return m.config.Threshold
}

// State - current state of a document
func (m *Manager) State(name string) State {
	return m.states.get(name)
}

// States - every document that has been seen
func (m *Manager) States() map[string]State {
	return m.states.all()
}

// ShouldCreateSnapshot - try to move a document to Processing, true if
// this caller won and must run CreateSnapshot
func (m *Manager) ShouldCreateSnapshot(name string) bool {
	_, ok := m.states.acquire(name)
	return ok
}

// Schedule - queue a snapshot without waiting for it
//
// false if a snapshot of the document is already queued or running, or
// the queue is full
func (m *Manager) Schedule(name string) bool {
	previous, ok := m.states.acquire(name)
	if !ok {
		return false
	}

	m.pending.Add(1)
	err := m.pool.Submit(func(shutdown <-chan struct{}) {
		defer m.pending.Done()

		if !m.throttle(shutdown) {
			m.states.set(name, previous)
			return
		}
		err := m.CreateSnapshot(name)
		if nil != err && !benign(err) {
			m.log.Warnf("snapshot: %q  error: %s", name, err)
		}
	})
	if nil != err {
		m.pending.Done()
		m.states.set(name, previous)
		m.log.Debugf("schedule: %q  error: %s", name, err)
		return false
	}
	return true
}

// Run - create a snapshot now in the calling goroutine
func (m *Manager) Run(name string) (keys.Clock, error) {
	if !m.ShouldCreateSnapshot(name) {
		return 0, fault.ErrSnapshotInProgress
	}
	err := m.CreateSnapshot(name)
	if nil != err {
		return 0, err
	}
	record, err := m.store.Latest(name)
	if nil != err {
		return 0, err
	}
	return record.Clock, nil
}

// CreateSnapshot - replay the document and store its state under the
// clock of the last update
//
// the caller must have won ShouldCreateSnapshot; the document leaves
// Processing whatever happens
func (m *Manager) CreateSnapshot(name string) (err error) {
	start := m.now()
	m.metrics.SnapshotStarted()

	result := metrics.ResultFail
	defer func() {
		switch {
		case nil == err:
			result = metrics.ResultOK
			m.states.set(name, Idle)
		case benign(err):
			result = metrics.ResultSkipped
			m.states.set(name, Idle)
		default:
			m.states.set(name, Fail)
			m.metrics.Error("snapshot")
		}
		m.metrics.SnapshotFinished(result, m.now().Sub(start))
	}()

	return m.create(name)
}

func (m *Manager) create(name string) error {
	for attempt := 1; ; attempt += 1 {
		replayed, err := m.docs.Replay(name)
		if nil != err {
			return err
		}
		clock, ok := replayed.Clock()
		if !ok {
			return fault.ErrEmptyDocument
		}

		exists, err := m.store.Has(name, clock)
		if nil != err {
			return err
		}
		if exists {
			return fault.ErrSnapshotExists
		}

		state, err := replayed.Doc.EncodeState()
		if nil != err {
			return err
		}
		record := newRecord(clock, state, m.now())

		if m.config.DeleteUpdates {
			err = m.docs.Checkpoint(name, replayed, func(tx storage.Transaction) error {
				return m.store.put(tx, name, record)
			})
			if fault.IsErrBusy(err) && attempt < replayAttempts {
				m.log.Debugf("snapshot: %q  attempt: %d  error: %s", name, attempt, err)
				continue
			}
		} else {
			err = m.docs.Guard(name, replayed.ID, func(tx storage.Transaction) error {
				return m.store.put(tx, name, record)
			})
		}
		if nil != err {
			return err
		}

		m.log.Infof("snapshot: %q  clock: %d  size: %d", name, clock, len(state))

		if m.config.Retain > 0 {
			n, err := m.store.Prune(name, m.config.Retain)
			if nil != err {
				m.log.Warnf("prune: %q  error: %s", name, err)
			} else if n > 0 {
				m.log.Debugf("prune: %q  deleted: %d", name, n)
			}
		}
		return nil
	}
}

// Restore - make a stored snapshot the current state of a document
//
// the log after the snapshot is discarded and clocks continue from the
// discarded log
func (m *Manager) Restore(name string, clock keys.Clock) error {
	if !m.ShouldCreateSnapshot(name) {
		return fault.ErrSnapshotInProgress
	}
	defer m.states.set(name, Idle)

	record, err := m.store.Get(name, clock)
	if nil != err {
		return err
	}

	doc := m.docs.NewDoc()
	if err := doc.ApplyUpdate(record.State); nil != err {
		return err
	}
	next, err := m.docs.Replace(name, doc)
	if nil != err {
		return err
	}

	m.log.Infof("restore: %q  snapshot clock: %d  next clock: %d", name, clock, next)
	return nil
}

// Forget - drop the state and records of a deleted document
//
// a running job keeps its state and finds the document gone when it
// writes its record
func (m *Manager) Forget(name string) error {
	if !m.states.forget(name) {
		m.log.Debugf("forget: %q  snapshot in progress", name)
	}
	return m.store.DeleteAll(name)
}

// Wait - block until every scheduled snapshot has finished, only valid
// before Stop
func (m *Manager) Wait() {
	m.pending.Wait()
}

// Stop - stop the workers, queued snapshots are dropped
func (m *Manager) Stop() {
	m.pool.Stop()
}

// wait for the rate limiter, false on shutdown
func (m *Manager) throttle(shutdown <-chan struct{}) bool {
	if nil == m.limiter {
		return true
	}
	r := m.limiter.Reserve()
	if !r.OK() {
		return true
	}
	delay := r.Delay()
	if 0 == delay {
		return true
	}

	select {
	case <-time.After(delay):
		return true
	case <-shutdown:
		r.Cancel()
		return false
	}
}

// nothing to snapshot: the document is empty, gone, or already has a
// snapshot at its last clock
func benign(err error) bool {
	return fault.IsErrNotFound(err) || fault.IsErrExists(err)
}
