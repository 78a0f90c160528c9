// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package document

import (
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/collabd/background"
	"github.com/bitmark-inc/collabd/fault"
)

// Compactor - runs FlushDoc in the background, at most one queued or
// running flush per document
type Compactor struct {
	store   *Store
	pool    *background.Pool
	queued  sync.Map
	log     *logger.L
	pending sync.WaitGroup
}

// NewCompactor - create and start a compactor
func NewCompactor(store *Store, workers int, queueSize int) (*Compactor, error) {
	c := &Compactor{
		store: store,
		pool:  background.NewPool(workers, queueSize),
		log:   logger.New("compactor"),
	}
	if err := c.pool.Start(); nil != err {
		return nil, err
	}
	return c, nil
}

// Schedule - queue a flush, false if one is already queued or the queue
// is full
func (c *Compactor) Schedule(name string) bool {
	if _, loaded := c.queued.LoadOrStore(name, struct{}{}); loaded {
		return false
	}

	c.pending.Add(1)
	err := c.pool.Submit(func(shutdown <-chan struct{}) {
		defer c.pending.Done()
		defer c.queued.Delete(name)

		select {
		case <-shutdown:
			return
		default:
		}

		err := c.store.FlushDoc(name)
		if nil != err && !fault.IsErrNotFound(err) {
			c.log.Warnf("flush: %q  error: %s", name, err)
		}
	})
	if nil != err {
		c.pending.Done()
		c.queued.Delete(name)
		c.log.Debugf("schedule: %q  error: %s", name, err)
		return false
	}
	return true
}

// Wait - block until every accepted flush has run, only valid before
// Stop as Stop drops queued jobs
func (c *Compactor) Wait() {
	c.pending.Wait()
}

// Stop - stop the workers, queued flushes are dropped
func (c *Compactor) Stop() {
	c.pool.Stop()
}
