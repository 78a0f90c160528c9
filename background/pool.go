// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package background

import (
	"sync"

	"github.com/bitmark-inc/collabd/fault"
)

// Job - a unit of work, shutdown is closed when the pool stops
type Job func(shutdown <-chan struct{})

// Pool - fixed number of workers sharing a bounded queue
type Pool struct {
	sync.RWMutex
	jobs    chan Job
	workers int
	running *Group
	stopped bool
}

// one worker
type worker struct {
	jobs <-chan Job
}

// NewPool - create a pool, no worker runs before Start
func NewPool(workers int, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Pool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
	}
}

// Start - start the workers
func (p *Pool) Start() error {
	p.Lock()
	defer p.Unlock()

	if p.stopped {
		return fault.ErrPoolStopped
	}
	if nil != p.running {
		return fault.ErrAlreadyInitialised
	}

	processes := make([]Process, p.workers)
	for i := range processes {
		processes[i] = &worker{jobs: p.jobs}
	}
	p.running = Start(processes...)
	return nil
}

// Submit - queue a job without waiting
//
// fault.ErrQueueFull if no slot is free
func (p *Pool) Submit(job Job) error {
	p.RLock()
	defer p.RUnlock()

	if p.stopped {
		return fault.ErrPoolStopped
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return fault.ErrQueueFull
	}
}

// Pending - number of queued jobs not yet picked up
func (p *Pool) Pending() int {
	return len(p.jobs)
}

// Stop - stop the workers and wait for running jobs, queued jobs are
// discarded
func (p *Pool) Stop() {
	p.Lock()
	if p.stopped {
		p.Unlock()
		return
	}
	p.stopped = true
	running := p.running
	p.Unlock()

	running.Stop()
}

func (w *worker) Run(shutdown <-chan struct{}) {
loop:
	for {
		// prefer shutdown over queued work
		select {
		case <-shutdown:
			break loop
		default:
		}

		select {
		case <-shutdown:
			break loop
		case job := <-w.jobs:
			job(shutdown)
		}
	}
}
