// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package background - worker goroutines for flushes and snapshots
//
// a Group runs a fixed set of goroutines sharing one shutdown channel;
// a Pool feeds queued jobs to a Group of identical workers
package background

import (
	"sync"
)

// Process - a long running goroutine body
//
// Run must return soon after shutdown is closed
type Process interface {
	Run(shutdown <-chan struct{})
}

// Group - running processes
type Group struct {
	shutdown chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// Start - run every process in its own goroutine
func Start(processes ...Process) *Group {
	g := &Group{
		shutdown: make(chan struct{}),
	}
	for _, p := range processes {
		g.wg.Add(1)
		go func(p Process) {
			defer g.wg.Done()
			p.Run(g.shutdown)
		}(p)
	}
	return g
}

// Stop - signal shutdown and wait for every process to return, safe to
// call more than once and on nil
func (g *Group) Stop() {
	if nil == g {
		return
	}
	g.once.Do(func() {
		close(g.shutdown)
	})
	g.wg.Wait()
}
