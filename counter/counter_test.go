// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package counter_test

import (
	"sync"
	"testing"

	"github.com/bitmark-inc/collabd/counter"
)

// test incrementing and resetting a counter
func TestCounter(t *testing.T) {

	var c1 counter.Counter

	if !c1.IsZero() {
		t.Errorf("counter is not zero at start: %d", c1.Uint64())
	}

	c1.Increment()
	c1.Increment()
	c1.Increment()
	c1.Increment()
	c1.Increment()

	if 5 != c1.Uint64() {
		t.Errorf("counter is not 5 after incrementing: %d", c1.Uint64())
	}

	if 5 != c1.Reset() {
		t.Errorf("reset did not return previous value")
	}

	if !c1.IsZero() {
		t.Errorf("counter did not return to zero: %d", c1.Uint64())
	}

	if 1 != c1.Increment() {
		t.Errorf("increment after reset is not 1: %d", c1.Uint64())
	}
}

func TestReached(t *testing.T) {
	var c counter.Counter

	if c.Reached(0) {
		t.Errorf("zero threshold reached")
	}

	hits := 0
	for i := 0; i < 10; i += 1 {
		c.Increment()
		if c.Reached(3) {
			hits += 1
		}
	}
	if 3 != hits {
		t.Errorf("threshold hits: %d  expected: 3", hits)
	}
	if 1 != c.Uint64() {
		t.Errorf("remainder: %d  expected: 1", c.Uint64())
	}
}

// concurrent callers share out the threshold crossings exactly
func TestReachedConcurrent(t *testing.T) {
	const goroutines = 50
	const each = 100
	const threshold = 7

	var c counter.Counter
	var hits counter.Counter

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i += 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j += 1 {
				c.Increment()
				if c.Reached(threshold) {
					hits.Increment()
				}
			}
		}()
	}
	wg.Wait()

	total := hits.Uint64()*threshold + c.Uint64()
	if goroutines*each != total {
		t.Errorf("lost increments: %d", total)
	}
	if 0 == hits.Uint64() {
		t.Errorf("threshold never reached")
	}
}
