// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package counter - lock free tallies shared between goroutines
package counter

import (
	"sync/atomic"
)

// Counter - type to denote a counter that can be synchronously incremented
// just a 64 bit unsigned integer
type Counter uint64

// Increment - add 1 to a counter, returns new value
func (ic *Counter) Increment() uint64 {
	return atomic.AddUint64((*uint64)(ic), 1)
}

// Uint64 - returns current value
func (ic *Counter) Uint64() uint64 {
	return atomic.LoadUint64((*uint64)(ic))
}

// IsZero - check if zero
func (ic *Counter) IsZero() bool {
	return 0 == ic.Uint64()
}

// Reset - set to zero, returns the value before the reset
func (ic *Counter) Reset() uint64 {
	return atomic.SwapUint64((*uint64)(ic), 0)
}

// Reached - true once for each threshold's worth of counts, the counts
// that were reported are taken off the counter
func (ic *Counter) Reached(threshold uint64) bool {
	if 0 == threshold {
		return false
	}
	for {
		current := ic.Uint64()
		if current < threshold {
			return false
		}
		if atomic.CompareAndSwapUint64((*uint64)(ic), current, current-threshold) {
			return true
		}
	}
}
