// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"time"

	"github.com/bitmark-inc/collabd/fault"
)

// pause between attempts, doubled each time
const retryDelay = 5 * time.Millisecond

// UpdateRetry - Update, repeated while the failure is a busy class error
//
// f must not have side effects outside the transaction since it can run
// more than once
func UpdateRetry(store Store, attempts int, f func(Transaction) error) error {
	if attempts < 1 {
		attempts = 1
	}

	delay := retryDelay
	var err error
	for i := 0; i < attempts; i += 1 {
		err = store.Update(f)
		if !fault.IsRetryable(err) || i+1 == attempts {
			return err
		}
		time.Sleep(delay)
		delay *= 2
	}
	return err
}
