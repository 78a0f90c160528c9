// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package background_test

import (
	"fmt"

	"github.com/bitmark-inc/collabd/background"
)

func ExamplePool() {

	pool := background.NewPool(2, 10)
	if err := pool.Start(); nil != err {
		fmt.Printf("start error: %s\n", err)
		return
	}

	results := make(chan int, 3)
	for i := 1; i <= 3; i += 1 {
		n := i
		_ = pool.Submit(func(shutdown <-chan struct{}) {
			results <- n * n
		})
	}

	total := 0
	for i := 0; i < 3; i += 1 {
		total += <-results
	}
	pool.Stop()

	fmt.Printf("total: %d\n", total)
	// Output: total: 14
}
