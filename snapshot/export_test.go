// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package snapshot

import (
	"github.com/bitmark-inc/collabd/storage"
)

// Put - store a record outside of a snapshot job
func (s *Store) Put(name string, record *Record) error {
	return s.db.Update(func(tx storage.Transaction) error {
		return s.put(tx, name, record)
	})
}
