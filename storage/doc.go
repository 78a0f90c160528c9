// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage - ordered key/value store with scoped transactions
//
// All engine data lives in one ordered byte key space (see the keys
// package for the layout).  A Store gives:
//
//	View   - consistent read-only scope
//	Update - read-write scope, all writes commit atomically when the
//	         function returns nil and are discarded otherwise (also on
//	         panic)
//
// Write scopes are serialized by every backend so that a read made
// inside Update (e.g. the greatest existing key) cannot be invalidated
// by a concurrent writer before the commit.
//
// Backends:
//
//	leveldb - github.com/syndtr/goleveldb (default)
//	badger  - github.com/dgraph-io/badger/v4
//	bolt    - go.etcd.io/bbolt
//	memory  - github.com/google/btree, nothing is persisted
//
// The database version is held under a key outside the engine key
// space:
//
//	00 ++ "VERSION"            - data: version as big endian uint32
package storage
