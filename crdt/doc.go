// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package crdt - the runtime boundary of the persistence engine
//
// The engine never interprets CRDT payloads.  It needs a runtime
// document (Doc) that can apply opaque updates and encode its state,
// and a runtime that calls persistence hooks (Plugin) when a document
// is opened, edited or reset.
//
// Map is a small reference runtime: a last-writer-wins map where every
// edit is an item identified by (client, clock).  Clocks of one client
// are contiguous so a state vector (client -> next clock) describes
// exactly which items a replica holds.  Items that arrive ahead of
// their predecessors are held back until the gap is filled.  Encodings
// are canonical msgpack, so equal documents encode to equal bytes.
package crdt
