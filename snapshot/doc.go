// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package snapshot - point-in-time document states
//
// a snapshot is the encoded state of a document replayed up to the
// clock of its last update, stored in its own key space:
//
//	[01 02] name [00]         -> snapshot series id (4 bytes)
//	[01 02 FF]                -> highest allocated series id
//	[01 03] id [00] clock [00] -> msgpack record
//
// each document has one state cell:
//
//	Idle -> Processing -> Idle
//	                   -> Fail -> Processing ...
//
// a caller wins the right to run a snapshot by moving the cell from Idle
// or Fail to Processing; the job always leaves it in Idle or Fail.
package snapshot
