// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package keys - on-disk key layout of the document store
//
// All engine keys start with the SPACE byte followed by a space tag so
// that the spaces never interleave under byte-lexicographic order.
//
// Notes:
// 1. ++        = concatenation of byte data
// 2. name      = UTF-8 document name (never contains 0x00 or 0xFF)
// 3. doc id    = big endian uint32 (4 bytes)
// 4. clock     = big endian uint32 (4 bytes)
// 5. 0x00      = TERMINATOR, 0xFF = HIGH WATERMARK
//
// Name index:
//
//	01 00 ++ name ++ 00             - document name -> doc id
//	                                  data: doc id
//	01 00 FF                        - doc id counter (current maximum)
//	                                  data: doc id
//
// Documents:
//
//	01 01 ++ doc id ++ 00           - STATE
//	                                  data: base clock ++ encoded state
//	01 01 ++ doc id ++ 01           - STATE VECTOR
//	                                  data: encoded state vector
//	01 01 ++ doc id ++ 02 ++ clock ++ 00
//	                                - UPDATE, one per append
//	                                  data: encoded update
//	01 01 ++ doc id ++ FF           - end of document range (never stored)
//
// Snapshots:
//
//	01 02 ++ name ++ 00             - document name -> snapshot id
//	01 02 FF                        - snapshot id counter
//	01 03 ++ snapshot id ++ 00 ++ clock ++ 00
//	                                - snapshot record
//	01 03 ++ snapshot id ++ FF      - end of snapshot range (never stored)
//
// Keys that do not start with SPACE (e.g. the database version record)
// belong to the storage layer.
package keys
