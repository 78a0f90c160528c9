// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package document - per document append-only update log
//
// A document is a baseline STATE plus a run of UPDATE entries.  Every
// update gets the next clock of its document, allocated inside the
// write transaction that stores it.  The logical document is the
// baseline with every update applied in clock order.
//
// The STATE value starts with a 4 byte base clock: the clock the next
// update gets when the log is empty.  Flushing folds the updates into
// the baseline and moves the base clock past them, so clocks are never
// reused.
//
// Every live document has a STATE entry, a missing STATE means the
// document does not exist.
package document
