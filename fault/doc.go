// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package fault - error instances
//
// Provides a single instance of errors to allow easy comparison
// without having to resort to partial string matches.
//
// Each error belongs to a class, the class decides how a caller
// reacts:
//
//	CorruptionError - the store reported damaged data, not repaired here
//	BusyError       - contention or I/O failure, the caller may retry
//	NotFoundError   - record is absent
//	InvariantError  - duplicate key, clock collision: a programming error
//	EncodingError   - malformed bytes, the document cannot be read
//	FatalError      - continuing would risk duplicate identifiers
package fault
