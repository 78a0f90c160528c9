// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package idgen - time ordered 63 bit identifiers
//
// An identifier packs, from the most significant end:
//
//	scope | milliseconds since epoch | node | sequence
//
// the widths come from a Layout.  Identifiers from one generator are
// strictly increasing; identifiers from generators with different node
// numbers never collide.
//
// There are no package level generators, each component that needs
// identifiers is handed its own *Generator at startup.
package idgen
