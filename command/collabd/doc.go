// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// collabd - CRDT document store daemon and maintenance tool
//
// with no command, or with "start", the program runs until SIGINT or
// SIGTERM: documents with enough pending updates are flushed and
// snapshotted in the background and metrics are served over HTTP.
//
// other commands open the database, perform one operation and exit:
//
//	collabd --config-file=collabd.conf list
//	collabd --config-file=collabd.conf set notes title "hello"
//	collabd --config-file=collabd.conf snapshot notes
//
// see "collabd help" for the full list
package main
