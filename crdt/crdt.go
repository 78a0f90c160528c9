// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crdt

// Doc - a runtime document as seen by the engine
type Doc interface {
	// EncodeState - the full state, applying it to an empty document
	// gives an equivalent document
	EncodeState() ([]byte, error)

	// EncodeStateVector - compact summary of the integrated edits
	EncodeStateVector() ([]byte, error)

	// EncodeDiff - the edits a replica with the given state vector lacks
	EncodeDiff(stateVector []byte) ([]byte, error)

	// ApplyUpdate - merge an update, applying it twice is a no-op
	ApplyUpdate(update []byte) error
}

// Factory - create an empty runtime document
type Factory func() Doc

// Plugin - persistence hooks driven by the runtime
type Plugin interface {
	// Init - called when a document is opened, before it is used
	Init(objectID string, doc Doc) error

	// DidInit - called after every plugin finished Init
	DidInit(doc Doc, objectID string)

	// ReceiveUpdate - called with the encoding of every edit
	ReceiveUpdate(objectID string, update []byte) error

	// Reset - called when the document is discarded
	Reset(objectID string) error
}
