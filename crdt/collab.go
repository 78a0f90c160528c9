// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crdt

import (
	"github.com/bitmark-inc/collabd/fault"
)

// Collab - an open document that drives the plugin hooks
type Collab struct {
	objectID string
	doc      *Map
	plugins  []Plugin
}

// Open - initialise every plugin for a document
//
// Init runs for all plugins first (e.g. loading persisted state into
// doc), then DidInit
func Open(objectID string, doc *Map, plugins ...Plugin) (*Collab, error) {
	if nil == doc {
		return nil, fault.ErrUnexpectedNilDocument
	}

	for _, p := range plugins {
		if err := p.Init(objectID, doc); nil != err {
			return nil, err
		}
	}
	for _, p := range plugins {
		p.DidInit(doc, objectID)
	}

	return &Collab{
		objectID: objectID,
		doc:      doc,
		plugins:  plugins,
	}, nil
}

// ObjectID - document name
func (c *Collab) ObjectID() string {
	return c.objectID
}

// Doc - the runtime document
func (c *Collab) Doc() *Map {
	return c.doc
}

// Set - edit locally and hand the update to the plugins
func (c *Collab) Set(key string, value []byte) error {
	update, err := c.doc.Set(key, value)
	if nil != err {
		return err
	}
	return c.publish(update)
}

// Delete - remove a key and hand the update to the plugins
func (c *Collab) Delete(key string) error {
	update, err := c.doc.Delete(key)
	if nil != err {
		return err
	}
	return c.publish(update)
}

// Apply - merge a remote update and hand it to the plugins
func (c *Collab) Apply(update []byte) error {
	if err := c.doc.ApplyUpdate(update); nil != err {
		return err
	}
	return c.publish(update)
}

// Reset - tell every plugin to discard the document
func (c *Collab) Reset() error {
	for _, p := range c.plugins {
		if err := p.Reset(c.objectID); nil != err {
			return err
		}
	}
	return nil
}

// every plugin sees the update, the first error is returned
func (c *Collab) publish(update []byte) error {
	var first error
	for _, p := range c.plugins {
		if err := p.ReceiveUpdate(c.objectID, update); nil != err && nil == first {
			first = err
		}
	}
	return first
}
