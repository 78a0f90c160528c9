// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package diskplugin - persistence hooks of a runtime document
//
// one Plugin serves one open document: Init loads or creates it,
// every edit is appended to the log before ReceiveUpdate returns and
// flushes and snapshots are handed to background workers when enough
// edits have accumulated
package diskplugin

import (
	"sync/atomic"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/collabd/counter"
	"github.com/bitmark-inc/collabd/crdt"
	"github.com/bitmark-inc/collabd/fault"
	"github.com/bitmark-inc/collabd/keys"
)

//go:generate mockgen -source=diskplugin.go -destination=mocks/diskplugin_mock.go -package=mocks

// Documents - the document log operations used by the plugin
type Documents interface {
	Exists(name string) (bool, error)
	CreateNewDoc(name string, doc crdt.Doc) (keys.DocID, error)
	LoadDoc(name string, doc crdt.Doc) error
	PushUpdate(name string, update []byte) (keys.Clock, error)
	DeleteDoc(name string) error
}

// Scheduler - a background job queue keyed by document name
type Scheduler interface {
	Schedule(name string) bool
}

// Snapshots - snapshot scheduling and cleanup
type Snapshots interface {
	Scheduler
	Forget(name string) error
}

// Configuration - edit counts that trigger background work, zero
// disables the trigger
type Configuration struct {
	FlushThreshold    uint64
	SnapshotThreshold uint64
}

// Plugin - persistence for one document
type Plugin struct {
	docs      Documents
	compactor Scheduler
	snapshots Snapshots
	config    Configuration

	loaded        atomic.Bool
	sinceFlush    counter.Counter
	sinceSnapshot counter.Counter

	log *logger.L
}

// ensure Plugin satisfies the runtime hooks
var _ crdt.Plugin = (*Plugin)(nil)

// New - compactor and snapshots may be nil
func New(docs Documents, compactor Scheduler, snapshots Snapshots, config Configuration) *Plugin {
	return &Plugin{
		docs:      docs,
		compactor: compactor,
		snapshots: snapshots,
		config:    config,
		log:       logger.New("diskplugin"),
	}
}

// Loaded - whether DidInit has run
func (p *Plugin) Loaded() bool {
	return p.loaded.Load()
}

// Init - create the document from the runtime state or load the stored
// document into the runtime
func (p *Plugin) Init(objectID string, doc crdt.Doc) error {
	found, err := p.docs.Exists(objectID)
	if nil != err {
		p.log.Errorf("init: %q  exists error: %s", objectID, err)
		return err
	}

	if !found {
		_, err = p.docs.CreateNewDoc(objectID, doc)
		if nil == err {
			p.log.Infof("init: %q  created", objectID)
			return nil
		}
		if !fault.IsErrExists(err) {
			p.log.Errorf("init: %q  create error: %s", objectID, err)
			return err
		}
		// created concurrently, load it instead
	}

	if err := p.docs.LoadDoc(objectID, doc); nil != err {
		p.log.Errorf("init: %q  load error: %s", objectID, err)
		return err
	}
	p.log.Infof("init: %q  loaded", objectID)
	return nil
}

// DidInit - edits are accepted from now on
func (p *Plugin) DidInit(doc crdt.Doc, objectID string) {
	p.loaded.Store(true)
	p.log.Debugf("did init: %q", objectID)
}

// ReceiveUpdate - append an edit and trigger background work
func (p *Plugin) ReceiveUpdate(objectID string, update []byte) error {
	if !p.loaded.Load() {
		p.log.Warnf("update: %q  rejected before load", objectID)
		return fault.ErrNotLoaded
	}

	clock, err := p.docs.PushUpdate(objectID, update)
	if nil != err {
		p.log.Errorf("update: %q  push error: %s", objectID, err)
		return err
	}
	p.sinceFlush.Increment()
	p.sinceSnapshot.Increment()

	if nil != p.snapshots && p.sinceSnapshot.Reached(p.config.SnapshotThreshold) {
		if !p.snapshots.Schedule(objectID) {
			p.log.Debugf("update: %q  clock: %d  snapshot not scheduled", objectID, clock)
		}
	}
	if nil != p.compactor && p.sinceFlush.Reached(p.config.FlushThreshold) {
		if !p.compactor.Schedule(objectID) {
			p.log.Debugf("update: %q  clock: %d  flush not scheduled", objectID, clock)
		}
	}
	return nil
}

// Reset - delete the document with its snapshots
func (p *Plugin) Reset(objectID string) error {
	p.loaded.Store(false)
	p.sinceFlush.Reset()
	p.sinceSnapshot.Reset()

	err := p.docs.DeleteDoc(objectID)
	if nil != err && !fault.IsErrNotFound(err) {
		p.log.Errorf("reset: %q  delete error: %s", objectID, err)
		return err
	}

	if nil != p.snapshots {
		if err := p.snapshots.Forget(objectID); nil != err {
			p.log.Errorf("reset: %q  snapshot error: %s", objectID, err)
			return err
		}
	}
	p.log.Infof("reset: %q", objectID)
	return nil
}
