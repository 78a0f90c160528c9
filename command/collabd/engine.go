// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/collabd/configuration"
	"github.com/bitmark-inc/collabd/crdt"
	"github.com/bitmark-inc/collabd/diskplugin"
	"github.com/bitmark-inc/collabd/document"
	"github.com/bitmark-inc/collabd/fault"
	"github.com/bitmark-inc/collabd/idgen"
	"github.com/bitmark-inc/collabd/metrics"
	"github.com/bitmark-inc/collabd/snapshot"
	"github.com/bitmark-inc/collabd/storage"
)

// engine - every component wired to one database
type engine struct {
	config    *configuration.Configuration
	db        storage.Store
	docs      *document.Store
	compactor *document.Compactor
	snapshots *snapshot.Manager
	metrics   *metrics.Metrics
	sessions  *idgen.Generator
	log       *logger.L
}

func newEngine(config *configuration.Configuration, readOnly bool, log *logger.L) (*engine, error) {
	sessions, err := idgen.New(idgen.SessionLayout, config.NodeID)
	if nil != err {
		return nil, err
	}

	// runtime documents built by the engine edit as this process
	client, err := sessions.Next()
	if nil != err {
		return nil, fault.PanicIfFatal("session id", err)
	}
	log.Infof("session: %s", client)

	db, err := storage.Open(config.Database, readOnly)
	if nil != err {
		return nil, err
	}

	m := metrics.New()
	docs := document.New(db, crdt.NewFactory(uint64(client)), m)

	e := &engine{
		config:   config,
		db:       db,
		docs:     docs,
		metrics:  m,
		sessions: sessions,
		log:      log,
	}
	if readOnly {
		return e, nil
	}

	e.compactor, err = document.NewCompactor(docs, config.Flush.Workers, config.Flush.QueueSize)
	if nil != err {
		db.Close()
		return nil, err
	}

	e.snapshots, err = snapshot.NewManager(docs, snapshot.NewStore(db), config.Snapshot, m)
	if nil != err {
		e.compactor.Stop()
		db.Close()
		return nil, err
	}
	return e, nil
}

// open a runtime document persisted through a disk plugin
func (e *engine) open(name string) (*crdt.Collab, error) {
	if nil == e.snapshots {
		return nil, fault.ErrTransactionReadOnly
	}

	client, err := e.sessions.Next()
	if nil != err {
		return nil, fault.PanicIfFatal("session id", err)
	}

	plugin := diskplugin.New(e.docs, e.compactor, e.snapshots, diskplugin.Configuration{
		FlushThreshold:    e.config.Flush.Threshold,
		SnapshotThreshold: e.config.Snapshot.Threshold,
	})
	return crdt.Open(name, crdt.New(uint64(client)), plugin)
}

// snapshot records, also available to read-only commands
func (e *engine) snapshotStore() *snapshot.Store {
	if nil != e.snapshots {
		return e.snapshots.Store()
	}
	return snapshot.NewStore(e.db)
}

// finish background work and close the database
func (e *engine) close() {
	if nil != e.compactor {
		e.compactor.Wait()
		e.compactor.Stop()
	}
	if nil != e.snapshots {
		e.snapshots.Wait()
		e.snapshots.Stop()
	}
	if err := e.db.Close(); nil != err {
		e.log.Errorf("database close error: %s", err)
	}
}
