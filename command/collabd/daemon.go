// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"maps"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/collabd/configuration"
	"github.com/bitmark-inc/collabd/fault"
)

const shutdownTimeout = 5 * time.Second

// thresholds that can change while running
type thresholds struct {
	flush    atomic.Uint64
	snapshot atomic.Uint64
}

// daemon - background maintenance of every stored document
type daemon struct {
	e          *engine
	log        *logger.L
	limits     thresholds
	interval   time.Duration
	server     *http.Server
	watcher    *fileWatcher
	configFile string
	variables  map[string]string
	levels     map[string]string
	shutdown   chan struct{}
	wg         sync.WaitGroup
}

func startDaemon(e *engine, configurationFile string, variables map[string]string, log *logger.L) (*daemon, error) {
	d := &daemon{
		e:          e,
		log:        logger.New("daemon"),
		interval:   time.Duration(e.config.Flush.IntervalSeconds) * time.Second,
		configFile: configurationFile,
		variables:  variables,
		levels:     e.config.Logging.Levels,
		shutdown:   make(chan struct{}),
	}
	d.limits.flush.Store(e.config.Flush.Threshold)
	d.limits.snapshot.Store(e.config.Snapshot.Threshold)

	if "" != e.config.Metrics.Listen {
		listener, err := net.Listen("tcp", e.config.Metrics.Listen)
		if nil != err {
			return nil, err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", e.metrics.Handler())
		d.server = &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.server.Serve(listener); nil != err && http.ErrServerClosed != err {
				d.log.Errorf("metrics server error: %s", err)
			}
		}()
		log.Infof("metrics listening on: %s", listener.Addr())
	}

	watcher, err := newFileWatcher(configurationFile, d.log)
	if nil == err {
		err = watcher.Start()
	}
	if nil != err {
		log.Warnf("configuration reload disabled: %s", err)
	} else {
		d.watcher = watcher
	}

	d.wg.Add(1)
	go d.run()

	return d, nil
}

func (d *daemon) run() {
	defer d.wg.Done()

	var tick <-chan time.Time
	if d.interval > 0 {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var change, remove <-chan struct{}
	if nil != d.watcher {
		change = d.watcher.Change()
		remove = d.watcher.Remove()
	}

	d.log.Infof("scan interval: %s", d.interval)
	d.scan()

loop:
	for {
		select {
		case <-d.shutdown:
			break loop
		case <-tick:
			d.scan()
		case <-change:
			d.reload()
		case <-remove:
			d.log.Warn("configuration file removed, reload disabled")
			change = nil
			remove = nil
		}
	}
	d.log.Info("stopped")
}

// queue flushes and snapshots for every document past a threshold
func (d *daemon) scan() {
	flushes, snapshots, err := scanDocuments(d.e, d.limits.flush.Load(), d.limits.snapshot.Load())
	if nil != err {
		d.log.Errorf("scan error: %s", err)
		return
	}
	if flushes > 0 || snapshots > 0 {
		d.log.Infof("scan queued flushes: %d  snapshots: %d", flushes, snapshots)
	}
}

// returns the number of flushes and snapshots queued
func scanDocuments(e *engine, flushThreshold uint64, snapshotThreshold uint64) (int, int, error) {
	list, err := e.docs.ListDocs()
	if nil != err {
		return 0, 0, err
	}

	flushes := 0
	snapshots := 0
	for _, item := range list {
		info, err := e.docs.Info(item.Name)
		if fault.IsErrNotFound(err) {
			continue
		}
		if nil != err {
			return flushes, snapshots, err
		}
		if 0 == info.Updates {
			continue
		}

		if flushThreshold > 0 && uint64(info.Updates) >= flushThreshold {
			if e.compactor.Schedule(item.Name) {
				flushes += 1
			}
		}

		if 0 == snapshotThreshold {
			continue
		}
		since := uint64(info.LastClock) + 1
		latest, err := e.snapshotStore().Latest(item.Name)
		switch {
		case nil == err:
			if info.LastClock <= latest.Clock {
				continue
			}
			since = uint64(info.LastClock - latest.Clock)
		case fault.IsErrNotFound(err):
		default:
			return flushes, snapshots, err
		}
		if since >= snapshotThreshold && e.snapshots.Schedule(item.Name) {
			snapshots += 1
		}
	}
	return flushes, snapshots, nil
}

// re-read the configuration file, only the thresholds change while
// running, logging needs a restart
func (d *daemon) reload() {
	config, err := configuration.Get(d.configFile, d.variables)
	if nil != err {
		d.log.Errorf("reload: %q  error: %s", d.configFile, err)
		return
	}

	if !maps.Equal(d.levels, config.Logging.Levels) {
		d.log.Warn("log levels changed, restart to apply")
	}
	d.limits.flush.Store(config.Flush.Threshold)
	d.limits.snapshot.Store(config.Snapshot.Threshold)

	d.log.Infof("reloaded flush threshold: %d  snapshot threshold: %d", config.Flush.Threshold, config.Snapshot.Threshold)
}

func (d *daemon) stop() {
	close(d.shutdown)
	if nil != d.watcher {
		d.watcher.Stop()
	}
	if nil != d.server {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := d.server.Shutdown(ctx); nil != err {
			d.log.Errorf("metrics server shutdown error: %s", err)
		}
	}
	d.wg.Wait()
}
