// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"

	"github.com/bitmark-inc/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// fileWatcher - reports writes to and removal of one file
type fileWatcher struct {
	log      *logger.L
	watcher  *fsnotify.Watcher
	filePath string
	change   chan struct{}
	remove   chan struct{}
	done     chan struct{}
}

func newFileWatcher(targetFile string, log *logger.L) (*fileWatcher, error) {
	filePath, err := filepath.Abs(filepath.Clean(targetFile))
	if nil != err {
		return nil, errors.Wrapf(err, "watch: %q", targetFile)
	}

	if _, err := os.Stat(filePath); nil != err {
		return nil, errors.Wrapf(err, "watch: %q", filePath)
	}

	watcher, err := fsnotify.NewWatcher()
	if nil != err {
		return nil, errors.Wrap(err, "new watcher")
	}

	return &fileWatcher{
		log:      log,
		watcher:  watcher,
		filePath: filePath,
		change:   make(chan struct{}, 1),
		remove:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Change - signalled after the file is written
func (w *fileWatcher) Change() <-chan struct{} {
	return w.change
}

// Remove - signalled once when the file disappears, no further
// events follow
func (w *fileWatcher) Remove() <-chan struct{} {
	return w.remove
}

// Start - begin delivering events
func (w *fileWatcher) Start() error {
	err := w.watcher.Add(w.filePath)
	if nil != err {
		w.log.Errorf("watcher add error: %s", err)
		return err
	}

	go w.run()
	return nil
}

// Stop - release the watcher
func (w *fileWatcher) Stop() {
	close(w.done)
	w.watcher.Close()
}

func (w *fileWatcher) run() {
	for {
		select {
		case <-w.done:
			return

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnf("watcher error: %s", err)

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.log.Debugf("file event: %v", event)

			if isRemoveEvent(event) {
				w.log.Errorf("file: %q removed, stop watching", w.filePath)
				send(w.remove)
				return
			}

			if filepath.Base(event.Name) != filepath.Base(w.filePath) {
				continue
			}

			if isChangeEvent(event) {
				send(w.change)
			}
		}
	}
}

// non-blocking, a pending signal already covers this event
func send(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func isRemoveEvent(event fsnotify.Event) bool {
	return "" == event.Name || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

func isChangeEvent(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod)
}
