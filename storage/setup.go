// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/bitmark-inc/collabd/fault"
	"github.com/bitmark-inc/logger"
)

// backend names as used in the configuration file
const (
	BackendLevelDB = "leveldb"
	BackendBadger  = "badger"
	BackendBolt    = "bolt"
	BackendMemory  = "memory"
)

// Backends - all backend names
var Backends = []string{BackendLevelDB, BackendBadger, BackendBolt, BackendMemory}

// for database version
var versionKey = []byte{0x00, 'V', 'E', 'R', 'S', 'I', 'O', 'N'}

// CurrentVersion - format written by this program
const CurrentVersion = 0x100

// Configuration - database settings
type Configuration struct {
	Directory  string `gluamapper:"directory" json:"directory"`
	Name       string `gluamapper:"name" json:"name"`
	Backend    string `gluamapper:"backend" json:"backend"`
	SyncWrites bool   `gluamapper:"sync_writes" json:"sync_writes"`
}

// pool access modes
const (
	ReadOnly  = true
	ReadWrite = false
)

// Path - file or directory of the database for its backend
func (c Configuration) Path() string {
	backend := c.Backend
	if "" == backend {
		backend = BackendLevelDB
	}
	return filepath.Join(c.Directory, c.Name+"."+backend)
}

// Open - open (or create) the database
//
// an empty database is tagged with the current version; a database
// written by a newer version is refused
func Open(config Configuration, readOnly bool) (Store, error) {
	log := logger.New("storage")

	backend := config.Backend
	if "" == backend {
		backend = BackendLevelDB
	}

	if BackendMemory != backend && !readOnly {
		if err := os.MkdirAll(config.Directory, 0700); nil != err {
			return nil, errors.Wrapf(fault.ErrStorageIO, "create directory: %s", err)
		}
	}

	path := config.Path()

	var store Store
	var err error
	switch backend {
	case BackendLevelDB:
		store, err = openLevelDB(path, readOnly, config.SyncWrites)
	case BackendBadger:
		store, err = openBadger(path, false, readOnly, config.SyncWrites, log)
	case BackendBolt:
		store, err = openBolt(path, readOnly, config.SyncWrites)
	case BackendMemory:
		store = NewMemory()
	default:
		return nil, errors.Wrapf(fault.ErrInvalidBackend, "backend: %q", backend)
	}
	if nil != err {
		log.Errorf("open: %s  error: %s", path, err)
		return nil, err
	}

	version, err := getVersion(store)
	if nil != err {
		store.Close()
		return nil, err
	}

	// ensure no database downgrade
	if version > CurrentVersion {
		log.Criticalf("database version: %d > current version: %d", version, CurrentVersion)
		store.Close()
		return nil, fault.ErrDatabaseVersion
	}

	// database was empty so tag as current version
	if 0 == version && !readOnly {
		if err := putVersion(store, CurrentVersion); nil != err {
			store.Close()
			return nil, err
		}
	}

	log.Infof("opened: %s  backend: %s  version: %d", path, backend, version)
	return store, nil
}

// OpenBadgerInMemory - badger without files
func OpenBadgerInMemory() (Store, error) {
	store, err := openBadger("", true, false, false, logger.New("storage"))
	if nil != err {
		return nil, err
	}
	if err := putVersion(store, CurrentVersion); nil != err {
		store.Close()
		return nil, err
	}
	return store, nil
}

// Version - database version, zero if never written
func Version(store Store) (int, error) {
	return getVersion(store)
}

func getVersion(store Store) (int, error) {
	version := 0
	err := store.View(func(r Reader) error {
		value, err := r.Get(versionKey)
		if nil != err || nil == value {
			return err
		}
		if 4 != len(value) {
			return errors.Wrapf(fault.ErrStorageCorrupted, "incompatible database version length: expected: %d  actual: %d", 4, len(value))
		}
		version = int(binary.BigEndian.Uint32(value))
		return nil
	})
	return version, err
}

func putVersion(store Store, version int) error {
	currentVersion := make([]byte, 4)
	binary.BigEndian.PutUint32(currentVersion, uint32(version))

	return store.Update(func(tx Transaction) error {
		return tx.Put(versionKey, currentVersion)
	})
}
