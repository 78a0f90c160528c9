// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bitmark-inc/logger"
	"github.com/pkg/errors"

	"github.com/bitmark-inc/collabd/fault"
	"github.com/bitmark-inc/collabd/idgen"
	"github.com/bitmark-inc/collabd/snapshot"
	"github.com/bitmark-inc/collabd/storage"
	"github.com/bitmark-inc/collabd/util"
)

// basic defaults (directories and files are relative to the "DataDirectory" from Configuration file)
const (
	defaultDataDirectory = "" // this will error; use "." for the same directory as the config file

	defaultDatabaseDirectory = "data"
	defaultDatabaseName      = "collabd"

	defaultFlushThreshold = 1000
	defaultFlushInterval  = 300
	defaultFlushWorkers   = 1
	defaultFlushQueue     = 256

	defaultSnapshotThreshold = 500

	defaultLogDirectory = "log"
	defaultLogFile      = "collabd.log"
	defaultLogCount     = 10          //  number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when <logfile> exceeds this size
)

// LoglevelMap - to hold log levels
type LoglevelMap map[string]string

// path expanded or calculated defaults
var (
	defaultLogLevels = LoglevelMap{
		"main":            "info",
		logger.DefaultTag: "critical",
	}
)

// FlushType - background compaction
type FlushType struct {
	Threshold       uint64 `gluamapper:"threshold" json:"threshold"`
	IntervalSeconds int    `gluamapper:"interval_seconds" json:"interval_seconds"`
	Workers         int    `gluamapper:"workers" json:"workers"`
	QueueSize       int    `gluamapper:"queue_size" json:"queue_size"`
}

// MetricsType - prometheus listener, blank disables it
type MetricsType struct {
	Listen string `gluamapper:"listen" json:"listen"`
}

// Configuration - everything read from the file
type Configuration struct {
	DataDirectory string                 `gluamapper:"data_directory" json:"data_directory"`
	PidFile       string                 `gluamapper:"pidfile" json:"pidfile"`
	NodeID        uint64                 `gluamapper:"node_id" json:"node_id"`
	Database      storage.Configuration  `gluamapper:"database" json:"database"`
	Flush         FlushType              `gluamapper:"flush" json:"flush"`
	Snapshot      snapshot.Configuration `gluamapper:"snapshot" json:"snapshot"`
	Metrics       MetricsType            `gluamapper:"metrics" json:"metrics"`
	Logging       logger.Configuration   `gluamapper:"logging" json:"logging"`
}

// Get - read, decode and verify the configuration
func Get(configurationFileName string, variables map[string]string) (*Configuration, error) {

	configurationFileName, err := filepath.Abs(filepath.Clean(configurationFileName))
	if nil != err {
		return nil, err
	}

	if !util.EnsureFileExists(configurationFileName) {
		return nil, fmt.Errorf("configuration file: %q does not exist", configurationFileName)
	}

	// absolute path to the main directory
	dataDirectory, _ := filepath.Split(configurationFileName)

	options := &Configuration{
		DataDirectory: defaultDataDirectory,
		PidFile:       "", // no PidFile by default

		Database: storage.Configuration{
			Directory: defaultDatabaseDirectory,
			Name:      defaultDatabaseName,
			Backend:   storage.BackendLevelDB,
		},

		Flush: FlushType{
			Threshold:       defaultFlushThreshold,
			IntervalSeconds: defaultFlushInterval,
			Workers:         defaultFlushWorkers,
			QueueSize:       defaultFlushQueue,
		},

		Snapshot: snapshot.Configuration{
			Threshold: defaultSnapshotThreshold,
			Workers:   snapshot.DefaultWorkers,
			QueueSize: snapshot.DefaultQueueSize,
		},

		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels,
		},
	}

	if err := ParseConfigurationFile(configurationFileName, options, variables); err != nil {
		return nil, err
	}

	// ensure absolute data directory
	if "" == options.DataDirectory || "~" == options.DataDirectory {
		return nil, fmt.Errorf("Path: %q is not a valid directory", options.DataDirectory)
	} else if "." == options.DataDirectory {
		options.DataDirectory = dataDirectory // same directory as the configuration file
	}
	options.DataDirectory = filepath.Clean(options.DataDirectory)

	// this directory must exist - i.e. must be created prior to running
	if fileInfo, err := os.Stat(options.DataDirectory); nil != err {
		return nil, err
	} else if !fileInfo.IsDir() {
		return nil, fmt.Errorf("Path: %q is not a directory", options.DataDirectory)
	}

	if err := options.validate(); nil != err {
		return nil, err
	}

	// optional absolute paths i.e. blank or an absolute path
	if "" != options.PidFile {
		options.PidFile = util.EnsureAbsolute(options.DataDirectory, options.PidFile)
	}

	// must be plain names, the directory is added later
	for _, f := range []*string{
		&options.Database.Name,
		&options.Logging.File,
	} {
		switch filepath.Dir(*f) {
		case "", ".":
		default:
			return nil, fmt.Errorf("Files: %q is not plain name", *f)
		}
	}

	// make absolute and create directories if they do not already exist
	for _, d := range []*string{
		&options.Database.Directory,
		&options.Logging.Directory,
	} {
		*d = util.EnsureAbsolute(options.DataDirectory, *d)
		if err := util.EnsureDirectory(*d); nil != err {
			return nil, err
		}
	}

	return options, nil
}

func (c *Configuration) validate() error {
	if "" == c.Database.Backend {
		c.Database.Backend = storage.BackendLevelDB
	}
	valid := false
	for _, b := range storage.Backends {
		if b == c.Database.Backend {
			valid = true
		}
	}
	if !valid {
		return errors.Wrapf(fault.ErrInvalidBackend, "backend: %q", c.Database.Backend)
	}

	for _, layout := range idgen.Layouts {
		if c.NodeID > layout.MaxNode() {
			return errors.Wrapf(fault.ErrInvalidNodeID, "node_id: %d  %s maximum: %d", c.NodeID, layout.Name, layout.MaxNode())
		}
	}

	if c.Flush.IntervalSeconds < 0 {
		return fmt.Errorf("flush interval: %d is negative", c.Flush.IntervalSeconds)
	}
	if c.Snapshot.Retain < 0 {
		return errors.Wrapf(fault.ErrInvalidCount, "snapshot retain: %d", c.Snapshot.Retain)
	}
	return nil
}
