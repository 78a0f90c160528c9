// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"testing"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/collabd/configuration"
	"github.com/bitmark-inc/collabd/storage"
)

const (
	testingDirName = "testing"
)

func removeFiles() {
	_ = os.RemoveAll(testingDirName)
}

func TestMain(m *testing.M) {
	removeFiles()
	_ = os.Mkdir(testingDirName, 0700)

	logging := logger.Configuration{
		Directory: testingDirName,
		File:      "testing.log",
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}
	_ = logger.Initialise(logging)

	rc := m.Run()

	logger.Finalise()
	removeFiles()
	os.Exit(rc)
}

// engine over the memory backend, plugin thresholds disabled
func newTestEngine(t *testing.T) *engine {
	config := &configuration.Configuration{
		NodeID: 1,
		Database: storage.Configuration{
			Backend: storage.BackendMemory,
		},
		Flush: configuration.FlushType{
			Workers:   1,
			QueueSize: 16,
		},
	}
	e, err := newEngine(config, storage.ReadWrite, logger.New("test"))
	require.NoError(t, err, "newEngine")
	t.Cleanup(e.close)
	return e
}

func setKeys(t *testing.T, e *engine, name string, n int) {
	c, err := e.open(name)
	require.NoError(t, err, "open")
	for i := 0; i < n; i += 1 {
		require.NoError(t, c.Set("k", []byte{byte(i)}), "set")
	}
}

func TestReadOnlyCommands(t *testing.T) {
	require.True(t, isReadOnlyCommand("list"))
	require.True(t, isReadOnlyCommand("sns"))
	require.False(t, isReadOnlyCommand("set"))
	require.False(t, isReadOnlyCommand("restore"))
	require.False(t, isReadOnlyCommand("start"))
}
