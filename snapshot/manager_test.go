// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package snapshot_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/collabd/crdt"
	"github.com/bitmark-inc/collabd/fault"
	"github.com/bitmark-inc/collabd/keys"
	"github.com/bitmark-inc/collabd/snapshot"
)

func TestStateNames(t *testing.T) {
	assert.Equal(t, "idle", snapshot.Idle.String(), "idle")
	assert.Equal(t, "processing", snapshot.Processing.String(), "processing")
	assert.Equal(t, "fail", snapshot.Fail.String(), "fail")
	assert.Equal(t, "unknown", snapshot.State(9).String(), "unknown")
}

func TestShouldCreateSnapshotSingleWinner(t *testing.T) {
	f := newFixture(t, snapshot.Configuration{})

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.manager.ShouldCreateSnapshot("d1") {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins, "winners")
	assert.Equal(t, snapshot.Processing, f.manager.State("d1"), "state")
	assert.Equal(t, snapshot.Idle, f.manager.State("d2"), "untouched document")
}

func TestCreateSnapshot(t *testing.T) {
	f := newFixture(t, snapshot.Configuration{})
	editor := f.edit(t, "d1", 10)

	require.True(t, f.manager.ShouldCreateSnapshot("d1"), "acquire")
	require.Nil(t, f.manager.CreateSnapshot("d1"), "create")
	assert.Equal(t, snapshot.Idle, f.manager.State("d1"), "idle after success")

	r, err := f.store.Latest("d1")
	require.Nil(t, err, "latest")
	assert.Equal(t, keys.Clock(9), r.Clock, "keyed by last clock")
	assert.Equal(t, stateOf(t, editor), r.State, "snapshot state")

	// updates are kept without the delete option
	updates, err := f.docs.GetUpdates("d1")
	require.Nil(t, err, "updates")
	assert.Equal(t, 10, len(updates), "log untouched")

	// nothing new: skipped and idle
	require.True(t, f.manager.ShouldCreateSnapshot("d1"), "acquire again")
	assert.Equal(t, fault.ErrSnapshotExists, f.manager.CreateSnapshot("d1"), "same clock")
	assert.Equal(t, snapshot.Idle, f.manager.State("d1"), "idle after skip")
}

func TestCreateSnapshotDeleteUpdates(t *testing.T) {
	f := newFixture(t, snapshot.Configuration{DeleteUpdates: true})
	editor := f.edit(t, "d1", 10)

	clock, err := f.manager.Run("d1")
	require.Nil(t, err, "run")
	assert.Equal(t, keys.Clock(9), clock, "snapshot clock")

	updates, err := f.docs.GetUpdates("d1")
	require.Nil(t, err, "updates")
	require.Equal(t, 1, len(updates), "only updates before the clock deleted")
	assert.Equal(t, keys.Clock(9), updates[0].Clock, "kept clock")

	loaded := crdt.New(5)
	require.Nil(t, f.docs.LoadDoc("d1", loaded), "load")
	assert.Equal(t, stateOf(t, editor), stateOf(t, loaded), "load after snapshot")

	f.push(t, "d1", editor, 3)
	clock, err = f.manager.Run("d1")
	require.Nil(t, err, "second run")
	assert.Equal(t, keys.Clock(12), clock, "second snapshot clock")

	list, err := f.store.List("d1")
	require.Nil(t, err, "list")
	assert.Equal(t, 2, len(list), "two snapshots")
}

func TestCreateSnapshotEmptyAndMissing(t *testing.T) {
	f := newFixture(t, snapshot.Configuration{})

	_, err := f.docs.CreateNewDoc("empty", crdt.New(1))
	require.Nil(t, err, "create")

	_, err = f.manager.Run("empty")
	assert.Equal(t, fault.ErrEmptyDocument, err, "empty")
	assert.Equal(t, snapshot.Idle, f.manager.State("empty"), "empty is idle")

	_, err = f.manager.Run("missing")
	assert.Equal(t, fault.ErrDocumentNotFound, err, "missing")
	assert.Equal(t, snapshot.Idle, f.manager.State("missing"), "missing is idle")
}

func TestCreateSnapshotFailure(t *testing.T) {
	f := newFixture(t, snapshot.Configuration{})
	f.edit(t, "d1", 2)

	// an update the runtime cannot decode
	_, err := f.docs.PushUpdate("d1", []byte{0xc1})
	require.Nil(t, err, "push")

	_, err = f.manager.Run("d1")
	assert.True(t, fault.IsErrEncoding(err), "replay error: %v", err)
	assert.Equal(t, snapshot.Fail, f.manager.State("d1"), "fail state")

	// a failed document can be retried
	assert.True(t, f.manager.ShouldCreateSnapshot("d1"), "retry from fail")
}

func TestRunWhileProcessing(t *testing.T) {
	f := newFixture(t, snapshot.Configuration{})
	f.edit(t, "d1", 2)

	require.True(t, f.manager.ShouldCreateSnapshot("d1"), "acquire")
	_, err := f.manager.Run("d1")
	assert.Equal(t, fault.ErrSnapshotInProgress, err, "busy")
	assert.False(t, f.manager.Schedule("d1"), "schedule while processing")
}

func TestSchedule(t *testing.T) {
	f := newFixture(t, snapshot.Configuration{Workers: 2, QueueSize: 8, Retain: 1})
	names := []string{"a", "b", "c", "d"}
	for _, name := range names {
		f.edit(t, name, 4)
	}

	for _, name := range names {
		assert.True(t, f.manager.Schedule(name), "schedule %s", name)
	}
	f.manager.Wait()

	for _, name := range names {
		assert.Equal(t, snapshot.Idle, f.manager.State(name), "state %s", name)
		r, err := f.store.Latest(name)
		require.Nil(t, err, "latest %s", name)
		assert.Equal(t, keys.Clock(3), r.Clock, "clock %s", name)
	}

	// retention keeps only the newest record
	f.push(t, "a", crdt.New(2), 1)
	assert.True(t, f.manager.Schedule("a"), "schedule again")
	f.manager.Wait()

	list, err := f.store.List("a")
	require.Nil(t, err, "list")
	require.Equal(t, 1, len(list), "retained")
	assert.Equal(t, keys.Clock(4), list[0].Clock, "newest kept")

	states := f.manager.States()
	assert.Equal(t, len(names), len(states), "all states")
}

func TestRestore(t *testing.T) {
	f := newFixture(t, snapshot.Configuration{})
	editor := f.edit(t, "d1", 5)
	at5 := stateOf(t, editor)

	clock, err := f.manager.Run("d1")
	require.Nil(t, err, "snapshot")

	f.push(t, "d1", editor, 3)

	require.Nil(t, f.manager.Restore("d1", clock), "restore")
	assert.Equal(t, snapshot.Idle, f.manager.State("d1"), "idle after restore")

	loaded := crdt.New(5)
	require.Nil(t, f.docs.LoadDoc("d1", loaded), "load")
	assert.Equal(t, at5, stateOf(t, loaded), "restored state")

	updates, err := f.docs.GetUpdates("d1")
	require.Nil(t, err, "updates")
	assert.Equal(t, 0, len(updates), "log discarded")

	// clocks continue after the discarded log
	c, err := f.docs.PushUpdate("d1", []byte{1})
	require.Nil(t, err, "push")
	assert.Equal(t, keys.Clock(8), c, "next clock")

	assert.Equal(t, fault.ErrSnapshotNotFound, f.manager.Restore("d1", 77), "unknown clock")
}

func TestForget(t *testing.T) {
	f := newFixture(t, snapshot.Configuration{})
	f.edit(t, "d1", 2)

	_, err := f.manager.Run("d1")
	require.Nil(t, err, "snapshot")
	require.Nil(t, f.manager.Forget("d1"), "forget")

	list, err := f.store.List("d1")
	require.Nil(t, err, "list")
	assert.Equal(t, 0, len(list), "records gone")
	assert.Equal(t, 0, len(f.manager.States()), "state gone")
}

func TestForgetWhileProcessing(t *testing.T) {
	f := newFixture(t, snapshot.Configuration{})
	f.edit(t, "d1", 2)

	require.True(t, f.manager.ShouldCreateSnapshot("d1"), "first")
	require.Nil(t, f.manager.Forget("d1"), "forget")
	assert.False(t, f.manager.ShouldCreateSnapshot("d1"), "second while the first runs")
	assert.Equal(t, snapshot.Processing, f.manager.State("d1"), "state kept")

	// the running job finds the document gone and stores nothing
	require.Nil(t, f.docs.DeleteDoc("d1"), "delete")
	assert.Equal(t, fault.ErrDocumentNotFound, f.manager.CreateSnapshot("d1"), "job after delete")
	assert.Equal(t, snapshot.Idle, f.manager.State("d1"), "idle after job")

	list, err := f.store.List("d1")
	require.Nil(t, err, "list")
	assert.Equal(t, 0, len(list), "no record")

	require.Nil(t, f.manager.Forget("d1"), "forget idle")
	assert.Equal(t, 0, len(f.manager.States()), "state gone")
}
