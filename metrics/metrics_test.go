// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package metrics_test

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/collabd/metrics"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *metrics.Metrics

	m.UpdatePushed(10)
	m.Loaded()
	m.Flushed(metrics.ResultOK)
	m.SnapshotStarted()
	m.SnapshotFinished(metrics.ResultFail, time.Second)
	m.Error("push")

	assert.Nil(t, m.Registry(), "nil registry")
	assert.Nil(t, m.WriteText(&bytes.Buffer{}), "nil write")
}

func TestCounters(t *testing.T) {
	m := metrics.New()

	m.UpdatePushed(10)
	m.UpdatePushed(5)
	m.Flushed(metrics.ResultOK)
	m.SnapshotStarted()
	m.SnapshotStarted()
	m.SnapshotFinished(metrics.ResultOK, time.Millisecond)
	m.Error("push")

	n, err := testutil.GatherAndCount(m.Registry(), "collabd_document_updates_pushed_total")
	assert.Nil(t, err, "gather")
	assert.Equal(t, 1, n, "series count")

	expected := `
# HELP collabd_document_update_bytes_total Bytes of updates appended to document logs
# TYPE collabd_document_update_bytes_total counter
collabd_document_update_bytes_total 15
# HELP collabd_snapshot_in_flight Snapshot jobs currently processing
# TYPE collabd_snapshot_in_flight gauge
collabd_snapshot_in_flight 1
`
	err = testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"collabd_document_update_bytes_total", "collabd_snapshot_in_flight")
	assert.Nil(t, err, "compare")
}

func TestTextAndHandler(t *testing.T) {
	m := metrics.New()
	m.Loaded()

	buffer := &bytes.Buffer{}
	assert.Nil(t, m.WriteText(buffer), "write text")
	assert.Contains(t, buffer.String(), "collabd_document_loads_total 1", "text output")

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, recorder.Code, "status")
	assert.Contains(t, recorder.Body.String(), "collabd_document_loads_total", "handler output")
}
