// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/collabd/util"
)

func TestEnsureAbsolute(t *testing.T) {
	assert.Equal(t, "/data/x.pid", util.EnsureAbsolute("/data", "x.pid"), "relative")
	assert.Equal(t, "/run/x.pid", util.EnsureAbsolute("/data", "/run/x.pid"), "absolute")
	assert.Equal(t, "/data/log", util.EnsureAbsolute("/data", "./log/"), "cleaned")
}

func TestEnsureFileExists(t *testing.T) {
	name := filepath.Join(t.TempDir(), "present")
	assert.False(t, util.EnsureFileExists(name), "before create")
	assert.NoError(t, os.WriteFile(name, nil, 0600), "create")
	assert.True(t, util.EnsureFileExists(name), "after create")
}

func TestEnsureDirectory(t *testing.T) {
	base := t.TempDir()

	d := filepath.Join(base, "a", "b")
	assert.NoError(t, util.EnsureDirectory(d), "create nested")
	assert.NoError(t, util.EnsureDirectory(d), "already exists")

	f := filepath.Join(base, "file")
	assert.NoError(t, os.WriteFile(f, nil, 0600), "create file")
	assert.Error(t, util.EnsureDirectory(f), "file in the way")
}
