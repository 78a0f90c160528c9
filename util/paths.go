// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package util - file system helpers for configuration paths
package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureAbsolute - a relative path is taken to be inside directory
func EnsureAbsolute(directory string, filePath string) string {
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(directory, filePath)
	}
	return filepath.Clean(filePath)
}

// EnsureFileExists - true if anything exists at name
func EnsureFileExists(name string) bool {
	_, err := os.Stat(name)
	return nil == err
}

// EnsureDirectory - create a private directory if missing, an existing
// non-directory is an error
func EnsureDirectory(path string) error {
	if err := os.MkdirAll(path, 0700); nil != err {
		return err
	}
	info, err := os.Stat(path)
	if nil != err {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path: %q is not a directory", path)
	}
	return nil
}
