// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keys

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Describe - human readable form of a key for the dump tool
func Describe(key []byte) string {
	if len(key) < spaceSize || Space != key[0] {
		return "raw:" + hex.EncodeToString(key)
	}

	switch key[1] {
	case NameSpace, SnapshotNameSpace:
		kind := "doc-name"
		if SnapshotNameSpace == key[1] {
			kind = "snapshot-name"
		}
		if 3 == len(key) && HighWatermark == key[2] {
			return kind + ":counter"
		}
		if name, ok := DecodeName(key); ok {
			return fmt.Sprintf("%s:%q", kind, name)
		}

	case DocSpace:
		if len(key) < prefixSize+1 {
			break
		}
		id := DocID(binary.BigEndian.Uint32(key[spaceSize:]))
		switch {
		case prefixSize+1 == len(key) && State == key[prefixSize]:
			return fmt.Sprintf("doc:%d:state", id)
		case prefixSize+1 == len(key) && StateVector == key[prefixSize]:
			return fmt.Sprintf("doc:%d:state-vector", id)
		}
		if clock, ok := DecodeUpdateClock(id, key); ok {
			return fmt.Sprintf("doc:%d:update:%d", id, clock)
		}

	case SnapshotSpace:
		if len(key) < prefixSize+1 {
			break
		}
		id := SnapshotID(binary.BigEndian.Uint32(key[spaceSize:]))
		if clock, ok := DecodeSnapshotClock(id, key); ok {
			return fmt.Sprintf("snapshot:%d:%d", id, clock)
		}
	}
	return "unknown:" + hex.EncodeToString(key)
}
