// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keys

import (
	"encoding/binary"
	"math"
)

// DocID - compact document identifier used as key prefix
type DocID uint32

// SnapshotID - compact identifier of a document's snapshot series
type SnapshotID uint32

// Clock - position of an update in a document's append-only log
type Clock uint32

// MaxClock - last usable clock value
const MaxClock = Clock(math.MaxUint32)

// layout bytes, these must never change
const (
	Terminator    byte = 0x00
	HighWatermark byte = 0xFF

	Space byte = 0x01

	NameSpace         byte = 0x00
	DocSpace          byte = 0x01
	SnapshotNameSpace byte = 0x02
	SnapshotSpace     byte = 0x03

	State          byte = 0x00
	StateVector    byte = 0x01
	Update         byte = 0x02
	SnapshotUpdate byte = 0x00
)

// sizes of the fixed width parts
const (
	spaceSize  = 2
	idSize     = 4
	clockSize  = 4
	prefixSize = spaceSize + idSize

	// 01 01 ++ id ++ 02 ++ clock ++ 00
	updateKeySize = prefixSize + 1 + clockSize + 1
)

// DocIDKey - name index entry for a document
func DocIDKey(name string) []byte {
	return nameKey(NameSpace, name)
}

// DocIDCounterKey - sentinel holding the highest allocated doc id
func DocIDCounterKey() []byte {
	return []byte{Space, NameSpace, HighWatermark}
}

// NameRange - bounds of all name index entries, limit is exclusive
func NameRange() (start []byte, limit []byte) {
	return []byte{Space, NameSpace}, DocIDCounterKey()
}

// DocStateKey - the single full encoded state
func DocStateKey(id DocID) []byte {
	return append(docPrefix(id), State)
}

// DocStateVectorKey - the single state vector
func DocStateVectorKey(id DocID) []byte {
	return append(docPrefix(id), StateVector)
}

// DocUpdateKey - one appended update
func DocUpdateKey(id DocID, clock Clock) []byte {
	return updateKey(docPrefix(id), clock, Terminator)
}

// DocRange - inclusive bounds covering every sub-kind of one document
func DocRange(id DocID) (start []byte, end []byte) {
	return DocStateKey(id), append(docPrefix(id), HighWatermark)
}

// DocUpdateRange - inclusive bounds covering the updates of one document
func DocUpdateRange(id DocID) (start []byte, end []byte) {
	return updateKey(docPrefix(id), 0, Terminator), updateKey(docPrefix(id), MaxClock, HighWatermark)
}

// SnapshotIDKey - name index entry for a document's snapshots
func SnapshotIDKey(name string) []byte {
	return nameKey(SnapshotNameSpace, name)
}

// SnapshotIDCounterKey - sentinel holding the highest allocated snapshot id
func SnapshotIDCounterKey() []byte {
	return []byte{Space, SnapshotNameSpace, HighWatermark}
}

// SnapshotKey - one snapshot record
func SnapshotKey(id SnapshotID, clock Clock) []byte {
	prefix := idPrefix(SnapshotSpace, uint32(id))
	prefix = append(prefix, SnapshotUpdate)
	prefix = appendClock(prefix, clock)
	return append(prefix, Terminator)
}

// SnapshotRange - inclusive bounds covering the snapshots of one series
func SnapshotRange(id SnapshotID) (start []byte, end []byte) {
	prefix := idPrefix(SnapshotSpace, uint32(id))
	start = append(append([]byte{}, prefix...), SnapshotUpdate)
	end = append(prefix, HighWatermark)
	return start, end
}

// EncodeDocID - value stored in the name index and counter
func EncodeDocID(id DocID) []byte {
	b := make([]byte, idSize)
	binary.BigEndian.PutUint32(b, uint32(id))
	return b
}

// DecodeDocID - reverse of EncodeDocID
func DecodeDocID(value []byte) (DocID, bool) {
	if idSize != len(value) {
		return 0, false
	}
	return DocID(binary.BigEndian.Uint32(value)), true
}

// EncodeClock - clock as 4 big endian bytes
func EncodeClock(clock Clock) []byte {
	return appendClock(make([]byte, 0, clockSize), clock)
}

// DecodeClock - reverse of EncodeClock, ignores trailing bytes
func DecodeClock(value []byte) (Clock, bool) {
	if len(value) < clockSize {
		return 0, false
	}
	return Clock(binary.BigEndian.Uint32(value[:clockSize])), true
}

// DecodeUpdateClock - extract the clock from a document update key
//
// second value is false if the key is not an update key of that document
func DecodeUpdateClock(id DocID, key []byte) (Clock, bool) {
	return decodeLogKey(docPrefix(id), Update, key)
}

// DecodeSnapshotClock - extract the clock from a snapshot key
func DecodeSnapshotClock(id SnapshotID, key []byte) (Clock, bool) {
	return decodeLogKey(idPrefix(SnapshotSpace, uint32(id)), SnapshotUpdate, key)
}

// DecodeName - extract the document name from a name index key of
// either the document or the snapshot name space
func DecodeName(key []byte) (string, bool) {
	if len(key) < spaceSize+2 || Space != key[0] || Terminator != key[len(key)-1] {
		return "", false
	}
	if NameSpace != key[1] && SnapshotNameSpace != key[1] {
		return "", false
	}
	return string(key[spaceSize : len(key)-1]), true
}

func nameKey(space byte, name string) []byte {
	key := make([]byte, 0, spaceSize+len(name)+1)
	key = append(key, Space, space)
	key = append(key, name...)
	return append(key, Terminator)
}

func docPrefix(id DocID) []byte {
	return idPrefix(DocSpace, uint32(id))
}

// prefix is sized so that the sub-key appends do not reallocate,
// so each key must start from its own prefix
func idPrefix(space byte, id uint32) []byte {
	key := make([]byte, prefixSize, updateKeySize)
	key[0] = Space
	key[1] = space
	binary.BigEndian.PutUint32(key[spaceSize:], id)
	return key
}

func updateKey(prefix []byte, clock Clock, terminator byte) []byte {
	key := append(prefix, Update)
	key = appendClock(key, clock)
	return append(key, terminator)
}

func appendClock(key []byte, clock Clock) []byte {
	return append(key,
		byte(clock>>24),
		byte(clock>>16),
		byte(clock>>8),
		byte(clock),
	)
}

func decodeLogKey(prefix []byte, tag byte, key []byte) (Clock, bool) {
	if updateKeySize != len(key) || Terminator != key[updateKeySize-1] {
		return 0, false
	}
	for i, b := range prefix {
		if key[i] != b {
			return 0, false
		}
	}
	if tag != key[prefixSize] {
		return 0, false
	}
	return Clock(binary.BigEndian.Uint32(key[prefixSize+1:])), true
}
