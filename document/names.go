// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package document

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/patrickmn/go-cache"

	"github.com/bitmark-inc/collabd/fault"
	"github.com/bitmark-inc/collabd/keys"
	"github.com/bitmark-inc/collabd/storage"
)

// limits of a document name
const (
	MaxNameLength = 512
)

// name cache
const (
	nameExpiration = 10 * time.Minute
	nameCleanup    = 15 * time.Minute
)

// ValidName - names are non-empty UTF-8 without NUL
//
// UTF-8 never contains 0xFF so a name key cannot collide with the
// counter sentinel
func ValidName(name string) error {
	if 0 == len(name) || len(name) > MaxNameLength {
		return fault.ErrInvalidDocumentName
	}
	if !utf8.ValidString(name) || strings.IndexByte(name, 0) >= 0 {
		return fault.ErrInvalidDocumentName
	}
	return nil
}

// name -> doc id
//
// only write transactions fill the cache, a read snapshot may be older
// than a delete and must not put its id back
type names struct {
	c *cache.Cache
}

func newNames() *names {
	return &names{
		c: cache.New(nameExpiration, nameCleanup),
	}
}

func (n *names) forget(name string) {
	n.c.Delete(name)
}

// the index entry as seen by r
func readDocID(r storage.Reader, name string) (keys.DocID, bool, error) {
	value, err := r.Get(keys.DocIDKey(name))
	if nil != err || nil == value {
		return 0, false, err
	}
	id, ok := keys.DecodeDocID(value)
	if !ok {
		return 0, false, fault.ErrMalformedRecord
	}
	return id, true, nil
}

// lookup for a read scope, the cached id is a hint only
func (n *names) lookup(r storage.Reader, name string) (keys.DocID, bool, bool, error) {
	if item, found := n.c.Get(name); found {
		return item.(keys.DocID), true, true, nil
	}
	id, found, err := readDocID(r, name)
	return id, found, false, err
}

// lookup for a write scope, always read from tx and refresh the cache
func (n *names) lookupTx(tx storage.Transaction, name string) (keys.DocID, bool, error) {
	id, found, err := readDocID(tx, name)
	if nil != err {
		return 0, false, err
	}
	if found {
		n.c.Set(name, id, cache.DefaultExpiration)
	} else {
		n.c.Delete(name)
	}
	return id, found, nil
}
