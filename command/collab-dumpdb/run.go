// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/collabd/crdt"
	"github.com/bitmark-inc/collabd/document"
	"github.com/bitmark-inc/collabd/fault"
	"github.com/bitmark-inc/collabd/keys"
	"github.com/bitmark-inc/collabd/snapshot"
	"github.com/bitmark-inc/collabd/storage"
)

// colours
const (
	keyColour1 = "\033[1;36m"
	keyColour2 = "\033[1;31m"
	valColour1 = "\033[1;33m"
	valColour2 = "\033[1;34m"
	endColour  = "\033[0m"
)

func runKeys(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	count := c.Int("count")
	if count < 1 {
		return fault.ErrInvalidCount
	}

	prefix := []byte(nil)
	if c.NArg() > 0 {
		p, err := hex.DecodeString(c.Args().First())
		if nil != err {
			return err
		}
		prefix = p
	}

	cursor := storage.NewFetchCursor(m.db, storage.All())
	if len(prefix) > 0 {
		cursor.Seek(prefix)
	}
	data, err := cursor.Fetch(count)
	if nil != err {
		return err
	}

	return dumpElements(m.w, data, prefix, c.Bool("early"), c.Bool("ascii"), m.colour)
}

func dumpElements(w io.Writer, data []storage.Element, prefix []byte, earlyStop bool, ascii bool, colour bool) error {
	ck1, ck2, cv1, cv2, ce := "", "", "", "", ""
	if colour {
		ck1, ck2, cv1, cv2, ce = keyColour1, keyColour2, valColour1, valColour2, endColour
	}

	for i, e := range data {
		if earlyStop && !bytes.HasPrefix(e.Key, prefix) {
			fmt.Fprintf(w, "*** early stop\n")
			break
		}

		fmt.Fprintf(w, "%d: %sKey: %s%x%s  %s\n", i, ck1, ck2, e.Key, ce, keys.Describe(e.Key))
		if ascii {
			hexDump(w, fmt.Sprintf("%d: %sVal: %s", i, cv1, cv2), ce, e.Value)
		} else {
			fmt.Fprintf(w, "%d: %sVal: %s%x%s\n", i, cv1, cv2, e.Value, ce)
		}
	}
	return nil
}

func runDocs(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	docs := document.New(m.db, crdt.NewFactory(0), nil)
	list, err := docs.ListDocs()
	if nil != err {
		return err
	}
	for _, item := range list {
		info, err := docs.Info(item.Name)
		if nil != err {
			return err
		}
		fmt.Fprintf(m.w, "%6d  base: %6d  updates: %6d  bytes: %8d  %s\n",
			info.ID, info.BaseClock, info.Updates, info.UpdateBytes+info.StateBytes, info.Name)
	}
	return nil
}

func runVerify(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	docs := document.New(m.db, crdt.NewFactory(0), nil)
	names := []string(c.Args())
	if 0 == len(names) {
		list, err := docs.ListDocs()
		if nil != err {
			return err
		}
		for _, item := range list {
			names = append(names, item.Name)
		}
	}

	failed := 0
	for _, name := range names {
		if err := verifyDocument(m.w, docs, snapshot.NewStore(m.db), name, m.verbose); nil != err {
			fmt.Fprintf(m.w, "FAIL  %s: %s\n", name, err)
			failed += 1
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(names))
	}
	fmt.Fprintf(m.w, "verified: %d documents\n", len(names))
	return nil
}

func verifyDocument(w io.Writer, docs *document.Store, snapshots *snapshot.Store, name string, verbose bool) error {
	replayed, err := docs.Replay(name)
	if nil != err {
		return err
	}

	list, err := snapshots.List(name)
	if nil != err {
		return err
	}
	for _, info := range list {
		if _, err := snapshots.Get(name, info.Clock); nil != err {
			return fmt.Errorf("snapshot clock: %d: %s", info.Clock, err)
		}
	}

	if verbose {
		fmt.Fprintf(w, "ok    %s  updates: %d  snapshots: %d\n", name, replayed.Updates, len(list))
	}
	return nil
}

// dump hex data
func hexDump(w io.Writer, prefix string, suffix string, data []byte) {
	address := 0
	const bytesPerLine = 32
	for i := 0; i < len(data); i += bytesPerLine {
		fmt.Fprintf(w, "%s%04x  ", prefix, address)
		address += bytesPerLine
		for j := 0; j < bytesPerLine; j += 1 {
			if bytesPerLine/2 == j {
				fmt.Fprintf(w, " ")
			}
			if i+j < len(data) {
				fmt.Fprintf(w, "%02x ", data[i+j])
			} else {
				fmt.Fprintf(w, "   ")
			}
		}
		fmt.Fprintf(w, " |")
		for j := 0; j < bytesPerLine && i+j < len(data); j += 1 {
			c := data[i+j]
			if c < 32 || c >= 127 {
				c = '.'
			}
			fmt.Fprintf(w, "%c", c)
		}
		fmt.Fprintf(w, "|%s\n", suffix)
	}
}
