// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/bitmark-inc/exitwithstatus"

	"github.com/bitmark-inc/collabd/configuration"
	"github.com/bitmark-inc/collabd/crdt"
	"github.com/bitmark-inc/collabd/document"
	"github.com/bitmark-inc/collabd/idgen"
	"github.com/bitmark-inc/collabd/keys"
)

// setup command handler
//
// commands that need neither the configuration file nor the database
func processSetupCommand(program string, arguments []string) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
		arguments = arguments[1:]
	}

	switch command {
	case "decode-id", "did":
		if len(arguments) < 1 {
			exitwithstatus.Message("missing identifier argument")
		}
		for _, s := range arguments {
			id, err := idgen.Parse(s)
			if nil != err {
				exitwithstatus.Message("error: identifier: %q  error: %s", s, err)
			}
			layout, ok := idgen.LayoutOf(id)
			if !ok {
				exitwithstatus.Message("error: identifier: %q has no known layout", s)
			}
			parts := layout.Decode(id)
			printJSON(map[string]interface{}{
				"id":        id.String(),
				"layout":    layout.Name,
				"timestamp": parts.Timestamp,
				"node":      parts.Node,
				"sequence":  parts.Sequence,
			})
		}

	case "start", "run":
		return false // continue processing

	case "config-test", "cfg", "new-id", "id":
		return false // defer processing until configuration is read

	case "list", "ls", "info", "i", "get", "g", "set", "s", "delete-key", "dk",
		"flush", "f", "snapshot", "sn", "snapshots", "sns", "prune", "restore",
		"delete", "rm", "stats":
		return false // defer processing until database is opened

	case "version", "v":
		fmt.Printf("%s\n", version)
		return true

	default:
		switch command {
		case "help", "h", "?":
		case "", " ":
			fmt.Printf("error: missing command\n")
		default:
			fmt.Printf("error: no such command: %q\n", command)
		}
		fmt.Printf("usage: %s [--help] [--verbose] [--quiet] --config-file=FILE [[command|help] arguments...]\n", program)

		fmt.Printf("supported commands:\n\n")
		fmt.Printf("  help                       (h)      - display this message\n\n")
		fmt.Printf("  version                    (v)      - display version string\n\n")

		fmt.Printf("  decode-id ID...            (did)    - show the fields of generated identifiers\n")
		fmt.Printf("\n")

		fmt.Printf("  start                      (run)    - just run the program, same as no arguments\n")
		fmt.Printf("                                        for convenience when passing script arguments\n")
		fmt.Printf("\n")

		fmt.Printf("  config-test                (cfg)    - just check the configuration file\n")
		fmt.Printf("\n")

		fmt.Printf("  new-id [LAYOUT [COUNT]]    (id)     - generate identifiers: document, row or session\n")
		fmt.Printf("\n")

		fmt.Printf("  list                       (ls)     - list all documents\n")
		fmt.Printf("  info NAME...               (i)      - clocks and sizes of documents\n")
		fmt.Printf("  get NAME [KEY]             (g)      - show the replayed contents of a document\n")
		fmt.Printf("  set NAME KEY VALUE         (s)      - edit a document, creating it if needed\n")
		fmt.Printf("  delete-key NAME KEY        (dk)     - remove a key from a document\n")
		fmt.Printf("\n")

		fmt.Printf("  flush NAME...|--all        (f)      - fold the update log into the stored state\n")
		fmt.Printf("  snapshot NAME...           (sn)     - take a snapshot now\n")
		fmt.Printf("  snapshots NAME             (sns)    - list the snapshots of a document\n")
		fmt.Printf("  prune NAME KEEP                     - keep only the newest snapshots\n")
		fmt.Printf("  restore NAME CLOCK                  - make a snapshot the current state\n")
		fmt.Printf("  delete NAME...             (rm)     - delete documents and their snapshots\n")
		fmt.Printf("\n")

		fmt.Printf("  stats                               - print counters in prometheus text format\n")
		fmt.Printf("\n")

		exitwithstatus.Exit(1)
	}

	// indicate processing complete and perform normal exit from main
	return true
}

// configuration file enquiry commands
// have configuration file read and decoded, but nothing else
func processConfigCommand(arguments []string, options *configuration.Configuration) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
		arguments = arguments[1:]
	}

	switch command {
	case "config-test", "cfg":
		printJSON(options)

	case "new-id", "id":
		layout := idgen.DocumentLayout
		if len(arguments) > 0 {
			l, ok := idgen.LayoutByName(arguments[0])
			if !ok {
				exitwithstatus.Message("error: no such layout: %q", arguments[0])
			}
			layout = l
		}
		count := 1
		if len(arguments) > 1 {
			n, err := strconv.Atoi(arguments[1])
			if nil != err || n < 1 {
				exitwithstatus.Message("error: invalid count: %q", arguments[1])
			}
			count = n
		}

		g, err := idgen.New(layout, options.NodeID)
		if nil != err {
			exitwithstatus.Message("error: %s", err)
		}
		for i := 0; i < count; i += 1 {
			id, err := g.Next()
			if nil != err {
				exitwithstatus.Message("error: %s", err)
			}
			fmt.Printf("%s\n", id)
		}

	default: // unknown commands fall through to data command
		return false
	}

	// indicate processing complete and perform normal exit from main
	return true
}

// commands that only read the database
func isReadOnlyCommand(command string) bool {
	switch command {
	case "list", "ls", "info", "i", "get", "g", "snapshots", "sns", "stats":
		return true
	}
	return false
}

// data command handler
// the database is open so these commands can read and change documents
func processDataCommand(e *engine, arguments []string, options map[string][]string) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
		arguments = arguments[1:]
	}

	switch command {

	case "start", "run":
		return false // continue processing

	case "list", "ls":
		list, err := e.docs.ListDocs()
		if nil != err {
			exitwithstatus.Message("list error: %s", err)
		}
		for _, item := range list {
			fmt.Printf("%6d  %s\n", item.ID, item.Name)
		}

	case "info", "i":
		requireArguments(arguments, 1, "document name")
		for _, name := range arguments {
			info, err := e.docs.Info(name)
			if nil != err {
				exitwithstatus.Message("info: %q  error: %s", name, err)
			}
			printJSON(info)
		}

	case "get", "g":
		requireArguments(arguments, 1, "document name")
		doc := crdt.New(0)
		if err := e.docs.LoadDoc(arguments[0], doc); nil != err {
			exitwithstatus.Message("load: %q  error: %s", arguments[0], err)
		}
		if len(arguments) > 1 {
			value, ok := doc.Get(arguments[1])
			if !ok {
				exitwithstatus.Message("get: %q  no such key: %q", arguments[0], arguments[1])
			}
			fmt.Printf("%s\n", value)
			break
		}
		contents := make(map[string]string, doc.Len())
		for _, k := range doc.Keys() {
			value, _ := doc.Get(k)
			contents[k] = string(value)
		}
		printJSON(contents)

	case "set", "s":
		requireArguments(arguments, 3, "document name, key and value")
		edit(e, arguments[0], func(c *crdt.Collab) error {
			return c.Set(arguments[1], []byte(arguments[2]))
		})

	case "delete-key", "dk":
		requireArguments(arguments, 2, "document name and key")
		edit(e, arguments[0], func(c *crdt.Collab) error {
			return c.Delete(arguments[1])
		})

	case "flush", "f":
		names := arguments
		if len(options["all"]) > 0 {
			names = allNames(e)
		}
		requireArguments(names, 1, "document name")
		for _, name := range names {
			if err := e.docs.FlushDoc(name); nil != err {
				exitwithstatus.Message("flush: %q  error: %s", name, err)
			}
			fmt.Printf("flushed: %s\n", name)
		}

	case "snapshot", "sn":
		requireArguments(arguments, 1, "document name")
		for _, name := range arguments {
			clock, err := e.snapshots.Run(name)
			if nil != err {
				exitwithstatus.Message("snapshot: %q  error: %s", name, err)
			}
			fmt.Printf("snapshot: %s  clock: %d\n", name, clock)
		}

	case "snapshots", "sns":
		requireArguments(arguments, 1, "document name")
		list, err := e.snapshotStore().List(arguments[0])
		if nil != err {
			exitwithstatus.Message("snapshots: %q  error: %s", arguments[0], err)
		}
		printJSON(list)

	case "prune":
		requireArguments(arguments, 2, "document name and count")
		keep, err := strconv.Atoi(arguments[1])
		if nil != err {
			exitwithstatus.Message("error in count: %s", err)
		}
		n, err := e.snapshots.Store().Prune(arguments[0], keep)
		if nil != err {
			exitwithstatus.Message("prune: %q  error: %s", arguments[0], err)
		}
		fmt.Printf("deleted: %d\n", n)

	case "restore":
		requireArguments(arguments, 2, "document name and clock")
		clock, err := strconv.ParseUint(arguments[1], 10, 32)
		if nil != err {
			exitwithstatus.Message("error in clock: %s", err)
		}
		if err := e.snapshots.Restore(arguments[0], keys.Clock(clock)); nil != err {
			exitwithstatus.Message("restore: %q  error: %s", arguments[0], err)
		}
		fmt.Printf("restored: %s  clock: %d\n", arguments[0], clock)

	case "delete", "rm":
		requireArguments(arguments, 1, "document name")
		for _, name := range arguments {
			if err := e.docs.DeleteDoc(name); nil != err {
				exitwithstatus.Message("delete: %q  error: %s", name, err)
			}
			if err := e.snapshots.Forget(name); nil != err {
				exitwithstatus.Message("delete snapshots: %q  error: %s", name, err)
			}
			fmt.Printf("deleted: %s\n", name)
		}

	case "stats":
		total := document.Info{Name: "*"}
		names := allNames(e)
		for _, item := range names {
			info, err := e.docs.Info(item)
			if nil != err {
				exitwithstatus.Message("info: %q  error: %s", item, err)
			}
			total.Updates += info.Updates
			total.UpdateBytes += info.UpdateBytes
			total.StateBytes += info.StateBytes
		}
		fmt.Printf("# documents: %d  updates: %d  update bytes: %d  state bytes: %d\n",
			len(names), total.Updates, total.UpdateBytes, total.StateBytes)
		if err := e.metrics.WriteText(os.Stdout); nil != err {
			exitwithstatus.Message("stats error: %s", err)
		}

	default:
		exitwithstatus.Message("error: no such command: %s", command)

	}

	// indicate processing complete and perform normal exit from main
	return true
}

// open a document through its disk plugin and apply one edit
func edit(e *engine, name string, f func(c *crdt.Collab) error) {
	if err := document.ValidName(name); nil != err {
		exitwithstatus.Message("document: %q  error: %s", name, err)
	}
	c, err := e.open(name)
	if nil != err {
		exitwithstatus.Message("open: %q  error: %s", name, err)
	}
	if err := f(c); nil != err {
		exitwithstatus.Message("edit: %q  error: %s", name, err)
	}

	info, err := e.docs.Info(name)
	if nil != err {
		exitwithstatus.Message("info: %q  error: %s", name, err)
	}
	fmt.Printf("document: %s  clock: %d  updates: %d\n", name, info.LastClock, info.Updates)
}

func allNames(e *engine) []string {
	list, err := e.docs.ListDocs()
	if nil != err {
		exitwithstatus.Message("list error: %s", err)
	}
	names := make([]string, 0, len(list))
	for _, item := range list {
		names = append(names, item.Name)
	}
	sort.Strings(names)
	return names
}

func requireArguments(arguments []string, n int, what string) {
	if len(arguments) < n {
		exitwithstatus.Message("missing argument: %s", what)
	}
	for _, a := range arguments[:n] {
		if "" == a {
			exitwithstatus.Message("empty argument: %s", what)
		}
	}
}

func printJSON(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		exitwithstatus.Message("error: %s", err)
	}
	var out bytes.Buffer
	json.Indent(&out, b, "", "  ")
	out.WriteTo(os.Stdout)
	os.Stdout.WriteString("\n")
}
