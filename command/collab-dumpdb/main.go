// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/logger"
	"github.com/urfave/cli"

	"github.com/bitmark-inc/collabd/storage"
)

type metadata struct {
	db      storage.Store
	colour  bool
	verbose bool
	w       io.Writer
}

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()

	app := cli.NewApp()
	app.Name = "collab-dumpdb"
	app.Usage = "inspect a collabd database"
	app.Version = version

	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: " verbose result",
		},
		cli.BoolFlag{
			Name:  "colour, g",
			Usage: " colour the output",
		},
		cli.StringFlag{
			Name:  "directory, d",
			Value: ".",
			Usage: " database `DIRECTORY`",
		},
		cli.StringFlag{
			Name:  "name, n",
			Value: "collabd",
			Usage: " database `NAME` without the backend suffix",
		},
		cli.StringFlag{
			Name:  "backend, b",
			Value: storage.BackendLevelDB,
			Usage: " storage `BACKEND` [leveldb|badger|bolt]",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "keys",
			Usage:     "dump raw keys and values",
			ArgsUsage: "[HEX-PREFIX]",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "count, c",
					Value: 10,
					Usage: " maximum number of `COUNT` records",
				},
				cli.BoolFlag{
					Name:  "ascii, a",
					Usage: " hex dump values with ASCII",
				},
				cli.BoolFlag{
					Name:  "early, e",
					Usage: " stop when the prefix no longer matches",
				},
			},
			Action: runKeys,
		},
		{
			Name:   "docs",
			Usage:  "list documents with their clocks",
			Action: runDocs,
		},
		{
			Name:      "verify",
			Usage:     "replay every document and check every snapshot digest",
			ArgsUsage: "[NAME...]",
			Action:    runVerify,
		},
	}

	app.Before = func(c *cli.Context) error {
		logging := logger.Configuration{
			Directory: os.TempDir(),
			File:      "collab-dumpdb.log",
			Size:      1048576,
			Count:     10,
			Console:   c.GlobalBool("verbose"),
			Levels: map[string]string{
				logger.DefaultTag: "critical",
			},
		}
		if err := logger.Initialise(logging); nil != err {
			return err
		}

		config := storage.Configuration{
			Directory: c.GlobalString("directory"),
			Name:      c.GlobalString("name"),
			Backend:   c.GlobalString("backend"),
		}
		if storage.BackendMemory == config.Backend {
			return fmt.Errorf("backend: %q has nothing to dump", config.Backend)
		}
		if c.GlobalBool("verbose") {
			fmt.Fprintf(c.App.ErrWriter, "open: %s\n", config.Path())
		}

		db, err := storage.Open(config, storage.ReadOnly)
		if nil != err {
			return err
		}

		c.App.Metadata = map[string]interface{}{
			"config": &metadata{
				db:      db,
				colour:  c.GlobalBool("colour"),
				verbose: c.GlobalBool("verbose"),
				w:       c.App.Writer,
			},
		}
		return nil
	}

	app.After = func(c *cli.Context) error {
		if m, ok := c.App.Metadata["config"].(*metadata); ok {
			m.db.Close()
		}
		logger.Finalise()
		return nil
	}

	err := app.Run(os.Args)
	if nil != err {
		exitwithstatus.Message("terminated with error: %s", err)
	}
}
