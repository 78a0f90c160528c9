// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

import (
	"fmt"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
)

// time allowed for the final log message to reach the file
const flushDelay = 100 * time.Millisecond

// hold a logger channel for the last attempt to log something
var panicLog struct {
	sync.Mutex
	log *logger.L
}

// Initialise - setup a log channel, logger must already be running
func Initialise() error {
	panicLog.Lock()
	defer panicLog.Unlock()

	if nil != panicLog.log {
		return ErrAlreadyInitialised
	}
	panicLog.log = logger.New("PANIC")
	if nil == panicLog.log {
		return ErrInvalidLoggerChannel
	}
	return nil
}

// Finalise - flush any data
func Finalise() {
	panicLog.Lock()
	defer panicLog.Unlock()

	if nil != panicLog.log {
		panicLog.log.Flush()
		panicLog.log = nil
	}
}

// Panic - final panic
func Panic(message string) {
	criticalf("%s", message)
	time.Sleep(flushDelay)
	panic(message)
}

// PanicWithError - final panic including the error text
func PanicWithError(message string, err error) {
	s := fmt.Sprintf("%s failed with error: %v", message, err)
	criticalf("%s", s)
	time.Sleep(flushDelay)
	panic(s)
}

// PanicIfError - conditional panic
func PanicIfError(message string, err error) {
	if nil == err {
		return
	}
	PanicWithError(message, err)
}

// PanicIfFatal - panic only for the fatal class, other errors are
// returned to the caller unchanged
func PanicIfFatal(message string, err error) error {
	if IsErrFatal(err) {
		PanicWithError(message, err)
	}
	return err
}

// handle an uninitialised logger channel
func criticalf(format string, arguments ...interface{}) {
	panicLog.Lock()
	log := panicLog.log
	panicLog.Unlock()

	if nil == log {
		fmt.Printf("*** "+format+"\n", arguments...)
		return
	}
	log.Criticalf(format, arguments...)
	log.Flush()
}
