// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

import (
	"errors"
)

// GenericError - error base
type GenericError string

// to allow for different classes of errors
type BusyError GenericError
type CorruptionError GenericError
type EncodingError GenericError
type ExistsError GenericError
type FatalError GenericError
type InvalidError GenericError
type InvariantError GenericError
type NotFoundError GenericError
type ProcessError GenericError

// common errors - keep in alphabetic order
var (
	ErrAlreadyInitialised      = ExistsError("already initialised")
	ErrClockExhausted          = InvariantError("document update clock exhausted")
	ErrClockMovedBackwards     = FatalError("system clock moved backwards")
	ErrDatabaseVersion         = InvalidError("database version is newer than this program")
	ErrDocumentExists          = ExistsError("document already exists")
	ErrDocumentNotFound        = NotFoundError("document not found")
	ErrDuplicateClock          = InvariantError("duplicate update clock")
	ErrEmptyDocument           = NotFoundError("document has no updates")
	ErrIdentifierExhausted     = InvariantError("identifier space exhausted")
	ErrInvalidBackend          = InvalidError("invalid storage backend")
	ErrInvalidCount            = InvalidError("invalid count")
	ErrInvalidConfiguration    = InvalidError("configuration file must return a table")
	ErrInvalidCursor           = InvalidError("invalid cursor")
	ErrInvalidDocumentName     = InvalidError("invalid document name")
	ErrInvalidKey              = InvalidError("invalid key")
	ErrInvalidLength           = InvalidError("invalid length")
	ErrInvalidLoggerChannel    = InvalidError("invalid logger channel")
	ErrInvalidNodeID           = InvalidError("node id does not fit the layout")
	ErrInvalidStructPointer    = InvalidError("invalid struct pointer")
	ErrMalformedRecord         = EncodingError("malformed record")
	ErrMalformedStateVector    = EncodingError("malformed state vector")
	ErrMalformedUpdate         = EncodingError("malformed update")
	ErrNotLoaded               = ProcessError("document has not finished loading")
	ErrPoolStopped             = ProcessError("worker pool is stopped")
	ErrQueueFull               = BusyError("job queue is full")
	ErrSnapshotChecksum        = CorruptionError("snapshot digest mismatch")
	ErrSnapshotExists          = ExistsError("snapshot already exists at this clock")
	ErrSnapshotInProgress      = BusyError("snapshot already in progress")
	ErrSnapshotNotFound        = NotFoundError("snapshot not found")
	ErrStorageBusy             = BusyError("storage is busy")
	ErrStorageClosed           = ProcessError("storage is closed")
	ErrStorageCorrupted        = CorruptionError("storage data is corrupted")
	ErrStorageIO               = BusyError("storage input/output failure")
	ErrTransactionReadOnly     = InvalidError("write in read-only transaction")
	ErrUnexpectedNilDocument   = InvalidError("document runtime is nil")
	ErrUnsupportedStateVersion = EncodingError("unsupported state record version")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e BusyError) Error() string       { return string(e) }
func (e CorruptionError) Error() string { return string(e) }
func (e EncodingError) Error() string   { return string(e) }
func (e ExistsError) Error() string     { return string(e) }
func (e FatalError) Error() string      { return string(e) }
func (e InvalidError) Error() string    { return string(e) }
func (e InvariantError) Error() string  { return string(e) }
func (e NotFoundError) Error() string   { return string(e) }
func (e ProcessError) Error() string    { return string(e) }

// determine the class of an error, wrapped errors are unwrapped
func IsErrBusy(e error) bool       { var t BusyError; return errors.As(e, &t) }
func IsErrCorruption(e error) bool { var t CorruptionError; return errors.As(e, &t) }
func IsErrEncoding(e error) bool   { var t EncodingError; return errors.As(e, &t) }
func IsErrExists(e error) bool     { var t ExistsError; return errors.As(e, &t) }
func IsErrFatal(e error) bool      { var t FatalError; return errors.As(e, &t) }
func IsErrInvalid(e error) bool    { var t InvalidError; return errors.As(e, &t) }
func IsErrInvariant(e error) bool  { var t InvariantError; return errors.As(e, &t) }
func IsErrNotFound(e error) bool   { var t NotFoundError; return errors.As(e, &t) }
func IsErrProcess(e error) bool    { var t ProcessError; return errors.As(e, &t) }

// IsRetryable - only busy class errors can succeed on a later attempt
func IsRetryable(e error) bool {
	return IsErrBusy(e)
}
