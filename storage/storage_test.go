// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/collabd/fault"
	"github.com/bitmark-inc/collabd/keys"
	"github.com/bitmark-inc/collabd/storage"
)

func TestGetPutHas(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		fill(t, store)

		err := store.View(func(r storage.Reader) error {
			for _, e := range testElements {
				value, err := r.Get(e.Key)
				assert.Nil(t, err, "get error")
				assert.Equal(t, e.Value, value, "key: %s", e.Key)

				found, err := r.Has(e.Key)
				assert.Nil(t, err, "has error")
				assert.True(t, found, "key: %s not found", e.Key)
			}

			value, err := r.Get([]byte("/nonexistent"))
			assert.Nil(t, err, "missing key error")
			assert.Nil(t, value, "missing key has value")

			found, err := r.Has([]byte("/nonexistent"))
			assert.Nil(t, err, "missing key has error")
			assert.False(t, found, "missing key found")
			return nil
		})
		assert.Nil(t, err, "view error")
	})
}

func TestIteratorOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		fill(t, store)
		assert.Equal(t, expectedElements, collect(t, store, userRange()), "wrong order")
	})
}

func TestIteratorBounds(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		fill(t, store)

		four := []byte("key-four")
		six := []byte("key-six")

		tests := []struct {
			name     string
			r        storage.Range
			expected []storage.Element
		}{
			{"inclusive", storage.Inclusive(four, six), expectedElements[1:5]},
			{"exclusive start", storage.Range{Start: storage.Exclude(four), End: storage.Include(six)}, expectedElements[2:5]},
			{"exclusive end", storage.Range{Start: storage.Include(four), End: storage.Exclude(six)}, expectedElements[1:4]},
			{"both exclusive", storage.Range{Start: storage.Exclude(four), End: storage.Exclude(six)}, expectedElements[2:4]},
			{"open end", storage.Range{Start: storage.Include(six), End: storage.Unbound()}, expectedElements[4:]},
			{"absent keys", storage.Inclusive([]byte("key-g"), []byte("key-p")), expectedElements[2:3]},
			{"inverted", storage.Inclusive(six, four), []storage.Element{}},
			{"single", storage.Inclusive(four, four), expectedElements[1:2]},
			{"empty exclusive", storage.Range{Start: storage.Include(four), End: storage.Exclude(four)}, []storage.Element{}},
		}

		for _, item := range tests {
			actual := collect(t, store, item.r)
			assert.Equal(t, item.expected, actual, "range: %s", item.name)
		}
	})
}

func TestNextBackEntry(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		err := store.Update(func(tx storage.Transaction) error {
			for _, c := range []keys.Clock{1, 2, 5} {
				if err := tx.Put(keys.DocUpdateKey(7, c), []byte{byte(c)}); nil != err {
					return err
				}
				if err := tx.Put(keys.DocUpdateKey(8, c+10), []byte{byte(c + 10)}); nil != err {
					return err
				}
			}
			return nil
		})
		require.Nil(t, err, "fill error")

		err = store.View(func(r storage.Reader) error {
			_, end := keys.DocUpdateRange(7)
			e, err := r.NextBackEntry(end)
			require.Nil(t, err, "seek error")
			require.NotNil(t, e, "nothing found")
			clock, ok := keys.DecodeUpdateClock(7, e.Key)
			assert.True(t, ok, "not an update of 7: %x", e.Key)
			assert.Equal(t, keys.Clock(5), clock, "wrong max clock")
			assert.Equal(t, []byte{5}, e.Value, "wrong value")

			// exact match
			e, err = r.NextBackEntry(keys.DocUpdateKey(7, 2))
			require.Nil(t, err, "exact seek error")
			require.NotNil(t, e, "exact not found")
			assert.Equal(t, keys.DocUpdateKey(7, 2), e.Key, "exact key")

			// between entries
			e, err = r.NextBackEntry(keys.DocUpdateKey(7, 4))
			require.Nil(t, err, "between seek error")
			require.NotNil(t, e, "between not found")
			assert.Equal(t, keys.DocUpdateKey(7, 2), e.Key, "between key")

			// past the last key
			e, err = r.NextBackEntry([]byte{0xff, 0xff})
			require.Nil(t, err, "last seek error")
			require.NotNil(t, e, "last not found")
			assert.Equal(t, keys.DocUpdateKey(8, 15), e.Key, "last key")

			// a document without updates sees the previous document
			_, end = keys.DocUpdateRange(9)
			e, err = r.NextBackEntry(end)
			require.Nil(t, err, "empty seek error")
			require.NotNil(t, e, "empty not found")
			_, ok = keys.DecodeUpdateClock(9, e.Key)
			assert.False(t, ok, "foreign key decoded as own update")

			// before the first key
			e, err = r.NextBackEntry([]byte{0x00})
			assert.Nil(t, err, "first seek error")
			assert.Nil(t, e, "found entry before first key")
			return nil
		})
		assert.Nil(t, err, "view error")
	})
}

func TestReadYourWrites(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		fill(t, store)

		err := store.Update(func(tx storage.Transaction) error {
			require.Nil(t, tx.Put([]byte("key-zzz"), []byte("data-zzz")), "put")
			require.Nil(t, tx.Delete([]byte("key-one")), "delete")

			value, err := tx.Get([]byte("key-zzz"))
			require.Nil(t, err, "get")
			assert.Equal(t, []byte("data-zzz"), value, "uncommitted value")

			found, err := tx.Has([]byte("key-one"))
			require.Nil(t, err, "has")
			assert.False(t, found, "deleted key visible")

			e, err := tx.NextBackEntry([]byte{0xff})
			require.Nil(t, err, "seek")
			require.NotNil(t, e, "seek found nothing")
			assert.Equal(t, []byte("key-zzz"), e.Key, "uncommitted key not last")

			iter := tx.Iterator(userRange())
			n := 0
			for iter.Next() {
				n += 1
			}
			iter.Release()
			assert.Nil(t, iter.Error(), "iterator error")
			assert.Equal(t, len(testElements), n, "wrong count")
			return nil
		})
		assert.Nil(t, err, "update error")
	})
}

func TestUpdateRollsBackOnError(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		fill(t, store)

		failure := errors.New("abandon")
		err := store.Update(func(tx storage.Transaction) error {
			if err := tx.Put([]byte("key-new"), []byte("x")); nil != err {
				return err
			}
			if err := tx.Delete([]byte("key-one")); nil != err {
				return err
			}
			return failure
		})
		assert.Equal(t, failure, err, "error not returned unchanged")
		assert.Equal(t, expectedElements, collect(t, store, userRange()), "rollback failed")
	})
}

func TestUpdateRollsBackOnPanic(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		fill(t, store)

		assert.Panics(t, func() {
			_ = store.Update(func(tx storage.Transaction) error {
				_ = tx.Put([]byte("key-new"), []byte("x"))
				panic("abandon")
			})
		}, "no panic")

		assert.Equal(t, expectedElements, collect(t, store, userRange()), "rollback failed")

		// the store is still writable
		err := store.Update(func(tx storage.Transaction) error {
			return tx.Put([]byte("key-after"), []byte("y"))
		})
		assert.Nil(t, err, "update after panic")
	})
}

func TestDeleteRange(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		fill(t, store)

		err := store.Update(func(tx storage.Transaction) error {
			return tx.DeleteRange([]byte("key-four"), []byte("key-seven"))
		})
		require.Nil(t, err, "delete range error")

		expected := []storage.Element{
			expectedElements[0],
			expectedElements[4],
			expectedElements[5],
			expectedElements[6],
		}
		assert.Equal(t, expected, collect(t, store, userRange()), "wrong remainder")

		// nothing in range
		err = store.Update(func(tx storage.Transaction) error {
			return tx.DeleteRange([]byte("key-a"), []byte("key-b"))
		})
		assert.Nil(t, err, "empty delete range error")
	})
}

func TestConcurrentMaxPlusOne(t *testing.T) {
	const writers = 40
	const doc = keys.DocID(1)

	forEachBackend(t, func(t *testing.T, store storage.Store) {
		_, end := keys.DocUpdateRange(doc)

		var wg sync.WaitGroup
		for i := 0; i < writers; i += 1 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.Update(func(tx storage.Transaction) error {
					next := keys.Clock(1)
					e, err := tx.NextBackEntry(end)
					if nil != err {
						return err
					}
					if nil != e {
						if last, ok := keys.DecodeUpdateClock(doc, e.Key); ok {
							next = last + 1
						}
					}
					found, err := tx.Has(keys.DocUpdateKey(doc, next))
					if nil != err {
						return err
					}
					if found {
						return fault.ErrDuplicateClock
					}
					return tx.Put(keys.DocUpdateKey(doc, next), []byte{1})
				})
				if nil != err {
					t.Errorf("update error: %s", err)
				}
			}()
		}
		wg.Wait()

		start, _ := keys.DocUpdateRange(doc)
		elements := collect(t, store, storage.Inclusive(start, end))
		require.Equal(t, writers, len(elements), "wrong number of updates")
		for i, e := range elements {
			clock, ok := keys.DecodeUpdateClock(doc, e.Key)
			assert.True(t, ok, "bad key: %x", e.Key)
			assert.Equal(t, keys.Clock(i+1), clock, "clock gap at: %d", i)
		}
	})
}

func TestVersionIsWritten(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		version, err := storage.Version(store)
		assert.Nil(t, err, "version error")
		assert.Equal(t, storage.CurrentVersion, version, "wrong version")
	})
}

func TestNewerVersionIsRefused(t *testing.T) {
	for _, backend := range []string{storage.BackendLevelDB, storage.BackendBolt} {
		t.Run(backend, func(t *testing.T) {
			config := configFor(t, backend)

			store, err := storage.Open(config, storage.ReadWrite)
			require.Nil(t, err, "open error")
			err = store.Update(func(tx storage.Transaction) error {
				return tx.Put([]byte{0x00, 'V', 'E', 'R', 'S', 'I', 'O', 'N'}, []byte{0, 0, 0x7f, 0})
			})
			require.Nil(t, err, "version put error")
			require.Nil(t, store.Close(), "close error")

			_, err = storage.Open(config, storage.ReadWrite)
			assert.Equal(t, fault.ErrDatabaseVersion, err, "newer version accepted")
		})
	}
}

func TestReadOnly(t *testing.T) {
	for _, backend := range []string{storage.BackendLevelDB, storage.BackendBolt} {
		t.Run(backend, func(t *testing.T) {
			config := configFor(t, backend)

			store, err := storage.Open(config, storage.ReadWrite)
			require.Nil(t, err, "open error")
			fill(t, store)
			require.Nil(t, store.Close(), "close error")

			store, err = storage.Open(config, storage.ReadOnly)
			require.Nil(t, err, "read only open error")
			defer store.Close()

			assert.Equal(t, expectedElements, collect(t, store, userRange()), "read only contents")

			err = store.Update(func(tx storage.Transaction) error {
				return tx.Put([]byte("key-x"), []byte("x"))
			})
			assert.Equal(t, fault.ErrTransactionReadOnly, err, "write allowed")
		})
	}
}

func TestInvalidBackend(t *testing.T) {
	_, err := storage.Open(storage.Configuration{
		Directory: testingDirName,
		Name:      "x",
		Backend:   "nosuch",
	}, storage.ReadWrite)
	assert.True(t, fault.IsErrInvalid(err), "wrong error: %v", err)
}

func TestClosedMemoryStore(t *testing.T) {
	store := storage.NewMemory()
	require.Nil(t, store.Close(), "close error")

	err := store.View(func(storage.Reader) error { return nil })
	assert.Equal(t, fault.ErrStorageClosed, err, "view after close")
	err = store.Update(func(storage.Transaction) error { return nil })
	assert.Equal(t, fault.ErrStorageClosed, err, "update after close")
}

// fails with a busy error a number of times
type busyStore struct {
	storage.Store
	failures int
	calls    int
}

func (s *busyStore) Update(f func(storage.Transaction) error) error {
	s.calls += 1
	if s.calls <= s.failures {
		return fault.ErrStorageBusy
	}
	return s.Store.Update(f)
}

func TestUpdateRetry(t *testing.T) {
	store := &busyStore{Store: storage.NewMemory(), failures: 2}
	err := storage.UpdateRetry(store, 3, func(tx storage.Transaction) error {
		return tx.Put([]byte("key"), []byte("value"))
	})
	assert.Nil(t, err, "retry did not succeed")
	assert.Equal(t, 3, store.calls, "wrong number of attempts")

	store = &busyStore{Store: storage.NewMemory(), failures: 5}
	err = storage.UpdateRetry(store, 2, func(tx storage.Transaction) error { return nil })
	assert.Equal(t, fault.ErrStorageBusy, err, "busy error not returned")
	assert.Equal(t, 2, store.calls, "wrong number of attempts")

	// other errors are not retried
	store = &busyStore{Store: storage.NewMemory()}
	err = storage.UpdateRetry(store, 5, func(tx storage.Transaction) error { return fault.ErrInvalidKey })
	assert.Equal(t, fault.ErrInvalidKey, err, "wrong error")
	assert.Equal(t, 1, store.calls, "invalid error retried")
}
