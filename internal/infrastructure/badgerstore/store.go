// Package badgerstore is an embedded document store for accounts and the
// transaction log built on BadgerDB. Every conditional mutation runs in a
// single optimistic Badger transaction, which gives the same per-document
// atomicity the Postgres store gets from row locks.
package badgerstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"

	"bankapi/internal/shared/apperr"
)

const (
	// maxConflictRetries bounds how often a transaction is replayed after
	// Badger reports a write conflict with a concurrent transaction.
	maxConflictRetries = 32

	// Writers to the same document key queue on one of lockStripes mutexes,
	// so conflicts only arise between writers of different keys that touch
	// a shared key.
	lockStripes = 256

	minConflictBackoff = time.Millisecond
	maxConflictBackoff = 64 * time.Millisecond
)

// ErrContention is returned when a transaction kept conflicting.
var ErrContention = errors.New("badger: too much contention on key")

// DB wraps an open Badger database shared by the repositories.
type DB struct {
	db    *badger.DB
	locks [lockStripes]sync.Mutex
}

// Open opens (or creates) a Badger database at path.
func Open(path string) (*DB, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	return open(opts)
}

// OpenInMemory opens a Badger database that lives only in memory.
func OpenInMemory() (*DB, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*DB, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// update runs fn in a read-write transaction while holding the write lock
// for key, the document fn mutates. A conflict is replayed after a jittered
// exponential backoff. fn must derive everything it writes from reads made
// through txn.
func (d *DB) update(key []byte, fn func(txn *badger.Txn) error) error {
	mu := d.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	backoff := minConflictBackoff
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err := d.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return classify(err)
		}
		time.Sleep(jitter(backoff))
		backoff = min(backoff*2, maxConflictBackoff)
	}
	return apperr.Unavailable(ErrContention)
}

func (d *DB) lockFor(key []byte) *sync.Mutex {
	h := fnv.New32a()
	h.Write(key)
	return &d.locks[h.Sum32()%lockStripes]
}

// jitter returns a duration in [d/2, d*3/2).
func jitter(d time.Duration) time.Duration {
	return d/2 + rand.N(d)
}

func (d *DB) view(fn func(txn *badger.Txn) error) error {
	return classify(d.db.View(fn))
}

func classify(err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		return apperr.Unavailable(err)
	}
	return err
}

// Keys are zero-padded so lexical order matches numeric order.

func accountKey(id int64) []byte {
	return []byte(fmt.Sprintf("account:%020d", id))
}

var accountPrefix = []byte("account:")

func txnPrefix(accountID int64) []byte {
	return []byte(fmt.Sprintf("txn:%020d:", accountID))
}

func txnKey(accountID int64, seq uint64) []byte {
	return []byte(fmt.Sprintf("txn:%020d:%020d", accountID, seq))
}

func txnSeqKey(accountID int64) []byte {
	return []byte(fmt.Sprintf("txnseq:%020d", accountID))
}

func sequenceKey(namespace string) []byte {
	return []byte("seq:" + namespace)
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, val)
}

// getCounter reads a decimal counter, treating an absent key as zero.
func getCounter(txn *badger.Txn, key []byte) (uint64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var n uint64
	err = item.Value(func(val []byte) error {
		n, err = strconv.ParseUint(string(val), 10, 64)
		return err
	})
	return n, err
}

func setCounter(txn *badger.Txn, key []byte, n uint64) error {
	return txn.Set(key, []byte(strconv.FormatUint(n, 10)))
}
