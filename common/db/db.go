// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package db key value backends for the root state
package db

import (
	"bytes"

	"github.com/33cn/dispatch/common/log"
	"github.com/pkg/errors"
)

var dlog = log.New("module", "db")

// ErrNotFoundInDb key absent
var ErrNotFoundInDb = errors.New("ErrNotFoundInDb")

// DB key value store
type DB interface {
	Get([]byte) ([]byte, error)
	Set([]byte, []byte) error
	Delete([]byte) error
	Close()
	NewBatch(sync bool) Batch
	// Iterator ascending iteration over the keys starting with prefix
	Iterator(prefix []byte) Iterator
}

// Batch atomic group of writes
type Batch interface {
	Set(key, value []byte)
	Delete(key []byte)
	Write() error
	ValueSize() int
	Reset()
}

// Iterator leveldb style iterator, Next must be called before the first Key
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// backend names
const (
	LevelDBBackendStr    = "leveldb" // legacy, defaults to goleveldb.
	GoLevelDBBackendStr  = "goleveldb"
	MemDBBackendStr      = "memdb"
	GoBadgerDBBackendStr = "gobadgerdb"
)

type dbCreator func(name string, dir string, cache int) (DB, error)

var backends = map[string]dbCreator{}

func registerDBCreator(backend string, creator dbCreator, force bool) {
	_, ok := backends[backend]
	if !force && ok {
		return
	}
	backends[backend] = creator
}

// OpenDB opens the named backend
func OpenDB(name string, backend string, dir string, cache int) (DB, error) {
	creator, ok := backends[backend]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBackend, "backend %s", backend)
	}
	db, err := creator(name, dir, cache)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s in %s", name, dir)
	}
	return db, nil
}

// ErrUnknownBackend no creator registered under that name
var ErrUnknownBackend = errors.New("ErrUnknownBackend")

// CopyBytes copies b, nil stays nil
func CopyBytes(b []byte) (copiedBytes []byte) {
	if b == nil {
		return nil
	}
	copiedBytes = make([]byte, len(b))
	copy(copiedBytes, b)
	return copiedBytes
}

// PrefixScan keys and values under prefix, in key order
func PrefixScan(db DB, prefix []byte) (keys [][]byte, values [][]byte, err error) {
	it := db.Iterator(prefix)
	defer it.Release()
	for it.Next() {
		if !bytes.HasPrefix(it.Key(), prefix) {
			break
		}
		keys = append(keys, CopyBytes(it.Key()))
		values = append(values, CopyBytes(it.Value()))
	}
	return keys, values, it.Error()
}
