// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package db

import (
	"fmt"
	"path/filepath"

	log "github.com/33cn/dispatch/common/log"
	"github.com/dgraph-io/badger"
)

var blog = dlog.New("backend", "gobadgerdb")

func init() {
	dbCreator := func(name string, dir string, cache int) (DB, error) {
		return NewGoBadgerDB(name, dir, cache)
	}
	registerDBCreator(GoBadgerDBBackendStr, dbCreator, false)
}

// badgerLogger routes badger's own logs into log15
type badgerLogger struct {
	l log.Logger
}

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Error(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warn(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Debug(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Debug(fmt.Sprintf(format, args...))
}

// GoBadgerDB badger backend
type GoBadgerDB struct {
	db *badger.DB
}

// NewGoBadgerDB opens dir/name.db
func NewGoBadgerDB(name string, dir string, cache int) (*GoBadgerDB, error) {
	opts := badger.DefaultOptions(filepath.Join(dir, name+".db")).WithLogger(badgerLogger{blog})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &GoBadgerDB{db: db}, nil
}

// Get value of key or ErrNotFoundInDb
func (db *GoBadgerDB) Get(key []byte) ([]byte, error) {
	var val []byte
	err := db.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFoundInDb
	}
	if err != nil {
		blog.Error("Get", "error", err)
		return nil, err
	}
	return val, nil
}

// Set puts key
func (db *GoBadgerDB) Set(key []byte, value []byte) error {
	err := db.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		blog.Error("Set", "error", err)
	}
	return err
}

// Delete removes key
func (db *GoBadgerDB) Delete(key []byte) error {
	err := db.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		blog.Error("Delete", "error", err)
	}
	return err
}

// Close closes the db
func (db *GoBadgerDB) Close() {
	if err := db.db.Close(); err != nil {
		blog.Error("Close", "error", err)
	}
}

// Iterator over prefix inside a read only transaction, released by Release
func (db *GoBadgerDB) Iterator(prefix []byte) Iterator {
	txn := db.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	return &goBadgerDBIt{txn: txn, it: txn.NewIterator(opts), prefix: prefix}
}

type goBadgerDBIt struct {
	txn     *badger.Txn
	it      *badger.Iterator
	prefix  []byte
	started bool
	err     error
}

func (it *goBadgerDBIt) Next() bool {
	if !it.started {
		it.started = true
		it.it.Seek(it.prefix)
	} else {
		it.it.Next()
	}
	return it.it.ValidForPrefix(it.prefix)
}

func (it *goBadgerDBIt) Key() []byte {
	return it.it.Item().KeyCopy(nil)
}

func (it *goBadgerDBIt) Value() []byte {
	v, err := it.it.Item().ValueCopy(nil)
	if err != nil {
		it.err = err
		return nil
	}
	return v
}

func (it *goBadgerDBIt) Release() {
	it.it.Close()
	it.txn.Discard()
}

func (it *goBadgerDBIt) Error() error {
	return it.err
}

// NewBatch badger write batch
func (db *GoBadgerDB) NewBatch(sync bool) Batch {
	return &goBadgerDBBatch{db: db, batch: db.db.NewWriteBatch()}
}

type goBadgerDBBatch struct {
	db    *GoBadgerDB
	batch *badger.WriteBatch
	size  int
	err   error
}

func (mBatch *goBadgerDBBatch) Set(key, value []byte) {
	if err := mBatch.batch.Set(CopyBytes(key), CopyBytes(value)); err != nil && mBatch.err == nil {
		mBatch.err = err
	}
	mBatch.size += len(value)
}

func (mBatch *goBadgerDBBatch) Delete(key []byte) {
	if err := mBatch.batch.Delete(CopyBytes(key)); err != nil && mBatch.err == nil {
		mBatch.err = err
	}
	mBatch.size++
}

func (mBatch *goBadgerDBBatch) Write() error {
	if mBatch.err != nil {
		mBatch.batch.Cancel()
		return mBatch.err
	}
	err := mBatch.batch.Flush()
	if err != nil {
		blog.Error("Write", "error", err)
	}
	return err
}

func (mBatch *goBadgerDBBatch) ValueSize() int {
	return mBatch.size
}

func (mBatch *goBadgerDBBatch) Reset() {
	mBatch.batch.Cancel()
	mBatch.batch = mBatch.db.db.NewWriteBatch()
	mBatch.size = 0
	mBatch.err = nil
}
