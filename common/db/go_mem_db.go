// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package db

import (
	"bytes"
	"sort"
	"sync"
)

func init() {
	dbCreator := func(name string, dir string, cache int) (DB, error) {
		return NewGoMemDB(name, dir, cache)
	}
	registerDBCreator(MemDBBackendStr, dbCreator, false)
}

// GoMemDB map backed db
type GoMemDB struct {
	db   map[string][]byte
	lock sync.RWMutex
}

// NewGoMemDB new memdb
func NewGoMemDB(name string, dir string, cache int) (*GoMemDB, error) {
	// memdb 不需要创建文件
	return &GoMemDB{
		db: make(map[string][]byte),
	}, nil
}

// Get value of key or ErrNotFoundInDb
func (db *GoMemDB) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if entry, ok := db.db[string(key)]; ok {
		return CopyBytes(entry), nil
	}
	return nil, ErrNotFoundInDb
}

// Set puts key
func (db *GoMemDB) Set(key []byte, value []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()
	db.db[string(key)] = CopyBytes(value)
	return nil
}

// Delete removes key
func (db *GoMemDB) Delete(key []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()
	delete(db.db, string(key))
	return nil
}

// Close nothing to release
func (db *GoMemDB) Close() {
}

// Iterator snapshot of the keys under prefix, sorted
func (db *GoMemDB) Iterator(prefix []byte) Iterator {
	db.lock.RLock()
	defer db.lock.RUnlock()
	it := &goMemDBIt{index: -1}
	for k, v := range db.db {
		if bytes.HasPrefix([]byte(k), prefix) {
			it.keys = append(it.keys, k)
			it.values = append(it.values, CopyBytes(v))
		}
	}
	sort.Sort(it)
	return it
}

type goMemDBIt struct {
	keys   []string
	values [][]byte
	index  int
}

func (it *goMemDBIt) Len() int           { return len(it.keys) }
func (it *goMemDBIt) Less(i, j int) bool { return it.keys[i] < it.keys[j] }
func (it *goMemDBIt) Swap(i, j int) {
	it.keys[i], it.keys[j] = it.keys[j], it.keys[i]
	it.values[i], it.values[j] = it.values[j], it.values[i]
}

func (it *goMemDBIt) Next() bool {
	it.index++
	return it.index < len(it.keys)
}

func (it *goMemDBIt) Key() []byte {
	return []byte(it.keys[it.index])
}

func (it *goMemDBIt) Value() []byte {
	return it.values[it.index]
}

func (it *goMemDBIt) Release() {
	it.keys = nil
	it.values = nil
}

func (it *goMemDBIt) Error() error {
	return nil
}

type kv struct {
	k, v []byte
}

type memBatch struct {
	db     *GoMemDB
	writes []kv
	size   int
}

// NewBatch new batch
func (db *GoMemDB) NewBatch(sync bool) Batch {
	return &memBatch{db: db}
}

func (b *memBatch) Set(key, value []byte) {
	b.writes = append(b.writes, kv{CopyBytes(key), CopyBytes(value)})
	b.size += len(value)
}

func (b *memBatch) Delete(key []byte) {
	b.writes = append(b.writes, kv{CopyBytes(key), nil})
	b.size++
}

func (b *memBatch) Write() error {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()
	for _, kv := range b.writes {
		if kv.v == nil {
			delete(b.db.db, string(kv.k))
		} else {
			b.db.db[string(kv.k)] = kv.v
		}
	}
	return nil
}

func (b *memBatch) ValueSize() int {
	return b.size
}

func (b *memBatch) Reset() {
	b.writes = b.writes[:0]
	b.size = 0
}
