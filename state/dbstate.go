// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package state

import (
	"sort"

	"github.com/33cn/dispatch/common/db"
	"github.com/33cn/dispatch/types"
	"github.com/pkg/errors"
)

// DBState root state of the node backed by a db. Writes are held until Flush, which writes
// them in one batch.
type DBState struct {
	db        db.DB
	pending   *WrappedState
	listeners []ChangeListener
}

type dbReader struct {
	db db.DB
}

func (r dbReader) Get(service, key string) ([]byte, error) {
	v, err := r.db.Get([]byte(compositeKey(service, key)))
	if err == db.ErrNotFoundInDb {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "state get %s/%s", service, key)
	}
	return v, nil
}

// NewDBState root state over d
func NewDBState(d db.DB) *DBState {
	return &DBState{db: d, pending: NewWrappedState(dbReader{d})}
}

// AddListener called for every write that reaches the root
func (s *DBState) AddListener(l ChangeListener) {
	s.listeners = append(s.listeners, l)
}

// Get pending value or the stored one
func (s *DBState) Get(service, key string) ([]byte, error) {
	return s.pending.Get(service, key)
}

// Put write to the root
func (s *DBState) Put(service, key string, value []byte) {
	s.pending.Put(service, key, value)
	s.notify(StateChange{Service: service, Key: key, Value: value})
}

// Remove delete from the root
func (s *DBState) Remove(service, key string) {
	s.pending.Remove(service, key)
	s.notify(StateChange{Service: service, Key: key, Deleted: true})
}

func (s *DBState) notify(c StateChange) {
	for _, l := range s.listeners {
		l(c)
	}
}

// Flush persists pending writes
func (s *DBState) Flush() error {
	changes := s.pending.Changes()
	if len(changes) == 0 {
		return nil
	}
	batch := s.db.NewBatch(true)
	for _, c := range changes {
		k := []byte(compositeKey(c.Service, c.Key))
		if c.Deleted {
			batch.Delete(k)
		} else {
			batch.Set(k, c.Value)
		}
	}
	if err := batch.Write(); err != nil {
		slog.Error("Flush", "changes", len(changes), "err", err)
		return errors.Wrap(err, "state flush")
	}
	s.pending.Reset()
	slog.Debug("Flush", "changes", len(changes))
	return nil
}

// Keys live keys of service, pending writes included, sorted
func (s *DBState) Keys(service string) ([]string, error) {
	prefix := compositeKey(service, "")
	keys, _, err := db.PrefixScan(s.db, []byte(prefix))
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, k := range keys {
		key := string(k[len(prefix):])
		seen[key] = true
	}
	for _, k := range s.pending.ModifiedKeys(service) {
		seen[k] = true
	}
	for k := range seen {
		if _, err := s.Get(service, k); err == nil {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}
