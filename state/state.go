// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package state ledger state keyed by service name and then by key
package state

import (
	"sort"

	"github.com/33cn/dispatch/common/log"
	"github.com/33cn/dispatch/types"
)

var slog = log.New("module", "state")

// State read access to ledger state
type State interface {
	// Get value of service/key or types.ErrNotFound
	Get(service, key string) ([]byte, error)
}

// WritableState read and write access
type WritableState interface {
	State
	Put(service, key string, value []byte)
	Remove(service, key string)
}

// StateChange one write as seen when it reaches the parent
type StateChange struct {
	Service string
	Key     string
	Value   []byte
	Deleted bool
}

// ChangeListener observes committed writes
type ChangeListener func(StateChange)

type change struct {
	value   []byte
	deleted bool
}

func compositeKey(service, key string) string {
	return service + "/" + key
}

// WrappedState buffered writes over a parent state. Reads see the buffered writes first.
type WrappedState struct {
	parent  State
	changes map[string]map[string]*change
}

// NewWrappedState overlay over parent
func NewWrappedState(parent State) *WrappedState {
	return &WrappedState{parent: parent, changes: make(map[string]map[string]*change)}
}

// Parent the state this overlay commits into
func (w *WrappedState) Parent() State {
	return w.parent
}

// Get buffered value, or the parent's value
func (w *WrappedState) Get(service, key string) ([]byte, error) {
	if m, ok := w.changes[service]; ok {
		if c, ok := m[key]; ok {
			if c.deleted {
				return nil, types.ErrNotFound
			}
			return c.value, nil
		}
	}
	return w.parent.Get(service, key)
}

// Put buffers a write
func (w *WrappedState) Put(service, key string, value []byte) {
	w.service(service)[key] = &change{value: append([]byte(nil), value...)}
}

// Remove buffers a delete
func (w *WrappedState) Remove(service, key string) {
	w.service(service)[key] = &change{deleted: true}
}

func (w *WrappedState) service(service string) map[string]*change {
	m, ok := w.changes[service]
	if !ok {
		m = make(map[string]*change)
		w.changes[service] = m
	}
	return m
}

// IsModified any buffered write
func (w *WrappedState) IsModified() bool {
	for _, m := range w.changes {
		if len(m) > 0 {
			return true
		}
	}
	return false
}

// ModifiedKeys buffered keys of service, sorted
func (w *WrappedState) ModifiedKeys(service string) []string {
	m := w.changes[service]
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Changes the buffered writes sorted by service and key
func (w *WrappedState) Changes() []StateChange {
	services := make([]string, 0, len(w.changes))
	for s := range w.changes {
		services = append(services, s)
	}
	sort.Strings(services)
	var out []StateChange
	for _, s := range services {
		for _, k := range w.ModifiedKeys(s) {
			c := w.changes[s][k]
			out = append(out, StateChange{Service: s, Key: k, Value: c.value, Deleted: c.deleted})
		}
	}
	return out
}

// Commit applies the buffered writes to the parent in sorted order and clears the buffer
func (w *WrappedState) Commit() ([]StateChange, error) {
	parent, ok := w.parent.(WritableState)
	if !ok {
		return nil, types.ErrIllegalState
	}
	changes := w.Changes()
	for _, c := range changes {
		if c.Deleted {
			parent.Remove(c.Service, c.Key)
		} else {
			parent.Put(c.Service, c.Key, c.Value)
		}
	}
	w.Reset()
	return changes, nil
}

// Reset drops the buffered writes
func (w *WrappedState) Reset() {
	w.changes = make(map[string]map[string]*change)
}
