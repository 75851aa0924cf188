// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"time"

	"github.com/33cn/dispatch/types"
	farm "github.com/dgryski/go-farm"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

type cacheEntry struct {
	key        string
	validStart time.Time
	nodes      []int64
	statuses   []types.Status
}

type bucket struct {
	entries []*cacheEntry
}

// Cache recently handled transaction ids and the nodes that submitted them, bucketed by the
// farm hash of the id. Lookups never touch recency, so eviction depends only on the order of Add calls.
type Cache struct {
	buckets *lru.Cache
	maxAge  time.Duration
}

// NewCache cache of at most size hash buckets, kept for maxAge after their valid start
func NewCache(size int, maxAge time.Duration) (*Cache, error) {
	buckets, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "NewCache")
	}
	return &Cache{buckets: buckets, maxAge: maxAge}, nil
}

func (c *Cache) lookup(id types.TransactionID) (*cacheEntry, *bucket, uint64) {
	key := id.Key()
	h := farm.Hash64([]byte(key))
	v, ok := c.buckets.Peek(h)
	if !ok {
		return nil, nil, h
	}
	b := v.(*bucket)
	for _, e := range b.entries {
		if e.key == key {
			return e, b, h
		}
	}
	return nil, b, h
}

// Add remembers that nodeID submitted id and the status it reached
func (c *Cache) Add(id types.TransactionID, nodeID int64, status types.Status) {
	e, b, h := c.lookup(id)
	if e == nil {
		e = &cacheEntry{key: id.Key(), validStart: id.ValidStart}
		if b == nil {
			b = &bucket{}
			c.buckets.Add(h, b)
		}
		b.entries = append(b.entries, e)
	}
	e.nodes = append(e.nodes, nodeID)
	e.statuses = append(e.statuses, status)
}

// HasDuplicate same node when nodeID already submitted id, other node when only others did
func (c *Cache) HasDuplicate(id types.TransactionID, nodeID int64) types.DuplicateCheck {
	e, _, _ := c.lookup(id)
	if e == nil {
		return types.NoDuplicateFound
	}
	for _, n := range e.nodes {
		if n == nodeID {
			return types.SameNodeDuplicate
		}
	}
	return types.OtherNodeDuplicate
}

// Statuses every status recorded for id
func (c *Cache) Statuses(id types.TransactionID) []types.Status {
	e, _, _ := c.lookup(id)
	if e == nil {
		return nil
	}
	return append([]types.Status(nil), e.statuses...)
}

// Prune drops ids whose valid start is older than now minus the max age
func (c *Cache) Prune(now time.Time) int {
	removed := 0
	for _, k := range c.buckets.Keys() {
		v, ok := c.buckets.Peek(k)
		if !ok {
			continue
		}
		b := v.(*bucket)
		kept := b.entries[:0]
		for _, e := range b.entries {
			if e.validStart.Add(c.maxAge).Before(now) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		b.entries = kept
		if len(kept) == 0 {
			c.buckets.Remove(k)
		}
	}
	return removed
}

// Len number of ids remembered
func (c *Cache) Len() int {
	n := 0
	for _, k := range c.buckets.Keys() {
		if v, ok := c.buckets.Peek(k); ok {
			n += len(v.(*bucket).entries)
		}
	}
	return n
}
