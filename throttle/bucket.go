// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package throttle deterministic throttles driven by consensus time
package throttle

import (
	"time"
)

// one unit of work is this many bucket units, so that a bucket leaks an integral
// number of units every nanosecond
const unitsPerWork = int64(time.Second)

// Snapshot used capacity of a bucket and the time of its last decision
type Snapshot struct {
	Used         int64     `cbor:"1,keyasint"`
	LastDecision time.Time `cbor:"2,keyasint"`
}

// Bucket leaky bucket of perSec work per second with a burst of burstSeconds.
// It only moves with the times it is given, never with the wall clock.
type Bucket struct {
	Name string

	capacity    int64
	leakPerNano int64
	used        int64
	last        time.Time
}

// NewBucket bucket admitting perSec units of work per second
func NewBucket(name string, perSec, burstSeconds int64) *Bucket {
	if burstSeconds <= 0 {
		burstSeconds = 1
	}
	return &Bucket{Name: name, capacity: perSec * burstSeconds * unitsPerWork, leakPerNano: perSec}
}

func (b *Bucket) leakUntil(now time.Time) {
	if b.last.IsZero() || !now.After(b.last) {
		if b.last.IsZero() {
			b.last = now
		}
		return
	}
	elapsed := now.Sub(b.last).Nanoseconds()
	b.last = now
	// elapsed * leakPerNano can overflow after long idle periods
	if b.leakPerNano > 0 && elapsed > b.used/b.leakPerNano {
		b.used = 0
		return
	}
	b.used -= elapsed * b.leakPerNano
}

// HasCapacity whether n units of work fit at now, without using them
func (b *Bucket) HasCapacity(now time.Time, n int64) bool {
	b.leakUntil(now)
	return n >= 0 && n <= (b.capacity-b.used)/unitsPerWork
}

// Use takes n units of work; callers check HasCapacity first
func (b *Bucket) Use(n int64) {
	b.used += n * unitsPerWork
	if b.used > b.capacity {
		b.used = b.capacity
	}
}

// Allow takes n units of work when they fit
func (b *Bucket) Allow(now time.Time, n int64) bool {
	if !b.HasCapacity(now, n) {
		return false
	}
	b.Use(n)
	return true
}

// Reclaim gives back n units of work
func (b *Bucket) Reclaim(n int64) {
	b.used -= n * unitsPerWork
	if b.used < 0 {
		b.used = 0
	}
}

// PercentUsed used capacity at the time of the last decision, in percent
func (b *Bucket) PercentUsed() int64 {
	if b.capacity == 0 {
		return 100
	}
	return b.used * 100 / b.capacity
}

// Capacity in units of work
func (b *Bucket) Capacity() int64 {
	return b.capacity / unitsPerWork
}

// Snapshot current usage
func (b *Bucket) Snapshot() Snapshot {
	return Snapshot{Used: b.used, LastDecision: b.last}
}

// ResetUsage restores a snapshot
func (b *Bucket) ResetUsage(s Snapshot) {
	b.used = s.Used
	if b.used > b.capacity {
		b.used = b.capacity
	}
	b.last = s.LastDecision
}
