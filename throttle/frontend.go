// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package throttle

import (
	"time"
)

// FrontendThrottle node local limit on implicit account creations admitted by this node
type FrontendThrottle struct {
	creations *Bucket
}

// NewFrontendThrottle throttle admitting tps implicit creations per second
func NewFrontendThrottle(tps int64) *FrontendThrottle {
	return &FrontendThrottle{creations: NewBucket("implicit-creations", tps, 1)}
}

// ShouldThrottleImplicitCreations uses capacity for n creations, true when they do not fit
func (f *FrontendThrottle) ShouldThrottleImplicitCreations(n int64, now time.Time) bool {
	if n == 0 {
		return false
	}
	return !f.creations.Allow(now, n)
}

// ReclaimCapacity gives back the capacity of n creations that did not happen
func (f *FrontendThrottle) ReclaimCapacity(n int64) {
	if n > 0 {
		f.creations.Reclaim(n)
	}
}

// PercentUsed utilization of the creation bucket
func (f *FrontendThrottle) PercentUsed() int64 {
	return f.creations.PercentUsed()
}
