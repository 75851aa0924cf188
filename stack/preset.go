// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stack

import (
	"github.com/33cn/dispatch/types"
)

// presetAllocator hands out nonces base+k*multiplier for k = 1, 2, ...; ids of children nested
// indirectly get the negated nonce, so a negative base nonce marks an id produced by recursion.
type presetAllocator struct {
	owner      *SavepointStack
	multiplier int32
	max        int32
	issued     int32
}

func newPresetAllocator(owner *SavepointStack, cfg *types.Handle) *presetAllocator {
	multiplier := cfg.PresetNonceMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	return &presetAllocator{owner: owner, multiplier: multiplier, max: cfg.MaxPresetTxnIDs}
}

func (p *presetAllocator) next(isNestedIndirectly bool) (types.TransactionID, error) {
	base := p.owner.baseBuilder.TransactionID()
	if base.Nonce < 0 {
		return types.TransactionID{}, types.NewHandleError(types.StatusNoSchedulingAllowedAfterScheduledRecursion)
	}
	if p.issued >= p.max {
		return types.TransactionID{}, types.NewHandleError(types.StatusRecursiveSchedulingLimitReached)
	}
	p.issued++
	nonce := base.Nonce + p.issued*p.multiplier
	if isNestedIndirectly {
		nonce = -nonce
	}
	slog.Debug("preset txn id", "base", base.Key(), "nonce", nonce)
	return base.WithNonce(nonce), nil
}
