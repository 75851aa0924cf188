// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"github.com/33cn/dispatch/account"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
)

// UsageManager throttle bookkeeping of dispatches, before and after the business logic
type UsageManager struct {
	network    ThrottleManager
	frontend   FrontendThrottle
	selfNodeID int64
}

// NewUsageManager manager over the consensus throttles and this node's frontend throttle
func NewUsageManager(network ThrottleManager, frontend FrontendThrottle, selfNodeID int64) *UsageManager {
	return &UsageManager{network: network, frontend: frontend, selfNodeID: selfNodeID}
}

// ScreenForCapacity reserves the gas of a contract operation before it runs, failing with a
// *types.ThrottleError when the gas throttle is exhausted
func (u *UsageManager) ScreenForCapacity(d *Dispatch) error {
	if !d.Functionality().IsContractOperation() {
		return nil
	}
	u.network.TrackTxn(d.TxnInfo, d.ConsensusNow)
	if u.network.WasLastTxnGasThrottled() {
		return types.NewThrottleError(types.StatusConsensusGasExhausted)
	}
	return nil
}

// TrackUsage accounts the capacity a user dispatch used once its outcome is known, then saves
// the throttle state into the dispatch's stack
func (u *UsageManager) TrackUsage(d *Dispatch, work types.WorkDone) {
	if d.Category != types.CategoryUser {
		return
	}
	if work == types.FeesOnly {
		u.network.TrackFeePayments(d.ConsensusNow)
	} else {
		f := d.Functionality()
		if !f.IsContractOperation() {
			u.network.TrackTxn(d.TxnInfo, d.ConsensusNow)
		} else if d.Config().Contracts.ThrottleByGas {
			unused := d.TxnInfo.Body.GasLimit() - d.Builder.GasUsed()
			u.network.LeakUnusedGasPreviouslyReserved(unused)
		}
		if f.CanAutoCreate() && d.Builder.Status() != types.StatusSuccess && d.Creator.NodeID == u.selfNodeID {
			if n := ImplicitCreations(d.TxnInfo.Body, d.Stack.State(), d.Config().Accounts.LastReservedSystemEntity); n > 0 && u.frontend != nil {
				u.frontend.ReclaimCapacity(n)
			}
		}
	}
	if err := u.network.SaveTo(d.Stack.State()); err != nil {
		dlog.Error("TrackUsage: save throttles", "txid", d.TxnInfo.TxnID().Key(), "err", err)
	}
}

// ImplicitCreations number of distinct aliases the body would create accounts for in st
func ImplicitCreations(body *types.TransactionBody, st state.WritableState, lastReserved int64) int64 {
	acc := account.NewAccountDB(st, lastReserved)
	seen := make(map[string]bool)
	var n int64
	count := func(id types.AccountID) {
		if !id.HasAlias() || id.Num != 0 || seen[string(id.Alias)] {
			return
		}
		seen[string(id.Alias)] = true
		if _, err := acc.ResolveID(id); err != nil {
			n++
		}
	}
	switch {
	case body.CryptoTransfer != nil:
		for _, t := range body.CryptoTransfer.Transfers {
			if t.Amount > 0 {
				count(t.Account)
			}
		}
	case body.Ethereum != nil:
		count(body.Ethereum.To)
	}
	return n
}
