// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fees

import (
	"github.com/33cn/dispatch/types"
)

// RateOf the exchange rate configured in cfg
func RateOf(cfg *types.Config) ExchangeRate {
	return NewExchangeRate(types.ExchangeRate{HbarEquiv: cfg.Rates.HbarEquiv, CentEquiv: cfg.Rates.CentEquiv})
}

// FlatCalculator fees from the flat schedule of the configuration in effect
type FlatCalculator struct{}

// NewFlatCalculator calculator over the [fees] section
func NewFlatCalculator() *FlatCalculator {
	return &FlatCalculator{}
}

// Compute fees of txn under cfg. The service component grows with the size of the signed
// transaction; free functionalities only pay the node and network components.
func (c *FlatCalculator) Compute(txn *types.TransactionInfo, cfg *types.Config) types.Fees {
	sched := cfg.Fees
	if sched == nil {
		return types.FreeFees
	}
	rate := RateOf(cfg)
	service := sched.ServiceTinycents + int64(txn.SerializedLen)*sched.ServicePerByteTinycents
	if txn.Functionality() == types.FunctionalityNone {
		service = 0
	}
	return types.Fees{
		NodeFee:    rate.TinycentsToTinybars(sched.NodeTinycents),
		NetworkFee: rate.TinycentsToTinybars(sched.NetworkTinycents),
		ServiceFee: rate.TinycentsToTinybars(service),
	}
}
