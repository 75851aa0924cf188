// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fees 手续费扣除和偿付能力检查
package fees

import (
	"github.com/33cn/dispatch/account"
	"github.com/33cn/dispatch/common/log"
	"github.com/33cn/dispatch/record"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
	"github.com/pkg/errors"
)

var flog = log.New("module", "fees")

// Accumulator charges fees into the state of a dispatch
type Accumulator interface {
	// ChargeNetworkFee charges the network fee to the creator node's account
	ChargeNetworkFee(creator types.AccountID, networkFee int64) error
	// ChargeFees charges fees to payer, the node fee going to the creator node's account
	ChargeFees(payer, creator types.AccountID, fees types.Fees) error
}

// StateProvider writable view the fees are charged into, usually the top of a stack
type StateProvider interface {
	State() state.WritableState
}

// FeeAccumulator charges in network, node, service order, each up to the remaining balance.
// The total charged is added to the transaction fee of the record builder.
type FeeAccumulator struct {
	states   StateProvider
	accounts *types.Accounts
	builder  record.Builder
}

// NewFeeAccumulator accumulator over the states of a dispatch
func NewFeeAccumulator(states StateProvider, accounts *types.Accounts, builder record.Builder) *FeeAccumulator {
	return &FeeAccumulator{states: states, accounts: accounts, builder: builder}
}

func (f *FeeAccumulator) accountDB() *account.DB {
	return account.NewAccountDB(f.states.State(), f.accounts.LastReservedSystemEntity)
}

// ChargeNetworkFee implements Accumulator
func (f *FeeAccumulator) ChargeNetworkFee(creator types.AccountID, networkFee int64) error {
	acc := f.accountDB()
	charged, err := f.charge(acc, creator, types.NewAccountID(f.accounts.Funding), networkFee)
	f.addCharged(charged)
	return err
}

// ChargeFees implements Accumulator
func (f *FeeAccumulator) ChargeFees(payer, creator types.AccountID, fees types.Fees) error {
	acc := f.accountDB()
	funding := types.NewAccountID(f.accounts.Funding)
	var total int64
	for _, leg := range []struct {
		to     types.AccountID
		amount int64
	}{
		{funding, fees.NetworkFee},
		{creator, fees.NodeFee},
		{funding, fees.ServiceFee},
	} {
		charged, err := f.charge(acc, payer, leg.to, leg.amount)
		total += charged
		if err != nil {
			f.addCharged(total)
			return err
		}
	}
	f.addCharged(total)
	return nil
}

func (f *FeeAccumulator) addCharged(amount int64) {
	if amount > 0 && f.builder != nil {
		f.builder.SetTransactionFee(f.builder.TransactionFee() + amount)
	}
}

// charge moves min(amount, balance) from payer to receiver and returns what was moved
func (f *FeeAccumulator) charge(acc *account.DB, payer, receiver types.AccountID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, nil
	}
	from, err := acc.LoadAccount(payer)
	if err != nil {
		if errors.Cause(err) == types.ErrNotFound {
			flog.Warn("charge: payer not found", "payer", payer.Key(), "amount", amount)
			return 0, nil
		}
		return 0, err
	}
	to, err := acc.LoadAccount(receiver)
	if err != nil {
		return 0, errors.Wrapf(err, "fee receiver %s", receiver.Key())
	}
	if from.ID.Equal(to.ID) {
		return 0, nil
	}
	if amount > from.Balance {
		amount = from.Balance
	}
	if amount == 0 {
		return 0, nil
	}
	from.Balance -= amount
	to.Balance += amount
	if err := acc.SaveAccount(from); err != nil {
		return 0, err
	}
	if err := acc.SaveAccount(to); err != nil {
		return 0, err
	}
	return amount, nil
}
