// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fees

import (
	"fmt"

	"github.com/33cn/dispatch/types"
)

// InsufficiencyKind which part of what the payer owes could not be covered
type InsufficiencyKind int32

// insufficiency kinds
const (
	// NetworkFeeInsufficient even the network fee cannot be paid; the creator is at fault
	NetworkFeeInsufficient InsufficiencyKind = iota
	// ServiceFeeInsufficient the network fee can be paid but not the full fee
	ServiceFeeInsufficient
	// NonFeeDebitsInsufficient all fees can be paid but not the transfers the transaction makes
	NonFeeDebitsInsufficient
)

// InsufficientBalanceError a failed solvency check
type InsufficientBalanceError struct {
	Status types.Status
	Kind   InsufficiencyKind
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: %s (kind %d)", e.Status, e.Kind)
}

// SolvencyChecker checks a payer can cover the fees and the other debits of a transaction
type SolvencyChecker struct {
	rate              ExchangeRate
	gasPriceTinycents int64
}

// NewSolvencyChecker checker pricing gas at gasPriceTinycents
func NewSolvencyChecker(rate ExchangeRate, gasPriceTinycents int64) *SolvencyChecker {
	return &SolvencyChecker{rate: rate, gasPriceTinycents: gasPriceTinycents}
}

// CheckSolvency nil, or an *InsufficientBalanceError. Scheduled executions ignore the fee offered
// by the body since whoever signed the schedule already agreed to pay.
func (c *SolvencyChecker) CheckSolvency(body *types.TransactionBody, payer *types.Account, fees types.Fees, ignoreOfferedFee bool) error {
	offered := body.TransactionFee
	if ignoreOfferedFee {
		offered = fees.TotalFee()
	}
	if offered < fees.NetworkFee {
		return &InsufficientBalanceError{Status: types.StatusInsufficientTxFee, Kind: NetworkFeeInsufficient}
	}
	if payer.Balance < fees.NetworkFee {
		return &InsufficientBalanceError{Status: types.StatusInsufficientPayerBalance, Kind: NetworkFeeInsufficient}
	}
	total := fees.TotalFee()
	if offered < total {
		return &InsufficientBalanceError{Status: types.StatusInsufficientTxFee, Kind: ServiceFeeInsufficient}
	}
	if payer.Balance < total {
		return &InsufficientBalanceError{Status: types.StatusInsufficientPayerBalance, Kind: ServiceFeeInsufficient}
	}
	if payer.Balance < total+c.NonFeeDebits(body, payer.ID) {
		return &InsufficientBalanceError{Status: types.StatusInsufficientPayerBalance, Kind: NonFeeDebitsInsufficient}
	}
	return nil
}

// NonFeeDebits what the transaction itself takes from the payer: transfers out of the payer,
// value sent to a contract and the cost of the gas reserved
func (c *SolvencyChecker) NonFeeDebits(body *types.TransactionBody, payer types.AccountID) int64 {
	var debits int64
	switch {
	case body.CryptoTransfer != nil:
		for _, t := range body.CryptoTransfer.Transfers {
			if t.Amount < 0 && t.Account.Equal(payer) {
				debits -= t.Amount
			}
		}
	case body.ContractCall != nil:
		debits = body.ContractCall.Amount + c.rate.GasCost(body.ContractCall.Gas, c.gasPriceTinycents)
	case body.ContractCreate != nil:
		debits = body.ContractCreate.Amount + c.rate.GasCost(body.ContractCreate.Gas, c.gasPriceTinycents)
	case body.Ethereum != nil:
		debits = body.Ethereum.Value
	}
	return debits
}
