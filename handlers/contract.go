// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"github.com/33cn/dispatch/account"
	"github.com/33cn/dispatch/dispatch"
	"github.com/33cn/dispatch/fees"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/pkg/errors"
)

const (
	// at most this share of the gas limit is refunded
	maxRefundPercent = 20
	// first byte of call data that makes the call revert
	revertOpcode = 0xfd
)

// contractHandler contract calls, creations and ethereum transactions. There is no evm: a call
// uses its intrinsic gas plus whatever the refund limit keeps, and moves the value it carries.
type contractHandler struct{}

type contractOp struct {
	create bool
	to     types.AccountID
	gas    int64
	value  int64
	data   []byte
}

func contractOpOf(body *types.TransactionBody) contractOp {
	switch {
	case body.ContractCall != nil:
		op := body.ContractCall
		return contractOp{to: op.ContractID, gas: op.Gas, value: op.Amount, data: op.Data}
	case body.ContractCreate != nil:
		op := body.ContractCreate
		return contractOp{create: true, gas: op.Gas, value: op.Amount, data: op.Data}
	}
	op := body.Ethereum
	return contractOp{create: op.To.IsZero(), to: op.To, gas: op.Gas, value: op.Value, data: op.CallData}
}

// IntrinsicGas gas a transaction costs before any code runs
func IntrinsicGas(data []byte, create bool) int64 {
	gas := params.TxGas
	if create {
		gas = params.TxGasContractCreation
	}
	for _, b := range data {
		if b == 0 {
			gas += params.TxDataZeroGas
		} else {
			gas += params.TxDataNonZeroGasEIP2028
		}
	}
	return int64(gas)
}

func (h *contractHandler) PureChecks(body *types.TransactionBody) error {
	op := contractOpOf(body)
	if op.value < 0 {
		return types.NewPreCheckError(types.StatusInvalidAccountAmounts)
	}
	if op.gas < IntrinsicGas(op.data, op.create) {
		return types.NewPreCheckError(types.StatusInsufficientGas)
	}
	if body.ContractCall != nil && op.to.IsZero() {
		return types.NewPreCheckError(types.StatusInvalidContractID)
	}
	return nil
}

func (h *contractHandler) RequiredKeys(body *types.TransactionBody, acc *account.DB, st state.WritableState, reqs *dispatch.KeyRequirements) error {
	return nil
}

func (h *contractHandler) Handle(ctx *dispatch.HandleContext) error {
	body := ctx.Body()
	op := contractOpOf(body)
	cfg := ctx.Config()
	acc := ctx.Accounts()

	target, err := h.target(ctx, acc, body, op)
	if err != nil {
		return err
	}

	used := IntrinsicGas(op.data, op.create)
	if floor := op.gas * (100 - maxRefundPercent) / 100; used < floor {
		used = floor
	}
	cost := fees.RateOf(cfg).GasCost(used, cfg.Contracts.GasPriceTinycents)
	if cost > 0 {
		if err := acc.AdjustBalance(ctx.Payer(), -cost); err != nil {
			return types.NewHandleError(types.StatusInsufficientPayerBalance)
		}
		if err := acc.AdjustBalance(types.NewAccountID(cfg.Accounts.Funding), cost); err != nil {
			return err
		}
	}
	ctx.Builder().SetGasUsed(used)

	if len(op.data) > 0 && op.data[0] == revertOpcode {
		// the gas stays charged
		return types.NewHandleErrorKeepState(types.StatusContractRevertExecuted)
	}
	if op.value > 0 {
		if err := acc.AdjustBalance(ctx.Payer(), -op.value); err != nil {
			return types.NewHandleError(types.StatusInsufficientPayerBalance)
		}
		if err := acc.AdjustBalance(target, op.value); err != nil {
			return types.NewHandleError(accountStatus(err, types.StatusInvalidContractID))
		}
	}
	return nil
}

// target the account receiving the value: a new contract, an existing contract, or for an
// ethereum transaction any account, created hollow when the evm address is unknown
func (h *contractHandler) target(ctx *dispatch.HandleContext, acc *account.DB, body *types.TransactionBody, op contractOp) (types.AccountID, error) {
	if op.create {
		num, err := acc.NextEntityNum()
		if err != nil {
			return types.AccountID{}, err
		}
		c := &types.Account{ID: types.NewAccountID(num), SmartContract: true, Key: &types.Key{ContractID: num}}
		if err := acc.SaveAccount(c); err != nil {
			return types.AccountID{}, err
		}
		ctx.Builder().SetCreatedAccount(c.ID, nil)
		return c.ID, nil
	}
	a, err := acc.LoadAccount(op.to)
	switch {
	case errors.Cause(err) == types.ErrNotFound && body.Ethereum != nil && len(op.to.Alias) == types.EVMAddressLen:
		return autoCreate(ctx, op.to.Alias, lazyCreationMemo)
	case err != nil:
		return types.AccountID{}, types.NewHandleError(types.StatusInvalidContractID)
	case a.Deleted:
		return types.AccountID{}, types.NewHandleError(types.StatusInvalidContractID)
	case body.ContractCall != nil && !a.SmartContract:
		return types.AccountID{}, types.NewHandleError(types.StatusInvalidContractID)
	}
	return a.ID, nil
}
