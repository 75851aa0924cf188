// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"github.com/33cn/dispatch/account"
	"github.com/33cn/dispatch/dispatch"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
)

type createHandler struct{}

func (h *createHandler) PureChecks(body *types.TransactionBody) error {
	op := body.CryptoCreate
	if op.InitialBalance < 0 {
		return types.NewPreCheckError(types.StatusInvalidAccountAmounts)
	}
	if len(op.Alias) > 0 {
		if !validAlias(op.Alias) {
			return types.NewPreCheckError(types.StatusInvalidAliasKey)
		}
		return nil
	}
	if op.Key.IsEmpty() {
		return types.NewPreCheckError(types.StatusKeyRequired)
	}
	return nil
}

func (h *createHandler) RequiredKeys(body *types.TransactionBody, acc *account.DB, st state.WritableState, reqs *dispatch.KeyRequirements) error {
	return nil
}

// Handle an alias account is created from the key the alias stands for, or hollow for an evm
// address; a plain account takes the key of the body
func (h *createHandler) Handle(ctx *dispatch.HandleContext) error {
	op := ctx.Body().CryptoCreate
	acc := ctx.Accounts()
	var (
		a   *types.Account
		err error
	)
	switch key, ok := account.KeyFromAlias(op.Alias); {
	case ok:
		a, err = acc.CreateFromKey(key)
	case len(op.Alias) > 0:
		a, err = acc.CreateHollow(op.Alias)
		if err == nil && !op.Key.IsEmpty() {
			a.Key = op.Key
		}
	default:
		var num int64
		num, err = acc.NextEntityNum()
		a = &types.Account{ID: types.NewAccountID(num), Key: op.Key}
	}
	if err != nil {
		return types.NewHandleError(accountStatus(err, types.StatusFailInvalid))
	}
	a.Memo = op.Memo
	if op.InitialBalance > 0 {
		if err := acc.AdjustBalance(ctx.Payer(), -op.InitialBalance); err != nil {
			return types.NewHandleError(types.StatusInsufficientPayerBalance)
		}
		a.Balance = op.InitialBalance
	}
	if err := acc.SaveAccount(a); err != nil {
		return err
	}
	var evm []byte
	if len(a.Alias) == types.EVMAddressLen {
		evm = a.Alias
	}
	ctx.Builder().SetCreatedAccount(a.ID, evm)
	hlog.Debug("account created", "id", a.ID.Key(), "hollow", a.IsHollow(), "balance", a.Balance)
	return nil
}
