// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"github.com/33cn/dispatch/account"
	"github.com/33cn/dispatch/dispatch"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
	"github.com/pkg/errors"
)

const (
	autoCreationMemo = "auto-created account"
	lazyCreationMemo = "lazy-created account"
)

type transferHandler struct{}

func validAlias(alias []byte) bool {
	if len(alias) == types.EVMAddressLen {
		return true
	}
	_, ok := account.KeyFromAlias(alias)
	return ok
}

func (h *transferHandler) PureChecks(body *types.TransactionBody) error {
	op := body.CryptoTransfer
	if len(op.Transfers) == 0 {
		return types.NewPreCheckError(types.StatusInvalidAccountAmounts)
	}
	seen := make(map[string]bool, len(op.Transfers))
	var sum int64
	for _, leg := range op.Transfers {
		if leg.Account.IsZero() {
			return types.NewPreCheckError(types.StatusInvalidAccountID)
		}
		if leg.Account.Num == 0 && !validAlias(leg.Account.Alias) {
			return types.NewPreCheckError(types.StatusInvalidAliasKey)
		}
		if leg.Amount == 0 {
			return types.NewPreCheckError(types.StatusInvalidAccountAmounts)
		}
		k := leg.Account.Key()
		if seen[k] {
			return types.NewPreCheckError(types.StatusAccountRepeatedInAccountAmounts)
		}
		seen[k] = true
		sum += leg.Amount
	}
	if sum != 0 {
		return types.NewPreCheckError(types.StatusInvalidAccountAmounts)
	}
	return nil
}

// RequiredKeys every debited account signs, and credited accounts that ask for it.
// Credits to an alias nobody owns yet need no key.
func (h *transferHandler) RequiredKeys(body *types.TransactionBody, acc *account.DB, st state.WritableState, reqs *dispatch.KeyRequirements) error {
	for _, leg := range body.CryptoTransfer.Transfers {
		if leg.Amount < 0 {
			a, err := loadLive(acc, leg.Account)
			if err != nil {
				return err
			}
			reqs.AddAccount(a)
			continue
		}
		a, err := acc.LoadAccount(leg.Account)
		if errors.Cause(err) == types.ErrNotFound {
			continue
		}
		if err != nil {
			return err
		}
		if a.ReceiverSigRequired {
			reqs.AddRequired(a.Key)
		}
	}
	return nil
}

// Handle resolves every leg, creating the accounts of unknown aliases first, then applies the
// debits before the credits
func (h *transferHandler) Handle(ctx *dispatch.HandleContext) error {
	acc := ctx.Accounts()
	legs := make([]types.AccountAmount, 0, len(ctx.Body().CryptoTransfer.Transfers))
	seen := make(map[int64]bool)
	for _, leg := range ctx.Body().CryptoTransfer.Transfers {
		id, err := acc.ResolveID(leg.Account)
		if err != nil {
			if errors.Cause(err) != types.ErrNotFound || leg.Amount < 0 {
				return types.NewHandleError(types.StatusInvalidAccountID)
			}
			if id, err = autoCreate(ctx, leg.Account.Alias, autoCreationMemo); err != nil {
				return err
			}
		}
		if seen[id.Num] {
			return types.NewHandleError(types.StatusAccountRepeatedInAccountAmounts)
		}
		seen[id.Num] = true
		legs = append(legs, types.AccountAmount{Account: id, Amount: leg.Amount})
	}
	for _, leg := range legs {
		if leg.Amount < 0 {
			if err := acc.AdjustBalance(leg.Account, leg.Amount); err != nil {
				return types.NewHandleError(accountStatus(err, types.StatusFailInvalid))
			}
		}
	}
	for _, leg := range legs {
		if leg.Amount > 0 {
			if err := acc.AdjustBalance(leg.Account, leg.Amount); err != nil {
				return types.NewHandleError(accountStatus(err, types.StatusFailInvalid))
			}
		}
	}
	return nil
}

// autoCreate creates the account of alias in a removable preceding dispatch paid by the payer
// of ctx, and returns its number
func autoCreate(ctx *dispatch.HandleContext, alias []byte, memo string) (types.AccountID, error) {
	parent := ctx.Body()
	body := &types.TransactionBody{
		TransactionID: parent.TransactionID,
		NodeAccountID: parent.NodeAccountID,
		CryptoCreate:  &types.CryptoCreateBody{Alias: alias, Memo: memo},
	}
	b, err := ctx.DispatchRemovablePreceding(body, ctx.Payer())
	if err != nil {
		return types.AccountID{}, err
	}
	if !b.Status().IsSuccess() {
		hlog.Debug("auto creation failed", "alias", types.AliasAccountID(alias).Key(), "status", b.Status())
		return types.AccountID{}, types.NewHandleError(types.StatusInvalidAccountID)
	}
	id, err := ctx.Accounts().ResolveID(types.AliasAccountID(alias))
	if err != nil {
		return types.AccountID{}, err
	}
	return id, nil
}
