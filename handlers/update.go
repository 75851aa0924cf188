// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"bytes"

	"github.com/33cn/dispatch/account"
	"github.com/33cn/dispatch/dispatch"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
	"github.com/pkg/errors"
)

type updateHandler struct{}

func (h *updateHandler) PureChecks(body *types.TransactionBody) error {
	op := body.CryptoUpdate
	if op.Account.IsZero() {
		return types.NewPreCheckError(types.StatusInvalidAccountID)
	}
	if op.Key.IsEmpty() {
		return types.NewPreCheckError(types.StatusKeyRequired)
	}
	return nil
}

// RequiredKeys the current key of the account and the new one
func (h *updateHandler) RequiredKeys(body *types.TransactionBody, acc *account.DB, st state.WritableState, reqs *dispatch.KeyRequirements) error {
	a, err := loadLive(acc, body.CryptoUpdate.Account)
	if err != nil {
		return err
	}
	reqs.AddAccount(a)
	reqs.AddRequired(body.CryptoUpdate.Key)
	return nil
}

// Handle replaces the key. A hollow account only takes the ecdsa key its evm address was derived from.
func (h *updateHandler) Handle(ctx *dispatch.HandleContext) error {
	op := ctx.Body().CryptoUpdate
	acc := ctx.Accounts()
	a, err := acc.LoadAccount(op.Account)
	if err != nil {
		return types.NewHandleError(accountStatus(err, types.StatusInvalidAccountID))
	}
	if a.Deleted {
		return types.NewHandleError(types.StatusAccountDeleted)
	}
	if a.IsHollow() {
		evm, err := account.AliasFromKey(op.Key)
		if err != nil {
			if errors.Cause(err) == types.ErrUnsupportedKey {
				return types.NewHandleError(types.StatusInvalidAliasKey)
			}
			return err
		}
		if !bytes.Equal(evm, a.Alias) {
			return types.NewHandleError(types.StatusInvalidAliasKey)
		}
		hlog.Info("hollow account completed", "id", a.ID.Key(), "alias", account.FormatAlias(a.Alias))
	}
	a.Key = op.Key
	if op.Memo != "" {
		a.Memo = op.Memo
	}
	return acc.SaveAccount(a)
}
