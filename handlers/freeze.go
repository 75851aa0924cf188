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

// freezeHandler validates freezes; the platform state itself is written by the system updater
// once the transaction succeeded
type freezeHandler struct{}

func (h *freezeHandler) PureChecks(body *types.TransactionBody) error {
	op := body.Freeze
	switch op.Type {
	case types.FreezeOnly, types.FreezeUpgrade:
		if op.StartTime.IsZero() {
			return types.NewPreCheckError(types.StatusInvalidFreezeTransactionBody)
		}
	case types.FreezeAbort, types.PrepareUpgrade, types.TelemetryUpgrade:
	default:
		return types.NewPreCheckError(types.StatusInvalidFreezeTransactionBody)
	}
	return nil
}

func (h *freezeHandler) RequiredKeys(body *types.TransactionBody, acc *account.DB, st state.WritableState, reqs *dispatch.KeyRequirements) error {
	return nil
}

func (h *freezeHandler) Handle(ctx *dispatch.HandleContext) error {
	op := ctx.Body().Freeze
	switch op.Type {
	case types.FreezeOnly, types.FreezeUpgrade:
		if !op.StartTime.After(ctx.ConsensusNow()) {
			return types.NewHandleError(types.StatusFreezeStartTimeMustBeFuture)
		}
	}
	return nil
}
