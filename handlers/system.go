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

func checkSystemFileOp(op *types.SystemDeleteBody) error {
	if op.FileID <= 0 {
		return types.NewPreCheckError(types.StatusInvalidFileID)
	}
	return nil
}

type systemDeleteHandler struct{}

func (h *systemDeleteHandler) PureChecks(body *types.TransactionBody) error {
	return checkSystemFileOp(body.SystemDelete)
}

func (h *systemDeleteHandler) RequiredKeys(body *types.TransactionBody, acc *account.DB, st state.WritableState, reqs *dispatch.KeyRequirements) error {
	return nil
}

// Handle marks the file deleted until its expiration
func (h *systemDeleteHandler) Handle(ctx *dispatch.HandleContext) error {
	op := ctx.Body().SystemDelete
	f, ok, err := loadFile(ctx.State(), op.FileID)
	if err != nil {
		return err
	}
	if !ok || f.Deleted {
		return types.NewHandleError(types.StatusInvalidFileID)
	}
	f.Deleted = true
	f.Expiry = op.Expiration
	hlog.Info("system delete", "file", op.FileID, "expiry", op.Expiration)
	return saveFile(ctx.State(), f)
}

type systemUndeleteHandler struct{}

func (h *systemUndeleteHandler) PureChecks(body *types.TransactionBody) error {
	return checkSystemFileOp(body.SystemUndelete)
}

func (h *systemUndeleteHandler) RequiredKeys(body *types.TransactionBody, acc *account.DB, st state.WritableState, reqs *dispatch.KeyRequirements) error {
	return nil
}

func (h *systemUndeleteHandler) Handle(ctx *dispatch.HandleContext) error {
	op := ctx.Body().SystemUndelete
	f, ok, err := loadFile(ctx.State(), op.FileID)
	if err != nil {
		return err
	}
	if !ok || !f.Deleted {
		return types.NewHandleError(types.StatusInvalidFileID)
	}
	f.Deleted = false
	hlog.Info("system undelete", "file", op.FileID)
	return saveFile(ctx.State(), f)
}
