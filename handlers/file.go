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

func loadFile(st state.State, num int64) (*types.File, bool, error) {
	var f types.File
	ok, err := state.GetValue(st, types.FileService, types.FileKey(num), &f)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &f, true, nil
}

func saveFile(st state.WritableState, f *types.File) error {
	return state.PutValue(st, types.FileService, types.FileKey(f.ID), f)
}

type fileUpdateHandler struct{}

func (h *fileUpdateHandler) PureChecks(body *types.TransactionBody) error {
	if body.FileUpdate.FileID <= 0 {
		return types.NewPreCheckError(types.StatusInvalidFileID)
	}
	return nil
}

// RequiredKeys files carry no keys; who may touch a system file is decided by the authorizer
func (h *fileUpdateHandler) RequiredKeys(body *types.TransactionBody, acc *account.DB, st state.WritableState, reqs *dispatch.KeyRequirements) error {
	return nil
}

// Handle replaces the contents. System files come into being with their first update.
func (h *fileUpdateHandler) Handle(ctx *dispatch.HandleContext) error {
	op := ctx.Body().FileUpdate
	st := ctx.State()
	f, ok, err := loadFile(st, op.FileID)
	if err != nil {
		return err
	}
	if !ok {
		if op.FileID > ctx.Config().Accounts.LastReservedSystemEntity {
			return types.NewHandleError(types.StatusInvalidFileID)
		}
		f = &types.File{ID: op.FileID}
	}
	if f.Deleted {
		return types.NewHandleError(types.StatusInvalidFileID)
	}
	f.Contents = append([]byte(nil), op.Contents...)
	return saveFile(st, f)
}
