// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"testing"
	"time"

	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileUpdateBody(payer types.AccountID, file int64, contents string) *types.TransactionBody {
	body := baseBody(payer)
	body.FileUpdate = &types.FileUpdateBody{FileID: file, Contents: []byte(contents)}
	return body
}

func (e *env) file(num int64) *types.File {
	f, ok, err := loadFile(e.root, num)
	require.NoError(e.t, err)
	require.True(e.t, ok)
	return f
}

func TestFileUpdate(t *testing.T) {
	e := newEnv(t)
	d, _ := e.submit(fileUpdateBody(payerID, 1500, "x"), e.payer)
	assert.Equal(t, types.StatusInvalidFileID, d.Builder.Status())

	require.NoError(t, saveFile(e.root, &types.File{ID: 1500}))
	d, _ = e.submit(fileUpdateBody(payerID, 1500, "hello"), e.payer)
	require.Equal(t, types.StatusSuccess, d.Builder.Status())
	assert.Equal(t, []byte("hello"), e.file(1500).Contents)

	s, _ := types.StatusOf((&fileUpdateHandler{}).PureChecks(fileUpdateBody(payerID, 0, "")))
	assert.Equal(t, types.StatusInvalidFileID, s)
}

func TestSystemFileUpdate(t *testing.T) {
	e := newEnv(t)
	contents := "[txn]\nmaxValidDurationSecs = 120\n"
	d, _ := e.submit(fileUpdateBody(payerID, e.cfg.Files.NetworkProperties, contents), e.payer)
	assert.Equal(t, types.StatusAuthorizationFailed, d.Builder.Status())

	d, _ = e.submit(fileUpdateBody(treasuryID, e.cfg.Files.NetworkProperties, contents), e.payer)
	require.Equal(t, types.StatusSuccess, d.Builder.Status())
	assert.Equal(t, []byte(contents), e.file(e.cfg.Files.NetworkProperties).Contents)
	// superusers pay nothing
	assert.Equal(t, int64(1000000), e.balance(treasuryID))
	assert.Equal(t, int64(120), d.Stack.Config().Txn.MaxValidDurationSecs)
}

func systemDeleteBody(payer types.AccountID, file int64, undelete bool) *types.TransactionBody {
	body := baseBody(payer)
	op := &types.SystemDeleteBody{FileID: file, Expiration: t0.Add(time.Hour)}
	if undelete {
		body.SystemUndelete = op
	} else {
		body.SystemDelete = op
	}
	return body
}

func TestSystemDeleteAndUndelete(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, saveFile(e.root, &types.File{ID: 1500, Contents: []byte("doc")}))

	d, _ := e.submit(systemDeleteBody(payerID, 1500, false), e.payer)
	assert.Equal(t, types.StatusNotSupported, d.Builder.Status())
	d, _ = e.submit(systemDeleteBody(delAdminID, 121, false), e.payer)
	assert.Equal(t, types.StatusEntityNotAllowedToDelete, d.Builder.Status())

	d, _ = e.submit(systemDeleteBody(delAdminID, 1500, false), e.payer)
	require.Equal(t, types.StatusSuccess, d.Builder.Status())
	f := e.file(1500)
	assert.True(t, f.Deleted)
	assert.True(t, f.Expiry.Equal(t0.Add(time.Hour)))

	// a deleted file can not be updated
	d, _ = e.submit(fileUpdateBody(payerID, 1500, "new"), e.payer)
	assert.Equal(t, types.StatusInvalidFileID, d.Builder.Status())

	d, _ = e.submit(systemDeleteBody(treasuryID, 1500, true), e.payer)
	require.Equal(t, types.StatusSuccess, d.Builder.Status())
	assert.False(t, e.file(1500).Deleted)
	assert.Equal(t, []byte("doc"), e.file(1500).Contents)

	body := systemDeleteBody(treasuryID, 1500, true)
	body.Memo = "twice"
	d, _ = e.submit(body, e.payer)
	assert.Equal(t, types.StatusInvalidFileID, d.Builder.Status())
}

func freezeBody(payer types.AccountID, typ types.FreezeType, start time.Time) *types.TransactionBody {
	body := baseBody(payer)
	body.Freeze = &types.FreezeBody{Type: typ, StartTime: start}
	return body
}

func TestFreeze(t *testing.T) {
	h := &freezeHandler{}
	s, _ := types.StatusOf(h.PureChecks(freezeBody(treasuryID, types.FreezeUnknown, t0)))
	assert.Equal(t, types.StatusInvalidFreezeTransactionBody, s)
	s, _ = types.StatusOf(h.PureChecks(freezeBody(treasuryID, types.FreezeOnly, time.Time{})))
	assert.Equal(t, types.StatusInvalidFreezeTransactionBody, s)

	e := newEnv(t)
	d, _ := e.submit(freezeBody(treasuryID, types.FreezeOnly, t0.Add(-time.Second)), e.payer)
	assert.Equal(t, types.StatusFreezeStartTimeMustBeFuture, d.Builder.Status())

	start := t0.Add(time.Hour)
	d, _ = e.submit(freezeBody(treasuryID, types.FreezeOnly, start), e.payer)
	require.Equal(t, types.StatusSuccess, d.Builder.Status())
	var ps types.PlatformState
	ok, err := state.GetValue(e.root, types.PlatformService, types.StatePlatformState, &ps)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, ps.FreezeTime.Equal(start))

	d, _ = e.submit(freezeBody(payerID, types.FreezeAbort, time.Time{}), e.payer)
	assert.Equal(t, types.StatusUnauthorized, d.Builder.Status())
}
