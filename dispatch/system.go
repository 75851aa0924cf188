// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"time"

	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
)

// SystemUpdater side effects of successful system transactions on the configuration and
// the platform state
type SystemUpdater struct{}

// NewSystemUpdater updater
func NewSystemUpdater() *SystemUpdater {
	return &SystemUpdater{}
}

// HandleSystemUpdates runs after the business logic of d succeeded
func (s *SystemUpdater) HandleSystemUpdates(d *Dispatch) error {
	body := d.TxnInfo.Body
	switch {
	case body.FileUpdate != nil:
		return s.fileUpdated(d, body.FileUpdate.FileID)
	case body.Freeze != nil:
		return s.freeze(d, body.Freeze)
	}
	return nil
}

// fileUpdated applies the network properties file, or the exchange rates in the rates file, to
// the configuration of the stack. A file that does not parse leaves the configuration alone.
func (s *SystemUpdater) fileUpdated(d *Dispatch, fileID int64) error {
	cfg := d.Config()
	if fileID != cfg.Files.NetworkProperties && fileID != cfg.Files.ExchangeRates {
		return nil
	}
	var f types.File
	ok, err := state.GetValue(d.Stack.State(), types.FileService, types.FileKey(fileID), &f)
	if err != nil {
		return err
	}
	if !ok {
		dlog.Warn("system file missing after update", "file", fileID)
		return nil
	}
	next, err := cfg.Override(string(f.Contents))
	if err != nil {
		dlog.Warn("system file rejected", "file", fileID, "err", err)
		return nil
	}
	if fileID == cfg.Files.ExchangeRates {
		rates := next.Rates
		next = cfg.Clone()
		next.Rates = rates
	}
	d.Stack.SetConfig(next)
	dlog.Info("configuration updated", "file", fileID, "txid", d.TxnInfo.TxnID().Key())
	return nil
}

func (s *SystemUpdater) freeze(d *Dispatch, body *types.FreezeBody) error {
	w := d.Stack.State()
	var ps types.PlatformState
	if _, err := state.GetValue(w, types.PlatformService, types.StatePlatformState, &ps); err != nil {
		return err
	}
	switch body.Type {
	case types.FreezeOnly, types.FreezeUpgrade:
		ps.FreezeTime = body.StartTime
	case types.FreezeAbort:
		ps.FreezeTime = time.Time{}
	default:
		return nil
	}
	dlog.Info("freeze time", "type", body.Type, "time", ps.FreezeTime)
	return state.PutValue(w, types.PlatformService, types.StatePlatformState, &ps)
}
