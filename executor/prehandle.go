// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package executor

import (
	"github.com/33cn/dispatch/account"
	"github.com/33cn/dispatch/dispatch"
	"github.com/33cn/dispatch/sigs"
	"github.com/33cn/dispatch/stack"
	"github.com/33cn/dispatch/types"
)

// preHandle runs the checks that need no fees to be charged: the due diligence of the creator,
// the pure checks of the body and the keys it needs
func (exec *Executor) preHandle(txn *types.TransactionInfo, creator types.NodeInfo, st *stack.SavepointStack) (*dispatch.PreHandleResult, *dispatch.KeyRequirements) {
	reqs := &dispatch.KeyRequirements{}
	body := txn.Body
	if creator.Deleted || !body.NodeAccountID.Equal(creator.AccountID) {
		elog.Warn("preHandle: node due diligence", "txid", txn.TxnID().Key(), "creator", creator.AccountID.Key(),
			"nodeAccount", body.NodeAccountID.Key(), "deleted", creator.Deleted)
		return &dispatch.PreHandleResult{Status: types.NodeDueDiligenceFailure, ResponseCode: types.StatusInvalidNodeAccount}, reqs
	}
	if err := exec.registry.DispatchPureChecks(body); err != nil {
		return failure(err), reqs
	}
	r, err := exec.registry.GatherKeys(body, st.State(), st.Config())
	if err != nil {
		return failure(err), reqs
	}
	// a hollow payer signs with the key behind its evm address
	acc := account.NewAccountDB(st.State(), st.Config().Accounts.LastReservedSystemEntity)
	if payer, err := acc.LoadAccount(txn.Payer()); err == nil && payer.IsHollow() {
		r.AddAccount(payer)
	}
	return dispatch.SoFarSoGood(), r
}

func failure(err error) *dispatch.PreHandleResult {
	status, ok := types.StatusOf(err)
	if !ok {
		elog.Error("preHandle: unexpected failure", "err", err)
		return &dispatch.PreHandleResult{Status: types.UnknownFailure, ResponseCode: types.StatusFailInvalid}
	}
	return &dispatch.PreHandleResult{Status: types.PreHandleFailure, ResponseCode: status}
}

// verifySignatures checks the signatures against every key the transaction may need: its
// payer's, the required and optional ones, and the ECDSA keys offered for hollow accounts
func verifySignatures(txn *types.TransactionInfo, reqs *dispatch.KeyRequirements, st *stack.SavepointStack, cfg *types.Config) *sigs.KeyVerifier {
	keys := make([]*types.Key, 0, len(reqs.Required)+len(reqs.Optional)+1)
	acc := account.NewAccountDB(st.State(), cfg.Accounts.LastReservedSystemEntity)
	if payer, err := acc.LoadAccount(txn.Payer()); err == nil && !payer.Key.IsEmpty() {
		keys = append(keys, payer.Key)
	}
	keys = append(keys, reqs.Required...)
	keys = append(keys, reqs.Optional...)
	keys = append(keys, sigs.ExtractECDSAKeys(txn.Signatures)...)
	return sigs.VerifySignatures(txn.SignedBytes, txn.Signatures, keys)
}
