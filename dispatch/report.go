// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"time"

	"github.com/33cn/dispatch/account"
	"github.com/33cn/dispatch/fees"
	"github.com/33cn/dispatch/types"
	"github.com/pkg/errors"
)

// ErrorReport who is at fault for a dispatch, found before any business logic runs.
// At most one of CreatorError and PayerError is set; StatusOK means unset.
type ErrorReport struct {
	CreatorID             types.AccountID
	CreatorError          types.Status
	Payer                 *types.Account
	PayerError            types.Status
	UnableToPayServiceFee bool
	DuplicateStatus       types.DuplicateStatus
}

func creatorErrorReport(creator types.AccountID, status types.Status) *ErrorReport {
	return &ErrorReport{CreatorID: creator, CreatorError: status}
}

func payerErrorReport(creator types.AccountID, payer *types.Account, status types.Status,
	unableToPayServiceFee bool, dup types.DuplicateStatus) *ErrorReport {
	return &ErrorReport{CreatorID: creator, Payer: payer, PayerError: status, UnableToPayServiceFee: unableToPayServiceFee, DuplicateStatus: dup}
}

func errorFreeReport(creator types.AccountID, payer *types.Account) *ErrorReport {
	return &ErrorReport{CreatorID: creator, Payer: payer}
}

// IsCreatorError the creator node is at fault
func (r *ErrorReport) IsCreatorError() bool {
	return r.CreatorError != types.StatusOK
}

// IsPayerError the payer is at fault
func (r *ErrorReport) IsPayerError() bool {
	return r.PayerError != types.StatusOK
}

// IsDuplicate handled before, by another node
func (r *ErrorReport) IsDuplicate() bool {
	return r.DuplicateStatus == types.Duplicate
}

// ErrorReporter classifies a dispatch before it is charged
type ErrorReporter struct {
	cache RecordCache
}

// NewErrorReporter reporter looking up duplicates in cache
func NewErrorReporter(cache RecordCache) *ErrorReporter {
	return &ErrorReporter{cache: cache}
}

// ErrorReportFor classifies d. The checks run in a fixed order and the first failure wins.
func (r *ErrorReporter) ErrorReportFor(d *Dispatch) *ErrorReport {
	creator := d.Creator.AccountID
	pre := d.PreHandle
	if pre == nil {
		pre = SoFarSoGood()
	}
	if pre.Status == types.NodeDueDiligenceFailure {
		return creatorErrorReport(creator, pre.ResponseCode)
	}
	if pre.Status == types.SoFarSoGood && d.Category == types.CategoryUser {
		if status := checkTimeBox(d.TxnInfo.Body, d.ConsensusNow, d.Config().Txn); status != types.StatusOK {
			return creatorErrorReport(creator, status)
		}
	}

	payer, status := r.payerFor(d)
	if status != types.StatusOK {
		return creatorErrorReport(creator, status)
	}
	userOrScheduled := d.Category == types.CategoryUser || d.Category == types.CategoryScheduled
	if userOrScheduled && !payer.IsHollow() {
		if d.KeyVerifier == nil || !d.KeyVerifier.VerificationFor(payer.Key).Passed {
			return creatorErrorReport(creator, types.StatusInvalidPayerSignature)
		}
	}

	dup := types.NoDuplicate
	if d.Category == types.CategoryUser && r.cache != nil {
		switch r.cache.HasDuplicate(d.TxnInfo.TxnID(), d.Creator.NodeID) {
		case types.SameNodeDuplicate:
			return creatorErrorReport(creator, types.StatusDuplicateTransaction)
		case types.OtherNodeDuplicate:
			dup = types.Duplicate
		}
	}

	// every category; only a user transaction is held to the fee it offered
	owed := d.Fees
	if dup == types.Duplicate {
		owed = owed.WithoutServiceComponent()
	}
	cfg := d.Config()
	checker := fees.NewSolvencyChecker(fees.RateOf(cfg), cfg.Contracts.GasPriceTinycents)
	if err := checker.CheckSolvency(d.TxnInfo.Body, payer, owed, d.Category != types.CategoryUser); err != nil {
		var ie *fees.InsufficientBalanceError
		if !errors.As(err, &ie) {
			dlog.Error("ErrorReportFor: solvency", "txid", d.TxnInfo.TxnID().Key(), "err", err)
			return creatorErrorReport(creator, types.StatusFailInvalid)
		}
		switch ie.Kind {
		case fees.ServiceFeeInsufficient:
			return payerErrorReport(creator, payer, ie.Status, true, dup)
		case fees.NonFeeDebitsInsufficient:
			return payerErrorReport(creator, payer, ie.Status, false, dup)
		default:
			return creatorErrorReport(creator, ie.Status)
		}
	}

	if dup == types.Duplicate {
		return payerErrorReport(creator, payer, types.StatusDuplicateTransaction, false, dup)
	}
	if pre.Status != types.SoFarSoGood {
		return payerErrorReport(creator, payer, pre.ResponseCode, false, dup)
	}
	return errorFreeReport(creator, payer)
}

// payerFor loads the payer. User and scheduled payers must be live; a user payer can not be a
// contract. Children may be paid by any account that exists, system accounts included.
func (r *ErrorReporter) payerFor(d *Dispatch) (*types.Account, types.Status) {
	acc := account.NewAccountDB(d.Stack.State(), d.Config().Accounts.LastReservedSystemEntity)
	payer, err := acc.LoadAccount(d.PayerID)
	if err != nil {
		if errors.Cause(err) != types.ErrNotFound {
			dlog.Error("payerFor", "payer", d.PayerID.Key(), "err", err)
		}
		return nil, types.StatusPayerAccountNotFound
	}
	switch d.Category {
	case types.CategoryUser:
		if payer.Deleted {
			return nil, types.StatusPayerAccountDeleted
		}
		if payer.SmartContract {
			return nil, types.StatusPayerAccountNotFound
		}
	case types.CategoryScheduled:
		if payer.Deleted {
			return nil, types.StatusPayerAccountDeleted
		}
	}
	return payer, types.StatusOK
}

// checkTimeBox the valid duration is within bounds and now is inside [validStart, validStart+duration)
func checkTimeBox(body *types.TransactionBody, now time.Time, txn *types.Txn) types.Status {
	min := time.Duration(txn.MinValidDurationSecs) * time.Second
	max := time.Duration(txn.MaxValidDurationSecs) * time.Second
	if body.ValidDuration < min || body.ValidDuration > max {
		return types.StatusInvalidTransactionDuration
	}
	start := body.TransactionID.ValidStart
	if now.Before(start) {
		return types.StatusInvalidTransactionStart
	}
	if !now.Before(start.Add(body.ValidDuration)) {
		return types.StatusTransactionExpired
	}
	return types.StatusOK
}
