// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"fmt"
	"runtime/debug"

	"github.com/33cn/dispatch/account"
	"github.com/33cn/dispatch/record"
	"github.com/33cn/dispatch/types"
	"github.com/pkg/errors"
)

// Processor runs a dispatch to its terminal outcome: classify, charge, handle, finalize, commit.
// It is not safe for concurrent use; dispatches of one node are processed one at a time.
type Processor struct {
	dispatcher TransactionDispatcher
	authorizer Authorizer
	reporter   *ErrorReporter
	usage      *UsageManager
	system     *SystemUpdater
	calculator FeeCalculator
	observer   Observer
}

// NewProcessor processor over its collaborators. calculator prices scheduled children and may
// be nil, leaving them free; observer may be nil.
func NewProcessor(dispatcher TransactionDispatcher, authorizer Authorizer, reporter *ErrorReporter,
	usage *UsageManager, calculator FeeCalculator, observer Observer) *Processor {
	return &Processor{
		dispatcher: dispatcher,
		authorizer: authorizer,
		reporter:   reporter,
		usage:      usage,
		system:     NewSystemUpdater(),
		calculator: calculator,
		observer:   observer,
	}
}

// Dispatcher the business logic the processor hands off to
func (p *Processor) Dispatcher() TransactionDispatcher {
	return p.dispatcher
}

// HandleContextFor context to dispatch children of d, for work done before d is processed
func (p *Processor) HandleContextFor(d *Dispatch) *HandleContext {
	return &HandleContext{p: p, d: d}
}

// ProcessDispatch processes d and commits its whole stack. What the record builder reports is
// exactly what reaches the root state.
func (p *Processor) ProcessDispatch(d *Dispatch) types.WorkDone {
	report := p.reporter.ErrorReportFor(d)
	var work types.WorkDone
	var outcome Outcome
	if report.IsCreatorError() {
		p.chargeCreator(d, report)
		d.Builder.SetStatus(report.CreatorError)
		work, outcome = types.FeesOnly, OutcomeCreatorError
	} else {
		p.chargePayer(d, report, false)
		if status, failed := p.alreadyFailed(d, report); failed {
			d.Builder.SetStatus(status)
			work, outcome = types.FeesOnly, OutcomePayerError
		} else {
			work, outcome = p.tryHandle(d, report)
		}
	}
	p.usage.TrackUsage(d, work)
	p.finalize(d)
	if err := d.Stack.CommitFullStack(); err != nil {
		// nesting bug, the stack is no longer usable
		panic(errors.Wrapf(err, "commit dispatch %s", d.TxnInfo.TxnID().Key()))
	}
	if p.observer != nil {
		p.observer.ObserveDispatch(d.Category, outcome, work, d.Stack.PermitsStakingRewards())
	}
	dlog.Debug("ProcessDispatch", "txid", d.TxnInfo.TxnID().Key(), "category", d.Category,
		"status", d.Builder.Status(), "work", work, "fee", d.Builder.TransactionFee())
	return work
}

func (p *Processor) tryHandle(d *Dispatch, report *ErrorReport) (types.WorkDone, Outcome) {
	err := p.handle(d)
	if err == nil {
		return types.UserTransaction, OutcomeSuccess
	}
	var he *types.HandleError
	var te *types.ThrottleError
	switch {
	case errors.As(err, &he):
		if he.ShouldRollbackStack {
			d.Stack.RollbackFullStack()
			d.Builder.SetTransactionFee(0)
			p.chargePayer(d, report, false)
		}
		d.Builder.SetStatus(he.Status)
		return types.UserTransaction, OutcomeHandleFailure
	case errors.As(err, &te):
		p.nonHandleWorkDone(d, report, te.Status)
		return types.FeesOnly, OutcomeThrottled
	default:
		dlog.Crit("ALERT unexpected failure while handling", "txid", d.TxnInfo.TxnID().Key(),
			"functionality", d.Functionality(), "err", err)
		p.nonHandleWorkDone(d, report, types.StatusFailInvalid)
		return types.FeesOnly, OutcomeFailInvalid
	}
}

// handle screens capacity, runs the business logic and the system updates. A panic is
// returned as an error; it must never stop the node.
func (p *Processor) handle(d *Dispatch) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			dlog.Error("handle panic", "txid", d.TxnInfo.TxnID().Key(), "stack", string(debug.Stack()))
		}
	}()
	if err := p.usage.ScreenForCapacity(d); err != nil {
		return err
	}
	if err := p.dispatcher.DispatchHandle(&HandleContext{p: p, d: d}); err != nil {
		return err
	}
	d.Builder.SetStatus(types.StatusSuccess)
	return p.system.HandleSystemUpdates(d)
}

// nonHandleWorkDone the business logic did not get to run to completion: undo everything and
// charge what the payer owes without the service component
func (p *Processor) nonHandleWorkDone(d *Dispatch, report *ErrorReport, status types.Status) {
	d.Stack.RollbackFullStack()
	d.Builder.SetTransactionFee(0)
	p.chargePayer(d, report, true)
	d.Builder.SetStatus(status)
}

func (p *Processor) chargeCreator(d *Dispatch, report *ErrorReport) {
	if err := d.FeeAccumulator.ChargeNetworkFee(report.CreatorID, d.Fees.NetworkFee); err != nil {
		dlog.Error("chargeCreator", "creator", report.CreatorID.Key(), "err", err)
	}
}

// chargePayer charges nothing when the fees are waived, the fees without the service component
// when the payer can not cover it or the transaction is a duplicate, and the full fees otherwise
func (p *Processor) chargePayer(d *Dispatch, report *ErrorReport, withoutService bool) {
	payer := d.PayerID
	if report.Payer != nil {
		payer = report.Payer.ID
	}
	if p.authorizer.HasWaivedFees(payer, d.Functionality(), d.TxnInfo.Body) {
		return
	}
	owed := d.Fees
	if withoutService || report.UnableToPayServiceFee || report.IsDuplicate() {
		owed = owed.WithoutServiceComponent()
	}
	if err := d.FeeAccumulator.ChargeFees(payer, report.CreatorID, owed); err != nil {
		dlog.Error("chargePayer", "payer", payer.Key(), "fees", owed, "err", err)
	}
}

// alreadyFailed the status of a dispatch that must not reach the business logic
func (p *Processor) alreadyFailed(d *Dispatch, report *ErrorReport) (types.Status, bool) {
	if report.IsPayerError() {
		return report.PayerError, true
	}
	f := d.Functionality()
	body := d.TxnInfo.Body
	if !p.authorizer.IsAuthorized(d.PayerID, f) {
		if f == types.SystemDelete {
			return types.StatusNotSupported, true
		}
		return types.StatusUnauthorized, true
	}
	switch p.authorizer.HasPrivilegedAuthorization(d.PayerID, f, body) {
	case types.PrivilegeUnauthorized:
		return types.StatusAuthorizationFailed, true
	case types.PrivilegeImpermissible:
		return types.StatusEntityNotAllowedToDelete, true
	}
	if len(d.RequiredKeys) == 0 && len(d.HollowAccounts) == 0 {
		return types.StatusOK, false
	}
	if d.KeyVerifier == nil {
		return types.StatusInvalidSignature, true
	}
	for _, key := range d.RequiredKeys {
		if !d.KeyVerifier.VerificationFor(key).Passed {
			return types.StatusInvalidSignature, true
		}
	}
	for _, hollow := range d.HollowAccounts {
		if !d.KeyVerifier.VerificationForAlias(hollow.Alias).Passed {
			return types.StatusInvalidSignature, true
		}
	}
	return types.StatusOK, false
}

// finalize writes the exchange rate and the hbar transfers of the pending stack into the record.
// The record leaves out what the children it dispatched report themselves.
func (p *Processor) finalize(d *Dispatch) {
	cfg := d.Config()
	d.Builder.SetExchangeRate(types.ExchangeRate{HbarEquiv: cfg.Rates.HbarEquiv, CentEquiv: cfg.Rates.CentEquiv})
	transfers, err := account.BalanceChanges(d.Stack.State(), d.Stack.RootStates(), d.Stack.PendingKeys(types.TokenService))
	if err != nil {
		dlog.Error("finalize: transfers", "txid", d.TxnInfo.TxnID().Key(), "err", err)
		return
	}
	if len(d.children) > 0 {
		alive := make(map[record.Builder]bool)
		for _, b := range d.Stack.ChildBuilders() {
			alive[b] = true
		}
		for _, child := range d.children {
			// irreversible preceding children are already in the root
			if child.Category() == types.CategoryPreceding && child.ReversingBehavior() == types.Irreversible {
				continue
			}
			if alive[child] && child.Status().IsSuccess() {
				transfers = deductTransfers(transfers, child.Transfers())
			}
		}
	}
	d.Builder.SetTransfers(transfers)
}

// deductTransfers parent minus child, account by account, dropping accounts that net to zero
func deductTransfers(parent, child []types.AccountAmount) []types.AccountAmount {
	if len(child) == 0 {
		return parent
	}
	minus := make(map[string]int64, len(child))
	for _, c := range child {
		minus[c.Account.Key()] += c.Amount
	}
	out := make([]types.AccountAmount, 0, len(parent))
	for _, aa := range parent {
		aa.Amount -= minus[aa.Account.Key()]
		if aa.Amount != 0 {
			out = append(out, aa)
		}
	}
	return out
}
