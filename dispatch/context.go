// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"time"

	"github.com/33cn/dispatch/account"
	"github.com/33cn/dispatch/fees"
	"github.com/33cn/dispatch/record"
	"github.com/33cn/dispatch/sigs"
	"github.com/33cn/dispatch/stack"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
	"github.com/pkg/errors"
)

// HandleContext what the business logic of a dispatch can see and do
type HandleContext struct {
	p *Processor
	d *Dispatch
}

// Body of the transaction
func (c *HandleContext) Body() *types.TransactionBody {
	return c.d.TxnInfo.Body
}

// TxnInfo the transaction with its signatures
func (c *HandleContext) TxnInfo() *types.TransactionInfo {
	return c.d.TxnInfo
}

// Payer account paying for the transaction
func (c *HandleContext) Payer() types.AccountID {
	return c.d.PayerID
}

// Category of the dispatch
func (c *HandleContext) Category() types.TransactionCategory {
	return c.d.Category
}

// ConsensusNow consensus time of the user transaction
func (c *HandleContext) ConsensusNow() time.Time {
	return c.d.ConsensusNow
}

// Creator node that submitted the user transaction
func (c *HandleContext) Creator() types.NodeInfo {
	return c.d.Creator
}

// SavepointStack the stack of the dispatch, for business logic that needs savepoints of its own
func (c *HandleContext) SavepointStack() *stack.SavepointStack {
	return c.d.Stack
}

// State writable view of the top frame
func (c *HandleContext) State() state.WritableState {
	return c.d.Stack.State()
}

// Accounts account db over the top frame
func (c *HandleContext) Accounts() *account.DB {
	return account.NewAccountDB(c.d.Stack.State(), c.d.Config().Accounts.LastReservedSystemEntity)
}

// Config configuration in effect
func (c *HandleContext) Config() *types.Config {
	return c.d.Config()
}

// Builder record builder of the dispatch
func (c *HandleContext) Builder() record.Builder {
	return c.d.Builder
}

// KeyVerifier verification results of the dispatch, nil for children that carry none
func (c *HandleContext) KeyVerifier() *sigs.KeyVerifier {
	return c.d.KeyVerifier
}

// DispatchPreceding dispatches body before the user transaction. Its effects reach the root
// state at once and survive any later failure of the user transaction. Only a user dispatch
// with no savepoints and nothing pending can do this; the other preceding kinds have no such limit.
func (c *HandleContext) DispatchPreceding(body *types.TransactionBody, payer types.AccountID) (record.Builder, error) {
	return c.dispatchChild(body, payer, types.CategoryPreceding, types.Irreversible, nil)
}

// DispatchReversiblePreceding a preceding dispatch that is reverted with the user transaction
func (c *HandleContext) DispatchReversiblePreceding(body *types.TransactionBody, payer types.AccountID) (record.Builder, error) {
	return c.dispatchChild(body, payer, types.CategoryPreceding, types.Reversible, nil)
}

// DispatchRemovablePreceding a preceding dispatch whose record is dropped when the current frame
// is rolled back, such as the creation of an account the transaction only implied
func (c *HandleContext) DispatchRemovablePreceding(body *types.TransactionBody, payer types.AccountID) (record.Builder, error) {
	return c.dispatchChild(body, payer, types.CategoryPreceding, types.Removable, nil)
}

// DispatchChild dispatches body after the current transaction; a rollback of the current
// frame keeps its record with status REVERTED_SUCCESS
func (c *HandleContext) DispatchChild(body *types.TransactionBody, payer types.AccountID, verifier *sigs.KeyVerifier) (record.Builder, error) {
	return c.dispatchChild(body, payer, types.CategoryChild, types.Reversible, verifier)
}

// DispatchRemovableChild like DispatchChild, but a rollback drops the record
func (c *HandleContext) DispatchRemovableChild(body *types.TransactionBody, payer types.AccountID, verifier *sigs.KeyVerifier) (record.Builder, error) {
	return c.dispatchChild(body, payer, types.CategoryChild, types.Removable, verifier)
}

// DispatchScheduled executes a scheduled body on behalf of payer; the payer signature and the
// fees are checked as for a user transaction
func (c *HandleContext) DispatchScheduled(body *types.TransactionBody, payer types.AccountID, verifier *sigs.KeyVerifier) (record.Builder, error) {
	return c.dispatchChild(body, payer, types.CategoryScheduled, types.Reversible, verifier)
}

func (c *HandleContext) dispatchChild(body *types.TransactionBody, payer types.AccountID, category types.TransactionCategory,
	reversing types.ReversingBehavior, verifier *sigs.KeyVerifier) (record.Builder, error) {
	parent := c.d
	if body == nil {
		return nil, errors.Wrap(types.ErrIllegalArgument, "nil body")
	}
	if category == types.CategoryPreceding && reversing == types.Irreversible {
		if parent.Category != types.CategoryUser {
			return nil, errors.Wrapf(types.ErrIllegalArgument, "preceding dispatch from %s", parent.Category)
		}
		if parent.Stack.Depth() > 1 || parent.Stack.HasPendingChanges() {
			return nil, errors.Wrapf(types.ErrIllegalState, "preceding dispatch over pending changes, depth %d", parent.Stack.Depth())
		}
	}
	if reversing == types.Removable && parent.Category == types.CategoryPreceding {
		return nil, errors.Wrap(types.ErrIllegalArgument, "removable child of a preceding dispatch")
	}

	// the id comes first so that a failed allocation leaves no record behind
	child := *body
	if category == types.CategoryScheduled {
		child.TransactionID = body.TransactionID.AsScheduled()
	} else {
		id, err := parent.Stack.NextPresetTxnID(parent.Category != types.CategoryUser)
		if err != nil {
			return nil, err
		}
		child.TransactionID = id
	}
	b, err := parent.Stack.AddChildBuilder(category, reversing)
	if err != nil {
		return nil, err
	}
	b.SetTransactionID(child.TransactionID)
	if child.Memo != "" {
		b.SetMemo(child.Memo)
	}
	parent.children = append(parent.children, b)

	if err := c.p.dispatcher.DispatchPureChecks(&child); err != nil {
		b.SetStatus(statusOrFailInvalid(err))
		dlog.Debug("child failed pure checks", "txid", child.TransactionID.Key(), "err", err)
		return b, nil
	}

	childStack := stack.NewChildStack(parent.Stack, category, b)
	txn := &types.TransactionInfo{Body: &child}
	owed := types.FreeFees
	if category == types.CategoryScheduled && c.p.calculator != nil {
		owed = c.p.calculator.Compute(txn, childStack.Config())
	}
	cd := &Dispatch{
		TxnInfo:      txn,
		PayerID:      payer,
		Creator:      parent.Creator,
		Category:     category,
		ConsensusNow: parent.ConsensusNow,
		Stack:        childStack,
		Builder:      b,
		Fees:         owed,
		PreHandle:    SoFarSoGood(),
		KeyVerifier:  verifier,
	}
	cd.FeeAccumulator = fees.NewFeeAccumulator(childStack, childStack.Config().Accounts, b)
	c.p.ProcessDispatch(cd)

	if category == types.CategoryPreceding && reversing == types.Irreversible {
		if err := parent.Stack.CommitIrreversible(b); err != nil {
			return b, err
		}
	}
	return b, nil
}

func statusOrFailInvalid(err error) types.Status {
	if status, ok := types.StatusOf(err); ok {
		return status
	}
	return types.StatusFailInvalid
}
