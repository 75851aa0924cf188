// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dispatch 交易执行流程: 错误分类, 扣费, 执行业务逻辑, 生成记录, 提交状态
package dispatch

import (
	"time"

	"github.com/33cn/dispatch/common/log"
	"github.com/33cn/dispatch/fees"
	"github.com/33cn/dispatch/record"
	"github.com/33cn/dispatch/sigs"
	"github.com/33cn/dispatch/stack"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
)

var dlog = log.New("module", "dispatch")

// TransactionDispatcher the business logic of every transaction type
type TransactionDispatcher interface {
	// DispatchPureChecks checks that need nothing but the body
	DispatchPureChecks(body *types.TransactionBody) error
	// DispatchHandle runs the business logic, failing with a *types.HandleError or *types.ThrottleError
	DispatchHandle(ctx *HandleContext) error
}

// Authorizer API permissions and fee waivers
type Authorizer interface {
	IsAuthorized(payer types.AccountID, f types.Functionality) bool
	HasPrivilegedAuthorization(payer types.AccountID, f types.Functionality, body *types.TransactionBody) types.SystemPrivilege
	HasWaivedFees(payer types.AccountID, f types.Functionality, body *types.TransactionBody) bool
}

// RecordCache transactions already handled in the current window
type RecordCache interface {
	HasDuplicate(id types.TransactionID, nodeID int64) types.DuplicateCheck
}

// ThrottleManager the consensus throttles
type ThrottleManager interface {
	TrackTxn(txn *types.TransactionInfo, now time.Time) bool
	TrackFeePayments(now time.Time)
	WasLastTxnGasThrottled() bool
	LeakUnusedGasPreviouslyReserved(unused int64)
	SaveTo(w state.WritableState) error
}

// FrontendThrottle the node local throttle used at ingest
type FrontendThrottle interface {
	ReclaimCapacity(n int64)
}

// FeeCalculator fees of a transaction under a configuration
type FeeCalculator interface {
	Compute(txn *types.TransactionInfo, cfg *types.Config) types.Fees
}

// Outcome how a dispatch ended, for metrics
type Outcome int32

// outcomes
const (
	OutcomeSuccess Outcome = iota
	OutcomeCreatorError
	OutcomePayerError
	OutcomeHandleFailure
	OutcomeThrottled
	OutcomeFailInvalid
)

var outcomeNames = map[Outcome]string{
	OutcomeSuccess:       "success",
	OutcomeCreatorError:  "creator_error",
	OutcomePayerError:    "payer_error",
	OutcomeHandleFailure: "handle_failure",
	OutcomeThrottled:     "throttled",
	OutcomeFailInvalid:   "fail_invalid",
}

func (o Outcome) String() string {
	return outcomeNames[o]
}

// Observer notified once per processed dispatch. rewards is true when the dispatch is the one
// of its causal chain where staking rewards are settled.
type Observer interface {
	ObserveDispatch(category types.TransactionCategory, outcome Outcome, work types.WorkDone, rewards bool)
}

// PreHandleResult what the pre-handle workflow found out about a transaction
type PreHandleResult struct {
	Status       types.PreHandleStatus
	ResponseCode types.Status
}

// SoFarSoGood result of a transaction that passed pre-handle
func SoFarSoGood() *PreHandleResult {
	return &PreHandleResult{Status: types.SoFarSoGood, ResponseCode: types.StatusOK}
}

// Dispatch one transaction to execute, user or nested
type Dispatch struct {
	TxnInfo        *types.TransactionInfo
	PayerID        types.AccountID
	Creator        types.NodeInfo
	Category       types.TransactionCategory
	ConsensusNow   time.Time
	Stack          *stack.SavepointStack
	Builder        record.Builder
	Fees           types.Fees
	RequiredKeys   []*types.Key
	HollowAccounts []*types.Account
	PreHandle      *PreHandleResult
	KeyVerifier    *sigs.KeyVerifier
	FeeAccumulator fees.Accumulator

	// builders of the children dispatched directly by this dispatch
	children []record.Builder
}

// NewUserDispatch dispatch of a user transaction over a fresh root stack
func NewUserDispatch(txn *types.TransactionInfo, creator types.NodeInfo, now time.Time, st *stack.SavepointStack,
	fee types.Fees, required []*types.Key, hollow []*types.Account, pre *PreHandleResult, verifier *sigs.KeyVerifier) *Dispatch {
	d := &Dispatch{
		TxnInfo:        txn,
		PayerID:        txn.Payer(),
		Creator:        creator,
		Category:       types.CategoryUser,
		ConsensusNow:   now,
		Stack:          st,
		Builder:        st.BaseBuilder(),
		Fees:           fee,
		RequiredKeys:   required,
		HollowAccounts: hollow,
		PreHandle:      pre,
		KeyVerifier:    verifier,
	}
	d.FeeAccumulator = fees.NewFeeAccumulator(st, st.Config().Accounts, d.Builder)
	return d
}

// Functionality of the transaction
func (d *Dispatch) Functionality() types.Functionality {
	return d.TxnInfo.Functionality()
}

// Config configuration in effect for the dispatch
func (d *Dispatch) Config() *types.Config {
	return d.Stack.Config()
}
