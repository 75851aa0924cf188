// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package record builders for the record and block streams, the duplicate cache and the stream writer
package record

import (
	"time"

	"github.com/33cn/dispatch/common/log"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
	"github.com/pkg/errors"
)

var rlog = log.New("module", "record")

// Builder collects what a dispatch produced, for whichever streams are enabled
type Builder interface {
	Category() types.TransactionCategory
	ReversingBehavior() types.ReversingBehavior

	TransactionID() types.TransactionID
	SetTransactionID(types.TransactionID)
	Status() types.Status
	SetStatus(types.Status)
	SetConsensusTime(time.Time)
	SetParentConsensusTime(time.Time)
	SetTransactionFee(int64)
	TransactionFee() int64
	SetExchangeRate(types.ExchangeRate)
	SetGasUsed(int64)
	GasUsed() int64
	SetTransfers([]types.AccountAmount)
	Transfers() []types.AccountAmount
	SetMemo(string)
	SetScheduleRef(int64)
	SetCreatedAccount(types.AccountID, []byte)
	AddStateChanges([]state.StateChange)

	// NullOutSideEffects clears everything a reverted transaction must not report
	NullOutSideEffects()
	// Build appends the builder's output to out
	Build(out *Output)
}

// Record a transaction record of the record stream
type Record struct {
	TransactionID       types.TransactionID
	Category            types.TransactionCategory
	ConsensusTime       time.Time
	ParentConsensusTime time.Time
	Status              types.Status
	TransactionFee      int64
	Transfers           []types.AccountAmount
	ExchangeRate        types.ExchangeRate
	GasUsed             int64
	Memo                string
	ScheduleRef         int64
	CreatedAccount      *types.AccountID
	EVMAddress          []byte
}

// ItemKind kind of a block item
type ItemKind int32

// block item kinds
const (
	ItemTransaction ItemKind = iota + 1
	ItemTransactionResult
	ItemStateChanges
)

// BlockItem one item of the block stream
type BlockItem struct {
	Kind          ItemKind
	TransactionID types.TransactionID
	Result        *Record
	StateChanges  []state.StateChange
}

// Output what all builders of one user transaction produced, in stream order
type Output struct {
	Records []*Record
	Items   []*BlockItem
}

// TxnBuilder the builder for every stream mode
type TxnBuilder struct {
	records   bool
	blocks    bool
	category  types.TransactionCategory
	reversing types.ReversingBehavior

	rec     Record
	changes []state.StateChange
}

// NewBuilder builder for mode
func NewBuilder(mode types.StreamMode, category types.TransactionCategory, reversing types.ReversingBehavior) (*TxnBuilder, error) {
	b := &TxnBuilder{category: category, reversing: reversing}
	switch mode {
	case types.StreamRecords:
		b.records = true
	case types.StreamBlocks:
		b.blocks = true
	case types.StreamBoth:
		b.records = true
		b.blocks = true
	default:
		return nil, errors.Wrapf(types.ErrInvalidStreamMode, "mode %q", mode)
	}
	b.rec.Category = category
	b.rec.Status = types.StatusOK
	return b, nil
}

// Category category of the transaction being built
func (b *TxnBuilder) Category() types.TransactionCategory { return b.category }

// ReversingBehavior what a parent rollback does to this builder
func (b *TxnBuilder) ReversingBehavior() types.ReversingBehavior { return b.reversing }

// TransactionID id of the transaction
func (b *TxnBuilder) TransactionID() types.TransactionID { return b.rec.TransactionID }

// SetTransactionID sets the id
func (b *TxnBuilder) SetTransactionID(id types.TransactionID) { b.rec.TransactionID = id }

// Status current status
func (b *TxnBuilder) Status() types.Status { return b.rec.Status }

// SetStatus sets the status
func (b *TxnBuilder) SetStatus(s types.Status) { b.rec.Status = s }

// SetConsensusTime sets the consensus time
func (b *TxnBuilder) SetConsensusTime(t time.Time) { b.rec.ConsensusTime = t }

// SetParentConsensusTime consensus time of the user transaction of a following child
func (b *TxnBuilder) SetParentConsensusTime(t time.Time) { b.rec.ParentConsensusTime = t }

// SetTransactionFee total fee charged
func (b *TxnBuilder) SetTransactionFee(fee int64) { b.rec.TransactionFee = fee }

// TransactionFee total fee charged
func (b *TxnBuilder) TransactionFee() int64 { return b.rec.TransactionFee }

// SetExchangeRate rate in effect
func (b *TxnBuilder) SetExchangeRate(r types.ExchangeRate) { b.rec.ExchangeRate = r }

// SetGasUsed gas used by a contract operation
func (b *TxnBuilder) SetGasUsed(gas int64) { b.rec.GasUsed = gas }

// GasUsed gas used by a contract operation
func (b *TxnBuilder) GasUsed() int64 { return b.rec.GasUsed }

// SetTransfers the hbar transfer list
func (b *TxnBuilder) SetTransfers(t []types.AccountAmount) {
	b.rec.Transfers = append([]types.AccountAmount(nil), t...)
}

// Transfers the hbar transfer list
func (b *TxnBuilder) Transfers() []types.AccountAmount { return b.rec.Transfers }

// SetMemo memo of the transaction
func (b *TxnBuilder) SetMemo(m string) { b.rec.Memo = m }

// SetScheduleRef schedule that triggered a scheduled transaction
func (b *TxnBuilder) SetScheduleRef(id int64) { b.rec.ScheduleRef = id }

// SetCreatedAccount account created implicitly from an alias
func (b *TxnBuilder) SetCreatedAccount(id types.AccountID, evmAddress []byte) {
	b.rec.CreatedAccount = &id
	b.rec.EVMAddress = append([]byte(nil), evmAddress...)
}

// AddStateChanges state changes of the transaction, block stream only
func (b *TxnBuilder) AddStateChanges(changes []state.StateChange) {
	if !b.blocks {
		return
	}
	b.changes = append(b.changes, changes...)
}

// NullOutSideEffects drop transfers, created entities and state changes
func (b *TxnBuilder) NullOutSideEffects() {
	b.rec.Transfers = nil
	b.rec.CreatedAccount = nil
	b.rec.EVMAddress = nil
	b.rec.TransactionFee = 0
	b.rec.GasUsed = 0
	b.changes = nil
}

// Build appends the record and the block items
func (b *TxnBuilder) Build(out *Output) {
	rec := b.rec
	if b.records {
		out.Records = append(out.Records, &rec)
	}
	if b.blocks {
		out.Items = append(out.Items,
			&BlockItem{Kind: ItemTransaction, TransactionID: rec.TransactionID},
			&BlockItem{Kind: ItemTransactionResult, TransactionID: rec.TransactionID, Result: &rec},
		)
		if len(b.changes) > 0 {
			out.Items = append(out.Items, &BlockItem{Kind: ItemStateChanges, TransactionID: rec.TransactionID, StateChanges: b.changes})
		}
	}
	rlog.Debug("Build", "txid", rec.TransactionID.Key(), "category", b.category, "status", rec.Status)
}
