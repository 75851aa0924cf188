// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package handlers 各类交易的业务逻辑
package handlers

import (
	"github.com/33cn/dispatch/account"
	"github.com/33cn/dispatch/common/log"
	"github.com/33cn/dispatch/dispatch"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
	"github.com/pkg/errors"
)

var hlog = log.New("module", "handlers")

// Handler business logic of one functionality
type Handler interface {
	// PureChecks checks that need nothing but the body, failing with a *types.PreCheckError
	PureChecks(body *types.TransactionBody) error
	// RequiredKeys adds the keys that must sign body to reqs
	RequiredKeys(body *types.TransactionBody, acc *account.DB, st state.WritableState, reqs *dispatch.KeyRequirements) error
	// Handle runs the business logic against the top frame of the dispatch
	Handle(ctx *dispatch.HandleContext) error
}

// Registry handlers by functionality. It is the dispatcher the processor hands off to.
type Registry struct {
	handlers map[types.Functionality]Handler
}

// NewRegistry empty registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[types.Functionality]Handler)}
}

// DefaultRegistry registry of every handler this package provides
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(types.CryptoTransfer, &transferHandler{})
	r.Register(types.CryptoCreate, &createHandler{})
	r.Register(types.CryptoUpdate, &updateHandler{})
	contract := &contractHandler{}
	r.Register(types.ContractCall, contract)
	r.Register(types.ContractCreate, contract)
	r.Register(types.EthereumTransaction, contract)
	r.Register(types.FileUpdate, &fileUpdateHandler{})
	r.Register(types.SystemDelete, &systemDeleteHandler{})
	r.Register(types.SystemUndelete, &systemUndeleteHandler{})
	r.Register(types.Freeze, &freezeHandler{})
	schedule := &scheduleHandler{registry: r}
	r.Register(types.ScheduleCreate, schedule)
	r.Register(types.ScheduleSign, schedule)
	return r
}

// Register adds the handler of f. Registering f twice is a programming error.
func (r *Registry) Register(f types.Functionality, h Handler) {
	if h == nil {
		panic("handlers: Register handler is nil")
	}
	if _, dup := r.handlers[f]; dup {
		panic("handlers: Register called twice for " + f.String())
	}
	r.handlers[f] = h
}

func (r *Registry) handler(body *types.TransactionBody) (Handler, bool) {
	h, ok := r.handlers[body.Functionality()]
	return h, ok
}

// DispatchPureChecks implements dispatch.TransactionDispatcher
func (r *Registry) DispatchPureChecks(body *types.TransactionBody) error {
	if body == nil {
		return types.NewPreCheckError(types.StatusInvalidTransaction)
	}
	h, ok := r.handler(body)
	if !ok {
		return types.NewPreCheckError(types.StatusNotSupported)
	}
	return h.PureChecks(body)
}

// DispatchHandle implements dispatch.TransactionDispatcher
func (r *Registry) DispatchHandle(ctx *dispatch.HandleContext) error {
	h, ok := r.handler(ctx.Body())
	if !ok {
		return types.NewHandleError(types.StatusNotSupported)
	}
	return h.Handle(ctx)
}

// GatherKeys implements dispatch.KeyGatherer
func (r *Registry) GatherKeys(body *types.TransactionBody, st state.WritableState, cfg *types.Config) (*dispatch.KeyRequirements, error) {
	reqs := &dispatch.KeyRequirements{}
	if err := r.gather(body, account.NewAccountDB(st, cfg.Accounts.LastReservedSystemEntity), st, reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *Registry) gather(body *types.TransactionBody, acc *account.DB, st state.WritableState, reqs *dispatch.KeyRequirements) error {
	if body == nil {
		return types.NewPreCheckError(types.StatusInvalidTransaction)
	}
	h, ok := r.handler(body)
	if !ok {
		return types.NewPreCheckError(types.StatusNotSupported)
	}
	return h.RequiredKeys(body, acc, st, reqs)
}

// asHandleError a pre-check failure found while handling becomes a handle failure
func asHandleError(err error) error {
	var pe *types.PreCheckError
	if errors.As(err, &pe) {
		return types.NewHandleError(pe.Status)
	}
	return err
}

// accountStatus status of an account db error, fallback when it is none of the known ones
func accountStatus(err error, fallback types.Status) types.Status {
	switch errors.Cause(err) {
	case types.ErrNotFound:
		return types.StatusInvalidAccountID
	case types.ErrAccountDeleted:
		return types.StatusAccountDeleted
	case types.ErrNoBalance:
		return types.StatusInsufficientAccountBalance
	case types.ErrInvalidAlias:
		return types.StatusInvalidAliasKey
	}
	return fallback
}

// loadLive account that exists and is not deleted, as a *types.PreCheckError otherwise
func loadLive(acc *account.DB, id types.AccountID) (*types.Account, error) {
	a, err := acc.LoadAccount(id)
	if err != nil {
		if errors.Cause(err) == types.ErrNotFound {
			return nil, types.NewPreCheckError(types.StatusInvalidAccountID)
		}
		return nil, err
	}
	if a.Deleted {
		return nil, types.NewPreCheckError(types.StatusAccountDeleted)
	}
	return a, nil
}
