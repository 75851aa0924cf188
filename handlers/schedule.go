// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"github.com/33cn/dispatch/account"
	"github.com/33cn/dispatch/dispatch"
	"github.com/33cn/dispatch/sigs"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
)

// scheduleHandler schedule create and sign. A schedule collects the signatures of the keys its
// body needs and executes the body, as a scheduled dispatch, once they are all there.
type scheduleHandler struct {
	registry *Registry
}

func loadSchedule(st state.State, num int64) (*types.Schedule, bool, error) {
	var s types.Schedule
	ok, err := state.GetValue(st, types.ScheduleService, types.ScheduleKey(num), &s)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &s, true, nil
}

func saveSchedule(st state.WritableState, s *types.Schedule) error {
	return state.PutValue(st, types.ScheduleService, types.ScheduleKey(s.ID), s)
}

func (h *scheduleHandler) PureChecks(body *types.TransactionBody) error {
	if body.ScheduleSign != nil {
		if body.ScheduleSign.ScheduleID <= 0 {
			return types.NewPreCheckError(types.StatusInvalidScheduleID)
		}
		return nil
	}
	inner := body.ScheduleCreate.Scheduled
	if inner == nil {
		return types.NewPreCheckError(types.StatusInvalidTransaction)
	}
	if inner.ScheduleCreate != nil || inner.ScheduleSign != nil {
		return types.NewPreCheckError(types.StatusScheduledTransactionNotInWhitelist)
	}
	return h.registry.DispatchPureChecks(inner)
}

// RequiredKeys the keys of the scheduled body are optional: whoever of them signs now is recorded
func (h *scheduleHandler) RequiredKeys(body *types.TransactionBody, acc *account.DB, st state.WritableState, reqs *dispatch.KeyRequirements) error {
	var (
		inner *types.TransactionBody
		payer types.AccountID
	)
	if body.ScheduleSign != nil {
		s, ok, err := loadSchedule(st, body.ScheduleSign.ScheduleID)
		if err != nil {
			return err
		}
		if !ok {
			return types.NewPreCheckError(types.StatusInvalidScheduleID)
		}
		if s.Executed {
			return nil
		}
		inner, payer = s.Scheduled, s.Payer
	} else {
		inner, payer = body.ScheduleCreate.Scheduled, body.TransactionID.Payer
		if body.ScheduleCreate.Payer != nil {
			payer = *body.ScheduleCreate.Payer
		}
	}
	needed, err := h.neededKeys(inner, payer, acc, st)
	if err != nil {
		return err
	}
	for _, k := range needed.Required {
		reqs.AddOptional(k)
	}
	return nil
}

// neededKeys what must have signed before the scheduled body can run: its own keys and its payer's
func (h *scheduleHandler) neededKeys(inner *types.TransactionBody, payer types.AccountID, acc *account.DB, st state.WritableState) (*dispatch.KeyRequirements, error) {
	needed := &dispatch.KeyRequirements{}
	if err := h.registry.gather(inner, acc, st, needed); err != nil {
		return nil, err
	}
	p, err := loadLive(acc, payer)
	if err != nil {
		return nil, err
	}
	needed.AddAccount(p)
	return needed, nil
}

func (h *scheduleHandler) Handle(ctx *dispatch.HandleContext) error {
	if op := ctx.Body().ScheduleSign; op != nil {
		return h.sign(ctx, op)
	}
	op := ctx.Body().ScheduleCreate
	acc := ctx.Accounts()
	payer := ctx.Payer()
	if op.Payer != nil {
		payer = *op.Payer
	}
	num, err := acc.NextEntityNum()
	if err != nil {
		return err
	}
	s := &types.Schedule{
		ID:         num,
		Scheduled:  op.Scheduled,
		Payer:      payer,
		CreatorTxn: ctx.Body().TransactionID,
		Memo:       op.Memo,
	}
	ctx.Builder().SetScheduleRef(num)
	hlog.Debug("schedule created", "schedule", num, "payer", payer.Key(), "functionality", op.Scheduled.Functionality())
	return h.signAndTryExecute(ctx, acc, s)
}

func (h *scheduleHandler) sign(ctx *dispatch.HandleContext, op *types.ScheduleSignBody) error {
	s, ok, err := loadSchedule(ctx.State(), op.ScheduleID)
	if err != nil {
		return err
	}
	if !ok {
		return types.NewHandleError(types.StatusInvalidScheduleID)
	}
	if s.Executed {
		return types.NewHandleError(types.StatusScheduleAlreadyExecuted)
	}
	ctx.Builder().SetScheduleRef(s.ID)
	return h.signAndTryExecute(ctx, ctx.Accounts(), s)
}

// signAndTryExecute adds the needed keys that signed this transaction to the signatories and
// executes the schedule when nothing is missing
func (h *scheduleHandler) signAndTryExecute(ctx *dispatch.HandleContext, acc *account.DB, s *types.Schedule) error {
	needed, err := h.neededKeys(s.Scheduled, s.Payer, acc, ctx.State())
	if err != nil {
		return asHandleError(err)
	}
	if v := ctx.KeyVerifier(); v != nil {
		for _, k := range needed.Required {
			for _, p := range k.Primitives() {
				if v.VerificationFor(p).Passed {
					s.Signatories = addSignatory(s.Signatories, p)
				}
			}
		}
		for _, a := range needed.Hollow {
			if r := v.VerificationForAlias(a.Alias); r.Passed && r.Key != nil {
				s.Signatories = addSignatory(s.Signatories, r.Key)
			}
		}
	}

	verifier := signatoryVerifier(s.Signatories)
	for _, k := range needed.Required {
		if !verifier.VerificationFor(k).Passed {
			return saveSchedule(ctx.State(), s)
		}
	}
	for _, a := range needed.Hollow {
		if !verifier.VerificationForAlias(a.Alias).Passed {
			return saveSchedule(ctx.State(), s)
		}
	}

	body := *s.Scheduled
	body.TransactionID = s.CreatorTxn
	b, err := ctx.DispatchScheduled(&body, s.Payer, verifier)
	if err != nil {
		return err
	}
	b.SetScheduleRef(s.ID)
	s.Executed = true
	hlog.Info("schedule executed", "schedule", s.ID, "status", b.Status())
	return saveSchedule(ctx.State(), s)
}

func addSignatory(keys []*types.Key, key *types.Key) []*types.Key {
	for _, k := range keys {
		if k.String() == key.String() {
			return keys
		}
	}
	return append(keys, key)
}

// signatoryVerifier verifier that passes exactly the signatories
func signatoryVerifier(keys []*types.Key) *sigs.KeyVerifier {
	results := make([]*sigs.SignatureVerification, 0, len(keys))
	for _, k := range keys {
		r := &sigs.SignatureVerification{Key: k, Passed: true}
		if len(k.ECDSASecp256k1) > 0 {
			if alias, err := account.AliasFromKey(k); err == nil {
				r.EVMAlias = alias
			}
		}
		results = append(results, r)
	}
	return sigs.NewKeyVerifier(results)
}
