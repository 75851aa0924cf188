// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/33cn/dispatch/account"
	"github.com/33cn/dispatch/auth"
	"github.com/33cn/dispatch/common/db"
	"github.com/33cn/dispatch/fees"
	"github.com/33cn/dispatch/record"
	"github.com/33cn/dispatch/sigs"
	"github.com/33cn/dispatch/stack"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Unix(1700000000, 0)

var (
	payerID    = types.NewAccountID(1001)
	bobID      = types.NewAccountID(1002)
	carolID    = types.NewAccountID(1003)
	deletedID  = types.NewAccountID(1004)
	contractID = types.NewAccountID(1005)
	hollowID   = types.NewAccountID(1006)
	nodeAcct   = types.NewAccountID(3)
	fundingID  = types.NewAccountID(98)
	treasuryID = types.NewAccountID(2)

	baseFees = types.Fees{NodeFee: 10, NetworkFee: 20, ServiceFee: 30}
)

type scriptedDispatcher struct {
	pure    func(body *types.TransactionBody) error
	handle  func(ctx *HandleContext) error
	handled []types.TransactionCategory
}

func (s *scriptedDispatcher) DispatchPureChecks(body *types.TransactionBody) error {
	if s.pure == nil {
		return nil
	}
	return s.pure(body)
}

func (s *scriptedDispatcher) DispatchHandle(ctx *HandleContext) error {
	s.handled = append(s.handled, ctx.Category())
	if s.handle == nil {
		return applyTransfers(ctx)
	}
	return s.handle(ctx)
}

// applyTransfers moves the legs of a crypto transfer body, debits first
func applyTransfers(ctx *HandleContext) error {
	body := ctx.Body()
	if body.CryptoTransfer == nil {
		return nil
	}
	acc := ctx.Accounts()
	for _, leg := range body.CryptoTransfer.Transfers {
		if leg.Amount < 0 {
			if err := acc.AdjustBalance(leg.Account, leg.Amount); err != nil {
				return types.NewHandleError(types.StatusInsufficientAccountBalance)
			}
		}
	}
	for _, leg := range body.CryptoTransfer.Transfers {
		if leg.Amount > 0 {
			if err := acc.AdjustBalance(leg.Account, leg.Amount); err != nil {
				return types.NewHandleError(types.StatusInvalidAccountID)
			}
		}
	}
	return nil
}

type mockCache struct{ mock.Mock }

func (m *mockCache) HasDuplicate(id types.TransactionID, nodeID int64) types.DuplicateCheck {
	return m.Called(id, nodeID).Get(0).(types.DuplicateCheck)
}

type mockThrottle struct{ mock.Mock }

func (m *mockThrottle) TrackTxn(txn *types.TransactionInfo, now time.Time) bool {
	return m.Called(txn, now).Bool(0)
}

func (m *mockThrottle) TrackFeePayments(now time.Time) { m.Called(now) }

func (m *mockThrottle) WasLastTxnGasThrottled() bool { return m.Called().Bool(0) }

func (m *mockThrottle) LeakUnusedGasPreviouslyReserved(unused int64) { m.Called(unused) }

func (m *mockThrottle) SaveTo(w state.WritableState) error { return m.Called(w).Error(0) }

type mockFrontend struct{ mock.Mock }

func (m *mockFrontend) ReclaimCapacity(n int64) { m.Called(n) }

type outcomeRecorder struct {
	outcomes []Outcome
	work     []types.WorkDone
	rewards  []types.TransactionCategory
}

func (o *outcomeRecorder) ObserveDispatch(category types.TransactionCategory, outcome Outcome, work types.WorkDone, rewards bool) {
	if rewards {
		o.rewards = append(o.rewards, category)
	}
	if category == types.CategoryUser {
		o.outcomes = append(o.outcomes, outcome)
		o.work = append(o.work, work)
	}
}

func (o *outcomeRecorder) last() Outcome {
	return o.outcomes[len(o.outcomes)-1]
}

type fixture struct {
	t        *testing.T
	root     *state.DBState
	cfg      *types.Config
	priv     ed25519.PrivateKey
	key      *types.Key
	disp     *scriptedDispatcher
	cache    *mockCache
	throttle *mockThrottle
	frontend *mockFrontend
	observed *outcomeRecorder
	proc     *Processor
}

func newFixture(t *testing.T) *fixture {
	d, err := db.NewGoMemDB("dispatch", "", 0)
	require.NoError(t, err)
	cfg := types.DefaultConfig()
	cfg.Rates = &types.Rates{HbarEquiv: 1, CentEquiv: 1}
	cfg.Contracts.GasPriceTinycents = 1
	cfg.Fees = &types.FeeSchedule{NodeTinycents: 1, NetworkTinycents: 2, ServiceTinycents: 3}

	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 7
	priv := ed25519.NewKeyFromSeed(seed)
	f := &fixture{
		t:        t,
		root:     state.NewDBState(d),
		cfg:      cfg,
		priv:     priv,
		key:      &types.Key{Ed25519: priv.Public().(ed25519.PublicKey)},
		disp:     &scriptedDispatcher{},
		cache:    &mockCache{},
		throttle: &mockThrottle{},
		frontend: &mockFrontend{},
		observed: &outcomeRecorder{},
	}
	acc := account.NewAccountDB(f.root, cfg.Accounts.LastReservedSystemEntity)
	for _, a := range []*types.Account{
		{ID: payerID, Balance: 10000, Key: f.key},
		{ID: bobID, Key: f.key},
		{ID: carolID, Key: f.key},
		{ID: deletedID, Balance: 1000, Key: f.key, Deleted: true},
		{ID: contractID, Balance: 1000, Key: f.key, SmartContract: true},
		{ID: hollowID, Balance: 1000, Alias: make([]byte, types.EVMAddressLen)},
		{ID: nodeAcct, Balance: 100},
		{ID: fundingID},
		{ID: treasuryID, Balance: 1000000, Key: f.key},
		{ID: types.NewAccountID(cfg.Accounts.FreezeAdmin), Balance: 1000, Key: f.key},
		{ID: types.NewAccountID(cfg.Accounts.SystemDeleteAdmin), Balance: 1000, Key: f.key},
	} {
		require.NoError(t, acc.SaveAccount(a))
	}

	f.cache.On("HasDuplicate", mock.Anything, mock.Anything).Return(types.NoDuplicateFound).Maybe()
	f.defaultThrottle(false)

	usage := NewUsageManager(f.throttle, f.frontend, cfg.Node.SelfNodeID)
	f.proc = NewProcessor(f.disp, auth.NewAuthorizer(cfg), NewErrorReporter(f.cache), usage, fees.NewFlatCalculator(), f.observed)
	return f
}

func (f *fixture) defaultThrottle(gasThrottled bool) {
	f.throttle.ExpectedCalls = nil
	f.throttle.On("TrackTxn", mock.Anything, mock.Anything).Return(false).Maybe()
	f.throttle.On("TrackFeePayments", mock.Anything).Maybe()
	f.throttle.On("WasLastTxnGasThrottled").Return(gasThrottled).Maybe()
	f.throttle.On("LeakUnusedGasPreviouslyReserved", mock.Anything).Maybe()
	f.throttle.On("SaveTo", mock.Anything).Return(nil).Maybe()
}

func (f *fixture) duplicates(check types.DuplicateCheck) {
	f.cache.ExpectedCalls = nil
	f.cache.On("HasDuplicate", mock.Anything, int64(0)).Return(check)
}

func (f *fixture) txn(body *types.TransactionBody) *types.TransactionInfo {
	msg := []byte(body.TransactionID.Key() + "|" + body.Memo)
	return &types.TransactionInfo{
		Body:        body,
		SignedBytes: msg,
		Signatures:  []types.SignaturePair{{PubKeyPrefix: f.key.Ed25519[:6], Ed25519: ed25519.Sign(f.priv, msg)}},
	}
}

// dispatch user dispatch of body over a fresh root stack, signed by the fixture key
func (f *fixture) dispatch(body *types.TransactionBody, required ...*types.Key) *Dispatch {
	txn := f.txn(body)
	b, err := record.NewBuilder(f.cfg.Records.StreamMode, types.CategoryUser, types.Irreversible)
	require.NoError(f.t, err)
	b.SetTransactionID(body.TransactionID)
	st := stack.NewRootStack(f.root, f.cfg, b)
	keys := append([]*types.Key{f.key}, required...)
	verifier := sigs.VerifySignatures(txn.SignedBytes, txn.Signatures, keys)
	return NewUserDispatch(txn, types.NodeInfo{NodeID: 0, AccountID: nodeAcct}, t0, st, baseFees, required, nil, SoFarSoGood(), verifier)
}

func (f *fixture) balance(id types.AccountID) int64 {
	a, err := account.NewAccountDB(f.root, f.cfg.Accounts.LastReservedSystemEntity).LoadAccount(id)
	require.NoError(f.t, err)
	return a.Balance
}

func baseBody(payer types.AccountID) *types.TransactionBody {
	return &types.TransactionBody{
		TransactionID:  types.TransactionID{Payer: payer, ValidStart: t0.Add(-time.Second)},
		NodeAccountID:  nodeAcct,
		TransactionFee: 100,
		ValidDuration:  120 * time.Second,
	}
}

func transferBody(from, to types.AccountID, amount int64) *types.TransactionBody {
	body := baseBody(from)
	body.CryptoTransfer = &types.CryptoTransferBody{Transfers: []types.AccountAmount{
		{Account: from, Amount: -amount},
		{Account: to, Amount: amount},
	}}
	return body
}

func amounts(pairs ...int64) []types.AccountAmount {
	var out []types.AccountAmount
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, types.AccountAmount{Account: types.NewAccountID(pairs[i]), Amount: pairs[i+1]})
	}
	return out
}

func TestProcessSuccess(t *testing.T) {
	f := newFixture(t)
	d := f.dispatch(transferBody(payerID, bobID, 100))

	work := f.proc.ProcessDispatch(d)
	assert.Equal(t, types.UserTransaction, work)
	assert.Equal(t, types.StatusSuccess, d.Builder.Status())
	assert.Equal(t, int64(60), d.Builder.TransactionFee())
	assert.Equal(t, amounts(3, 10, 98, 50, 1001, -160, 1002, 100), d.Builder.Transfers())
	assert.Equal(t, int64(9840), f.balance(payerID))
	assert.Equal(t, int64(100), f.balance(bobID))
	assert.Equal(t, int64(110), f.balance(nodeAcct))
	assert.Equal(t, OutcomeSuccess, f.observed.last())
	f.throttle.AssertCalled(t, "TrackTxn", d.TxnInfo, t0)
	f.throttle.AssertCalled(t, "SaveTo", mock.Anything)
}

func TestProcessDueDiligenceFailure(t *testing.T) {
	f := newFixture(t)
	d := f.dispatch(transferBody(payerID, bobID, 100))
	d.PreHandle = &PreHandleResult{Status: types.NodeDueDiligenceFailure, ResponseCode: types.StatusInvalidNodeAccount}

	work := f.proc.ProcessDispatch(d)
	assert.Equal(t, types.FeesOnly, work)
	assert.Equal(t, types.StatusInvalidNodeAccount, d.Builder.Status())
	assert.Equal(t, int64(20), d.Builder.TransactionFee())
	assert.Equal(t, int64(80), f.balance(nodeAcct))
	assert.Equal(t, int64(10000), f.balance(payerID))
	assert.Empty(t, f.disp.handled)
	assert.Equal(t, OutcomeCreatorError, f.observed.last())
	f.throttle.AssertCalled(t, "TrackFeePayments", t0)
}

func TestProcessDuplicates(t *testing.T) {
	f := newFixture(t)
	f.duplicates(types.OtherNodeDuplicate)
	d := f.dispatch(transferBody(payerID, bobID, 100))
	assert.Equal(t, types.FeesOnly, f.proc.ProcessDispatch(d))
	assert.Equal(t, types.StatusDuplicateTransaction, d.Builder.Status())
	assert.Equal(t, int64(30), d.Builder.TransactionFee())
	assert.Equal(t, int64(9970), f.balance(payerID))
	assert.Equal(t, int64(0), f.balance(bobID))

	f.duplicates(types.SameNodeDuplicate)
	d = f.dispatch(transferBody(payerID, bobID, 100))
	assert.Equal(t, types.FeesOnly, f.proc.ProcessDispatch(d))
	assert.Equal(t, types.StatusDuplicateTransaction, d.Builder.Status())
	assert.Equal(t, int64(20), d.Builder.TransactionFee())
	assert.Equal(t, int64(9970), f.balance(payerID))
	assert.Equal(t, int64(90), f.balance(nodeAcct))
	assert.Equal(t, OutcomeCreatorError, f.observed.last())
}

func TestProcessHandleFailures(t *testing.T) {
	f := newFixture(t)
	f.disp.handle = func(ctx *HandleContext) error {
		require.NoError(t, applyTransfers(ctx))
		return types.NewHandleError(types.StatusInvalidAccountAmounts)
	}
	d := f.dispatch(transferBody(payerID, bobID, 100))
	assert.Equal(t, types.UserTransaction, f.proc.ProcessDispatch(d))
	assert.Equal(t, types.StatusInvalidAccountAmounts, d.Builder.Status())
	// charged once, after the rollback
	assert.Equal(t, int64(60), d.Builder.TransactionFee())
	assert.Equal(t, int64(9940), f.balance(payerID))
	assert.Equal(t, int64(0), f.balance(bobID))
	assert.Equal(t, OutcomeHandleFailure, f.observed.last())

	f.disp.handle = func(ctx *HandleContext) error {
		require.NoError(t, applyTransfers(ctx))
		return types.NewHandleErrorKeepState(types.StatusContractRevertExecuted)
	}
	d = f.dispatch(transferBody(payerID, bobID, 100))
	f.proc.ProcessDispatch(d)
	assert.Equal(t, types.StatusContractRevertExecuted, d.Builder.Status())
	assert.Equal(t, int64(9940-160), f.balance(payerID))
	assert.Equal(t, int64(100), f.balance(bobID))
}

func TestProcessThrottledAndPanics(t *testing.T) {
	f := newFixture(t)
	f.disp.handle = func(ctx *HandleContext) error {
		require.NoError(t, applyTransfers(ctx))
		return types.NewThrottleError(types.StatusThrottledAtConsensus)
	}
	d := f.dispatch(transferBody(payerID, bobID, 100))
	assert.Equal(t, types.FeesOnly, f.proc.ProcessDispatch(d))
	assert.Equal(t, types.StatusThrottledAtConsensus, d.Builder.Status())
	assert.Equal(t, int64(30), d.Builder.TransactionFee())
	assert.Equal(t, int64(9970), f.balance(payerID))
	assert.Equal(t, int64(0), f.balance(bobID))
	assert.Equal(t, OutcomeThrottled, f.observed.last())

	f.disp.handle = func(ctx *HandleContext) error {
		require.NoError(t, applyTransfers(ctx))
		var m map[string]int
		m["boom"]++
		return nil
	}
	d = f.dispatch(transferBody(payerID, bobID, 100))
	assert.Equal(t, types.FeesOnly, f.proc.ProcessDispatch(d))
	assert.Equal(t, types.StatusFailInvalid, d.Builder.Status())
	assert.Equal(t, int64(9940), f.balance(payerID))
	assert.Equal(t, int64(0), f.balance(bobID))
	assert.Equal(t, OutcomeFailInvalid, f.observed.last())
}

func contractBody(gas int64) *types.TransactionBody {
	body := baseBody(payerID)
	body.ContractCall = &types.ContractCallBody{ContractID: contractID, Gas: gas}
	return body
}

func TestProcessContractGas(t *testing.T) {
	f := newFixture(t)
	f.disp.handle = func(ctx *HandleContext) error {
		ctx.Builder().SetGasUsed(400)
		return nil
	}
	d := f.dispatch(contractBody(1000))
	assert.Equal(t, types.UserTransaction, f.proc.ProcessDispatch(d))
	assert.Equal(t, types.StatusSuccess, d.Builder.Status())
	f.throttle.AssertCalled(t, "LeakUnusedGasPreviouslyReserved", int64(600))
	f.throttle.AssertNumberOfCalls(t, "TrackTxn", 1)

	f = newFixture(t)
	f.cfg.Contracts.ThrottleByGas = false
	f.disp.handle = func(ctx *HandleContext) error {
		ctx.Builder().SetGasUsed(400)
		return nil
	}
	f.proc.ProcessDispatch(f.dispatch(contractBody(1000)))
	f.throttle.AssertNotCalled(t, "LeakUnusedGasPreviouslyReserved", mock.Anything)
}

func TestProcessGasExhausted(t *testing.T) {
	f := newFixture(t)
	f.defaultThrottle(true)
	d := f.dispatch(contractBody(1000))
	assert.Equal(t, types.FeesOnly, f.proc.ProcessDispatch(d))
	assert.Equal(t, types.StatusConsensusGasExhausted, d.Builder.Status())
	assert.Empty(t, f.disp.handled)
	assert.Equal(t, int64(30), d.Builder.TransactionFee())
	f.throttle.AssertCalled(t, "TrackFeePayments", t0)
}

func TestProcessReclaimsImplicitCreations(t *testing.T) {
	f := newFixture(t)
	alias := []byte("0123456789abcdefghij")
	f.frontend.On("ReclaimCapacity", int64(1)).Once()
	f.disp.handle = func(ctx *HandleContext) error {
		return types.NewHandleError(types.StatusInvalidAccountAmounts)
	}
	d := f.dispatch(transferBody(payerID, types.AliasAccountID(alias), 5))
	f.proc.ProcessDispatch(d)
	assert.Equal(t, types.StatusInvalidAccountAmounts, d.Builder.Status())
	f.frontend.AssertExpectations(t)

	// another node created it, nothing to give back here
	d = f.dispatch(transferBody(payerID, types.AliasAccountID(alias), 5))
	d.Creator.NodeID = 4
	f.cache.ExpectedCalls = nil
	f.cache.On("HasDuplicate", mock.Anything, int64(4)).Return(types.NoDuplicateFound)
	f.proc.ProcessDispatch(d)
	f.frontend.AssertNumberOfCalls(t, "ReclaimCapacity", 1)
}

func TestImplicitCreations(t *testing.T) {
	f := newFixture(t)
	a1 := []byte("0123456789abcdefghij")
	a2 := []byte("jihgfedcba9876543210")
	body := baseBody(payerID)
	body.CryptoTransfer = &types.CryptoTransferBody{Transfers: []types.AccountAmount{
		{Account: payerID, Amount: -3},
		{Account: types.AliasAccountID(a1), Amount: 1},
		{Account: types.AliasAccountID(a1), Amount: 1},
		{Account: types.AliasAccountID(a2), Amount: 1},
		{Account: types.AliasAccountID(make([]byte, types.EVMAddressLen)), Amount: 1},
	}}
	// the zero alias belongs to the hollow account
	assert.Equal(t, int64(2), ImplicitCreations(body, f.root, f.cfg.Accounts.LastReservedSystemEntity))

	eth := baseBody(payerID)
	eth.Ethereum = &types.EthereumBody{To: types.AliasAccountID(a1), Gas: 10}
	assert.Equal(t, int64(1), ImplicitCreations(eth, f.root, f.cfg.Accounts.LastReservedSystemEntity))
}

func TestAlreadyFailed(t *testing.T) {
	f := newFixture(t)
	other, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	freeze := baseBody(payerID)
	freeze.Freeze = &types.FreezeBody{Type: types.FreezeOnly, StartTime: t0.Add(time.Hour)}

	sysDelete := baseBody(payerID)
	sysDelete.SystemDelete = &types.SystemDeleteBody{FileID: 100}

	fileUpdate := baseBody(payerID)
	fileUpdate.FileUpdate = &types.FileUpdateBody{FileID: f.cfg.Files.NetworkProperties, Contents: []byte("x")}

	adminDelete := baseBody(types.NewAccountID(f.cfg.Accounts.SystemDeleteAdmin))
	adminDelete.SystemDelete = &types.SystemDeleteBody{FileID: 100}

	cases := []struct {
		name     string
		body     *types.TransactionBody
		required []*types.Key
		status   types.Status
	}{
		{"freeze by a user", freeze, nil, types.StatusUnauthorized},
		{"system delete by a user", sysDelete, nil, types.StatusNotSupported},
		{"system file update by a user", fileUpdate, nil, types.StatusAuthorizationFailed},
		{"system delete of a reserved file", adminDelete, nil, types.StatusEntityNotAllowedToDelete},
		{"missing signature", transferBody(payerID, bobID, 1), []*types.Key{{Ed25519: other}}, types.StatusInvalidSignature},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := f.dispatch(c.body, c.required...)
			assert.Equal(t, types.FeesOnly, f.proc.ProcessDispatch(d))
			assert.Equal(t, c.status, d.Builder.Status())
			assert.Equal(t, int64(60), d.Builder.TransactionFee())
			assert.Equal(t, OutcomePayerError, f.observed.last())
		})
	}
	assert.Empty(t, f.disp.handled)
}

func TestAlreadyFailedHollowAccounts(t *testing.T) {
	f := newFixture(t)
	var hollow types.Account
	ok, err := state.GetValue(f.root, types.TokenService, account.AccountKey(hollowID), &hollow)
	require.NoError(t, err)
	require.True(t, ok)

	d := f.dispatch(transferBody(payerID, bobID, 1))
	d.HollowAccounts = []*types.Account{&hollow}
	f.proc.ProcessDispatch(d)
	assert.Equal(t, types.StatusInvalidSignature, d.Builder.Status())

	d = f.dispatch(transferBody(payerID, bobID, 1), f.key)
	d.KeyVerifier = nil
	f.proc.ProcessDispatch(d)
	assert.Equal(t, types.StatusInvalidPayerSignature, d.Builder.Status())
}

func TestSystemFileUpdate(t *testing.T) {
	f := newFixture(t)
	f.disp.handle = func(ctx *HandleContext) error {
		body := ctx.Body().FileUpdate
		return state.PutValue(ctx.State(), types.FileService, types.FileKey(body.FileID),
			&types.File{ID: body.FileID, Contents: body.Contents})
	}
	update := func(fileID int64, contents string) *Dispatch {
		body := baseBody(treasuryID)
		body.FileUpdate = &types.FileUpdateBody{FileID: fileID, Contents: []byte(contents)}
		d := f.dispatch(body)
		f.proc.ProcessDispatch(d)
		assert.Equal(t, types.StatusSuccess, d.Builder.Status())
		// superusers pay nothing
		assert.Equal(t, int64(0), d.Builder.TransactionFee())
		return d
	}

	d := update(f.cfg.Files.NetworkProperties, "[contracts]\nthrottleByGas = false\n")
	assert.False(t, d.Stack.Config().Contracts.ThrottleByGas)
	assert.True(t, f.cfg.Contracts.ThrottleByGas)
	assert.Equal(t, int64(1000000), f.balance(treasuryID))

	d = update(f.cfg.Files.NetworkProperties, "[[[ not toml")
	assert.Equal(t, f.cfg, d.Stack.Config())

	d = update(f.cfg.Files.ExchangeRates, "[rates]\nhbarEquiv = 2\ncentEquiv = 3\n\n[contracts]\nthrottleByGas = false\n")
	assert.Equal(t, int64(2), d.Stack.Config().Rates.HbarEquiv)
	assert.Equal(t, int64(3), d.Stack.Config().Rates.CentEquiv)
	assert.True(t, d.Stack.Config().Contracts.ThrottleByGas)
}

func TestFreezeUpdatesPlatformState(t *testing.T) {
	f := newFixture(t)
	f.disp.handle = func(ctx *HandleContext) error { return nil }
	freezeAdmin := types.NewAccountID(f.cfg.Accounts.FreezeAdmin)

	body := baseBody(freezeAdmin)
	body.Freeze = &types.FreezeBody{Type: types.FreezeOnly, StartTime: t0.Add(time.Hour)}
	d := f.dispatch(body)
	f.proc.ProcessDispatch(d)
	require.Equal(t, types.StatusSuccess, d.Builder.Status())
	assert.Equal(t, int64(0), d.Builder.TransactionFee())

	var ps types.PlatformState
	ok, err := state.GetValue(f.root, types.PlatformService, types.StatePlatformState, &ps)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, ps.FreezeTime.Equal(t0.Add(time.Hour)))

	abort := baseBody(freezeAdmin)
	abort.TransactionID.ValidStart = t0.Add(-2 * time.Second)
	abort.Freeze = &types.FreezeBody{Type: types.FreezeAbort}
	f.proc.ProcessDispatch(f.dispatch(abort))
	ps = types.PlatformState{}
	_, err = state.GetValue(f.root, types.PlatformService, types.StatePlatformState, &ps)
	require.NoError(t, err)
	assert.True(t, ps.FreezeTime.IsZero())
}

func TestDeductTransfers(t *testing.T) {
	parent := amounts(3, 10, 1001, -15, 1003, 5)
	child := amounts(1001, -5, 1003, 5)
	assert.Equal(t, amounts(3, 10, 1001, -10), deductTransfers(parent, child))
	assert.Equal(t, parent, deductTransfers(parent, nil))
}
