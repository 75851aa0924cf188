// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"bytes"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/33cn/dispatch/account"
	"github.com/33cn/dispatch/auth"
	"github.com/33cn/dispatch/common/db"
	"github.com/33cn/dispatch/dispatch"
	"github.com/33cn/dispatch/fees"
	"github.com/33cn/dispatch/record"
	"github.com/33cn/dispatch/sigs"
	"github.com/33cn/dispatch/stack"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/throttle"
	"github.com/33cn/dispatch/types"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Unix(1700000000, 0)

var (
	payerID    = types.NewAccountID(1001)
	bobID      = types.NewAccountID(1002)
	carolID    = types.NewAccountID(1003)
	contractID = types.NewAccountID(1005)
	hollowID   = types.NewAccountID(1006)
	nodeAcct   = types.NewAccountID(3)
	fundingID  = types.NewAccountID(98)
	treasuryID = types.NewAccountID(2)
	delAdminID = types.NewAccountID(59)

	// the first entity number handed out, right after the reserved ones
	firstNew = types.NewAccountID(751)

	baseFees = types.Fees{NodeFee: 10, NetworkFee: 20, ServiceFee: 30}
)

type signer func(msg []byte) types.SignaturePair

func edSigner(priv ed25519.PrivateKey) signer {
	pub := priv.Public().(ed25519.PublicKey)
	return func(msg []byte) types.SignaturePair {
		return types.SignaturePair{PubKeyPrefix: pub[:6], Ed25519: ed25519.Sign(priv, msg)}
	}
}

func ecSigner(priv *btcec.PrivateKey) signer {
	pub := priv.PubKey().SerializeCompressed()
	return func(msg []byte) types.SignaturePair {
		return types.SignaturePair{PubKeyPrefix: pub, ECDSASecp256k1: sigs.SignECDSA(priv, msg)}
	}
}

func edKey(seed byte) (ed25519.PrivateKey, *types.Key) {
	s := make([]byte, ed25519.SeedSize)
	s[0] = seed
	priv := ed25519.NewKeyFromSeed(s)
	return priv, &types.Key{Ed25519: priv.Public().(ed25519.PublicKey)}
}

func ecKey(t *testing.T, b byte) (*btcec.PrivateKey, *types.Key, []byte) {
	priv, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{b}, 32))
	key := &types.Key{ECDSASecp256k1: priv.PubKey().SerializeCompressed()}
	evm, err := account.AliasFromKey(key)
	require.NoError(t, err)
	return priv, key, evm
}

type env struct {
	t        *testing.T
	root     *state.DBState
	cfg      *types.Config
	reg      *Registry
	proc     *dispatch.Processor
	payer    signer
	bob      signer
	carol    signer
	bobKey   *types.Key
	carolKey *types.Key
	ecPriv   *btcec.PrivateKey
	ecKey    *types.Key
	ecAlias  []byte
}

func newEnv(t *testing.T) *env {
	d, err := db.NewGoMemDB("handlers", "", 0)
	require.NoError(t, err)
	cfg := types.DefaultConfig()
	cfg.Rates = &types.Rates{HbarEquiv: 1, CentEquiv: 1}
	cfg.Contracts.GasPriceTinycents = 1
	cfg.Fees = &types.FeeSchedule{NodeTinycents: 1, NetworkTinycents: 2, ServiceTinycents: 3}

	payerPriv, payerKey := edKey(7)
	bobPriv, bobKey := edKey(8)
	carolPriv, carolKey := edKey(9)
	ecPriv, eck, evm := ecKey(t, 0x11)
	e := &env{
		t:        t,
		root:     state.NewDBState(d),
		cfg:      cfg,
		reg:      DefaultRegistry(),
		payer:    edSigner(payerPriv),
		bob:      edSigner(bobPriv),
		carol:    edSigner(carolPriv),
		bobKey:   bobKey,
		carolKey: carolKey,
		ecPriv:   ecPriv,
		ecKey:    eck,
		ecAlias:  evm,
	}
	acc := account.NewAccountDB(e.root, cfg.Accounts.LastReservedSystemEntity)
	for _, a := range []*types.Account{
		{ID: payerID, Balance: 1000000, Key: payerKey},
		{ID: bobID, Balance: 1000, Key: bobKey},
		{ID: carolID, Key: carolKey},
		{ID: contractID, Balance: 1000, SmartContract: true, Key: &types.Key{ContractID: 1005}},
		{ID: hollowID, Balance: 1000, Alias: evm},
		{ID: nodeAcct},
		{ID: fundingID},
		{ID: treasuryID, Balance: 1000000, Key: payerKey},
		{ID: types.NewAccountID(cfg.Accounts.FreezeAdmin), Balance: 1000, Key: payerKey},
		{ID: delAdminID, Balance: 1000, Key: payerKey},
	} {
		require.NoError(t, acc.SaveAccount(a))
	}

	net, err := throttle.NewNetworkUtilizationManager(cfg)
	require.NoError(t, err)
	cache, err := record.NewCache(1000, time.Minute)
	require.NoError(t, err)
	usage := dispatch.NewUsageManager(net, throttle.NewFrontendThrottle(cfg.Throttle.FrontendCryptoCreateTps), cfg.Node.SelfNodeID)
	e.proc = dispatch.NewProcessor(e.reg, auth.NewAuthorizer(cfg), dispatch.NewErrorReporter(cache), usage, fees.NewFlatCalculator(), nil)
	return e
}

// submit pre-handles body the way a node does, then processes it and returns the stream output
func (e *env) submit(body *types.TransactionBody, signers ...signer) (*dispatch.Dispatch, *record.Output) {
	msg := []byte(body.TransactionID.Key() + "|" + body.Memo)
	txn := &types.TransactionInfo{Body: body, SignedBytes: msg}
	for _, s := range signers {
		txn.Signatures = append(txn.Signatures, s(msg))
	}
	b, err := record.NewBuilder(e.cfg.Records.StreamMode, types.CategoryUser, types.Irreversible)
	require.NoError(e.t, err)
	b.SetTransactionID(body.TransactionID)
	st := stack.NewRootStack(e.root, e.cfg, b)

	pre := dispatch.SoFarSoGood()
	reqs := &dispatch.KeyRequirements{}
	if err := e.reg.DispatchPureChecks(body); err != nil {
		status, _ := types.StatusOf(err)
		pre = &dispatch.PreHandleResult{Status: types.PreHandleFailure, ResponseCode: status}
	} else if r, err := e.reg.GatherKeys(body, st.State(), e.cfg); err != nil {
		status, _ := types.StatusOf(err)
		pre = &dispatch.PreHandleResult{Status: types.PreHandleFailure, ResponseCode: status}
	} else {
		reqs = r
	}
	keys := append([]*types.Key{}, reqs.Required...)
	keys = append(keys, reqs.Optional...)
	if payer, err := e.accounts().LoadAccount(body.TransactionID.Payer); err == nil && payer.Key != nil {
		keys = append(keys, payer.Key)
	}
	keys = append(keys, sigs.ExtractECDSAKeys(txn.Signatures)...)
	verifier := sigs.VerifySignatures(msg, txn.Signatures, keys)

	d := dispatch.NewUserDispatch(txn, types.NodeInfo{NodeID: 0, AccountID: nodeAcct}, t0, st, baseFees, reqs.Required, reqs.Hollow, pre, verifier)
	e.proc.ProcessDispatch(d)
	return d, st.BuildOutput(t0)
}

func (e *env) accounts() *account.DB {
	return account.NewAccountDB(e.root, e.cfg.Accounts.LastReservedSystemEntity)
}

func (e *env) balance(id types.AccountID) int64 {
	a, err := e.accounts().LoadAccount(id)
	require.NoError(e.t, err)
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

func transferBody(payer types.AccountID, legs ...types.AccountAmount) *types.TransactionBody {
	body := baseBody(payer)
	body.CryptoTransfer = &types.CryptoTransferBody{Transfers: legs}
	return body
}

func leg(id types.AccountID, amount int64) types.AccountAmount {
	return types.AccountAmount{Account: id, Amount: amount}
}

func amounts(pairs ...int64) []types.AccountAmount {
	var out []types.AccountAmount
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, leg(types.NewAccountID(pairs[i]), pairs[i+1]))
	}
	return out
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	err := r.DispatchPureChecks(nil)
	status, ok := types.StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, types.StatusInvalidTransaction, status)

	err = r.DispatchPureChecks(baseBody(payerID))
	status, _ = types.StatusOf(err)
	assert.Equal(t, types.StatusNotSupported, status)

	assert.Panics(t, func() { r.Register(types.CryptoTransfer, &transferHandler{}) })
	assert.Panics(t, func() { r.Register(types.TokenMint, nil) })
}

func TestUnsupportedFunctionality(t *testing.T) {
	e := newEnv(t)
	d, _ := e.submit(baseBody(payerID), e.payer)
	assert.Equal(t, types.StatusNotSupported, d.Builder.Status())
	assert.Equal(t, int64(1000000-60), e.balance(payerID))
}
