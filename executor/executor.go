// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package executor 共识交易的执行入口: 预处理, 分发, 写记录流
package executor

import (
	"encoding/hex"
	"io"
	"sync"
	"time"

	"github.com/33cn/dispatch/account"
	"github.com/33cn/dispatch/auth"
	"github.com/33cn/dispatch/common/log"
	"github.com/33cn/dispatch/dispatch"
	"github.com/33cn/dispatch/fees"
	"github.com/33cn/dispatch/handlers"
	"github.com/33cn/dispatch/metrics"
	"github.com/33cn/dispatch/record"
	"github.com/33cn/dispatch/stack"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/throttle"
	"github.com/33cn/dispatch/types"
	log15 "github.com/inconshreveable/log15"
	"github.com/pkg/errors"
)

var elog = log.New("module", "executor")

// DisableLog discards the executor log
func DisableLog() {
	elog.SetHandler(log15.DiscardHandler())
}

// Executor handles the consensus transactions of one node, one at a time, over a root state
type Executor struct {
	mu sync.Mutex

	cfg        *types.Config
	root       *state.DBState
	registry   *handlers.Registry
	network    *throttle.NetworkUtilizationManager
	frontend   *throttle.FrontendThrottle
	cache      *record.Cache
	calculator *fees.FlatCalculator
	proc       *dispatch.Processor
	stream     *record.StreamWriter
	metrics    *metrics.DispatchMetrics
}

// New executor over root. Records go to w when it is not nil; m may be nil.
func New(cfg *types.Config, root *state.DBState, w io.Writer, m *metrics.DispatchMetrics) (*Executor, error) {
	cfg, err := restoreConfig(cfg, root)
	if err != nil {
		return nil, err
	}
	network, err := throttle.NewNetworkUtilizationManager(cfg)
	if err != nil {
		return nil, err
	}
	if err := network.LoadFrom(root); err != nil {
		return nil, errors.Wrap(err, "load throttles")
	}
	maxAge := time.Duration(cfg.Txn.MaxValidDurationSecs+cfg.Txn.MinValidityBufferSecs) * time.Second
	cache, err := record.NewCache(recordCacheSize(cfg, maxAge), maxAge)
	if err != nil {
		return nil, err
	}
	exec := &Executor{
		cfg:        cfg,
		root:       root,
		registry:   handlers.DefaultRegistry(),
		network:    network,
		frontend:   throttle.NewFrontendThrottle(cfg.Throttle.FrontendCryptoCreateTps),
		cache:      cache,
		calculator: fees.NewFlatCalculator(),
		metrics:    m,
	}
	if w != nil {
		exec.stream = record.NewStreamWriter(w, [32]byte{})
	}
	var observer dispatch.Observer
	if m != nil {
		observer = m
	}
	usage := dispatch.NewUsageManager(network, exec.frontend, cfg.Node.SelfNodeID)
	exec.proc = dispatch.NewProcessor(exec.registry, auth.NewAuthorizer(cfg), dispatch.NewErrorReporter(cache),
		usage, exec.calculator, observer)
	return exec, nil
}

// recordCacheSize at least every id the throttles can admit while one is still valid.
// Functionalities no bucket lists are not bounded and count on records.cacheSize alone.
func recordCacheSize(cfg *types.Config, maxAge time.Duration) int {
	var perSec, burst int64
	for _, b := range cfg.Throttle.Buckets {
		perSec += b.OpsPerSec
		burst += b.OpsPerSec * b.BurstSeconds
	}
	size := int64(cfg.Records.CacheSize)
	if admitted := perSec*int64(maxAge/time.Second) + burst; admitted > size {
		elog.Info("record cache sized from throttles", "cacheSize", size, "size", admitted)
		size = admitted
	}
	return int(size)
}

// restoreConfig applies the system files found in root on top of cfg, so a restarted node runs
// with the configuration the network last agreed on
func restoreConfig(cfg *types.Config, root state.State) (*types.Config, error) {
	for _, num := range []int64{cfg.Files.NetworkProperties, cfg.Files.ExchangeRates} {
		var f types.File
		ok, err := state.GetValue(root, types.FileService, types.FileKey(num), &f)
		if err != nil {
			return nil, errors.Wrapf(err, "load system file %d", num)
		}
		if !ok || f.Deleted || len(f.Contents) == 0 {
			continue
		}
		next, err := cfg.Override(string(f.Contents))
		if err != nil {
			elog.Warn("restoreConfig: system file ignored", "file", num, "err", err)
			continue
		}
		if num == cfg.Files.ExchangeRates {
			rates := next.Rates
			next = cfg.Clone()
			next.Rates = rates
		}
		cfg = next
	}
	return cfg, nil
}

// Config configuration the next transaction runs with
func (exec *Executor) Config() *types.Config {
	exec.mu.Lock()
	defer exec.mu.Unlock()
	return exec.cfg
}

// Root root state of the executor
func (exec *Executor) Root() *state.DBState {
	return exec.root
}

// Cache record cache used for duplicate detection
func (exec *Executor) Cache() *record.Cache {
	return exec.cache
}

// Stream the record stream writer, nil when records are not written
func (exec *Executor) Stream() *record.StreamWriter {
	return exec.stream
}

// Ingest admits a transaction submitted to this node. Transactions that would implicitly create
// more accounts than the frontend throttle allows are rejected with BUSY.
func (exec *Executor) Ingest(txn *types.TransactionInfo, now time.Time) error {
	if txn == nil || txn.Body == nil {
		return types.NewPreCheckError(types.StatusInvalidTransaction)
	}
	if err := exec.registry.DispatchPureChecks(txn.Body); err != nil {
		return err
	}
	exec.mu.Lock()
	defer exec.mu.Unlock()
	if exec.frozen(now) {
		return types.NewPreCheckError(types.StatusBusy)
	}
	n := dispatch.ImplicitCreations(txn.Body, exec.root, exec.cfg.Accounts.LastReservedSystemEntity)
	if exec.frontend.ShouldThrottleImplicitCreations(n, now) {
		elog.Debug("Ingest: throttled", "txid", txn.TxnID().Key(), "creations", n)
		return types.NewPreCheckError(types.StatusBusy)
	}
	return nil
}

func (exec *Executor) frozen(now time.Time) bool {
	var ps types.PlatformState
	ok, err := state.GetValue(exec.root, types.PlatformService, types.StatePlatformState, &ps)
	if err != nil {
		elog.Error("frozen: platform state", "err", err)
		return false
	}
	return ok && !ps.FreezeTime.IsZero() && !now.Before(ps.FreezeTime)
}

// HandleTransaction executes txn at consensus time now and returns the records it produced.
// An error means nothing was executed and the root state is unchanged.
func (exec *Executor) HandleTransaction(txn *types.TransactionInfo, creator types.NodeInfo, now time.Time) (*record.Output, error) {
	start := time.Now()
	if txn == nil || txn.Body == nil {
		return nil, errors.Wrap(types.ErrIllegalArgument, "nil transaction")
	}
	exec.mu.Lock()
	defer exec.mu.Unlock()
	if exec.frozen(now) {
		return nil, errors.Wrapf(types.ErrNetworkFrozen, "txid %s", txn.TxnID().Key())
	}

	cfg := exec.cfg
	b, err := record.NewBuilder(cfg.Records.StreamMode, types.CategoryUser, types.Irreversible)
	if err != nil {
		return nil, err
	}
	b.SetTransactionID(txn.TxnID())
	st := stack.NewRootStack(exec.root, cfg, b)

	pre, reqs := exec.preHandle(txn, creator, st)
	verifier := verifySignatures(txn, reqs, st, cfg)
	fee := exec.calculator.Compute(txn, cfg)
	d := dispatch.NewUserDispatch(txn, creator, now, st, fee, reqs.Required, reqs.Hollow, pre, verifier)
	if pre.Status == types.SoFarSoGood {
		exec.completeHollowPayer(d)
	}
	exec.proc.ProcessDispatch(d)

	out := st.BuildOutput(now)
	exec.cfg = st.Config()
	exec.cache.Add(txn.TxnID(), creator.NodeID, b.Status())
	exec.cache.Prune(now)
	if err := exec.root.Flush(); err != nil {
		elog.Crit("ALERT HandleTransaction: flush root state", "txid", txn.TxnID().Key(), "err", err)
		return nil, err
	}
	if exec.stream != nil {
		if err := exec.stream.WriteOutput(out); err != nil {
			return out, err
		}
	}
	if exec.metrics != nil {
		exec.metrics.UpdateUtilization(exec.network.GasPercentUsed(), exec.frontend.PercentUsed())
		exec.metrics.ObserveHandleTime(time.Since(start))
	}
	if len(out.Items) > 0 {
		elog.Debug("HandleTransaction block items", "txid", txn.TxnID().Key(), "items", len(out.Items),
			"root", hex.EncodeToString(out.ItemsRoot()))
	}
	elog.Info("HandleTransaction", "txid", txn.TxnID().Key(), "status", b.Status(),
		"fee", b.TransactionFee(), "records", len(out.Records), "cost", time.Since(start))
	return out, nil
}

// completeHollowPayer gives a hollow payer the ECDSA key that signed for its alias, as a
// preceding update committed before the transaction runs
func (exec *Executor) completeHollowPayer(d *dispatch.Dispatch) {
	acc := account.NewAccountDB(d.Stack.State(), d.Config().Accounts.LastReservedSystemEntity)
	payer, err := acc.LoadAccount(d.PayerID)
	if err != nil || !payer.IsHollow() || d.KeyVerifier == nil {
		return
	}
	r := d.KeyVerifier.VerificationForAlias(payer.Alias)
	if !r.Passed || r.Key == nil {
		return
	}
	body := &types.TransactionBody{
		TransactionID: d.TxnInfo.TxnID(),
		NodeAccountID: d.TxnInfo.Body.NodeAccountID,
		CryptoUpdate:  &types.CryptoUpdateBody{Account: payer.ID, Key: r.Key},
	}
	child, err := exec.proc.HandleContextFor(d).DispatchPreceding(body, payer.ID)
	if err != nil {
		elog.Error("completeHollowPayer", "payer", payer.ID.Key(), "err", err)
		return
	}
	elog.Info("hollow payer completed", "payer", payer.ID.Key(), "status", child.Status())
}
