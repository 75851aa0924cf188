// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package throttle

import (
	"time"

	"github.com/33cn/dispatch/common/log"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
	"github.com/pkg/errors"
)

var tlog = log.New("module", "throttle")

// Usage persisted usage of every throttle
type Usage struct {
	Buckets []Snapshot `cbor:"1,keyasint"`
	Gas     Snapshot   `cbor:"2,keyasint"`
}

// NetworkUtilizationManager the consensus throttles every node applies identically
type NetworkUtilizationManager struct {
	buckets []*Bucket
	byFunc  map[types.Functionality][]*Bucket

	gas              *Bucket
	throttleByGas    bool
	maxGasPerTxn     int64
	lastGasThrottled bool

	congestionLevels []int64
	congestionStarts []time.Time
}

// NewNetworkUtilizationManager manager for the throttle and contracts sections of cfg
func NewNetworkUtilizationManager(cfg *types.Config) (*NetworkUtilizationManager, error) {
	m := &NetworkUtilizationManager{
		byFunc:           make(map[types.Functionality][]*Bucket),
		gas:              NewBucket("gas", cfg.Contracts.MaxGasPerSec, 1),
		throttleByGas:    cfg.Contracts.ThrottleByGas,
		maxGasPerTxn:     cfg.Contracts.MaxGasPerTxn,
		congestionLevels: append([]int64(nil), cfg.Throttle.CongestionLevels...),
	}
	m.congestionStarts = make([]time.Time, len(m.congestionLevels))
	for _, bc := range cfg.Throttle.Buckets {
		b := NewBucket(bc.Name, bc.OpsPerSec, bc.BurstSeconds)
		m.buckets = append(m.buckets, b)
		for _, name := range bc.Functionalities {
			f, ok := types.FunctionalityFromString(name)
			if !ok {
				return nil, errors.Wrapf(types.ErrInvalidParam, "bucket %s: unknown functionality %s", bc.Name, name)
			}
			m.byFunc[f] = append(m.byFunc[f], b)
		}
	}
	return m, nil
}

// TrackTxn uses the capacity txn needs at now and reports whether it was throttled.
// Every transaction uses one op from each bucket of its functionality, all or nothing.
// Contract operations also use gas when throttling by gas.
func (m *NetworkUtilizationManager) TrackTxn(txn *types.TransactionInfo, now time.Time) bool {
	throttled := m.track(txn.Functionality(), txn.Body.GasLimit(), now)
	m.updateCongestionStarts(now)
	return throttled
}

// TrackFeePayments uses the capacity of a fee-only crypto transfer
func (m *NetworkUtilizationManager) TrackFeePayments(now time.Time) {
	m.track(types.CryptoTransfer, 0, now)
	m.updateCongestionStarts(now)
}

func (m *NetworkUtilizationManager) track(f types.Functionality, gasLimit int64, now time.Time) bool {
	if f.IsContractOperation() {
		m.lastGasThrottled = false
	}
	buckets := m.byFunc[f]
	for _, b := range buckets {
		if !b.HasCapacity(now, 1) {
			tlog.Info("throttled", "functionality", f, "bucket", b.Name)
			return true
		}
	}
	if f.IsContractOperation() && m.throttleByGas && (gasLimit > m.maxGasPerTxn || !m.gas.Allow(now, gasLimit)) {
		m.lastGasThrottled = true
		tlog.Info("gas throttled", "functionality", f, "gas", gasLimit, "used%", m.gas.PercentUsed())
		return true
	}
	for _, b := range buckets {
		b.Use(1)
	}
	return false
}

// WasLastTxnGasThrottled whether the last contract operation tracked ran out of gas capacity
func (m *NetworkUtilizationManager) WasLastTxnGasThrottled() bool {
	return m.lastGasThrottled
}

// LeakUnusedGasPreviouslyReserved gives back gas reserved by TrackTxn but not used
func (m *NetworkUtilizationManager) LeakUnusedGasPreviouslyReserved(unused int64) {
	if unused > 0 {
		m.gas.Reclaim(unused)
	}
}

// GasPercentUsed utilization of the gas throttle
func (m *NetworkUtilizationManager) GasPercentUsed() int64 {
	return m.gas.PercentUsed()
}

func (m *NetworkUtilizationManager) maxPercentUsed() int64 {
	max := int64(0)
	if m.throttleByGas {
		max = m.gas.PercentUsed()
	}
	for _, b := range m.buckets {
		if p := b.PercentUsed(); p > max {
			max = p
		}
	}
	return max
}

func (m *NetworkUtilizationManager) updateCongestionStarts(now time.Time) {
	used := m.maxPercentUsed()
	for i, level := range m.congestionLevels {
		if used >= level {
			if m.congestionStarts[i].IsZero() {
				m.congestionStarts[i] = now
			}
		} else {
			m.congestionStarts[i] = time.Time{}
		}
	}
}

// CongestionStarts when each congestion level was last entered, zero when not congested
func (m *NetworkUtilizationManager) CongestionStarts() []time.Time {
	return append([]time.Time(nil), m.congestionStarts...)
}

// Usage snapshots of every throttle
func (m *NetworkUtilizationManager) Usage() Usage {
	u := Usage{Gas: m.gas.Snapshot()}
	for _, b := range m.buckets {
		u.Buckets = append(u.Buckets, b.Snapshot())
	}
	return u
}

// ResetUsage restores snapshots taken by Usage
func (m *NetworkUtilizationManager) ResetUsage(u Usage) {
	m.gas.ResetUsage(u.Gas)
	for i, s := range u.Buckets {
		if i < len(m.buckets) {
			m.buckets[i].ResetUsage(s)
		}
	}
}

// SaveTo writes the snapshots and congestion starts into w
func (m *NetworkUtilizationManager) SaveTo(w state.WritableState) error {
	if err := state.PutValue(w, types.ThrottleService, types.StateThrottleUsage, m.Usage()); err != nil {
		return err
	}
	return state.PutValue(w, types.ThrottleService, types.StateCongestionStarts, m.congestionStarts)
}

// LoadFrom restores what SaveTo wrote, keeping the current usage when nothing was saved
func (m *NetworkUtilizationManager) LoadFrom(s state.State) error {
	var u Usage
	ok, err := state.GetValue(s, types.ThrottleService, types.StateThrottleUsage, &u)
	if err != nil {
		return err
	}
	if ok {
		m.ResetUsage(u)
	}
	var starts []time.Time
	ok, err = state.GetValue(s, types.ThrottleService, types.StateCongestionStarts, &starts)
	if err != nil {
		return err
	}
	if ok {
		for i := range m.congestionStarts {
			if i < len(starts) {
				m.congestionStarts[i] = starts[i]
			}
		}
	}
	return nil
}
