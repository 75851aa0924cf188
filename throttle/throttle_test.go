// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package throttle

import (
	"testing"
	"time"

	"github.com/33cn/dispatch/common/db"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Unix(1700000000, 0)

func TestBucket(t *testing.T) {
	b := NewBucket("b", 2, 1)
	assert.Equal(t, int64(2), b.Capacity())
	assert.True(t, b.Allow(t0, 1))
	assert.True(t, b.Allow(t0, 1))
	assert.False(t, b.Allow(t0, 1))
	assert.Equal(t, int64(100), b.PercentUsed())

	// half a second leaks one op
	assert.True(t, b.Allow(t0.Add(500*time.Millisecond), 1))
	assert.False(t, b.Allow(t0.Add(500*time.Millisecond), 1))
	// time going backwards leaks nothing
	assert.False(t, b.Allow(t0, 1))

	b.Reclaim(1)
	assert.Equal(t, int64(50), b.PercentUsed())

	snap := b.Snapshot()
	other := NewBucket("b", 2, 1)
	other.ResetUsage(snap)
	assert.Equal(t, snap, other.Snapshot())

	// a long idle period empties the bucket
	assert.True(t, b.Allow(t0.Add(1000*time.Hour), 2))
}

func testConfig() *types.Config {
	cfg := types.DefaultConfig()
	cfg.Contracts.MaxGasPerSec = 100
	cfg.Contracts.MaxGasPerTxn = 80
	cfg.Throttle.Buckets = []*types.ThrottleBucket{
		{Name: "transfers", OpsPerSec: 2, BurstSeconds: 1, Functionalities: []string{"CryptoTransfer"}},
		{Name: "all", OpsPerSec: 3, BurstSeconds: 1, Functionalities: []string{"CryptoTransfer", "FileUpdate"}},
	}
	cfg.Throttle.CongestionLevels = []int64{60, 90}
	return cfg
}

func transferTxn() *types.TransactionInfo {
	return &types.TransactionInfo{Body: &types.TransactionBody{CryptoTransfer: &types.CryptoTransferBody{}}}
}

func callTxn(gas int64) *types.TransactionInfo {
	return &types.TransactionInfo{Body: &types.TransactionBody{ContractCall: &types.ContractCallBody{Gas: gas}}}
}

func TestNewManagerUnknownFunctionality(t *testing.T) {
	cfg := testConfig()
	cfg.Throttle.Buckets[0].Functionalities = []string{"Teleport"}
	_, err := NewNetworkUtilizationManager(cfg)
	assert.Error(t, err)
}

func TestTrackTxnAllOrNothing(t *testing.T) {
	m, err := NewNetworkUtilizationManager(testConfig())
	require.NoError(t, err)
	update := &types.TransactionInfo{Body: &types.TransactionBody{FileUpdate: &types.FileUpdateBody{}}}

	assert.False(t, m.TrackTxn(transferTxn(), t0))
	assert.False(t, m.TrackTxn(transferTxn(), t0))
	// transfers bucket is full, the shared bucket must not be charged
	assert.True(t, m.TrackTxn(transferTxn(), t0))
	assert.False(t, m.TrackTxn(update, t0))
	assert.True(t, m.TrackTxn(update, t0))

	// unknown to every bucket
	mint := &types.TransactionInfo{Body: &types.TransactionBody{}}
	assert.False(t, m.TrackTxn(mint, t0))
}

func TestGasThrottle(t *testing.T) {
	m, err := NewNetworkUtilizationManager(testConfig())
	require.NoError(t, err)
	assert.False(t, m.TrackTxn(callTxn(60), t0))
	assert.False(t, m.WasLastTxnGasThrottled())
	assert.True(t, m.TrackTxn(callTxn(50), t0))
	assert.True(t, m.WasLastTxnGasThrottled())

	m.LeakUnusedGasPreviouslyReserved(20)
	assert.Equal(t, int64(40), m.GasPercentUsed())
	assert.False(t, m.TrackTxn(callTxn(50), t0))
	assert.Equal(t, int64(90), m.GasPercentUsed())

	// above the per transaction limit
	assert.True(t, m.TrackTxn(callTxn(81), t0.Add(time.Hour)))
	assert.True(t, m.WasLastTxnGasThrottled())

	cfg := testConfig()
	cfg.Contracts.ThrottleByGas = false
	off, err := NewNetworkUtilizationManager(cfg)
	require.NoError(t, err)
	assert.False(t, off.TrackTxn(callTxn(1000), t0))
	assert.False(t, off.WasLastTxnGasThrottled())
	assert.Equal(t, int64(0), off.GasPercentUsed())
}

func TestCongestionStarts(t *testing.T) {
	m, err := NewNetworkUtilizationManager(testConfig())
	require.NoError(t, err)
	m.TrackFeePayments(t0)
	assert.Equal(t, []time.Time{{}, {}}, m.CongestionStarts())

	later := t0.Add(time.Millisecond)
	m.TrackTxn(transferTxn(), later)
	starts := m.CongestionStarts()
	assert.True(t, starts[0].Equal(later))
	assert.True(t, starts[1].Equal(later))

	m.TrackFeePayments(t0.Add(time.Minute))
	starts = m.CongestionStarts()
	assert.True(t, starts[0].IsZero())
}

func TestSaveLoad(t *testing.T) {
	d, err := db.NewGoMemDB("throttle", "", 0)
	require.NoError(t, err)
	root := state.NewDBState(d)

	m, err := NewNetworkUtilizationManager(testConfig())
	require.NoError(t, err)
	fresh, err := NewNetworkUtilizationManager(testConfig())
	require.NoError(t, err)
	require.NoError(t, fresh.LoadFrom(root))

	m.TrackTxn(transferTxn(), t0)
	m.TrackTxn(transferTxn(), t0)
	m.TrackTxn(callTxn(30), t0)
	require.NoError(t, m.SaveTo(root))

	require.NoError(t, fresh.LoadFrom(root))
	assert.Equal(t, m.Usage().Gas.Used, fresh.Usage().Gas.Used)
	assert.Equal(t, m.Usage().Buckets[0].Used, fresh.Usage().Buckets[0].Used)
	assert.True(t, m.Usage().Buckets[1].LastDecision.Equal(fresh.Usage().Buckets[1].LastDecision))
	assert.True(t, fresh.CongestionStarts()[0].Equal(t0))
	assert.True(t, fresh.TrackTxn(transferTxn(), t0))
}

func TestFrontendThrottle(t *testing.T) {
	f := NewFrontendThrottle(2)
	assert.False(t, f.ShouldThrottleImplicitCreations(0, t0))
	assert.False(t, f.ShouldThrottleImplicitCreations(2, t0))
	assert.True(t, f.ShouldThrottleImplicitCreations(1, t0))
	f.ReclaimCapacity(1)
	assert.Equal(t, int64(50), f.PercentUsed())
	assert.False(t, f.ShouldThrottleImplicitCreations(1, t0))
}

func TestContractOpsUseBuckets(t *testing.T) {
	for _, byGas := range []bool{true, false} {
		cfg := testConfig()
		cfg.Contracts.ThrottleByGas = byGas
		cfg.Throttle.Buckets = append(cfg.Throttle.Buckets,
			&types.ThrottleBucket{Name: "calls", OpsPerSec: 1, BurstSeconds: 1, Functionalities: []string{"ContractCall"}})
		m, err := NewNetworkUtilizationManager(cfg)
		require.NoError(t, err)

		throttled := 0
		for i := 0; i < 5; i++ {
			if m.TrackTxn(callTxn(10), t0) {
				throttled++
			}
		}
		assert.Equal(t, 4, throttled, "throttle by gas %v", byGas)
		assert.False(t, m.WasLastTxnGasThrottled())
		if byGas {
			// ops throttled calls reserve no gas
			assert.Equal(t, int64(10), m.GasPercentUsed())
		}
	}
}
