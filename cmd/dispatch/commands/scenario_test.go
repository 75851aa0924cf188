// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/33cn/dispatch/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = `
start = 1700000000
node = 3

[[key]]
name = "alice"
[[key]]
name = "bob"
[[key]]
name = "carol"
[[key]]
name = "eve"
type = "ecdsa"

[[account]]
num = 2
balance = 1000000000
key = "alice"
[[account]]
num = 3
[[account]]
num = 98
[[account]]
num = 1001
balance = 1000000000
key = "alice"
[[account]]
num = 1002
balance = 1000
key = "bob"

[[txn]]
type = "transfer"
payer = 1001
signers = ["alice"]
at = 1
transfers = [{account = 1001, amount = -100}, {account = 1002, amount = 100}]

[[txn]]
type = "transfer"
payer = 1001
signers = ["alice"]
at = 2
transfers = [{account = 1001, amount = -50}, {alias = "carol", amount = 50}]

[[txn]]
type = "ethereum"
payer = 1001
signers = ["alice"]
at = 3
gas = 30000
amount = 5
to = {evm = "eve"}

[[txn]]
type = "schedule_create"
payer = 1001
signers = ["alice"]
at = 4
  [txn.scheduled]
  type = "transfer"
  payer = 1002
  transfers = [{account = 1002, amount = -10}, {account = 1001, amount = 10}]

[[txn]]
type = "schedule_sign"
payer = 1001
signers = ["alice", "bob"]
at = 5
schedule = 753
`

func testConfig() *types.Config {
	cfg := types.DefaultConfig()
	cfg.Store.Driver = "memdb"
	cfg.Rates = &types.Rates{HbarEquiv: 1, CentEquiv: 1}
	cfg.Contracts.GasPriceTinycents = 1
	cfg.Fees = &types.FeeSchedule{NodeTinycents: 10, NetworkTinycents: 20, ServiceTinycents: 30}
	return cfg
}

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario(sample)
	require.NoError(t, err)
	assert.Len(t, s.Keys, 4)
	assert.Len(t, s.Accounts, 5)
	require.Len(t, s.Txns, 5)
	require.NotNil(t, s.Txns[3].Scheduled)
	assert.Equal(t, int64(1002), s.Txns[3].Scheduled.Payer)

	txns, times, err := s.Build()
	require.NoError(t, err)
	require.Len(t, txns, 5)
	assert.True(t, times[0].Before(times[1]))
	assert.Equal(t, types.CryptoTransfer, txns[0].Functionality())
	assert.Equal(t, types.EthereumTransaction, txns[2].Functionality())
	assert.Equal(t, types.ScheduleCreate, txns[3].Functionality())
	assert.Len(t, txns[4].Signatures, 2)
	assert.Len(t, txns[1].Body.CryptoTransfer.Transfers[1].Account.Alias, 32)
	assert.Len(t, txns[2].Body.Ethereum.To.Alias, types.EVMAddressLen)
}

func TestParseScenarioErrors(t *testing.T) {
	_, err := ParseScenario("[[account]]\nnum = 5\nkey = \"nobody\"\n")
	assert.Equal(t, types.ErrInvalidParam, errors.Cause(err))

	_, err = ParseScenario("[[key]]\nname = \"k\"\ntype = \"rsa\"\n")
	assert.Equal(t, types.ErrInvalidParam, errors.Cause(err))

	s, err := ParseScenario("[[txn]]\ntype = \"mint\"\npayer = 1\n")
	require.NoError(t, err)
	_, _, err = s.Build()
	assert.Equal(t, types.ErrInvalidParam, errors.Cause(err))
}

func TestReplayAndVerify(t *testing.T) {
	s, err := ParseScenario(sample)
	require.NoError(t, err)
	var stream, report bytes.Buffer
	res, err := Replay(testConfig(), s, &stream, &report)
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	// the alias transfer, the ethereum transaction and the schedule sign add one record each
	assert.Equal(t, 8, res.Records)
	assert.Equal(t, 8, strings.Count(report.String(), "\n"))
	assert.NotContains(t, report.String(), "INGEST")

	n, hash, err := VerifyStream(stream.Bytes(), hex.EncodeToString(res.RunningHash[:]), nil)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, res.RunningHash, hash)

	_, _, err = VerifyStream(stream.Bytes(), strings.Repeat("00", 32), nil)
	assert.Equal(t, ErrHashMismatch, errors.Cause(err))
}
