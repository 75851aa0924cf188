// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"testing"

	"github.com/33cn/dispatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callBody(to types.AccountID, gas, amount int64, data []byte) *types.TransactionBody {
	body := baseBody(payerID)
	body.ContractCall = &types.ContractCallBody{ContractID: to, Gas: gas, Amount: amount, Data: data}
	return body
}

func TestIntrinsicGas(t *testing.T) {
	assert.Equal(t, int64(21000), IntrinsicGas(nil, false))
	assert.Equal(t, int64(53000), IntrinsicGas(nil, true))
	assert.Equal(t, int64(21000+16+4), IntrinsicGas([]byte{1, 0}, false))
}

func TestContractPureChecks(t *testing.T) {
	h := &contractHandler{}
	status := func(body *types.TransactionBody) types.Status {
		s, _ := types.StatusOf(h.PureChecks(body))
		return s
	}
	assert.Equal(t, types.StatusOK, status(callBody(contractID, 21000, 0, nil)))
	assert.Equal(t, types.StatusInsufficientGas, status(callBody(contractID, 20999, 0, nil)))
	assert.Equal(t, types.StatusInvalidAccountAmounts, status(callBody(contractID, 30000, -1, nil)))
	assert.Equal(t, types.StatusInvalidContractID, status(callBody(types.AccountID{}, 30000, 0, nil)))

	create := baseBody(payerID)
	create.ContractCreate = &types.ContractCallBody{Gas: 30000}
	assert.Equal(t, types.StatusInsufficientGas, status(create))
}

func TestContractCall(t *testing.T) {
	e := newEnv(t)
	d, out := e.submit(callBody(contractID, 100000, 7, []byte{1, 2}), e.payer)
	require.Equal(t, types.StatusSuccess, d.Builder.Status())
	// at most a fifth of the gas limit is refunded
	assert.Equal(t, int64(80000), d.Builder.GasUsed())
	assert.Equal(t, int64(1000000-60-80000-7), e.balance(payerID))
	assert.Equal(t, int64(1007), e.balance(contractID))
	assert.Equal(t, int64(80050), e.balance(fundingID))
	assert.Equal(t, amounts(3, 10, 98, 80050, 1001, -80067, 1005, 7), out.Records[0].Transfers)
}

func TestContractCallReverts(t *testing.T) {
	e := newEnv(t)
	d, out := e.submit(callBody(contractID, 100000, 7, []byte{revertOpcode, 1}), e.payer)
	assert.Equal(t, types.StatusContractRevertExecuted, d.Builder.Status())
	assert.Equal(t, int64(80000), out.Records[0].GasUsed)
	// the gas stays charged, the value does not move
	assert.Equal(t, int64(1000000-60-80000), e.balance(payerID))
	assert.Equal(t, int64(1000), e.balance(contractID))
}

func TestContractCallToAccount(t *testing.T) {
	e := newEnv(t)
	d, _ := e.submit(callBody(bobID, 100000, 7, nil), e.payer)
	assert.Equal(t, types.StatusInvalidContractID, d.Builder.Status())
	assert.Equal(t, int64(1000000-60), e.balance(payerID))
}

func TestContractCreate(t *testing.T) {
	e := newEnv(t)
	body := baseBody(payerID)
	body.ContractCreate = &types.ContractCallBody{Gas: 60000, Amount: 3}
	d, out := e.submit(body, e.payer)
	require.Equal(t, types.StatusSuccess, d.Builder.Status())
	assert.Equal(t, int64(53000), d.Builder.GasUsed())

	c, err := e.accounts().LoadAccount(firstNew)
	require.NoError(t, err)
	assert.True(t, c.SmartContract)
	assert.Equal(t, int64(3), c.Balance)
	require.NotNil(t, out.Records[0].CreatedAccount)
	assert.Equal(t, firstNew, *out.Records[0].CreatedAccount)
}

func TestEthereumTransactionLazyCreates(t *testing.T) {
	e := newEnv(t)
	_, _, evm := ecKey(t, 0x55)
	body := baseBody(payerID)
	body.Ethereum = &types.EthereumBody{To: types.AliasAccountID(evm), Gas: 30000, Value: 10}
	d, out := e.submit(body, e.payer)
	require.Equal(t, types.StatusSuccess, d.Builder.Status())
	assert.Equal(t, int64(24000), d.Builder.GasUsed())

	a, err := e.accounts().LoadByAlias(evm)
	require.NoError(t, err)
	assert.True(t, a.IsHollow())
	assert.Equal(t, int64(10), a.Balance)
	assert.Equal(t, lazyCreationMemo, a.Memo)
	require.Len(t, out.Records, 2)
	assert.Equal(t, types.CategoryPreceding, out.Records[0].Category)
	assert.Equal(t, evm, out.Records[0].EVMAddress)
}
