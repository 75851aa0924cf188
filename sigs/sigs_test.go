// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sigs

import (
	"crypto/ed25519"
	"testing"

	"github.com/33cn/dispatch/account"
	"github.com/33cn/dispatch/types"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var msg = []byte("signed transaction bytes")

func edKey(t *testing.T, seed byte) (*types.Key, ed25519.PrivateKey) {
	s := make([]byte, ed25519.SeedSize)
	s[0] = seed
	priv := ed25519.NewKeyFromSeed(s)
	return &types.Key{Ed25519: priv.Public().(ed25519.PublicKey)}, priv
}

func ecKey(t *testing.T) (*types.Key, *btcec.PrivateKey) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return &types.Key{ECDSASecp256k1: priv.PubKey().SerializeCompressed()}, priv
}

func TestVerify(t *testing.T) {
	ek, epriv := edKey(t, 1)
	assert.True(t, Verify(ek, msg, ed25519.Sign(epriv, msg)))
	assert.False(t, Verify(ek, []byte("other"), ed25519.Sign(epriv, msg)))
	assert.False(t, Verify(ek, msg, []byte{1, 2}))

	ck, cpriv := ecKey(t)
	assert.True(t, Verify(ck, msg, SignECDSA(cpriv, msg)))
	assert.True(t, Verify(ck, msg, ecdsa.Sign(cpriv, Hash(msg)).Serialize()))
	assert.False(t, Verify(ck, []byte("other"), SignECDSA(cpriv, msg)))
	assert.False(t, Verify(&types.Key{ContractID: 5}, msg, nil))
}

func TestVerifySignaturesThreshold(t *testing.T) {
	k1, p1 := edKey(t, 1)
	k2, _ := edKey(t, 2)
	k3, p3 := ecKey(t)
	pairs := []types.SignaturePair{
		{PubKeyPrefix: k1.Ed25519[:4], Ed25519: ed25519.Sign(p1, msg)},
		{PubKeyPrefix: k3.ECDSASecp256k1, ECDSASecp256k1: SignECDSA(p3, msg)},
	}
	twoOfThree := &types.Key{Threshold: 2, Keys: []*types.Key{k1, k2, k3}}
	allOf := &types.Key{Keys: []*types.Key{k1, k2}}

	v := VerifySignatures(msg, pairs, []*types.Key{twoOfThree, allOf})
	assert.Equal(t, 2, v.NumSignaturesVerified())
	assert.True(t, v.VerificationFor(k1).Passed)
	assert.False(t, v.VerificationFor(k2).Passed)
	assert.True(t, v.VerificationFor(twoOfThree).Passed)
	assert.False(t, v.VerificationFor(allOf).Passed)
	assert.False(t, v.VerificationFor(&types.Key{ContractID: 9}).Passed)
	assert.False(t, v.VerificationFor(nil).Passed)

	unknown, _ := edKey(t, 9)
	assert.False(t, v.VerificationFor(unknown).Passed)

	alias, err := account.AliasFromKey(k3)
	require.NoError(t, err)
	assert.True(t, v.VerificationForAlias(alias).Passed)
	assert.False(t, v.VerificationForAlias(make([]byte, 20)).Passed)
}

func TestExtractECDSAKeys(t *testing.T) {
	k1, _ := edKey(t, 1)
	k3, p3 := ecKey(t)
	pairs := []types.SignaturePair{
		{PubKeyPrefix: k1.Ed25519, Ed25519: make([]byte, 64)},
		{PubKeyPrefix: k3.ECDSASecp256k1, ECDSASecp256k1: SignECDSA(p3, msg)},
		{PubKeyPrefix: k3.ECDSASecp256k1[:3], ECDSASecp256k1: SignECDSA(p3, msg)},
	}
	keys := ExtractECDSAKeys(pairs)
	require.Len(t, keys, 1)
	assert.Equal(t, k3.ECDSASecp256k1, keys[0].ECDSASecp256k1)
}
