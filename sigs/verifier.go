// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sigs

import (
	"bytes"
	"encoding/hex"

	"github.com/33cn/dispatch/account"
	"github.com/33cn/dispatch/types"
)

// SignatureVerification result of checking one key, or one evm alias, against the signatures of a transaction
type SignatureVerification struct {
	Key      *types.Key
	EVMAlias []byte
	Passed   bool
}

// KeyVerifier answers whether keys signed a transaction, from results computed ahead of handling
type KeyVerifier struct {
	byKey   map[string]*SignatureVerification
	byAlias map[string]*SignatureVerification
	count   int
}

// NewKeyVerifier verifier over precomputed results
func NewKeyVerifier(results []*SignatureVerification) *KeyVerifier {
	v := &KeyVerifier{
		byKey:   make(map[string]*SignatureVerification),
		byAlias: make(map[string]*SignatureVerification),
	}
	for _, r := range results {
		if r.Key != nil {
			v.byKey[r.Key.String()] = r
		}
		if len(r.EVMAlias) > 0 {
			v.byAlias[hex.EncodeToString(r.EVMAlias)] = r
		}
		if r.Passed {
			v.count++
		}
	}
	return v
}

// VerifySignatures checks every primitive key reachable from keys against the signature pairs
// over msg. A pair applies to a key when its prefix is a prefix of the key bytes. Ecdsa keys
// also produce a result for their evm alias, used for hollow accounts.
func VerifySignatures(msg []byte, pairs []types.SignaturePair, keys []*types.Key) *KeyVerifier {
	var results []*SignatureVerification
	seen := make(map[string]bool)
	for _, k := range keys {
		for _, p := range k.Primitives() {
			if seen[p.String()] {
				continue
			}
			seen[p.String()] = true
			r := &SignatureVerification{Key: p, Passed: verifyPairs(p, msg, pairs)}
			if len(p.ECDSASecp256k1) > 0 {
				if alias, err := account.AliasFromKey(p); err == nil {
					r.EVMAlias = alias
				}
			}
			results = append(results, r)
		}
	}
	return NewKeyVerifier(results)
}

// ExtractECDSAKeys ecdsa keys of the signature pairs that carry a full compressed key as prefix,
// the keys that can complete hollow accounts
func ExtractECDSAKeys(pairs []types.SignaturePair) []*types.Key {
	var keys []*types.Key
	for _, p := range pairs {
		if len(p.ECDSASecp256k1) > 0 && len(p.PubKeyPrefix) == 33 {
			keys = append(keys, &types.Key{ECDSASecp256k1: append([]byte(nil), p.PubKeyPrefix...)})
		}
	}
	return keys
}

func verifyPairs(key *types.Key, msg []byte, pairs []types.SignaturePair) bool {
	pub := key.Ed25519
	if len(pub) == 0 {
		pub = key.ECDSASecp256k1
	}
	for _, p := range pairs {
		if !bytes.HasPrefix(pub, p.PubKeyPrefix) {
			continue
		}
		sig := p.Ed25519
		if len(key.ECDSASecp256k1) > 0 {
			sig = p.ECDSASecp256k1
		}
		if len(sig) > 0 && Verify(key, msg, sig) {
			return true
		}
	}
	return false
}

// VerificationFor result for key. Threshold keys pass when enough sub keys pass; contract keys
// never pass outside the evm.
func (v *KeyVerifier) VerificationFor(key *types.Key) *SignatureVerification {
	if key.IsEmpty() {
		return &SignatureVerification{Key: key}
	}
	if key.IsPrimitive() {
		if r, ok := v.byKey[key.String()]; ok {
			return r
		}
		return &SignatureVerification{Key: key}
	}
	if key.ContractID != 0 {
		return &SignatureVerification{Key: key}
	}
	passed := 0
	for _, sub := range key.Keys {
		if v.VerificationFor(sub).Passed {
			passed++
		}
	}
	return &SignatureVerification{Key: key, Passed: passed >= key.Required()}
}

// VerificationForAlias result for the ecdsa key behind an evm alias
func (v *KeyVerifier) VerificationForAlias(alias []byte) *SignatureVerification {
	if r, ok := v.byAlias[hex.EncodeToString(alias)]; ok {
		return r
	}
	return &SignatureVerification{EVMAlias: alias}
}

// NumSignaturesVerified number of primitive keys that passed
func (v *KeyVerifier) NumSignaturesVerified() int {
	return v.count
}
