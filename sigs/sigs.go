// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sigs 交易签名验证
package sigs

import (
	"crypto/ed25519"

	"github.com/33cn/dispatch/common/log"
	"github.com/33cn/dispatch/types"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var slog = log.New("module", "sigs")

// Hash digest signed by an ecdsa key
func Hash(msg []byte) []byte {
	return ethcrypto.Keccak256(msg)
}

// Verify checks sig over msg with a primitive key. Ecdsa signatures are either DER or
// the 64 byte r||s form, over the keccak256 of msg.
func Verify(key *types.Key, msg, sig []byte) bool {
	switch {
	case len(key.Ed25519) > 0:
		if len(key.Ed25519) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(key.Ed25519), msg, sig)
	case len(key.ECDSASecp256k1) > 0:
		pub, err := btcec.ParsePubKey(key.ECDSASecp256k1)
		if err != nil {
			slog.Debug("Verify", "err", err)
			return false
		}
		s, err := parseECDSASig(sig)
		if err != nil {
			slog.Debug("Verify", "err", err)
			return false
		}
		return s.Verify(Hash(msg), pub)
	}
	return false
}

func parseECDSASig(sig []byte) (*ecdsa.Signature, error) {
	if len(sig) != 64 {
		return ecdsa.ParseDERSignature(sig)
	}
	var r, s btcec.ModNScalar
	if r.SetByteSlice(sig[:32]) || s.SetByteSlice(sig[32:]) {
		return nil, types.ErrUnsupportedKey
	}
	return ecdsa.NewSignature(&r, &s), nil
}

// SignECDSA signs msg the way Verify expects, in the 64 byte form
func SignECDSA(priv *btcec.PrivateKey, msg []byte) []byte {
	s := ecdsa.Sign(priv, Hash(msg))
	r, ss := s.R(), s.S()
	rb, sb := r.Bytes(), ss.Bytes()
	return append(rb[:], sb[:]...)
}
