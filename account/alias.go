// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package account

import (
	"github.com/33cn/dispatch/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// AliasFromKey evm address of a compressed secp256k1 key
func AliasFromKey(key *types.Key) ([]byte, error) {
	if key == nil || len(key.ECDSASecp256k1) == 0 {
		return nil, errors.Wrap(types.ErrUnsupportedKey, "not an ecdsa key")
	}
	pub, err := crypto.DecompressPubkey(key.ECDSASecp256k1)
	if err != nil {
		return nil, errors.Wrap(types.ErrUnsupportedKey, err.Error())
	}
	return crypto.PubkeyToAddress(*pub).Bytes(), nil
}

// FormatAlias checksummed hex form of an evm alias
func FormatAlias(alias []byte) string {
	return common.BytesToAddress(alias).Hex()
}

// KeyFromAlias the key an alias stands for: 32 bytes are an ed25519 key, 33 bytes a compressed
// secp256k1 key. An evm address carries no key.
func KeyFromAlias(alias []byte) (*types.Key, bool) {
	switch len(alias) {
	case 32:
		return &types.Key{Ed25519: append([]byte(nil), alias...)}, true
	case 33:
		return &types.Key{ECDSASecp256k1: append([]byte(nil), alias...)}, true
	}
	return nil, false
}

// CanonicalAlias the alias an account is registered under: ecdsa keys are registered by
// their evm address
func CanonicalAlias(alias []byte) []byte {
	if key, ok := KeyFromAlias(alias); ok && len(key.ECDSASecp256k1) > 0 {
		if evm, err := AliasFromKey(key); err == nil {
			return evm
		}
	}
	return alias
}
