// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Key a primitive public key or a threshold list of keys
type Key struct {
	Ed25519        []byte `cbor:"1,keyasint,omitempty"`
	ECDSASecp256k1 []byte `cbor:"2,keyasint,omitempty"`
	Threshold      int32  `cbor:"3,keyasint,omitempty"`
	Keys           []*Key `cbor:"4,keyasint,omitempty"`
	ContractID     int64  `cbor:"5,keyasint,omitempty"`
}

// IsPrimitive a single public key
func (k *Key) IsPrimitive() bool {
	return k != nil && (len(k.Ed25519) > 0 || len(k.ECDSASecp256k1) > 0)
}

// IsEmpty no key material at all
func (k *Key) IsEmpty() bool {
	if k == nil {
		return true
	}
	if k.IsPrimitive() || k.ContractID != 0 {
		return false
	}
	for _, sub := range k.Keys {
		if !sub.IsEmpty() {
			return false
		}
	}
	return true
}

// Required number of sub keys that must sign
func (k *Key) Required() int {
	if k.Threshold > 0 {
		return int(k.Threshold)
	}
	return len(k.Keys)
}

// Primitives every primitive key reachable from k, in key order
func (k *Key) Primitives() []*Key {
	if k == nil {
		return nil
	}
	if k.IsPrimitive() {
		return []*Key{k}
	}
	var out []*Key
	for _, sub := range k.Keys {
		out = append(out, sub.Primitives()...)
	}
	return out
}

// String hex of the key material, used as a map key
func (k *Key) String() string {
	if k == nil {
		return ""
	}
	switch {
	case len(k.Ed25519) > 0:
		return "ed25519:" + hex.EncodeToString(k.Ed25519)
	case len(k.ECDSASecp256k1) > 0:
		return "secp256k1:" + hex.EncodeToString(k.ECDSASecp256k1)
	case k.ContractID != 0:
		return "contract:" + strconv.FormatInt(k.ContractID, 10)
	}
	parts := make([]string, 0, len(k.Keys))
	for _, sub := range k.Keys {
		parts = append(parts, sub.String())
	}
	return "threshold(" + strconv.Itoa(k.Required()) + ")[" + strings.Join(parts, ",") + "]"
}

// SortKeys deterministic ordering of a key set
func SortKeys(keys []*Key) []*Key {
	out := append([]*Key(nil), keys...)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
