// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
)

// KeyGatherer the keys that must sign a transaction, found during pre-handle. st is only read.
type KeyGatherer interface {
	GatherKeys(body *types.TransactionBody, st state.WritableState, cfg *types.Config) (*KeyRequirements, error)
}

// KeyRequirements keys a transaction needs besides the payer key. Hollow accounts have no key
// yet and are matched by the evm address of an ecdsa signature instead.
type KeyRequirements struct {
	Required []*types.Key
	Optional []*types.Key
	Hollow   []*types.Account
}

// AddAccount the key of a, or a itself when it is hollow
func (r *KeyRequirements) AddAccount(a *types.Account) {
	if a == nil {
		return
	}
	if a.IsHollow() {
		for _, h := range r.Hollow {
			if h.ID.Equal(a.ID) {
				return
			}
		}
		r.Hollow = append(r.Hollow, a)
		return
	}
	r.AddRequired(a.Key)
}

// AddRequired a key that must sign
func (r *KeyRequirements) AddRequired(key *types.Key) {
	if key.IsEmpty() || contains(r.Required, key) {
		return
	}
	r.Required = append(r.Required, key)
}

// AddOptional a key whose signature is verified when present, such as the signatories of a schedule
func (r *KeyRequirements) AddOptional(key *types.Key) {
	if key.IsEmpty() || contains(r.Optional, key) {
		return
	}
	r.Optional = append(r.Optional, key)
}

func contains(keys []*types.Key, key *types.Key) bool {
	s := key.String()
	for _, k := range keys {
		if k.String() == s {
			return true
		}
	}
	return false
}
