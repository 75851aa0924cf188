// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

// EVMAddressLen length of an evm address alias
const EVMAddressLen = 20

// Account ledger account as stored in state
type Account struct {
	ID                  AccountID `cbor:"1,keyasint"`
	Balance             int64     `cbor:"2,keyasint"`
	Deleted             bool      `cbor:"3,keyasint,omitempty"`
	SmartContract       bool      `cbor:"4,keyasint,omitempty"`
	Key                 *Key      `cbor:"5,keyasint,omitempty"`
	Alias               []byte    `cbor:"6,keyasint,omitempty"`
	ReceiverSigRequired bool      `cbor:"7,keyasint,omitempty"`
	Memo                string    `cbor:"8,keyasint,omitempty"`
}

// IsHollow created from an evm address alias and still waiting for its key
func (a *Account) IsHollow() bool {
	return a != nil && a.Key.IsEmpty() && len(a.Alias) == EVMAddressLen
}

// Clone copy that shares no slices with a
func (a *Account) Clone() *Account {
	c := *a
	c.Alias = append([]byte(nil), a.Alias...)
	c.ID.Alias = append([]byte(nil), a.ID.Alias...)
	return &c
}
