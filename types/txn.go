// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"time"
)

// AccountAmount one leg of a transfer list
type AccountAmount struct {
	Account AccountID `cbor:"1,keyasint"`
	Amount  int64     `cbor:"2,keyasint"`
}

// CryptoTransferBody hbar transfers between accounts, possibly to aliases
type CryptoTransferBody struct {
	Transfers []AccountAmount
}

// CryptoCreateBody new account, from a key or from an alias
type CryptoCreateBody struct {
	Key            *Key
	Alias          []byte
	InitialBalance int64
	Memo           string
}

// CryptoUpdateBody replaces the key of an account; completes a hollow account
type CryptoUpdateBody struct {
	Account AccountID
	Key     *Key
	Memo    string
}

// ContractCallBody call or create of a contract
type ContractCallBody struct {
	ContractID AccountID
	Gas        int64
	Amount     int64
	Data       []byte
}

// EthereumBody an ethereum transaction wrapped for the ledger
type EthereumBody struct {
	To              AccountID
	Gas             int64
	Value           int64
	MaxGasAllowance int64
	CallData        []byte
}

// SystemDeleteBody privileged delete of a file
type SystemDeleteBody struct {
	FileID     int64
	Expiration time.Time
}

// FileUpdateBody replaces the contents of a file
type FileUpdateBody struct {
	FileID   int64
	Contents []byte
}

// FreezeBody network freeze or upgrade
type FreezeBody struct {
	Type      FreezeType
	StartTime time.Time
}

// ScheduleCreateBody wraps a body to be executed once enough keys have signed
type ScheduleCreateBody struct {
	Scheduled *TransactionBody
	Payer     *AccountID
	Memo      string
}

// ScheduleSignBody adds the signatures of this transaction to a schedule
type ScheduleSignBody struct {
	ScheduleID int64
}

// TransactionBody the body of a transaction; exactly one operation body is set
type TransactionBody struct {
	TransactionID  TransactionID
	NodeAccountID  AccountID
	TransactionFee int64
	ValidDuration  time.Duration
	Memo           string

	CryptoTransfer *CryptoTransferBody
	CryptoCreate   *CryptoCreateBody
	CryptoUpdate   *CryptoUpdateBody
	ContractCall   *ContractCallBody
	ContractCreate *ContractCallBody
	Ethereum       *EthereumBody
	SystemDelete   *SystemDeleteBody
	SystemUndelete *SystemDeleteBody
	FileUpdate     *FileUpdateBody
	Freeze         *FreezeBody
	ScheduleCreate *ScheduleCreateBody
	ScheduleSign   *ScheduleSignBody
}

// Functionality derived from the operation body that is set
func (b *TransactionBody) Functionality() Functionality {
	switch {
	case b == nil:
		return FunctionalityNone
	case b.CryptoTransfer != nil:
		return CryptoTransfer
	case b.CryptoCreate != nil:
		return CryptoCreate
	case b.CryptoUpdate != nil:
		return CryptoUpdate
	case b.ContractCall != nil:
		return ContractCall
	case b.ContractCreate != nil:
		return ContractCreate
	case b.Ethereum != nil:
		return EthereumTransaction
	case b.SystemDelete != nil:
		return SystemDelete
	case b.SystemUndelete != nil:
		return SystemUndelete
	case b.FileUpdate != nil:
		return FileUpdate
	case b.Freeze != nil:
		return Freeze
	case b.ScheduleCreate != nil:
		return ScheduleCreate
	case b.ScheduleSign != nil:
		return ScheduleSign
	}
	return FunctionalityNone
}

// GasLimit gas reserved by a contract operation, zero for anything else
func (b *TransactionBody) GasLimit() int64 {
	switch {
	case b == nil:
		return 0
	case b.ContractCall != nil:
		return b.ContractCall.Gas
	case b.ContractCreate != nil:
		return b.ContractCreate.Gas
	case b.Ethereum != nil:
		return b.Ethereum.Gas
	}
	return 0
}

// SignaturePair a signature made by the key whose public bytes start with PubKeyPrefix
type SignaturePair struct {
	PubKeyPrefix   []byte
	Ed25519        []byte
	ECDSASecp256k1 []byte
}

// TransactionInfo a parsed transaction with its signatures
type TransactionInfo struct {
	Body          *TransactionBody
	SignedBytes   []byte
	Signatures    []SignaturePair
	SerializedLen int
}

// TxnID shortcut for the transaction id of the body
func (t *TransactionInfo) TxnID() TransactionID {
	return t.Body.TransactionID
}

// Payer the payer named in the transaction id
func (t *TransactionInfo) Payer() AccountID {
	return t.Body.TransactionID.Payer
}

// Functionality of the body
func (t *TransactionInfo) Functionality() Functionality {
	return t.Body.Functionality()
}
