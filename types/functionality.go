// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

// Functionality the kind of operation a transaction body asks for
type Functionality int32

// functionalities known to the pipeline
const (
	FunctionalityNone Functionality = iota
	CryptoTransfer
	CryptoCreate
	CryptoUpdate
	CryptoDelete
	ContractCall
	ContractCreate
	EthereumTransaction
	FileCreate
	FileUpdate
	FileAppend
	SystemDelete
	SystemUndelete
	Freeze
	ScheduleCreate
	ScheduleSign
	ConsensusSubmitMessage
	TokenMint
)

var functionalityNames = map[Functionality]string{
	FunctionalityNone:      "NONE",
	CryptoTransfer:         "CryptoTransfer",
	CryptoCreate:           "CryptoCreate",
	CryptoUpdate:           "CryptoUpdate",
	CryptoDelete:           "CryptoDelete",
	ContractCall:           "ContractCall",
	ContractCreate:         "ContractCreate",
	EthereumTransaction:    "EthereumTransaction",
	FileCreate:             "FileCreate",
	FileUpdate:             "FileUpdate",
	FileAppend:             "FileAppend",
	SystemDelete:           "SystemDelete",
	SystemUndelete:         "SystemUndelete",
	Freeze:                 "Freeze",
	ScheduleCreate:         "ScheduleCreate",
	ScheduleSign:           "ScheduleSign",
	ConsensusSubmitMessage: "ConsensusSubmitMessage",
	TokenMint:              "TokenMint",
}

func (f Functionality) String() string {
	if name, ok := functionalityNames[f]; ok {
		return name
	}
	return "UNKNOWN"
}

// FunctionalityFromString reverse of String, used by the config loader
func FunctionalityFromString(name string) (Functionality, bool) {
	for f, n := range functionalityNames {
		if n == name {
			return f, true
		}
	}
	return FunctionalityNone, false
}

// IsContractOperation gas is tracked at admission time for these
func (f Functionality) IsContractOperation() bool {
	switch f {
	case ContractCall, ContractCreate, EthereumTransaction:
		return true
	}
	return false
}

// CanAutoCreate operations that may implicitly create accounts from aliases
func (f Functionality) CanAutoCreate() bool {
	return f == CryptoTransfer || f == EthereumTransaction
}
