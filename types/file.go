// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"strconv"
	"time"
)

// File contents of a file entity
type File struct {
	ID       int64     `cbor:"1,keyasint"`
	Contents []byte    `cbor:"2,keyasint,omitempty"`
	Deleted  bool      `cbor:"3,keyasint,omitempty"`
	Expiry   time.Time `cbor:"4,keyasint,omitempty"`
}

// FileKey state key of file num in the file service
func FileKey(num int64) string {
	return "file-" + strconv.FormatInt(num, 10)
}

// Schedule a transaction body waiting for the signatures of its required keys
type Schedule struct {
	ID          int64            `cbor:"1,keyasint"`
	Scheduled   *TransactionBody `cbor:"2,keyasint"`
	Payer       AccountID        `cbor:"3,keyasint"`
	CreatorTxn  TransactionID    `cbor:"4,keyasint"`
	Signatories []*Key           `cbor:"5,keyasint,omitempty"`
	Executed    bool             `cbor:"6,keyasint,omitempty"`
	Memo        string           `cbor:"7,keyasint,omitempty"`
}

// ScheduleKey state key of schedule num in the schedule service
func ScheduleKey(num int64) string {
	return "schedule-" + strconv.FormatInt(num, 10)
}

// PlatformState network wide state kept outside the services, such as a pending freeze
type PlatformState struct {
	FreezeTime     time.Time `cbor:"1,keyasint,omitempty"`
	LastFrozenTime time.Time `cbor:"2,keyasint,omitempty"`
}
