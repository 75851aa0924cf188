// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// AccountID shard.realm.num, or an alias when the account does not exist yet
type AccountID struct {
	Shard int64  `cbor:"1,keyasint"`
	Realm int64  `cbor:"2,keyasint"`
	Num   int64  `cbor:"3,keyasint"`
	Alias []byte `cbor:"4,keyasint,omitempty"`
}

// NewAccountID num in shard 0 realm 0
func NewAccountID(num int64) AccountID {
	return AccountID{Num: num}
}

// AliasAccountID account addressed only by alias
func AliasAccountID(alias []byte) AccountID {
	return AccountID{Alias: append([]byte(nil), alias...)}
}

// HasAlias the id refers to an account by alias
func (id AccountID) HasAlias() bool {
	return len(id.Alias) > 0
}

// IsZero neither a number nor an alias
func (id AccountID) IsZero() bool {
	return id.Num == 0 && !id.HasAlias()
}

// Equal compares the numeric part and the alias
func (id AccountID) Equal(other AccountID) bool {
	return id.Shard == other.Shard && id.Realm == other.Realm && id.Num == other.Num &&
		string(id.Alias) == string(other.Alias)
}

// Key stable string form used as a state key
func (id AccountID) Key() string {
	if id.HasAlias() {
		return "0x" + hex.EncodeToString(id.Alias)
	}
	return fmt.Sprintf("%d.%d.%d", id.Shard, id.Realm, id.Num)
}

func (id AccountID) String() string {
	return id.Key()
}

// ParseAccountID parses shard.realm.num
func ParseAccountID(s string) (AccountID, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return AccountID{}, errors.Wrapf(ErrInvalidParam, "account id %q", s)
	}
	var nums [3]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return AccountID{}, errors.Wrapf(ErrInvalidParam, "account id %q", s)
		}
		nums[i] = n
	}
	return AccountID{Shard: nums[0], Realm: nums[1], Num: nums[2]}, nil
}

// TransactionID payer, valid start and nonce; scheduled marks the id of a scheduled execution
type TransactionID struct {
	Payer      AccountID `cbor:"1,keyasint"`
	ValidStart time.Time `cbor:"2,keyasint"`
	Nonce      int32     `cbor:"3,keyasint"`
	Scheduled  bool      `cbor:"4,keyasint"`
}

// Key unique string for the id, used by the record cache
func (id TransactionID) Key() string {
	var b strings.Builder
	b.WriteString(id.Payer.Key())
	b.WriteByte('@')
	b.WriteString(strconv.FormatInt(id.ValidStart.Unix(), 10))
	b.WriteByte('.')
	b.WriteString(strconv.Itoa(id.ValidStart.Nanosecond()))
	if id.Nonce != 0 {
		b.WriteString("/")
		b.WriteString(strconv.Itoa(int(id.Nonce)))
	}
	if id.Scheduled {
		b.WriteString("?scheduled")
	}
	return b.String()
}

func (id TransactionID) String() string {
	return id.Key()
}

// WithNonce copy of the id with another nonce
func (id TransactionID) WithNonce(nonce int32) TransactionID {
	id.Nonce = nonce
	return id
}

// AsScheduled copy of the id marked as a scheduled execution
func (id TransactionID) AsScheduled() TransactionID {
	id.Scheduled = true
	return id
}

// NodeInfo the node that submitted a transaction
type NodeInfo struct {
	NodeID    int64
	AccountID AccountID
	Deleted   bool
}
