// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
账户操作: 读写账户状态, 转账, 隐式创建
*/
package account

//package for account manger
//1. load from state (by number or by alias)
//2. save to state
//3. Transfer
//4. AdjustBalance
//5. hollow account creation from an evm alias

import (
	"encoding/hex"
	"sort"
	"strings"

	"github.com/33cn/dispatch/common/log"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
	"github.com/pkg/errors"
)

var alog = log.New("module", "account")

const (
	accountKeyPrefix = "acc-"
	aliasKeyPrefix   = "alias-"
	entityKey        = "entity-next"
)

// DB accounts of one state view
type DB struct {
	st          state.WritableState
	firstEntity int64
}

// NewAccountDB account db over st; new entity numbers start after lastReserved
func NewAccountDB(st state.WritableState, lastReserved int64) *DB {
	return &DB{st: st, firstEntity: lastReserved + 1}
}

// AccountKey state key of an account number
func AccountKey(id types.AccountID) string {
	return accountKeyPrefix + types.AccountID{Shard: id.Shard, Realm: id.Realm, Num: id.Num}.Key()
}

func aliasKey(alias []byte) string {
	return aliasKeyPrefix + hex.EncodeToString(alias)
}

// IsAccountKey key written by SaveAccount
func IsAccountKey(key string) bool {
	return strings.HasPrefix(key, accountKeyPrefix)
}

// ResolveID numeric id of id, looking up the alias when there is no number
func (acc *DB) ResolveID(id types.AccountID) (types.AccountID, error) {
	if !id.HasAlias() || id.Num != 0 {
		return types.AccountID{Shard: id.Shard, Realm: id.Realm, Num: id.Num}, nil
	}
	var num types.AccountID
	ok, err := state.GetValue(acc.st, types.TokenService, aliasKey(CanonicalAlias(id.Alias)), &num)
	if err != nil {
		return types.AccountID{}, err
	}
	if !ok {
		return types.AccountID{}, errors.Wrapf(types.ErrNotFound, "alias %s", id.Key())
	}
	return num, nil
}

// LoadAccount account with id, types.ErrNotFound when it does not exist
func (acc *DB) LoadAccount(id types.AccountID) (*types.Account, error) {
	num, err := acc.ResolveID(id)
	if err != nil {
		return nil, err
	}
	var a types.Account
	ok, err := state.GetValue(acc.st, types.TokenService, AccountKey(num), &a)
	if err != nil {
		//数据已经损坏
		alog.Error("LoadAccount", "id", num.Key(), "err", err)
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(types.ErrNotFound, "account %s", num.Key())
	}
	return &a, nil
}

// LoadByAlias account registered under alias
func (acc *DB) LoadByAlias(alias []byte) (*types.Account, error) {
	return acc.LoadAccount(types.AliasAccountID(alias))
}

// SaveAccount writes a and its alias mapping
func (acc *DB) SaveAccount(a *types.Account) error {
	if err := state.PutValue(acc.st, types.TokenService, AccountKey(a.ID), a); err != nil {
		return err
	}
	if len(a.Alias) > 0 {
		num := types.AccountID{Shard: a.ID.Shard, Realm: a.ID.Realm, Num: a.ID.Num}
		return state.PutValue(acc.st, types.TokenService, aliasKey(a.Alias), num)
	}
	return nil
}

// AdjustBalance adds delta to the balance of id. The balance never goes negative.
func (acc *DB) AdjustBalance(id types.AccountID, delta int64) error {
	a, err := acc.LoadAccount(id)
	if err != nil {
		return err
	}
	if a.Deleted {
		return errors.Wrapf(types.ErrAccountDeleted, "account %s", a.ID.Key())
	}
	if a.Balance+delta < 0 {
		return errors.Wrapf(types.ErrNoBalance, "account %s balance %d delta %d", a.ID.Key(), a.Balance, delta)
	}
	a.Balance += delta
	return acc.SaveAccount(a)
}

// Transfer moves amount from one account to another
func (acc *DB) Transfer(from, to types.AccountID, amount int64) error {
	if amount <= 0 {
		return types.ErrAmount
	}
	accFrom, err := acc.LoadAccount(from)
	if err != nil {
		return err
	}
	accTo, err := acc.LoadAccount(to)
	if err != nil {
		return err
	}
	if accFrom.ID.Equal(accTo.ID) {
		return types.ErrSendSameToRecv
	}
	if accFrom.Balance-amount < 0 {
		return types.ErrNoBalance
	}
	if err := acc.AdjustBalance(accFrom.ID, -amount); err != nil {
		return err
	}
	return acc.AdjustBalance(accTo.ID, amount)
}

// NextEntityNum allocates an entity number
func (acc *DB) NextEntityNum() (int64, error) {
	next := acc.firstEntity
	if _, err := state.GetValue(acc.st, types.TokenService, entityKey, &next); err != nil {
		return 0, err
	}
	if next < acc.firstEntity {
		next = acc.firstEntity
	}
	if err := state.PutValue(acc.st, types.TokenService, entityKey, next+1); err != nil {
		return 0, err
	}
	return next, nil
}

// CreateHollow new account for an evm address alias, without a key
func (acc *DB) CreateHollow(alias []byte) (*types.Account, error) {
	if len(alias) != types.EVMAddressLen {
		return nil, errors.Wrapf(types.ErrInvalidAlias, "alias length %d", len(alias))
	}
	return acc.createWithAlias(alias, nil)
}

// CreateFromKey new account for a primitive key alias. An ecdsa key also gets its evm address as alias.
func (acc *DB) CreateFromKey(key *types.Key) (*types.Account, error) {
	if !key.IsPrimitive() {
		return nil, errors.Wrap(types.ErrInvalidAlias, "key alias must be a primitive key")
	}
	alias := key.Ed25519
	if len(key.ECDSASecp256k1) > 0 {
		evm, err := AliasFromKey(key)
		if err != nil {
			return nil, err
		}
		alias = evm
	}
	return acc.createWithAlias(alias, key)
}

func (acc *DB) createWithAlias(alias []byte, key *types.Key) (*types.Account, error) {
	if _, err := acc.LoadByAlias(alias); err == nil {
		return nil, errors.Wrapf(types.ErrInvalidAlias, "alias %x in use", alias)
	}
	num, err := acc.NextEntityNum()
	if err != nil {
		return nil, err
	}
	a := &types.Account{ID: types.NewAccountID(num), Alias: append([]byte(nil), alias...), Key: key}
	if err := acc.SaveAccount(a); err != nil {
		return nil, err
	}
	alog.Debug("create account from alias", "id", a.ID.Key(), "alias", hex.EncodeToString(alias), "hollow", a.IsHollow())
	return a, nil
}

// BalanceChanges net balance change of every account in keys between base and current,
// in account order. Accounts whose balance did not change are left out.
func BalanceChanges(current, base state.State, keys []string) ([]types.AccountAmount, error) {
	var out []types.AccountAmount
	for _, k := range keys {
		if !IsAccountKey(k) {
			continue
		}
		var now, before types.Account
		okNow, err := state.GetValue(current, types.TokenService, k, &now)
		if err != nil {
			return nil, err
		}
		okBefore, err := state.GetValue(base, types.TokenService, k, &before)
		if err != nil {
			return nil, err
		}
		var delta int64
		var id types.AccountID
		switch {
		case okNow && okBefore:
			delta, id = now.Balance-before.Balance, now.ID
		case okNow:
			delta, id = now.Balance, now.ID
		case okBefore:
			delta, id = -before.Balance, before.ID
		}
		if delta != 0 {
			out = append(out, types.AccountAmount{Account: types.AccountID{Shard: id.Shard, Realm: id.Realm, Num: id.Num}, Amount: delta})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Account, out[j].Account
		if a.Shard != b.Shard {
			return a.Shard < b.Shard
		}
		if a.Realm != b.Realm {
			return a.Realm < b.Realm
		}
		return a.Num < b.Num
	})
	return out, nil
}
