// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package auth 系统账户权限: 接口权限, 特权操作授权, 手续费豁免
package auth

import (
	"github.com/33cn/dispatch/common/log"
	"github.com/33cn/dispatch/types"
)

var alog = log.New("module", "auth")

// Authorizer checks what a payer may do
type Authorizer struct {
	accounts *types.Accounts
	files    *types.Files
	// highest payer number allowed to submit a functionality, from the treasury up
	permissions map[types.Functionality]int64
}

// NewAuthorizer authorizer for the system accounts and files of cfg
func NewAuthorizer(cfg *types.Config) *Authorizer {
	a := &Authorizer{accounts: cfg.Accounts, files: cfg.Files}
	a.permissions = map[types.Functionality]int64{
		types.Freeze:         cfg.Accounts.FreezeAdmin,
		types.SystemDelete:   cfg.Accounts.SystemDeleteAdmin,
		types.SystemUndelete: cfg.Accounts.SystemUndeleteAdmin,
	}
	return a
}

func (a *Authorizer) isSystemAccount(id types.AccountID) bool {
	return !id.HasAlias() && id.Shard == 0 && id.Realm == 0
}

// IsSuperuser the treasury or the system admin
func (a *Authorizer) IsSuperuser(id types.AccountID) bool {
	return a.isSystemAccount(id) && (id.Num == a.accounts.Treasury || id.Num == a.accounts.SystemAdmin)
}

func (a *Authorizer) is(id types.AccountID, num int64) bool {
	return a.isSystemAccount(id) && id.Num == num
}

// IsAuthorized whether payer may submit functionality at all
func (a *Authorizer) IsAuthorized(payer types.AccountID, f types.Functionality) bool {
	max, restricted := a.permissions[f]
	if !restricted {
		return true
	}
	ok := a.isSystemAccount(payer) && payer.Num >= a.accounts.Treasury && payer.Num <= max
	if !ok {
		alog.Debug("IsAuthorized: not permitted", "payer", payer.Key(), "functionality", f)
	}
	return ok
}

// HasPrivilegedAuthorization authorization of operations reserved to system accounts
func (a *Authorizer) HasPrivilegedAuthorization(payer types.AccountID, f types.Functionality, body *types.TransactionBody) types.SystemPrivilege {
	switch f {
	case types.Freeze:
		if a.IsSuperuser(payer) || a.is(payer, a.accounts.FreezeAdmin) {
			return types.PrivilegeAuthorized
		}
		return types.PrivilegeUnauthorized
	case types.SystemDelete:
		return a.checkEntityDelete(payer, a.accounts.SystemDeleteAdmin, body.SystemDelete)
	case types.SystemUndelete:
		return a.checkEntityDelete(payer, a.accounts.SystemUndeleteAdmin, body.SystemUndelete)
	case types.FileUpdate:
		return a.checkFileUpdate(payer, body.FileUpdate)
	}
	return types.PrivilegeUnnecessary
}

func (a *Authorizer) checkEntityDelete(payer types.AccountID, admin int64, body *types.SystemDeleteBody) types.SystemPrivilege {
	if !a.IsSuperuser(payer) && !a.is(payer, admin) {
		return types.PrivilegeUnauthorized
	}
	if body != nil && body.FileID <= a.accounts.LastReservedSystemEntity {
		return types.PrivilegeImpermissible
	}
	return types.PrivilegeAuthorized
}

// fileAdmin account allowed to update a system file, zero when the file is not a system file
func (a *Authorizer) fileAdmin(fileID int64) int64 {
	switch fileID {
	case a.files.AddressBook, a.files.NetworkProperties:
		return a.accounts.AddressBookAdmin
	case a.files.FeeSchedules:
		return a.accounts.FeeSchedulesAdmin
	case a.files.ExchangeRates:
		return a.accounts.ExchangeRatesAdmin
	}
	return 0
}

func (a *Authorizer) checkFileUpdate(payer types.AccountID, body *types.FileUpdateBody) types.SystemPrivilege {
	if body == nil || body.FileID > a.accounts.LastReservedSystemEntity {
		return types.PrivilegeUnnecessary
	}
	if a.IsSuperuser(payer) {
		return types.PrivilegeAuthorized
	}
	if admin := a.fileAdmin(body.FileID); admin != 0 && a.is(payer, admin) {
		return types.PrivilegeAuthorized
	}
	return types.PrivilegeUnauthorized
}

// HasWaivedFees superusers pay nothing; neither do admins doing the privileged work they are there for
func (a *Authorizer) HasWaivedFees(payer types.AccountID, f types.Functionality, body *types.TransactionBody) bool {
	if a.IsSuperuser(payer) {
		return true
	}
	switch f {
	case types.Freeze, types.SystemDelete, types.SystemUndelete:
		return a.HasPrivilegedAuthorization(payer, f, body) == types.PrivilegeAuthorized
	case types.FileUpdate:
		return body.FileUpdate != nil &&
			a.checkFileUpdate(payer, body.FileUpdate) == types.PrivilegeAuthorized &&
			body.FileUpdate.FileID <= a.accounts.LastReservedSystemEntity
	}
	return false
}
