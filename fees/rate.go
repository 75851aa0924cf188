// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fees

import (
	"github.com/33cn/dispatch/types"
	"github.com/shopspring/decimal"
)

// ExchangeRate converts between tinycents and tinybars
type ExchangeRate struct {
	rate types.ExchangeRate
}

// NewExchangeRate rate of hbarEquiv hbars to centEquiv cents
func NewExchangeRate(rate types.ExchangeRate) ExchangeRate {
	if rate.HbarEquiv <= 0 || rate.CentEquiv <= 0 {
		rate = types.ExchangeRate{HbarEquiv: 1, CentEquiv: 1}
	}
	return ExchangeRate{rate: rate}
}

// Rate the raw rate, as written to records
func (r ExchangeRate) Rate() types.ExchangeRate {
	return r.rate
}

// TinycentsToTinybars rounds down
func (r ExchangeRate) TinycentsToTinybars(tinycents int64) int64 {
	v := decimal.NewFromInt(tinycents).
		Mul(decimal.NewFromInt(r.rate.HbarEquiv)).
		Div(decimal.NewFromInt(r.rate.CentEquiv))
	return v.Floor().IntPart()
}

// TinybarsToTinycents rounds down
func (r ExchangeRate) TinybarsToTinycents(tinybars int64) int64 {
	v := decimal.NewFromInt(tinybars).
		Mul(decimal.NewFromInt(r.rate.CentEquiv)).
		Div(decimal.NewFromInt(r.rate.HbarEquiv))
	return v.Floor().IntPart()
}

// GasCost tinybars for gas at a price given in tinycents, rounded up
func (r ExchangeRate) GasCost(gas, gasPriceTinycents int64) int64 {
	if gas <= 0 {
		return 0
	}
	v := decimal.NewFromInt(gas).
		Mul(decimal.NewFromInt(gasPriceTinycents)).
		Mul(decimal.NewFromInt(r.rate.HbarEquiv)).
		Div(decimal.NewFromInt(r.rate.CentEquiv))
	return v.Ceil().IntPart()
}
