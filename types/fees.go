// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import "fmt"

// Fees the three components of a transaction fee, in tinybars
type Fees struct {
	NodeFee    int64 `cbor:"1,keyasint"`
	NetworkFee int64 `cbor:"2,keyasint"`
	ServiceFee int64 `cbor:"3,keyasint"`
}

// FreeFees nothing to charge
var FreeFees = Fees{}

// TotalFee sum of all components
func (f Fees) TotalFee() int64 {
	return f.NodeFee + f.NetworkFee + f.ServiceFee
}

// TotalWithoutNodeFee network plus service component
func (f Fees) TotalWithoutNodeFee() int64 {
	return f.NetworkFee + f.ServiceFee
}

// WithoutServiceComponent same fees with the service component waived
func (f Fees) WithoutServiceComponent() Fees {
	return Fees{NodeFee: f.NodeFee, NetworkFee: f.NetworkFee}
}

// Plus component wise sum
func (f Fees) Plus(o Fees) Fees {
	return Fees{NodeFee: f.NodeFee + o.NodeFee, NetworkFee: f.NetworkFee + o.NetworkFee, ServiceFee: f.ServiceFee + o.ServiceFee}
}

func (f Fees) String() string {
	return fmt.Sprintf("Fees{node=%d, network=%d, service=%d}", f.NodeFee, f.NetworkFee, f.ServiceFee)
}

// ExchangeRate hbar to cent rate in effect for a transaction
type ExchangeRate struct {
	HbarEquiv int64 `cbor:"1,keyasint"`
	CentEquiv int64 `cbor:"2,keyasint"`
}
