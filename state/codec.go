// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package state

import (
	"github.com/33cn/dispatch/types"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	encMode, err = opts.EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Marshal deterministic encoding of a state value
func Marshal(v interface{}) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes a state value
func Unmarshal(data []byte, v interface{}) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return errors.Wrap(types.ErrDecode, err.Error())
	}
	return nil
}

// GetValue decodes service/key into v, false when absent
func GetValue(s State, service, key string, v interface{}) (bool, error) {
	data, err := s.Get(service, key)
	if err == types.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := Unmarshal(data, v); err != nil {
		return false, errors.Wrapf(err, "%s/%s", service, key)
	}
	return true, nil
}

// PutValue encodes v into service/key
func PutValue(w WritableState, service, key string, v interface{}) error {
	data, err := Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s/%s", service, key)
	}
	w.Put(service, key, data)
	return nil
}
