// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"crypto/ed25519"
	"encoding/hex"
	"io/ioutil"
	"time"

	"github.com/33cn/dispatch/account"
	"github.com/33cn/dispatch/sigs"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
	tml "github.com/BurntSushi/toml"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
)

// Scenario genesis accounts and the transactions to replay over them
type Scenario struct {
	// unix seconds of the first consensus time
	Start    int64         `toml:"start"`
	Node     int64         `toml:"node"`
	NodeID   int64         `toml:"nodeID"`
	Keys     []*KeyDef     `toml:"key"`
	Accounts []*AccountDef `toml:"account"`
	Txns     []*TxnDef     `toml:"txn"`
}

// KeyDef a named key; the private key is derived from the name
type KeyDef struct {
	Name string `toml:"name"`
	// ed25519 (default) or ecdsa
	Type string `toml:"type"`
}

// AccountDef a genesis account
type AccountDef struct {
	Num      int64  `toml:"num"`
	Balance  int64  `toml:"balance"`
	Key      string `toml:"key"`
	Hollow   string `toml:"hollow"`
	Contract bool   `toml:"contract"`
	// the account must sign to receive
	ReceiverSigRequired bool   `toml:"receiverSigRequired"`
	Memo                string `toml:"memo"`
}

// LegDef one transfer leg; Alias and EVM name keys
type LegDef struct {
	Account int64  `toml:"account"`
	Alias   string `toml:"alias"`
	EVM     string `toml:"evm"`
	Amount  int64  `toml:"amount"`
}

// TxnDef a transaction of the scenario
type TxnDef struct {
	Type    string   `toml:"type"`
	Payer   int64    `toml:"payer"`
	Signers []string `toml:"signers"`
	Memo    string   `toml:"memo"`
	// seconds after the scenario start
	At   int64 `toml:"at"`
	Fee  int64 `toml:"fee"`
	Node int64 `toml:"node"`

	Transfers []LegDef `toml:"transfers"`

	Key     string `toml:"key"`
	Alias   string `toml:"alias"`
	EVM     string `toml:"evm"`
	Account int64  `toml:"account"`
	Balance int64  `toml:"balance"`

	Contract int64  `toml:"contract"`
	To       LegDef `toml:"to"`
	Gas      int64  `toml:"gas"`
	Amount   int64  `toml:"amount"`
	Data     string `toml:"data"`

	File     int64  `toml:"file"`
	Contents string `toml:"contents"`

	Freeze string `toml:"freeze"`
	// seconds after the consensus time of the freeze transaction
	StartIn int64 `toml:"startIn"`

	Schedule      int64   `toml:"schedule"`
	SchedulePayer int64   `toml:"schedulePayer"`
	Scheduled     *TxnDef `toml:"scheduled"`
}

// LoadScenario reads a scenario file
func LoadScenario(path string) (*Scenario, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "LoadScenario")
	}
	return ParseScenario(string(data))
}

// ParseScenario decodes a scenario and checks the names it uses
func ParseScenario(data string) (*Scenario, error) {
	var s Scenario
	if _, err := tml.Decode(data, &s); err != nil {
		return nil, errors.Wrap(err, "ParseScenario")
	}
	if s.Node == 0 {
		s.Node = 3
	}
	if s.Start == 0 {
		s.Start = time.Now().Unix()
	}
	k, err := s.keyring()
	if err != nil {
		return nil, err
	}
	for _, a := range s.Accounts {
		for _, name := range []string{a.Key, a.Hollow} {
			if name != "" && k[name] == nil {
				return nil, errors.Wrapf(types.ErrInvalidParam, "account %d: unknown key %s", a.Num, name)
			}
		}
	}
	return &s, nil
}

type keyPair struct {
	ed  ed25519.PrivateKey
	ec  *btcec.PrivateKey
	key *types.Key
}

func (p *keyPair) sign(msg []byte) types.SignaturePair {
	if p.ec != nil {
		return types.SignaturePair{PubKeyPrefix: p.key.ECDSASecp256k1, ECDSASecp256k1: sigs.SignECDSA(p.ec, msg)}
	}
	return types.SignaturePair{PubKeyPrefix: p.key.Ed25519, Ed25519: ed25519.Sign(p.ed, msg)}
}

// keyring the key pairs of the scenario by name
func (s *Scenario) keyring() (map[string]*keyPair, error) {
	ring := make(map[string]*keyPair, len(s.Keys))
	for _, k := range s.Keys {
		if k.Name == "" || ring[k.Name] != nil {
			return nil, errors.Wrapf(types.ErrInvalidParam, "key name %q", k.Name)
		}
		seed := blake3.Sum256([]byte(k.Name))
		switch k.Type {
		case "", "ed25519":
			priv := ed25519.NewKeyFromSeed(seed[:])
			ring[k.Name] = &keyPair{ed: priv, key: &types.Key{Ed25519: priv.Public().(ed25519.PublicKey)}}
		case "ecdsa":
			priv, pub := btcec.PrivKeyFromBytes(seed[:])
			ring[k.Name] = &keyPair{ec: priv, key: &types.Key{ECDSASecp256k1: pub.SerializeCompressed()}}
		default:
			return nil, errors.Wrapf(types.ErrInvalidParam, "key %s: type %s", k.Name, k.Type)
		}
	}
	return ring, nil
}

// Genesis writes the accounts of the scenario into root
func (s *Scenario) Genesis(root state.WritableState, lastReserved int64) error {
	ring, err := s.keyring()
	if err != nil {
		return err
	}
	acc := account.NewAccountDB(root, lastReserved)
	for _, def := range s.Accounts {
		a := &types.Account{
			ID:                  types.NewAccountID(def.Num),
			Balance:             def.Balance,
			SmartContract:       def.Contract,
			ReceiverSigRequired: def.ReceiverSigRequired,
			Memo:                def.Memo,
		}
		if def.Key != "" {
			a.Key = ring[def.Key].key
		}
		if def.Contract {
			a.Key = &types.Key{ContractID: def.Num}
		}
		if def.Hollow != "" {
			alias, err := account.AliasFromKey(ring[def.Hollow].key)
			if err != nil {
				return errors.Wrapf(err, "account %d", def.Num)
			}
			a.Alias = alias
		}
		if err := acc.SaveAccount(a); err != nil {
			return err
		}
	}
	return nil
}

// Build the signed transactions of the scenario with their consensus times
func (s *Scenario) Build() ([]*types.TransactionInfo, []time.Time, error) {
	ring, err := s.keyring()
	if err != nil {
		return nil, nil, err
	}
	start := time.Unix(s.Start, 0)
	txns := make([]*types.TransactionInfo, 0, len(s.Txns))
	times := make([]time.Time, 0, len(s.Txns))
	for i, def := range s.Txns {
		// one nanosecond apart keeps ids and consensus times unique
		validStart := start.Add(time.Duration(def.At)*time.Second + time.Duration(i))
		now := validStart.Add(time.Second)
		body, err := s.body(def, ring, validStart, now)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "txn %d", i)
		}
		msg, err := state.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		txn := &types.TransactionInfo{Body: body, SignedBytes: msg, SerializedLen: len(msg)}
		for _, name := range def.Signers {
			p := ring[name]
			if p == nil {
				return nil, nil, errors.Wrapf(types.ErrInvalidParam, "txn %d: unknown signer %s", i, name)
			}
			txn.Signatures = append(txn.Signatures, p.sign(msg))
		}
		txns = append(txns, txn)
		times = append(times, now)
	}
	return txns, times, nil
}

func (s *Scenario) body(def *TxnDef, ring map[string]*keyPair, validStart, now time.Time) (*types.TransactionBody, error) {
	node := s.Node
	if def.Node != 0 {
		node = def.Node
	}
	fee := def.Fee
	if fee == 0 {
		fee = 100000000
	}
	body := &types.TransactionBody{
		TransactionID:  types.TransactionID{Payer: types.NewAccountID(def.Payer), ValidStart: validStart},
		NodeAccountID:  types.NewAccountID(node),
		TransactionFee: fee,
		ValidDuration:  120 * time.Second,
		Memo:           def.Memo,
	}
	keyOf := func(name string) (*types.Key, error) {
		if name == "" {
			return nil, nil
		}
		p := ring[name]
		if p == nil {
			return nil, errors.Wrapf(types.ErrInvalidParam, "unknown key %s", name)
		}
		return p.key, nil
	}
	switch def.Type {
	case "transfer":
		legs := make([]types.AccountAmount, 0, len(def.Transfers))
		for _, l := range def.Transfers {
			id, err := legAccount(l, ring)
			if err != nil {
				return nil, err
			}
			legs = append(legs, types.AccountAmount{Account: id, Amount: l.Amount})
		}
		body.CryptoTransfer = &types.CryptoTransferBody{Transfers: legs}
	case "create":
		key, err := keyOf(def.Key)
		if err != nil {
			return nil, err
		}
		op := &types.CryptoCreateBody{Key: key, InitialBalance: def.Balance, Memo: def.Memo}
		if def.Alias != "" || def.EVM != "" {
			id, err := legAccount(LegDef{Alias: def.Alias, EVM: def.EVM}, ring)
			if err != nil {
				return nil, err
			}
			op.Alias = id.Alias
		}
		body.CryptoCreate = op
	case "update":
		key, err := keyOf(def.Key)
		if err != nil {
			return nil, err
		}
		body.CryptoUpdate = &types.CryptoUpdateBody{Account: types.NewAccountID(def.Account), Key: key}
	case "call", "contract_create":
		data, err := hex.DecodeString(def.Data)
		if err != nil {
			return nil, errors.Wrap(err, "data")
		}
		op := &types.ContractCallBody{ContractID: types.NewAccountID(def.Contract), Gas: def.Gas, Amount: def.Amount, Data: data}
		if def.Type == "call" {
			body.ContractCall = op
		} else {
			op.ContractID = types.AccountID{}
			body.ContractCreate = op
		}
	case "ethereum":
		data, err := hex.DecodeString(def.Data)
		if err != nil {
			return nil, errors.Wrap(err, "data")
		}
		var to types.AccountID
		if def.To.Account != 0 || def.To.Alias != "" || def.To.EVM != "" {
			if to, err = legAccount(def.To, ring); err != nil {
				return nil, err
			}
		}
		body.Ethereum = &types.EthereumBody{To: to, Gas: def.Gas, Value: def.Amount, CallData: data}
	case "file_update":
		body.FileUpdate = &types.FileUpdateBody{FileID: def.File, Contents: []byte(def.Contents)}
	case "system_delete", "system_undelete":
		op := &types.SystemDeleteBody{FileID: def.File, Expiration: now.Add(time.Duration(def.StartIn) * time.Second)}
		if def.Type == "system_delete" {
			body.SystemDelete = op
		} else {
			body.SystemUndelete = op
		}
	case "freeze":
		typ, ok := freezeTypes[def.Freeze]
		if !ok {
			return nil, errors.Wrapf(types.ErrInvalidParam, "freeze type %q", def.Freeze)
		}
		op := &types.FreezeBody{Type: typ}
		if typ == types.FreezeOnly || typ == types.FreezeUpgrade {
			op.StartTime = now.Add(time.Duration(def.StartIn) * time.Second)
		}
		body.Freeze = op
	case "schedule_create":
		if def.Scheduled == nil {
			return nil, errors.Wrap(types.ErrInvalidParam, "schedule_create without scheduled")
		}
		inner, err := s.body(def.Scheduled, ring, validStart, now)
		if err != nil {
			return nil, errors.Wrap(err, "scheduled")
		}
		op := &types.ScheduleCreateBody{Scheduled: inner, Memo: def.Memo}
		if def.SchedulePayer != 0 {
			p := types.NewAccountID(def.SchedulePayer)
			op.Payer = &p
		}
		body.ScheduleCreate = op
	case "schedule_sign":
		body.ScheduleSign = &types.ScheduleSignBody{ScheduleID: def.Schedule}
	default:
		return nil, errors.Wrapf(types.ErrInvalidParam, "txn type %q", def.Type)
	}
	return body, nil
}

var freezeTypes = map[string]types.FreezeType{
	"freeze_only":       types.FreezeOnly,
	"prepare_upgrade":   types.PrepareUpgrade,
	"freeze_upgrade":    types.FreezeUpgrade,
	"freeze_abort":      types.FreezeAbort,
	"telemetry_upgrade": types.TelemetryUpgrade,
}

// legAccount the account a leg names: a number, the public key of a named key as alias, or the
// evm address of a named ecdsa key
func legAccount(l LegDef, ring map[string]*keyPair) (types.AccountID, error) {
	switch {
	case l.Alias != "":
		p := ring[l.Alias]
		if p == nil {
			return types.AccountID{}, errors.Wrapf(types.ErrInvalidParam, "unknown key %s", l.Alias)
		}
		if p.ec != nil {
			return types.AliasAccountID(p.key.ECDSASecp256k1), nil
		}
		return types.AliasAccountID(p.key.Ed25519), nil
	case l.EVM != "":
		p := ring[l.EVM]
		if p == nil || p.ec == nil {
			return types.AccountID{}, errors.Wrapf(types.ErrInvalidParam, "no ecdsa key %s", l.EVM)
		}
		evm, err := account.AliasFromKey(p.key)
		if err != nil {
			return types.AccountID{}, err
		}
		return types.AliasAccountID(evm), nil
	}
	return types.NewAccountID(l.Account), nil
}
