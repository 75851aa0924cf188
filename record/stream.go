// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"bytes"
	"io"
	"time"

	"github.com/33cn/dispatch/common/merkle"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformedRecord bytes that are not an encoded record
var ErrMalformedRecord = errors.New("ErrMalformedRecord")

// StreamWriter writes length prefixed records and block items, keeping a running hash over them
type StreamWriter struct {
	w           io.Writer
	runningHash [32]byte
	count       int64
}

// NewStreamWriter writer continuing from startHash
func NewStreamWriter(w io.Writer, startHash [32]byte) *StreamWriter {
	return &StreamWriter{w: w, runningHash: startHash}
}

// RunningHash hash over everything written so far
func (s *StreamWriter) RunningHash() [32]byte {
	return s.runningHash
}

// Count number of messages written
func (s *StreamWriter) Count() int64 {
	return s.count
}

func (s *StreamWriter) write(msg []byte) error {
	frame := protowire.AppendVarint(nil, uint64(len(msg)))
	frame = append(frame, msg...)
	if _, err := s.w.Write(frame); err != nil {
		return errors.Wrap(err, "stream write")
	}
	s.runningHash = blake3.Sum256(append(s.runningHash[:], msg...))
	s.count++
	return nil
}

// WriteOutput writes the records and then the block items of out
func (s *StreamWriter) WriteOutput(out *Output) error {
	for _, r := range out.Records {
		if err := s.write(EncodeRecord(r)); err != nil {
			return err
		}
	}
	for _, item := range out.Items {
		if err := s.write(EncodeItem(item)); err != nil {
			return err
		}
	}
	return nil
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendSintField(b []byte, num protowire.Number, v int64) []byte {
	return appendVarintField(b, num, protowire.EncodeZigZag(v))
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendMessageField(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func encodeAccountID(id types.AccountID) []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(id.Shard))
	b = appendVarintField(b, 2, uint64(id.Realm))
	b = appendVarintField(b, 3, uint64(id.Num))
	b = appendBytesField(b, 4, id.Alias)
	return b
}

func encodeTime(b []byte, secs, nanos protowire.Number, t time.Time) []byte {
	if t.IsZero() {
		return b
	}
	b = appendSintField(b, secs, t.Unix())
	return appendVarintField(b, nanos, uint64(t.Nanosecond()))
}

func encodeTxnID(id types.TransactionID) []byte {
	var b []byte
	b = appendMessageField(b, 1, encodeAccountID(id.Payer))
	b = encodeTime(b, 2, 3, id.ValidStart)
	b = appendSintField(b, 4, int64(id.Nonce))
	if id.Scheduled {
		b = appendVarintField(b, 5, protowire.EncodeBool(true))
	}
	return b
}

// EncodeRecord protobuf wire encoding of r
func EncodeRecord(r *Record) []byte {
	var b []byte
	b = appendMessageField(b, 1, encodeTxnID(r.TransactionID))
	b = appendVarintField(b, 2, uint64(r.Category))
	b = encodeTime(b, 3, 4, r.ConsensusTime)
	b = appendVarintField(b, 5, uint64(r.Status))
	b = appendSintField(b, 6, r.TransactionFee)
	for _, t := range r.Transfers {
		var tb []byte
		tb = appendMessageField(tb, 1, encodeAccountID(t.Account))
		tb = appendSintField(tb, 2, t.Amount)
		b = appendMessageField(b, 7, tb)
	}
	var rate []byte
	rate = appendVarintField(rate, 1, uint64(r.ExchangeRate.HbarEquiv))
	rate = appendVarintField(rate, 2, uint64(r.ExchangeRate.CentEquiv))
	b = appendMessageField(b, 8, rate)
	b = appendVarintField(b, 9, uint64(r.GasUsed))
	b = appendBytesField(b, 10, []byte(r.Memo))
	b = appendVarintField(b, 11, uint64(r.ScheduleRef))
	if r.CreatedAccount != nil {
		b = appendMessageField(b, 12, encodeAccountID(*r.CreatedAccount))
	}
	b = appendBytesField(b, 13, r.EVMAddress)
	b = encodeTime(b, 14, 15, r.ParentConsensusTime)
	return b
}

func encodeStateChange(c state.StateChange) []byte {
	var b []byte
	b = appendBytesField(b, 1, []byte(c.Service))
	b = appendBytesField(b, 2, []byte(c.Key))
	b = appendBytesField(b, 3, c.Value)
	if c.Deleted {
		b = appendVarintField(b, 4, protowire.EncodeBool(true))
	}
	return b
}

// EncodeItem protobuf wire encoding of a block item
func EncodeItem(item *BlockItem) []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(item.Kind))
	b = appendMessageField(b, 2, encodeTxnID(item.TransactionID))
	if item.Result != nil {
		b = appendMessageField(b, 3, EncodeRecord(item.Result))
	}
	for _, c := range item.StateChanges {
		b = appendMessageField(b, 4, encodeStateChange(c))
	}
	return b
}

// fields walks the top level fields of a message
func fields(b []byte, fn func(num protowire.Number, typ protowire.Type, v uint64, bs []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return ErrMalformedRecord
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return ErrMalformedRecord
			}
			b = b[n:]
			if err := fn(num, typ, v, nil); err != nil {
				return err
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return ErrMalformedRecord
			}
			b = b[n:]
			if err := fn(num, typ, 0, v); err != nil {
				return err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return ErrMalformedRecord
			}
			b = b[n:]
		}
	}
	return nil
}

func decodeAccountID(b []byte) (types.AccountID, error) {
	var id types.AccountID
	err := fields(b, func(num protowire.Number, _ protowire.Type, v uint64, bs []byte) error {
		switch num {
		case 1:
			id.Shard = int64(v)
		case 2:
			id.Realm = int64(v)
		case 3:
			id.Num = int64(v)
		case 4:
			id.Alias = append([]byte(nil), bs...)
		}
		return nil
	})
	return id, err
}

func decodeTxnID(b []byte) (types.TransactionID, error) {
	var id types.TransactionID
	var secs int64
	var nanos uint64
	err := fields(b, func(num protowire.Number, _ protowire.Type, v uint64, bs []byte) error {
		var err error
		switch num {
		case 1:
			id.Payer, err = decodeAccountID(bs)
		case 2:
			secs = protowire.DecodeZigZag(v)
		case 3:
			nanos = v
		case 4:
			id.Nonce = int32(protowire.DecodeZigZag(v))
		case 5:
			id.Scheduled = protowire.DecodeBool(v)
		}
		return err
	})
	if secs != 0 || nanos != 0 {
		id.ValidStart = time.Unix(secs, int64(nanos))
	}
	return id, err
}

// DecodeRecord inverse of EncodeRecord
func DecodeRecord(b []byte) (*Record, error) {
	r := &Record{}
	var secs, psecs int64
	var nanos, pnanos uint64
	err := fields(b, func(num protowire.Number, _ protowire.Type, v uint64, bs []byte) error {
		var err error
		switch num {
		case 1:
			r.TransactionID, err = decodeTxnID(bs)
		case 2:
			r.Category = types.TransactionCategory(v)
		case 3:
			secs = protowire.DecodeZigZag(v)
		case 4:
			nanos = v
		case 5:
			r.Status = types.Status(v)
		case 6:
			r.TransactionFee = protowire.DecodeZigZag(v)
		case 7:
			var aa types.AccountAmount
			err = fields(bs, func(num protowire.Number, _ protowire.Type, v uint64, bs []byte) error {
				var err error
				if num == 1 {
					aa.Account, err = decodeAccountID(bs)
				} else if num == 2 {
					aa.Amount = protowire.DecodeZigZag(v)
				}
				return err
			})
			r.Transfers = append(r.Transfers, aa)
		case 8:
			err = fields(bs, func(num protowire.Number, _ protowire.Type, v uint64, _ []byte) error {
				if num == 1 {
					r.ExchangeRate.HbarEquiv = int64(v)
				} else if num == 2 {
					r.ExchangeRate.CentEquiv = int64(v)
				}
				return nil
			})
		case 9:
			r.GasUsed = int64(v)
		case 10:
			r.Memo = string(bs)
		case 11:
			r.ScheduleRef = int64(v)
		case 12:
			var id types.AccountID
			id, err = decodeAccountID(bs)
			r.CreatedAccount = &id
		case 13:
			r.EVMAddress = append([]byte(nil), bs...)
		case 14:
			psecs = protowire.DecodeZigZag(v)
		case 15:
			pnanos = v
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if secs != 0 || nanos != 0 {
		r.ConsensusTime = time.Unix(secs, int64(nanos))
	}
	if psecs != 0 || pnanos != 0 {
		r.ParentConsensusTime = time.Unix(psecs, int64(pnanos))
	}
	return r, nil
}

// SplitFrames the messages of a stream written by StreamWriter
func SplitFrames(data []byte) ([][]byte, error) {
	var out [][]byte
	for len(data) > 0 {
		l, n := protowire.ConsumeVarint(data)
		if n < 0 || uint64(len(data)-n) < l {
			return nil, ErrMalformedRecord
		}
		out = append(out, data[n:n+int(l)])
		data = data[n+int(l):]
	}
	return out, nil
}

// HashFrames running hash over frames, as StreamWriter computes it
func HashFrames(start [32]byte, frames [][]byte) [32]byte {
	h := start
	for _, f := range frames {
		h = blake3.Sum256(append(h[:], f...))
	}
	return h
}

func (out *Output) itemLeaves() [][]byte {
	leaves := make([][]byte, 0, len(out.Items))
	for _, item := range out.Items {
		leaves = append(leaves, merkle.LeafHash(EncodeItem(item)))
	}
	return leaves
}

// ItemsRoot merkle root over the encoded block items of out
func (out *Output) ItemsRoot() []byte {
	root, _ := merkle.GetMerkleRoot(out.itemLeaves())
	return root
}

// ItemProof leaf hash and branch proving item i belongs to ItemsRoot
func (out *Output) ItemProof(i int) (leaf []byte, branch [][]byte, err error) {
	if i < 0 || i >= len(out.Items) {
		return nil, nil, errors.Wrapf(types.ErrInvalidParam, "item %d of %d", i, len(out.Items))
	}
	leaves := out.itemLeaves()
	return leaves[i], merkle.GetMerkleBranch(leaves, uint32(i)), nil
}

// VerifyItemProof checks that leaf at index i with branch hashes up to root
func VerifyItemProof(root, leaf []byte, branch [][]byte, i int) bool {
	return bytes.Equal(root, merkle.GetMerkleRootFromBranch(branch, leaf, uint32(i)))
}
