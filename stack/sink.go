// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stack

import (
	"time"

	"github.com/33cn/dispatch/record"
	"github.com/33cn/dispatch/types"
)

// builderSink child builders of one user transaction in creation order
type builderSink struct {
	builders []record.Builder
}

func (k *builderSink) size() int {
	return len(k.builders)
}

func (k *builderSink) add(b record.Builder) {
	k.builders = append(k.builders, b)
}

func (k *builderSink) count(preceding bool) int {
	n := 0
	for _, b := range k.builders {
		if (b.Category() == types.CategoryPreceding) == preceding {
			n++
		}
	}
	return n
}

// revertFrom applies the reversing behavior of every builder created at or after mark
func (k *builderSink) revertFrom(mark int) {
	if mark >= len(k.builders) {
		return
	}
	kept := k.builders[:mark]
	for _, b := range k.builders[mark:] {
		switch b.ReversingBehavior() {
		case types.Removable:
			slog.Debug("revert removes child", "txid", b.TransactionID().Key())
			continue
		case types.Reversible:
			if b.Status().IsSuccess() {
				b.SetStatus(types.StatusRevertedSuccess)
			}
			b.NullOutSideEffects()
		}
		kept = append(kept, b)
	}
	k.builders = kept
}

// BuildOutput the stream output of the user transaction: preceding children, the user transaction,
// then the following children. Preceding children take the nanoseconds just before consensusTime,
// following children the ones just after.
func (s *SavepointStack) BuildOutput(consensusTime time.Time) *record.Output {
	root := s.rootStack()
	var preceding, following []record.Builder
	for _, b := range root.sink.builders {
		if b.Category() == types.CategoryPreceding {
			preceding = append(preceding, b)
		} else {
			following = append(following, b)
		}
	}
	out := &record.Output{}
	for i, b := range preceding {
		b.SetConsensusTime(consensusTime.Add(-time.Duration(len(preceding)-i) * time.Nanosecond))
		b.Build(out)
	}
	root.baseBuilder.SetConsensusTime(consensusTime)
	root.baseBuilder.Build(out)
	for i, b := range following {
		b.SetConsensusTime(consensusTime.Add(time.Duration(i+1) * time.Nanosecond))
		b.SetParentConsensusTime(consensusTime)
		b.Build(out)
	}
	return out
}
