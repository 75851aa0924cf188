// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stack nested savepoints over the ledger state of one transaction
package stack

import (
	"sort"

	"github.com/33cn/dispatch/common/log"
	"github.com/33cn/dispatch/record"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
	"github.com/pkg/errors"
)

var slog = log.New("module", "stack")

// Savepoint one frame of the stack: buffered writes plus the configuration in effect
type Savepoint struct {
	state  *state.WrappedState
	config *types.Config
	// number of child builders in the sink when the frame was pushed
	sinkMark int
}

// State the frame's writable view
func (sp *Savepoint) State() *state.WrappedState {
	return sp.state
}

// Config configuration in effect in this frame
func (sp *Savepoint) Config() *types.Config {
	return sp.config
}

// SavepointStack the frames of one dispatch. A root stack wraps the node's state, a child stack
// wraps the current top frame of its parent.
type SavepointStack struct {
	root   state.WritableState
	frames []*Savepoint

	parent      *SavepointStack
	parentFrame int

	category    types.TransactionCategory
	reversing   types.ReversingBehavior
	baseBuilder record.Builder
	// configuration of the state last committed below this stack
	committed *types.Config

	// root stack only
	sink    *builderSink
	presets *presetAllocator
}

// NewRootStack root stack over the node state for the user transaction built by baseBuilder
func NewRootStack(root state.WritableState, cfg *types.Config, baseBuilder record.Builder) *SavepointStack {
	s := &SavepointStack{
		root:        root,
		category:    types.CategoryUser,
		reversing:   types.Irreversible,
		baseBuilder: baseBuilder,
		committed:   cfg,
		sink:        &builderSink{},
	}
	s.presets = newPresetAllocator(s, cfg.Handle)
	s.frames = []*Savepoint{{state: state.NewWrappedState(root), config: cfg}}
	return s
}

// NewChildStack stack nested in the current top frame of parent
func NewChildStack(parent *SavepointStack, category types.TransactionCategory, baseBuilder record.Builder) *SavepointStack {
	top := parent.peek()
	s := &SavepointStack{
		root:        top.state,
		parent:      parent,
		parentFrame: len(parent.frames) - 1,
		category:    category,
		reversing:   baseBuilder.ReversingBehavior(),
		baseBuilder: baseBuilder,
		committed:   top.config,
	}
	s.frames = []*Savepoint{{state: state.NewWrappedState(top.state), config: top.config, sinkMark: s.rootStack().sink.size()}}
	return s
}

func (s *SavepointStack) rootStack() *SavepointStack {
	r := s
	for r.parent != nil {
		r = r.parent
	}
	return r
}

func (s *SavepointStack) peek() *Savepoint {
	return s.frames[len(s.frames)-1]
}

// Depth number of frames, at least one
func (s *SavepointStack) Depth() int {
	return len(s.frames)
}

// State writable view of the top frame
func (s *SavepointStack) State() state.WritableState {
	return s.peek().state
}

// RootStates what this stack commits into, bypassing all its pending frames
func (s *SavepointStack) RootStates() state.State {
	return s.root
}

// Config configuration in effect at the top frame
func (s *SavepointStack) Config() *types.Config {
	return s.peek().config
}

// SetConfig replaces the configuration of the top frame
func (s *SavepointStack) SetConfig(cfg *types.Config) {
	s.peek().config = cfg
}

// Category category of the dispatch that owns the stack
func (s *SavepointStack) Category() types.TransactionCategory {
	return s.category
}

// ReversingBehavior of the dispatch that owns the stack
func (s *SavepointStack) ReversingBehavior() types.ReversingBehavior {
	return s.reversing
}

// BaseBuilder builder of the dispatch that owns the stack
func (s *SavepointStack) BaseBuilder() record.Builder {
	return s.baseBuilder
}

// Parent enclosing stack, nil for the root
func (s *SavepointStack) Parent() *SavepointStack {
	return s.parent
}

// HasPendingChanges any frame holds writes
func (s *SavepointStack) HasPendingChanges() bool {
	for _, f := range s.frames {
		if f.state.IsModified() {
			return true
		}
	}
	return false
}

func (s *SavepointStack) maxDepth() int {
	return int(s.rootStack().frames[0].config.Handle.MaxSavepointDepth)
}

func (s *SavepointStack) checkParent() error {
	if s.parent == nil {
		return nil
	}
	if len(s.parent.frames)-1 != s.parentFrame {
		return errors.Wrapf(types.ErrIllegalState, "parent frame %d no longer on top", s.parentFrame)
	}
	return nil
}

// CreateSavepoint pushes a frame reading through the current top
func (s *SavepointStack) CreateSavepoint() error {
	if len(s.frames)+1 > s.maxDepth() {
		return errors.Wrapf(types.ErrStackCapacity, "depth %d", len(s.frames))
	}
	top := s.peek()
	s.frames = append(s.frames, &Savepoint{
		state:    state.NewWrappedState(top.state),
		config:   top.config,
		sinkMark: s.rootStack().sink.size(),
	})
	return nil
}

// Commit merges the top frame into the one beneath and pops it
func (s *SavepointStack) Commit() error {
	if len(s.frames) < 2 {
		return errors.Wrap(types.ErrIllegalState, "commit of the root frame")
	}
	top := s.peek()
	if _, err := top.state.Commit(); err != nil {
		return err
	}
	s.frames = s.frames[:len(s.frames)-1]
	s.peek().config = top.config
	return nil
}

// Rollback discards the top frame and reverses the child builders created in it
func (s *SavepointStack) Rollback() error {
	if len(s.frames) < 2 {
		return errors.Wrap(types.ErrIllegalState, "rollback of the root frame")
	}
	top := s.peek()
	s.frames = s.frames[:len(s.frames)-1]
	s.rootStack().sink.revertFrom(top.sinkMark)
	return nil
}

// CommitFullStack merges every frame down and then into the root, leaving a single empty frame.
// The base builder of a root stack receives the committed state changes.
func (s *SavepointStack) CommitFullStack() error {
	if err := s.checkParent(); err != nil {
		return err
	}
	for len(s.frames) > 1 {
		if err := s.Commit(); err != nil {
			return err
		}
	}
	base := s.frames[0]
	changes, err := base.state.Commit()
	if err != nil {
		return err
	}
	if s.parent == nil {
		if len(changes) > 0 {
			s.baseBuilder.AddStateChanges(changes)
		}
	} else {
		s.parent.peek().config = base.config
	}
	s.committed = base.config
	return nil
}

// CommitIrreversible commits the root frame of a root stack that holds no other frames, giving the
// state changes to b instead of the base builder. Preceding children use it so that nothing the
// user transaction does later can undo them.
func (s *SavepointStack) CommitIrreversible(b record.Builder) error {
	if s.parent != nil || len(s.frames) != 1 {
		return errors.Wrapf(types.ErrIllegalState, "irreversible commit at depth %d", len(s.frames))
	}
	changes, err := s.frames[0].state.Commit()
	if err != nil {
		return err
	}
	if len(changes) > 0 {
		b.AddStateChanges(changes)
	}
	s.committed = s.frames[0].config
	return nil
}

// PendingKeys keys of service written in any frame, sorted
func (s *SavepointStack) PendingKeys(service string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, f := range s.frames {
		for _, k := range f.state.ModifiedKeys(service) {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// CommitSystemStateChanges same as CommitFullStack, for system work done outside any transaction
func (s *SavepointStack) CommitSystemStateChanges() error {
	return s.CommitFullStack()
}

// RollbackFullStack discards every frame and reverses every child builder created by this stack.
// The configuration goes back to the one of the last commit.
func (s *SavepointStack) RollbackFullStack() {
	base := s.frames[0]
	s.frames = s.frames[:1]
	base.state.Reset()
	base.config = s.committed
	s.rootStack().sink.revertFrom(base.sinkMark)
}

// PermitsStakingRewards true for the root stack, and for a scheduled stack directly under a user stack
func (s *SavepointStack) PermitsStakingRewards() bool {
	if s.parent == nil {
		return true
	}
	return s.category == types.CategoryScheduled && s.parent.category == types.CategoryUser
}

// NextPresetTxnID id for a child that must not collide with any other id of this user transaction
func (s *SavepointStack) NextPresetTxnID(isNestedIndirectly bool) (types.TransactionID, error) {
	return s.rootStack().presets.next(isNestedIndirectly)
}

// AddChildBuilder registers a builder for a child dispatch. Preceding and following children are
// limited by the handle configuration.
func (s *SavepointStack) AddChildBuilder(category types.TransactionCategory, reversing types.ReversingBehavior) (record.Builder, error) {
	cfg := s.Config()
	sink := s.rootStack().sink
	if category == types.CategoryPreceding {
		if sink.count(true) >= int(cfg.Handle.MaxPrecedingRecords) {
			return nil, types.NewHandleError(types.StatusMaxChildRecordsExceeded)
		}
	} else if sink.count(false) >= int(cfg.Handle.MaxFollowingRecords) {
		return nil, types.NewHandleError(types.StatusMaxChildRecordsExceeded)
	}
	b, err := record.NewBuilder(cfg.Records.StreamMode, category, reversing)
	if err != nil {
		return nil, err
	}
	sink.add(b)
	return b, nil
}

// ChildBuilders builders of every child dispatch still in the sink, in creation order
func (s *SavepointStack) ChildBuilders() []record.Builder {
	return append([]record.Builder(nil), s.rootStack().sink.builders...)
}
