// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"fmt"

	"github.com/pkg/errors"
)

// sentinel errors
var (
	ErrNotFound          = errors.New("ErrNotFound")
	ErrInvalidParam      = errors.New("ErrInvalidParam")
	ErrIllegalState      = errors.New("ErrIllegalState")
	ErrIllegalArgument   = errors.New("ErrIllegalArgument")
	ErrStackCapacity     = errors.New("ErrStackCapacity")
	ErrStackFinished     = errors.New("ErrStackFinished")
	ErrConfigNotFound    = errors.New("ErrConfigNotFound")
	ErrUnknownDriver     = errors.New("ErrUnknownDriver")
	ErrDBClosed          = errors.New("ErrDBClosed")
	ErrDecode            = errors.New("ErrDecode")
	ErrUnsupportedKey    = errors.New("ErrUnsupportedKey")
	ErrNoHandler         = errors.New("ErrNoHandler")
	ErrInvalidStreamMode = errors.New("ErrInvalidStreamMode")
	ErrAmount            = errors.New("ErrAmount")
	ErrNoBalance         = errors.New("ErrNoBalance")
	ErrSendSameToRecv    = errors.New("ErrSendSameToRecv")
	ErrAccountDeleted    = errors.New("ErrAccountDeleted")
	ErrInvalidAlias      = errors.New("ErrInvalidAlias")
	ErrNetworkFrozen     = errors.New("ErrNetworkFrozen")
)

// HandleError a business logic failure with the status to record.
// When ShouldRollbackStack is false the state changes made so far are kept, for example
// the gas charged by a reverted contract call.
type HandleError struct {
	Status              Status
	ShouldRollbackStack bool
}

// NewHandleError failure that rolls back the stack
func NewHandleError(status Status) *HandleError {
	return &HandleError{Status: status, ShouldRollbackStack: true}
}

// NewHandleErrorKeepState failure that keeps the changes of the stack
func NewHandleErrorKeepState(status Status) *HandleError {
	return &HandleError{Status: status}
}

func (e *HandleError) Error() string {
	if e.ShouldRollbackStack {
		return fmt.Sprintf("handle failed: %s", e.Status)
	}
	return fmt.Sprintf("handle failed: %s (state kept)", e.Status)
}

// ThrottleError capacity exhausted while handling
type ThrottleError struct {
	Status Status
}

// NewThrottleError throttle failure with status
func NewThrottleError(status Status) *ThrottleError {
	return &ThrottleError{Status: status}
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: %s", e.Status)
}

// PreCheckError a failed check before any handling, such as a solvency check
type PreCheckError struct {
	Status Status
}

// NewPreCheckError pre-check failure with status
func NewPreCheckError(status Status) *PreCheckError {
	return &PreCheckError{Status: status}
}

func (e *PreCheckError) Error() string {
	return fmt.Sprintf("pre-check failed: %s", e.Status)
}

// StatusOf the status carried by a typed error anywhere in err's chain
func StatusOf(err error) (Status, bool) {
	var he *HandleError
	if errors.As(err, &he) {
		return he.Status, true
	}
	var te *ThrottleError
	if errors.As(err, &te) {
		return te.Status, true
	}
	var pe *PreCheckError
	if errors.As(err, &pe) {
		return pe.Status, true
	}
	return StatusOK, false
}
