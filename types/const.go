// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

// TransactionCategory how a dispatch came into being
type TransactionCategory int32

// categories of a dispatch
const (
	CategoryUser TransactionCategory = iota
	CategoryChild
	CategoryPreceding
	CategoryScheduled
)

var categoryNames = map[TransactionCategory]string{
	CategoryUser:      "USER",
	CategoryChild:     "CHILD",
	CategoryPreceding: "PRECEDING",
	CategoryScheduled: "SCHEDULED",
}

func (c TransactionCategory) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// ReversingBehavior what happens to a child record when its parent frame is rolled back
type ReversingBehavior int32

// reversing behaviors
const (
	// Reversible record kept with status REVERTED_SUCCESS
	Reversible ReversingBehavior = iota
	// Removable record dropped from the stream
	Removable
	// Irreversible record kept unchanged
	Irreversible
)

// WorkDone what processing a dispatch amounted to, for utilization accounting
type WorkDone int32

// work done
const (
	FeesOnly WorkDone = iota
	UserTransaction
)

func (w WorkDone) String() string {
	if w == UserTransaction {
		return "USER_TRANSACTION"
	}
	return "FEES_ONLY"
}

// DuplicateStatus whether a user transaction was already handled by another node
type DuplicateStatus int32

// duplicate status
const (
	NoDuplicate DuplicateStatus = iota
	Duplicate
)

// DuplicateCheck result of looking up a transaction id in the record cache
type DuplicateCheck int32

// duplicate check results
const (
	NoDuplicateFound DuplicateCheck = iota
	SameNodeDuplicate
	OtherNodeDuplicate
)

// PreHandleStatus outcome of the pre-handle workflow
type PreHandleStatus int32

// pre-handle status
const (
	SoFarSoGood PreHandleStatus = iota
	NodeDueDiligenceFailure
	PreHandleFailure
	UnknownFailure
)

// SystemPrivilege result of checking privileged authorization
type SystemPrivilege int32

// system privileges
const (
	PrivilegeUnnecessary SystemPrivilege = iota
	PrivilegeAuthorized
	PrivilegeUnauthorized
	PrivilegeImpermissible
)

// StreamMode which record builders are produced for each dispatch
type StreamMode string

// stream modes
const (
	StreamRecords StreamMode = "RECORDS"
	StreamBlocks  StreamMode = "BLOCKS"
	StreamBoth    StreamMode = "BOTH"
)

// FreezeType kind of freeze transaction
type FreezeType int32

// freeze types
const (
	FreezeUnknown FreezeType = iota
	FreezeOnly
	PrepareUpgrade
	FreezeUpgrade
	FreezeAbort
	TelemetryUpgrade
)

// service names used as the first level of the state keyspace
const (
	TokenService    = "TokenService"
	FileService     = "FileService"
	ScheduleService = "ScheduleService"
	ThrottleService = "CongestionThrottleService"
	PlatformService = "PlatformStateService"
	RecordService   = "RecordCache"
)

// state keys inside services
const (
	StateAccounts         = "ACCOUNTS"
	StateAliases          = "ALIASES"
	StateFiles            = "FILES"
	StateSchedules        = "SCHEDULES"
	StateThrottleUsage    = "THROTTLE_USAGE_SNAPSHOTS"
	StateCongestionStarts = "CONGESTION_LEVEL_STARTS"
	StatePlatformState    = "PLATFORM_STATE"
	StateEntityID         = "ENTITY_ID"
)
