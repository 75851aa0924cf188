// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

// Status final status of a transaction as written to its record
type Status int32

// statuses
const (
	StatusOK Status = iota
	StatusSuccess
	StatusFailInvalid
	StatusInvalidTransaction
	StatusPayerAccountNotFound
	StatusPayerAccountDeleted
	StatusInvalidNodeAccount
	StatusTransactionExpired
	StatusInvalidTransactionStart
	StatusInvalidTransactionDuration
	StatusInvalidSignature
	StatusInvalidPayerSignature
	StatusInsufficientTxFee
	StatusInsufficientPayerBalance
	StatusInsufficientAccountBalance
	StatusDuplicateTransaction
	StatusBusy
	StatusNotSupported
	StatusUnauthorized
	StatusAuthorizationFailed
	StatusEntityNotAllowedToDelete
	StatusConsensusGasExhausted
	StatusThrottledAtConsensus
	StatusContractRevertExecuted
	StatusInsufficientGas
	StatusMaxChildRecordsExceeded
	StatusRevertedSuccess
	StatusNoSchedulingAllowedAfterScheduledRecursion
	StatusRecursiveSchedulingLimitReached
	StatusInvalidAccountID
	StatusAccountDeleted
	StatusInvalidAccountAmounts
	StatusAccountRepeatedInAccountAmounts
	StatusInvalidFileID
	StatusInvalidScheduleID
	StatusScheduleAlreadyExecuted
	StatusInvalidFreezeTransactionBody
	StatusInvalidAliasKey
	StatusKeyRequired
	StatusInvalidContractID
	StatusFreezeStartTimeMustBeFuture
	StatusScheduledTransactionNotInWhitelist
)

var statusNames = map[Status]string{
	StatusOK:                                         "OK",
	StatusSuccess:                                    "SUCCESS",
	StatusFailInvalid:                                "FAIL_INVALID",
	StatusInvalidTransaction:                         "INVALID_TRANSACTION",
	StatusPayerAccountNotFound:                       "PAYER_ACCOUNT_NOT_FOUND",
	StatusPayerAccountDeleted:                        "PAYER_ACCOUNT_DELETED",
	StatusInvalidNodeAccount:                         "INVALID_NODE_ACCOUNT",
	StatusTransactionExpired:                         "TRANSACTION_EXPIRED",
	StatusInvalidTransactionStart:                    "INVALID_TRANSACTION_START",
	StatusInvalidTransactionDuration:                 "INVALID_TRANSACTION_DURATION",
	StatusInvalidSignature:                           "INVALID_SIGNATURE",
	StatusInvalidPayerSignature:                      "INVALID_PAYER_SIGNATURE",
	StatusInsufficientTxFee:                          "INSUFFICIENT_TX_FEE",
	StatusInsufficientPayerBalance:                   "INSUFFICIENT_PAYER_BALANCE",
	StatusInsufficientAccountBalance:                 "INSUFFICIENT_ACCOUNT_BALANCE",
	StatusDuplicateTransaction:                       "DUPLICATE_TRANSACTION",
	StatusBusy:                                       "BUSY",
	StatusNotSupported:                               "NOT_SUPPORTED",
	StatusUnauthorized:                               "UNAUTHORIZED",
	StatusAuthorizationFailed:                        "AUTHORIZATION_FAILED",
	StatusEntityNotAllowedToDelete:                   "ENTITY_NOT_ALLOWED_TO_DELETE",
	StatusConsensusGasExhausted:                      "CONSENSUS_GAS_EXHAUSTED",
	StatusThrottledAtConsensus:                       "THROTTLED_AT_CONSENSUS",
	StatusContractRevertExecuted:                     "CONTRACT_REVERT_EXECUTED",
	StatusInsufficientGas:                            "INSUFFICIENT_GAS",
	StatusMaxChildRecordsExceeded:                    "MAX_CHILD_RECORDS_EXCEEDED",
	StatusRevertedSuccess:                            "REVERTED_SUCCESS",
	StatusNoSchedulingAllowedAfterScheduledRecursion: "NO_SCHEDULING_ALLOWED_AFTER_SCHEDULED_RECURSION",
	StatusRecursiveSchedulingLimitReached:            "RECURSIVE_SCHEDULING_LIMIT_REACHED",
	StatusInvalidAccountID:                           "INVALID_ACCOUNT_ID",
	StatusAccountDeleted:                             "ACCOUNT_DELETED",
	StatusInvalidAccountAmounts:                      "INVALID_ACCOUNT_AMOUNTS",
	StatusAccountRepeatedInAccountAmounts:            "ACCOUNT_REPEATED_IN_ACCOUNT_AMOUNTS",
	StatusInvalidFileID:                              "INVALID_FILE_ID",
	StatusInvalidScheduleID:                          "INVALID_SCHEDULE_ID",
	StatusScheduleAlreadyExecuted:                    "SCHEDULE_ALREADY_EXECUTED",
	StatusInvalidFreezeTransactionBody:               "INVALID_FREEZE_TRANSACTION_BODY",
	StatusInvalidAliasKey:                            "INVALID_ALIAS_KEY",
	StatusKeyRequired:                                "KEY_REQUIRED",
	StatusInvalidContractID:                          "INVALID_CONTRACT_ID",
	StatusFreezeStartTimeMustBeFuture:                "FREEZE_START_TIME_MUST_BE_FUTURE",
	StatusScheduledTransactionNotInWhitelist:         "SCHEDULED_TRANSACTION_NOT_IN_WHITELIST",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsSuccess true for statuses that leave the state changes of a transaction in place
func (s Status) IsSuccess() bool {
	return s == StatusSuccess || s == StatusOK
}
