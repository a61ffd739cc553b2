// Package mpoolerrors enumerates the admission-pipeline failure codes the
// mempool core can return, mirroring the numbered error taxonomy a coin
// spend's validation can fail with.
package mpoolerrors

import (
	"errors"
	"fmt"
)

// Code is a numbered admission-pipeline failure reason. The numbering is
// not meaningful on its own; it exists so callers can log and compare a
// stable identifier instead of a free-form string.
type Code int

const (
	Unknown                      Code = 1
	DuplicateOutput               Code = 4
	DoubleSpend                   Code = 5
	UnknownUnspent                Code = 6
	BadAggregateSignature         Code = 7
	WrongPuzzleHash               Code = 8
	AssertHeightRelativeFailed    Code = 13
	AssertHeightAbsoluteFailed    Code = 14
	AssertSecondsAbsoluteFailed   Code = 15
	CoinAmountExceedsMaximum      Code = 16
	InvalidFeeLowFee              Code = 18
	MempoolConflict               Code = 19
	MintingCoin                   Code = 20
	BlockCostExceedsMax           Code = 23
	ReserveFeeConditionFailed     Code = 48
	MempoolNotInitialized         Code = 94
	AssertSecondsRelativeFailed   Code = 105
	AlreadyIncludingTransaction   Code = 109
	InvalidFeeTooCloseToZero      Code = 123
	CoinAmountNegative            Code = 124
	InvalidSpendBundle            Code = 126
	AssertBeforeSecondsAbsoluteFailed Code = 128
	AssertBeforeSecondsRelativeFailed Code = 129
	AssertBeforeHeightAbsoluteFailed  Code = 130
	AssertBeforeHeightRelativeFailed  Code = 131
	AssertMyBirthSecondsFailed        Code = 138
	AssertMyBirthHeightFailed         Code = 139
)

var names = map[Code]string{
	Unknown:                           "UNKNOWN",
	DuplicateOutput:                   "DUPLICATE_OUTPUT",
	DoubleSpend:                       "DOUBLE_SPEND",
	UnknownUnspent:                    "UNKNOWN_UNSPENT",
	BadAggregateSignature:             "BAD_AGGREGATE_SIGNATURE",
	WrongPuzzleHash:                   "WRONG_PUZZLE_HASH",
	AssertHeightRelativeFailed:        "ASSERT_HEIGHT_RELATIVE_FAILED",
	AssertHeightAbsoluteFailed:        "ASSERT_HEIGHT_ABSOLUTE_FAILED",
	AssertSecondsAbsoluteFailed:       "ASSERT_SECONDS_ABSOLUTE_FAILED",
	CoinAmountExceedsMaximum:          "COIN_AMOUNT_EXCEEDS_MAXIMUM",
	InvalidFeeLowFee:                  "INVALID_FEE_LOW_FEE",
	MempoolConflict:                   "MEMPOOL_CONFLICT",
	MintingCoin:                       "MINTING_COIN",
	BlockCostExceedsMax:               "BLOCK_COST_EXCEEDS_MAX",
	ReserveFeeConditionFailed:         "RESERVE_FEE_CONDITION_FAILED",
	MempoolNotInitialized:             "MEMPOOL_NOT_INITIALIZED",
	AssertSecondsRelativeFailed:       "ASSERT_SECONDS_RELATIVE_FAILED",
	AlreadyIncludingTransaction:       "ALREADY_INCLUDING_TRANSACTION",
	InvalidFeeTooCloseToZero:          "INVALID_FEE_TOO_CLOSE_TO_ZERO",
	CoinAmountNegative:                "COIN_AMOUNT_NEGATIVE",
	InvalidSpendBundle:                "INVALID_SPEND_BUNDLE",
	AssertBeforeSecondsAbsoluteFailed: "ASSERT_BEFORE_SECONDS_ABSOLUTE_FAILED",
	AssertBeforeSecondsRelativeFailed: "ASSERT_BEFORE_SECONDS_RELATIVE_FAILED",
	AssertBeforeHeightAbsoluteFailed:  "ASSERT_BEFORE_HEIGHT_ABSOLUTE_FAILED",
	AssertBeforeHeightRelativeFailed:  "ASSERT_BEFORE_HEIGHT_RELATIVE_FAILED",
	AssertMyBirthSecondsFailed:        "ASSERT_MY_BIRTH_SECONDS_FAILED",
	AssertMyBirthHeightFailed:         "ASSERT_MY_BIRTH_HEIGHT_FAILED",
}

// String returns the code's symbolic name, e.g. "DOUBLE_SPEND".
func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("CODE_%d", int(c))
}

// Error wraps a Code as a Go error, optionally carrying a human-readable
// detail message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates an *Error for the given code with no extra detail.
func New(code Code) *Error {
	return &Error{Code: code}
}

// Newf creates an *Error for the given code with a formatted detail message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// As extracts the Code from err if it (or something it wraps) is an *Error.
func As(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// recoverableTimeLockCodes are the time-lock failures that leave a bundle
// eligible to retry from the pending cache rather than being dropped: a
// height floor that hasn't been reached yet, either absolute or relative to
// the spent coin's confirmation height. The seconds-based floors and every
// "before" ceiling are treated as fatal for this admission attempt.
var recoverableTimeLockCodes = map[Code]bool{
	AssertHeightRelativeFailed: true,
	AssertHeightAbsoluteFailed: true,
}

// IsRecoverableTimeLock reports whether a time-lock failure code should
// land its candidate in the pending cache instead of being dropped outright.
func IsRecoverableTimeLock(code Code) bool {
	return recoverableTimeLockCodes[code]
}
