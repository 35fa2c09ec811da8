package sealevel

import "errors"

// instruction errors
var (
	InstrErrInvalidArgument             = errors.New("InstrErrInvalidArgument")
	InstrErrInvalidInstructionData      = errors.New("InstrErrInvalidInstructionData")
	InstrErrInvalidAccountData          = errors.New("InstrErrInvalidAccountData")
	InstrErrInsufficientFunds           = errors.New("InstrErrInsufficientFunds")
	InstrErrMissingRequiredSignature    = errors.New("InstrErrMissingRequiredSignature")
	InstrErrAccountAlreadyInitialized   = errors.New("InstrErrAccountAlreadyInitialized")
	InstrErrUninitializedAccount        = errors.New("InstrErrUninitializedAccount")
	InstrErrUnbalancedInstruction       = errors.New("InstrErrUnbalancedInstruction")
	InstrErrExternalAccountLamportSpend = errors.New("InstrErrExternalAccountLamportSpend")
	InstrErrExternalAccountDataModified = errors.New("InstrErrExternalAccountDataModified")
	InstrErrReadonlyLamportChange       = errors.New("InstrErrReadonlyLamportChange")
	InstrErrReadonlyDataModified        = errors.New("InstrErrReadonlyDataModified")
	InstrErrNotEnoughAccountKeys        = errors.New("InstrErrNotEnoughAccountKeys")
	InstrErrAccountDataSizeChanged      = errors.New("InstrErrAccountDataSizeChanged")
	InstrErrAccountNotExecutable        = errors.New("InstrErrAccountNotExecutable")
	InstrErrAccountBorrowOutstanding    = errors.New("InstrErrAccountBorrowOutstanding")
	InstrErrExecutableDataModified      = errors.New("InstrErrExecutableDataModified")
	InstrErrExecutableLamportChange     = errors.New("InstrErrExecutableLamportChange")
	InstrErrUnsupportedProgramId        = errors.New("InstrErrUnsupportedProgramId")
	InstrErrCallDepth                   = errors.New("InstrErrCallDepth")
	InstrErrMissingAccount              = errors.New("InstrErrMissingAccount")
	InstrErrInvalidSeeds                = errors.New("InstrErrInvalidSeeds")
	InstrErrComputationalBudgetExceeded = errors.New("InstrErrComputationalBudgetExceeded")
	InstrErrInvalidAccountOwner         = errors.New("InstrErrInvalidAccountOwner")
	InstrErrArithmeticOverflow          = errors.New("InstrErrArithmeticOverflow")
	InstrErrMaxInstructionTraceLength   = errors.New("InstrErrMaxInstructionTraceLengthExceeded")
)

// reward pool program errors
var (
	RewardPoolErrUnauthorized = errors.New("RewardPoolErrUnauthorized")
)

// system program errors
var (
	SystemProgErrResultWithNegativeLamports = errors.New("SystemProgErrResultWithNegativeLamports")
)

// instruction errors - Solana numerical error codes
const (
	InstrErrCodeSuccess                     = 0
	InstrErrCodeGenericError                = 1
	InstrErrCodeInvalidArgument             = 2
	InstrErrCodeInvalidInstructionData      = 3
	InstrErrCodeInvalidAccountData          = 4
	InstrErrCodeInsufficientFunds           = 6
	InstrErrCodeMissingRequiredSignature    = 8
	InstrErrCodeAccountAlreadyInitialized   = 9
	InstrErrCodeUninitializedAccount        = 10
	InstrErrCodeUnbalancedInstruction       = 11
	InstrErrCodeExternalAccountLamportSpend = 13
	InstrErrCodeExternalAccountDataModified = 14
	InstrErrCodeReadonlyLamportChange       = 15
	InstrErrCodeReadonlyDataModified        = 16
	InstrErrCodeNotEnoughAccountKeys        = 20
	InstrErrCodeAccountDataSizeChanged      = 21
	InstrErrCodeAccountNotExecutable        = 22
	InstrErrCodeAccountBorrowOutstanding    = 24
	InstrErrCodeCustom                      = 26
	InstrErrCodeExecutableDataModified      = 28
	InstrErrCodeExecutableLamportChange     = 29
	InstrErrCodeUnsupportedProgramId        = 31
	InstrErrCodeCallDepth                   = 32
	InstrErrCodeMissingAccount              = 33
	InstrErrCodeInvalidSeeds                = 36
	InstrErrCodeComputationalBudgetExceeded = 38
	InstrErrCodeInvalidAccountOwner         = 47
	InstrErrCodeArithmeticOverflow          = 48
	InstrErrCodeMaxInstructionTraceLength   = 53
)

// custom program error codes, reported alongside InstrErrCodeCustom
const (
	RewardPoolErrCodeUnauthorized               = 0
	SystemProgErrCodeResultWithNegativeLamports = 1
)

// TranslateErrToInstrErrCode maps an instruction error to its numeric code.
// Errors without a code of their own map to InstrErrCodeGenericError.
func TranslateErrToInstrErrCode(err error) int {
	var errorCode int
	switch err {
	case nil:
		errorCode = InstrErrCodeSuccess
	case InstrErrInvalidArgument:
		errorCode = InstrErrCodeInvalidArgument
	case InstrErrInvalidInstructionData:
		errorCode = InstrErrCodeInvalidInstructionData
	case InstrErrInvalidAccountData:
		errorCode = InstrErrCodeInvalidAccountData
	case InstrErrInsufficientFunds:
		errorCode = InstrErrCodeInsufficientFunds
	case InstrErrMissingRequiredSignature:
		errorCode = InstrErrCodeMissingRequiredSignature
	case InstrErrAccountAlreadyInitialized:
		errorCode = InstrErrCodeAccountAlreadyInitialized
	case InstrErrUninitializedAccount:
		errorCode = InstrErrCodeUninitializedAccount
	case InstrErrUnbalancedInstruction:
		errorCode = InstrErrCodeUnbalancedInstruction
	case InstrErrExternalAccountLamportSpend:
		errorCode = InstrErrCodeExternalAccountLamportSpend
	case InstrErrExternalAccountDataModified:
		errorCode = InstrErrCodeExternalAccountDataModified
	case InstrErrReadonlyLamportChange:
		errorCode = InstrErrCodeReadonlyLamportChange
	case InstrErrReadonlyDataModified:
		errorCode = InstrErrCodeReadonlyDataModified
	case InstrErrNotEnoughAccountKeys:
		errorCode = InstrErrCodeNotEnoughAccountKeys
	case InstrErrAccountDataSizeChanged:
		errorCode = InstrErrCodeAccountDataSizeChanged
	case InstrErrAccountNotExecutable:
		errorCode = InstrErrCodeAccountNotExecutable
	case InstrErrAccountBorrowOutstanding:
		errorCode = InstrErrCodeAccountBorrowOutstanding
	case InstrErrExecutableDataModified:
		errorCode = InstrErrCodeExecutableDataModified
	case InstrErrExecutableLamportChange:
		errorCode = InstrErrCodeExecutableLamportChange
	case InstrErrUnsupportedProgramId:
		errorCode = InstrErrCodeUnsupportedProgramId
	case InstrErrCallDepth:
		errorCode = InstrErrCodeCallDepth
	case InstrErrMissingAccount:
		errorCode = InstrErrCodeMissingAccount
	case InstrErrInvalidSeeds:
		errorCode = InstrErrCodeInvalidSeeds
	case InstrErrComputationalBudgetExceeded:
		errorCode = InstrErrCodeComputationalBudgetExceeded
	case InstrErrInvalidAccountOwner:
		errorCode = InstrErrCodeInvalidAccountOwner
	case InstrErrArithmeticOverflow:
		errorCode = InstrErrCodeArithmeticOverflow
	case InstrErrMaxInstructionTraceLength:
		errorCode = InstrErrCodeMaxInstructionTraceLength
	case RewardPoolErrUnauthorized, SystemProgErrResultWithNegativeLamports:
		errorCode = InstrErrCodeCustom
	default:
		errorCode = InstrErrCodeGenericError
	}
	return errorCode
}

// CustomErrCode returns the program-specific code for custom program errors.
func CustomErrCode(err error) (uint32, bool) {
	switch err {
	case RewardPoolErrUnauthorized:
		return RewardPoolErrCodeUnauthorized, true
	case SystemProgErrResultWithNegativeLamports:
		return SystemProgErrCodeResultWithNegativeLamports, true
	}
	return 0, false
}
