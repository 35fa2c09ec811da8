package sealevel

import (
	"github.com/Overclock-Validator/rewardpool/pkg/base58"
)

const NativeLoaderAddrStr = "NativeLoader1111111111111111111111111111111"

var NativeLoaderAddr = base58.MustDecodeFromString(NativeLoaderAddrStr)

const SystemProgramAddrStr = "11111111111111111111111111111111"

var SystemProgramAddr = base58.MustDecodeFromString(SystemProgramAddrStr)

const RewardPoolProgramAddrStr = "RewardPoo1111111111111111111111111111111111"

var RewardPoolProgramAddr = base58.MustDecodeFromString(RewardPoolProgramAddrStr)

func resolveNativeProgramById(programId [32]byte) (func(ctx *ExecutionCtx) error, error) {
	switch programId {
	case SystemProgramAddr:
		return SystemProgramExecute, nil
	case RewardPoolProgramAddr:
		return RewardPoolProgramExecute, nil
	case ComputeBudgetProgramAddr:
		return ComputeBudgetExecute, nil
	}

	return nil, InstrErrUnsupportedProgramId
}

// IsNativeProgram reports whether the runtime has a builtin for the address.
func IsNativeProgram(programId [32]byte) bool {
	_, err := resolveNativeProgramById(programId)
	return err == nil
}
