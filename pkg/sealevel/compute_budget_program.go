package sealevel

import (
	"github.com/Overclock-Validator/rewardpool/pkg/base58"
	"github.com/Overclock-Validator/rewardpool/pkg/safemath"
	bin "github.com/gagliardetto/binary"
)

const ComputeBudgetProgramAddrStr = "ComputeBudget111111111111111111111111111111"

var ComputeBudgetProgramAddr = base58.MustDecodeFromString(ComputeBudgetProgramAddrStr)

const (
	DefaultInstructionComputeUnitLimit = 200_000
	MaxComputeUnitLimit                = 1_400_000
)

const ComputeBudgetInstrTypeSetComputeUnitLimit = 2

type ComputeBudgetInstrSetComputeUnitLimit struct {
	ComputeUnitLimit uint32
}

func (setComputeUnitLimit *ComputeBudgetInstrSetComputeUnitLimit) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	setComputeUnitLimit.ComputeUnitLimit, err = decoder.ReadUint32(bin.LE)
	return err
}

func (setComputeUnitLimit *ComputeBudgetInstrSetComputeUnitLimit) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint8(ComputeBudgetInstrTypeSetComputeUnitLimit)
	if err != nil {
		return err
	}
	return encoder.WriteUint32(setComputeUnitLimit.ComputeUnitLimit, bin.LE)
}

func NewSetComputeUnitLimitInstruction(limit uint32) *Instruction {
	data := encodeInstr(&ComputeBudgetInstrSetComputeUnitLimit{ComputeUnitLimit: limit})
	return &Instruction{Accounts: []AccountMeta{}, Data: data, ProgramId: ComputeBudgetProgramAddr}
}

// ComputeUnitLimit works out the budget of a transaction before any of its
// instructions run. Without a request every other instruction is granted the
// default per-instruction limit. On error, the index of the offending
// instruction is returned alongside.
func ComputeUnitLimit(instrs []Instruction) (uint64, int, error) {
	var numNonComputeBudgetInstrs uint64
	var requested uint32
	var hasRequested bool

	for idx, instr := range instrs {
		if instr.ProgramId != ComputeBudgetProgramAddr {
			numNonComputeBudgetInstrs++
			continue
		}

		decoder := bin.NewBinDecoder(instr.Data)
		instrType, err := decoder.ReadUint8()
		if err != nil || instrType != ComputeBudgetInstrTypeSetComputeUnitLimit {
			return 0, idx, InstrErrInvalidInstructionData
		}

		var setComputeUnitLimit ComputeBudgetInstrSetComputeUnitLimit
		if err = setComputeUnitLimit.UnmarshalWithDecoder(decoder); err != nil {
			return 0, idx, InstrErrInvalidInstructionData
		}
		if hasRequested {
			return 0, idx, InstrErrInvalidInstructionData
		}
		hasRequested = true
		requested = setComputeUnitLimit.ComputeUnitLimit
	}

	if hasRequested {
		return min(uint64(requested), MaxComputeUnitLimit), -1, nil
	}
	limit := safemath.SaturatingMulU64(numNonComputeBudgetInstrs, DefaultInstructionComputeUnitLimit)
	return min(limit, MaxComputeUnitLimit), -1, nil
}

// ComputeBudgetExecute only charges for itself; its request was applied when
// the transaction's budget was set up.
func ComputeBudgetExecute(execCtx *ExecutionCtx) error {
	return consumeComputeUnits(execCtx, CUComputeBudgetProgramDefaultComputeUnits)
}
