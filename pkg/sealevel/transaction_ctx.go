package sealevel

import (
	"github.com/gagliardetto/solana-go"
)

const MaxReturnDataLen = 1024

type TxReturnData struct {
	ProgramId solana.PublicKey
	Data      []byte
}

type TransactionCtx struct {
	Accounts                    TransactionAccounts
	InstructionTrace            []InstructionCtx
	instructionStack            []uint64
	InstructionCtxStackCapacity uint64
	InstructionTraceCapacity    uint64
	ReturnData                  TxReturnData
}

func NewTransactionCtx(txAccts TransactionAccounts, instrCtxStackCapacity uint64, instrTraceCapacity uint64) *TransactionCtx {
	return &TransactionCtx{
		Accounts:                    txAccts,
		InstructionTrace:            []InstructionCtx{{}},
		InstructionCtxStackCapacity: instrCtxStackCapacity,
		InstructionTraceCapacity:    instrTraceCapacity,
	}
}

func (txCtx *TransactionCtx) KeyOfAccountAtIndex(index uint64) (solana.PublicKey, error) {
	acct, err := txCtx.Accounts.GetAccount(index)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return acct.Key, nil
}

func (txCtx *TransactionCtx) IndexOfAccount(pubkey solana.PublicKey) (uint64, error) {
	for idx, acct := range txCtx.Accounts.Accounts {
		if acct.Key == pubkey {
			return uint64(idx), nil
		}
	}
	return 0, InstrErrMissingAccount
}

func (txCtx *TransactionCtx) InstructionTraceLength() uint64 {
	return uint64(len(txCtx.InstructionTrace) - 1)
}

func (txCtx *TransactionCtx) InstructionCtxStackHeight() uint64 {
	return uint64(len(txCtx.instructionStack))
}

func (txCtx *TransactionCtx) InstructionCtxAtIndexInTrace(idx uint64) (*InstructionCtx, error) {
	if idx >= uint64(len(txCtx.InstructionTrace)) {
		return nil, InstrErrCallDepth
	}
	return &txCtx.InstructionTrace[idx], nil
}

// NextInstructionCtx returns the trace slot that the next pushed instruction
// will occupy.
func (txCtx *TransactionCtx) NextInstructionCtx() (*InstructionCtx, error) {
	return txCtx.InstructionCtxAtIndexInTrace(txCtx.InstructionTraceLength())
}

func (txCtx *TransactionCtx) CurrentInstructionCtx() (*InstructionCtx, error) {
	height := txCtx.InstructionCtxStackHeight()
	if height == 0 {
		return nil, InstrErrCallDepth
	}
	return txCtx.InstructionCtxAtIndexInTrace(txCtx.instructionStack[height-1])
}

func (txCtx *TransactionCtx) Push() error {
	if txCtx.InstructionCtxStackHeight() >= txCtx.InstructionCtxStackCapacity {
		return InstrErrCallDepth
	}

	idx := txCtx.InstructionTraceLength()
	if idx >= txCtx.InstructionTraceCapacity {
		return InstrErrMaxInstructionTraceLength
	}

	instrCtx, err := txCtx.InstructionCtxAtIndexInTrace(idx)
	if err != nil {
		return err
	}

	lamports, err := instrCtx.lamportsSum(txCtx)
	if err != nil {
		return err
	}
	instrCtx.lamportsBefore = lamports

	txCtx.instructionStack = append(txCtx.instructionStack, idx)
	txCtx.InstructionTrace = append(txCtx.InstructionTrace, InstructionCtx{})
	return nil
}

func (txCtx *TransactionCtx) Pop() error {
	height := txCtx.InstructionCtxStackHeight()
	if height == 0 {
		return InstrErrCallDepth
	}

	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}
	txCtx.instructionStack = txCtx.instructionStack[:height-1]

	if txCtx.Accounts.anyBorrowed() {
		return InstrErrAccountBorrowOutstanding
	}

	lamports, err := instrCtx.lamportsSum(txCtx)
	if err != nil {
		return err
	}
	if lamports != instrCtx.lamportsBefore {
		return InstrErrUnbalancedInstruction
	}

	return nil
}

func (txCtx *TransactionCtx) SetReturnData(programId solana.PublicKey, data []byte) error {
	if len(data) > MaxReturnDataLen {
		return InstrErrInvalidInstructionData
	}
	txCtx.ReturnData = TxReturnData{ProgramId: programId, Data: data}
	return nil
}

func (txCtx *TransactionCtx) GetReturnData() (solana.PublicKey, []byte) {
	return txCtx.ReturnData.ProgramId, txCtx.ReturnData.Data
}
