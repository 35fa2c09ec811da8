package sealevel

import (
	"github.com/gagliardetto/solana-go"
)

type Instruction struct {
	Accounts  []AccountMeta
	Data      []byte
	ProgramId solana.PublicKey
}

type AccountMeta struct {
	Pubkey     solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

type InstructionAccount struct {
	IndexInTransaction uint64
	IndexInCaller      uint64
	IndexInCallee      uint64
	IsSigner           bool
	IsWritable         bool
}

// SolanaInstruction converts the instruction into the solana-go form used to
// compile transaction messages.
func (instr *Instruction) SolanaInstruction() solana.Instruction {
	metas := make(solana.AccountMetaSlice, 0, len(instr.Accounts))
	for _, am := range instr.Accounts {
		metas = append(metas, solana.NewAccountMeta(am.Pubkey, am.IsWritable, am.IsSigner))
	}
	return solana.NewInstruction(instr.ProgramId, metas, instr.Data)
}
