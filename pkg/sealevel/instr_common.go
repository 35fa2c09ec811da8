package sealevel

import (
	"errors"

	"github.com/Overclock-Validator/rewardpool/pkg/cu"
)

// InstructionAcctsFromAccountMetas resolves account metas against the
// transaction's account list. A repeated key points its IndexInCallee at the
// first occurrence.
func InstructionAcctsFromAccountMetas(instrAcctMetas []AccountMeta, txAccounts *TransactionAccounts) ([]InstructionAccount, error) {
	instrAccts := make([]InstructionAccount, 0, len(instrAcctMetas))

	for instrAcctIdx, accountMeta := range instrAcctMetas {
		idxInTx := -1
		for pos, acct := range txAccounts.Accounts {
			if acct.Key == accountMeta.Pubkey {
				idxInTx = pos
				break
			}
		}
		if idxInTx == -1 {
			return nil, InstrErrMissingAccount
		}

		idxInCallee := instrAcctIdx
		for pos, instrAcct := range instrAccts {
			if instrAcct.IndexInTransaction == uint64(idxInTx) {
				idxInCallee = pos
				break
			}
		}

		instrAccts = append(instrAccts, InstructionAccount{
			IndexInTransaction: uint64(idxInTx),
			IndexInCaller:      uint64(idxInTx),
			IndexInCallee:      uint64(idxInCallee),
			IsSigner:           accountMeta.IsSigner,
			IsWritable:         accountMeta.IsWritable,
		})
	}

	return instrAccts, nil
}

func translateComputeErr(err error) error {
	if errors.Is(err, cu.ErrComputeExceeded) {
		return InstrErrComputationalBudgetExceeded
	}
	return err
}

func consumeComputeUnits(execCtx *ExecutionCtx, units uint64) error {
	return translateComputeErr(execCtx.ComputeMeter.Consume(units))
}

func consumeComputeUnitsPer(execCtx *ExecutionCtx, count uint64, unitCost uint64) error {
	return translateComputeErr(execCtx.ComputeMeter.ConsumePer(count, unitCost))
}
