package sealevel

import (
	"github.com/Overclock-Validator/rewardpool/pkg/accounts"
	"github.com/Overclock-Validator/rewardpool/pkg/safemath"
	"github.com/gagliardetto/solana-go"
)

type BorrowedAccount struct {
	TxCtx              *TransactionCtx
	InstrCtx           *InstructionCtx
	IndexInTransaction uint64
	IndexInInstruction uint64
	Account            *accounts.Account
}

func (acct *BorrowedAccount) Drop() {
	acct.TxCtx.Accounts.unborrow(acct.IndexInTransaction)
}

func (acct *BorrowedAccount) Key() solana.PublicKey {
	return acct.Account.Key
}

func (acct *BorrowedAccount) Owner() solana.PublicKey {
	return acct.Account.Owner
}

func (acct *BorrowedAccount) Lamports() uint64 {
	return acct.Account.Lamports
}

func (acct *BorrowedAccount) Data() []byte {
	return acct.Account.Data
}

func (acct *BorrowedAccount) IsExecutable() bool {
	return acct.Account.Executable
}

func (acct *BorrowedAccount) Touch() error {
	return acct.TxCtx.Accounts.Touch(acct.IndexInTransaction)
}

func (acct *BorrowedAccount) instructionAccountIndex() (uint64, bool) {
	numProgramAccts := acct.InstrCtx.NumberOfProgramAccounts()
	if acct.IndexInInstruction < numProgramAccts {
		return 0, false
	}
	return acct.IndexInInstruction - numProgramAccts, true
}

func (acct *BorrowedAccount) IsSigner() bool {
	instrAcctIdx, ok := acct.instructionAccountIndex()
	if !ok {
		return false
	}
	isSigner, err := acct.InstrCtx.IsInstructionAccountSigner(instrAcctIdx)
	if err != nil {
		return false
	}
	return isSigner
}

func (acct *BorrowedAccount) IsWritable() bool {
	instrAcctIdx, ok := acct.instructionAccountIndex()
	if !ok {
		return false
	}
	writable, err := acct.InstrCtx.IsInstructionAccountWritable(instrAcctIdx)
	if err != nil {
		return false
	}
	return writable
}

func (acct *BorrowedAccount) IsOwnedByCurrentProgram() bool {
	lastProgramKey, err := acct.InstrCtx.LastProgramKey(acct.TxCtx)
	if err != nil {
		return false
	}
	return lastProgramKey == acct.Owner()
}

func (acct *BorrowedAccount) DataCanBeChanged() error {
	if acct.IsExecutable() {
		return InstrErrExecutableDataModified
	}
	if !acct.IsWritable() {
		return InstrErrReadonlyDataModified
	}
	if !acct.IsOwnedByCurrentProgram() {
		return InstrErrExternalAccountDataModified
	}
	return nil
}

// SetData overwrites the account data in place. Accounts are never resized.
func (acct *BorrowedAccount) SetData(data []byte) error {
	err := acct.DataCanBeChanged()
	if err != nil {
		return err
	}
	if len(data) != len(acct.Account.Data) {
		return InstrErrAccountDataSizeChanged
	}
	err = acct.Touch()
	if err != nil {
		return err
	}

	copy(acct.Account.Data, data)
	return nil
}

func (acct *BorrowedAccount) LamportsCanBeChanged(lamports uint64) error {
	if acct.Lamports() == lamports {
		return nil
	}
	if !acct.IsWritable() {
		return InstrErrReadonlyLamportChange
	}
	if acct.IsExecutable() {
		return InstrErrExecutableLamportChange
	}
	if lamports < acct.Lamports() && !acct.IsOwnedByCurrentProgram() {
		return InstrErrExternalAccountLamportSpend
	}
	return nil
}

func (acct *BorrowedAccount) SetLamports(lamports uint64) error {
	err := acct.LamportsCanBeChanged(lamports)
	if err != nil {
		return err
	}
	if acct.Lamports() == lamports {
		return nil
	}

	err = acct.Touch()
	if err != nil {
		return err
	}

	acct.Account.Lamports = lamports
	return nil
}

func (acct *BorrowedAccount) CheckedAddLamports(lamports uint64) error {
	newLamports, err := safemath.CheckedAddU64(acct.Lamports(), lamports)
	if err != nil {
		return InstrErrArithmeticOverflow
	}
	return acct.SetLamports(newLamports)
}

func (acct *BorrowedAccount) CheckedSubLamports(lamports uint64) error {
	newLamports, err := safemath.CheckedSubU64(acct.Lamports(), lamports)
	if err != nil {
		return InstrErrArithmeticOverflow
	}
	return acct.SetLamports(newLamports)
}
