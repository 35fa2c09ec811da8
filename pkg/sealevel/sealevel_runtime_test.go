package sealevel

import (
	"errors"
	"testing"

	"github.com/Overclock-Validator/rewardpool/pkg/accounts"
	"github.com/Overclock-Validator/rewardpool/pkg/cu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pushTestInstruction(t *testing.T, txCtx *TransactionCtx, metas []AccountMeta) *InstructionCtx {
	instrCtx, err := txCtx.NextInstructionCtx()
	require.NoError(t, err)
	instrCtx.Configure([]uint64{0}, instructionAcctsFromAccountMetas(t, metas, txCtx.Accounts), nil)
	require.NoError(t, txCtx.Push())

	current, err := txCtx.CurrentInstructionCtx()
	require.NoError(t, err)
	return current
}

func TestRuntime_BorrowOutstanding(t *testing.T) {
	wallet := walletAcct(newTestPubkey(t), 100)
	txCtx := NewTestTransactionCtx(*NewTransactionAccounts([]accounts.Account{systemProgramAcct(), wallet}), 5, 64)
	instrCtx := pushTestInstruction(t, txCtx, []AccountMeta{{Pubkey: wallet.Key, IsWritable: true}})

	borrowed, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	require.NoError(t, err)

	_, err = instrCtx.BorrowInstructionAccount(txCtx, 0)
	assert.Equal(t, InstrErrAccountBorrowOutstanding, err)

	// the instruction cannot complete while the account is held
	assert.Equal(t, InstrErrAccountBorrowOutstanding, txCtx.Pop())
	borrowed.Drop()
}

func TestRuntime_UnbalancedInstruction(t *testing.T) {
	a := walletAcct(newTestPubkey(t), 100)
	b := walletAcct(newTestPubkey(t), 100)
	txCtx := NewTestTransactionCtx(*NewTransactionAccounts([]accounts.Account{systemProgramAcct(), a, b}), 5, 64)

	pushTestInstruction(t, txCtx, []AccountMeta{{Pubkey: a.Key, IsWritable: true}, {Pubkey: b.Key, IsWritable: true}})
	txCtx.Accounts.Accounts[1].Lamports -= 10
	txCtx.Accounts.Accounts[2].Lamports += 10
	assert.NoError(t, txCtx.Pop())

	pushTestInstruction(t, txCtx, []AccountMeta{{Pubkey: a.Key, IsWritable: true}, {Pubkey: b.Key, IsWritable: true}})
	txCtx.Accounts.Accounts[2].Lamports += 1
	assert.Equal(t, InstrErrUnbalancedInstruction, txCtx.Pop())
}

func TestRuntime_DuplicateAccountsCountedOnce(t *testing.T) {
	a := walletAcct(newTestPubkey(t), 100)
	txCtx := NewTestTransactionCtx(*NewTransactionAccounts([]accounts.Account{systemProgramAcct(), a}), 5, 64)

	instrCtx := pushTestInstruction(t, txCtx, []AccountMeta{{Pubkey: a.Key, IsWritable: true}, {Pubkey: a.Key, IsWritable: true}})
	idx0, err := instrCtx.IndexOfInstructionAccountInTransaction(0)
	require.NoError(t, err)
	idx1, err := instrCtx.IndexOfInstructionAccountInTransaction(1)
	require.NoError(t, err)
	assert.Equal(t, idx0, idx1)
	assert.Equal(t, uint64(0), instrCtx.InstructionAccounts[1].IndexInCallee)

	assert.NoError(t, txCtx.Pop())
}

func TestRuntime_ComputeBudgetExceeded(t *testing.T) {
	from := walletAcct(newTestPubkey(t), 100)
	to := walletAcct(newTestPubkey(t), 0)
	rt := newTestRuntime(t, []accounts.Account{systemProgramAcct(), from, to}, nil)
	rt.execCtx.ComputeMeter = cu.NewComputeMeter(CUSystemProgramDefaultComputeUnits - 1)

	err := rt.process(NewTransferInstruction(from.Key, to.Key, 10))
	assert.Equal(t, InstrErrComputationalBudgetExceeded, err)
	assert.Equal(t, uint64(100), rt.account(from.Key).Lamports)
}

func TestRuntime_ProgramAccountChecks(t *testing.T) {
	wallet := walletAcct(newTestPubkey(t), 100)

	notBuiltin := rewardPoolProgramAcct()
	notBuiltin.Owner = SystemProgramAddr
	rt := newTestRuntime(t, []accounts.Account{notBuiltin, wallet}, nil)
	assert.Equal(t, InstrErrUnsupportedProgramId, rt.process(NewSyncPoolInstruction(wallet.Key)))

	notExecutable := rewardPoolProgramAcct()
	notExecutable.Executable = false
	rt = newTestRuntime(t, []accounts.Account{notExecutable, wallet}, nil)
	assert.Equal(t, InstrErrAccountNotExecutable, rt.process(NewSyncPoolInstruction(wallet.Key)))

	unknown := walletAcct(newTestPubkey(t), 0)
	unknown.Owner = NativeLoaderAddr
	unknown.Executable = true
	rt = newTestRuntime(t, []accounts.Account{unknown, wallet}, nil)
	assert.Equal(t, InstrErrUnsupportedProgramId, rt.process(&Instruction{ProgramId: unknown.Key, Data: []byte{0}}))
}

func TestRuntime_UnknownInstructionAccount(t *testing.T) {
	txAccts := NewTransactionAccounts([]accounts.Account{systemProgramAcct()})
	_, err := InstructionAcctsFromAccountMetas([]AccountMeta{{Pubkey: newTestPubkey(t)}}, txAccts)
	assert.Equal(t, InstrErrMissingAccount, err)
}

func TestRuntime_CallDepth(t *testing.T) {
	wallet := walletAcct(newTestPubkey(t), 100)
	txCtx := NewTestTransactionCtx(*NewTransactionAccounts([]accounts.Account{systemProgramAcct(), wallet}), 1, 64)

	pushTestInstruction(t, txCtx, nil)
	instrCtx, err := txCtx.NextInstructionCtx()
	require.NoError(t, err)
	instrCtx.Configure([]uint64{0}, nil, nil)
	assert.Equal(t, InstrErrCallDepth, txCtx.Push())
}

func TestRuntime_ReturnDataLimit(t *testing.T) {
	txCtx := NewTestTransactionCtx(*NewTransactionAccounts(nil), 5, 64)
	assert.NoError(t, txCtx.SetReturnData(RewardPoolProgramAddr, make([]byte, MaxReturnDataLen)))
	assert.Equal(t, InstrErrInvalidInstructionData, txCtx.SetReturnData(RewardPoolProgramAddr, make([]byte, MaxReturnDataLen+1)))
}

func TestTranslateErrToInstrErrCode(t *testing.T) {
	assert.Equal(t, InstrErrCodeSuccess, TranslateErrToInstrErrCode(nil))
	assert.Equal(t, InstrErrCodeInsufficientFunds, TranslateErrToInstrErrCode(InstrErrInsufficientFunds))
	assert.Equal(t, InstrErrCodeCustom, TranslateErrToInstrErrCode(RewardPoolErrUnauthorized))
	assert.Equal(t, InstrErrCodeGenericError, TranslateErrToInstrErrCode(errors.New("disk full")))
}
