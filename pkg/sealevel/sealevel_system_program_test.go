package sealevel

import (
	"testing"

	"github.com/Overclock-Validator/rewardpool/pkg/accounts"
	"github.com/Overclock-Validator/rewardpool/pkg/cu"
	"github.com/stretchr/testify/assert"
	"k8s.io/klog/v2"
)

func TestExecute_Tx_System_Program_Transfer_Success(t *testing.T) {

	// funding acct
	fundingPubkey := newTestPubkey(t)
	fundingAcct := accounts.Account{Key: fundingPubkey, Lamports: 10000, Data: make([]byte, 0), Owner: SystemProgramAddr, Executable: false, RentEpoch: 100}

	// recipient acct, owned by another program
	recipientPubkey := newTestPubkey(t)
	recipientAcct := accounts.Account{Key: recipientPubkey, Lamports: 50, Data: make([]byte, RewardPoolStateSize), Owner: RewardPoolProgramAddr, Executable: false, RentEpoch: 100}

	instr := NewTransferInstruction(fundingPubkey, recipientPubkey, 1234)

	transactionAccts := NewTransactionAccounts([]accounts.Account{systemProgramAcct(), fundingAcct, recipientAcct})
	instructionAccts := instructionAcctsFromAccountMetas(t, instr.Accounts, *transactionAccts)

	txCtx := NewTestTransactionCtx(*transactionAccts, 5, 64)
	execCtx := ExecutionCtx{TransactionContext: txCtx, ComputeMeter: cu.NewComputeMeter(10000000000)}

	klog.Infof("pubkey: %s, %s", fundingAcct.Key, recipientAcct.Key)
	err := execCtx.ProcessInstruction(instr.Data, instructionAccts, []uint64{0})
	assert.NoError(t, err)

	fundingAcctPost, err := txCtx.Accounts.GetAccount(1)
	assert.NoError(t, err)
	assert.Equal(t, fundingAcct.Lamports-1234, fundingAcctPost.Lamports)

	recipientAcctPost, err := txCtx.Accounts.GetAccount(2)
	assert.NoError(t, err)
	assert.Equal(t, recipientAcct.Lamports+1234, recipientAcctPost.Lamports)

	// both sides were written, the program account was not
	assert.False(t, txCtx.Accounts.IsTouched(0))
	assert.Len(t, txCtx.Accounts.TouchedAccounts(), 2)
	assert.Equal(t, uint64(CUSystemProgramDefaultComputeUnits), execCtx.ComputeMeter.Used())
}

func TestExecute_Tx_System_Program_Transfer_Failures(t *testing.T) {
	cases := []struct {
		name     string
		lamports uint64
		mutate   func(from *accounts.Account, instr *Instruction)
		err      error
	}{
		{"insufficient lamports", 10001, func(from *accounts.Account, instr *Instruction) {}, SystemProgErrResultWithNegativeLamports},
		{"from did not sign", 1, func(from *accounts.Account, instr *Instruction) { instr.Accounts[0].IsSigner = false }, InstrErrMissingRequiredSignature},
		{"from carries data", 1, func(from *accounts.Account, instr *Instruction) { from.Data = []byte{1} }, InstrErrInvalidArgument},
		{"from owned by another program", 1, func(from *accounts.Account, instr *Instruction) { from.Owner = RewardPoolProgramAddr }, InstrErrExternalAccountLamportSpend},
		{"recipient read-only", 1, func(from *accounts.Account, instr *Instruction) { instr.Accounts[1].IsWritable = false }, InstrErrReadonlyLamportChange},
		{"truncated data", 1, func(from *accounts.Account, instr *Instruction) { instr.Data = instr.Data[:6] }, InstrErrInvalidInstructionData},
		{"unsupported instruction", 1, func(from *accounts.Account, instr *Instruction) { instr.Data[0] = 9 }, InstrErrInvalidInstructionData},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			from := walletAcct(newTestPubkey(t), 10000)
			to := walletAcct(newTestPubkey(t), 0)
			instr := NewTransferInstruction(from.Key, to.Key, tc.lamports)
			tc.mutate(&from, instr)

			rt := newTestRuntime(t, []accounts.Account{systemProgramAcct(), from, to}, nil)
			assert.Equal(t, tc.err, rt.process(instr))
		})
	}
}

func TestExecute_Tx_System_Program_Transfer_ToSelf(t *testing.T) {
	wallet := walletAcct(newTestPubkey(t), 10000)
	rt := newTestRuntime(t, []accounts.Account{systemProgramAcct(), wallet}, nil)

	assert.NoError(t, rt.process(NewTransferInstruction(wallet.Key, wallet.Key, 700)))
	assert.Equal(t, uint64(10000), rt.account(wallet.Key).Lamports)
}
