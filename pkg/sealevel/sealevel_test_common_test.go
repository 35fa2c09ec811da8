package sealevel

import (
	"testing"

	"github.com/Overclock-Validator/rewardpool/pkg/accounts"
	"github.com/Overclock-Validator/rewardpool/pkg/cu"
	"github.com/Overclock-Validator/rewardpool/pkg/features"
	"github.com/Overclock-Validator/rewardpool/pkg/global"
	"github.com/Overclock-Validator/rewardpool/pkg/rewards"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func NewTestTransactionCtx(txAccts TransactionAccounts, instrCtxStackCapacity uint64, instrTraceCapacity uint64) *TransactionCtx {
	return NewTransactionCtx(txAccts, instrCtxStackCapacity, instrTraceCapacity)
}

func instructionAcctsFromAccountMetas(t *testing.T, instrAcctMetas []AccountMeta, txAccounts TransactionAccounts) []InstructionAccount {
	instrAccts, err := InstructionAcctsFromAccountMetas(instrAcctMetas, &txAccounts)
	require.NoError(t, err)
	return instrAccts
}

func newTestPubkey(t *testing.T) solana.PublicKey {
	privKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return privKey.PublicKey()
}

func rewardPoolProgramAcct() accounts.Account {
	return accounts.Account{Key: RewardPoolProgramAddr, Owner: NativeLoaderAddr, Executable: true, Data: []byte{}}
}

func systemProgramAcct() accounts.Account {
	return accounts.Account{Key: SystemProgramAddr, Owner: NativeLoaderAddr, Executable: true, Data: []byte{}}
}

func walletAcct(key solana.PublicKey, lamports uint64) accounts.Account {
	return accounts.Account{Key: key, Lamports: lamports, Owner: SystemProgramAddr, Data: []byte{}}
}

func rewardPoolAcct(t *testing.T, key solana.PublicKey, authority solana.PublicKey, available uint64, reserve uint64, policy rewards.RemainderPolicy) accounts.Account {
	state := &RewardPoolState{
		Status:           RewardPoolStatusPool,
		AvailableBalance: available,
		ReserveLamports:  reserve,
		RemainderPolicy:  policy,
		Authority:        authority,
	}
	data, err := MarshalRewardPoolState(state)
	require.NoError(t, err)
	return accounts.Account{Key: key, Lamports: reserve + available, Data: data, Owner: RewardPoolProgramAddr}
}

func stakingRecordAcct(t *testing.T, pool solana.PublicKey, owner solana.PublicKey, stake uint64) accounts.Account {
	key, _, err := StakingRecordAddress(pool, owner)
	require.NoError(t, err)

	state := &StakingRecordState{
		Status:      RewardPoolStatusStakingRecord,
		Owner:       owner,
		Pool:        pool,
		StakeAmount: stake,
	}
	data, err := MarshalStakingRecordState(state)
	require.NoError(t, err)
	return accounts.Account{Key: key, Lamports: 1_000_000, Data: data, Owner: RewardPoolProgramAddr}
}

// testRuntime executes instructions against a fixed account set, one
// TransactionCtx per runtime.
type testRuntime struct {
	t       *testing.T
	txCtx   *TransactionCtx
	execCtx *ExecutionCtx
}

func newTestRuntime(t *testing.T, accts []accounts.Account, f *features.Features) *testRuntime {
	transactionAccts := NewTransactionAccounts(accts)
	txCtx := NewTestTransactionCtx(*transactionAccts, 5, 64)
	execCtx := &ExecutionCtx{
		Log:                new(LogRecorder),
		TransactionContext: txCtx,
		ComputeMeter:       cu.NewComputeMeterDefault(),
		GlobalCtx:          global.GlobalCtx{Features: f},
	}
	return &testRuntime{t: t, txCtx: txCtx, execCtx: execCtx}
}

func (rt *testRuntime) process(instr *Instruction) error {
	programIdx, err := rt.txCtx.IndexOfAccount(instr.ProgramId)
	require.NoError(rt.t, err)

	instrAccts := instructionAcctsFromAccountMetas(rt.t, instr.Accounts, rt.txCtx.Accounts)
	return rt.execCtx.ProcessInstruction(instr.Data, instrAccts, []uint64{programIdx})
}

func (rt *testRuntime) account(key solana.PublicKey) *accounts.Account {
	idx, err := rt.txCtx.IndexOfAccount(key)
	require.NoError(rt.t, err)
	acct, err := rt.txCtx.Accounts.GetAccount(idx)
	require.NoError(rt.t, err)
	return acct
}

func (rt *testRuntime) pool(key solana.PublicKey) *RewardPoolState {
	state, err := UnmarshalRewardPoolState(rt.account(key).Data)
	require.NoError(rt.t, err)
	return state
}

func (rt *testRuntime) snapshot() []*accounts.Account {
	snap := make([]*accounts.Account, 0, len(rt.txCtx.Accounts.Accounts))
	for _, acct := range rt.txCtx.Accounts.Accounts {
		snap = append(snap, acct.Clone())
	}
	return snap
}

func (rt *testRuntime) report() *DistributionReport {
	programId, data := rt.txCtx.GetReturnData()
	require.Equal(rt.t, solana.PublicKeyFromBytes(RewardPoolProgramAddr[:]), programId)
	report, err := UnmarshalDistributionReport(data)
	require.NoError(rt.t, err)
	return report
}

// distributionFixture is a pool with one staking record and one owner wallet
// per stake.
type distributionFixture struct {
	authority solana.PublicKey
	pool      solana.PublicKey
	records   []solana.PublicKey
	owners    []solana.PublicKey
	accts     []accounts.Account
}

func newDistributionFixture(t *testing.T, stakes []uint64, available uint64, policy rewards.RemainderPolicy) *distributionFixture {
	fx := &distributionFixture{authority: newTestPubkey(t), pool: newTestPubkey(t)}
	fx.accts = append(fx.accts, rewardPoolProgramAcct(), rewardPoolAcct(t, fx.pool, fx.authority, available, 1_000_000, policy))

	for _, stake := range stakes {
		owner := newTestPubkey(t)
		record := stakingRecordAcct(t, fx.pool, owner, stake)
		fx.owners = append(fx.owners, owner)
		fx.records = append(fx.records, record.Key)
		fx.accts = append(fx.accts, record, walletAcct(owner, 5_000))
	}
	return fx
}

func (fx *distributionFixture) distributeInstr() *Instruction {
	return NewDistributeInstruction(fx.pool, fx.records, fx.owners)
}
