package sealevel

import (
	"testing"

	"github.com/Overclock-Validator/rewardpool/pkg/accounts"
	"github.com/Overclock-Validator/rewardpool/pkg/features"
	"github.com/Overclock-Validator/rewardpool/pkg/rewards"
	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uninitializedPoolAcct(key solana.PublicKey, lamports uint64) accounts.Account {
	return accounts.Account{Key: key, Lamports: lamports, Data: make([]byte, RewardPoolStateSize), Owner: RewardPoolProgramAddr}
}

func TestExecute_RewardPool_InitializePool(t *testing.T) {
	pool := newTestPubkey(t)
	authority := newTestPubkey(t)
	rt := newTestRuntime(t, []accounts.Account{rewardPoolProgramAcct(), uninitializedPoolAcct(pool, 1_000_030), walletAcct(authority, 0)}, nil)

	err := rt.process(NewInitializePoolInstruction(pool, authority, 30, lo.ToPtr(rewards.LargestRemainder)))
	require.NoError(t, err)

	state := rt.pool(pool)
	assert.Equal(t, uint32(RewardPoolStatusPool), state.Status)
	assert.Equal(t, uint64(30), state.AvailableBalance)
	assert.Equal(t, uint64(1_000_000), state.ReserveLamports)
	assert.Equal(t, rewards.LargestRemainder, state.RemainderPolicy)
	assert.Equal(t, authority, state.Authority)

	err = rt.process(NewInitializePoolInstruction(pool, authority, 30, lo.ToPtr(rewards.LargestRemainder)))
	assert.Equal(t, InstrErrAccountAlreadyInitialized, err)
}

func TestExecute_RewardPool_InitializePool_DefaultPolicy(t *testing.T) {
	for _, gateActive := range []bool{false, true} {
		f := features.NewFeaturesDefault()
		want := rewards.RemainderToLast
		if gateActive {
			f.EnableFeature(features.LargestRemainderDefault, 0)
			want = rewards.LargestRemainder
		}

		pool := newTestPubkey(t)
		authority := newTestPubkey(t)
		rt := newTestRuntime(t, []accounts.Account{rewardPoolProgramAcct(), uninitializedPoolAcct(pool, 100), walletAcct(authority, 0)}, f)

		instr := NewInitializePoolInstruction(pool, authority, 30, nil)
		assert.Len(t, instr.Data, 9)

		require.NoError(t, rt.process(instr))
		assert.Equal(t, want, rt.pool(pool).RemainderPolicy)
	}
}

func TestExecute_RewardPool_InitializePool_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(pool *accounts.Account, instr *Instruction)
		err    error
	}{
		{"insufficient lamports", func(pool *accounts.Account, instr *Instruction) { pool.Lamports = 29 }, InstrErrInsufficientFunds},
		{"authority did not sign", func(pool *accounts.Account, instr *Instruction) { instr.Accounts[1].IsSigner = false }, InstrErrMissingRequiredSignature},
		{"foreign pool account", func(pool *accounts.Account, instr *Instruction) { pool.Owner = SystemProgramAddr }, InstrErrInvalidAccountOwner},
		{"wrong size", func(pool *accounts.Account, instr *Instruction) { pool.Data = make([]byte, 10) }, InstrErrInvalidAccountData},
		{"read-only pool", func(pool *accounts.Account, instr *Instruction) { instr.Accounts[0].IsWritable = false }, InstrErrReadonlyDataModified},
		{"unknown policy", func(pool *accounts.Account, instr *Instruction) { instr.Data[len(instr.Data)-1] = 7 }, InstrErrInvalidInstructionData},
		{"truncated data", func(pool *accounts.Account, instr *Instruction) { instr.Data = instr.Data[:4] }, InstrErrInvalidInstructionData},
		{"missing authority", func(pool *accounts.Account, instr *Instruction) { instr.Accounts = instr.Accounts[:1] }, InstrErrNotEnoughAccountKeys},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			poolKey := newTestPubkey(t)
			authority := newTestPubkey(t)
			pool := uninitializedPoolAcct(poolKey, 100)
			instr := NewInitializePoolInstruction(poolKey, authority, 30, lo.ToPtr(rewards.RemainderToLast))
			tc.mutate(&pool, instr)

			rt := newTestRuntime(t, []accounts.Account{rewardPoolProgramAcct(), pool, walletAcct(authority, 0)}, nil)
			before := rt.snapshot()
			assert.Equal(t, tc.err, rt.process(instr))
			assert.Equal(t, before, rt.txCtx.Accounts.Accounts)
		})
	}
}

func TestExecute_RewardPool_CreateStakingPosition(t *testing.T) {
	authority := newTestPubkey(t)
	poolKey := newTestPubkey(t)
	owner := newTestPubkey(t)
	recordKey, _, err := StakingRecordAddress(poolKey, owner)
	require.NoError(t, err)

	record := accounts.Account{Key: recordKey, Lamports: 1_000_000, Data: make([]byte, StakingRecordStateSize), Owner: RewardPoolProgramAddr}
	rt := newTestRuntime(t, []accounts.Account{
		rewardPoolProgramAcct(),
		record,
		rewardPoolAcct(t, poolKey, authority, 30, 1_000_000, rewards.RemainderToLast),
		walletAcct(owner, 0),
	}, nil)

	require.NoError(t, rt.process(NewCreateStakingPositionInstruction(recordKey, poolKey, owner, 100)))

	state, err := UnmarshalStakingRecordState(rt.account(recordKey).Data)
	require.NoError(t, err)
	assert.Equal(t, uint32(RewardPoolStatusStakingRecord), state.Status)
	assert.Equal(t, owner, state.Owner)
	assert.Equal(t, poolKey, state.Pool)
	assert.Equal(t, uint64(100), state.StakeAmount)

	err = rt.process(NewCreateStakingPositionInstruction(recordKey, poolKey, owner, 100))
	assert.Equal(t, InstrErrAccountAlreadyInitialized, err)
}

func TestExecute_RewardPool_CreateStakingPosition_Errors(t *testing.T) {
	authority := newTestPubkey(t)
	poolKey := newTestPubkey(t)
	owner := newTestPubkey(t)
	recordKey, _, err := StakingRecordAddress(poolKey, owner)
	require.NoError(t, err)
	notDerived := newTestPubkey(t)

	baseAccts := func() []accounts.Account {
		return []accounts.Account{
			rewardPoolProgramAcct(),
			{Key: recordKey, Lamports: 1_000_000, Data: make([]byte, StakingRecordStateSize), Owner: RewardPoolProgramAddr},
			{Key: notDerived, Lamports: 1_000_000, Data: make([]byte, StakingRecordStateSize), Owner: RewardPoolProgramAddr},
			rewardPoolAcct(t, poolKey, authority, 30, 1_000_000, rewards.RemainderToLast),
			walletAcct(owner, 0),
		}
	}

	t.Run("address not derived from pool and owner", func(t *testing.T) {
		rt := newTestRuntime(t, baseAccts(), nil)
		err := rt.process(NewCreateStakingPositionInstruction(notDerived, poolKey, owner, 100))
		assert.Equal(t, InstrErrInvalidSeeds, err)
	})

	t.Run("owner did not sign", func(t *testing.T) {
		rt := newTestRuntime(t, baseAccts(), nil)
		instr := NewCreateStakingPositionInstruction(recordKey, poolKey, owner, 100)
		instr.Accounts[2].IsSigner = false
		assert.Equal(t, InstrErrMissingRequiredSignature, rt.process(instr))
	})

	t.Run("pool not initialized", func(t *testing.T) {
		accts := baseAccts()
		accts[3].Data = make([]byte, RewardPoolStateSize)
		rt := newTestRuntime(t, accts, nil)
		assert.Equal(t, InstrErrInvalidAccountData, rt.process(NewCreateStakingPositionInstruction(recordKey, poolKey, owner, 100)))
	})

	t.Run("record wrong size", func(t *testing.T) {
		accts := baseAccts()
		accts[1].Data = make([]byte, StakingRecordStateSize+1)
		rt := newTestRuntime(t, accts, nil)
		assert.Equal(t, InstrErrInvalidAccountData, rt.process(NewCreateStakingPositionInstruction(recordKey, poolKey, owner, 100)))
	})

	t.Run("record owned elsewhere", func(t *testing.T) {
		accts := baseAccts()
		accts[1].Owner = SystemProgramAddr
		rt := newTestRuntime(t, accts, nil)
		assert.Equal(t, InstrErrInvalidAccountOwner, rt.process(NewCreateStakingPositionInstruction(recordKey, poolKey, owner, 100)))
	})
}

func TestExecute_RewardPool_SyncPool(t *testing.T) {
	authority := newTestPubkey(t)
	poolKey := newTestPubkey(t)
	pool := rewardPoolAcct(t, poolKey, authority, 30, 1_000_000, rewards.RemainderToLast)
	pool.Lamports += 12

	rt := newTestRuntime(t, []accounts.Account{rewardPoolProgramAcct(), pool}, nil)
	require.NoError(t, rt.process(NewSyncPoolInstruction(poolKey)))
	assert.Equal(t, uint64(42), rt.pool(poolKey).AvailableBalance)

	// nothing new to recognize
	require.NoError(t, rt.process(NewSyncPoolInstruction(poolKey)))
	assert.Equal(t, uint64(42), rt.pool(poolKey).AvailableBalance)
}

func TestExecute_RewardPool_SyncPool_Underfunded(t *testing.T) {
	authority := newTestPubkey(t)
	poolKey := newTestPubkey(t)
	pool := rewardPoolAcct(t, poolKey, authority, 30, 1_000_000, rewards.RemainderToLast)
	pool.Lamports -= 1

	rt := newTestRuntime(t, []accounts.Account{rewardPoolProgramAcct(), pool}, nil)
	assert.Equal(t, InstrErrInvalidAccountData, rt.process(NewSyncPoolInstruction(poolKey)))
}

func TestExecute_RewardPool_SetRemainderPolicy(t *testing.T) {
	authority := newTestPubkey(t)
	stranger := newTestPubkey(t)
	poolKey := newTestPubkey(t)

	rt := newTestRuntime(t, []accounts.Account{
		rewardPoolProgramAcct(),
		rewardPoolAcct(t, poolKey, authority, 30, 1_000_000, rewards.RemainderToLast),
		walletAcct(authority, 0),
		walletAcct(stranger, 0),
	}, nil)

	err := rt.process(NewSetRemainderPolicyInstruction(poolKey, stranger, rewards.LargestRemainder))
	assert.Equal(t, RewardPoolErrUnauthorized, err)

	instr := NewSetRemainderPolicyInstruction(poolKey, authority, rewards.LargestRemainder)
	instr.Accounts[1].IsSigner = false
	assert.Equal(t, InstrErrMissingRequiredSignature, rt.process(instr))

	instr = NewSetRemainderPolicyInstruction(poolKey, authority, rewards.RemainderPolicy(5))
	assert.Equal(t, InstrErrInvalidInstructionData, rt.process(instr))

	require.NoError(t, rt.process(NewSetRemainderPolicyInstruction(poolKey, authority, rewards.LargestRemainder)))
	assert.Equal(t, rewards.LargestRemainder, rt.pool(poolKey).RemainderPolicy)
}

func TestExecute_RewardPool_UnknownInstruction(t *testing.T) {
	rt := newTestRuntime(t, []accounts.Account{rewardPoolProgramAcct()}, nil)
	assert.Equal(t, InstrErrInvalidInstructionData, rt.process(&Instruction{ProgramId: RewardPoolProgramAddr, Data: []byte{9}}))
	assert.Equal(t, InstrErrInvalidInstructionData, rt.process(&Instruction{ProgramId: RewardPoolProgramAddr}))
}

func TestRewardPoolState_Layout(t *testing.T) {
	authority := newTestPubkey(t)
	state := &RewardPoolState{Status: RewardPoolStatusPool, AvailableBalance: 7, ReserveLamports: 9, RemainderPolicy: rewards.LargestRemainder, Authority: authority, TotalDistributed: 11, DistributionCount: 2}

	data, err := MarshalRewardPoolState(state)
	require.NoError(t, err)
	require.Len(t, data, RewardPoolStateSize)
	assert.Equal(t, []byte{1, 0, 0, 0, 7, 0, 0, 0, 0, 0, 0, 0}, data[:12])
	assert.Equal(t, byte(rewards.LargestRemainder), data[20])
	assert.Equal(t, authority[:], data[21:53])

	decoded, err := UnmarshalRewardPoolState(data)
	require.NoError(t, err)
	assert.Equal(t, state, decoded)

	_, err = UnmarshalStakingRecordState(data)
	assert.Equal(t, InstrErrInvalidAccountData, err)
}

func TestStakingRecordAddress_Deterministic(t *testing.T) {
	pool := newTestPubkey(t)
	owner := newTestPubkey(t)

	addr1, bump1, err := StakingRecordAddress(pool, owner)
	require.NoError(t, err)
	addr2, bump2, err := StakingRecordAddress(pool, owner)
	require.NoError(t, err)
	assert.Equal(t, addr1, addr2)
	assert.Equal(t, bump1, bump2)

	other, _, err := StakingRecordAddress(owner, pool)
	require.NoError(t, err)
	assert.NotEqual(t, addr1, other)
}
