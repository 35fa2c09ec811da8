package sealevel

import (
	"bytes"
	"errors"

	"github.com/Overclock-Validator/rewardpool/pkg/features"
	"github.com/Overclock-Validator/rewardpool/pkg/rewards"
	"github.com/Overclock-Validator/rewardpool/pkg/safemath"
	pda "github.com/Overclock-Validator/rewardpool/pkg/solana"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"k8s.io/klog/v2"
)

const (
	RewardPoolInstrTypeCreateStakingPosition = iota
	RewardPoolInstrTypeInitializePool
	RewardPoolInstrTypeDistribute
	RewardPoolInstrTypeSyncPool
	RewardPoolInstrTypeSetRemainderPolicy
)

const StakingRecordSeed = "staking_record"

type RewardPoolInstrCreateStakingPosition struct {
	StakeAmount uint64
}

type RewardPoolInstrInitializePool struct {
	InitialBalance  uint64
	RemainderPolicy *rewards.RemainderPolicy
}

type RewardPoolInstrSetRemainderPolicy struct {
	RemainderPolicy rewards.RemainderPolicy
}

func (instr *RewardPoolInstrCreateStakingPosition) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	instr.StakeAmount, err = decoder.ReadUint64(bin.LE)
	return err
}

func (instr *RewardPoolInstrCreateStakingPosition) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint8(RewardPoolInstrTypeCreateStakingPosition)
	if err != nil {
		return err
	}
	return encoder.WriteUint64(instr.StakeAmount, bin.LE)
}

func (instr *RewardPoolInstrInitializePool) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	instr.InitialBalance, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	// the policy byte is optional
	if decoder.Remaining() == 0 {
		return nil
	}
	policy, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	p := rewards.RemainderPolicy(policy)
	instr.RemainderPolicy = &p
	return nil
}

func (instr *RewardPoolInstrInitializePool) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint8(RewardPoolInstrTypeInitializePool)
	if err != nil {
		return err
	}
	err = encoder.WriteUint64(instr.InitialBalance, bin.LE)
	if err != nil {
		return err
	}
	if instr.RemainderPolicy == nil {
		return nil
	}
	return encoder.WriteUint8(uint8(*instr.RemainderPolicy))
}

func (instr *RewardPoolInstrSetRemainderPolicy) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	policy, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	instr.RemainderPolicy = rewards.RemainderPolicy(policy)
	return nil
}

func (instr *RewardPoolInstrSetRemainderPolicy) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint8(RewardPoolInstrTypeSetRemainderPolicy)
	if err != nil {
		return err
	}
	return encoder.WriteUint8(uint8(instr.RemainderPolicy))
}

func encodeInstr(instr stateMarshaler) []byte {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)
	err := instr.MarshalWithEncoder(encoder)
	if err != nil {
		panic("shouldn't fail")
	}
	return buf.Bytes()
}

// StakingRecordAddress derives the address of the one staking record an
// owner may hold in a pool.
func StakingRecordAddress(pool solana.PublicKey, owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	seeds := [][]byte{[]byte(StakingRecordSeed), pool[:], owner[:]}
	addr, bump, err := pda.FindProgramAddress(seeds, RewardPoolProgramAddr)
	if err != nil {
		return solana.PublicKey{}, 0, err
	}
	return solana.PublicKeyFromBytes(addr[:]), bump, nil
}

// NewInitializePoolInstruction leaves the policy byte out when policy is nil,
// letting the cluster's feature set pick the pool's remainder policy.
func NewInitializePoolInstruction(pool solana.PublicKey, authority solana.PublicKey, initialBalance uint64, policy *rewards.RemainderPolicy) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: pool, IsSigner: false, IsWritable: true},
		{Pubkey: authority, IsSigner: true, IsWritable: false},
	}
	data := encodeInstr(&RewardPoolInstrInitializePool{InitialBalance: initialBalance, RemainderPolicy: policy})
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: RewardPoolProgramAddr}
}

func NewCreateStakingPositionInstruction(record solana.PublicKey, pool solana.PublicKey, owner solana.PublicKey, stakeAmount uint64) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: record, IsSigner: false, IsWritable: true},
		{Pubkey: pool, IsSigner: false, IsWritable: false},
		{Pubkey: owner, IsSigner: true, IsWritable: false},
	}
	data := encodeInstr(&RewardPoolInstrCreateStakingPosition{StakeAmount: stakeAmount})
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: RewardPoolProgramAddr}
}

func NewDistributeInstruction(pool solana.PublicKey, records []solana.PublicKey, destinations []solana.PublicKey) *Instruction {
	accountMetas := make([]AccountMeta, 0, 1+len(records)+len(destinations))
	accountMetas = append(accountMetas, AccountMeta{Pubkey: pool, IsSigner: false, IsWritable: true})
	for _, record := range records {
		accountMetas = append(accountMetas, AccountMeta{Pubkey: record, IsSigner: false, IsWritable: false})
	}
	for _, dest := range destinations {
		accountMetas = append(accountMetas, AccountMeta{Pubkey: dest, IsSigner: false, IsWritable: true})
	}
	return &Instruction{Accounts: accountMetas, Data: []byte{RewardPoolInstrTypeDistribute}, ProgramId: RewardPoolProgramAddr}
}

func NewSyncPoolInstruction(pool solana.PublicKey) *Instruction {
	accountMetas := []AccountMeta{{Pubkey: pool, IsSigner: false, IsWritable: true}}
	return &Instruction{Accounts: accountMetas, Data: []byte{RewardPoolInstrTypeSyncPool}, ProgramId: RewardPoolProgramAddr}
}

func NewSetRemainderPolicyInstruction(pool solana.PublicKey, authority solana.PublicKey, policy rewards.RemainderPolicy) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: pool, IsSigner: false, IsWritable: true},
		{Pubkey: authority, IsSigner: true, IsWritable: false},
	}
	data := encodeInstr(&RewardPoolInstrSetRemainderPolicy{RemainderPolicy: policy})
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: RewardPoolProgramAddr}
}

func RewardPoolProgramExecute(execCtx *ExecutionCtx) error {
	err := consumeComputeUnits(execCtx, CURewardPoolProgramDefaultComputeUnits)
	if err != nil {
		return err
	}

	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	decoder := bin.NewBinDecoder(instrCtx.Data)
	instructionType, err := decoder.ReadUint8()
	if err != nil {
		return InstrErrInvalidInstructionData
	}

	switch instructionType {
	case RewardPoolInstrTypeCreateStakingPosition:
		{
			var create RewardPoolInstrCreateStakingPosition
			err = create.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}
			execCtx.logf("Instruction: CreateStakingPosition")
			err = RewardPoolCreateStakingPosition(execCtx, txCtx, instrCtx, create.StakeAmount)
		}

	case RewardPoolInstrTypeInitializePool:
		{
			var initialize RewardPoolInstrInitializePool
			err = initialize.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}

			policy := rewards.RemainderToLast
			if execCtx.IsFeatureActive(features.LargestRemainderDefault) {
				policy = rewards.LargestRemainder
			}
			if initialize.RemainderPolicy != nil {
				policy = *initialize.RemainderPolicy
			}
			if !policy.Valid() {
				return InstrErrInvalidInstructionData
			}

			execCtx.logf("Instruction: InitializePool")
			err = RewardPoolInitializePool(execCtx, txCtx, instrCtx, initialize.InitialBalance, policy)
		}

	case RewardPoolInstrTypeDistribute:
		{
			execCtx.logf("Instruction: Distribute")
			err = RewardPoolDistribute(execCtx, txCtx, instrCtx)
		}

	case RewardPoolInstrTypeSyncPool:
		{
			execCtx.logf("Instruction: SyncPool")
			err = RewardPoolSyncPool(txCtx, instrCtx)
		}

	case RewardPoolInstrTypeSetRemainderPolicy:
		{
			var setPolicy RewardPoolInstrSetRemainderPolicy
			err = setPolicy.UnmarshalWithDecoder(decoder)
			if err != nil || !setPolicy.RemainderPolicy.Valid() {
				return InstrErrInvalidInstructionData
			}
			execCtx.logf("Instruction: SetRemainderPolicy")
			err = RewardPoolSetRemainderPolicy(txCtx, instrCtx, setPolicy.RemainderPolicy)
		}

	default:
		{
			err = InstrErrInvalidInstructionData
		}
	}

	return err
}

func RewardPoolInitializePool(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, initialBalance uint64, policy rewards.RemainderPolicy) error {
	err := instrCtx.CheckNumOfInstructionAccounts(2)
	if err != nil {
		return err
	}

	authority, err := instrCtx.KeyOfInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	isSigner, err := instrCtx.IsInstructionAccountSigner(1)
	if err != nil {
		return err
	}
	if !isSigner {
		klog.Errorf("InitializePool: authority %s must sign", authority)
		return InstrErrMissingRequiredSignature
	}

	poolAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	defer poolAcct.Drop()

	if poolAcct.Owner() != RewardPoolProgramAddr {
		klog.Errorf("InitializePool: pool %s is owned by %s", poolAcct.Key(), poolAcct.Owner())
		return InstrErrInvalidAccountOwner
	}

	state, err := UnmarshalRewardPoolState(poolAcct.Data())
	if err != nil {
		klog.Errorf("InitializePool: pool %s has %d bytes of data, need %d", poolAcct.Key(), len(poolAcct.Data()), RewardPoolStateSize)
		return err
	}
	if state.Status != RewardPoolStatusUninitialized {
		return InstrErrAccountAlreadyInitialized
	}

	if poolAcct.Lamports() < initialBalance {
		klog.Errorf("InitializePool: pool %s holds %d lamports, cannot fund %d", poolAcct.Key(), poolAcct.Lamports(), initialBalance)
		return InstrErrInsufficientFunds
	}

	newState := &RewardPoolState{
		Status:           RewardPoolStatusPool,
		AvailableBalance: initialBalance,
		ReserveLamports:  poolAcct.Lamports() - initialBalance,
		RemainderPolicy:  policy,
		Authority:        authority,
	}

	klog.Infof("InitializePool: pool %s, available %d, reserve %d, policy %s", poolAcct.Key(), newState.AvailableBalance, newState.ReserveLamports, policy)
	execCtx.logf("pool %s initialized with %d distributable lamports", poolAcct.Key(), initialBalance)

	return setRewardPoolState(poolAcct, newState)
}

func RewardPoolCreateStakingPosition(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, stakeAmount uint64) error {
	err := instrCtx.CheckNumOfInstructionAccounts(3)
	if err != nil {
		return err
	}

	poolKey, _, _, err := readRewardPool(txCtx, instrCtx, 1)
	if err != nil {
		return err
	}

	owner, err := instrCtx.KeyOfInstructionAccount(txCtx, 2)
	if err != nil {
		return err
	}
	isSigner, err := instrCtx.IsInstructionAccountSigner(2)
	if err != nil {
		return err
	}
	if !isSigner {
		klog.Errorf("CreateStakingPosition: owner %s must sign", owner)
		return InstrErrMissingRequiredSignature
	}

	err = consumeComputeUnits(execCtx, CUCreateProgramAddressUnits)
	if err != nil {
		return err
	}

	expected, _, err := StakingRecordAddress(poolKey, owner)
	if err != nil {
		return InstrErrInvalidSeeds
	}

	recordAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	defer recordAcct.Drop()

	if recordAcct.Key() != expected {
		klog.Errorf("CreateStakingPosition: record %s does not match derived address %s", recordAcct.Key(), expected)
		return InstrErrInvalidSeeds
	}

	if recordAcct.Owner() != RewardPoolProgramAddr {
		klog.Errorf("CreateStakingPosition: record %s is owned by %s", recordAcct.Key(), recordAcct.Owner())
		return InstrErrInvalidAccountOwner
	}

	state, err := UnmarshalStakingRecordState(recordAcct.Data())
	if err != nil {
		klog.Errorf("CreateStakingPosition: record %s has %d bytes of data, need %d", recordAcct.Key(), len(recordAcct.Data()), StakingRecordStateSize)
		return err
	}
	if state.Status != RewardPoolStatusUninitialized {
		return InstrErrAccountAlreadyInitialized
	}

	newState := &StakingRecordState{
		Status:      RewardPoolStatusStakingRecord,
		Owner:       owner,
		Pool:        poolKey,
		StakeAmount: stakeAmount,
	}

	klog.Infof("CreateStakingPosition: record %s, owner %s, pool %s, stake %d", recordAcct.Key(), owner, poolKey, stakeAmount)

	return setStakingRecordState(recordAcct, newState)
}

// RewardPoolSyncPool recognizes lamports deposited into the pool since the
// last sync as distributable.
func RewardPoolSyncPool(txCtx *TransactionCtx, instrCtx *InstructionCtx) error {
	err := instrCtx.CheckNumOfInstructionAccounts(1)
	if err != nil {
		return err
	}

	poolAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	defer poolAcct.Drop()

	if poolAcct.Owner() != RewardPoolProgramAddr {
		return InstrErrInvalidAccountOwner
	}

	state, err := UnmarshalRewardPoolState(poolAcct.Data())
	if err != nil {
		return err
	}
	if state.Status != RewardPoolStatusPool {
		return InstrErrUninitializedAccount
	}

	accounted, err := safemath.CheckedAddU64(state.ReserveLamports, state.AvailableBalance)
	if err != nil {
		return InstrErrInvalidAccountData
	}
	surplus, err := safemath.CheckedSubU64(poolAcct.Lamports(), accounted)
	if err != nil {
		klog.Errorf("SyncPool: pool %s holds %d lamports but accounts for %d", poolAcct.Key(), poolAcct.Lamports(), accounted)
		return InstrErrInvalidAccountData
	}
	if surplus == 0 {
		return nil
	}

	state.AvailableBalance += surplus
	klog.Infof("SyncPool: pool %s, +%d distributable, available %d", poolAcct.Key(), surplus, state.AvailableBalance)

	return setRewardPoolState(poolAcct, state)
}

func RewardPoolSetRemainderPolicy(txCtx *TransactionCtx, instrCtx *InstructionCtx, policy rewards.RemainderPolicy) error {
	err := instrCtx.CheckNumOfInstructionAccounts(2)
	if err != nil {
		return err
	}

	poolAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	defer poolAcct.Drop()

	if poolAcct.Owner() != RewardPoolProgramAddr {
		return InstrErrInvalidAccountOwner
	}

	state, err := UnmarshalRewardPoolState(poolAcct.Data())
	if err != nil {
		return err
	}
	if state.Status != RewardPoolStatusPool {
		return InstrErrUninitializedAccount
	}

	authority, err := instrCtx.KeyOfInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	if authority != state.Authority {
		klog.Errorf("SetRemainderPolicy: %s is not the authority of pool %s", authority, poolAcct.Key())
		return RewardPoolErrUnauthorized
	}
	isSigner, err := instrCtx.IsInstructionAccountSigner(1)
	if err != nil {
		return err
	}
	if !isSigner {
		return InstrErrMissingRequiredSignature
	}

	state.RemainderPolicy = policy
	klog.Infof("SetRemainderPolicy: pool %s now uses %s", poolAcct.Key(), policy)

	return setRewardPoolState(poolAcct, state)
}

func translateRewardsErr(err error) error {
	switch {
	case errors.Is(err, rewards.ErrArithmeticOverflow):
		return InstrErrArithmeticOverflow
	case errors.Is(err, rewards.ErrNoPositions):
		return InstrErrNotEnoughAccountKeys
	case errors.Is(err, rewards.ErrInvalidPolicy):
		return InstrErrInvalidAccountData
	}
	return err
}
