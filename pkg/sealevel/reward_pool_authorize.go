package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"k8s.io/klog/v2"
)

type distributionPosition struct {
	recordKey      solana.PublicKey
	owner          solana.PublicKey
	stakeAmount    uint64
	destinationIdx uint64
}

// distributionRequest is a Distribute instruction whose accounts have passed
// authorization. It holds copies of the decoded state only.
type distributionRequest struct {
	poolKey   solana.PublicKey
	pool      *RewardPoolState
	positions []distributionPosition
}

func (req *distributionRequest) stakes() []uint64 {
	stakes := make([]uint64, len(req.positions))
	for i, pos := range req.positions {
		stakes[i] = pos.stakeAmount
	}
	return stakes
}

// numDistributionPositions derives the position count from the account list
// [pool, record_0..record_{n-1}, dest_0..dest_{n-1}].
func numDistributionPositions(instrCtx *InstructionCtx) (uint64, error) {
	numAccts := instrCtx.NumberOfInstructionAccounts()
	if numAccts < 3 || numAccts%2 == 0 {
		return 0, InstrErrNotEnoughAccountKeys
	}
	return (numAccts - 1) / 2, nil
}

func readRewardPool(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64) (solana.PublicKey, *RewardPoolState, bool, error) {
	poolAcct, err := instrCtx.BorrowInstructionAccount(txCtx, instrAcctIdx)
	if err != nil {
		return solana.PublicKey{}, nil, false, err
	}
	defer poolAcct.Drop()

	if poolAcct.Owner() != RewardPoolProgramAddr {
		klog.Errorf("reward pool %s owned by %s, not by the reward pool program", poolAcct.Key(), poolAcct.Owner())
		return solana.PublicKey{}, nil, false, InstrErrInvalidAccountData
	}

	pool, err := UnmarshalRewardPoolState(poolAcct.Data())
	if err != nil {
		klog.Errorf("reward pool %s: malformed pool data (%d bytes)", poolAcct.Key(), len(poolAcct.Data()))
		return solana.PublicKey{}, nil, false, err
	}

	if pool.Status != RewardPoolStatusPool {
		klog.Errorf("reward pool %s: account is not an initialized pool (status %d)", poolAcct.Key(), pool.Status)
		return solana.PublicKey{}, nil, false, InstrErrInvalidAccountData
	}

	return poolAcct.Key(), pool, poolAcct.IsWritable(), nil
}

func readStakingRecord(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64) (solana.PublicKey, *StakingRecordState, error) {
	recordAcct, err := instrCtx.BorrowInstructionAccount(txCtx, instrAcctIdx)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	defer recordAcct.Drop()

	if recordAcct.Owner() != RewardPoolProgramAddr {
		klog.Errorf("staking record %s owned by %s, not by the reward pool program", recordAcct.Key(), recordAcct.Owner())
		return solana.PublicKey{}, nil, InstrErrInvalidAccountData
	}

	record, err := UnmarshalStakingRecordState(recordAcct.Data())
	if err != nil {
		klog.Errorf("staking record %s: malformed record data (%d bytes)", recordAcct.Key(), len(recordAcct.Data()))
		return solana.PublicKey{}, nil, err
	}

	if record.Status != RewardPoolStatusStakingRecord {
		klog.Errorf("staking record %s: account is not an initialized staking record (status %d)", recordAcct.Key(), record.Status)
		return solana.PublicKey{}, nil, InstrErrInvalidAccountData
	}

	return recordAcct.Key(), record, nil
}

// authorizeDistribution checks every (staking record, destination) pair in
// request order and fails on the first violation. It never mutates accounts.
func authorizeDistribution(txCtx *TransactionCtx, instrCtx *InstructionCtx, numPositions uint64) (*distributionRequest, error) {
	poolKey, pool, poolWritable, err := readRewardPool(txCtx, instrCtx, 0)
	if err != nil {
		return nil, err
	}
	if !poolWritable {
		klog.Errorf("reward pool %s must be writable", poolKey)
		return nil, InstrErrInvalidArgument
	}

	poolIdxInTx, err := instrCtx.IndexOfInstructionAccountInTransaction(0)
	if err != nil {
		return nil, err
	}

	recordIdxs := make(map[uint64]struct{}, numPositions)
	for i := uint64(0); i < numPositions; i++ {
		idxInTx, err := instrCtx.IndexOfInstructionAccountInTransaction(1 + i)
		if err != nil {
			return nil, err
		}
		recordIdxs[idxInTx] = struct{}{}
	}

	req := &distributionRequest{poolKey: poolKey, pool: pool, positions: make([]distributionPosition, 0, numPositions)}
	seenRecords := make(map[uint64]struct{}, numPositions)

	for i := uint64(0); i < numPositions; i++ {
		recordInstrIdx := 1 + i
		destInstrIdx := 1 + numPositions + i

		recordIdxInTx, err := instrCtx.IndexOfInstructionAccountInTransaction(recordInstrIdx)
		if err != nil {
			return nil, err
		}
		if _, dup := seenRecords[recordIdxInTx]; dup {
			klog.Errorf("position %d: staking record appears more than once", i)
			return nil, InstrErrInvalidArgument
		}
		seenRecords[recordIdxInTx] = struct{}{}

		recordKey, record, err := readStakingRecord(txCtx, instrCtx, recordInstrIdx)
		if err != nil {
			return nil, err
		}
		if record.Pool != poolKey {
			klog.Errorf("position %d: staking record %s belongs to pool %s, not %s", i, recordKey, record.Pool, poolKey)
			return nil, InstrErrInvalidAccountData
		}

		destIdxInTx, err := instrCtx.IndexOfInstructionAccountInTransaction(destInstrIdx)
		if err != nil {
			return nil, err
		}
		if _, isRecord := recordIdxs[destIdxInTx]; isRecord || destIdxInTx == poolIdxInTx {
			klog.Errorf("position %d: destination may not be the pool or a staking record", i)
			return nil, InstrErrInvalidArgument
		}

		writable, err := instrCtx.IsInstructionAccountWritable(destInstrIdx)
		if err != nil {
			return nil, err
		}
		if !writable {
			klog.Errorf("position %d: destination must be writable", i)
			return nil, InstrErrInvalidArgument
		}

		destKey, err := txCtx.KeyOfAccountAtIndex(destIdxInTx)
		if err != nil {
			return nil, err
		}
		if record.Owner != destKey {
			klog.Errorf("position %d: destination %s does not match staking record owner %s", i, destKey, record.Owner)
			return nil, RewardPoolErrUnauthorized
		}

		klog.V(2).Infof("position %d: record %s, owner %s, stake %d", i, recordKey, record.Owner, record.StakeAmount)

		req.positions = append(req.positions, distributionPosition{
			recordKey:      recordKey,
			owner:          record.Owner,
			stakeAmount:    record.StakeAmount,
			destinationIdx: destInstrIdx,
		})
	}

	return req, nil
}
