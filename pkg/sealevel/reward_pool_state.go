package sealevel

import (
	"bytes"

	"github.com/Overclock-Validator/rewardpool/pkg/rewards"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	RewardPoolStatusUninitialized = iota
	RewardPoolStatusPool
	RewardPoolStatusStakingRecord
)

const (
	RewardPoolStateSize    = 96
	StakingRecordStateSize = 80
)

type RewardPoolState struct {
	Status            uint32
	AvailableBalance  uint64
	ReserveLamports   uint64
	RemainderPolicy   rewards.RemainderPolicy
	Authority         solana.PublicKey
	TotalDistributed  uint64
	DistributionCount uint64
}

type StakingRecordState struct {
	Status      uint32
	Owner       solana.PublicKey
	Pool        solana.PublicKey
	StakeAmount uint64
}

func (state *RewardPoolState) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error

	state.Status, err = decoder.ReadUint32(bin.LE)
	if err != nil {
		return err
	}

	state.AvailableBalance, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	state.ReserveLamports, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	policy, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	state.RemainderPolicy = rewards.RemainderPolicy(policy)

	authority, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(state.Authority[:], authority)

	state.TotalDistributed, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	state.DistributionCount, err = decoder.ReadUint64(bin.LE)
	return err
}

func (state *RewardPoolState) MarshalWithEncoder(encoder *bin.Encoder) error {
	var err error

	err = encoder.WriteUint32(state.Status, bin.LE)
	if err != nil {
		return err
	}

	err = encoder.WriteUint64(state.AvailableBalance, bin.LE)
	if err != nil {
		return err
	}

	err = encoder.WriteUint64(state.ReserveLamports, bin.LE)
	if err != nil {
		return err
	}

	err = encoder.WriteUint8(uint8(state.RemainderPolicy))
	if err != nil {
		return err
	}

	err = encoder.WriteBytes(state.Authority[:], false)
	if err != nil {
		return err
	}

	err = encoder.WriteUint64(state.TotalDistributed, bin.LE)
	if err != nil {
		return err
	}

	return encoder.WriteUint64(state.DistributionCount, bin.LE)
}

func (state *StakingRecordState) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error

	state.Status, err = decoder.ReadUint32(bin.LE)
	if err != nil {
		return err
	}

	owner, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(state.Owner[:], owner)

	pool, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(state.Pool[:], pool)

	state.StakeAmount, err = decoder.ReadUint64(bin.LE)
	return err
}

func (state *StakingRecordState) MarshalWithEncoder(encoder *bin.Encoder) error {
	var err error

	err = encoder.WriteUint32(state.Status, bin.LE)
	if err != nil {
		return err
	}

	err = encoder.WriteBytes(state.Owner[:], false)
	if err != nil {
		return err
	}

	err = encoder.WriteBytes(state.Pool[:], false)
	if err != nil {
		return err
	}

	return encoder.WriteUint64(state.StakeAmount, bin.LE)
}

// UnmarshalRewardPoolState decodes pool account data. The data must be
// exactly RewardPoolStateSize bytes.
func UnmarshalRewardPoolState(data []byte) (*RewardPoolState, error) {
	if len(data) != RewardPoolStateSize {
		return nil, InstrErrInvalidAccountData
	}

	state := new(RewardPoolState)
	decoder := bin.NewBinDecoder(data)
	err := state.UnmarshalWithDecoder(decoder)
	if err != nil {
		return nil, InstrErrInvalidAccountData
	}
	return state, nil
}

func MarshalRewardPoolState(state *RewardPoolState) ([]byte, error) {
	return marshalPadded(state, RewardPoolStateSize)
}

// UnmarshalStakingRecordState decodes staking record account data. The data
// must be exactly StakingRecordStateSize bytes.
func UnmarshalStakingRecordState(data []byte) (*StakingRecordState, error) {
	if len(data) != StakingRecordStateSize {
		return nil, InstrErrInvalidAccountData
	}

	state := new(StakingRecordState)
	decoder := bin.NewBinDecoder(data)
	err := state.UnmarshalWithDecoder(decoder)
	if err != nil {
		return nil, InstrErrInvalidAccountData
	}
	return state, nil
}

func MarshalStakingRecordState(state *StakingRecordState) ([]byte, error) {
	return marshalPadded(state, StakingRecordStateSize)
}

type stateMarshaler interface {
	MarshalWithEncoder(encoder *bin.Encoder) error
}

func marshalPadded(state stateMarshaler, size int) ([]byte, error) {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	err := state.MarshalWithEncoder(encoder)
	if err != nil {
		return nil, err
	}
	if buf.Len() > size {
		return nil, InstrErrInvalidAccountData
	}

	data := make([]byte, size)
	copy(data, buf.Bytes())
	return data, nil
}

func setRewardPoolState(acct *BorrowedAccount, state *RewardPoolState) error {
	data, err := MarshalRewardPoolState(state)
	if err != nil {
		return err
	}
	return acct.SetData(data)
}

func setStakingRecordState(acct *BorrowedAccount, state *StakingRecordState) error {
	data, err := MarshalStakingRecordState(state)
	if err != nil {
		return err
	}
	return acct.SetData(data)
}
