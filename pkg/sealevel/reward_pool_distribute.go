package sealevel

import (
	"bytes"
	"fmt"

	"github.com/Overclock-Validator/rewardpool/pkg/features"
	"github.com/Overclock-Validator/rewardpool/pkg/rewards"
	"github.com/Overclock-Validator/rewardpool/pkg/safemath"
	bin "github.com/gagliardetto/binary"
	"k8s.io/klog/v2"
)

// DistributionPhase tracks a single Distribute invocation. Committed and
// Aborted are terminal.
type DistributionPhase int

const (
	DistributionPhaseValidating DistributionPhase = iota
	DistributionPhaseComputing
	DistributionPhaseApplying
	DistributionPhaseCommitted
	DistributionPhaseAborted
)

func (p DistributionPhase) String() string {
	switch p {
	case DistributionPhaseValidating:
		return "Validating"
	case DistributionPhaseComputing:
		return "Computing"
	case DistributionPhaseApplying:
		return "Applying"
	case DistributionPhaseCommitted:
		return "Committed"
	case DistributionPhaseAborted:
		return "Aborted"
	default:
		return fmt.Sprintf("DistributionPhase(%d)", int(p))
	}
}

type DistributionOutcome uint8

const (
	DistributionOutcomeDistributed DistributionOutcome = iota
	DistributionOutcomeZeroTotalStake
	DistributionOutcomeEmptyPool
)

func (o DistributionOutcome) String() string {
	switch o {
	case DistributionOutcomeDistributed:
		return "Distributed"
	case DistributionOutcomeZeroTotalStake:
		return "ZeroTotalStake"
	case DistributionOutcomeEmptyPool:
		return "EmptyPool"
	default:
		return fmt.Sprintf("DistributionOutcome(%d)", uint8(o))
	}
}

// DistributionReport is written as return data by every successful
// Distribute.
type DistributionReport struct {
	Outcome     DistributionOutcome
	Positions   uint32
	Distributed uint64
}

func (report *DistributionReport) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	outcome, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	report.Outcome = DistributionOutcome(outcome)

	report.Positions, err = decoder.ReadUint32(bin.LE)
	if err != nil {
		return err
	}

	report.Distributed, err = decoder.ReadUint64(bin.LE)
	return err
}

func (report *DistributionReport) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint8(uint8(report.Outcome))
	if err != nil {
		return err
	}

	err = encoder.WriteUint32(report.Positions, bin.LE)
	if err != nil {
		return err
	}

	return encoder.WriteUint64(report.Distributed, bin.LE)
}

func UnmarshalDistributionReport(data []byte) (*DistributionReport, error) {
	report := new(DistributionReport)
	err := report.UnmarshalWithDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, err
	}
	return report, nil
}

type distribution struct {
	execCtx *ExecutionCtx
	phase   DistributionPhase
}

func (d *distribution) enter(phase DistributionPhase) {
	klog.V(2).Infof("distribution: %s -> %s", d.phase, phase)
	d.phase = phase
}

func (d *distribution) abort(err error) error {
	klog.Errorf("distribution aborted during %s: %s", d.phase, err)
	d.execCtx.logf("distribution aborted during %s: %s", d.phase, err)
	d.phase = DistributionPhaseAborted
	return err
}

func (d *distribution) commit(report *DistributionReport) error {
	d.enter(DistributionPhaseCommitted)
	klog.Infof("distribution committed: %s, %d positions, %d lamports", report.Outcome, report.Positions, report.Distributed)
	d.execCtx.logf("distribution %s: %d lamports across %d positions", report.Outcome, report.Distributed, report.Positions)

	buf := new(bytes.Buffer)
	err := report.MarshalWithEncoder(bin.NewBinEncoder(buf))
	if err != nil {
		return err
	}
	return d.execCtx.TransactionContext.SetReturnData(RewardPoolProgramAddr, buf.Bytes())
}

// RewardPoolDistribute pays the pool's entire available balance out to the
// destinations in proportion to the current stake of each paired record.
func RewardPoolDistribute(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx) error {
	d := &distribution{execCtx: execCtx, phase: DistributionPhaseValidating}

	numPositions, err := numDistributionPositions(instrCtx)
	if err != nil {
		return d.abort(err)
	}

	err = consumeComputeUnitsPer(execCtx, numPositions, CURewardPoolPerPositionComputeUnits)
	if err != nil {
		return d.abort(err)
	}

	req, err := authorizeDistribution(txCtx, instrCtx, numPositions)
	if err != nil {
		return d.abort(err)
	}

	available := req.pool.AvailableBalance
	if available == 0 {
		if execCtx.IsFeatureActive(features.PermissiveEmptyPoolDistribution) {
			return d.commit(&DistributionReport{Outcome: DistributionOutcomeEmptyPool, Positions: uint32(numPositions)})
		}
		klog.Errorf("pool %s has no distributable balance", req.poolKey)
		return d.abort(InstrErrInsufficientFunds)
	}

	d.enter(DistributionPhaseComputing)

	shares, err := rewards.CalculatePayouts(req.stakes(), available, req.pool.RemainderPolicy)
	if err != nil {
		return d.abort(translateRewardsErr(err))
	}

	if shares.ZeroTotalStake {
		klog.Infof("pool %s: total stake is zero, nothing distributed", req.poolKey)
		return d.commit(&DistributionReport{Outcome: DistributionOutcomeZeroTotalStake, Positions: uint32(numPositions)})
	}

	d.enter(DistributionPhaseApplying)

	err = applyDistribution(txCtx, instrCtx, req, shares)
	if err != nil {
		return d.abort(err)
	}

	return d.commit(&DistributionReport{Outcome: DistributionOutcomeDistributed, Positions: uint32(numPositions), Distributed: shares.Distributed})
}

type destinationCredit struct {
	instrAcctIdx uint64
	amount       uint64
}

// applyDistribution verifies that every credit and the pool debit can be
// applied before mutating any account.
func applyDistribution(txCtx *TransactionCtx, instrCtx *InstructionCtx, req *distributionRequest, shares rewards.Shares) error {
	// merge credits to the same destination
	var credits []destinationCredit
	creditIdx := make(map[uint64]int)
	for i, pos := range req.positions {
		idxInTx, err := instrCtx.IndexOfInstructionAccountInTransaction(pos.destinationIdx)
		if err != nil {
			return err
		}
		if j, ok := creditIdx[idxInTx]; ok {
			credits[j].amount, err = safemath.CheckedAddU64(credits[j].amount, shares.Payouts[i])
			if err != nil {
				return InstrErrArithmeticOverflow
			}
			continue
		}
		creditIdx[idxInTx] = len(credits)
		credits = append(credits, destinationCredit{instrAcctIdx: pos.destinationIdx, amount: shares.Payouts[i]})
	}

	for _, credit := range credits {
		err := checkCredit(txCtx, instrCtx, credit)
		if err != nil {
			return err
		}
	}

	newPool := *req.pool
	newPool.AvailableBalance -= shares.Distributed
	var err error
	newPool.TotalDistributed, err = safemath.CheckedAddU64(req.pool.TotalDistributed, shares.Distributed)
	if err != nil {
		return InstrErrArithmeticOverflow
	}
	newPool.DistributionCount, err = safemath.CheckedAddU64(req.pool.DistributionCount, 1)
	if err != nil {
		return InstrErrArithmeticOverflow
	}

	poolAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	defer poolAcct.Drop()

	newPoolLamports, err := safemath.CheckedSubU64(poolAcct.Lamports(), shares.Distributed)
	if err != nil || newPoolLamports < req.pool.ReserveLamports {
		klog.Errorf("pool %s holds %d lamports, cannot pay %d above its reserve of %d", poolAcct.Key(), poolAcct.Lamports(), shares.Distributed, req.pool.ReserveLamports)
		return InstrErrInvalidAccountData
	}
	err = poolAcct.LamportsCanBeChanged(newPoolLamports)
	if err != nil {
		return err
	}
	err = poolAcct.DataCanBeChanged()
	if err != nil {
		return err
	}

	for _, credit := range credits {
		dest, err := instrCtx.BorrowInstructionAccount(txCtx, credit.instrAcctIdx)
		if err != nil {
			return err
		}
		err = dest.CheckedAddLamports(credit.amount)
		dest.Drop()
		if err != nil {
			return err
		}
		klog.V(2).Infof("credited %d lamports to %s", credit.amount, dest.Key())
	}

	err = poolAcct.SetLamports(newPoolLamports)
	if err != nil {
		return err
	}

	return setRewardPoolState(poolAcct, &newPool)
}

func checkCredit(txCtx *TransactionCtx, instrCtx *InstructionCtx, credit destinationCredit) error {
	dest, err := instrCtx.BorrowInstructionAccount(txCtx, credit.instrAcctIdx)
	if err != nil {
		return err
	}
	defer dest.Drop()

	newLamports, err := safemath.CheckedAddU64(dest.Lamports(), credit.amount)
	if err != nil {
		klog.Errorf("crediting %d lamports to %s overflows", credit.amount, dest.Key())
		return InstrErrArithmeticOverflow
	}
	return dest.LamportsCanBeChanged(newLamports)
}
