package cu

import (
	"errors"

	"github.com/Overclock-Validator/rewardpool/pkg/safemath"
	"k8s.io/klog/v2"
)

var ErrComputeExceeded = errors.New("Compute exceeded")

const DefaultComputeUnitLimit = 200_000

// ComputeMeter tracks the compute units a transaction has left. Once a charge
// overdraws it the meter stays at zero.
type ComputeMeter struct {
	remaining uint64
	budget    uint64
}

func NewComputeMeter(budget uint64) ComputeMeter {
	return ComputeMeter{remaining: budget, budget: budget}
}

func NewComputeMeterDefault() ComputeMeter {
	return NewComputeMeter(DefaultComputeUnitLimit)
}

func (cm *ComputeMeter) Consume(cost uint64) error {
	if cost > cm.remaining {
		klog.V(3).Infof("compute meter overdrawn: cost %d, %d of %d remaining", cost, cm.remaining, cm.budget)
		cm.remaining = 0
		return ErrComputeExceeded
	}
	cm.remaining -= cost
	return nil
}

// ConsumePer charges unitCost for each of count items, for work that scales
// with the number of accounts an instruction walks. The whole charge is
// taken at once, before any item is processed.
func (cm *ComputeMeter) ConsumePer(count uint64, unitCost uint64) error {
	return cm.Consume(safemath.SaturatingMulU64(count, unitCost))
}

func (cm *ComputeMeter) Used() uint64 {
	return cm.budget - cm.remaining
}

func (cm *ComputeMeter) Remaining() uint64 {
	return cm.remaining
}
