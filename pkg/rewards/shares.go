// Package rewards computes proportional reward shares with integer-only
// arithmetic.
package rewards

import (
	"errors"
	"sort"

	"github.com/Overclock-Validator/rewardpool/pkg/safemath"
)

var (
	ErrNoPositions        = errors.New("no staking positions")
	ErrArithmeticOverflow = errors.New("arithmetic overflow in share calculation")
	ErrInvalidPolicy      = errors.New("invalid remainder policy")
)

// Shares is the result of splitting an amount across staking positions.
type Shares struct {
	Payouts    []uint64
	TotalStake uint64

	// Distributed is the sum of Payouts: the full amount, or zero when
	// ZeroTotalStake is set.
	Distributed uint64

	// ZeroTotalStake reports that no position had stake, so nothing could be
	// attributed and every payout is zero. This is an outcome, not an error.
	ZeroTotalStake bool
}

// CalculatePayouts splits available across stakes in proportion to each
// stake. Each base share is floor(stake_i * available / total) computed with a
// 128-bit product; the leftover from flooring is assigned by policy.
func CalculatePayouts(stakes []uint64, available uint64, policy RemainderPolicy) (Shares, error) {
	if len(stakes) == 0 {
		return Shares{}, ErrNoPositions
	}
	if !policy.Valid() {
		return Shares{}, ErrInvalidPolicy
	}

	var totalStake uint64
	var err error
	for _, stake := range stakes {
		totalStake, err = safemath.CheckedAddU64(totalStake, stake)
		if err != nil {
			return Shares{}, ErrArithmeticOverflow
		}
	}

	payouts := make([]uint64, len(stakes))
	if totalStake == 0 {
		return Shares{Payouts: payouts, ZeroTotalStake: true}, nil
	}

	switch policy {
	case RemainderToLast:
		err = remainderToLast(payouts, stakes, totalStake, available)
	case LargestRemainder:
		err = largestRemainder(payouts, stakes, totalStake, available)
	}
	if err != nil {
		return Shares{}, err
	}

	return Shares{Payouts: payouts, TotalStake: totalStake, Distributed: available}, nil
}

func lastStakedPosition(stakes []uint64) int {
	for i := len(stakes) - 1; i >= 0; i-- {
		if stakes[i] != 0 {
			return i
		}
	}
	return -1
}

func remainderToLast(payouts, stakes []uint64, totalStake, available uint64) error {
	last := lastStakedPosition(stakes)

	var assigned uint64
	for i, stake := range stakes {
		if i == last || stake == 0 {
			continue
		}
		share, err := safemath.MulDivU64(stake, available, totalStake)
		if err != nil {
			return ErrArithmeticOverflow
		}
		payouts[i] = share
		assigned, err = safemath.CheckedAddU64(assigned, share)
		if err != nil {
			return ErrArithmeticOverflow
		}
	}

	rest, err := safemath.CheckedSubU64(available, assigned)
	if err != nil {
		return ErrArithmeticOverflow
	}
	payouts[last] = rest
	return nil
}

func largestRemainder(payouts, stakes []uint64, totalStake, available uint64) error {
	type fraction struct {
		position  int
		remainder uint64
	}
	fractions := make([]fraction, 0, len(stakes))

	var assigned uint64
	for i, stake := range stakes {
		if stake == 0 {
			continue
		}
		share, rem, err := safemath.MulDivRemU64(stake, available, totalStake)
		if err != nil {
			return ErrArithmeticOverflow
		}
		payouts[i] = share
		assigned, err = safemath.CheckedAddU64(assigned, share)
		if err != nil {
			return ErrArithmeticOverflow
		}
		if rem != 0 {
			fractions = append(fractions, fraction{position: i, remainder: rem})
		}
	}

	leftover, err := safemath.CheckedSubU64(available, assigned)
	if err != nil {
		return ErrArithmeticOverflow
	}

	// All remainders share the denominator totalStake, so comparing
	// numerators orders the fractional parts.
	sort.SliceStable(fractions, func(i, j int) bool {
		return fractions[i].remainder > fractions[j].remainder
	})

	// leftover equals the sum of the fractional parts, which is strictly
	// less than the number of positions holding one.
	if leftover > uint64(len(fractions)) {
		return ErrArithmeticOverflow
	}
	for _, f := range fractions[:leftover] {
		payouts[f.position]++
	}
	return nil
}
