package rewards

import "fmt"

// RemainderPolicy decides who receives the units lost to floor division.
// Whatever the policy, payouts always sum to the distributed amount.
type RemainderPolicy uint8

const (
	// RemainderToLast gives every leftover unit to the last position with a
	// non-zero stake, in request order. Simple and auditable, but whoever
	// orders the request controls who collects the slack.
	RemainderToLast RemainderPolicy = iota

	// LargestRemainder hands leftover units out one at a time in descending
	// order of each position's fractional remainder, ties going to the
	// earlier position.
	LargestRemainder
)

func (p RemainderPolicy) Valid() bool {
	return p == RemainderToLast || p == LargestRemainder
}

func (p RemainderPolicy) String() string {
	switch p {
	case RemainderToLast:
		return "remainder-to-last"
	case LargestRemainder:
		return "largest-remainder"
	default:
		return fmt.Sprintf("RemainderPolicy(%d)", uint8(p))
	}
}

// ParseRemainderPolicy accepts the names produced by String.
func ParseRemainderPolicy(s string) (RemainderPolicy, error) {
	switch s {
	case "remainder-to-last", "last", "":
		return RemainderToLast, nil
	case "largest-remainder", "largest":
		return LargestRemainder, nil
	}
	return 0, fmt.Errorf("unknown remainder policy %q", s)
}
