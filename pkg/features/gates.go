package features

import (
	"github.com/Overclock-Validator/rewardpool/pkg/base58"
)

type FeatureGate struct {
	Name    string
	Address [32]byte
}

// PermissiveEmptyPoolDistribution turns a distribution against a pool with no
// distributable balance into a successful no-op instead of InsufficientFunds.
var PermissiveEmptyPoolDistribution = FeatureGate{Name: "PermissiveEmptyPoolDistribution", Address: base58.MustDecodeFromString("AzqzX7xtiAE6fvha5X1siY3rqJX1NEEmx1H4Kf6NgbMU")}

// LargestRemainderDefault makes newly initialized pools default to the
// largest remainder policy when the instruction does not name one.
var LargestRemainderDefault = FeatureGate{Name: "LargestRemainderDefault", Address: base58.MustDecodeFromString("3gn68AZKdF5zNWinZdwKBHAfojF94hnH7Dz7d5JHMVEB")}

var AllFeatureGates = []FeatureGate{PermissiveEmptyPoolDistribution, LargestRemainderDefault}

// FeatureGateByName looks up a gate by its name, as used on the command line.
func FeatureGateByName(name string) (FeatureGate, bool) {
	for _, gate := range AllFeatureGates {
		if gate.Name == name {
			return gate, true
		}
	}
	return FeatureGate{}, false
}
