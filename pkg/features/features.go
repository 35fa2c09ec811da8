package features

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Overclock-Validator/rewardpool/pkg/base58"
)

// Features tracks which feature gates are active and from which slot.
type Features struct {
	mu      sync.RWMutex
	enabled map[[32]byte]featureState
}

type featureState struct {
	gate           FeatureGate
	activationSlot uint64
}

func NewFeaturesDefault() *Features {
	return &Features{enabled: make(map[[32]byte]featureState)}
}

func (f *Features) EnableFeature(gate FeatureGate, slot uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled[gate.Address] = featureState{gate: gate, activationSlot: slot}
}

func (f *Features) DisableFeature(gate FeatureGate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.enabled, gate.Address)
}

func (f *Features) IsActive(gate FeatureGate) bool {
	if f == nil {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.enabled[gate.Address]
	return ok
}

// IsActiveAt reports whether the gate is active and its activation slot is
// at or before slot.
func (f *Features) IsActiveAt(gate FeatureGate, slot uint64) bool {
	if f == nil {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	state, ok := f.enabled[gate.Address]
	return ok && state.activationSlot <= slot
}

func (f *Features) AllEnabled() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var out []string
	for _, state := range f.enabled {
		out = append(out, fmt.Sprintf("feature %s (%s) enabled", state.gate.Name, base58.Encode(state.gate.Address[:])))
	}
	sort.Strings(out)
	return out
}
