package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The TestFeatures_EnableAndDisable function tests that the
// enable and disable features work correctly.
func TestFeatures_EnableAndDisable(t *testing.T) {
	f := NewFeaturesDefault()
	f.EnableFeature(PermissiveEmptyPoolDistribution, 0)
	assert.Equal(t, f.IsActive(PermissiveEmptyPoolDistribution), true)
	f.DisableFeature(PermissiveEmptyPoolDistribution)
	assert.Equal(t, f.IsActive(PermissiveEmptyPoolDistribution), false)
	f.EnableFeature(PermissiveEmptyPoolDistribution, 0)
	assert.Equal(t, f.IsActive(PermissiveEmptyPoolDistribution), true)
}

// The TestFeatures_ListEnabled function tests that the AllEnabled function works
// as expected.
func TestFeatures_ListEnabled(t *testing.T) {
	f := NewFeaturesDefault()
	f.EnableFeature(PermissiveEmptyPoolDistribution, 0)
	assert.Equal(t, f.AllEnabled(), []string{"feature PermissiveEmptyPoolDistribution (AzqzX7xtiAE6fvha5X1siY3rqJX1NEEmx1H4Kf6NgbMU) enabled"})
}

func TestFeatures_ActivationSlot(t *testing.T) {
	f := NewFeaturesDefault()
	f.EnableFeature(LargestRemainderDefault, 100)
	assert.False(t, f.IsActiveAt(LargestRemainderDefault, 99))
	assert.True(t, f.IsActiveAt(LargestRemainderDefault, 100))

	var nilFeatures *Features
	assert.False(t, nilFeatures.IsActive(LargestRemainderDefault))

	gate, ok := FeatureGateByName("LargestRemainderDefault")
	assert.True(t, ok)
	assert.Equal(t, LargestRemainderDefault, gate)
}
