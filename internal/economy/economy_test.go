package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveTierDefaultsUnknown(t *testing.T) {
	cfg := DefaultConfig()

	tier, spec := cfg.ResolveTier(2)
	assert.Equal(t, 2, tier)
	assert.Equal(t, 180, spec.DwellSeconds)

	for _, unknown := range []int{0, -1, 4, 99} {
		tier, spec := cfg.ResolveTier(unknown)
		assert.Equal(t, DefaultTier, tier, "tier %d should fall back", unknown)
		assert.Equal(t, cfg.Tiers[DefaultTier], spec)
	}
}

func TestClampRewardTime(t *testing.T) {
	cfg := DefaultConfig()

	// A requested reward shorter than the dwell time is floored to it.
	assert.Equal(t, 180, cfg.ClampRewardTime(2, 10))
	assert.Equal(t, 60, cfg.ClampRewardTime(1, 0))

	// Longer requests are kept as-is.
	assert.Equal(t, 300, cfg.ClampRewardTime(1, 300))
	assert.Equal(t, 180, cfg.ClampRewardTime(2, 180))
}

func TestTierTableEconomy(t *testing.T) {
	cfg := DefaultConfig()

	for tier, spec := range cfg.Tiers {
		assert.Greater(t, spec.CostPerVisit, spec.PayoutPerVisit,
			"tier %d must not pay out more than it charges", tier)
		assert.Greater(t, spec.DwellSeconds, 0)
	}
}
