package economy

import "time"

// Tier is a pricing/timing preset for a campaign. CostPerVisit is what the
// target owner pays per visit, PayoutPerVisit is what the source owner earns,
// DwellSeconds is how long a player must stay before the payout fires.
type Tier struct {
	CostPerVisit   int64
	DwellSeconds   int
	PayoutPerVisit int64
}

// Config holds every tunable economy number. It is built once in main and
// injected into the services; nothing reads these from globals.
type Config struct {
	Tiers map[int]Tier

	// One-time promotional credit granted when an owner account is first created.
	InitialPromoGrant int64

	// External visit count at or above which a registered campaign is
	// auto-approved without an admin decision.
	AutoApproveVisits int64

	// Completed visits allowed per campaign per UTC day.
	DailyVisitCap int

	// How long a started quest token stays redeemable.
	QuestTTL time.Duration
}

const DefaultTier = 1

func DefaultConfig() Config {
	return Config{
		Tiers: map[int]Tier{
			1: {CostPerVisit: 8, DwellSeconds: 60, PayoutPerVisit: 6},
			2: {CostPerVisit: 20, DwellSeconds: 180, PayoutPerVisit: 15},
			3: {CostPerVisit: 45, DwellSeconds: 300, PayoutPerVisit: 35},
		},
		InitialPromoGrant: 500,
		AutoApproveVisits: 10000,
		DailyVisitCap:     20,
		QuestTTL:          24 * time.Hour,
	}
}

// ResolveTier maps an arbitrary client-supplied tier number onto the table,
// falling back to tier 1 for anything unknown.
func (c Config) ResolveTier(tier int) (int, Tier) {
	if t, ok := c.Tiers[tier]; ok {
		return tier, t
	}
	return DefaultTier, c.Tiers[DefaultTier]
}

// ClampRewardTime floors the advertised reward duration to the tier's dwell
// time: the player can never earn their reward faster than the source gets paid.
func (c Config) ClampRewardTime(tier int, requestedSeconds int) int {
	_, t := c.ResolveTier(tier)
	if requestedSeconds < t.DwellSeconds {
		return t.DwellSeconds
	}
	return requestedSeconds
}
