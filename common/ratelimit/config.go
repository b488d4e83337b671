package ratelimit

// FlowTier classifies a compiled manifest by its surviving function count so
// large graphs don't starve small ones out of the submission API's budget.
type FlowTier string

const (
	TierLight    FlowTier = "light"
	TierStandard FlowTier = "standard"
	TierHeavy    FlowTier = "heavy"
)

// TierConfig defines submission rate limits for each flow tier.
type TierConfig struct {
	Tier          FlowTier
	Limit         int64
	WindowSeconds int
	Description   string
}

// DefaultTierConfigs reclassifies the teacher's agent-node-count tiers to
// surviving function count.
var DefaultTierConfigs = map[FlowTier]TierConfig{
	TierLight: {
		Tier:          TierLight,
		Limit:         100,
		WindowSeconds: 60,
		Description:   "fewer than 10 functions - 100 submissions/minute",
	},
	TierStandard: {
		Tier:          TierStandard,
		Limit:         20,
		WindowSeconds: 60,
		Description:   "10-50 functions - 20 submissions/minute",
	},
	TierHeavy: {
		Tier:          TierHeavy,
		Limit:         5,
		WindowSeconds: 60,
		Description:   "more than 50 functions - 5 submissions/minute",
	},
}

// GlobalConfig contains service-wide submission limits.
type GlobalConfig struct {
	Limit         int64
	WindowSeconds int
}

var DefaultGlobalConfig = GlobalConfig{
	Limit:         200,
	WindowSeconds: 60,
}

// ClassifyTier buckets a manifest by its surviving function count.
func ClassifyTier(functionCount int) FlowTier {
	switch {
	case functionCount > 50:
		return TierHeavy
	case functionCount >= 10:
		return TierStandard
	default:
		return TierLight
	}
}

// GetLimitForTier returns the submission rate limit for a given tier.
func GetLimitForTier(tier FlowTier) int64 {
	if config, exists := DefaultTierConfigs[tier]; exists {
		return config.Limit
	}
	return DefaultTierConfigs[TierHeavy].Limit
}

// GetWindowForTier returns the time window for a given tier.
func GetWindowForTier(tier FlowTier) int {
	if config, exists := DefaultTierConfigs[tier]; exists {
		return config.WindowSeconds
	}
	return DefaultTierConfigs[TierHeavy].WindowSeconds
}
