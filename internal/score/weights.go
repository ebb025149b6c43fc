package score

import (
	"time"

	"github.com/ppiankov/hazardscore/internal/model"
)

// Weights are the named constants the aggregator combines.
// Every field can be overridden through the scoring section of the config.
type Weights struct {
	MLConfidence float64 // multiplier on classifier confidence
	Consensus    float64 // multiplier on consensus
	SpamPenalty  float64 // multiplier on spam penalty (subtracted)

	HazardKeyword  float64 // additive term when a hazard keyword matches
	TrivialKeyword float64 // additive term when only a trivial keyword matches
	NoKeyword      float64 // additive term when nothing matches

	StalePenalty float64       // additive term once a report is older than StaleAfter
	StaleAfter   time.Duration // age threshold for StalePenalty

	SpamAllowance int     // reports a user may file before any penalty
	SpamRamp      float64 // reports beyond the allowance to reach full penalty
}

// DefaultWeights returns the canonical weighting: 0.5/0.3/0.2 with keyword and decay terms enabled
func DefaultWeights() Weights {
	return Weights{
		MLConfidence:   0.5,
		Consensus:      0.3,
		SpamPenalty:    0.2,
		HazardKeyword:  0.2,
		TrivialKeyword: -0.4,
		NoKeyword:      -0.1,
		StalePenalty:   -0.2,
		StaleAfter:     24 * time.Hour,
		SpamAllowance:  3,
		SpamRamp:       10.0,
	}
}

// Config holds everything the scorer needs besides the report history
type Config struct {
	Weights     Weights
	RadiusKm    float64 // consensus radius
	TargetUsers int     // distinct reporters needed for full consensus
}

// DefaultConfig returns the stock scoring configuration: 5 km radius, 5 corroborators
func DefaultConfig() Config {
	return Config{
		Weights:     DefaultWeights(),
		RadiusKm:    5.0,
		TargetUsers: 5,
	}
}

// ConfigFromModel converts model.ScoringConfig to score.Config.
// Zero durations and ramps fall back to the defaults so a partial config file stays usable.
func ConfigFromModel(mc model.ScoringConfig) Config {
	def := DefaultConfig()
	w := mc.Weights

	cfg := Config{
		Weights: Weights{
			MLConfidence:   w.MLConfidence,
			Consensus:      w.Consensus,
			SpamPenalty:    w.SpamPenalty,
			HazardKeyword:  w.HazardKeyword,
			TrivialKeyword: w.TrivialKeyword,
			NoKeyword:      w.NoKeyword,
			StalePenalty:   w.StalePenalty,
			StaleAfter:     w.StaleAfter,
			SpamAllowance:  w.SpamAllowance,
			SpamRamp:       w.SpamRamp,
		},
		RadiusKm:    mc.ConsensusRadiusKm,
		TargetUsers: mc.ConsensusTarget,
	}

	if cfg.Weights.StaleAfter <= 0 {
		cfg.Weights.StaleAfter = def.Weights.StaleAfter
	}
	if cfg.Weights.SpamRamp <= 0 {
		cfg.Weights.SpamRamp = def.Weights.SpamRamp
	}
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = def.RadiusKm
	}
	if cfg.TargetUsers <= 0 {
		cfg.TargetUsers = def.TargetUsers
	}

	return cfg
}
