package score

import (
	"math"
	"time"

	"github.com/ppiankov/hazardscore/internal/model"
)

// Breakdown keys
const (
	KeyMLConfidence = "ml_confidence"
	KeyConsensus    = "consensus"
	KeySpamPenalty  = "spam_penalty"
	KeyKeyword      = "keyword_score"
	KeyTimeDecay    = "time_decay"
)

// Breakdown exposes every component that went into a final score
type Breakdown map[string]float64

// Aggregate folds classifier confidence, consensus, spam penalty, the keyword
// term and time decay into one score clamped to [0,1].
// The report's provisional Score is taken as the classifier confidence.
func (s *Scorer) Aggregate(report model.Report, consensus, spamPenalty float64, now time.Time) (float64, Breakdown) {
	w := s.config.Weights
	ml := report.Score
	keyword := s.keywordTerm(report.Text)
	decay := s.timeDecay(report.Timestamp, now)

	final := w.MLConfidence*ml +
		w.Consensus*consensus -
		w.SpamPenalty*spamPenalty +
		keyword +
		decay

	return Clamp(final), Breakdown{
		KeyMLConfidence: ml,
		KeyConsensus:    consensus,
		KeySpamPenalty:  spamPenalty,
		KeyKeyword:      keyword,
		KeyTimeDecay:    decay,
	}
}

// keywordTerm: hazard match wins over trivial match, no match is mildly negative
func (s *Scorer) keywordTerm(text string) float64 {
	w := s.config.Weights
	switch {
	case s.keywords.HasHazard(text):
		return w.HazardKeyword
	case s.keywords.HasTrivial(text):
		return w.TrivialKeyword
	default:
		return w.NoKeyword
	}
}

// timeDecay is a single step: reports older than StaleAfter lose StalePenalty
func (s *Scorer) timeDecay(created, now time.Time) float64 {
	w := s.config.Weights
	if now.Sub(created) > w.StaleAfter {
		return w.StalePenalty
	}
	return 0
}

// Clamp bounds v to [0,1]. NaN collapses to 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0.0, math.Min(1.0, v))
}
