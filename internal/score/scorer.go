package score

import (
	"fmt"
	"time"

	"github.com/ppiankov/hazardscore/internal/model"
)

// IgnoreReason is the breakdown reason attached to ignored reports
const IgnoreReason = "trivial keywords detected"

// Scorer turns a classified report plus its history into a credibility score.
// It holds no model or repository state; all history is passed in.
type Scorer struct {
	config   Config
	keywords *Keywords
}

// NewScorer creates a new scorer. A nil keyword table selects the defaults.
func NewScorer(cfg Config, keywords *Keywords) *Scorer {
	if keywords == nil {
		keywords = DefaultKeywords()
	}
	return &Scorer{
		config:   cfg,
		keywords: keywords,
	}
}

// Config returns the scorer's configuration
func (s *Scorer) Config() Config {
	return s.config
}

// Keywords returns the keyword tables the scorer matches against
func (s *Scorer) Keywords() *Keywords {
	return s.keywords
}

// Input is everything the scorer reads for one report
type Input struct {
	Report       model.Report   // provisional report, Score = classifier confidence
	SameCategory []model.Report // every stored report sharing Report.HazardType
	UserReports  int            // total reports filed by Report.UserID, this one included
	Now          time.Time
}

// Result is the scored outcome
type Result struct {
	Score     float64
	Breakdown Breakdown // nil when Ignored
	Ignored   bool
	Reason    string // set when Ignored
	Signals   []Signal
}

// Signal is a human-readable explanation of one scoring component
type Signal = model.Signal

// Calculate scores a report. Ignored reports short-circuit to 0 before any
// consensus or spam computation.
func (s *Scorer) Calculate(in Input) Result {
	if in.Report.Ignored() {
		return Result{
			Score:   0,
			Ignored: true,
			Reason:  IgnoreReason,
		}
	}

	consensus := EstimateConsensus(in.Report, in.SameCategory, s.config.RadiusKm, s.config.TargetUsers)
	spam := s.config.Weights.spamPenalty(in.UserReports)
	final, breakdown := s.Aggregate(in.Report, consensus, spam, in.Now)

	return Result{
		Score:     final,
		Breakdown: breakdown,
		Signals:   s.signals(in, breakdown),
	}
}

// signals explains each component with the formula that produced it
func (s *Scorer) signals(in Input, b Breakdown) []Signal {
	w := s.config.Weights
	corroborators := len(distinctCorroborators(in.Report, in.SameCategory, s.config.RadiusKm))
	age := in.Now.Sub(in.Report.Timestamp)

	return []Signal{
		{
			Component:   KeyMLConfidence,
			Description: fmt.Sprintf("Classifier confidence %.2f for %q", b[KeyMLConfidence], in.Report.HazardType),
			Data: map[string]any{
				"weight": w.MLConfidence,
			},
		},
		{
			Component:   KeyConsensus,
			Description: fmt.Sprintf("%d distinct reporter(s) within %.1f km", corroborators, s.config.RadiusKm),
			Data: map[string]any{
				"distinct_users": corroborators,
				"target_users":   s.config.TargetUsers,
				"weight":         w.Consensus,
				"formula":        "min(1, distinct_users / target_users)",
			},
		},
		{
			Component:   KeySpamPenalty,
			Description: fmt.Sprintf("Reporter has %d report(s) on file", in.UserReports),
			Data: map[string]any{
				"allowance": w.SpamAllowance,
				"weight":    w.SpamPenalty,
				"formula":   "count <= allowance ? 0 : min(1, (count - allowance) / ramp)",
			},
		},
		{
			Component:   KeyKeyword,
			Description: s.keywordDescription(in.Report.Text),
		},
		{
			Component:   KeyTimeDecay,
			Description: fmt.Sprintf("Report age %.1fh (stale after %s)", age.Hours(), w.StaleAfter),
		},
	}
}

func (s *Scorer) keywordDescription(text string) string {
	switch {
	case s.keywords.HasHazard(text):
		return "Hazard keyword present"
	case s.keywords.HasTrivial(text):
		return "Only trivial keywords present"
	default:
		return "No known keywords"
	}
}
