package classify

import (
	"github.com/ppiankov/hazardscore/internal/model"
	"github.com/ppiankov/hazardscore/internal/score"
)

// PreCheck overrides a prediction to the ignore sentinel with zero confidence
// when text contains any trivial keyword. It reports whether the override applied.
func PreCheck(pred *Prediction, text string, keywords *score.Keywords) (*Prediction, bool) {
	if !keywords.HasTrivial(text) {
		return pred, false
	}
	return &Prediction{
		Category:   model.HazardIgnore,
		Confidence: map[string]float64{model.HazardIgnore: 0},
	}, true
}
